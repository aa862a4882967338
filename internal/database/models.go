package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Customer struct {
	ID              int64
	FirstName       string
	LastName        string
	Email           string
	Phone           pgtype.Text
	Company         pgtype.Text
	Address         pgtype.Text
	City            pgtype.Text
	Country         pgtype.Text
	Notes           pgtype.Text
	Industry        pgtype.Text
	Source          pgtype.Text
	DealValue       pgtype.Numeric
	Status          string
	LastContactDate pgtype.Date
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

type Deal struct {
	ID                int64
	Title             string
	Description       pgtype.Text
	Value             pgtype.Numeric
	Stage             string
	Probability       int32
	CustomerID        int64
	AssignedTo        pgtype.Text
	ExpectedCloseDate pgtype.Date
	ActualCloseDate   pgtype.Date
	Source            pgtype.Text
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

type Activity struct {
	ID              int64
	Type            string
	Subject         string
	Notes           pgtype.Text
	CustomerID      int64
	DealID          pgtype.Int8
	PerformedBy     pgtype.Text
	DurationMinutes pgtype.Int4
	ActivityDate    pgtype.Timestamptz
	CreatedAt       pgtype.Timestamptz
}

type Report struct {
	ID          int64
	ReportType  string
	Content     string
	PeriodStart pgtype.Date
	PeriodEnd   pgtype.Date
	CreatedAt   pgtype.Timestamptz
}
