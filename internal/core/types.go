package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerStatus is the lifecycle state of a customer.
type CustomerStatus string

const (
	StatusActive   CustomerStatus = "ACTIVE"
	StatusInactive CustomerStatus = "INACTIVE"
	StatusLead     CustomerStatus = "LEAD"
	StatusChurned  CustomerStatus = "CHURNED"
)

// CustomerStatuses lists all statuses in display order.
var CustomerStatuses = []CustomerStatus{StatusActive, StatusInactive, StatusLead, StatusChurned}

// ParseCustomerStatus parses a status name case-insensitively.
func ParseCustomerStatus(s string) (CustomerStatus, error) {
	v := CustomerStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range CustomerStatuses {
		if st == v {
			return v, nil
		}
	}
	return "", newValidationError("status", s, "must be one of ACTIVE, INACTIVE, LEAD, CHURNED")
}

// Stage is a position in the sales pipeline.
type Stage string

const (
	StageLead        Stage = "LEAD"
	StageQualified   Stage = "QUALIFIED"
	StageProposal    Stage = "PROPOSAL"
	StageNegotiation Stage = "NEGOTIATION"
	StageWon         Stage = "WON"
	StageLost        Stage = "LOST"
)

// Stages lists all stages in pipeline order.
var Stages = []Stage{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost}

// ParseStage parses a stage name case-insensitively.
func ParseStage(s string) (Stage, error) {
	v := Stage(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range Stages {
		if st == v {
			return v, nil
		}
	}
	return "", newValidationError("stage", s, "must be one of LEAD, QUALIFIED, PROPOSAL, NEGOTIATION, WON, LOST")
}

// Closed reports whether the stage ends the deal (WON or LOST).
func (s Stage) Closed() bool {
	return s == StageWon || s == StageLost
}

// ActivityType classifies an interaction with a customer.
type ActivityType string

const (
	ActivityCall    ActivityType = "CALL"
	ActivityEmail   ActivityType = "EMAIL"
	ActivityMeeting ActivityType = "MEETING"
	ActivityNote    ActivityType = "NOTE"
	ActivityTask    ActivityType = "TASK"
)

// ActivityTypes lists all activity types.
var ActivityTypes = []ActivityType{ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask}

// Customer is the long-lived root record of the CRM.
// Optional text fields use "" for absent; stores persist them as NULL.
type Customer struct {
	ID              int64               `json:"id"`
	FirstName       string              `json:"firstName" validate:"notblank,max=100"`
	LastName        string              `json:"lastName" validate:"notblank,max=100"`
	Email           string              `json:"email" validate:"notblank,email,max=255"`
	Phone           string              `json:"phone,omitempty" validate:"max=50"`
	Company         string              `json:"company,omitempty" validate:"max=255"`
	Address         string              `json:"address,omitempty"`
	City            string              `json:"city,omitempty" validate:"max=100"`
	Country         string              `json:"country,omitempty" validate:"max=100"`
	Notes           string              `json:"notes,omitempty"`
	Industry        string              `json:"industry,omitempty" validate:"max=100"`
	Source          string              `json:"source,omitempty" validate:"max=100"`
	DealValue       decimal.NullDecimal `json:"dealValue"`
	Status          CustomerStatus      `json:"status"`
	LastContactDate *time.Time          `json:"lastContactDate,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// FullName returns "First Last".
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Deal is a sales opportunity owned by a customer.
type Deal struct {
	ID                int64               `json:"id"`
	Title             string              `json:"title" validate:"notblank,max=255"`
	Description       string              `json:"description,omitempty"`
	Value             decimal.NullDecimal `json:"value"`
	Stage             Stage               `json:"stage"`
	Probability       int                 `json:"probability" validate:"min=0,max=100"`
	CustomerID        int64               `json:"customerId" validate:"required,gt=0"`
	AssignedTo        string              `json:"assignedTo,omitempty" validate:"max=100"`
	ExpectedCloseDate *time.Time          `json:"expectedCloseDate,omitempty"`
	ActualCloseDate   *time.Time          `json:"actualCloseDate,omitempty"`
	Source            string              `json:"source,omitempty" validate:"max=100"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// Activity is a logged interaction with a customer, optionally tied to a deal.
type Activity struct {
	ID              int64        `json:"id"`
	Type            ActivityType `json:"type" validate:"required,oneof=CALL EMAIL MEETING NOTE TASK"`
	Subject         string       `json:"subject" validate:"notblank,max=255"`
	Notes           string       `json:"notes,omitempty"`
	CustomerID      int64        `json:"customerId" validate:"required,gt=0"`
	DealID          *int64       `json:"dealId,omitempty"`
	PerformedBy     string       `json:"performedBy,omitempty" validate:"max=100"`
	DurationMinutes *int         `json:"durationMinutes,omitempty" validate:"omitempty,min=0"`
	ActivityDate    time.Time    `json:"activityDate" validate:"required"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// ReportType identifies a periodic report.
type ReportType string

const (
	ReportWeekly  ReportType = "WEEKLY"
	ReportMonthly ReportType = "MONTHLY"
)

// Report is a stored report body for a period.
type Report struct {
	ID          int64      `json:"id"`
	Type        ReportType `json:"type"`
	Content     string     `json:"content"`
	PeriodStart time.Time  `json:"periodStart"`
	PeriodEnd   time.Time  `json:"periodEnd"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CustomerFilter narrows customer listings. Zero values mean "no filter".
type CustomerFilter struct {
	Status         CustomerStatus
	ExcludeStatus  CustomerStatus
	Company        string
	Name           string     // Case-insensitive substring of first or last name
	CreatedFrom    *time.Time // Inclusive
	CreatedTo      *time.Time // Inclusive
	ContactedFrom  *time.Time // Inclusive, date
	ContactedTo    *time.Time // Inclusive, date
	ContactedUntil *time.Time // Exclusive, date; excludes never-contacted
	Limit          int
	Offset         int
}

// DealFilter narrows deal listings. Zero values mean "no filter".
type DealFilter struct {
	Stage      Stage
	AssignedTo string
	CustomerID int64
	Limit      int
	Offset     int
}

// dateOf truncates t to midnight UTC of its calendar day in t's location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
