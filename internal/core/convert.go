package core

// convert.go maps between domain values and the pgtype values used by the
// database package.
//
// Optional text is "" in the domain and NULL in Postgres. Dates are stored
// as DATE columns and surface as midnight UTC. Money moves between
// decimal.NullDecimal and pgtype.Numeric without passing through float64.

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	db "github.com/daoninhthai/crm/internal/database"
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// FromPgText returns "" for NULL.
func FromPgText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// ToPgNumeric converts an optional decimal to pgtype.Numeric.
func ToPgNumeric(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{Valid: false}
	}
	return pgtype.Numeric{Int: d.Decimal.Coefficient(), Exp: d.Decimal.Exponent(), Valid: true}
}

// FromPgNumeric converts a pgtype.Numeric to an optional decimal. NaN and
// infinities are treated as NULL.
func FromPgNumeric(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromBigInt(n.Int, n.Exp), Valid: true}
}

// ToPgDate converts an optional time to a DATE value.
func ToPgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: dateOf(*t), Valid: true}
}

// FromPgDate returns nil for NULL.
func FromPgDate(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := dateOf(d.Time)
	return &t
}

// ToPgTimestamptz converts a time; the zero time becomes NULL.
func ToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// ToPgInt8 converts an optional id.
func ToPgInt8(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}

// ToPgInt4 converts an optional int.
func ToPgInt4(i *int) pgtype.Int4 {
	if i == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*i), Valid: true}
}

// ParseDate parses a calendar date in one of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t), true
		}
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "01/02/2006", "1/2/2006", "Jan 2, 2006", "2 Jan 2006", time.RFC3339,
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. The first occurrence
// of a repeated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// HeaderIndex maps lowercased column names to their position.
type HeaderIndex map[string]int

// CleanCell removes common spreadsheet artifacts from a header cell:
// surrounding whitespace, an Excel formula prefix (="...") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ----------------------------------------------------------------------------
// Row conversions
// ----------------------------------------------------------------------------

func customerFromRow(r db.Customer) Customer {
	return Customer{
		ID:              r.ID,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Phone:           FromPgText(r.Phone),
		Company:         FromPgText(r.Company),
		Address:         FromPgText(r.Address),
		City:            FromPgText(r.City),
		Country:         FromPgText(r.Country),
		Notes:           FromPgText(r.Notes),
		Industry:        FromPgText(r.Industry),
		Source:          FromPgText(r.Source),
		DealValue:       FromPgNumeric(r.DealValue),
		Status:          CustomerStatus(r.Status),
		LastContactDate: FromPgDate(r.LastContactDate),
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

func customerParams(c Customer) db.CreateCustomerParams {
	return db.CreateCustomerParams{
		FirstName:       strings.TrimSpace(c.FirstName),
		LastName:        strings.TrimSpace(c.LastName),
		Email:           strings.TrimSpace(c.Email),
		Phone:           ToPgText(c.Phone),
		Company:         ToPgText(c.Company),
		Address:         ToPgText(c.Address),
		City:            ToPgText(c.City),
		Country:         ToPgText(c.Country),
		Notes:           ToPgText(c.Notes),
		Industry:        ToPgText(c.Industry),
		Source:          ToPgText(c.Source),
		DealValue:       ToPgNumeric(c.DealValue),
		Status:          string(c.Status),
		LastContactDate: ToPgDate(c.LastContactDate),
	}
}

func dealFromRow(r db.Deal) Deal {
	return Deal{
		ID:                r.ID,
		Title:             r.Title,
		Description:       FromPgText(r.Description),
		Value:             FromPgNumeric(r.Value),
		Stage:             Stage(r.Stage),
		Probability:       int(r.Probability),
		CustomerID:        r.CustomerID,
		AssignedTo:        FromPgText(r.AssignedTo),
		ExpectedCloseDate: FromPgDate(r.ExpectedCloseDate),
		ActualCloseDate:   FromPgDate(r.ActualCloseDate),
		Source:            FromPgText(r.Source),
		CreatedAt:         r.CreatedAt.Time,
		UpdatedAt:         r.UpdatedAt.Time,
	}
}

func dealParams(d Deal) db.CreateDealParams {
	return db.CreateDealParams{
		Title:             strings.TrimSpace(d.Title),
		Description:       ToPgText(d.Description),
		Value:             ToPgNumeric(d.Value),
		Stage:             string(d.Stage),
		Probability:       int32(d.Probability),
		CustomerID:        d.CustomerID,
		AssignedTo:        ToPgText(d.AssignedTo),
		ExpectedCloseDate: ToPgDate(d.ExpectedCloseDate),
		ActualCloseDate:   ToPgDate(d.ActualCloseDate),
		Source:            ToPgText(d.Source),
	}
}

func activityFromRow(r db.Activity) Activity {
	a := Activity{
		ID:           r.ID,
		Type:         ActivityType(r.Type),
		Subject:      r.Subject,
		Notes:        FromPgText(r.Notes),
		CustomerID:   r.CustomerID,
		PerformedBy:  FromPgText(r.PerformedBy),
		ActivityDate: r.ActivityDate.Time,
		CreatedAt:    r.CreatedAt.Time,
	}
	if r.DealID.Valid {
		id := r.DealID.Int64
		a.DealID = &id
	}
	if r.DurationMinutes.Valid {
		m := int(r.DurationMinutes.Int32)
		a.DurationMinutes = &m
	}
	return a
}

func activityParams(a Activity) db.CreateActivityParams {
	return db.CreateActivityParams{
		Type:            string(a.Type),
		Subject:         strings.TrimSpace(a.Subject),
		Notes:           ToPgText(a.Notes),
		CustomerID:      a.CustomerID,
		DealID:          ToPgInt8(a.DealID),
		PerformedBy:     ToPgText(a.PerformedBy),
		DurationMinutes: ToPgInt4(a.DurationMinutes),
		ActivityDate:    ToPgTimestamptz(a.ActivityDate),
	}
}

func reportFromRow(r db.Report) Report {
	return Report{
		ID:          r.ID,
		Type:        ReportType(r.ReportType),
		Content:     r.Content,
		PeriodStart: r.PeriodStart.Time,
		PeriodEnd:   r.PeriodEnd.Time,
		CreatedAt:   r.CreatedAt.Time,
	}
}
