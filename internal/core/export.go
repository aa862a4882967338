package core

// export.go serializes customers to CSV with a selectable column set.

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/daoninhthai/crm/internal/csvcodec"
	"github.com/daoninhthai/crm/internal/logging"
)

// CSVContentType is the MIME type of every CSV download.
const CSVContentType = "text/csv; charset=UTF-8"

// DefaultExportColumns is the column set of a full customer export.
var DefaultExportColumns = []string{
	"ID", "Name", "Email", "Company", "Deal Value",
	"Status", "Phone", "Industry", "Source",
	"Last Contact Date", "Created At", "Updated At",
}

// ContactExportColumns is the column set of a contact list export.
var ContactExportColumns = []string{
	"ID", "First Name", "Last Name", "Email", "Phone", "Company",
	"Status", "City", "Country", "Notes", "Last Contact Date", "Created At",
}

// exportColumns maps an upper-cased column name to its value.
var exportColumns = map[string]func(Customer, csvcodec.Format) string{
	"ID":         func(c Customer, _ csvcodec.Format) string { return strconv.FormatInt(c.ID, 10) },
	"NAME":       func(c Customer, _ csvcodec.Format) string { return c.FullName() },
	"FIRST NAME": func(c Customer, _ csvcodec.Format) string { return c.FirstName },
	"LAST NAME":  func(c Customer, _ csvcodec.Format) string { return c.LastName },
	"EMAIL":      func(c Customer, _ csvcodec.Format) string { return c.Email },
	"COMPANY":    func(c Customer, _ csvcodec.Format) string { return c.Company },
	"DEAL VALUE": func(c Customer, _ csvcodec.Format) string {
		if !c.DealValue.Valid {
			return ""
		}
		return c.DealValue.Decimal.StringFixed(2)
	},
	"STATUS":   func(c Customer, _ csvcodec.Format) string { return string(c.Status) },
	"PHONE":    func(c Customer, _ csvcodec.Format) string { return c.Phone },
	"INDUSTRY": func(c Customer, _ csvcodec.Format) string { return c.Industry },
	"SOURCE":   func(c Customer, _ csvcodec.Format) string { return c.Source },
	"CITY":     func(c Customer, _ csvcodec.Format) string { return c.City },
	"COUNTRY":  func(c Customer, _ csvcodec.Format) string { return c.Country },
	"NOTES":    func(c Customer, _ csvcodec.Format) string { return c.Notes },
	"ADDRESS":  func(c Customer, _ csvcodec.Format) string { return c.Address },
	"LAST CONTACT DATE": func(c Customer, f csvcodec.Format) string {
		if c.LastContactDate == nil {
			return ""
		}
		return c.LastContactDate.Format(f.DateLayout)
	},
	"CREATED AT": func(c Customer, f csvcodec.Format) string { return formatTimestamp(c.CreatedAt, f) },
	"UPDATED AT": func(c Customer, f csvcodec.Format) string { return formatTimestamp(c.UpdatedAt, f) },
}

func formatTimestamp(t time.Time, f csvcodec.Format) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(f.DateTimeLayout)
}

// CustomerRecord returns the values of c for the given columns. Column names
// match case-insensitively; an unknown column yields an empty value.
func CustomerRecord(c Customer, columns []string, f csvcodec.Format) []string {
	rec := make([]string, len(columns))
	for i, col := range columns {
		if value, ok := exportColumns[strings.ToUpper(strings.TrimSpace(col))]; ok {
			rec[i] = value(c, f)
		}
	}
	return rec
}

// WriteCustomersCSV writes a header row followed by one row per customer.
// An empty column list means DefaultExportColumns.
func WriteCustomersCSV(w io.Writer, customers []Customer, columns []string, f csvcodec.Format) error {
	if len(columns) == 0 {
		columns = DefaultExportColumns
	}

	cw := csvcodec.NewWriter(w, f)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, c := range customers {
		if err := cw.Write(CustomerRecord(c, columns, f)); err != nil {
			return err
		}
	}
	return cw.Flush()
}

// ExportFilename returns "<prefix>_<YYYY-MM-DD>.csv" for the date of now.
func ExportFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format(csvcodec.DefaultFormat.DateLayout))
}

// ExportRequest selects the customers and columns of an export.
type ExportRequest struct {
	Status     CustomerStatus
	Company    string
	RecentDays int // Only customers contacted within this many days; 0 means all
	Columns    []string
}

// ExportCustomers writes the customers selected by req to w and returns how
// many rows were written.
func (s *Service) ExportCustomers(ctx context.Context, w io.Writer, req ExportRequest) (int, error) {
	f := CustomerFilter{Status: req.Status, Company: strings.TrimSpace(req.Company)}
	if req.RecentDays > 0 {
		f.ContactedFrom = timePtr(s.today().AddDate(0, 0, -req.RecentDays))
	}

	customers, err := s.ListCustomers(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := WriteCustomersCSV(w, customers, req.Columns, csvcodec.DefaultFormat); err != nil {
		return 0, wrapIO("write export", err)
	}

	logging.FromContext(ctx).Info("customers exported", "rows", len(customers), "status", req.Status)
	return len(customers), nil
}

// ExportFilenameNow is ExportFilename for the current date.
func (s *Service) ExportFilenameNow(prefix string) string {
	return ExportFilename(prefix, s.today())
}
