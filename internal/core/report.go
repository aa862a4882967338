package core

// report.go renders the plain-text bodies of the scheduled emails. The
// functions only format; gathering the numbers is the Reporter's job.

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	reportDateLayout      = "2006-01-02"
	reportGeneratedLayout = "2006-01-02T15:04:05"
)

// ReportData is the aggregate behind a weekly or monthly report.
type ReportData struct {
	PeriodStart        time.Time
	PeriodEnd          time.Time
	TotalCustomers     int64
	NewCustomers       int64
	ContactedCustomers int64
	ActiveDealValue    decimal.Decimal // Sum of deal values of ACTIVE customers
	ClosedWonValue     decimal.Decimal // Value of deals won within the period
	StatusDistribution map[CustomerStatus]int64
}

func writeStatusLines(b *strings.Builder, dist map[CustomerStatus]int64) {
	for _, st := range CustomerStatuses {
		fmt.Fprintf(b, "  %s: %d\n", st, dist[st])
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ComposeWeeklyReport renders the weekly report body.
func ComposeWeeklyReport(data ReportData, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("=== CRM Weekly Report ===\n")
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		data.PeriodStart.Format(reportDateLayout), data.PeriodEnd.Format(reportDateLayout))

	fmt.Fprintf(&b, "New Customers: %d\n", data.NewCustomers)
	fmt.Fprintf(&b, "Customers Contacted: %d\n", data.ContactedCustomers)
	fmt.Fprintf(&b, "Total Active Deal Value: $%s\n\n", money(data.ActiveDealValue))

	b.WriteString("Pipeline Status:\n")
	writeStatusLines(&b, data.StatusDistribution)

	fmt.Fprintf(&b, "\nGenerated at: %s\n", generatedAt.Format(reportGeneratedLayout))
	return b.String()
}

// ComposeMonthlyReport renders the monthly report body.
func ComposeMonthlyReport(data ReportData, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("=== CRM Monthly Report ===\n")
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		data.PeriodStart.Format(reportDateLayout), data.PeriodEnd.Format(reportDateLayout))

	fmt.Fprintf(&b, "Total Customers: %d\n", data.TotalCustomers)
	fmt.Fprintf(&b, "New Customers This Month: %d\n", data.NewCustomers)
	fmt.Fprintf(&b, "Customers Contacted: %d\n", data.ContactedCustomers)
	fmt.Fprintf(&b, "Active Deal Pipeline Value: $%s\n", money(data.ActiveDealValue))
	fmt.Fprintf(&b, "Closed-Won Value This Month: $%s\n\n", money(data.ClosedWonValue))

	b.WriteString("Pipeline Breakdown:\n")
	writeStatusLines(&b, data.StatusDistribution)

	fmt.Fprintf(&b, "\nGenerated at: %s\n", generatedAt.Format(reportGeneratedLayout))
	return b.String()
}

// ComposeStaleLeadsAlert lists customers not contacted for more than
// thresholdDays days. Customers without a last contact date are skipped.
func ComposeStaleLeadsAlert(leads []Customer, today time.Time, thresholdDays int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following leads have not been contacted in over %d days:\n\n", thresholdDays)

	n := 0
	for _, c := range leads {
		if c.LastContactDate == nil {
			continue
		}
		n++
		fmt.Fprintf(&b, "- %s (%s) | Company: %s | Deal: $%s | Last Contact: %s (%d days ago)\n",
			c.FullName(),
			c.Email,
			orNA(c.Company),
			dealValueText(c),
			c.LastContactDate.Format(reportDateLayout),
			daysBetween(*c.LastContactDate, today),
		)
	}

	fmt.Fprintf(&b, "\nTotal stale leads: %d\n", n)
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func dealValueText(c Customer) string {
	if !c.DealValue.Valid {
		return "0.00"
	}
	return money(c.DealValue.Decimal)
}

// WeeklyReportSubject is the subject line of the weekly report email.
func WeeklyReportSubject(start, end time.Time) string {
	return fmt.Sprintf("CRM Weekly Report: %s to %s", start.Format(reportDateLayout), end.Format(reportDateLayout))
}

// MonthlyReportSubject is the subject line of the monthly report email.
func MonthlyReportSubject(start time.Time) string {
	return fmt.Sprintf("CRM Monthly Report: %s %d", strings.ToUpper(start.Month().String()), start.Year())
}

// StaleLeadsSubject is the subject line of the stale leads alert.
func StaleLeadsSubject(n int) string {
	return fmt.Sprintf("CRM Alert: %d Stale Leads Requiring Attention", n)
}

// WeeklyPeriod returns the Monday..Sunday week before the week of today.
func WeeklyPeriod(today time.Time) (start, end time.Time) {
	today = dateOf(today)
	// Days back to the most recent Sunday strictly before today.
	back := int(today.Weekday())
	if back == 0 {
		back = 7
	}
	end = today.AddDate(0, 0, -back)
	return end.AddDate(0, 0, -6), end
}

// MonthlyPeriod returns the first and last day of the month before today.
func MonthlyPeriod(today time.Time) (start, end time.Time) {
	first := startOfMonth(dateOf(today))
	start = first.AddDate(0, -1, 0)
	return start, first.AddDate(0, 0, -1)
}
