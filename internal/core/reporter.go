package core

// reporter.go gathers report data, stores the rendered reports and emails
// them to the configured recipients.

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daoninhthai/crm/internal/csvcodec"
	"github.com/daoninhthai/crm/internal/logging"
	"github.com/daoninhthai/crm/internal/mail"
)

// inPeriod reports whether the calendar date of t lies within [start, end].
func inPeriod(t time.Time, start, end time.Time) bool {
	day := dateOf(t)
	return !day.Before(start) && !day.After(end)
}

// BuildReportData aggregates customers and deals for the period
// [start, end], both inclusive calendar dates.
func (s *Service) BuildReportData(ctx context.Context, start, end time.Time) (ReportData, error) {
	start, end = dateOf(start), dateOf(end)
	loc := s.location()

	customers, err := s.allCustomers(ctx)
	if err != nil {
		return ReportData{}, err
	}
	won, err := s.ListDeals(ctx, DealFilter{Stage: StageWon})
	if err != nil {
		return ReportData{}, err
	}

	data := ReportData{
		PeriodStart:        start,
		PeriodEnd:          end,
		TotalCustomers:     int64(len(customers)),
		ActiveDealValue:    decimal.Zero,
		ClosedWonValue:     decimal.Zero,
		StatusDistribution: make(map[CustomerStatus]int64, len(CustomerStatuses)),
	}
	for _, c := range customers {
		data.StatusDistribution[c.Status]++
		if inPeriod(c.CreatedAt.In(loc), start, end) {
			data.NewCustomers++
		}
		if c.LastContactDate != nil && inPeriod(*c.LastContactDate, start, end) {
			data.ContactedCustomers++
		}
		if c.Status == StatusActive && c.DealValue.Valid {
			data.ActiveDealValue = data.ActiveDealValue.Add(c.DealValue.Decimal)
		}
	}
	for _, d := range won {
		if d.ActualCloseDate != nil && inPeriod(*d.ActualCloseDate, start, end) {
			data.ClosedWonValue = data.ClosedWonValue.Add(dealValue(d))
		}
	}
	return data, nil
}

// customersCSV renders customers as a CSV attachment.
func customersCSV(filename string, customers []Customer) (mail.Attachment, error) {
	var buf bytes.Buffer
	if err := WriteCustomersCSV(&buf, customers, DefaultExportColumns, csvcodec.DefaultFormat); err != nil {
		return mail.Attachment{}, wrapIO("render attachment", err)
	}
	return mail.Attachment{Filename: filename, ContentType: CSVContentType, Content: buf.Bytes()}, nil
}

// GenerateWeeklyReport reports on last week, stores the report and emails it
// with the ACTIVE customers attached.
func (s *Service) GenerateWeeklyReport(ctx context.Context) (Report, error) {
	start, end := WeeklyPeriod(s.today())
	data, err := s.BuildReportData(ctx, start, end)
	if err != nil {
		return Report{}, err
	}
	content := ComposeWeeklyReport(data, s.now().In(s.location()))

	active, err := s.ListCustomers(ctx, CustomerFilter{Status: StatusActive})
	if err != nil {
		return Report{}, err
	}
	att, err := customersCSV(fmt.Sprintf("active-customers-%s.csv", end.Format(reportDateLayout)), active)
	if err != nil {
		return Report{}, err
	}

	saved, err := s.store.SaveReport(ctx, Report{Type: ReportWeekly, Content: content, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		return Report{}, wrapIO("save report", err)
	}

	s.mailAll(ctx, WeeklyReportSubject(start, end), content, &att)
	logging.FromContext(ctx).Info("weekly report generated", "report_id", saved.ID, "period_start", start, "period_end", end)
	return saved, nil
}

// GenerateMonthlyReport reports on last month, stores the report and emails
// it with all customers attached.
func (s *Service) GenerateMonthlyReport(ctx context.Context) (Report, error) {
	start, end := MonthlyPeriod(s.today())
	data, err := s.BuildReportData(ctx, start, end)
	if err != nil {
		return Report{}, err
	}
	content := ComposeMonthlyReport(data, s.now().In(s.location()))

	all, err := s.allCustomers(ctx)
	if err != nil {
		return Report{}, err
	}
	att, err := customersCSV(fmt.Sprintf("all-customers-%s.csv", end.Format(reportDateLayout)), all)
	if err != nil {
		return Report{}, err
	}

	saved, err := s.store.SaveReport(ctx, Report{Type: ReportMonthly, Content: content, PeriodStart: start, PeriodEnd: end})
	if err != nil {
		return Report{}, wrapIO("save report", err)
	}

	s.mailAll(ctx, MonthlyReportSubject(start), content, &att)
	logging.FromContext(ctx).Info("monthly report generated", "report_id", saved.ID, "month", start.Month())
	return saved, nil
}

// StaleLeads returns customers whose last contact is more than
// Report.StaleDays days ago. Churned and never-contacted customers are not
// included.
func (s *Service) StaleLeads(ctx context.Context) ([]Customer, error) {
	threshold := s.today().AddDate(0, 0, -s.cfg.Report.StaleDays)
	return s.ListCustomers(ctx, CustomerFilter{
		ExcludeStatus:  StatusChurned,
		ContactedUntil: &threshold,
	})
}

// CheckStaleLeads emails an alert listing the stale leads, if there are any.
func (s *Service) CheckStaleLeads(ctx context.Context) ([]Customer, error) {
	logger := logging.FromContext(ctx)

	leads, err := s.StaleLeads(ctx)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		logger.Info("no stale leads found")
		return leads, nil
	}

	logger.Warn("stale leads require follow-up", "count", len(leads))
	body := ComposeStaleLeadsAlert(leads, s.today(), s.cfg.Report.StaleDays)
	s.mailAll(ctx, StaleLeadsSubject(len(leads)), body, nil)
	return leads, nil
}

// ListReports returns stored reports, newest first. An empty type lists all.
func (s *Service) ListReports(ctx context.Context, reportType string) ([]Report, error) {
	var rt ReportType
	switch ReportType(upper(reportType)) {
	case "":
	case ReportWeekly:
		rt = ReportWeekly
	case ReportMonthly:
		rt = ReportMonthly
	default:
		return nil, newValidationError("type", reportType, "must be WEEKLY or MONTHLY")
	}

	out, err := s.store.ListReports(ctx, rt)
	if err != nil {
		return nil, wrapIO("list reports", err)
	}
	return out, nil
}

// mailAll sends one email to every report recipient. Delivery failures are
// logged per recipient and do not stop the others.
func (s *Service) mailAll(ctx context.Context, subject, body string, att *mail.Attachment) {
	logger := logging.FromContext(ctx)
	recipients := s.cfg.Report.Recipients
	if len(recipients) == 0 {
		logger.Warn("no report recipients configured", "subject", subject)
		return
	}

	for _, to := range recipients {
		var err error
		if att != nil {
			err = s.mailer.SendWithAttachment(ctx, to, subject, body, *att)
		} else {
			err = s.mailer.Send(ctx, to, subject, body)
		}
		if err != nil {
			logger.Error("report email failed", "to", to, "subject", subject, "error", err)
		}
	}
}
