package core

import (
	"context"
	"time"

	"github.com/daoninhthai/crm/internal/config"
	"github.com/daoninhthai/crm/internal/kv"
	"github.com/daoninhthai/crm/internal/mail"
)

// EmailSender delivers report and alert emails.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
	SendWithAttachment(ctx context.Context, to, subject, body string, att mail.Attachment) error
}

// Service provides the CRM business logic on top of a Store.
type Service struct {
	store     Store
	templates kv.Store
	mailer    EmailSender
	limiter   *ImportLimiter
	cfg       *config.Config

	now func() time.Time
}

// NewService creates a Service. templates holds email templates and mailer
// delivers scheduled reports.
func NewService(store Store, templates kv.Store, mailer EmailSender, cfg *config.Config) *Service {
	return &Service{
		store:     store,
		templates: templates,
		mailer:    mailer,
		limiter:   NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return wrapIO("ping store", err)
	}
	return nil
}

// ImportLimiterStatus returns the current import slot usage.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
// Used during graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// location is the timezone used for calendar dates and report periods.
func (s *Service) location() *time.Location {
	return s.cfg.Report.Location()
}

// today returns the current calendar date in the report timezone.
func (s *Service) today() time.Time {
	return dateOf(s.now().In(s.location()))
}
