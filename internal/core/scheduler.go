package core

// scheduler.go runs the periodic report jobs on cron schedules in
// Report.Timezone:
//
//	weekly-report   "0 <WeeklyHour> * * <WeeklyDay>"
//	monthly-report  "0 <MonthlyHour> <MonthlyDay> * *"
//	stale-leads     "0 <StaleHour> * * MON-FRI"
//
// Jobs are best effort. A failed run is logged and the job simply waits for
// its next slot; nothing propagates to the caller. A run that is still in
// progress when its next slot arrives makes that slot be skipped.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/daoninhthai/crm/internal/logging"
)

// ScheduledJob is a named job with a standard five-field cron spec.
type ScheduledJob struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// ReportJobs returns the scheduled jobs built from the report settings.
func (s *Service) ReportJobs() []ScheduledJob {
	rc := s.cfg.Report
	weekday, _ := rc.Weekday()

	return []ScheduledJob{
		{
			Name: "weekly-report",
			Spec: fmt.Sprintf("0 %d * * %d", rc.WeeklyHour, int(weekday)),
			Run: func(ctx context.Context) error {
				_, err := s.GenerateWeeklyReport(ctx)
				return err
			},
		},
		{
			Name: "monthly-report",
			Spec: fmt.Sprintf("0 %d %d * *", rc.MonthlyHour, rc.MonthlyDay),
			Run: func(ctx context.Context) error {
				_, err := s.GenerateMonthlyReport(ctx)
				return err
			},
		},
		{
			Name: "stale-leads",
			Spec: fmt.Sprintf("0 %d * * MON-FRI", rc.StaleHour),
			Run: func(ctx context.Context) error {
				_, err := s.CheckStaleLeads(ctx)
				return err
			},
		},
	}
}

// StartReportScheduler runs the report jobs until ctx is cancelled. It
// returns immediately when reports are disabled.
func (s *Service) StartReportScheduler(ctx context.Context) {
	if !s.cfg.Report.Enabled {
		slog.Info("report scheduler disabled")
		return
	}

	c, err := s.newScheduler(ctx, s.ReportJobs())
	if err != nil {
		slog.Error("report scheduler not started", "error", err)
		return
	}
	c.Start()

	<-ctx.Done()
	// Wait for running jobs before returning.
	<-c.Stop().Done()
	slog.Info("report scheduler stopped")
}

// newScheduler registers jobs on a cron running in the report timezone.
// Every run goes through runJob; panics are recovered and overlapping runs
// skipped.
func (s *Service) newScheduler(ctx context.Context, jobs []ScheduledJob) (*cron.Cron, error) {
	logger := cronLogger{slog.Default()}
	c := cron.New(
		cron.WithLocation(s.location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	now := s.now().In(s.location())
	for _, job := range jobs {
		id, err := c.AddFunc(job.Spec, func() { s.runJob(ctx, job) })
		if err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		slog.Info("report job scheduled", "job", job.Name, "spec", job.Spec, "next_run", c.Entry(id).Schedule.Next(now))
	}
	return c, nil
}

// runJob executes one job run, logging and swallowing its error.
func (s *Service) runJob(ctx context.Context, job ScheduledJob) {
	ctx, _ = logging.WithRunID(ctx)
	logger := logging.WithFields(ctx, "job", job.Name)
	start := time.Now()

	logger.Info("report job started")
	if err := job.Run(ctx); err != nil {
		logger.Error("report job failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Info("report job completed", "duration_ms", time.Since(start).Milliseconds())
}

// cronLogger sends the cron runner's own messages to slog. Its routine
// wake-up messages go to debug.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
