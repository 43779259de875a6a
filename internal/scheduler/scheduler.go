// Package scheduler runs the periodic maintenance jobs: recurring-task
// regeneration and audit retention. Each job runs on its own cron timer and
// an overrunning job skips its next tick instead of overlapping.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc"
)

// Job names as they appear in logs.
const (
	JobRecurrence = "recurrence"
	JobRetention  = "audit_retention"
)

// Scheduler owns the cron timers.
type Scheduler struct {
	cron       *cron.Cron
	recurrence service.RecurrenceService
	audit      service.AuditService
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Scheduler for cfg. Cron expressions use the standard
// five-field format and are evaluated in cfg.Timezone.
func New(
	cfg config.SchedulerConfig,
	recurrence service.RecurrenceService,
	audit service.AuditService,
	logger *slog.Logger,
) (*Scheduler, error) {
	if recurrence == nil || audit == nil {
		return nil, fmt.Errorf("recurrence and audit services are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "scheduler"))

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}

	cronLog := &cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		recurrence: recurrence,
		audit:      audit,
		location:   loc,
		now:        time.Now,
		logger:     logger,
	}

	if _, err := s.cron.AddFunc(cfg.RecurrenceCron, func() { s.RunRecurrence(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid recurrence schedule %q: %w", cfg.RecurrenceCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.RetentionCron, func() { s.RunRetention(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", cfg.RetentionCron, err)
	}

	return s, nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("scheduled job", slog.Time("next_run", e.Next))
	}
}

// Stop prevents new runs and waits for running jobs to finish or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// EntryCount returns the number of registered jobs.
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}

// RunRecurrence runs one regeneration pass. Failures are logged.
func (s *Scheduler) RunRecurrence(ctx context.Context) {
	ctx, log := s.jobContext(ctx, JobRecurrence)
	start := s.now()

	report, err := s.recurrence.Run(ctx, start.In(s.location))
	if err != nil {
		log.Error("job failed", slog.String("error", redact.Error(err)))
		return
	}
	log.Info("job completed",
		slog.Int("scanned", report.Scanned),
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", time.Since(start)))
}

// RunRetention runs one audit purge. Failures are logged and wait for the next tick.
func (s *Scheduler) RunRetention(ctx context.Context) {
	ctx, log := s.jobContext(ctx, JobRetention)
	start := s.now()

	removed, err := s.audit.PurgeExpired(ctx, start)
	if err != nil {
		log.Error("job failed", slog.String("error", redact.Error(err)))
		return
	}
	log.Info("job completed",
		slog.Int64("removed", removed),
		slog.Duration("duration", time.Since(start)))
}

// RunOnce runs both jobs concurrently and waits for them. A panicking job
// is recovered and logged without affecting the other.
func (s *Scheduler) RunOnce(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() { s.RunRecurrence(ctx) })
	wg.Go(func() { s.RunRetention(ctx) })

	if r := wg.WaitAndRecover(); r != nil {
		s.logger.Error("job panicked", slog.String("panic", r.String()))
	}
}

func (s *Scheduler) jobContext(ctx context.Context, job string) (context.Context, *slog.Logger) {
	log := s.logger.With(slog.String("job", job))
	return logger.WithLogger(ctx, log), log
}

// cronLogger adapts cron's key/value logger to slog.
type cronLogger struct {
	logger *slog.Logger
}

// Info implements cron.Logger.
func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

// Error implements cron.Logger.
func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}

var _ cron.Logger = (*cronLogger)(nil)
