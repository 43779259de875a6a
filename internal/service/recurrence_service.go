package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mail"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// RecurrenceReport summarizes one regeneration run.
type RecurrenceReport struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RecurrenceService materializes the next occurrence of completed recurring tasks.
type RecurrenceService interface {
	// Run processes every pending candidate. Each task is handled in its own
	// transaction; per-task failures are counted and the run continues.
	// An error is returned only when the candidates cannot be listed or ctx ends.
	Run(ctx context.Context, now time.Time) (*RecurrenceReport, error)
}

type materializeOutcome int

const (
	outcomeCreated materializeOutcome = iota
	outcomeSkipped
	outcomeFailed
)

type recurrenceServiceImpl struct {
	taskWriter
	tx       store.Transactor
	notifier Notifier
	mailer   mail.Sender
	logger   *slog.Logger
}

// NewRecurrenceService creates a RecurrenceService.
// It returns an error if any of the required dependencies are nil.
func NewRecurrenceService(
	tx store.Transactor,
	tasks store.TaskStore,
	users store.UserStore,
	audit store.AuditLogStore,
	notifier Notifier,
	mailer mail.Sender,
	logger *slog.Logger,
) (RecurrenceService, error) {
	deps := []struct {
		name string
		ok   bool
	}{
		{"transactor", tx != nil},
		{"tasks store", tasks != nil},
		{"users store", users != nil},
		{"audit store", audit != nil},
		{"notifier", notifier != nil},
		{"mailer", mailer != nil},
	}
	for _, d := range deps {
		if !d.ok {
			return nil, &TaskServiceError{
				Operation: "create_service",
				Message:   d.name + " cannot be nil",
			}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &recurrenceServiceImpl{
		taskWriter: taskWriter{tasks: tasks, users: users, audit: audit},
		tx:         tx,
		notifier:   notifier,
		mailer:     mailer,
		logger:     logger.With(slog.String("component", "recurrence_service")),
	}, nil
}

// Run implements RecurrenceService.
func (s *recurrenceServiceImpl) Run(ctx context.Context, now time.Time) (*RecurrenceReport, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	report := &RecurrenceReport{}

	candidates, err := s.tasks.ListRegenerationCandidates(ctx, 0)
	if err != nil {
		log.Error("failed to list recurring tasks", slog.String("error", redact.Error(err)))
		return report, NewTaskServiceError("regenerate_tasks", "failed to list candidates", err)
	}
	report.Scanned = len(candidates)

	for _, origin := range candidates {
		if err := ctx.Err(); err != nil {
			log.Warn("recurrence run interrupted",
				slog.Int("remaining", report.Scanned-report.Created-report.Skipped-report.Failed))
			return report, err
		}

		switch s.materialize(ctx, origin, now) {
		case outcomeCreated:
			report.Created++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
		}
	}

	log.Info("recurrence run completed",
		slog.Int("scanned", report.Scanned),
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed))
	return report, nil
}

// materialize claims origin and inserts its next occurrence in one transaction.
func (s *recurrenceServiceImpl) materialize(
	ctx context.Context,
	origin *domain.Task,
	now time.Time,
) materializeOutcome {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("task_id", origin.ID.String()))

	next, ok := origin.NextOccurrence()
	if !ok {
		return outcomeSkipped
	}

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.tasks.WithTx(tx).MarkRegenerated(ctx, origin.ID, now); err != nil {
			return err
		}
		return s.insert(ctx, tx, next, domain.AuditActionTaskRecurring, origin.CreatedByID)
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAlreadyRegenerated), errors.Is(err, store.ErrTaskNotFound):
		log.Debug("recurring task already handled", slog.String("reason", err.Error()))
		return outcomeSkipped
	default:
		log.Error("failed to regenerate recurring task", slog.String("error", redact.Error(err)))
		return outcomeFailed
	}

	log.Info("recurring task regenerated",
		slog.String("next_task_id", next.ID.String()),
		slog.Time("next_due_date", next.DueDate))

	if next.AssignedToID != nil {
		s.announce(ctx, origin, next, *next.AssignedToID)
	}
	return outcomeCreated
}

// announce notifies the assignee of a new occurrence and queues an email.
// Failures are logged only.
func (s *recurrenceServiceImpl) announce(ctx context.Context, origin, next *domain.Task, assigneeID uuid.UUID) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.notifier.Notify(ctx, assigneeID, "Recurring task: "+next.Title, domain.NotificationTypeInApp); err != nil {
		log.Warn("notification dispatch failed",
			slog.String("error", redact.Error(fmt.Errorf("%w: %w", domain.ErrTransientDependency, err))),
			slog.String("user_id", assigneeID.String()))
	}

	address := ""
	if origin.Assignee != nil && origin.Assignee.ID == assigneeID {
		address = origin.Assignee.Email
	} else {
		user, err := s.users.GetByID(ctx, assigneeID)
		if err != nil {
			log.Warn("failed to resolve assignee email",
				slog.String("error", err.Error()),
				slog.String("user_id", assigneeID.String()))
			return
		}
		address = user.Email
	}

	if err := s.mailer.SendAssignmentEmail(ctx, address, next.Title); err != nil {
		log.Warn("assignment email not sent",
			slog.String("error", redact.Error(fmt.Errorf("%w: %w", domain.ErrTransientDependency, err))),
			slog.String("to", redact.Email(address)))
	}
}
