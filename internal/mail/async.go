package mail

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

// Submitter accepts background jobs.
type Submitter interface {
	Submit(ctx context.Context, job jobs.Job) error
}

// AsyncSender hands each email to a background job so the caller never
// waits on the relay. It returns an error only when the job cannot be queued.
type AsyncSender struct {
	next      Sender
	submitter Submitter
	logger    *slog.Logger
}

// NewAsyncSender wraps next so sends run on submitter.
func NewAsyncSender(next Sender, submitter Submitter, logger *slog.Logger) *AsyncSender {
	if next == nil || submitter == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("sender and submitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncSender{
		next:      next,
		submitter: submitter,
		logger:    logger.With(slog.String("component", "async_sender")),
	}
}

// SendAssignmentEmail implements Sender.
func (s *AsyncSender) SendAssignmentEmail(ctx context.Context, address, taskTitle string) error {
	job := jobs.NewFuncJob(jobs.JobTypeAssignmentEmail, func(jobCtx context.Context) error {
		return s.next.SendAssignmentEmail(jobCtx, address, taskTitle)
	})

	if err := s.submitter.Submit(ctx, job); err != nil {
		s.logger.Warn("assignment email dropped",
			slog.String("to", redact.Email(address)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

var _ Sender = (*AsyncSender)(nil)
