package mail

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

// LogSender records emails in the log instead of sending them. It is used
// when mail delivery is disabled.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With(slog.String("component", "log_sender"))}
}

// SendAssignmentEmail implements Sender.
func (s *LogSender) SendAssignmentEmail(ctx context.Context, address, taskTitle string) error {
	logger.FromContextOrDefault(ctx, s.logger).Info("simulated email",
		slog.String("to", redact.Email(address)),
		slog.String("subject", AssignmentSubject),
		slog.String("task_title", taskTitle))
	return nil
}

var _ Sender = (*LogSender)(nil)
