package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	gomail "github.com/wneessen/go-mail"
)

// dialer is the part of *gomail.Client the sender uses.
type dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	client dialer
	from   string
	logger *slog.Logger
}

// NewSMTPSender builds a sender for cfg. Authentication is only configured
// when a username is set; TLS is used when the relay offers it.
func NewSMTPSender(cfg config.MailConfig, logger *slog.Logger) (*SMTPSender, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return newSMTPSender(client, cfg.From, logger), nil
}

func newSMTPSender(client dialer, from string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		client: client,
		from:   from,
		logger: logger.With(slog.String("component", "smtp_sender")),
	}
}

// SendAssignmentEmail implements Sender.
func (s *SMTPSender) SendAssignmentEmail(ctx context.Context, address, taskTitle string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	msg, err := s.buildAssignmentMessage(address, taskTitle)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		log.Error("email send failed",
			slog.String("to", redact.Email(address)),
			slog.String("error", redact.Error(err)))
		return fmt.Errorf("failed to send assignment email: %w", err)
	}

	log.Info("task assignment email sent", slog.String("to", redact.Email(address)))
	return nil
}

func (s *SMTPSender) buildAssignmentMessage(address, taskTitle string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat("Task Manager", s.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(address); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(AssignmentSubject)
	msg.SetBodyString(gomail.TypeTextHTML, assignmentBody(taskTitle))
	return msg, nil
}

var _ Sender = (*SMTPSender)(nil)
