package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/mail"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/realtime"
	"github.com/phrazzld/taskflow-api/internal/scheduler"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// emailJobTimeout bounds a single SMTP delivery.
const emailJobTimeout = 30 * time.Second

// application holds the shared dependencies so they can be wired once and
// cleaned up together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore

	jwtService          auth.JWTService
	taskService         service.TaskService
	notificationService service.NotificationService

	gateway   *realtime.Gateway
	wsHandler *realtime.Handler
	runner    *jobs.Runner
	scheduler *scheduler.Scheduler
}

// newApplication constructs every store, service and background component.
// Nothing is started here.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	auditStore := postgres.NewPostgresAuditLogStore(db, logger)
	notificationStore := postgres.NewPostgresNotificationStore(db, logger)
	tx := store.NewSQLTransactor(db)

	app.gateway = realtime.NewGateway(logger)
	app.wsHandler = realtime.NewHandler(app.gateway, app.jwtService, cfg.Realtime, logger)

	app.runner = jobs.NewRunner(jobs.RunnerConfig{
		WorkerCount: cfg.Jobs.WorkerCount,
		QueueSize:   cfg.Jobs.QueueSize,
		JobTimeout:  emailJobTimeout,
	}, logger)

	mailer, err := newMailer(cfg.Mail, app.runner, logger)
	if err != nil {
		return nil, err
	}

	app.notificationService, err = service.NewNotificationService(notificationStore, app.gateway, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification service: %w", err)
	}

	app.taskService, err = service.NewTaskService(tx, taskStore, app.userStore, auditStore, app.notificationService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	recurrence, err := service.NewRecurrenceService(
		tx, taskStore, app.userStore, auditStore, app.notificationService, mailer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create recurrence service: %w", err)
	}

	retention := time.Duration(cfg.Scheduler.RetentionDays) * 24 * time.Hour
	audit, err := service.NewAuditService(auditStore, retention, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit service: %w", err)
	}

	app.scheduler, err = scheduler.New(cfg.Scheduler, recurrence, audit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return app, nil
}

// newMailer returns the SMTP sender when mail is enabled and the logging
// simulator otherwise, delivered through the job runner either way.
func newMailer(cfg config.MailConfig, runner *jobs.Runner, logger *slog.Logger) (mail.Sender, error) {
	var next mail.Sender
	if cfg.Enabled {
		smtp, err := mail.NewSMTPSender(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SMTP sender: %w", err)
		}
		next = smtp
	} else {
		logger.Info("mail disabled, assignment emails will be logged")
		next = mail.NewLogSender(logger)
	}
	return mail.NewAsyncSender(next, runner, logger), nil
}
