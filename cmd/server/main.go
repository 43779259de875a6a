// Package main implements the entry point for the taskflow API server,
// which serves the task HTTP API and realtime gateway and runs the
// scheduled maintenance jobs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

func main() {
	migrate := flag.String("migrate", "", "run a migration command (up, down, status, version) and exit")
	runJobs := flag.Bool("run-jobs", false, "run the scheduled jobs once and exit")
	flag.Parse()

	if err := run(*migrate, *runJobs); err != nil {
		slog.Error("taskflow-api exited with error", slog.String("error", redact.Error(err)))
		os.Exit(1)
	}
}

// run loads configuration, connects to the database and then either runs a
// migration, a single job pass or the full server until a shutdown signal.
func run(migrateCmd string, runJobs bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
		slog.Bool("mail_enabled", cfg.Mail.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", slog.String("error", redact.Error(err)))
		}
	}()

	if migrateCmd != "" {
		return postgres.Migrate(ctx, db, migrateCmd, log)
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if runJobs {
		app.runner.Start()
		defer app.runner.Stop()
		app.scheduler.RunOnce(ctx)
		return nil
	}

	return app.serve(ctx)
}
