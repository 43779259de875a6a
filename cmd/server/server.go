package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskflow-api/internal/redact"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

// serve runs the HTTP server, the job runner and, when enabled, the cron
// scheduler until ctx is canceled or the server fails, then shuts all of
// them down within the configured timeout.
func (app *application) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	app.runner.Start()
	if app.config.Scheduler.Enabled {
		app.scheduler.Start()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		timeout := time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		return app.shutdown(shutdownCtx, server)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	app.logger.Info("server shutdown completed")
	return nil
}

// shutdown stops accepting requests, closes live websocket connections,
// waits for running jobs and drains the email queue.
func (app *application) shutdown(ctx context.Context, server *http.Server) error {
	var errs []error

	if err := server.Shutdown(ctx); err != nil {
		app.logger.Error("server shutdown failed", slog.String("error", redact.Error(err)))
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}

	app.gateway.Close()

	if app.config.Scheduler.Enabled {
		if err := app.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	app.runner.Stop()
	return errors.Join(errs...)
}
