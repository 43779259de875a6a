package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/sethvargo/go-retry"
)

const (
	pingTimeout      = 5 * time.Second
	pingBackoffBase  = 500 * time.Millisecond
	pingBackoffLimit = 10 * time.Second
)

// setupAppDatabase opens the connection pool and waits until the database
// answers a ping, retrying with exponential backoff up to cfg.ConnectAttempts times.
func setupAppDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := pingWithRetry(ctx, db, max(cfg.ConnectAttempts, 1), logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database connection established")
	return db, nil
}

// pinger is the subset of *sql.DB used to probe connectivity.
type pinger interface {
	PingContext(ctx context.Context) error
}

func pingWithRetry(ctx context.Context, db pinger, attempts int, logger *slog.Logger) error {
	backoff := retry.NewExponential(pingBackoffBase)
	backoff = retry.WithCappedDuration(pingBackoffLimit, backoff)
	backoff = retry.WithMaxRetries(uint64(attempts-1), backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("database not ready",
				slog.Int("attempt", attempt),
				slog.String("error", redact.Error(err)))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ping database after %d attempts: %w", attempt, err)
	}
	return nil
}
