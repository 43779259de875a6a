package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgresAuditLogStore implements the store.AuditLogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAuditLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAuditLogStore creates a new PostgreSQL implementation of the AuditLogStore interface.
func NewPostgresAuditLogStore(db store.DBTX, logger *slog.Logger) *PostgresAuditLogStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAuditLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "audit_log_store")),
	}
}

// Ensure PostgresAuditLogStore implements store.AuditLogStore interface
var _ store.AuditLogStore = (*PostgresAuditLogStore)(nil)

// WithTx implements store.AuditLogStore.WithTx
func (s *PostgresAuditLogStore) WithTx(tx *sql.Tx) store.AuditLogStore {
	return &PostgresAuditLogStore{db: tx, logger: s.logger}
}

// Create implements store.AuditLogStore.Create
func (s *PostgresAuditLogStore) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, user_id, task_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.Action, entry.UserID, entry.TaskID, entry.CreatedAt)
	if err != nil {
		log.Error("failed to append audit entry",
			slog.String("error", err.Error()),
			slog.String("action", string(entry.Action)),
			slog.String("task_id", entry.TaskID.String()))
		return MapError(err, nil)
	}
	return nil
}

// ListByTask implements store.AuditLogStore.ListByTask
func (s *PostgresAuditLogStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.AuditLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, user_id, task_id, created_at
		FROM audit_logs
		WHERE task_id = $1
		ORDER BY created_at DESC, id ASC
	`, taskID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list audit entries",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err, nil)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*domain.AuditLogEntry, 0)
	for rows.Next() {
		var e domain.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.TaskID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, nil)
	}
	return entries, nil
}

// DeleteOlderThan implements store.AuditLogStore.DeleteOlderThan
func (s *PostgresAuditLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		log.Error("failed to purge audit entries",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff))
		return 0, MapError(err, nil)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
