package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// AuditLogStore persists the append-only audit ledger. The only removal
// path is the age-based bulk purge.
type AuditLogStore interface {
	// Create appends an entry.
	Create(ctx context.Context, entry *domain.AuditLogEntry) error

	// ListByTask returns all entries for a task, newest first.
	// The task may no longer exist.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.AuditLogEntry, error)

	// DeleteOlderThan removes every entry created before cutoff in a single
	// statement and returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a new AuditLogStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) AuditLogStore
}
