package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// NotificationStore persists per-user notifications.
type NotificationStore interface {
	// Create saves a new notification.
	// Returns store.ErrInvalidEntity if the recipient does not exist.
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a notification.
	// Returns store.ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// MarkRead sets the read flag and returns the updated record.
	// Marking an already-read notification succeeds.
	// Returns store.ErrNotificationNotFound if it does not exist.
	MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// ListByUser returns up to limit notifications for userID, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)

	// CountUnread returns how many of userID's notifications are unread.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// WithTx returns a new NotificationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
