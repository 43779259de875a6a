package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationType tags how a notification is delivered.
type NotificationType string

// NotificationTypeInApp is the only supported delivery type.
const NotificationTypeInApp NotificationType = "IN_APP"

// Common validation errors for Notification
var (
	ErrEmptyNotificationUserID  = errors.New("notification user ID cannot be empty")
	ErrEmptyNotificationMessage = errors.New("notification message cannot be empty")
	ErrInvalidNotificationType  = errors.New("invalid notification type")
)

// Notification is a persisted message for one user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification creates an unread notification for userID.
// An empty type defaults to IN_APP.
func NewNotification(userID uuid.UUID, message string, typ NotificationType) (*Notification, error) {
	if typ == "" {
		typ = NotificationTypeInApp
	}
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.UserID == uuid.Nil {
		return ErrEmptyNotificationUserID
	}
	if strings.TrimSpace(n.Message) == "" {
		return ErrEmptyNotificationMessage
	}
	if n.Type != NotificationTypeInApp {
		return ErrInvalidNotificationType
	}
	return nil
}

// BelongsTo reports whether userID is the recipient.
func (n *Notification) BelongsTo(userID uuid.UUID) bool {
	return n.UserID == userID
}
