package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuditAction tags the kind of task mutation an audit entry records.
type AuditAction string

// Possible audit actions
const (
	AuditActionTaskCreate    AuditAction = "TASK_CREATE"
	AuditActionTaskUpdate    AuditAction = "TASK_UPDATE"
	AuditActionTaskDelete    AuditAction = "TASK_DELETE"
	AuditActionTaskRecurring AuditAction = "TASK_RECURRING"
)

// DefaultAuditRetention is how long audit entries are kept before the sweeper purges them.
const DefaultAuditRetention = 90 * 24 * time.Hour

// Common validation errors for AuditLogEntry
var (
	ErrInvalidAuditAction = errors.New("invalid audit action")
	ErrEmptyAuditTaskID   = errors.New("audit task ID cannot be empty")
	ErrEmptyAuditUserID   = errors.New("audit user ID cannot be empty")
)

// IsValid reports whether a is a known audit action.
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionTaskCreate, AuditActionTaskUpdate, AuditActionTaskDelete, AuditActionTaskRecurring:
		return true
	}
	return false
}

// AuditLogEntry is an immutable record of one task mutation. TaskID is kept
// after the task itself is deleted.
type AuditLogEntry struct {
	ID        uuid.UUID   `json:"id"`
	Action    AuditAction `json:"action"`
	UserID    uuid.UUID   `json:"user_id"`
	TaskID    uuid.UUID   `json:"task_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewAuditLogEntry records that userID performed action on taskID.
func NewAuditLogEntry(action AuditAction, userID, taskID uuid.UUID) (*AuditLogEntry, error) {
	entry := &AuditLogEntry{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks if the AuditLogEntry has valid data.
func (e *AuditLogEntry) Validate() error {
	if !e.Action.IsValid() {
		return ErrInvalidAuditAction
	}
	if e.TaskID == uuid.Nil {
		return ErrEmptyAuditTaskID
	}
	if e.UserID == uuid.Nil {
		return ErrEmptyAuditUserID
	}
	return nil
}
