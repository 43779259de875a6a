package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Priority ranks how urgent a task is.
type Priority string

// Possible priority values
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Field limits for tasks.
const (
	TitleMinLength       = 3
	TitleMaxLength       = 100
	DescriptionMaxLength = 500
)

// Task is a shared unit of work. CreatedByID never changes after creation.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      time.Time  `json:"due_date"`
	Priority     Priority   `json:"priority"`
	Status       TaskStatus `json:"status"`
	Recurrence   Recurrence `json:"recurrence"`
	CreatedByID  uuid.UUID  `json:"created_by_id"`
	AssignedToID *uuid.UUID `json:"assigned_to_id,omitempty"`

	// RecurrenceParentID links a regenerated instance to the task it was copied from.
	RecurrenceParentID *uuid.UUID `json:"recurrence_parent_id,omitempty"`
	// RegeneratedAt is set on a completed recurring task once its next occurrence exists.
	RegeneratedAt *time.Time `json:"regenerated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Expanded references, populated by reads.
	Creator  *UserSummary `json:"created_by,omitempty"`
	Assignee *UserSummary `json:"assigned_to,omitempty"`
}

// NewTask creates a TODO task with no recurrence owned by creatorID.
// Callers override the defaults before persisting, then call Validate.
func NewTask(creatorID uuid.UUID, title, description string, due time.Time, priority Priority) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		DueDate:     due.UTC(),
		Priority:    priority,
		Status:      TaskStatusTodo,
		Recurrence:  RecurrenceNone,
		CreatedByID: creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks if the Task has valid data.
// Returns a *ValidationError naming the first invalid field.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "is required", ErrInvalidID)
	}
	if n := utf8.RuneCountInString(t.Title); n < TitleMinLength || n > TitleMaxLength {
		return NewValidationError("title", "must be between 3 and 100 characters", nil)
	}
	if utf8.RuneCountInString(t.Description) > DescriptionMaxLength {
		return NewValidationError("description", "must be at most 500 characters", nil)
	}
	if t.DueDate.IsZero() {
		return NewValidationError("due_date", "is required", nil)
	}
	if !t.Priority.IsValid() {
		return NewValidationError("priority", "must be one of LOW MEDIUM HIGH", nil)
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "must be one of TODO IN_PROGRESS DONE", nil)
	}
	if !t.Recurrence.IsValid() {
		return NewValidationError("recurrence", "must be one of NONE DAILY WEEKLY MONTHLY", nil)
	}
	if t.CreatedByID == uuid.Nil {
		return NewValidationError("created_by_id", "is required", ErrInvalidID)
	}
	if t.AssignedToID != nil && *t.AssignedToID == uuid.Nil {
		return NewValidationError("assigned_to_id", "has invalid format", ErrInvalidID)
	}
	return nil
}

// IsCreatedBy reports whether userID created the task.
func (t *Task) IsCreatedBy(userID uuid.UUID) bool {
	return t.CreatedByID == userID
}

// IsAssignedTo reports whether the task is currently assigned to userID.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// IsOverdue reports whether the task is open and its due date lies before now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != TaskStatusDone && t.DueDate.Before(now)
}

// NextOccurrence builds the follow-up instance of a completed recurring task.
// The copy keeps title, description, priority, recurrence, creator and
// assignee, resets status to TODO and moves the due date one period forward.
// ok is false when the task has no recurrence rule.
func (t *Task) NextOccurrence() (next *Task, ok bool) {
	due, ok := NextDueDate(t.DueDate, t.Recurrence)
	if !ok {
		return nil, false
	}

	next = NewTask(t.CreatedByID, t.Title, t.Description, due, t.Priority)
	next.Recurrence = t.Recurrence
	if t.AssignedToID != nil {
		assignee := *t.AssignedToID
		next.AssignedToID = &assignee
	}
	parent := t.ID
	next.RecurrenceParentID = &parent
	return next, true
}
