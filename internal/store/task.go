package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// TaskOrder selects the sort order of a task listing.
type TaskOrder int

// Supported orderings
const (
	// OrderByDueDate sorts by due date ascending, then by ID for stability.
	OrderByDueDate TaskOrder = iota
	// OrderByCreatedDesc sorts newest first.
	OrderByCreatedDesc
)

// TaskFilter is a conjunction of optional predicates over tasks.
// Zero-valued fields do not constrain the result.
type TaskFilter struct {
	// Search matches title or description, case-insensitively.
	Search   string
	Status   *domain.TaskStatus
	Priority *domain.Priority

	AssignedTo *uuid.UUID
	CreatedBy  *uuid.UUID
	// Involving matches tasks created by or assigned to the user.
	Involving *uuid.UUID

	ExcludeStatus *domain.TaskStatus
	DueBefore     *time.Time

	OrderBy TaskOrder
	Limit   int
	Offset  int
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task.
	// Returns store.ErrInvalidEntity if the creator or assignee does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task with its creator and assignee expanded.
	// Returns store.ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update overwrites the mutable fields of an existing task.
	// Returns store.ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete permanently removes a task.
	// Returns store.ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns tasks matching filter with references expanded.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Count returns the number of tasks matching filter, ignoring Limit and Offset.
	Count(ctx context.Context, filter TaskFilter) (int, error)

	// ListRegenerationCandidates returns completed recurring tasks that have
	// not yet produced their next occurrence, oldest due date first.
	ListRegenerationCandidates(ctx context.Context, limit int) ([]*domain.Task, error)

	// MarkRegenerated claims a completed recurring task for regeneration.
	// The task must still be DONE with a recurrence. Returns
	// store.ErrAlreadyRegenerated if it was claimed before or is no longer
	// eligible, or store.ErrTaskNotFound if it does not exist.
	MarkRegenerated(ctx context.Context, id uuid.UUID, at time.Time) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
