package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/domain/policy"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/sourcegraph/conc/pool"
)

// DashboardPreviewSize is how many tasks each dashboard section previews.
const DashboardPreviewSize = 5

// Notifier delivers a notification to a user. TaskService calls it after a
// mutation commits; failures are logged and never returned.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message string, typ domain.NotificationType) (*domain.Notification, error)
}

// CreateTaskInput carries the fields of a new task. Empty Status and
// Recurrence take the defaults TODO and NONE.
type CreateTaskInput struct {
	Title        string
	Description  string
	DueDate      time.Time
	Priority     domain.Priority
	Status       domain.TaskStatus
	Recurrence   domain.Recurrence
	AssignedToID *uuid.UUID
}

// UpdateTaskInput is a partial update: nil fields are left unchanged.
// ClearAssignee removes the assignee and takes precedence over AssignedToID.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	DueDate       *time.Time
	Priority      *domain.Priority
	Status        *domain.TaskStatus
	Recurrence    *domain.Recurrence
	AssignedToID  *uuid.UUID
	ClearAssignee bool
}

// ListTasksInput filters a task listing. Zero values do not constrain it.
type ListTasksInput struct {
	Search   string
	Status   *domain.TaskStatus
	Priority *domain.Priority
	Limit    int
	Offset   int
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks []*domain.Task `json:"tasks"`
	Total int            `json:"total"`
}

// TaskPreview is a dashboard section: the first few tasks plus the full count.
type TaskPreview struct {
	Tasks []*domain.Task `json:"tasks"`
	Total int            `json:"total"`
}

// DashboardSummary is the per-user overview.
type DashboardSummary struct {
	Assigned       TaskPreview `json:"assigned"`
	Created        TaskPreview `json:"created"`
	Overdue        TaskPreview `json:"overdue"`
	CompletionRate int         `json:"completion_rate"`
}

// TaskService provides the task lifecycle.
type TaskService interface {
	// Create persists a task owned by actor and notifies the assignee.
	Create(ctx context.Context, actor domain.Actor, in CreateTaskInput) (*domain.Task, error)

	// Get returns a task visible to actor.
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching in, ordered by due date.
	List(ctx context.Context, actor domain.Actor, in ListTasksInput) (*TaskPage, error)

	// Update applies a partial update permitted by the authorization policy.
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateTaskInput) (*domain.Task, error)

	// Delete removes a task. Only ADMIN may delete.
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error

	// DashboardSummary returns actor's overview.
	DashboardSummary(ctx context.Context, actor domain.Actor) (*DashboardSummary, error)

	// History returns the audit entries of a task visible to actor, newest first.
	History(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]*domain.AuditLogEntry, error)
}

// taskWriter inserts a task together with its audit entry. Both the
// lifecycle and the recurrence scheduler create tasks through it.
type taskWriter struct {
	tasks store.TaskStore
	users store.UserStore
	audit store.AuditLogStore
}

// insert must run inside a transaction.
func (w taskWriter) insert(
	ctx context.Context,
	tx *sql.Tx,
	task *domain.Task,
	action domain.AuditAction,
	actorID uuid.UUID,
) error {
	if err := w.checkAssignee(ctx, tx, task.AssignedToID); err != nil {
		return err
	}
	if err := w.tasks.WithTx(tx).Create(ctx, task); err != nil {
		return err
	}
	return w.record(ctx, tx, action, actorID, task.ID)
}

func (w taskWriter) checkAssignee(ctx context.Context, tx *sql.Tx, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}
	if _, err := w.users.WithTx(tx).GetByID(ctx, *assigneeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidAssignment, assigneeID)
		}
		return err
	}
	return nil
}

func (w taskWriter) record(
	ctx context.Context,
	tx *sql.Tx,
	action domain.AuditAction,
	actorID, taskID uuid.UUID,
) error {
	entry, err := domain.NewAuditLogEntry(action, actorID, taskID)
	if err != nil {
		return err
	}
	return w.audit.WithTx(tx).Create(ctx, entry)
}

type taskServiceImpl struct {
	taskWriter
	tx       store.Transactor
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewTaskService creates a TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tx store.Transactor,
	tasks store.TaskStore,
	users store.UserStore,
	audit store.AuditLogStore,
	notifier Notifier,
	logger *slog.Logger,
) (TaskService, error) {
	deps := []struct {
		name string
		ok   bool
	}{
		{"transactor", tx != nil},
		{"tasks store", tasks != nil},
		{"users store", users != nil},
		{"audit store", audit != nil},
		{"notifier", notifier != nil},
	}
	for _, d := range deps {
		if !d.ok {
			return nil, &TaskServiceError{
				Operation: "create_service",
				Message:   d.name + " cannot be nil",
			}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskWriter: taskWriter{tasks: tasks, users: users, audit: audit},
		tx:         tx,
		notifier:   notifier,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With(slog.String("component", "task_service")),
	}, nil
}

// Create implements TaskService.
func (s *taskServiceImpl) Create(ctx context.Context, actor domain.Actor, in CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task := domain.NewTask(actor.ID, in.Title, in.Description, in.DueDate, in.Priority)
	if in.Status != "" {
		task.Status = in.Status
	}
	if in.Recurrence != "" {
		task.Recurrence = in.Recurrence
	}
	task.AssignedToID = in.AssignedToID
	if err := task.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.insert(ctx, tx, task, domain.AuditActionTaskCreate, actor.ID)
	})
	if err != nil {
		if asSentinel(err) == nil {
			log.Error("failed to create task",
				slog.String("error", redact.Error(err)),
				slog.String("user_id", actor.ID.String()))
		}
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", actor.ID.String()))

	if task.AssignedToID != nil {
		s.notify(ctx, *task.AssignedToID, "New task assigned: "+task.Title)
	}

	return s.reload(ctx, task), nil
}

// Get implements TaskService.
func (s *taskServiceImpl) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	if err := policy.Authorize(actor, task, policy.ActionRead); err != nil {
		return nil, err
	}
	return task, nil
}

// List implements TaskService. The listing is not scoped to the actor.
func (s *taskServiceImpl) List(ctx context.Context, _ domain.Actor, in ListTasksInput) (*TaskPage, error) {
	if in.Limit < 0 {
		return nil, domain.NewValidationError("limit", "must not be negative", nil)
	}
	if in.Offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative", nil)
	}

	filter := store.TaskFilter{
		Search:   in.Search,
		Status:   in.Status,
		Priority: in.Priority,
		OrderBy:  store.OrderByDueDate,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	total, err := s.tasks.Count(ctx, filter)
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to count tasks", err)
	}
	return &TaskPage{Tasks: tasks, Total: total}, nil
}

// Update implements TaskService.
func (s *taskServiceImpl) Update(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
	in UpdateTaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	existing, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("update_task", "failed to retrieve task", err)
	}
	if err := policy.Authorize(actor, existing, policy.ActionUpdate); err != nil {
		return nil, err
	}

	updated := applyUpdate(existing, in, s.now())
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	assigneeChanged := !sameAssignee(existing.AssignedToID, updated.AssignedToID)

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if assigneeChanged {
			if err := s.checkAssignee(ctx, tx, updated.AssignedToID); err != nil {
				return err
			}
		}
		if err := s.tasks.WithTx(tx).Update(ctx, updated); err != nil {
			return err
		}
		return s.record(ctx, tx, domain.AuditActionTaskUpdate, actor.ID, updated.ID)
	})
	if err != nil {
		if asSentinel(err) == nil {
			log.Error("failed to update task",
				slog.String("error", redact.Error(err)),
				slog.String("task_id", id.String()))
		}
		return nil, NewTaskServiceError("update_task", "failed to save task", err)
	}

	log.Info("task updated",
		slog.String("task_id", id.String()),
		slog.String("user_id", actor.ID.String()))

	if assigneeChanged && updated.AssignedToID != nil {
		s.notify(ctx, *updated.AssignedToID, "Task updated: "+updated.Title)
	}

	return s.reload(ctx, updated), nil
}

// Delete implements TaskService. The role check comes before the lookup,
// so a non-ADMIN gets Forbidden even for a missing id.
func (s *taskServiceImpl) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if !policy.CanDelete(actor) {
		return fmt.Errorf("%w: delete on task not permitted for role %s", domain.ErrForbidden, actor.Role)
	}

	err := s.tx.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.tasks.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		return s.record(ctx, tx, domain.AuditActionTaskDelete, actor.ID, id)
	})
	if err != nil {
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted",
		slog.String("task_id", id.String()),
		slog.String("user_id", actor.ID.String()))
	return nil
}

// DashboardSummary implements TaskService. The sections are queried concurrently.
func (s *taskServiceImpl) DashboardSummary(ctx context.Context, actor domain.Actor) (*DashboardSummary, error) {
	now := s.now()
	done := domain.TaskStatusDone
	actorID := actor.ID

	assignedOpen := store.TaskFilter{AssignedTo: &actorID, ExcludeStatus: &done, OrderBy: store.OrderByDueDate}
	created := store.TaskFilter{CreatedBy: &actorID, OrderBy: store.OrderByCreatedDesc}
	overdue := store.TaskFilter{
		Involving:     &actorID,
		ExcludeStatus: &done,
		DueBefore:     &now,
		OrderBy:       store.OrderByDueDate,
	}

	var (
		summary       DashboardSummary
		assignedTotal int
		assignedDone  int
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		summary.Assigned, err = s.preview(ctx, assignedOpen)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		summary.Created, err = s.preview(ctx, created)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		summary.Overdue, err = s.preview(ctx, overdue)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		assignedTotal, err = s.tasks.Count(ctx, store.TaskFilter{AssignedTo: &actorID})
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		assignedDone, err = s.tasks.Count(ctx, store.TaskFilter{AssignedTo: &actorID, Status: &done})
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, NewTaskServiceError("dashboard_summary", "failed to load dashboard", err)
	}

	summary.CompletionRate = CompletionRate(assignedDone, assignedTotal)
	return &summary, nil
}

func (s *taskServiceImpl) preview(ctx context.Context, filter store.TaskFilter) (TaskPreview, error) {
	total, err := s.tasks.Count(ctx, filter)
	if err != nil {
		return TaskPreview{}, err
	}
	filter.Limit = DashboardPreviewSize
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return TaskPreview{}, err
	}
	return TaskPreview{Tasks: tasks, Total: total}, nil
}

// History implements TaskService.
func (s *taskServiceImpl) History(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
) ([]*domain.AuditLogEntry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByTask(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("task_history", "failed to list audit entries", err)
	}
	return entries, nil
}

// notify sends an in-app notification, logging rather than returning failures.
func (s *taskServiceImpl) notify(ctx context.Context, userID uuid.UUID, message string) {
	if _, err := s.notifier.Notify(ctx, userID, message, domain.NotificationTypeInApp); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("notification dispatch failed",
			slog.String("error", redact.Error(fmt.Errorf("%w: %w", domain.ErrTransientDependency, err))),
			slog.String("user_id", userID.String()))
	}
}

// reload fetches task with its references expanded. The mutation has
// already committed, so a failed read returns task unexpanded.
func (s *taskServiceImpl) reload(ctx context.Context, task *domain.Task) *domain.Task {
	fresh, err := s.tasks.GetByID(ctx, task.ID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to reload task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return task
	}
	return fresh
}

func applyUpdate(existing *domain.Task, in UpdateTaskInput, now time.Time) *domain.Task {
	updated := *existing
	if in.Title != nil {
		updated.Title = *in.Title
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.DueDate != nil {
		updated.DueDate = in.DueDate.UTC()
	}
	if in.Priority != nil {
		updated.Priority = *in.Priority
	}
	if in.Status != nil {
		updated.Status = *in.Status
	}
	if in.Recurrence != nil {
		updated.Recurrence = *in.Recurrence
	}
	switch {
	case in.ClearAssignee:
		updated.AssignedToID = nil
	case in.AssignedToID != nil:
		assignee := *in.AssignedToID
		updated.AssignedToID = &assignee
	}
	updated.UpdatedAt = now
	return &updated
}

func sameAssignee(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CompletionRate returns round(100 * done / assigned), or 0 when nothing is assigned.
func CompletionRate(done, assigned int) int {
	if assigned <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(assigned)))
}
