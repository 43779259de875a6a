package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// taskSelect reads a task together with its creator and optional assignee.
const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status, t.recurrence,
		t.created_by_id, t.assigned_to_id, t.recurrence_parent_id, t.regenerated_at,
		t.created_at, t.updated_at,
		c.email, c.role, a.email, a.role
	FROM tasks t
	JOIN users c ON c.id = t.created_by_id
	LEFT JOIN users a ON a.id = t.assigned_to_id
`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, title, description, due_date, priority, status, recurrence,
			created_by_id, assigned_to_id, recurrence_parent_id, regenerated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.Status,
		task.Recurrence,
		task.CreatedByID,
		nullUUID(task.AssignedToID),
		nullUUID(task.RecurrenceParentID),
		nullTime(task.RegeneratedAt),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "create", "insert failed", MapError(err, nil))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("created_by_id", task.CreatedByID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := s.db.QueryRowContext(ctx, taskSelect+" WHERE t.id = $1", id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err, store.ErrTaskNotFound)
	}

	return task, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, priority = $5, status = $6,
			recurrence = $7, assigned_to_id = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.Status,
		task.Recurrence,
		nullUUID(task.AssignedToID),
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "update", "update failed", MapError(err, store.ErrTaskNotFound))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return store.NewStoreError("task", "delete", "delete failed", MapError(err, store.ErrTaskNotFound))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildTaskWhere(filter)
	query := taskSelect + where + taskOrderClause(filter.OrderBy)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, err
	}
	return tasks, nil
}

// Count implements store.TaskStore.Count
func (s *PostgresTaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	where, args := buildTaskWhere(filter)

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks t"+where, args...).Scan(&n)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count tasks",
			slog.String("error", err.Error()))
		return 0, MapError(err, nil)
	}
	return n, nil
}

// ListRegenerationCandidates implements store.TaskStore.ListRegenerationCandidates
func (s *PostgresTaskStore) ListRegenerationCandidates(ctx context.Context, limit int) ([]*domain.Task, error) {
	query := taskSelect + `
		WHERE t.status = 'DONE' AND t.recurrence <> 'NONE' AND t.regenerated_at IS NULL
		ORDER BY t.due_date ASC, t.id ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	return s.queryTasks(ctx, query, args...)
}

// MarkRegenerated implements store.TaskStore.MarkRegenerated
func (s *PostgresTaskStore) MarkRegenerated(ctx context.Context, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET regenerated_at = $2
		WHERE id = $1 AND status = 'DONE' AND recurrence <> 'NONE' AND regenerated_at IS NULL`,
		id, at)
	if err != nil {
		log.Error("failed to mark task regenerated",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err, store.ErrTaskNotFound)
	}

	err = CheckRowsAffected(result, store.ErrAlreadyRegenerated)
	if !errors.Is(err, store.ErrAlreadyRegenerated) {
		return err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return MapError(err, nil)
	}
	if !exists {
		return store.ErrTaskNotFound
	}
	return store.ErrAlreadyRegenerated
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err, nil)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, nil)
	}
	return tasks, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task                        domain.Task
		assignedTo, parent          uuid.NullUUID
		regeneratedAt               sql.NullTime
		creatorEmail, creatorRole   string
		assigneeEmail, assigneeRole sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.Priority,
		&task.Status,
		&task.Recurrence,
		&task.CreatedByID,
		&assignedTo,
		&parent,
		&regeneratedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
		&creatorEmail,
		&creatorRole,
		&assigneeEmail,
		&assigneeRole,
	)
	if err != nil {
		return nil, err
	}

	task.DueDate = task.DueDate.UTC()
	task.Creator = &domain.UserSummary{
		ID:    task.CreatedByID,
		Email: creatorEmail,
		Role:  domain.Role(creatorRole),
	}
	if assignedTo.Valid {
		id := assignedTo.UUID
		task.AssignedToID = &id
		task.Assignee = &domain.UserSummary{
			ID:    id,
			Email: assigneeEmail.String,
			Role:  domain.Role(assigneeRole.String),
		}
	}
	if parent.Valid {
		id := parent.UUID
		task.RecurrenceParentID = &id
	}
	if regeneratedAt.Valid {
		at := regeneratedAt.Time
		task.RegeneratedAt = &at
	}

	return &task, nil
}

// buildTaskWhere renders filter as a WHERE clause with positional arguments.
func buildTaskWhere(filter store.TaskFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		p := arg("%" + escapeLike(search) + "%")
		clauses = append(clauses, fmt.Sprintf("(t.title ILIKE %s OR t.description ILIKE %s)", p, p))
	}
	if filter.Status != nil {
		clauses = append(clauses, "t.status = "+arg(*filter.Status))
	}
	if filter.Priority != nil {
		clauses = append(clauses, "t.priority = "+arg(*filter.Priority))
	}
	if filter.AssignedTo != nil {
		clauses = append(clauses, "t.assigned_to_id = "+arg(*filter.AssignedTo))
	}
	if filter.CreatedBy != nil {
		clauses = append(clauses, "t.created_by_id = "+arg(*filter.CreatedBy))
	}
	if filter.Involving != nil {
		p := arg(*filter.Involving)
		clauses = append(clauses, fmt.Sprintf("(t.created_by_id = %s OR t.assigned_to_id = %s)", p, p))
	}
	if filter.ExcludeStatus != nil {
		clauses = append(clauses, "t.status <> "+arg(*filter.ExcludeStatus))
	}
	if filter.DueBefore != nil {
		clauses = append(clauses, "t.due_date < "+arg(*filter.DueBefore))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func taskOrderClause(order store.TaskOrder) string {
	if order == store.OrderByCreatedDesc {
		return " ORDER BY t.created_at DESC, t.id ASC"
	}
	return " ORDER BY t.due_date ASC, t.id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
