package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// Constraint names from the embedded migrations that carry domain meaning.
const (
	constraintTaskCreatorFK      = "tasks_created_by_id_fkey"
	constraintTaskAssigneeFK     = "tasks_assigned_to_id_fkey"
	constraintTaskParentUnique   = "idx_tasks_recurrence_parent_id"
	constraintNotificationUserFK = "notifications_user_id_fkey"
	constraintAuditUserFK        = "audit_logs_user_id_fkey"
)

// constraintSubjects names the reference a foreign key protects.
var constraintSubjects = map[string]string{
	constraintTaskCreatorFK:      "creator",
	constraintTaskAssigneeFK:     "assignee",
	constraintNotificationUserFK: "recipient",
	constraintAuditUserFK:        "acting user",
}

// MapError maps a database error to a store error, wrapping the original
// so it stays visible to logs. notFound is returned for sql.ErrNoRows; pass
// nil to use store.ErrNotFound.
func MapError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		if notFound == nil {
			notFound = store.ErrNotFound
		}
		return notFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		if pgErr.ConstraintName == constraintTaskParentUnique {
			return fmt.Errorf("%w: %v", store.ErrAlreadyRegenerated, err)
		}
		return fmt.Errorf("%w: %s: %v", store.ErrDuplicate, pgErr.ConstraintName, err)
	case foreignKeyViolationCode:
		if subject, ok := constraintSubjects[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s does not exist: %v", store.ErrInvalidEntity, subject, err)
		}
		return fmt.Errorf("%w: foreign key violation (%s): %v",
			store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case checkViolationCode:
		return fmt.Errorf("%w: check constraint violation (%s): %v",
			store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: not null violation (%s): %v",
			store.ErrInvalidEntity, pgErr.ColumnName, err)
	}

	return err
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign key constraint violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected returns notFound when an UPDATE or DELETE touched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}

	return nil
}
