package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Error handling principles:
// 1. Service methods return domain sentinels (domain.ErrNotFound, domain.ErrForbidden,
//    domain.ErrInvalidAssignment, domain.ErrValidation) for expected conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to HTTP status codes

// TaskServiceError wraps unexpected errors from the task and recurrence services.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task", "delete_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// Known sentinel errors are returned without wrapping.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if sentinel := asSentinel(err); sentinel != nil {
		return sentinel
	}
	return &TaskServiceError{Operation: operation, Message: message, Err: err}
}

// NotificationServiceError wraps unexpected errors from the notification service.
type NotificationServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for NotificationServiceError.
func (e *NotificationServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notification service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("notification service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *NotificationServiceError) Unwrap() error {
	return e.Err
}

// NewNotificationServiceError creates a new NotificationServiceError.
// Known sentinel errors are returned without wrapping.
func NewNotificationServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if sentinel := asSentinel(err); sentinel != nil {
		return sentinel
	}
	return &NotificationServiceError{Operation: operation, Message: message, Err: err}
}

// asSentinel returns err translated to a domain sentinel, or nil when err
// is unexpected. Domain errors pass through unchanged so validation details
// survive; store not-found errors become domain.ErrNotFound.
func asSentinel(err error) error {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrInvalidAssignment),
		errors.Is(err, domain.ErrValidation):
		return err
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return nil
}
