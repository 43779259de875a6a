// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when input or an entity fails validation.
	// It is usually wrapped by a ValidationError naming the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrNotFound is returned when a referenced task, user or notification does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the authorization policy denies an action.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidAssignment is returned when an assignee does not resolve to an existing user.
	ErrInvalidAssignment = errors.New("assignee does not exist")

	// ErrTransientDependency marks a failed best-effort side effect (email, realtime push).
	// It is logged at the dispatch boundary and never returned to callers of mutations.
	ErrTransientDependency = errors.New("transient dependency failure")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error so that errors.Is(err, ErrValidation) holds.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for field. A nil err defaults to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}
