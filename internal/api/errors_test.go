package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"invalid token", fmt.Errorf("parse: %w", auth.ErrInvalidToken), http.StatusUnauthorized, "Invalid token"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "You are not allowed to perform this action"},
		{"not found", fmt.Errorf("%w: task", domain.ErrNotFound), http.StatusNotFound, "Resource not found"},
		{"invalid assignment", domain.ErrInvalidAssignment, http.StatusUnprocessableEntity, "Assigned user does not exist"},
		{"validation", domain.NewValidationError("title", "is required", nil), http.StatusBadRequest, "Invalid title: is required"},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest, "Validation error"},
		{
			"service failure",
			service.NewTaskServiceError("update_task", "failed", errors.New("pq: password=hunter2")),
			http.StatusInternalServerError,
			"An unexpected error occurred",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantStatus, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.wantMessage, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)

	rec := httptest.NewRecorder()
	HandleAPIError(rec, req, errors.New("dial tcp: secret-host"), "Failed to list tasks")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[shared.ErrorResponse](t, rec)
	assert.Equal(t, "Failed to list tasks", resp.Error)
	assert.NotContains(t, rec.Body.String(), "secret-host")

	rec = httptest.NewRecorder()
	HandleAPIError(rec, req, domain.ErrForbidden, "Failed to list tasks")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You are not allowed to perform this action", decodeBody[shared.ErrorResponse](t, rec).Error)
}
