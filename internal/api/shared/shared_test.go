package shared

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	id := GetTraceID(traced)
	assert.Len(t, id, TraceIDLength)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)

	assert.NotEqual(t, id, GetTraceID(SetTraceID(ctx)))
	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 42)))
}

func TestActorContext(t *testing.T) {
	t.Parallel()

	_, ok := GetActor(context.Background())
	assert.False(t, ok)

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleManager}
	ctx := WithActor(context.Background(), actor)

	got, ok := GetActor(ctx)
	require.True(t, ok)
	assert.Equal(t, actor, got)

	userID, ok := GetUserID(ctx)
	require.True(t, ok)
	assert.Equal(t, actor.ID, userID)

	_, ok = GetActor(WithActor(context.Background(), domain.Actor{}))
	assert.False(t, ok, "nil actor ID is not authenticated")
}

type sampleRequest struct {
	Title    string `json:"title" validate:"required,min=3"`
	Priority string `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"title":"abc","priority":"LOW"}`, false},
		{"malformed", `{"title":"abc",}`, true},
		{"empty", ``, true},
		{"unknown field", `{"title":"abc","owner":"x"}`, true},
		{"trailing object", `{"title":"abc"}{"title":"def"}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var got sampleRequest
			err := DecodeJSON(req, &got)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "abc", got.Title)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(&sampleRequest{Title: "abc", Priority: "HIGH"}))

	err := ValidateRequest(&sampleRequest{Title: "ab", Priority: "HIGH"})
	require.Error(t, err)
	assert.Equal(t, "Invalid title: too short", DescribeValidationError(err))

	err = ValidateRequest(&sampleRequest{Title: "abc", Priority: "URGENT"})
	assert.Equal(t, "Invalid priority: must be one of LOW MEDIUM HIGH", DescribeValidationError(err))

	assert.Equal(t, "Validation error", DescribeValidationError(errors.New("other")))
}

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	w := httptest.NewRecorder()
	RespondWithJSON(w, req, http.StatusCreated, map[string]int{"count": 2})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	w = httptest.NewRecorder()
	RespondWithJSON(w, req, http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		elevate  bool
		wantLvl  string
		wantBody string
	}{
		{"server error", http.StatusInternalServerError, false, "ERROR", "Something failed"},
		{"client error", http.StatusBadRequest, false, "DEBUG", "Bad input"},
		{"elevated client error", http.StatusUnauthorized, true, "WARN", "Invalid token"},
		{"rate limited", http.StatusTooManyRequests, false, "WARN", "Slow down"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, buf := logger.NewTestLogger()
			ctx := context.WithValue(context.Background(), TraceIDKey, "trace-123")
			ctx = logger.WithLogger(ctx, log)
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			cause := errors.New("dial postgres://admin:hunter2@db:5432/tasks failed")
			if tc.elevate {
				RespondWithErrorAndLog(w, req, tc.status, tc.wantBody, cause, WithElevatedLogLevel())
			} else {
				RespondWithErrorAndLog(w, req, tc.status, tc.wantBody, cause)
			}

			assert.Equal(t, tc.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantBody, resp.Error)
			assert.Equal(t, "trace-123", resp.TraceID)
			assert.NotContains(t, w.Body.String(), "hunter2")

			entries, err := buf.GetLogEntries()
			require.NoError(t, err)
			require.NotEmpty(t, entries)
			last := entries[len(entries)-1]
			assert.Equal(t, tc.wantLvl, last["level"])
			assert.Equal(t, "*errors.errorString", last["error_type"])
			assert.NotContains(t, buf.String(), "hunter2")
		})
	}
}
