package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// getActor extracts the authenticated actor placed in the context by the
// auth middleware. It writes a 401 and returns false when none is present.
func getActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := shared.GetActor(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("actor not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return domain.Actor{}, false
	}
	return actor, true
}

// getPathUUID extracts and parses a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// handleActorAndPathUUID extracts both the actor and a UUID path parameter,
// writing an error response if either is missing or invalid.
func handleActorAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
) (domain.Actor, uuid.UUID, bool) {
	actor, ok := getActor(w, r)
	if !ok {
		return domain.Actor{}, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return domain.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}

// queryInt parses an optional integer query parameter. Absent returns 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", nil)
	}
	return n, nil
}
