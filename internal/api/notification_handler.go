package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// NotificationHandler handles notification-related HTTP requests.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if notifications == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("notifications cannot be nil for NotificationHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for NotificationHandler")
	}

	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// ListNotifications handles GET /notifications requests.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := h.notifications.GetNotifications(r.Context(), actor.ID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NotificationListResponse{Notifications: list})
}

// UnreadCount handles GET /notifications/unread-count requests.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.UnreadCount(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to count notifications")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UnreadCountResponse{Unread: n})
}

// MarkRead handles PUT /notifications/{id}/read requests.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := handleActorAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update notification")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, n)
}
