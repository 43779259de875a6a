package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/realtime"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Notification list limits.
const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// Publisher pushes events to a user's realtime channel and returns how many
// connections received them. An empty channel is not an error.
type Publisher interface {
	Publish(userID uuid.UUID, ev realtime.Event) int
}

// NotificationService persists per-user notifications and pushes them to
// connected clients.
type NotificationService interface {
	// Notify persists a notification for userID and publishes notification:new.
	Notify(ctx context.Context, userID uuid.UUID, message string, typ domain.NotificationType) (*domain.Notification, error)

	// MarkRead flags a notification owned by actor as read and publishes notification:read.
	// Marking an already-read notification succeeds.
	MarkRead(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Notification, error)

	// GetNotifications returns userID's notifications, newest first.
	// A limit of zero or less uses DefaultNotificationLimit; larger values are capped at MaxNotificationLimit.
	GetNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error)

	// UnreadCount returns how many of userID's notifications are unread.
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type notificationServiceImpl struct {
	notifications store.NotificationStore
	publisher     Publisher
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService.
// It returns an error if any of the required dependencies are nil.
func NewNotificationService(
	notifications store.NotificationStore,
	publisher Publisher,
	logger *slog.Logger,
) (NotificationService, error) {
	if notifications == nil {
		return nil, &NotificationServiceError{
			Operation: "create_service",
			Message:   "notifications store cannot be nil",
		}
	}
	if publisher == nil {
		return nil, &NotificationServiceError{
			Operation: "create_service",
			Message:   "publisher cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &notificationServiceImpl{
		notifications: notifications,
		publisher:     publisher,
		logger:        logger.With(slog.String("component", "notification_service")),
	}, nil
}

// Notify implements NotificationService.
func (s *notificationServiceImpl) Notify(
	ctx context.Context,
	userID uuid.UUID,
	message string,
	typ domain.NotificationType,
) (*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	n, err := domain.NewNotification(userID, message, typ)
	if err != nil {
		return nil, domain.NewValidationError("notification", err.Error(), nil)
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		log.Error("failed to persist notification",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewNotificationServiceError("notify", "failed to save notification", err)
	}

	delivered := s.publisher.Publish(userID, realtime.Event{Type: realtime.EventNotificationNew, Payload: n})
	log.Debug("notification dispatched",
		slog.String("notification_id", n.ID.String()),
		slog.String("user_id", userID.String()),
		slog.Int("delivered", delivered))

	return n, nil
}

// MarkRead implements NotificationService.
func (s *notificationServiceImpl) MarkRead(
	ctx context.Context,
	actor domain.Actor,
	id uuid.UUID,
) (*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	existing, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to load notification",
				slog.String("error", err.Error()),
				slog.String("notification_id", id.String()))
		}
		return nil, NewNotificationServiceError("mark_read", "failed to load notification", err)
	}

	if !existing.BelongsTo(actor.ID) {
		return nil, fmt.Errorf("%w: notification belongs to another user", domain.ErrForbidden)
	}

	n, err := s.notifications.MarkRead(ctx, id)
	if err != nil {
		log.Error("failed to mark notification read",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return nil, NewNotificationServiceError("mark_read", "failed to update notification", err)
	}

	s.publisher.Publish(n.UserID, realtime.Event{Type: realtime.EventNotificationRead, Payload: n})
	return n, nil
}

// GetNotifications implements NotificationService.
func (s *notificationServiceImpl) GetNotifications(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultNotificationLimit
	case limit > MaxNotificationLimit:
		limit = MaxNotificationLimit
	}

	list, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewNotificationServiceError("get_notifications", "failed to list notifications", err)
	}
	return list, nil
}

// UnreadCount implements NotificationService.
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, NewNotificationServiceError("unread_count", "failed to count notifications", err)
	}
	return count, nil
}
