package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// NotifyCall records one Notify invocation.
type NotifyCall struct {
	UserID  uuid.UUID
	Message string
	Type    domain.NotificationType
}

// MockNotifier records notifications instead of persisting them.
type MockNotifier struct {
	NotifyFn func(ctx context.Context, userID uuid.UUID, message string, typ domain.NotificationType) (*domain.Notification, error)

	mu    sync.Mutex
	calls []NotifyCall
}

// Notify records the call and delegates to NotifyFn when set.
func (m *MockNotifier) Notify(
	ctx context.Context,
	userID uuid.UUID,
	message string,
	typ domain.NotificationType,
) (*domain.Notification, error) {
	m.mu.Lock()
	m.calls = append(m.calls, NotifyCall{UserID: userID, Message: message, Type: typ})
	m.mu.Unlock()

	if m.NotifyFn != nil {
		return m.NotifyFn(ctx, userID, message, typ)
	}
	return domain.NewNotification(userID, message, typ)
}

// Calls returns the recorded calls.
func (m *MockNotifier) Calls() []NotifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotifyCall(nil), m.calls...)
}
