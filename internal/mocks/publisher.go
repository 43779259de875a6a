package mocks

import (
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/realtime"
)

// Published records one Publish invocation.
type Published struct {
	UserID uuid.UUID
	Event  realtime.Event
}

// MockPublisher records realtime events.
type MockPublisher struct {
	// Delivered is returned from Publish.
	Delivered int

	mu     sync.Mutex
	events []Published
}

// Publish records the event.
func (m *MockPublisher) Publish(userID uuid.UUID, ev realtime.Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Published{UserID: userID, Event: ev})
	return m.Delivered
}

// Events returns the recorded events.
func (m *MockPublisher) Events() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.events...)
}
