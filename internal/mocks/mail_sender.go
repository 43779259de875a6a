package mocks

import (
	"context"
	"sync"
)

// EmailCall records one SendAssignmentEmail invocation.
type EmailCall struct {
	Address string
	Title   string
}

// MockMailSender implements mail.Sender for testing.
type MockMailSender struct {
	SendAssignmentEmailFn func(ctx context.Context, address, title string) error

	mu    sync.Mutex
	calls []EmailCall
}

// SendAssignmentEmail records the call and delegates to SendAssignmentEmailFn when set.
func (m *MockMailSender) SendAssignmentEmail(ctx context.Context, address, title string) error {
	m.mu.Lock()
	m.calls = append(m.calls, EmailCall{Address: address, Title: title})
	m.mu.Unlock()

	if m.SendAssignmentEmailFn != nil {
		return m.SendAssignmentEmailFn(ctx, address, title)
	}
	return nil
}

// Calls returns the recorded calls.
func (m *MockMailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmailCall(nil), m.calls...)
}
