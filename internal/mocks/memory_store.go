package mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// MemoryStore keeps users, tasks, audit entries and notifications in memory
// and enforces the same references the database schema does.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*domain.User
	tasks         map[uuid.UUID]*domain.Task
	audit         []*domain.AuditLogEntry
	notifications map[uuid.UUID]*domain.Notification

	// Failure injection. A non-nil error returned by a hook aborts the call.
	CreateTaskFn         func(ctx context.Context, task *domain.Task) error
	UpdateTaskFn         func(ctx context.Context, task *domain.Task) error
	DeleteTaskFn         func(ctx context.Context, id uuid.UUID) error
	MarkRegeneratedFn    func(ctx context.Context, id uuid.UUID) error
	CreateAuditFn        func(ctx context.Context, entry *domain.AuditLogEntry) error
	CreateNotificationFn func(ctx context.Context, n *domain.Notification) error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uuid.UUID]*domain.User),
		tasks:         make(map[uuid.UUID]*domain.Task),
		notifications: make(map[uuid.UUID]*domain.Notification),
	}
}

// AddUser registers a user.
func (m *MemoryStore) AddUser(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
}

// NewUser creates and registers a user with the given role.
func (m *MemoryStore) NewUser(role domain.Role) *domain.User {
	now := time.Now().UTC()
	id := uuid.New()
	u := &domain.User{
		ID:        id,
		Email:     fmt.Sprintf("%s-%s@example.com", strings.ToLower(string(role)), id.String()[:8]),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.AddUser(u)
	return u
}

// PutTask stores a task directly, bypassing validation and hooks.
func (m *MemoryStore) PutTask(t *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = cloneTask(t)
}

// PutAuditEntry stores an audit entry directly.
func (m *MemoryStore) PutAuditEntry(e *domain.AuditLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.audit = append(m.audit, &cp)
}

// TaskCount returns the number of stored tasks.
func (m *MemoryStore) TaskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// AllTasks returns copies of every stored task, ordered by due date.
func (m *MemoryStore) AllTasks() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, cloneTask(t))
	}
	sortTasks(out, store.OrderByDueDate)
	return out
}

// AuditEntries returns copies of every stored audit entry in insertion order.
func (m *MemoryStore) AuditEntries() []*domain.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.AuditLogEntry, len(m.audit))
	for i, e := range m.audit {
		cp := *e
		out[i] = &cp
	}
	return out
}

// AllNotifications returns copies of every stored notification, newest first.
func (m *MemoryStore) AllNotifications() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsLocked(func(*domain.Notification) bool { return true })
}

// Tasks returns a store.TaskStore view.
func (m *MemoryStore) Tasks() store.TaskStore { return &memoryTaskStore{m: m} }

// Users returns a store.UserStore view.
func (m *MemoryStore) Users() store.UserStore { return &memoryUserStore{m: m} }

// AuditLogs returns a store.AuditLogStore view.
func (m *MemoryStore) AuditLogs() store.AuditLogStore { return &memoryAuditStore{m: m} }

// Notifications returns a store.NotificationStore view.
func (m *MemoryStore) Notifications() store.NotificationStore {
	return &memoryNotificationStore{m: m}
}

// Transactor returns a store.Transactor bound to this store.
func (m *MemoryStore) Transactor() *MemoryTransactor { return &MemoryTransactor{m: m} }

type snapshot struct {
	users         map[uuid.UUID]*domain.User
	tasks         map[uuid.UUID]*domain.Task
	audit         []*domain.AuditLogEntry
	notifications map[uuid.UUID]*domain.Notification
}

// Stored values are replaced, never mutated, so shallow copies are enough.
func (m *MemoryStore) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot{
		users:         maps.Clone(m.users),
		tasks:         maps.Clone(m.tasks),
		audit:         slices.Clone(m.audit),
		notifications: maps.Clone(m.notifications),
	}
}

func (m *MemoryStore) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = s.users
	m.tasks = s.tasks
	m.audit = s.audit
	m.notifications = s.notifications
}

// MemoryTransactor implements store.Transactor over a MemoryStore. The
// function receives a nil *sql.Tx; the memory stores ignore it.
type MemoryTransactor struct {
	m *MemoryStore

	// CommitErr, when set, is returned after fn succeeds and the changes are discarded.
	CommitErr error

	mu       sync.Mutex
	Begun    int
	Rollback int
}

var _ store.Transactor = (*MemoryTransactor)(nil)

// RunInTransaction implements store.Transactor.
func (t *MemoryTransactor) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	t.mu.Lock()
	t.Begun++
	t.mu.Unlock()

	snap := t.m.snapshot()
	err := fn(ctx, nil)
	if err == nil && t.CommitErr != nil {
		err = fmt.Errorf("%w: commit: %w", store.ErrTransactionFailed, t.CommitErr)
	}
	if err != nil {
		t.m.restore(snap)
		t.mu.Lock()
		t.Rollback++
		t.mu.Unlock()
		return err
	}
	return nil
}

// --- users ---

type memoryUserStore struct{ m *MemoryStore }

func (s *memoryUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memoryUserStore) WithTx(*sql.Tx) store.UserStore { return s }

// --- tasks ---

type memoryTaskStore struct{ m *MemoryStore }

func (s *memoryTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

func (s *memoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if s.m.CreateTaskFn != nil {
		if err := s.m.CreateTaskFn(ctx, task); err != nil {
			return err
		}
	}
	if err := task.Validate(); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.tasks[task.ID]; ok {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}
	if err := s.m.checkRefsLocked(task); err != nil {
		return err
	}
	if task.RecurrenceParentID != nil {
		for _, t := range s.m.tasks {
			if t.RecurrenceParentID != nil && *t.RecurrenceParentID == *task.RecurrenceParentID {
				return store.ErrAlreadyRegenerated
			}
		}
	}
	s.m.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *memoryTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return s.m.expandLocked(t), nil
}

func (s *memoryTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if s.m.UpdateTaskFn != nil {
		if err := s.m.UpdateTaskFn(ctx, task); err != nil {
			return err
		}
	}
	if err := task.Validate(); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	existing, ok := s.m.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if err := s.m.checkRefsLocked(task); err != nil {
		return err
	}
	updated := cloneTask(task)
	updated.CreatedByID = existing.CreatedByID
	updated.CreatedAt = existing.CreatedAt
	updated.RecurrenceParentID = existing.RecurrenceParentID
	updated.RegeneratedAt = existing.RegeneratedAt
	s.m.tasks[task.ID] = updated
	return nil
}

func (s *memoryTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s.m.DeleteTaskFn != nil {
		if err := s.m.DeleteTaskFn(ctx, id); err != nil {
			return err
		}
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.m.tasks, id)
	for tid, t := range s.m.tasks {
		if t.RecurrenceParentID != nil && *t.RecurrenceParentID == id {
			cp := cloneTask(t)
			cp.RecurrenceParentID = nil
			s.m.tasks[tid] = cp
		}
	}
	return nil
}

func (s *memoryTaskStore) List(_ context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	matched := s.m.filterLocked(filter)
	sortTasks(matched, filter.OrderBy)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = matched[:0]
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*domain.Task, 0, len(matched))
	for _, t := range matched {
		out = append(out, s.m.expandLocked(t))
	}
	return out, nil
}

func (s *memoryTaskStore) Count(_ context.Context, filter store.TaskFilter) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return len(s.m.filterLocked(filter)), nil
}

func (s *memoryTaskStore) ListRegenerationCandidates(_ context.Context, limit int) ([]*domain.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var out []*domain.Task
	for _, t := range s.m.tasks {
		if t.Status == domain.TaskStatusDone && t.Recurrence != domain.RecurrenceNone && t.RegeneratedAt == nil {
			out = append(out, t)
		}
	}
	sortTasks(out, store.OrderByDueDate)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i, t := range out {
		out[i] = s.m.expandLocked(t)
	}
	return out, nil
}

func (s *memoryTaskStore) MarkRegenerated(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.m.MarkRegeneratedFn != nil {
		if err := s.m.MarkRegeneratedFn(ctx, id); err != nil {
			return err
		}
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.RegeneratedAt != nil || t.Status != domain.TaskStatusDone || t.Recurrence == domain.RecurrenceNone {
		return store.ErrAlreadyRegenerated
	}
	cp := cloneTask(t)
	cp.RegeneratedAt = &at
	s.m.tasks[id] = cp
	return nil
}

func (m *MemoryStore) checkRefsLocked(task *domain.Task) error {
	if _, ok := m.users[task.CreatedByID]; !ok {
		return fmt.Errorf("%w: creator does not exist", store.ErrInvalidEntity)
	}
	if task.AssignedToID != nil {
		if _, ok := m.users[*task.AssignedToID]; !ok {
			return fmt.Errorf("%w: assignee does not exist", store.ErrInvalidEntity)
		}
	}
	return nil
}

func (m *MemoryStore) expandLocked(t *domain.Task) *domain.Task {
	cp := cloneTask(t)
	if u, ok := m.users[t.CreatedByID]; ok {
		cp.Creator = u.Summary()
	}
	if t.AssignedToID != nil {
		if u, ok := m.users[*t.AssignedToID]; ok {
			cp.Assignee = u.Summary()
		}
	}
	return cp
}

func (m *MemoryStore) filterLocked(f store.TaskFilter) []*domain.Task {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []*domain.Task
	for _, t := range m.tasks {
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		if f.AssignedTo != nil && !t.IsAssignedTo(*f.AssignedTo) {
			continue
		}
		if f.CreatedBy != nil && !t.IsCreatedBy(*f.CreatedBy) {
			continue
		}
		if f.Involving != nil && !t.IsCreatedBy(*f.Involving) && !t.IsAssignedTo(*f.Involving) {
			continue
		}
		if f.ExcludeStatus != nil && t.Status == *f.ExcludeStatus {
			continue
		}
		if f.DueBefore != nil && !t.DueDate.Before(*f.DueBefore) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func sortTasks(tasks []*domain.Task, order store.TaskOrder) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if order == store.OrderByCreatedDesc {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		} else if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.ID.String() < b.ID.String()
	})
}

func cloneTask(t *domain.Task) *domain.Task {
	cp := *t
	if t.AssignedToID != nil {
		id := *t.AssignedToID
		cp.AssignedToID = &id
	}
	if t.RecurrenceParentID != nil {
		id := *t.RecurrenceParentID
		cp.RecurrenceParentID = &id
	}
	if t.RegeneratedAt != nil {
		at := *t.RegeneratedAt
		cp.RegeneratedAt = &at
	}
	cp.Creator = nil
	cp.Assignee = nil
	return &cp
}

// --- audit ---

type memoryAuditStore struct{ m *MemoryStore }

func (s *memoryAuditStore) WithTx(*sql.Tx) store.AuditLogStore { return s }

func (s *memoryAuditStore) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	if s.m.CreateAuditFn != nil {
		if err := s.m.CreateAuditFn(ctx, entry); err != nil {
			return err
		}
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[entry.UserID]; !ok {
		return fmt.Errorf("%w: acting user does not exist", store.ErrInvalidEntity)
	}
	cp := *entry
	s.m.audit = append(s.m.audit, &cp)
	return nil
}

func (s *memoryAuditStore) ListByTask(_ context.Context, taskID uuid.UUID) ([]*domain.AuditLogEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	out := make([]*domain.AuditLogEntry, 0)
	for _, e := range s.m.audit {
		if e.TaskID == taskID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryAuditStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	kept := s.m.audit[:0:0]
	var removed int64
	for _, e := range s.m.audit {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.m.audit = kept
	return removed, nil
}

// --- notifications ---

type memoryNotificationStore struct{ m *MemoryStore }

func (s *memoryNotificationStore) WithTx(*sql.Tx) store.NotificationStore { return s }

func (s *memoryNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if s.m.CreateNotificationFn != nil {
		if err := s.m.CreateNotificationFn(ctx, n); err != nil {
			return err
		}
	}
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[n.UserID]; !ok {
		return fmt.Errorf("%w: recipient does not exist", store.ErrInvalidEntity)
	}
	cp := *n
	s.m.notifications[n.ID] = &cp
	return nil
}

func (s *memoryNotificationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n, ok := s.m.notifications[id]
	if !ok {
		return nil, store.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *memoryNotificationStore) MarkRead(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n, ok := s.m.notifications[id]
	if !ok {
		return nil, store.ErrNotificationNotFound
	}
	cp := *n
	cp.Read = true
	s.m.notifications[id] = &cp
	out := cp
	return &out, nil
}

func (s *memoryNotificationStore) ListByUser(
	_ context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.Notification, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := s.m.notificationsLocked(func(n *domain.Notification) bool { return n.UserID == userID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryNotificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := 0
	for _, x := range s.m.notifications {
		if x.UserID == userID && !x.Read {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) notificationsLocked(keep func(*domain.Notification) bool) []*domain.Notification {
	out := make([]*domain.Notification, 0)
	for _, n := range m.notifications {
		if keep(n) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ErrInjected is a convenience error for failure-injection hooks.
var ErrInjected = errors.New("injected failure")

var (
	_ store.TaskStore         = (*memoryTaskStore)(nil)
	_ store.UserStore         = (*memoryUserStore)(nil)
	_ store.AuditLogStore     = (*memoryAuditStore)(nil)
	_ store.NotificationStore = (*memoryNotificationStore)(nil)
)
