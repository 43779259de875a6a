package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	store    *mocks.MemoryStore
	tx       *mocks.MemoryTransactor
	notifier *mocks.MockNotifier
	logs     *logger.TestLogBuffer
	svc      service.TaskService
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	ms := mocks.NewMemoryStore()
	tx := ms.Transactor()
	notifier := &mocks.MockNotifier{}
	log, buf := logger.NewTestLogger()

	svc, err := service.NewTaskService(tx, ms.Tasks(), ms.Users(), ms.AuditLogs(), notifier, log)
	require.NoError(t, err)

	return &taskFixture{store: ms, tx: tx, notifier: notifier, logs: buf, svc: svc}
}

func (f *taskFixture) actor(role domain.Role) domain.Actor {
	return domain.NewActor(f.store.NewUser(role))
}

// putTask stores a task created by creator, bypassing the service.
func (f *taskFixture) putTask(creator domain.Actor, assignee *uuid.UUID, mutate ...func(*domain.Task)) *domain.Task {
	task := domain.NewTask(creator.ID, "Prepare quarterly report", "numbers and charts",
		time.Now().Add(48*time.Hour), domain.PriorityMedium)
	task.AssignedToID = assignee
	for _, m := range mutate {
		m(task)
	}
	f.store.PutTask(task)
	return task
}

func ptr[T any](v T) *T {
	return &v
}

func validCreateInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:       "Write launch checklist",
		Description: "cover rollout and rollback",
		DueDate:     time.Now().Add(72 * time.Hour),
		Priority:    domain.PriorityHigh,
	}
}
