package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskService(t *testing.T) {
	t.Parallel()

	ms := mocks.NewMemoryStore()
	notifier := &mocks.MockNotifier{}

	tests := []struct {
		name     string
		build    func() (service.TaskService, error)
		errorMsg string
	}{
		{
			name: "nil transactor",
			build: func() (service.TaskService, error) {
				return service.NewTaskService(nil, ms.Tasks(), ms.Users(), ms.AuditLogs(), notifier, nil)
			},
			errorMsg: "transactor",
		},
		{
			name: "nil tasks store",
			build: func() (service.TaskService, error) {
				return service.NewTaskService(ms.Transactor(), nil, ms.Users(), ms.AuditLogs(), notifier, nil)
			},
			errorMsg: "tasks store",
		},
		{
			name: "nil notifier",
			build: func() (service.TaskService, error) {
				return service.NewTaskService(ms.Transactor(), ms.Tasks(), ms.Users(), ms.AuditLogs(), nil, nil)
			},
			errorMsg: "notifier",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := tc.build()
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tc.errorMsg)

			var svcErr *service.TaskServiceError
			assert.True(t, errors.As(err, &svcErr))
		})
	}

	t.Run("nil logger uses default", func(t *testing.T) {
		svc, err := service.NewTaskService(ms.Transactor(), ms.Tasks(), ms.Users(), ms.AuditLogs(), notifier, nil)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})
}

func TestTaskService_Create(t *testing.T) {
	t.Parallel()

	t.Run("assigned task notifies assignee and is audited", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleUser)
		assignee := f.actor(domain.RoleUser)

		in := validCreateInput()
		in.AssignedToID = &assignee.ID

		task, err := f.svc.Create(context.Background(), creator, in)
		require.NoError(t, err)

		assert.Equal(t, creator.ID, task.CreatedByID)
		assert.Equal(t, domain.TaskStatusTodo, task.Status)
		assert.Equal(t, domain.RecurrenceNone, task.Recurrence)
		require.NotNil(t, task.Creator)
		require.NotNil(t, task.Assignee)
		assert.Equal(t, creator.ID, task.Creator.ID)
		assert.Equal(t, assignee.ID, task.Assignee.ID)

		calls := f.notifier.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, assignee.ID, calls[0].UserID)
		assert.Equal(t, "New task assigned: Write launch checklist", calls[0].Message)
		assert.Equal(t, domain.NotificationTypeInApp, calls[0].Type)

		entries := f.store.AuditEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, domain.AuditActionTaskCreate, entries[0].Action)
		assert.Equal(t, creator.ID, entries[0].UserID)
		assert.Equal(t, task.ID, entries[0].TaskID)
	})

	t.Run("unassigned task sends no notification", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		_, err := f.svc.Create(context.Background(), f.actor(domain.RoleUser), validCreateInput())
		require.NoError(t, err)
		assert.Empty(t, f.notifier.Calls())
	})

	t.Run("explicit status and recurrence are kept", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		in := validCreateInput()
		in.Status = domain.TaskStatusInProgress
		in.Recurrence = domain.RecurrenceWeekly

		task, err := f.svc.Create(context.Background(), f.actor(domain.RoleUser), in)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, task.Status)
		assert.Equal(t, domain.RecurrenceWeekly, task.Recurrence)
	})

	t.Run("validation errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			mutate func(*service.CreateTaskInput)
			field  string
		}{
			{"short title", func(in *service.CreateTaskInput) { in.Title = "ab" }, "title"},
			{"missing due date", func(in *service.CreateTaskInput) { in.DueDate = time.Time{} }, "due_date"},
			{"unknown priority", func(in *service.CreateTaskInput) { in.Priority = "URGENT" }, "priority"},
			{"unknown status", func(in *service.CreateTaskInput) { in.Status = "BLOCKED" }, "status"},
			{"unknown recurrence", func(in *service.CreateTaskInput) { in.Recurrence = "HOURLY" }, "recurrence"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				f := newTaskFixture(t)
				in := validCreateInput()
				tc.mutate(&in)

				_, err := f.svc.Create(context.Background(), f.actor(domain.RoleUser), in)
				require.Error(t, err)

				var validationErr *domain.ValidationError
				require.True(t, errors.As(err, &validationErr))
				assert.Equal(t, tc.field, validationErr.Field)
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Zero(t, f.store.TaskCount())
				assert.Empty(t, f.store.AuditEntries())
			})
		}
	})

	t.Run("unknown assignee is rejected", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		in := validCreateInput()
		in.AssignedToID = ptr(uuid.New())

		_, err := f.svc.Create(context.Background(), f.actor(domain.RoleUser), in)
		assert.ErrorIs(t, err, domain.ErrInvalidAssignment)
		assert.Zero(t, f.store.TaskCount())
		assert.Empty(t, f.notifier.Calls())
	})

	t.Run("audit failure rolls back the task", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.store.CreateAuditFn = func(context.Context, *domain.AuditLogEntry) error { return mocks.ErrInjected }

		_, err := f.svc.Create(context.Background(), f.actor(domain.RoleUser), validCreateInput())
		require.Error(t, err)

		var svcErr *service.TaskServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, "create_task", svcErr.Operation)
		assert.ErrorIs(t, err, mocks.ErrInjected)
		assert.Zero(t, f.store.TaskCount())
		assert.Equal(t, 1, f.tx.Rollback)
	})

	t.Run("notification failure does not fail the mutation", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		f.notifier.NotifyFn = func(context.Context, uuid.UUID, string, domain.NotificationType) (*domain.Notification, error) {
			return nil, mocks.ErrInjected
		}
		assignee := f.actor(domain.RoleUser)
		in := validCreateInput()
		in.AssignedToID = &assignee.ID

		task, err := f.svc.Create(context.Background(), f.actor(domain.RoleUser), in)
		require.NoError(t, err)
		assert.NotNil(t, task)
		assert.Equal(t, 1, f.store.TaskCount())
		assert.True(t, f.logs.Contains("notification dispatch failed"))
	})
}

func TestTaskService_Get(t *testing.T) {
	t.Parallel()

	f := newTaskFixture(t)
	creator := f.actor(domain.RoleUser)
	assignee := f.actor(domain.RoleUser)
	task := f.putTask(creator, &assignee.ID)

	tests := []struct {
		name    string
		actor   domain.Actor
		id      uuid.UUID
		wantErr error
	}{
		{"creator", creator, task.ID, nil},
		{"assignee", assignee, task.ID, nil},
		{"stranger", f.actor(domain.RoleUser), task.ID, domain.ErrForbidden},
		{"admin stranger", f.actor(domain.RoleAdmin), task.ID, domain.ErrForbidden},
		{"missing", creator, uuid.New(), domain.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.Get(context.Background(), tc.actor, tc.id)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, task.ID, got.ID)
		})
	}
}

func TestTaskService_List(t *testing.T) {
	t.Parallel()

	f := newTaskFixture(t)
	creator := f.actor(domain.RoleUser)
	now := time.Now().UTC()

	late := f.putTask(creator, nil, func(task *domain.Task) {
		task.Title = "Deploy Billing service"
		task.DueDate = now.Add(72 * time.Hour)
	})
	early := f.putTask(creator, nil, func(task *domain.Task) {
		task.Title = "Review docs"
		task.Description = "billing section"
		task.DueDate = now.Add(24 * time.Hour)
		task.Priority = domain.PriorityHigh
	})
	f.putTask(creator, nil, func(task *domain.Task) {
		task.Title = "Water plants"
		task.Status = domain.TaskStatusDone
	})

	t.Run("search matches title or description case-insensitively", func(t *testing.T) {
		page, err := f.svc.List(context.Background(), creator, service.ListTasksInput{Search: "BILLING"})
		require.NoError(t, err)
		require.Len(t, page.Tasks, 2)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, early.ID, page.Tasks[0].ID, "ordered by due date")
		assert.Equal(t, late.ID, page.Tasks[1].ID)
	})

	t.Run("filters combine", func(t *testing.T) {
		page, err := f.svc.List(context.Background(), creator, service.ListTasksInput{
			Search:   "billing",
			Priority: ptr(domain.PriorityHigh),
			Status:   ptr(domain.TaskStatusTodo),
		})
		require.NoError(t, err)
		require.Len(t, page.Tasks, 1)
		assert.Equal(t, early.ID, page.Tasks[0].ID)
	})

	t.Run("not scoped to the actor", func(t *testing.T) {
		page, err := f.svc.List(context.Background(), f.actor(domain.RoleUser), service.ListTasksInput{})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("paging keeps the total", func(t *testing.T) {
		page, err := f.svc.List(context.Background(), creator, service.ListTasksInput{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, page.Tasks, 1)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("negative limit is invalid", func(t *testing.T) {
		_, err := f.svc.List(context.Background(), creator, service.ListTasksInput{Limit: -1})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestTaskService_Update(t *testing.T) {
	t.Parallel()

	t.Run("allowed roles", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			actor func(f *taskFixture, creator domain.Actor) domain.Actor
		}{
			{"creator", func(_ *taskFixture, creator domain.Actor) domain.Actor { return creator }},
			{"manager", func(f *taskFixture, _ domain.Actor) domain.Actor { return f.actor(domain.RoleManager) }},
			{"admin", func(f *taskFixture, _ domain.Actor) domain.Actor { return f.actor(domain.RoleAdmin) }},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				f := newTaskFixture(t)
				creator := f.actor(domain.RoleUser)
				task := f.putTask(creator, nil)
				actor := tc.actor(f, creator)

				got, err := f.svc.Update(context.Background(), actor, task.ID, service.UpdateTaskInput{
					Title:  ptr("Prepare annual report"),
					Status: ptr(domain.TaskStatusInProgress),
				})
				require.NoError(t, err)
				assert.Equal(t, "Prepare annual report", got.Title)
				assert.Equal(t, domain.TaskStatusInProgress, got.Status)
				assert.Equal(t, task.Description, got.Description, "absent fields unchanged")
				assert.Equal(t, creator.ID, got.CreatedByID)

				entries := f.store.AuditEntries()
				require.Len(t, entries, 1)
				assert.Equal(t, domain.AuditActionTaskUpdate, entries[0].Action)
				assert.Equal(t, actor.ID, entries[0].UserID)
			})
		}
	})

	t.Run("user who is not the creator is forbidden", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleUser)
		assignee := f.actor(domain.RoleUser)
		task := f.putTask(creator, &assignee.ID)

		_, err := f.svc.Update(context.Background(), assignee, task.ID, service.UpdateTaskInput{Title: ptr("Hijacked")})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, f.store.AuditEntries())
	})

	t.Run("missing task", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		_, err := f.svc.Update(context.Background(), f.actor(domain.RoleAdmin), uuid.New(), service.UpdateTaskInput{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("new assignee is notified", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleUser)
		task := f.putTask(creator, nil)
		assignee := f.actor(domain.RoleUser)

		got, err := f.svc.Update(context.Background(), creator, task.ID, service.UpdateTaskInput{AssignedToID: &assignee.ID})
		require.NoError(t, err)
		require.NotNil(t, got.Assignee)
		assert.Equal(t, assignee.ID, got.Assignee.ID)

		calls := f.notifier.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, assignee.ID, calls[0].UserID)
		assert.Equal(t, "Task updated: Prepare quarterly report", calls[0].Message)
	})

	t.Run("unchanged assignee is not notified", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleUser)
		assignee := f.actor(domain.RoleUser)
		task := f.putTask(creator, &assignee.ID)

		_, err := f.svc.Update(context.Background(), creator, task.ID, service.UpdateTaskInput{
			AssignedToID: &assignee.ID,
			Priority:     ptr(domain.PriorityLow),
		})
		require.NoError(t, err)
		assert.Empty(t, f.notifier.Calls())
	})

	t.Run("assignee can be cleared", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleUser)
		assignee := f.actor(domain.RoleUser)
		task := f.putTask(creator, &assignee.ID)

		got, err := f.svc.Update(context.Background(), creator, task.ID, service.UpdateTaskInput{ClearAssignee: true})
		require.NoError(t, err)
		assert.Nil(t, got.AssignedToID)
		assert.Nil(t, got.Assignee)
		assert.Empty(t, f.notifier.Calls())
	})

	t.Run("unknown assignee is rejected", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleUser)
		task := f.putTask(creator, nil)

		_, err := f.svc.Update(context.Background(), creator, task.ID, service.UpdateTaskInput{AssignedToID: ptr(uuid.New())})
		assert.ErrorIs(t, err, domain.ErrInvalidAssignment)
		assert.Empty(t, f.store.AuditEntries())
	})

	t.Run("invalid field is rejected", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleUser)
		task := f.putTask(creator, nil)

		_, err := f.svc.Update(context.Background(), creator, task.ID, service.UpdateTaskInput{Title: ptr("x")})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestTaskService_Delete(t *testing.T) {
	t.Parallel()

	t.Run("non-admin roles are forbidden before lookup", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		creator := f.actor(domain.RoleManager)
		task := f.putTask(creator, nil)

		for _, role := range []domain.Role{domain.RoleUser, domain.RoleManager} {
			actor := f.actor(role)
			assert.ErrorIs(t, f.svc.Delete(context.Background(), actor, task.ID), domain.ErrForbidden)
			assert.ErrorIs(t, f.svc.Delete(context.Background(), actor, uuid.New()), domain.ErrForbidden)
		}
		assert.ErrorIs(t, f.svc.Delete(context.Background(), creator, task.ID), domain.ErrForbidden)
		assert.Equal(t, 1, f.store.TaskCount())
	})

	t.Run("admin deleting a missing task gets not found", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		err := f.svc.Delete(context.Background(), f.actor(domain.RoleAdmin), uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Empty(t, f.store.AuditEntries())
	})

	t.Run("admin deletes and the history outlives the task", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		admin := f.actor(domain.RoleAdmin)
		task := f.putTask(f.actor(domain.RoleUser), nil)

		require.NoError(t, f.svc.Delete(context.Background(), admin, task.ID))
		assert.Zero(t, f.store.TaskCount())

		entries := f.store.AuditEntries()
		require.Len(t, entries, 1)
		assert.Equal(t, domain.AuditActionTaskDelete, entries[0].Action)
		assert.Equal(t, task.ID, entries[0].TaskID)
		assert.Equal(t, admin.ID, entries[0].UserID)

		_, err := f.svc.Get(context.Background(), admin, task.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTaskService_OneAuditEntryPerMutation(t *testing.T) {
	t.Parallel()

	f := newTaskFixture(t)
	admin := f.actor(domain.RoleAdmin)
	ctx := context.Background()

	task, err := f.svc.Create(ctx, admin, validCreateInput())
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, admin, task.ID, service.UpdateTaskInput{Status: ptr(domain.TaskStatusDone)})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.actor(domain.RoleUser), task.ID, service.UpdateTaskInput{Title: ptr("Denied")})
	require.ErrorIs(t, err, domain.ErrForbidden)

	history, err := f.svc.History(ctx, admin, task.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, f.svc.Delete(ctx, admin, task.ID))

	actions := make([]domain.AuditAction, 0, 3)
	for _, e := range f.store.AuditEntries() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []domain.AuditAction{
		domain.AuditActionTaskCreate,
		domain.AuditActionTaskUpdate,
		domain.AuditActionTaskDelete,
	}, actions)
}

func TestTaskService_History(t *testing.T) {
	t.Parallel()

	f := newTaskFixture(t)
	creator := f.actor(domain.RoleUser)
	task := f.putTask(creator, nil)
	now := time.Now().UTC()
	older := &domain.AuditLogEntry{ID: uuid.New(), Action: domain.AuditActionTaskCreate,
		UserID: creator.ID, TaskID: task.ID, CreatedAt: now.Add(-time.Hour)}
	newer := &domain.AuditLogEntry{ID: uuid.New(), Action: domain.AuditActionTaskUpdate,
		UserID: creator.ID, TaskID: task.ID, CreatedAt: now}
	f.store.PutAuditEntry(older)
	f.store.PutAuditEntry(newer)

	entries, err := f.svc.History(context.Background(), creator, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].ID)
	assert.Equal(t, older.ID, entries[1].ID)

	_, err = f.svc.History(context.Background(), f.actor(domain.RoleUser), task.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTaskService_DashboardSummary(t *testing.T) {
	t.Parallel()

	t.Run("nothing assigned has zero completion rate", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)

		summary, err := f.svc.DashboardSummary(context.Background(), f.actor(domain.RoleUser))
		require.NoError(t, err)
		assert.Zero(t, summary.CompletionRate)
		assert.Zero(t, summary.Assigned.Total)
		assert.Empty(t, summary.Assigned.Tasks)
	})

	t.Run("all assigned tasks done is 100", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		user := f.actor(domain.RoleUser)
		creator := f.actor(domain.RoleManager)
		for range 3 {
			f.putTask(creator, &user.ID, func(task *domain.Task) { task.Status = domain.TaskStatusDone })
		}

		summary, err := f.svc.DashboardSummary(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, 100, summary.CompletionRate)
		assert.Zero(t, summary.Assigned.Total, "done tasks are not open")
	})

	t.Run("sections preview five and count all", func(t *testing.T) {
		t.Parallel()
		f := newTaskFixture(t)
		user := f.actor(domain.RoleUser)
		other := f.actor(domain.RoleUser)
		past := time.Now().Add(-24 * time.Hour)

		for range 7 {
			f.putTask(other, &user.ID)
		}
		for range 2 {
			f.putTask(user, nil, func(task *domain.Task) { task.DueDate = past })
		}
		f.putTask(other, &user.ID, func(task *domain.Task) { task.Status = domain.TaskStatusDone })
		f.putTask(other, nil, func(task *domain.Task) { task.DueDate = past })

		summary, err := f.svc.DashboardSummary(context.Background(), user)
		require.NoError(t, err)

		assert.Equal(t, 7, summary.Assigned.Total)
		assert.Len(t, summary.Assigned.Tasks, service.DashboardPreviewSize)
		assert.Equal(t, 2, summary.Created.Total)
		assert.Len(t, summary.Created.Tasks, 2)
		assert.Equal(t, 2, summary.Overdue.Total)
		assert.Equal(t, 13, summary.CompletionRate, "1 of 8 assigned done")
	})
}

func TestCompletionRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		done, assigned, want int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 5, 100},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, service.CompletionRate(tc.done, tc.assigned), "%d/%d", tc.done, tc.assigned)
	}
}
