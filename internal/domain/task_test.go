package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTask() *Task {
	return NewTask(uuid.New(), "Write report", "quarterly numbers", time.Now().Add(24*time.Hour), PriorityMedium)
}

func TestNewTask_Defaults(t *testing.T) {
	t.Parallel()
	creator := uuid.New()
	due := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	task := NewTask(creator, "Write report", "", due, PriorityHigh)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, TaskStatusTodo, task.Status)
	assert.Equal(t, RecurrenceNone, task.Recurrence)
	assert.Equal(t, creator, task.CreatedByID)
	assert.Nil(t, task.AssignedToID)
	assert.True(t, due.Equal(task.DueDate))
	assert.NoError(t, task.Validate())
}

func TestTask_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Task)
		field  string
	}{
		{"short title", func(t *Task) { t.Title = "ab" }, "title"},
		{"long title", func(t *Task) { t.Title = strings.Repeat("x", 101) }, "title"},
		{"long description", func(t *Task) { t.Description = strings.Repeat("x", 501) }, "description"},
		{"missing due date", func(t *Task) { t.DueDate = time.Time{} }, "due_date"},
		{"bad priority", func(t *Task) { t.Priority = "URGENT" }, "priority"},
		{"bad status", func(t *Task) { t.Status = "BLOCKED" }, "status"},
		{"bad recurrence", func(t *Task) { t.Recurrence = "YEARLY" }, "recurrence"},
		{"missing creator", func(t *Task) { t.CreatedByID = uuid.Nil }, "created_by_id"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			task := validTask()
			tc.mutate(task)

			err := task.Validate()
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestTask_Validate_TitleBoundaries(t *testing.T) {
	t.Parallel()
	task := validTask()

	task.Title = "abc"
	assert.NoError(t, task.Validate())

	task.Title = strings.Repeat("é", 100)
	assert.NoError(t, task.Validate(), "length is counted in characters")
}

func TestTask_IsOverdue(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	task := validTask()
	task.DueDate = now.Add(-time.Hour)

	assert.True(t, task.IsOverdue(now))

	task.Status = TaskStatusDone
	assert.False(t, task.IsOverdue(now), "completed tasks are never overdue")

	task.Status = TaskStatusInProgress
	task.DueDate = now.Add(time.Hour)
	assert.False(t, task.IsOverdue(now))
}

func TestTask_NextOccurrence(t *testing.T) {
	t.Parallel()
	assignee := uuid.New()
	origin := validTask()
	origin.Status = TaskStatusDone
	origin.Recurrence = RecurrenceWeekly
	origin.AssignedToID = &assignee
	origin.DueDate = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	next, ok := origin.NextOccurrence()
	require.True(t, ok)

	assert.NotEqual(t, origin.ID, next.ID)
	assert.Equal(t, origin.Title, next.Title)
	assert.Equal(t, origin.Description, next.Description)
	assert.Equal(t, origin.Priority, next.Priority)
	assert.Equal(t, origin.Recurrence, next.Recurrence)
	assert.Equal(t, origin.CreatedByID, next.CreatedByID)
	assert.Equal(t, TaskStatusTodo, next.Status)
	require.NotNil(t, next.AssignedToID)
	assert.Equal(t, assignee, *next.AssignedToID)
	require.NotNil(t, next.RecurrenceParentID)
	assert.Equal(t, origin.ID, *next.RecurrenceParentID)
	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), next.DueDate)

	origin.Recurrence = RecurrenceNone
	_, ok = origin.NextOccurrence()
	assert.False(t, ok)
}

func TestNextDueDate(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		rule Recurrence
		want time.Time
		ok   bool
	}{
		{RecurrenceDaily, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), true},
		{RecurrenceWeekly, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), true},
		{RecurrenceMonthly, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), true},
		{RecurrenceNone, time.Time{}, false},
		{Recurrence("HOURLY"), time.Time{}, false},
	}

	for _, tc := range tests {
		got, ok := NextDueDate(due, tc.rule)
		assert.Equal(t, tc.ok, ok, string(tc.rule))
		assert.True(t, tc.want.Equal(got), "%s: got %s", tc.rule, got)
	}
}

func TestNextDueDate_MonthEndOverflow(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	got, ok := NextDueDate(due, RecurrenceMonthly)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), got)
}
