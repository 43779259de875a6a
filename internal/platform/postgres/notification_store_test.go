package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notificationCols = []string{"id", "user_id", "message", "type", "read", "created_at"}

func newNotificationStore(t *testing.T) (*PostgresNotificationStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresNotificationStore(db, nil), mock
}

func TestPostgresNotificationStore_Create(t *testing.T) {
	s, mock := newNotificationStore(t)
	n, err := domain.NewNotification(uuid.New(), "New task assigned: Ship it", "")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: constraintNotificationUserFK})

	err = s.Create(context.Background(), n)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.Contains(t, err.Error(), "recipient does not exist")
}

func TestPostgresNotificationStore_MarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("returns updated record", func(t *testing.T) {
		s, mock := newNotificationStore(t)
		id, user := uuid.New(), uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE notifications SET read = TRUE WHERE id = $1 RETURNING")).
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows(notificationCols).
				AddRow(id.String(), user.String(), "hello", "IN_APP", true, time.Now()))

		n, err := s.MarkRead(ctx, id)
		require.NoError(t, err)
		assert.True(t, n.Read)
		assert.Equal(t, user, n.UserID)
	})

	t.Run("missing notification", func(t *testing.T) {
		s, mock := newNotificationStore(t)
		mock.ExpectQuery("UPDATE notifications").WillReturnRows(sqlmock.NewRows(notificationCols))

		_, err := s.MarkRead(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotificationNotFound)
	})
}

func TestPostgresNotificationStore_ListAndCount(t *testing.T) {
	ctx := context.Background()
	s, mock := newNotificationStore(t)
	user := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id ASC LIMIT $2")).
		WithArgs(user.String(), 20).
		WillReturnRows(sqlmock.NewRows(notificationCols).
			AddRow(uuid.New().String(), user.String(), "second", "IN_APP", false, time.Now()).
			AddRow(uuid.New().String(), user.String(), "first", "IN_APP", true, time.Now().Add(-time.Minute)))

	list, err := s.ListByUser(ctx, user, 20)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)

	mock.ExpectQuery(regexp.QuoteMeta("read = FALSE")).
		WithArgs(user.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	count, err := s.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
