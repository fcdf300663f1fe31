package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	id uuid.UUID
}

func (t stubTask) ID() uuid.UUID                 { return t.id }
func (t stubTask) Type() string                  { return task.TaskTypeAssessment }
func (t stubTask) Payload() []byte               { return []byte(`{"submission_id":"x"}`) }
func (t stubTask) Status() task.TaskStatus       { return task.TaskStatusPending }
func (t stubTask) Execute(context.Context) error { return nil }

func TestPostgresTaskStore_SaveTask(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, logger.Discard())

	tk := stubTask{id: uuid.New()}
	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(tk.id, task.TaskTypeAssessment, `{"submission_id":"x"}`, task.TaskStatusPending,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveTask(context.Background(), tk))
}

func TestPostgresTaskStore_UpdateTaskStatus(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, logger.Discard())

	id := uuid.New()
	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs(task.TaskStatusCompleted, nil, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET status").
		WithArgs(task.TaskStatusFailed, "boom", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusCompleted, ""))
	require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "boom"))
}

func TestPostgresTaskStore_GetTasks(t *testing.T) {
	t.Parallel()

	columns := []string{"id", "type", "payload", "status", "error_message", "created_at", "updated_at"}

	t.Run("pending", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, logger.Discard())

		id := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(`WHERE status = \$1 ORDER BY created_at ASC`).
			WithArgs(task.TaskStatusPending).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(id.String(), task.TaskTypeAssessment, []byte(`{}`), "pending", nil, now, now))

		tasks, err := s.GetPendingTasks(context.Background())
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, id, tasks[0].ID)
		assert.Equal(t, task.TaskStatusPending, tasks[0].Status)
		assert.Empty(t, tasks[0].ErrorMessage)
	})

	t.Run("stuck processing", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		s := NewPostgresTaskStore(db, logger.Discard())

		mock.ExpectQuery(`WHERE status = \$1 AND updated_at < \$2`).
			WithArgs(task.TaskStatusProcessing, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(columns))

		tasks, err := s.GetProcessingTasks(context.Background(), 30*time.Minute)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}
