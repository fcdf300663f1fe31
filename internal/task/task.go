package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeAssessment scores one TOEFL submission with the AI assessor.
const TaskTypeAssessment = "toefl_assessment"

// Task is a unit of background work.
type Task interface {
	ID() uuid.UUID
	Type() string
	// Payload is the JSON stored with the task; a Factory rebuilds the task from it.
	Payload() []byte
	Status() TaskStatus
	Execute(ctx context.Context) error
}

// StoredTask is a task row as persisted, before it is rebuilt into a Task.
type StoredTask struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       TaskStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskQueueReader gives workers the consuming end of the queue.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter lets the runner feed the queue.
type TaskQueueWriter interface {
	// Enqueue returns ErrQueueFull or ErrQueueClosed without blocking.
	Enqueue(task Task) error
	Close()
}

// TaskStore persists task state so unfinished work survives a restart.
type TaskStore interface {
	SaveTask(ctx context.Context, task Task) error

	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	GetPendingTasks(ctx context.Context) ([]StoredTask, error)

	// GetProcessingTasks returns tasks in the processing state. A non-zero
	// olderThan keeps only those untouched for at least that long.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]StoredTask, error)

	WithTx(tx *sql.Tx) TaskStore
}
