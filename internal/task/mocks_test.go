package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryTaskStore is an in-memory TaskStore.
type memoryTaskStore struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]*StoredTask
	saveErr error
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[uuid.UUID]*StoredTask)}
}

func (s *memoryTaskStore) SaveTask(_ context.Context, t Task) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.tasks[t.ID()] = &StoredTask{
		ID: t.ID(), Type: t.Type(), Payload: t.Payload(), Status: t.Status(),
		CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (s *memoryTaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.tasks[id]; ok {
		st.Status = status
		st.ErrorMessage = msg
		st.UpdatedAt = time.Now()
	}
	return nil
}

func (s *memoryTaskStore) put(st StoredTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[st.ID] = &st
}

func (s *memoryTaskStore) status(id uuid.UUID) (TaskStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[id]
	if !ok {
		return "", ""
	}
	return st.Status, st.ErrorMessage
}

func (s *memoryTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []StoredTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoredTask
	for _, st := range s.tasks {
		if st.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(st.UpdatedAt) < olderThan {
			continue
		}
		out = append(out, *st)
	}
	return out
}

func (s *memoryTaskStore) GetPendingTasks(context.Context) ([]StoredTask, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

func (s *memoryTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]StoredTask, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *memoryTaskStore) WithTx(*sql.Tx) TaskStore { return s }

// funcTask is a Task whose Execute calls fn.
type funcTask struct {
	id      uuid.UUID
	kind    string
	payload []byte
	fn      func(ctx context.Context) error
}

func newFuncTask(fn func(ctx context.Context) error) *funcTask {
	return &funcTask{id: uuid.New(), kind: "test", payload: []byte(`{}`), fn: fn}
}

func (t *funcTask) ID() uuid.UUID      { return t.id }
func (t *funcTask) Type() string       { return t.kind }
func (t *funcTask) Payload() []byte    { return t.payload }
func (t *funcTask) Status() TaskStatus { return TaskStatusPending }
func (t *funcTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

// processorFunc adapts a function to SubmissionProcessor.
type processorFunc func(ctx context.Context, id uuid.UUID) error

func (f processorFunc) ProcessSubmission(ctx context.Context, id uuid.UUID) error {
	return f(ctx, id)
}

type submitterFunc func(ctx context.Context, t Task) error

func (f submitterFunc) Submit(ctx context.Context, t Task) error { return f(ctx, t) }
