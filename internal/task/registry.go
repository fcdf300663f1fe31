package task

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownTaskType is returned when no factory is registered for a task type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Factory rebuilds a task from its persisted id and payload.
type Factory func(id uuid.UUID, payload []byte) (Task, error)

// Registry maps task types to the factories that rebuild them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs f for taskType, replacing any earlier factory.
func (r *Registry) Register(taskType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = f
}

// Has reports whether taskType has a factory.
func (r *Registry) Has(taskType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[taskType]
	return ok
}

// Build rebuilds a stored task.
func (r *Registry) Build(st StoredTask) (Task, error) {
	r.mu.RLock()
	f, ok := r.factories[st.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, st.Type)
	}

	t, err := f(st.ID, st.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild %s task %s: %w", st.Type, st.ID, err)
	}
	return t, nil
}
