package mocks

import (
	"context"

	"github.com/phrazzld/campus-api/internal/events"
	"github.com/stretchr/testify/mock"
)

// EventEmitter is a testify mock of events.EventEmitter.
type EventEmitter struct {
	mock.Mock
}

var _ events.EventEmitter = (*EventEmitter)(nil)

// EmitEvent implements events.EventEmitter.
func (m *EventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
