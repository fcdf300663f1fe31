package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/events"
)

// Submitter accepts tasks for background execution. TaskRunner implements it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// EventHandler turns task request events into tasks through the registry and
// submits them.
type EventHandler struct {
	registry *Registry
	runner   Submitter
	logger   *slog.Logger
}

// NewEventHandler creates a handler for every task type the registry knows.
func NewEventHandler(registry *Registry, runner Submitter, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		registry: registry,
		runner:   runner,
		logger:   logger.With(slog.String("component", "task_event_handler")),
	}
}

// HandleEvent ignores event types without a factory.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := h.logger.With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))

	if !h.registry.Has(event.Type) {
		log.Debug("ignoring event with unsupported type")
		return nil
	}

	t, err := h.registry.Build(StoredTask{
		ID:      uuid.New(),
		Type:    event.Type,
		Payload: event.Payload,
		Status:  TaskStatusPending,
	})
	if err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, t); err != nil {
		log.Error("failed to submit task",
			slog.String("task_id", t.ID().String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Info("task submitted", slog.String("task_id", t.ID().String()))
	return nil
}

var _ events.EventHandler = (*EventHandler)(nil)
