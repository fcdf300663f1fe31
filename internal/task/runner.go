package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	WorkerCount int
	QueueSize   int

	// StuckTaskAge is how long a task may stay in processing before the
	// monitor resets it to pending. Tasks this runner is still executing are
	// never reset.
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defaults to 5 minutes. Each check also queues
	// pending tasks that were left out of the queue.
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner persists submitted tasks, feeds them to a worker pool and brings
// back unfinished work after a restart or a stall.
type TaskRunner struct {
	store    TaskStore
	registry *Registry
	queue    *TaskQueue
	pool     *WorkerPool
	config   TaskRunnerConfig
	logger   *slog.Logger

	// inflight holds tasks that are queued or executing in this process.
	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskRunner wires a queue and worker pool around store. The registry
// rebuilds persisted tasks during recovery.
func NewTaskRunner(store TaskStore, registry *Registry, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval <= 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "task_runner"))

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, store, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	pool.SetErrorHandler(func(t Task, err error) {
		logger.Error("task execution failed",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()))
	})

	ctx, cancel := context.WithCancel(context.Background())
	r := &TaskRunner{
		store:    store,
		registry: registry,
		queue:    queue,
		pool:     pool,
		config:   config,
		logger:   logger,
		inflight: make(map[uuid.UUID]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	pool.SetDoneHandler(func(t Task) { r.release(t.ID()) })
	return r
}

// SetErrorHandler replaces the handler called for failed tasks.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit saves the task as pending and queues it. A task saved while the
// queue is full stays pending and is queued by the next monitor check, so
// Submit still succeeds.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	err := r.enqueue(task)
	if errors.Is(err, ErrQueueFull) {
		r.logger.Warn("task queue full, task left pending",
			slog.String("task_id", task.ID().String()),
			slog.String("task_type", task.Type()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to queue task %s: %w", task.ID(), err)
	}
	return nil
}

// enqueue queues t unless it is already queued or executing here.
func (r *TaskRunner) enqueue(t Task) error {
	r.mu.Lock()
	if _, ok := r.inflight[t.ID()]; ok {
		r.mu.Unlock()
		return nil
	}
	r.inflight[t.ID()] = struct{}{}
	r.mu.Unlock()

	if err := r.queue.Enqueue(t); err != nil {
		r.release(t.ID())
		return err
	}
	return nil
}

func (r *TaskRunner) release(id uuid.UUID) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

func (r *TaskRunner) isInflight(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[id]
	return ok
}

// Start recovers unfinished tasks, then starts the workers and the stuck task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(context.Background()); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()
	return nil
}

// Stop halts the monitor and waits for running tasks to finish.
func (r *TaskRunner) Stop() {
	r.cancel()
	r.wg.Wait()
	r.pool.Stop()
	r.queue.Close()
}

// Recover requeues pending tasks and resets interrupted processing tasks.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		slog.Int("pending_count", len(pending)),
		slog.Int("processing_count", len(processing)))

	for _, st := range pending {
		r.requeue(ctx, st, false)
	}
	for _, st := range processing {
		r.requeue(ctx, st, true)
	}
	return nil
}

// requeue rebuilds st and queues it. Tasks that cannot be rebuilt are marked failed.
func (r *TaskRunner) requeue(ctx context.Context, st StoredTask, reset bool) {
	log := r.logger.With(
		slog.String("task_id", st.ID.String()),
		slog.String("task_type", st.Type))

	t, err := r.registry.Build(st)
	if err != nil {
		log.Error("failed to rebuild task", slog.String("error", err.Error()))
		if updateErr := r.store.UpdateTaskStatus(ctx, st.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			log.Error("failed to mark unrecoverable task failed", slog.String("error", updateErr.Error()))
		}
		return
	}

	if reset {
		if err := r.store.UpdateTaskStatus(ctx, st.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			log.Error("failed to reset processing task", slog.String("error", err.Error()))
			return
		}
	}

	if err := r.enqueue(t); err != nil {
		log.Error("failed to requeue task", slog.String("error", err.Error()))
	}
}

func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.resetStuckTasks(r.ctx)
			r.queueLeftoverPending(r.ctx)
		}
	}
}

func (r *TaskRunner) resetStuckTasks(ctx context.Context) {
	stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", slog.String("error", err.Error()))
		return
	}

	reset := 0
	for _, st := range stuck {
		// Still running here: the row is old because the work is slow.
		if r.isInflight(st.ID) {
			continue
		}
		r.requeue(ctx, st, true)
		reset++
	}
	if reset > 0 {
		r.logger.Info("reset stuck tasks", slog.Int("count", reset))
	}
}

// queueLeftoverPending queues pending tasks that are not queued here, such as
// tasks saved while the queue was full.
func (r *TaskRunner) queueLeftoverPending(ctx context.Context) {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		r.logger.Error("failed to check for pending tasks", slog.String("error", err.Error()))
		return
	}
	for _, st := range pending {
		if r.isInflight(st.ID) {
			continue
		}
		r.requeue(ctx, st, false)
	}
}
