package task

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/campus-api/internal/redact"
)

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount defaults to 1 when zero or negative.
	WorkerCount int
}

// WorkerPool runs tasks from a queue, recording each status change in the store.
type WorkerPool struct {
	queue        TaskQueueReader
	store        TaskStore
	workerCount  int
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *slog.Logger
	errorHandler func(task Task, err error)
	doneHandler  func(task Task)
}

// NewWorkerPool creates a pool; call Start to launch the workers.
func NewWorkerPool(queue TaskQueueReader, store TaskStore, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			slog.Int("specified_count", config.WorkerCount),
			slog.Int("default_count", 1))
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:       queue,
		store:       store,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler is called after a task fails and its failure is recorded.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// SetDoneHandler is called once a dequeued task is finished with, whatever
// the outcome.
func (p *WorkerPool) SetDoneHandler(handler func(task Task)) {
	p.doneHandler = handler
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", slog.Int("workers", p.workerCount))
}

// Stop signals the workers and waits for in-flight tasks to finish.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	tasks := p.queue.GetChannel()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			p.process(t, id)
		}
	}
}

func (p *WorkerPool) process(t Task, workerID int) {
	if p.doneHandler != nil {
		defer p.doneHandler(t)
	}
	ctx := context.Background()
	log := p.logger.With(
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()),
		slog.Int("worker_id", workerID),
	)

	if err := p.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to mark task processing", slog.String("error", err.Error()))
		return
	}

	log.Info("processing task")
	if err := t.Execute(ctx); err != nil {
		msg := redact.Error(err)
		log.Error("task execution failed", slog.String("error", msg))
		if updateErr := p.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusFailed, msg); updateErr != nil {
			log.Error("failed to mark task failed", slog.String("error", updateErr.Error()))
		}
		if p.errorHandler != nil {
			p.errorHandler(t, err)
		}
		return
	}

	if err := p.store.UpdateTaskStatus(ctx, t.ID(), TaskStatusCompleted, ""); err != nil {
		log.Error("failed to mark task completed", slog.String("error", err.Error()))
		return
	}
	log.Info("task completed")
}
