package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilProcessor      = errors.New("submission processor cannot be nil")
	ErrEmptySubmissionID = errors.New("submission ID cannot be empty")
)

// SubmissionProcessor assesses a stored TOEFL submission and records the
// outcome on it.
type SubmissionProcessor interface {
	ProcessSubmission(ctx context.Context, submissionID uuid.UUID) error
}

type assessmentPayload struct {
	SubmissionID uuid.UUID `json:"submission_id"`
}

// AssessmentTask runs the AI assessment of one submission.
type AssessmentTask struct {
	id           uuid.UUID
	submissionID uuid.UUID
	processor    SubmissionProcessor
	logger       *slog.Logger

	mu     sync.Mutex
	status TaskStatus
}

// NewAssessmentTask creates a pending assessment task. A nil id is replaced
// with a fresh one.
func NewAssessmentTask(
	id uuid.UUID,
	submissionID uuid.UUID,
	processor SubmissionProcessor,
	logger *slog.Logger,
) (*AssessmentTask, error) {
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if submissionID == uuid.Nil {
		return nil, ErrEmptySubmissionID
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AssessmentTask{
		id:           id,
		submissionID: submissionID,
		processor:    processor,
		logger: logger.With(
			slog.String("task_type", TaskTypeAssessment),
			slog.String("submission_id", submissionID.String())),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *AssessmentTask) ID() uuid.UUID { return t.id }

// Type returns TaskTypeAssessment.
func (t *AssessmentTask) Type() string { return TaskTypeAssessment }

// SubmissionID is the submission being assessed.
func (t *AssessmentTask) SubmissionID() uuid.UUID { return t.submissionID }

// Payload encodes the submission ID.
func (t *AssessmentTask) Payload() []byte {
	data, err := json.Marshal(assessmentPayload{SubmissionID: t.submissionID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", slog.String("error", err.Error()))
		return []byte("{}")
	}
	return data
}

// Status returns the current task status
func (t *AssessmentTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *AssessmentTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute hands the submission to the processor.
func (t *AssessmentTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	if err := ctx.Err(); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	t.logger.Info("assessing submission")
	if err := t.processor.ProcessSubmission(ctx, t.submissionID); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("failed to assess submission %s: %w", t.submissionID, err)
	}

	t.setStatus(TaskStatusCompleted)
	t.logger.Info("submission assessed")
	return nil
}

// AssessmentFactory returns the Factory that rebuilds assessment tasks from
// their stored payload.
func AssessmentFactory(processor SubmissionProcessor, logger *slog.Logger) Factory {
	return func(id uuid.UUID, payload []byte) (Task, error) {
		var p assessmentPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("invalid assessment payload: %w", err)
		}
		return NewAssessmentTask(id, p.SubmissionID, processor, logger)
	}
}
