package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// Request is one response to score. For speaking, Text is the transcript.
type Request struct {
	Kind            domain.SubmissionType
	Topic           string
	Text            string
	WordCount       int
	DurationSeconds int
}

// Result is the rubric returned by the model, each score on 0..100.
// Pronunciation is set for speaking only.
type Result struct {
	Overall         float64
	Grammar         float64
	Vocabulary      float64
	Coherence       float64
	Fluency         float64
	Pronunciation   *float64
	FeedbackSummary string
	Suggestions     []string
}

// ToDomain converts r into the stored result of a submission.
func (r *Result) ToDomain(submissionID uuid.UUID) *domain.AssessmentResult {
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return &domain.AssessmentResult{
		SubmissionID:    submissionID,
		Grammar:         r.Grammar,
		Vocabulary:      r.Vocabulary,
		Coherence:       r.Coherence,
		Fluency:         r.Fluency,
		Pronunciation:   r.Pronunciation,
		FeedbackSummary: r.FeedbackSummary,
		Suggestions:     suggestions,
		UpdatedAt:       time.Now().UTC(),
	}
}

// Assessor scores a writing essay or a speaking transcript.
type Assessor interface {
	Assess(ctx context.Context, req Request) (*Result, error)
}

// Transcriber turns a recorded answer into text. It returns ErrNoSpeech when
// the recording holds no words.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
