package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// SubmissionDetail bundles a submission with its response and result.
type SubmissionDetail struct {
	domain.Submission
	Writing  *domain.WritingSubmission
	Speaking *domain.SpeakingSubmission
	Result   *domain.AssessmentResult
}

// ToeflStore persists TOEFL prompts, submissions and assessment results.
type ToeflStore interface {
	CreateCategory(ctx context.Context, c *domain.QuestionCategory) error
	ListCategories(ctx context.Context, kind *domain.CategoryType) ([]*domain.QuestionCategory, error)
	CreateQuestion(ctx context.Context, q *domain.ToeflQuestion) error
	// GetQuestion returns ErrQuestionNotFound when missing.
	GetQuestion(ctx context.Context, id uuid.UUID) (*domain.ToeflQuestion, error)
	// RandomQuestion picks an active question from an active category.
	// Returns ErrQuestionNotFound when nothing matches.
	RandomQuestion(ctx context.Context, categoryID *uuid.UUID, kind *domain.CategoryType) (*domain.ToeflQuestion, error)

	CreateSubmission(ctx context.Context, s *domain.Submission) error
	// GetSubmission returns ErrSubmissionNotFound when missing.
	GetSubmission(ctx context.Context, id uuid.UUID) (*SubmissionDetail, error)
	UpdateSubmission(ctx context.Context, s *domain.Submission) error
	ListSubmissions(ctx context.Context, userID uuid.UUID) ([]*domain.Submission, error)

	CreateWriting(ctx context.Context, w *domain.WritingSubmission) error
	CreateSpeaking(ctx context.Context, s *domain.SpeakingSubmission) error
	UpdateTranscript(ctx context.Context, submissionID uuid.UUID, transcript string) error

	// UpsertResult stores the single result of a submission.
	UpsertResult(ctx context.Context, r *domain.AssessmentResult) error

	WithTx(tx *sql.Tx) ToeflStore
}
