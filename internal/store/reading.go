package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// TestSummary is a reading test with its content counts.
type TestSummary struct {
	domain.ReadingTest
	PassageCount  int
	QuestionCount int
}

// ReadingStore persists reading tests, attempts and answers.
type ReadingStore interface {
	// CreateTest inserts the test with its passages and questions. Callers
	// wrap it in a transaction.
	CreateTest(ctx context.Context, test *domain.ReadingTest) error
	// ListTests returns active tests, optionally of one mode.
	ListTests(ctx context.Context, mode *domain.TestMode) ([]*TestSummary, error)
	// GetTest loads the test with passages and questions in display order.
	// Returns ErrTestNotFound when missing.
	GetTest(ctx context.Context, id uuid.UUID) (*domain.ReadingTest, error)

	CreateAttempt(ctx context.Context, attempt *domain.Attempt) error
	// GetAttempt returns ErrAttemptNotFound when missing.
	GetAttempt(ctx context.Context, id uuid.UUID) (*domain.Attempt, error)
	// FindInProgress returns ErrAttemptNotFound when the user has no open
	// attempt on the test.
	FindInProgress(ctx context.Context, userID, testID uuid.UUID) (*domain.Attempt, error)
	UpdateAttempt(ctx context.Context, attempt *domain.Attempt) error
	// ListAttempts returns the user's attempts newest first.
	ListAttempts(ctx context.Context, userID uuid.UUID) ([]*domain.Attempt, error)

	// GetAnswer returns ErrNotFound when the question is unanswered.
	GetAnswer(ctx context.Context, attemptID, questionID uuid.UUID) (*domain.AttemptAnswer, error)
	CreateAnswer(ctx context.Context, answer *domain.AttemptAnswer) error
	// UpsertAnswer replaces any previous answer to the same question.
	UpsertAnswer(ctx context.Context, answer *domain.AttemptAnswer) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]*domain.AttemptAnswer, error)

	WithTx(tx *sql.Tx) ReadingStore
}
