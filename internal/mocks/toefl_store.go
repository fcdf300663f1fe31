package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// ToeflStore is a testify mock of store.ToeflStore.
type ToeflStore struct {
	mock.Mock
}

var _ store.ToeflStore = (*ToeflStore)(nil)

// CreateCategory implements store.ToeflStore.
func (m *ToeflStore) CreateCategory(ctx context.Context, c *domain.QuestionCategory) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// ListCategories implements store.ToeflStore.
func (m *ToeflStore) ListCategories(ctx context.Context, kind *domain.CategoryType) ([]*domain.QuestionCategory, error) {
	args := m.Called(ctx, kind)
	if v, ok := args.Get(0).([]*domain.QuestionCategory); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateQuestion implements store.ToeflStore.
func (m *ToeflStore) CreateQuestion(ctx context.Context, q *domain.ToeflQuestion) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// GetQuestion implements store.ToeflStore.
func (m *ToeflStore) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.ToeflQuestion, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.ToeflQuestion); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// RandomQuestion implements store.ToeflStore.
func (m *ToeflStore) RandomQuestion(ctx context.Context, categoryID *uuid.UUID, kind *domain.CategoryType) (*domain.ToeflQuestion, error) {
	args := m.Called(ctx, categoryID, kind)
	if v, ok := args.Get(0).(*domain.ToeflQuestion); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateSubmission implements store.ToeflStore.
func (m *ToeflStore) CreateSubmission(ctx context.Context, s *domain.Submission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// GetSubmission implements store.ToeflStore.
func (m *ToeflStore) GetSubmission(ctx context.Context, id uuid.UUID) (*store.SubmissionDetail, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*store.SubmissionDetail); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateSubmission implements store.ToeflStore.
func (m *ToeflStore) UpdateSubmission(ctx context.Context, s *domain.Submission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// ListSubmissions implements store.ToeflStore.
func (m *ToeflStore) ListSubmissions(ctx context.Context, userID uuid.UUID) ([]*domain.Submission, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]*domain.Submission); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateWriting implements store.ToeflStore.
func (m *ToeflStore) CreateWriting(ctx context.Context, w *domain.WritingSubmission) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

// CreateSpeaking implements store.ToeflStore.
func (m *ToeflStore) CreateSpeaking(ctx context.Context, s *domain.SpeakingSubmission) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// UpdateTranscript implements store.ToeflStore.
func (m *ToeflStore) UpdateTranscript(ctx context.Context, submissionID uuid.UUID, transcript string) error {
	args := m.Called(ctx, submissionID, transcript)
	return args.Error(0)
}

// UpsertResult implements store.ToeflStore.
func (m *ToeflStore) UpsertResult(ctx context.Context, r *domain.AssessmentResult) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// WithTx returns the mock itself so expectations cover transactional calls.
func (m *ToeflStore) WithTx(*sql.Tx) store.ToeflStore {
	return m
}
