package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// ReadingStore is a testify mock of store.ReadingStore.
type ReadingStore struct {
	mock.Mock
}

var _ store.ReadingStore = (*ReadingStore)(nil)

// CreateTest implements store.ReadingStore.
func (m *ReadingStore) CreateTest(ctx context.Context, test *domain.ReadingTest) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

// ListTests implements store.ReadingStore.
func (m *ReadingStore) ListTests(ctx context.Context, mode *domain.TestMode) ([]*store.TestSummary, error) {
	args := m.Called(ctx, mode)
	if v, ok := args.Get(0).([]*store.TestSummary); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetTest implements store.ReadingStore.
func (m *ReadingStore) GetTest(ctx context.Context, id uuid.UUID) (*domain.ReadingTest, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.ReadingTest); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateAttempt implements store.ReadingStore.
func (m *ReadingStore) CreateAttempt(ctx context.Context, attempt *domain.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

// GetAttempt implements store.ReadingStore.
func (m *ReadingStore) GetAttempt(ctx context.Context, id uuid.UUID) (*domain.Attempt, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.Attempt); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// FindInProgress implements store.ReadingStore.
func (m *ReadingStore) FindInProgress(ctx context.Context, userID uuid.UUID, testID uuid.UUID) (*domain.Attempt, error) {
	args := m.Called(ctx, userID, testID)
	if v, ok := args.Get(0).(*domain.Attempt); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateAttempt implements store.ReadingStore.
func (m *ReadingStore) UpdateAttempt(ctx context.Context, attempt *domain.Attempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

// ListAttempts implements store.ReadingStore.
func (m *ReadingStore) ListAttempts(ctx context.Context, userID uuid.UUID) ([]*domain.Attempt, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]*domain.Attempt); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetAnswer implements store.ReadingStore.
func (m *ReadingStore) GetAnswer(ctx context.Context, attemptID uuid.UUID, questionID uuid.UUID) (*domain.AttemptAnswer, error) {
	args := m.Called(ctx, attemptID, questionID)
	if v, ok := args.Get(0).(*domain.AttemptAnswer); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateAnswer implements store.ReadingStore.
func (m *ReadingStore) CreateAnswer(ctx context.Context, answer *domain.AttemptAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

// UpsertAnswer implements store.ReadingStore.
func (m *ReadingStore) UpsertAnswer(ctx context.Context, answer *domain.AttemptAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

// ListAnswers implements store.ReadingStore.
func (m *ReadingStore) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]*domain.AttemptAnswer, error) {
	args := m.Called(ctx, attemptID)
	if v, ok := args.Get(0).([]*domain.AttemptAnswer); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// WithTx returns the mock itself so expectations cover transactional calls.
func (m *ReadingStore) WithTx(*sql.Tx) store.ReadingStore {
	return m
}
