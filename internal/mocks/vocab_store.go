package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// VocabStore is a testify mock of store.VocabStore.
type VocabStore struct {
	mock.Mock
}

var _ store.VocabStore = (*VocabStore)(nil)

// CreateLesson implements store.VocabStore.
func (m *VocabStore) CreateLesson(ctx context.Context, lesson *domain.VocabLesson) error {
	args := m.Called(ctx, lesson)
	return args.Error(0)
}

// GetLesson implements store.VocabStore.
func (m *VocabStore) GetLesson(ctx context.Context, id uuid.UUID) (*store.LessonSummary, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*store.LessonSummary); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateLesson implements store.VocabStore.
func (m *VocabStore) UpdateLesson(ctx context.Context, lesson *domain.VocabLesson) error {
	args := m.Called(ctx, lesson)
	return args.Error(0)
}

// DeleteLesson implements store.VocabStore.
func (m *VocabStore) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ListLessons implements store.VocabStore.
func (m *VocabStore) ListLessons(ctx context.Context, filter store.LessonFilter) ([]*store.LessonSummary, error) {
	args := m.Called(ctx, filter)
	if v, ok := args.Get(0).([]*store.LessonSummary); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateWord implements store.VocabStore.
func (m *VocabStore) CreateWord(ctx context.Context, word *domain.Word) error {
	args := m.Called(ctx, word)
	return args.Error(0)
}

// CreateWords implements store.VocabStore.
func (m *VocabStore) CreateWords(ctx context.Context, words []*domain.Word) error {
	args := m.Called(ctx, words)
	return args.Error(0)
}

// GetWord implements store.VocabStore.
func (m *VocabStore) GetWord(ctx context.Context, id uuid.UUID) (*domain.Word, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.Word); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateWord implements store.VocabStore.
func (m *VocabStore) UpdateWord(ctx context.Context, word *domain.Word) error {
	args := m.Called(ctx, word)
	return args.Error(0)
}

// DeleteWord implements store.VocabStore.
func (m *VocabStore) DeleteWord(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ListWords implements store.VocabStore.
func (m *VocabStore) ListWords(ctx context.Context, filter store.WordFilter) ([]*domain.Word, error) {
	args := m.Called(ctx, filter)
	if v, ok := args.Get(0).([]*domain.Word); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// WithTx returns the mock itself so expectations cover transactional calls.
func (m *VocabStore) WithTx(*sql.Tx) store.VocabStore {
	return m
}
