package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// VideoStore is a testify mock of store.VideoStore.
type VideoStore struct {
	mock.Mock
}

var _ store.VideoStore = (*VideoStore)(nil)

// CreateLesson implements store.VideoStore.
func (m *VideoStore) CreateLesson(ctx context.Context, lesson *domain.VideoLesson) error {
	args := m.Called(ctx, lesson)
	return args.Error(0)
}

// GetLesson implements store.VideoStore.
func (m *VideoStore) GetLesson(ctx context.Context, id uuid.UUID) (*domain.VideoLesson, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.VideoLesson); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateLesson implements store.VideoStore.
func (m *VideoStore) UpdateLesson(ctx context.Context, lesson *domain.VideoLesson) error {
	args := m.Called(ctx, lesson)
	return args.Error(0)
}

// ListPublished implements store.VideoStore.
func (m *VideoStore) ListPublished(ctx context.Context, filter store.VideoLessonFilter) ([]*domain.VideoLesson, error) {
	args := m.Called(ctx, filter)
	if v, ok := args.Get(0).([]*domain.VideoLesson); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByCreator implements store.VideoStore.
func (m *VideoStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.VideoLesson, error) {
	args := m.Called(ctx, creatorID)
	if v, ok := args.Get(0).([]*domain.VideoLesson); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateVideo implements store.VideoStore.
func (m *VideoStore) CreateVideo(ctx context.Context, video *domain.Video) error {
	args := m.Called(ctx, video)
	return args.Error(0)
}

// GetVideo implements store.VideoStore.
func (m *VideoStore) GetVideo(ctx context.Context, id uuid.UUID) (*domain.Video, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.Video); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// ListVideos implements store.VideoStore.
func (m *VideoStore) ListVideos(ctx context.Context, lessonID uuid.UUID) ([]*domain.Video, error) {
	args := m.Called(ctx, lessonID)
	if v, ok := args.Get(0).([]*domain.Video); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CountVideos implements store.VideoStore.
func (m *VideoStore) CountVideos(ctx context.Context, lessonID uuid.UUID) (int, error) {
	args := m.Called(ctx, lessonID)
	return args.Int(0), args.Error(1)
}

// Enroll implements store.VideoStore.
func (m *VideoStore) Enroll(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, lessonID)
	return args.Bool(0), args.Error(1)
}

// IsEnrolled implements store.VideoStore.
func (m *VideoStore) IsEnrolled(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, lessonID)
	return args.Bool(0), args.Error(1)
}

// UpsertRating implements store.VideoStore.
func (m *VideoStore) UpsertRating(ctx context.Context, rating *domain.Rating) (bool, error) {
	args := m.Called(ctx, rating)
	return args.Bool(0), args.Error(1)
}

// GetRating implements store.VideoStore.
func (m *VideoStore) GetRating(ctx context.Context, userID uuid.UUID, lessonID uuid.UUID) (*domain.Rating, error) {
	args := m.Called(ctx, userID, lessonID)
	if v, ok := args.Get(0).(*domain.Rating); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// RatingStats implements store.VideoStore.
func (m *VideoStore) RatingStats(ctx context.Context, lessonID uuid.UUID) (*store.RatingStats, error) {
	args := m.Called(ctx, lessonID)
	if v, ok := args.Get(0).(*store.RatingStats); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// RecentRatings implements store.VideoStore.
func (m *VideoStore) RecentRatings(ctx context.Context, lessonID uuid.UUID, limit int) ([]*domain.Rating, error) {
	args := m.Called(ctx, lessonID, limit)
	if v, ok := args.Get(0).([]*domain.Rating); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateQuestion implements store.VideoStore.
func (m *VideoStore) CreateQuestion(ctx context.Context, q *domain.LessonQuestion) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// GetQuestion implements store.VideoStore.
func (m *VideoStore) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.LessonQuestion, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*domain.LessonQuestion); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// ListQuestions implements store.VideoStore.
func (m *VideoStore) ListQuestions(ctx context.Context, lessonID uuid.UUID) ([]*store.QuestionWithAnswers, error) {
	args := m.Called(ctx, lessonID)
	if v, ok := args.Get(0).([]*store.QuestionWithAnswers); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateAnswer implements store.VideoStore.
func (m *VideoStore) CreateAnswer(ctx context.Context, a *domain.LessonAnswer) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// GetView implements store.VideoStore.
func (m *VideoStore) GetView(ctx context.Context, userID uuid.UUID, videoID uuid.UUID) (*domain.VideoView, error) {
	args := m.Called(ctx, userID, videoID)
	if v, ok := args.Get(0).(*domain.VideoView); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// SaveView implements store.VideoStore.
func (m *VideoStore) SaveView(ctx context.Context, view *domain.VideoView) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

// WithTx returns the mock itself so expectations cover transactional calls.
func (m *VideoStore) WithTx(*sql.Tx) store.VideoStore {
	return m
}
