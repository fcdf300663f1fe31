package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// VideoLessonFilter narrows the published lesson catalogue.
type VideoLessonFilter struct {
	Subject string
	Level   domain.LessonLevel
	Skill   string
	Search  string
}

// RatingStats aggregates the ratings of one lesson.
type RatingStats struct {
	Average      float64
	Total        int
	Distribution [5]int // index 0 holds one-star ratings
}

// QuestionWithAnswers is a lesson question and its answers in creation order.
type QuestionWithAnswers struct {
	domain.LessonQuestion
	Answers []domain.LessonAnswer
}

// VideoStore persists video lessons and everything hanging off them.
type VideoStore interface {
	CreateLesson(ctx context.Context, lesson *domain.VideoLesson) error
	// GetLesson returns ErrLessonNotFound for missing or deleted lessons.
	GetLesson(ctx context.Context, id uuid.UUID) (*domain.VideoLesson, error)
	UpdateLesson(ctx context.Context, lesson *domain.VideoLesson) error
	ListPublished(ctx context.Context, filter VideoLessonFilter) ([]*domain.VideoLesson, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.VideoLesson, error)

	CreateVideo(ctx context.Context, video *domain.Video) error
	// GetVideo returns ErrVideoNotFound for missing or deleted videos.
	GetVideo(ctx context.Context, id uuid.UUID) (*domain.Video, error)
	// ListVideos returns non-deleted videos newest first.
	ListVideos(ctx context.Context, lessonID uuid.UUID) ([]*domain.Video, error)
	CountVideos(ctx context.Context, lessonID uuid.UUID) (int, error)

	// Enroll is idempotent; created reports whether a row was inserted.
	Enroll(ctx context.Context, userID, lessonID uuid.UUID) (created bool, err error)
	IsEnrolled(ctx context.Context, userID, lessonID uuid.UUID) (bool, error)

	// UpsertRating creates or updates the user's rating for the lesson.
	UpsertRating(ctx context.Context, rating *domain.Rating) (created bool, err error)
	// GetRating returns ErrRatingNotFound when the user has not rated.
	GetRating(ctx context.Context, userID, lessonID uuid.UUID) (*domain.Rating, error)
	RatingStats(ctx context.Context, lessonID uuid.UUID) (*RatingStats, error)
	RecentRatings(ctx context.Context, lessonID uuid.UUID, limit int) ([]*domain.Rating, error)

	CreateQuestion(ctx context.Context, q *domain.LessonQuestion) error
	// GetQuestion returns ErrQuestionNotFound when missing.
	GetQuestion(ctx context.Context, id uuid.UUID) (*domain.LessonQuestion, error)
	ListQuestions(ctx context.Context, lessonID uuid.UUID) ([]*QuestionWithAnswers, error)
	CreateAnswer(ctx context.Context, a *domain.LessonAnswer) error

	// GetView returns ErrNotFound when the user never watched the video.
	GetView(ctx context.Context, userID, videoID uuid.UUID) (*domain.VideoView, error)
	// SaveView inserts or replaces the view row.
	SaveView(ctx context.Context, view *domain.VideoView) error

	WithTx(tx *sql.Tx) VideoStore
}
