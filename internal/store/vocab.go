package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// LessonFilter narrows ListLessons. UserID is required.
type LessonFilter struct {
	UserID uuid.UUID
	Search string
	// Ordering is "created_at" or "-created_at" (default).
	Ordering string
}

// LessonSummary is a lesson with the counts needed for its progress.
type LessonSummary struct {
	domain.VocabLesson
	WordCount      int
	CorrectReviews int
}

// WordFilter narrows ListWords. UserID is required; nil fields are ignored.
type WordFilter struct {
	UserID     uuid.UUID
	LessonID   *uuid.UUID
	Search     string
	IsLearned  *bool
	CurrentDay *int
	// DueBy keeps unlearned words whose next review is on or before the date.
	DueBy *domain.Date
	// Unfinished keeps words that still have scheduled reviews left.
	Unfinished bool
	// Ordering is next_review_date (default) or current_day, optionally prefixed with "-".
	Ordering string
}

// VocabStore persists vocabulary lessons and words.
type VocabStore interface {
	CreateLesson(ctx context.Context, lesson *domain.VocabLesson) error
	// GetLesson returns ErrLessonNotFound when missing.
	GetLesson(ctx context.Context, id uuid.UUID) (*LessonSummary, error)
	UpdateLesson(ctx context.Context, lesson *domain.VocabLesson) error
	// DeleteLesson removes the lesson and its words.
	DeleteLesson(ctx context.Context, id uuid.UUID) error
	ListLessons(ctx context.Context, filter LessonFilter) ([]*LessonSummary, error)

	CreateWord(ctx context.Context, word *domain.Word) error
	// CreateWords inserts words in one statement per word; callers wrap it
	// in a transaction for atomic imports.
	CreateWords(ctx context.Context, words []*domain.Word) error
	// GetWord returns ErrWordNotFound when missing.
	GetWord(ctx context.Context, id uuid.UUID) (*domain.Word, error)
	// UpdateWord writes every mutable field including review state.
	UpdateWord(ctx context.Context, word *domain.Word) error
	DeleteWord(ctx context.Context, id uuid.UUID) error
	ListWords(ctx context.Context, filter WordFilter) ([]*domain.Word, error)

	WithTx(tx *sql.Tx) VocabStore
}
