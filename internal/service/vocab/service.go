// Package vocab implements the vocabulary app: lessons owned by one user,
// their words, and the 8-tick Leitner review of each word.
package vocab

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/domain/srs"
	"github.com/phrazzld/campus-api/internal/importer"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/store"
)

// Lesson is a lesson with its word count and learning progress.
type Lesson struct {
	domain.VocabLesson
	WordCount       int     `json:"word_count"`
	ProgressPercent float64 `json:"progress_percent"`
}

// WordQuery holds the word list filters.
type WordQuery struct {
	Search     string
	LessonID   *uuid.UUID
	IsLearned  *bool
	CurrentDay *int
	// TodayReview keeps unlearned words due today or earlier.
	TodayReview bool
	// ToReview additionally requires remaining scheduled reviews.
	ToReview bool
	Ordering string
}

// ImportResult counts the outcome of a word import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Service is the vocabulary use case set. Every method is scoped to userID:
// lessons and words of other users behave as missing.
type Service interface {
	ListLessons(ctx context.Context, userID uuid.UUID, search, ordering string) ([]*Lesson, error)
	CreateLesson(ctx context.Context, userID uuid.UUID, title, description string) (*Lesson, error)
	GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*Lesson, error)
	UpdateLesson(ctx context.Context, userID, lessonID uuid.UUID, title, description string) (*Lesson, error)
	DeleteLesson(ctx context.Context, userID, lessonID uuid.UUID) error

	ListWords(ctx context.Context, userID uuid.UUID, q WordQuery) ([]*domain.Word, error)
	CreateWord(ctx context.Context, userID, lessonID uuid.UUID, term, definition string) (*domain.Word, error)
	GetWord(ctx context.Context, userID, wordID uuid.UUID) (*domain.Word, error)
	UpdateWord(ctx context.Context, userID, wordID uuid.UUID, term, definition string) (*domain.Word, error)
	DeleteWord(ctx context.Context, userID, wordID uuid.UUID) error

	// Review records one answer for the word on today's schedule. Scheduling
	// rule violations are returned as the srs errors.
	Review(ctx context.Context, userID, wordID uuid.UUID, correct bool) (*domain.Word, error)

	// ImportWords parses an .xlsx or .csv file and adds its rows to the
	// lesson in one transaction.
	ImportWords(ctx context.Context, userID, lessonID uuid.UUID, filename string, r io.Reader) (*ImportResult, error)

	Stats(ctx context.Context, userID uuid.UUID) (*store.VocabStats, error)
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	words   store.VocabStore
	reports store.ReportStore
	srs     srs.Service
	db      *sql.DB
	today   func() domain.Date
	logger  *slog.Logger
}

var _ Service = (*ServiceImpl)(nil)

// NewService creates a vocabulary service.
func NewService(
	words store.VocabStore,
	reports store.ReportStore,
	scheduler srs.Service,
	db *sql.DB,
	logger *slog.Logger,
) *ServiceImpl {
	if scheduler == nil {
		scheduler = srs.NewDefaultService()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceImpl{
		words:   words,
		reports: reports,
		srs:     scheduler,
		db:      db,
		today:   domain.Today,
		logger:  logger.With(slog.String("component", "vocab_service")),
	}
}

// WithClock replaces the source of "today". It is meant for tests and the
// import command.
func (s *ServiceImpl) WithClock(today func() domain.Date) *ServiceImpl {
	s.today = today
	return s
}

func toLesson(sum *store.LessonSummary) *Lesson {
	return &Lesson{
		VocabLesson:     sum.VocabLesson,
		WordCount:       sum.WordCount,
		ProgressPercent: domain.LessonProgress(sum.CorrectReviews, sum.WordCount),
	}
}

// ListLessons implements Service.
func (s *ServiceImpl) ListLessons(ctx context.Context, userID uuid.UUID, search, ordering string) ([]*Lesson, error) {
	if ordering != "created_at" {
		ordering = "-created_at"
	}
	sums, err := s.words.ListLessons(ctx, store.LessonFilter{
		UserID:   userID,
		Search:   strings.TrimSpace(search),
		Ordering: ordering,
	})
	if err != nil {
		return nil, service.NewServiceError("vocab", "list_lessons", err)
	}
	lessons := make([]*Lesson, len(sums))
	for i, sum := range sums {
		lessons[i] = toLesson(sum)
	}
	return lessons, nil
}

// CreateLesson implements Service.
func (s *ServiceImpl) CreateLesson(ctx context.Context, userID uuid.UUID, title, description string) (*Lesson, error) {
	lesson, err := domain.NewVocabLesson(userID, title, description)
	if err != nil {
		return nil, err
	}
	if err := s.words.CreateLesson(ctx, lesson); err != nil {
		return nil, service.NewServiceError("vocab", "create_lesson", err)
	}
	return &Lesson{VocabLesson: *lesson}, nil
}

// ownedLesson loads a lesson and hides it from anyone but its owner.
func (s *ServiceImpl) ownedLesson(ctx context.Context, userID, lessonID uuid.UUID) (*store.LessonSummary, error) {
	sum, err := s.words.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if sum.UserID != userID {
		return nil, store.ErrLessonNotFound
	}
	return sum, nil
}

// GetLesson implements Service.
func (s *ServiceImpl) GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*Lesson, error) {
	sum, err := s.ownedLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	return toLesson(sum), nil
}

// UpdateLesson implements Service.
func (s *ServiceImpl) UpdateLesson(
	ctx context.Context,
	userID, lessonID uuid.UUID,
	title, description string,
) (*Lesson, error) {
	sum, err := s.ownedLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}
	sum.Title = strings.TrimSpace(title)
	sum.Description = strings.TrimSpace(description)
	if err := sum.VocabLesson.Validate(); err != nil {
		return nil, err
	}
	if err := s.words.UpdateLesson(ctx, &sum.VocabLesson); err != nil {
		return nil, service.NewServiceError("vocab", "update_lesson", err)
	}
	return toLesson(sum), nil
}

// DeleteLesson implements Service.
func (s *ServiceImpl) DeleteLesson(ctx context.Context, userID, lessonID uuid.UUID) error {
	if _, err := s.ownedLesson(ctx, userID, lessonID); err != nil {
		return err
	}
	if err := s.words.DeleteLesson(ctx, lessonID); err != nil {
		return service.NewServiceError("vocab", "delete_lesson", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("lesson deleted",
		slog.String("lesson_id", lessonID.String()))
	return nil
}

// ListWords implements Service.
func (s *ServiceImpl) ListWords(ctx context.Context, userID uuid.UUID, q WordQuery) ([]*domain.Word, error) {
	filter := store.WordFilter{
		UserID:     userID,
		LessonID:   q.LessonID,
		Search:     strings.TrimSpace(q.Search),
		IsLearned:  q.IsLearned,
		CurrentDay: q.CurrentDay,
		Ordering:   wordOrdering(q.Ordering),
	}
	if q.TodayReview || q.ToReview {
		filter.DueBy = s.today().Ptr()
	}
	filter.Unfinished = q.ToReview

	words, err := s.words.ListWords(ctx, filter)
	if err != nil {
		return nil, service.NewServiceError("vocab", "list_words", err)
	}
	return words, nil
}

func wordOrdering(o string) string {
	switch strings.TrimPrefix(o, "-") {
	case "next_review_date", "current_day":
		return o
	}
	return "next_review_date"
}

// CreateWord implements Service.
func (s *ServiceImpl) CreateWord(
	ctx context.Context,
	userID, lessonID uuid.UUID,
	term, definition string,
) (*domain.Word, error) {
	if _, err := s.ownedLesson(ctx, userID, lessonID); err != nil {
		if errors.Is(err, store.ErrLessonNotFound) {
			return nil, service.ErrNotOwned
		}
		return nil, err
	}
	word, err := domain.NewWord(lessonID, term, definition, s.today())
	if err != nil {
		return nil, err
	}
	if err := s.words.CreateWord(ctx, word); err != nil {
		return nil, service.NewServiceError("vocab", "create_word", err)
	}
	return word, nil
}

// GetWord implements Service.
func (s *ServiceImpl) GetWord(ctx context.Context, userID, wordID uuid.UUID) (*domain.Word, error) {
	word, err := s.words.GetWord(ctx, wordID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedLesson(ctx, userID, word.LessonID); err != nil {
		if errors.Is(err, store.ErrLessonNotFound) {
			return nil, store.ErrWordNotFound
		}
		return nil, err
	}
	return word, nil
}

// UpdateWord implements Service.
func (s *ServiceImpl) UpdateWord(
	ctx context.Context,
	userID, wordID uuid.UUID,
	term, definition string,
) (*domain.Word, error) {
	word, err := s.GetWord(ctx, userID, wordID)
	if err != nil {
		return nil, err
	}
	word.Term = strings.TrimSpace(term)
	word.Definition = strings.TrimSpace(definition)
	if err := word.Validate(); err != nil {
		return nil, err
	}
	if err := s.words.UpdateWord(ctx, word); err != nil {
		return nil, service.NewServiceError("vocab", "update_word", err)
	}
	return word, nil
}

// DeleteWord implements Service.
func (s *ServiceImpl) DeleteWord(ctx context.Context, userID, wordID uuid.UUID) error {
	if _, err := s.GetWord(ctx, userID, wordID); err != nil {
		return err
	}
	if err := s.words.DeleteWord(ctx, wordID); err != nil {
		return service.NewServiceError("vocab", "delete_word", err)
	}
	return nil
}

// Review implements Service.
func (s *ServiceImpl) Review(ctx context.Context, userID, wordID uuid.UUID, correct bool) (*domain.Word, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	word, err := s.GetWord(ctx, userID, wordID)
	if err != nil {
		return nil, err
	}

	updated, err := s.srs.Review(word, correct, s.today())
	if err != nil {
		return nil, err
	}
	if err := s.words.UpdateWord(ctx, updated); err != nil {
		log.Error("failed to save review", slog.String("error", err.Error()))
		return nil, service.NewServiceError("vocab", "review", err)
	}

	log.Debug("review recorded",
		slog.String("word_id", wordID.String()),
		slog.Bool("correct", correct),
		slog.Int("current_day", updated.CurrentDay),
		slog.Bool("learned", updated.IsLearned))
	return updated, nil
}

// ImportWords implements Service.
func (s *ServiceImpl) ImportWords(
	ctx context.Context,
	userID, lessonID uuid.UUID,
	filename string,
	r io.Reader,
) (*ImportResult, error) {
	if _, err := s.ownedLesson(ctx, userID, lessonID); err != nil {
		return nil, err
	}

	parsed, err := importer.Parse(filename, r)
	if err != nil {
		return nil, domain.NewValidationError("file", err.Error(), domain.ErrInvalidFormat)
	}

	today := s.today()
	words := make([]*domain.Word, 0, len(parsed.Rows))
	skipped := parsed.Skipped
	for _, row := range parsed.Rows {
		w, err := domain.NewWord(lessonID, row.Term, row.Definition, today)
		if err != nil {
			skipped++
			continue
		}
		words = append(words, w)
	}

	if len(words) > 0 {
		err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return s.words.WithTx(tx).CreateWords(ctx, words)
		})
		if err != nil {
			return nil, service.NewServiceError("vocab", "import", err)
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("words imported",
		slog.String("lesson_id", lessonID.String()),
		slog.Int("imported", len(words)),
		slog.Int("skipped", skipped))
	return &ImportResult{Imported: len(words), Skipped: skipped}, nil
}

// Stats implements Service.
func (s *ServiceImpl) Stats(ctx context.Context, userID uuid.UUID) (*store.VocabStats, error) {
	stats, err := s.reports.VocabStats(ctx, userID, s.today())
	if err != nil {
		return nil, service.NewServiceError("vocab", "stats", err)
	}
	return stats, nil
}
