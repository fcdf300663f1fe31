package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/store"
)

const (
	wordColumns = `w.id, w.lesson_id, w.term, w.definition, w.current_day, w.review_history,
		w.is_learned, w.last_review_date, w.next_review_date`

	// correctReviewsExpr counts the '1' characters of a word's history.
	correctReviewsExpr = `LENGTH(w.review_history) - LENGTH(REPLACE(w.review_history, '1', ''))`

	lessonSummarySelect = `
		SELECT l.id, l.user_id, l.title, l.description, l.created_at,
		       COUNT(w.id) AS word_count,
		       COALESCE(SUM(` + correctReviewsExpr + `), 0) AS correct_reviews
		FROM vocab_lessons l
		LEFT JOIN vocab_words w ON w.lesson_id = l.id
	`
)

// PostgresVocabStore implements store.VocabStore.
type PostgresVocabStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVocabStore creates a vocabulary store over db.
func NewPostgresVocabStore(db store.DBTX, logger *slog.Logger) *PostgresVocabStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresVocabStore{
		db:     db,
		logger: logger.With(slog.String("component", "vocab_store")),
	}
}

var _ store.VocabStore = (*PostgresVocabStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresVocabStore) WithTx(tx *sql.Tx) store.VocabStore {
	return &PostgresVocabStore{db: tx, logger: s.logger}
}

// CreateLesson inserts a lesson. An unknown owner maps to store.ErrInvalidEntity.
func (s *PostgresVocabStore) CreateLesson(ctx context.Context, lesson *domain.VocabLesson) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := lesson.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vocab_lessons (id, user_id, title, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, lesson.ID, lesson.UserID, lesson.Title, lesson.Description, lesson.CreatedAt)
	if err != nil {
		log.Error("failed to create lesson",
			slog.String("error", err.Error()),
			slog.String("lesson_id", lesson.ID.String()))
		return MapError(err)
	}
	log.Debug("lesson created", slog.String("lesson_id", lesson.ID.String()))
	return nil
}

func scanLessonSummary(row interface{ Scan(...any) error }) (*store.LessonSummary, error) {
	var l store.LessonSummary
	err := row.Scan(&l.ID, &l.UserID, &l.Title, &l.Description, &l.CreatedAt,
		&l.WordCount, &l.CorrectReviews)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLesson loads a lesson with its word and correct-review counts.
func (s *PostgresVocabStore) GetLesson(ctx context.Context, id uuid.UUID) (*store.LessonSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := lessonSummarySelect + ` WHERE l.id = $1 GROUP BY l.id`
	lesson, err := scanLessonSummary(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get lesson",
				slog.String("error", err.Error()),
				slog.String("lesson_id", id.String()))
		}
		return nil, mapNotFound(err, store.ErrLessonNotFound)
	}
	return lesson, nil
}

// UpdateLesson writes title and description.
func (s *PostgresVocabStore) UpdateLesson(ctx context.Context, lesson *domain.VocabLesson) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := lesson.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE vocab_lessons SET title = $1, description = $2 WHERE id = $3`,
		lesson.Title, lesson.Description, lesson.ID)
	if err != nil {
		log.Error("failed to update lesson",
			slog.String("error", err.Error()),
			slog.String("lesson_id", lesson.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrLessonNotFound)
}

// DeleteLesson removes the lesson; its words cascade.
func (s *PostgresVocabStore) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM vocab_lessons WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete lesson",
			slog.String("error", err.Error()),
			slog.String("lesson_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrLessonNotFound)
}

// ListLessons returns the owner's lessons with their counts.
func (s *PostgresVocabStore) ListLessons(ctx context.Context, filter store.LessonFilter) ([]*store.LessonSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b queryBuilder
	b.where("l.user_id = %s", filter.UserID)
	if term := strings.TrimSpace(filter.Search); term != "" {
		b.where("(l.title ILIKE %[1]s OR l.description ILIKE %[1]s)", containsPattern(term))
	}

	order := "l.created_at DESC"
	if filter.Ordering == "created_at" {
		order = "l.created_at ASC"
	}

	query := lessonSummarySelect + b.clause() + ` GROUP BY l.id ORDER BY ` + order
	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		log.Error("failed to list lessons", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var lessons []*store.LessonSummary
	for rows.Next() {
		l, err := scanLessonSummary(rows)
		if err != nil {
			return nil, MapError(err)
		}
		lessons = append(lessons, l)
	}
	return lessons, MapError(rows.Err())
}

const insertWordQuery = `
	INSERT INTO vocab_words (id, lesson_id, term, definition, current_day, review_history,
		is_learned, last_review_date, next_review_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (s *PostgresVocabStore) insertWord(ctx context.Context, w *domain.Word) error {
	if err := w.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, insertWordQuery,
		w.ID, w.LessonID, w.Term, w.Definition, w.CurrentDay, w.ReviewHistory,
		w.IsLearned, w.LastReviewDate, w.NextReviewDate)
	return err
}

// CreateWord inserts a word. An unknown lesson maps to store.ErrInvalidEntity.
func (s *PostgresVocabStore) CreateWord(ctx context.Context, word *domain.Word) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := word.Validate(); err != nil {
		return err
	}
	if err := s.insertWord(ctx, word); err != nil {
		log.Error("failed to create word",
			slog.String("error", err.Error()),
			slog.String("lesson_id", word.LessonID.String()))
		return MapError(err)
	}
	return nil
}

// CreateWords inserts each word in turn and stops at the first failure.
func (s *PostgresVocabStore) CreateWords(ctx context.Context, words []*domain.Word) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for i, w := range words {
		if err := s.insertWord(ctx, w); err != nil {
			log.Error("failed to insert word in batch",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			return fmt.Errorf("word %d: %w", i+1, MapError(err))
		}
	}
	log.Debug("words inserted", slog.Int("count", len(words)))
	return nil
}

func scanWord(row interface{ Scan(...any) error }) (*domain.Word, error) {
	var w domain.Word
	err := row.Scan(&w.ID, &w.LessonID, &w.Term, &w.Definition, &w.CurrentDay,
		&w.ReviewHistory, &w.IsLearned, &w.LastReviewDate, &w.NextReviewDate)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWord returns store.ErrWordNotFound when missing.
func (s *PostgresVocabStore) GetWord(ctx context.Context, id uuid.UUID) (*domain.Word, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + wordColumns + ` FROM vocab_words w WHERE w.id = $1`
	word, err := scanWord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get word",
				slog.String("error", err.Error()),
				slog.String("word_id", id.String()))
		}
		return nil, mapNotFound(err, store.ErrWordNotFound)
	}
	return word, nil
}

// UpdateWord writes the content and the review state.
func (s *PostgresVocabStore) UpdateWord(ctx context.Context, w *domain.Word) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := w.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE vocab_words
		SET term = $1, definition = $2, current_day = $3, review_history = $4,
		    is_learned = $5, last_review_date = $6, next_review_date = $7
		WHERE id = $8
	`, w.Term, w.Definition, w.CurrentDay, w.ReviewHistory,
		w.IsLearned, w.LastReviewDate, w.NextReviewDate, w.ID)
	if err != nil {
		log.Error("failed to update word",
			slog.String("error", err.Error()),
			slog.String("word_id", w.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrWordNotFound)
}

// DeleteWord removes a word.
func (s *PostgresVocabStore) DeleteWord(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM vocab_words WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete word",
			slog.String("error", err.Error()),
			slog.String("word_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrWordNotFound)
}

var wordOrderings = map[string]string{
	"next_review_date":  "w.next_review_date ASC NULLS LAST, w.id",
	"-next_review_date": "w.next_review_date DESC NULLS LAST, w.id",
	"current_day":       "w.current_day ASC, w.next_review_date ASC NULLS LAST",
	"-current_day":      "w.current_day DESC, w.next_review_date ASC NULLS LAST",
}

// ListWords returns the words of the user's lessons matching filter.
func (s *PostgresVocabStore) ListWords(ctx context.Context, filter store.WordFilter) ([]*domain.Word, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b queryBuilder
	b.where("l.user_id = %s", filter.UserID)
	if filter.LessonID != nil {
		b.where("w.lesson_id = %s", *filter.LessonID)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		b.where("(w.term ILIKE %[1]s OR w.definition ILIKE %[1]s)", containsPattern(term))
	}
	if filter.IsLearned != nil {
		b.where("w.is_learned = %s", *filter.IsLearned)
	}
	if filter.CurrentDay != nil {
		b.where("w.current_day = %s", *filter.CurrentDay)
	}
	if filter.DueBy != nil {
		b.where("w.next_review_date <= %s AND NOT w.is_learned", *filter.DueBy)
	}
	if filter.Unfinished {
		b.where("w.current_day < %s AND NOT w.is_learned", domain.ReviewDays)
	}

	order, ok := wordOrderings[filter.Ordering]
	if !ok {
		order = wordOrderings["next_review_date"]
	}

	query := `SELECT ` + wordColumns + `
		FROM vocab_words w
		JOIN vocab_lessons l ON l.id = w.lesson_id` + b.clause() + ` ORDER BY ` + order

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		log.Error("failed to list words", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var words []*domain.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, MapError(err)
		}
		words = append(words, w)
	}
	return words, MapError(rows.Err())
}
