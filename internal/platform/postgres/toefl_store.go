package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/store"
)

const (
	toeflQuestionColumns = `q.id, q.category_id, q.text, q.difficulty, q.expected_duration_seconds,
		q.min_word_count, q.is_active`
	submissionColumns = `id, user_id, question_id, type, status, overall_score, created_at, updated_at`
)

// PostgresToeflStore implements store.ToeflStore.
type PostgresToeflStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresToeflStore creates a TOEFL store over db.
func NewPostgresToeflStore(db store.DBTX, logger *slog.Logger) *PostgresToeflStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresToeflStore{
		db:     db,
		logger: logger.With(slog.String("component", "toefl_store")),
	}
}

var _ store.ToeflStore = (*PostgresToeflStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresToeflStore) WithTx(tx *sql.Tx) store.ToeflStore {
	return &PostgresToeflStore{db: tx, logger: s.logger}
}

// CreateCategory inserts a prompt category.
func (s *PostgresToeflStore) CreateCategory(ctx context.Context, c *domain.QuestionCategory) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.ValidCategoryType(c.Type) {
		return domain.ErrInvalidCategoryType
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO toefl_categories (id, name, type, is_active) VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, c.Type, c.IsActive)
	if err != nil {
		log.Error("failed to create category", slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// ListCategories returns active categories, optionally of one type.
func (s *PostgresToeflStore) ListCategories(ctx context.Context, kind *domain.CategoryType) ([]*domain.QuestionCategory, error) {
	var b queryBuilder
	b.where("is_active = %s", true)
	if kind != nil {
		b.where("type = %s", *kind)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, is_active FROM toefl_categories`+b.clause()+` ORDER BY name`, b.args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var categories []*domain.QuestionCategory
	for rows.Next() {
		var c domain.QuestionCategory
		var t string
		if err := rows.Scan(&c.ID, &c.Name, &t, &c.IsActive); err != nil {
			return nil, MapError(err)
		}
		c.Type = domain.CategoryType(t)
		categories = append(categories, &c)
	}
	return categories, MapError(rows.Err())
}

// CreateQuestion inserts a prompt. An unknown category maps to store.ErrInvalidEntity.
func (s *PostgresToeflStore) CreateQuestion(ctx context.Context, q *domain.ToeflQuestion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO toefl_questions (id, category_id, text, difficulty, expected_duration_seconds,
			min_word_count, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, q.ID, q.CategoryID, q.Text, q.Difficulty, q.ExpectedDurationSeconds, q.MinWordCount, q.IsActive)
	if err != nil {
		log.Error("failed to create toefl question", slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

func scanToeflQuestion(row interface{ Scan(...any) error }) (*domain.ToeflQuestion, error) {
	var q domain.ToeflQuestion
	err := row.Scan(&q.ID, &q.CategoryID, &q.Text, &q.Difficulty, &q.ExpectedDurationSeconds,
		&q.MinWordCount, &q.IsActive)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuestion returns store.ErrQuestionNotFound when missing.
func (s *PostgresToeflStore) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.ToeflQuestion, error) {
	q, err := scanToeflQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+toeflQuestionColumns+` FROM toefl_questions q WHERE q.id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err, store.ErrQuestionNotFound)
	}
	return q, nil
}

// RandomQuestion picks one active prompt from an active category.
func (s *PostgresToeflStore) RandomQuestion(
	ctx context.Context,
	categoryID *uuid.UUID,
	kind *domain.CategoryType,
) (*domain.ToeflQuestion, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b queryBuilder
	b.where("q.is_active AND c.is_active = %s", true)
	if categoryID != nil {
		b.where("q.category_id = %s", *categoryID)
	}
	if kind != nil {
		b.where("c.type = %s", *kind)
	}

	query := `SELECT ` + toeflQuestionColumns + `
		FROM toefl_questions q
		JOIN toefl_categories c ON c.id = q.category_id` + b.clause() + `
		ORDER BY RANDOM()
		LIMIT 1`
	q, err := scanToeflQuestion(s.db.QueryRowContext(ctx, query, b.args...))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to pick random question", slog.String("error", err.Error()))
		}
		return nil, mapNotFound(err, store.ErrQuestionNotFound)
	}
	return q, nil
}

// CreateSubmission inserts the submission header row.
func (s *PostgresToeflStore) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO toefl_submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sub.ID, sub.UserID, sub.QuestionID, sub.Type, sub.Status, sub.OverallScore,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		log.Error("failed to create submission",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return MapError(err)
	}
	return nil
}

func scanSubmission(row interface{ Scan(...any) error }) (*domain.Submission, error) {
	var sub domain.Submission
	var kind, status string
	err := row.Scan(&sub.ID, &sub.UserID, &sub.QuestionID, &kind, &status, &sub.OverallScore,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Type = domain.SubmissionType(kind)
	sub.Status = domain.SubmissionStatus(status)
	return &sub, nil
}

// GetSubmission loads the submission with whichever response and result exist.
func (s *PostgresToeflStore) GetSubmission(ctx context.Context, id uuid.UUID) (*store.SubmissionDetail, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM toefl_submissions WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get submission",
				slog.String("error", err.Error()),
				slog.String("submission_id", id.String()))
		}
		return nil, mapNotFound(err, store.ErrSubmissionNotFound)
	}
	detail := &store.SubmissionDetail{Submission: *sub}

	switch sub.Type {
	case domain.SubmissionWriting:
		var w domain.WritingSubmission
		err := s.db.QueryRowContext(ctx, `
			SELECT submission_id, text, word_count FROM toefl_writing WHERE submission_id = $1
		`, id).Scan(&w.SubmissionID, &w.Text, &w.WordCount)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, MapError(err)
		}
		if err == nil {
			detail.Writing = &w
		}
	case domain.SubmissionSpeaking:
		var sp domain.SpeakingSubmission
		err := s.db.QueryRowContext(ctx, `
			SELECT submission_id, audio_path, duration_seconds, transcript
			FROM toefl_speaking WHERE submission_id = $1
		`, id).Scan(&sp.SubmissionID, &sp.AudioPath, &sp.DurationSeconds, &sp.Transcript)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, MapError(err)
		}
		if err == nil {
			detail.Speaking = &sp
		}
	}

	var r domain.AssessmentResult
	var suggestions []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT submission_id, grammar, vocabulary, coherence, fluency, pronunciation,
		       feedback_summary, suggestions, updated_at
		FROM toefl_results WHERE submission_id = $1
	`, id).Scan(&r.SubmissionID, &r.Grammar, &r.Vocabulary, &r.Coherence, &r.Fluency,
		&r.Pronunciation, &r.FeedbackSummary, &suggestions, &r.UpdatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, MapError(err)
	default:
		if len(suggestions) > 0 {
			if err := json.Unmarshal(suggestions, &r.Suggestions); err != nil {
				return nil, fmt.Errorf("failed to decode suggestions: %w", err)
			}
		}
		detail.Result = &r
	}
	return detail, nil
}

// UpdateSubmission writes status and score.
func (s *PostgresToeflStore) UpdateSubmission(ctx context.Context, sub *domain.Submission) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sub.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE toefl_submissions SET status = $1, overall_score = $2, updated_at = $3 WHERE id = $4
	`, sub.Status, sub.OverallScore, sub.UpdatedAt, sub.ID)
	if err != nil {
		log.Error("failed to update submission",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubmissionNotFound)
}

// ListSubmissions returns the user's submissions newest first.
func (s *PostgresToeflStore) ListSubmissions(ctx context.Context, userID uuid.UUID) ([]*domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+submissionColumns+`
		FROM toefl_submissions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var subs []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, MapError(err)
		}
		subs = append(subs, sub)
	}
	return subs, MapError(rows.Err())
}

// CreateWriting stores the essay text of a writing submission.
func (s *PostgresToeflStore) CreateWriting(ctx context.Context, w *domain.WritingSubmission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO toefl_writing (submission_id, text, word_count) VALUES ($1, $2, $3)
	`, w.SubmissionID, w.Text, w.WordCount)
	return MapError(err)
}

// CreateSpeaking stores the audio reference of a speaking submission.
func (s *PostgresToeflStore) CreateSpeaking(ctx context.Context, sp *domain.SpeakingSubmission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO toefl_speaking (submission_id, audio_path, duration_seconds, transcript)
		VALUES ($1, $2, $3, $4)
	`, sp.SubmissionID, sp.AudioPath, sp.DurationSeconds, sp.Transcript)
	return MapError(err)
}

// UpdateTranscript saves the speech-to-text output.
func (s *PostgresToeflStore) UpdateTranscript(ctx context.Context, submissionID uuid.UUID, transcript string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE toefl_speaking SET transcript = $1 WHERE submission_id = $2`, transcript, submissionID)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrSubmissionNotFound)
}

// UpsertResult stores or replaces the assessment of a submission.
func (s *PostgresToeflStore) UpsertResult(ctx context.Context, r *domain.AssessmentResult) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	suggestions, err := json.Marshal(nonNilStrings(r.Suggestions))
	if err != nil {
		return fmt.Errorf("failed to encode suggestions: %w", err)
	}
	r.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO toefl_results (submission_id, grammar, vocabulary, coherence, fluency,
			pronunciation, feedback_summary, suggestions, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (submission_id) DO UPDATE
		SET grammar = EXCLUDED.grammar, vocabulary = EXCLUDED.vocabulary,
		    coherence = EXCLUDED.coherence, fluency = EXCLUDED.fluency,
		    pronunciation = EXCLUDED.pronunciation, feedback_summary = EXCLUDED.feedback_summary,
		    suggestions = EXCLUDED.suggestions, updated_at = EXCLUDED.updated_at
	`, r.SubmissionID, r.Grammar, r.Vocabulary, r.Coherence, r.Fluency, r.Pronunciation,
		r.FeedbackSummary, string(suggestions), r.UpdatedAt)
	if err != nil {
		log.Error("failed to upsert assessment result",
			slog.String("error", err.Error()),
			slog.String("submission_id", r.SubmissionID.String()))
		return MapError(err)
	}
	return nil
}
