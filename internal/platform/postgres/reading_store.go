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
	attemptColumns = `id, user_id, test_id, status, score, total_time, started_at, finished_at`
	answerColumns  = `id, attempt_id, question_id, selected_answer, is_correct, time_spent_seconds`
)

// PostgresReadingStore implements store.ReadingStore.
type PostgresReadingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReadingStore creates a reading store over db.
func NewPostgresReadingStore(db store.DBTX, logger *slog.Logger) *PostgresReadingStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReadingStore{
		db:     db,
		logger: logger.With(slog.String("component", "reading_store")),
	}
}

var _ store.ReadingStore = (*PostgresReadingStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresReadingStore) WithTx(tx *sql.Tx) store.ReadingStore {
	return &PostgresReadingStore{db: tx, logger: s.logger}
}

// CreateTest inserts the test, then its passages and their questions. Missing
// IDs are generated and parent IDs are filled in on the nested values.
func (s *PostgresReadingStore) CreateTest(ctx context.Context, t *domain.ReadingTest) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_tests (id, title, mode, time_limit_minutes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Title, t.Mode, t.TimeLimitMinutes, t.IsActive, t.CreatedAt)
	if err != nil {
		log.Error("failed to create reading test", slog.String("error", err.Error()))
		return MapError(err)
	}

	for i := range t.Passages {
		p := &t.Passages[i]
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.TestID = t.ID
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO reading_passages (id, test_id, title, content, sort_order)
			VALUES ($1, $2, $3, $4, $5)
		`, p.ID, p.TestID, p.Title, p.Content, p.Order)
		if err != nil {
			log.Error("failed to create passage", slog.String("error", err.Error()))
			return MapError(err)
		}

		for j := range p.Questions {
			q := &p.Questions[j]
			if q.ID == uuid.Nil {
				q.ID = uuid.New()
			}
			q.PassageID = p.ID
			choices, err := json.Marshal(nonNilStrings(q.Choices))
			if err != nil {
				return fmt.Errorf("failed to encode choices: %w", err)
			}
			_, err = s.db.ExecContext(ctx, `
				INSERT INTO reading_questions (id, passage_id, question_text, question_type,
					choices, correct_answer, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, q.ID, q.PassageID, q.QuestionText, q.QuestionType, string(choices), q.CorrectAnswer, q.Order)
			if err != nil {
				log.Error("failed to create reading question", slog.String("error", err.Error()))
				return MapError(err)
			}
		}
	}

	log.Info("reading test created",
		slog.String("test_id", t.ID.String()),
		slog.Int("passages", len(t.Passages)))
	return nil
}

// ListTests returns active tests with their content counts.
func (s *PostgresReadingStore) ListTests(ctx context.Context, mode *domain.TestMode) ([]*store.TestSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b queryBuilder
	b.where("t.is_active = %s", true)
	if mode != nil {
		b.where("t.mode = %s", *mode)
	}

	query := `
		SELECT t.id, t.title, t.mode, t.time_limit_minutes, t.is_active, t.created_at,
		       COUNT(DISTINCT p.id), COUNT(q.id)
		FROM reading_tests t
		LEFT JOIN reading_passages p ON p.test_id = t.id
		LEFT JOIN reading_questions q ON q.passage_id = p.id` + b.clause() + `
		GROUP BY t.id
		ORDER BY t.created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		log.Error("failed to list reading tests", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tests []*store.TestSummary
	for rows.Next() {
		var t store.TestSummary
		var m string
		if err := rows.Scan(&t.ID, &t.Title, &m, &t.TimeLimitMinutes, &t.IsActive, &t.CreatedAt,
			&t.PassageCount, &t.QuestionCount); err != nil {
			return nil, MapError(err)
		}
		t.Mode = domain.TestMode(m)
		tests = append(tests, &t)
	}
	return tests, MapError(rows.Err())
}

// GetTest loads the test, its passages and their questions.
func (s *PostgresReadingStore) GetTest(ctx context.Context, id uuid.UUID) (*domain.ReadingTest, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var t domain.ReadingTest
	var mode string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, mode, time_limit_minutes, is_active, created_at
		FROM reading_tests WHERE id = $1
	`, id).Scan(&t.ID, &t.Title, &mode, &t.TimeLimitMinutes, &t.IsActive, &t.CreatedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get reading test",
				slog.String("error", err.Error()),
				slog.String("test_id", id.String()))
		}
		return nil, mapNotFound(err, store.ErrTestNotFound)
	}
	t.Mode = domain.TestMode(mode)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, test_id, title, content, sort_order
		FROM reading_passages WHERE test_id = $1 ORDER BY sort_order, id
	`, id)
	if err != nil {
		return nil, MapError(err)
	}
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var p domain.Passage
		if err := rows.Scan(&p.ID, &p.TestID, &p.Title, &p.Content, &p.Order); err != nil {
			_ = rows.Close()
			return nil, MapError(err)
		}
		index[p.ID] = len(t.Passages)
		t.Passages = append(t.Passages, p)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	qrows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.passage_id, q.question_text, q.question_type, q.choices,
		       q.correct_answer, q.sort_order
		FROM reading_questions q
		JOIN reading_passages p ON p.id = q.passage_id
		WHERE p.test_id = $1
		ORDER BY q.sort_order, q.id
	`, id)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = qrows.Close() }()

	for qrows.Next() {
		var q domain.ReadingQuestion
		var qtype string
		var choices []byte
		if err := qrows.Scan(&q.ID, &q.PassageID, &q.QuestionText, &qtype, &choices,
			&q.CorrectAnswer, &q.Order); err != nil {
			return nil, MapError(err)
		}
		q.QuestionType = domain.QuestionType(qtype)
		if len(choices) > 0 {
			if err := json.Unmarshal(choices, &q.Choices); err != nil {
				return nil, fmt.Errorf("failed to decode choices of question %s: %w", q.ID, err)
			}
		}
		if i, ok := index[q.PassageID]; ok {
			t.Passages[i].Questions = append(t.Passages[i].Questions, q)
		}
	}
	if err := qrows.Err(); err != nil {
		return nil, MapError(err)
	}
	return &t, nil
}

func scanAttempt(row interface{ Scan(...any) error }) (*domain.Attempt, error) {
	var a domain.Attempt
	var status string
	err := row.Scan(&a.ID, &a.UserID, &a.TestID, &status, &a.Score, &a.TotalTimeSeconds,
		&a.StartedAt, &a.FinishedAt)
	if err != nil {
		return nil, err
	}
	a.Status = domain.AttemptStatus(status)
	return &a, nil
}

// CreateAttempt inserts a new attempt.
func (s *PostgresReadingStore) CreateAttempt(ctx context.Context, a *domain.Attempt) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.UserID, a.TestID, a.Status, a.Score, a.TotalTimeSeconds, a.StartedAt, a.FinishedAt)
	if err != nil {
		log.Error("failed to create attempt",
			slog.String("error", err.Error()),
			slog.String("test_id", a.TestID.String()))
		return MapError(err)
	}
	return nil
}

// GetAttempt returns store.ErrAttemptNotFound when missing.
func (s *PostgresReadingStore) GetAttempt(ctx context.Context, id uuid.UUID) (*domain.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptColumns+` FROM reading_attempts WHERE id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err, store.ErrAttemptNotFound)
	}
	return a, nil
}

// FindInProgress returns the most recent open attempt.
func (s *PostgresReadingStore) FindInProgress(ctx context.Context, userID, testID uuid.UUID) (*domain.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+`
		FROM reading_attempts
		WHERE user_id = $1 AND test_id = $2 AND status = $3
		ORDER BY started_at DESC
		LIMIT 1`, userID, testID, domain.AttemptInProgress))
	if err != nil {
		return nil, mapNotFound(err, store.ErrAttemptNotFound)
	}
	return a, nil
}

// UpdateAttempt writes status, score and timing.
func (s *PostgresReadingStore) UpdateAttempt(ctx context.Context, a *domain.Attempt) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE reading_attempts
		SET status = $1, score = $2, total_time = $3, finished_at = $4
		WHERE id = $5
	`, a.Status, a.Score, a.TotalTimeSeconds, a.FinishedAt, a.ID)
	if err != nil {
		log.Error("failed to update attempt",
			slog.String("error", err.Error()),
			slog.String("attempt_id", a.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAttemptNotFound)
}

// ListAttempts returns the user's attempts newest first.
func (s *PostgresReadingStore) ListAttempts(ctx context.Context, userID uuid.UUID) ([]*domain.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptColumns+`
		FROM reading_attempts WHERE user_id = $1 ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var attempts []*domain.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, MapError(err)
		}
		attempts = append(attempts, a)
	}
	return attempts, MapError(rows.Err())
}

func scanAnswer(row interface{ Scan(...any) error }) (*domain.AttemptAnswer, error) {
	var a domain.AttemptAnswer
	if err := row.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedAnswer, &a.IsCorrect,
		&a.TimeSpentSeconds); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAnswer returns store.ErrNotFound when the question is unanswered.
func (s *PostgresReadingStore) GetAnswer(ctx context.Context, attemptID, questionID uuid.UUID) (*domain.AttemptAnswer, error) {
	a, err := scanAnswer(s.db.QueryRowContext(ctx, `SELECT `+answerColumns+`
		FROM reading_answers WHERE attempt_id = $1 AND question_id = $2`, attemptID, questionID))
	if err != nil {
		return nil, mapNotFound(err, store.ErrNotFound)
	}
	return a, nil
}

// CreateAnswer inserts an answer. A second answer to the same question maps
// to store.ErrDuplicate.
func (s *PostgresReadingStore) CreateAnswer(ctx context.Context, a *domain.AttemptAnswer) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_answers (`+answerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.AttemptID, a.QuestionID, a.SelectedAnswer, a.IsCorrect, a.TimeSpentSeconds)
	if err != nil {
		if !IsUniqueViolation(err) {
			log.Error("failed to create answer",
				slog.String("error", err.Error()),
				slog.String("attempt_id", a.AttemptID.String()))
		}
		return MapError(err)
	}
	return nil
}

// UpsertAnswer replaces any earlier answer to the same question.
func (s *PostgresReadingStore) UpsertAnswer(ctx context.Context, a *domain.AttemptAnswer) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reading_answers (`+answerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (attempt_id, question_id)
		DO UPDATE SET selected_answer = EXCLUDED.selected_answer,
		              is_correct = EXCLUDED.is_correct,
		              time_spent_seconds = EXCLUDED.time_spent_seconds
		RETURNING id
	`, a.ID, a.AttemptID, a.QuestionID, a.SelectedAnswer, a.IsCorrect, a.TimeSpentSeconds).Scan(&a.ID)
	if err != nil {
		log.Error("failed to upsert answer",
			slog.String("error", err.Error()),
			slog.String("attempt_id", a.AttemptID.String()))
		return MapError(err)
	}
	return nil
}

// ListAnswers returns every answer recorded for the attempt.
func (s *PostgresReadingStore) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]*domain.AttemptAnswer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+answerColumns+`
		FROM reading_answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var answers []*domain.AttemptAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, MapError(err)
		}
		answers = append(answers, a)
	}
	return answers, MapError(rows.Err())
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
