// Package reading implements the reading comprehension app: timed exam and
// practice tests over passages, attempts with graded answers, results and a
// progress dashboard.
package reading

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/store"
)

// AnswerInput is one answer sent by a student.
type AnswerInput struct {
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedAnswer   string    `json:"selected_answer"`
	TimeSpentSeconds *int      `json:"time_spent_seconds"`
}

// AttemptStart identifies the attempt a student works on.
type AttemptStart struct {
	AttemptID uuid.UUID            `json:"attempt_id"`
	TestID    uuid.UUID            `json:"test_id"`
	Status    domain.AttemptStatus `json:"status"`
	StartedAt time.Time            `json:"started_at"`
	Resumed   bool                 `json:"-"`
}

// PracticeAnswer is the immediate feedback on a practice answer. Once given,
// an answer cannot change.
type PracticeAnswer struct {
	AnswerID       uuid.UUID `json:"answer_id"`
	IsCorrect      bool      `json:"is_correct"`
	CorrectAnswer  string    `json:"correct_answer"`
	SelectedAnswer string    `json:"selected_answer"`
	Locked         bool      `json:"locked"`
}

// Outcome is the score of a completed attempt.
type Outcome struct {
	AttemptID uuid.UUID            `json:"attempt_id"`
	Score     int                  `json:"score"`
	Accuracy  int                  `json:"accuracy"`
	Correct   int                  `json:"correct"`
	Total     int                  `json:"total"`
	Status    domain.AttemptStatus `json:"status"`
}

// Service is the reading use case set.
type Service interface {
	CreateTest(ctx context.Context, actor service.Actor, test *domain.ReadingTest) (*domain.ReadingTest, error)
	ListTests(ctx context.Context, mode *domain.TestMode) ([]*store.TestSummary, error)
	// GetTest returns the test without correct answers.
	GetTest(ctx context.Context, testID uuid.UUID) (*domain.ReadingTest, error)

	StartAttempt(ctx context.Context, actor service.Actor, testID uuid.UUID) (*AttemptStart, error)
	Answer(ctx context.Context, actor service.Actor, attemptID uuid.UUID, in AnswerInput) (*PracticeAnswer, error)
	Submit(ctx context.Context, actor service.Actor, attemptID uuid.UUID, answers []AnswerInput) (*Outcome, error)
	Finish(ctx context.Context, actor service.Actor, attemptID uuid.UUID) (*Outcome, error)

	Result(ctx context.Context, actor service.Actor, attemptID uuid.UUID) (*Result, error)
	History(ctx context.Context, actor service.Actor) ([]store.AttemptRow, error)
	Dashboard(ctx context.Context, actor service.Actor) (*Dashboard, error)
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	tests   store.ReadingStore
	reports store.ReportStore
	db      *sql.DB
	now     func() time.Time
	logger  *slog.Logger
}

var _ Service = (*ServiceImpl)(nil)

// NewService creates a reading service.
func NewService(tests store.ReadingStore, reports store.ReportStore, db *sql.DB, logger *slog.Logger) *ServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceImpl{
		tests:   tests,
		reports: reports,
		db:      db,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "reading_service")),
	}
}

// WithClock replaces the time source.
func (s *ServiceImpl) WithClock(now func() time.Time) *ServiceImpl {
	s.now = now
	return s
}

// CreateTest implements Service. Passages and questions are stored with the
// test in one transaction.
func (s *ServiceImpl) CreateTest(
	ctx context.Context,
	actor service.Actor,
	test *domain.ReadingTest,
) (*domain.ReadingTest, error) {
	if !actor.IsTeacher() {
		return nil, service.ErrForbidden
	}

	test.ID = uuid.New()
	test.IsActive = true
	test.CreatedAt = s.now().UTC()
	for i := range test.Passages {
		p := &test.Passages[i]
		p.ID = uuid.New()
		p.TestID = test.ID
		if p.Order == 0 {
			p.Order = i + 1
		}
		for j := range p.Questions {
			q := &p.Questions[j]
			q.ID = uuid.New()
			q.PassageID = p.ID
			if q.Order == 0 {
				q.Order = j + 1
			}
		}
	}
	if err := test.Validate(); err != nil {
		return nil, err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.tests.WithTx(tx).CreateTest(ctx, test)
	})
	if err != nil {
		return nil, service.NewServiceError("reading", "create_test", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("reading test created",
		slog.String("test_id", test.ID.String()),
		slog.Int("passages", len(test.Passages)))
	return test, nil
}

// ListTests implements Service.
func (s *ServiceImpl) ListTests(ctx context.Context, mode *domain.TestMode) ([]*store.TestSummary, error) {
	if mode != nil && *mode != domain.TestModeExam && *mode != domain.TestModePractice {
		return nil, domain.ErrInvalidTestMode
	}
	tests, err := s.tests.ListTests(ctx, mode)
	if err != nil {
		return nil, service.NewServiceError("reading", "list_tests", err)
	}
	return tests, nil
}

// GetTest implements Service.
func (s *ServiceImpl) GetTest(ctx context.Context, testID uuid.UUID) (*domain.ReadingTest, error) {
	test, err := s.activeTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	for i := range test.Passages {
		p := &test.Passages[i]
		for j := range p.Questions {
			p.Questions[j] = p.Questions[j].WithoutAnswer()
		}
	}
	return test, nil
}

func (s *ServiceImpl) activeTest(ctx context.Context, testID uuid.UUID) (*domain.ReadingTest, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if !test.IsActive {
		return nil, store.ErrTestNotFound
	}
	return test, nil
}

// StartAttempt implements Service. An attempt still in progress on the test
// is resumed instead of opening a second one.
func (s *ServiceImpl) StartAttempt(ctx context.Context, actor service.Actor, testID uuid.UUID) (*AttemptStart, error) {
	if _, err := s.activeTest(ctx, testID); err != nil {
		return nil, err
	}

	attempt, err := s.tests.FindInProgress(ctx, actor.ID, testID)
	switch {
	case err == nil:
		return newAttemptStart(attempt, true), nil
	case !errors.Is(err, store.ErrAttemptNotFound):
		return nil, service.NewServiceError("reading", "start_attempt", err)
	}

	attempt = domain.NewAttempt(actor.ID, testID, s.now())
	if err := s.tests.CreateAttempt(ctx, attempt); err != nil {
		return nil, service.NewServiceError("reading", "start_attempt", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("reading attempt started",
		slog.String("attempt_id", attempt.ID.String()),
		slog.String("test_id", testID.String()))
	return newAttemptStart(attempt, false), nil
}

func newAttemptStart(a *domain.Attempt, resumed bool) *AttemptStart {
	return &AttemptStart{
		AttemptID: a.ID,
		TestID:    a.TestID,
		Status:    a.Status,
		StartedAt: a.StartedAt,
		Resumed:   resumed,
	}
}

// ownAttempt returns the actor's attempt. Foreign attempts behave as missing.
func (s *ServiceImpl) ownAttempt(ctx context.Context, actor service.Actor, attemptID uuid.UUID) (*domain.Attempt, error) {
	attempt, err := s.tests.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != actor.ID {
		return nil, store.ErrAttemptNotFound
	}
	return attempt, nil
}

// openAttempt returns the actor's attempt when it is still in progress.
func (s *ServiceImpl) openAttempt(ctx context.Context, actor service.Actor, attemptID uuid.UUID) (*domain.Attempt, error) {
	attempt, err := s.ownAttempt(ctx, actor, attemptID)
	if errors.Is(err, store.ErrAttemptNotFound) {
		return nil, service.ErrAttemptClosed
	}
	if err != nil {
		return nil, service.NewServiceError("reading", "load_attempt", err)
	}
	if attempt.Status != domain.AttemptInProgress {
		return nil, service.ErrAttemptClosed
	}
	return attempt, nil
}

// questionIndex maps the questions of a test by ID.
func questionIndex(test *domain.ReadingTest) map[uuid.UUID]*domain.ReadingQuestion {
	idx := make(map[uuid.UUID]*domain.ReadingQuestion)
	for i := range test.Passages {
		for j := range test.Passages[i].Questions {
			q := &test.Passages[i].Questions[j]
			idx[q.ID] = q
		}
	}
	return idx
}

// Answer implements Service. A question already answered in the attempt
// returns the stored answer unchanged.
func (s *ServiceImpl) Answer(
	ctx context.Context,
	actor service.Actor,
	attemptID uuid.UUID,
	in AnswerInput,
) (*PracticeAnswer, error) {
	attempt, err := s.openAttempt(ctx, actor, attemptID)
	if err != nil {
		return nil, err
	}
	test, err := s.tests.GetTest(ctx, attempt.TestID)
	if err != nil {
		return nil, service.NewServiceError("reading", "answer", err)
	}
	q, ok := questionIndex(test)[in.QuestionID]
	if !ok {
		return nil, service.ErrQuestionNotInTest
	}

	existing, err := s.tests.GetAnswer(ctx, attemptID, in.QuestionID)
	switch {
	case err == nil:
		return newPracticeAnswer(existing, q), nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, service.NewServiceError("reading", "answer", err)
	}

	answer := domain.NewAttemptAnswer(attemptID, q, in.SelectedAnswer, in.TimeSpentSeconds)
	if err := s.tests.CreateAnswer(ctx, answer); err != nil {
		return nil, service.NewServiceError("reading", "answer", err)
	}
	return newPracticeAnswer(answer, q), nil
}

func newPracticeAnswer(a *domain.AttemptAnswer, q *domain.ReadingQuestion) *PracticeAnswer {
	return &PracticeAnswer{
		AnswerID:       a.ID,
		IsCorrect:      a.IsCorrect,
		CorrectAnswer:  q.CorrectAnswer,
		SelectedAnswer: a.SelectedAnswer,
		Locked:         true,
	}
}

// Submit implements Service. Answers to questions outside the test are
// ignored; the rest replace earlier answers before the attempt is scored.
func (s *ServiceImpl) Submit(
	ctx context.Context,
	actor service.Actor,
	attemptID uuid.UUID,
	answers []AnswerInput,
) (*Outcome, error) {
	attempt, err := s.openAttempt(ctx, actor, attemptID)
	if err != nil {
		return nil, err
	}
	test, err := s.tests.GetTest(ctx, attempt.TestID)
	if err != nil {
		return nil, service.NewServiceError("reading", "submit", err)
	}
	questions := questionIndex(test)

	var outcome *Outcome
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		tests := s.tests.WithTx(tx)
		for _, in := range answers {
			q, ok := questions[in.QuestionID]
			if !ok {
				continue
			}
			if err := tests.UpsertAnswer(ctx, domain.NewAttemptAnswer(attemptID, q, in.SelectedAnswer, in.TimeSpentSeconds)); err != nil {
				return err
			}
		}
		o, err := s.complete(ctx, tests, attempt, len(questions))
		outcome = o
		return err
	})
	if err != nil {
		return nil, service.NewServiceError("reading", "submit", err)
	}

	s.logCompleted(ctx, outcome)
	return outcome, nil
}

// Finish implements Service. The attempt is scored over its stored answers.
func (s *ServiceImpl) Finish(ctx context.Context, actor service.Actor, attemptID uuid.UUID) (*Outcome, error) {
	attempt, err := s.openAttempt(ctx, actor, attemptID)
	if err != nil {
		return nil, err
	}
	test, err := s.tests.GetTest(ctx, attempt.TestID)
	if err != nil {
		return nil, service.NewServiceError("reading", "finish", err)
	}

	var outcome *Outcome
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		o, err := s.complete(ctx, s.tests.WithTx(tx), attempt, len(questionIndex(test)))
		outcome = o
		return err
	})
	if err != nil {
		return nil, service.NewServiceError("reading", "finish", err)
	}

	s.logCompleted(ctx, outcome)
	return outcome, nil
}

func (s *ServiceImpl) complete(
	ctx context.Context,
	tests store.ReadingStore,
	attempt *domain.Attempt,
	total int,
) (*Outcome, error) {
	stored, err := tests.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	correct := countCorrect(stored)
	score, accuracy := domain.ReadingScore(correct, total)

	attempt.Complete(score, s.now())
	if err := tests.UpdateAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return &Outcome{
		AttemptID: attempt.ID,
		Score:     score,
		Accuracy:  accuracy,
		Correct:   correct,
		Total:     total,
		Status:    attempt.Status,
	}, nil
}

func (s *ServiceImpl) logCompleted(ctx context.Context, o *Outcome) {
	logger.FromContextOrDefault(ctx, s.logger).Info("reading attempt completed",
		slog.String("attempt_id", o.AttemptID.String()),
		slog.Int("score", o.Score),
		slog.Int("correct", o.Correct),
		slog.Int("total", o.Total))
}

// Result implements Service.
func (s *ServiceImpl) Result(ctx context.Context, actor service.Actor, attemptID uuid.UUID) (*Result, error) {
	attempt, err := s.ownAttempt(ctx, actor, attemptID)
	if err != nil {
		return nil, err
	}
	test, err := s.tests.GetTest(ctx, attempt.TestID)
	if err != nil {
		return nil, service.NewServiceError("reading", "result", err)
	}
	answers, err := s.tests.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, service.NewServiceError("reading", "result", err)
	}
	return newResult(attempt, test, answers), nil
}

// History implements Service.
func (s *ServiceImpl) History(ctx context.Context, actor service.Actor) ([]store.AttemptRow, error) {
	rows, err := s.reports.AttemptRows(ctx, actor.ID)
	if err != nil {
		return nil, service.NewServiceError("reading", "history", err)
	}
	if rows == nil {
		rows = []store.AttemptRow{}
	}
	return rows, nil
}

// Dashboard implements Service.
func (s *ServiceImpl) Dashboard(ctx context.Context, actor service.Actor) (*Dashboard, error) {
	rows, err := s.reports.AttemptRows(ctx, actor.ID)
	if err != nil {
		return nil, service.NewServiceError("reading", "dashboard", err)
	}
	byType, err := s.reports.QuestionTypeAccuracy(ctx, actor.ID)
	if err != nil {
		return nil, service.NewServiceError("reading", "dashboard", err)
	}
	return newDashboard(rows, byType, s.now()), nil
}
