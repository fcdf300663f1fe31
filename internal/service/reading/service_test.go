package reading_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/mocks"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/service/reading"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	student = service.Actor{ID: uuid.New(), Role: domain.RoleStudent}
	teacher = service.Actor{ID: uuid.New(), Role: domain.RoleTeacher}
)

func newTest() *domain.ReadingTest {
	return &domain.ReadingTest{
		ID:       uuid.New(),
		Title:    "Ecology",
		Mode:     domain.TestModePractice,
		IsActive: true,
		Passages: []domain.Passage{{
			ID:      uuid.New(),
			Content: "Wetlands filter water.",
			Questions: []domain.ReadingQuestion{
				{ID: uuid.New(), QuestionText: "What do wetlands do?", QuestionType: domain.QuestionDetail,
					Choices: []string{"filter water", "burn"}, CorrectAnswer: "filter water", Order: 1},
				{ID: uuid.New(), QuestionText: "Main idea?", QuestionType: domain.QuestionMainIdea,
					Choices: []string{"wetlands", "deserts"}, CorrectAnswer: "wetlands", Order: 2},
			},
		}},
	}
}

func newService(t *testing.T, tests *mocks.ReadingStore, commit bool) (*reading.ServiceImpl, sqlmock.Sqlmock) {
	t.Helper()
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sm.ExpectBegin()
	if commit {
		sm.ExpectCommit()
	} else {
		sm.ExpectRollback()
	}
	return reading.NewService(tests, new(mocks.ReportStore), db, logger.Discard()), sm
}

func TestCreateTest(t *testing.T) {
	t.Parallel()

	t.Run("students are refused", func(t *testing.T) {
		t.Parallel()
		svc := reading.NewService(new(mocks.ReadingStore), nil, nil, logger.Discard())

		_, err := svc.CreateTest(context.Background(), student, newTest())

		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("nested content gets IDs and order", func(t *testing.T) {
		t.Parallel()
		tests := new(mocks.ReadingStore)
		tests.On("CreateTest", mock.Anything, mock.Anything).Return(nil)
		svc, sm := newService(t, tests, true)

		in := newTest()
		in.Passages[0].Questions[1].Order = 0
		got, err := svc.CreateTest(context.Background(), teacher, in)

		require.NoError(t, err)
		p := got.Passages[0]
		assert.Equal(t, got.ID, p.TestID)
		assert.Equal(t, 1, p.Order)
		assert.Equal(t, p.ID, p.Questions[0].PassageID)
		assert.Equal(t, 2, p.Questions[1].Order)
		assert.True(t, got.IsActive)
		require.NoError(t, sm.ExpectationsWereMet())
	})

	t.Run("answer must be a choice", func(t *testing.T) {
		t.Parallel()
		svc := reading.NewService(new(mocks.ReadingStore), nil, nil, logger.Discard())
		in := newTest()
		in.Passages[0].Questions[0].CorrectAnswer = "evaporate"

		_, err := svc.CreateTest(context.Background(), teacher, in)

		assert.ErrorIs(t, err, domain.ErrAnswerNotInChoices)
	})
}

func TestGetTestHidesAnswers(t *testing.T) {
	t.Parallel()

	test := newTest()
	tests := new(mocks.ReadingStore)
	tests.On("GetTest", mock.Anything, test.ID).Return(test, nil)
	svc := reading.NewService(tests, nil, nil, logger.Discard())

	got, err := svc.GetTest(context.Background(), test.ID)

	require.NoError(t, err)
	for _, q := range got.Passages[0].Questions {
		assert.Empty(t, q.CorrectAnswer)
	}

	test.IsActive = false
	_, err = svc.GetTest(context.Background(), test.ID)
	assert.ErrorIs(t, err, store.ErrTestNotFound)
}

func TestListTestsRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	svc := reading.NewService(new(mocks.ReadingStore), nil, nil, logger.Discard())
	mode := domain.TestMode("quiz")

	_, err := svc.ListTests(context.Background(), &mode)

	assert.ErrorIs(t, err, domain.ErrInvalidTestMode)
}

func TestStartAttempt(t *testing.T) {
	t.Parallel()

	t.Run("resumes the open attempt", func(t *testing.T) {
		t.Parallel()
		test := newTest()
		open := domain.NewAttempt(student.ID, test.ID, time.Now())
		tests := new(mocks.ReadingStore)
		tests.On("GetTest", mock.Anything, test.ID).Return(test, nil)
		tests.On("FindInProgress", mock.Anything, student.ID, test.ID).Return(open, nil)
		svc := reading.NewService(tests, nil, nil, logger.Discard())

		got, err := svc.StartAttempt(context.Background(), student, test.ID)

		require.NoError(t, err)
		assert.True(t, got.Resumed)
		assert.Equal(t, open.ID, got.AttemptID)
		tests.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything)
	})

	t.Run("opens a new attempt", func(t *testing.T) {
		t.Parallel()
		test := newTest()
		tests := new(mocks.ReadingStore)
		tests.On("GetTest", mock.Anything, test.ID).Return(test, nil)
		tests.On("FindInProgress", mock.Anything, student.ID, test.ID).Return(nil, store.ErrAttemptNotFound)
		tests.On("CreateAttempt", mock.Anything, mock.Anything).Return(nil)
		svc := reading.NewService(tests, nil, nil, logger.Discard())

		got, err := svc.StartAttempt(context.Background(), student, test.ID)

		require.NoError(t, err)
		assert.False(t, got.Resumed)
		assert.Equal(t, domain.AttemptInProgress, got.Status)
	})
}

func TestAnswer(t *testing.T) {
	t.Parallel()

	setup := func(status domain.AttemptStatus, owner uuid.UUID) (*mocks.ReadingStore, *domain.ReadingTest, *domain.Attempt) {
		test := newTest()
		attempt := domain.NewAttempt(owner, test.ID, time.Now())
		attempt.Status = status
		tests := new(mocks.ReadingStore)
		tests.On("GetAttempt", mock.Anything, attempt.ID).Return(attempt, nil)
		tests.On("GetTest", mock.Anything, test.ID).Return(test, nil)
		return tests, test, attempt
	}

	t.Run("closed attempts", func(t *testing.T) {
		t.Parallel()
		tests, test, completed := setup(domain.AttemptCompleted, student.ID)
		svc := reading.NewService(tests, nil, nil, logger.Discard())
		in := reading.AnswerInput{QuestionID: test.Passages[0].Questions[0].ID, SelectedAnswer: "burn"}

		_, err := svc.Answer(context.Background(), student, completed.ID, in)
		assert.ErrorIs(t, err, service.ErrAttemptClosed)

		other := service.Actor{ID: uuid.New(), Role: domain.RoleStudent}
		tests2, _, foreign := setup(domain.AttemptInProgress, student.ID)
		svc2 := reading.NewService(tests2, nil, nil, logger.Discard())
		_, err = svc2.Answer(context.Background(), other, foreign.ID, in)
		assert.ErrorIs(t, err, service.ErrAttemptClosed)

		missing := new(mocks.ReadingStore)
		missing.On("GetAttempt", mock.Anything, mock.Anything).Return(nil, store.ErrAttemptNotFound)
		svc3 := reading.NewService(missing, nil, nil, logger.Discard())
		_, err = svc3.Answer(context.Background(), student, uuid.New(), in)
		assert.ErrorIs(t, err, service.ErrAttemptClosed)
	})

	t.Run("question outside the test", func(t *testing.T) {
		t.Parallel()
		tests, _, attempt := setup(domain.AttemptInProgress, student.ID)
		svc := reading.NewService(tests, nil, nil, logger.Discard())

		_, err := svc.Answer(context.Background(), student, attempt.ID,
			reading.AnswerInput{QuestionID: uuid.New(), SelectedAnswer: "x"})

		assert.ErrorIs(t, err, service.ErrQuestionNotInTest)
	})

	t.Run("first answer is graded and time clamped", func(t *testing.T) {
		t.Parallel()
		tests, test, attempt := setup(domain.AttemptInProgress, student.ID)
		q := test.Passages[0].Questions[0]
		tests.On("GetAnswer", mock.Anything, attempt.ID, q.ID).Return(nil, store.ErrNotFound)
		tests.On("CreateAnswer", mock.Anything, mock.MatchedBy(func(a *domain.AttemptAnswer) bool {
			return a.TimeSpentSeconds != nil && *a.TimeSpentSeconds == 1
		})).Return(nil)
		svc := reading.NewService(tests, nil, nil, logger.Discard())
		zero := 0

		got, err := svc.Answer(context.Background(), student, attempt.ID,
			reading.AnswerInput{QuestionID: q.ID, SelectedAnswer: "  filter water ", TimeSpentSeconds: &zero})

		require.NoError(t, err)
		assert.True(t, got.IsCorrect)
		assert.True(t, got.Locked)
		assert.Equal(t, "filter water", got.CorrectAnswer)
		assert.Equal(t, "filter water", got.SelectedAnswer)
		tests.AssertExpectations(t)
	})

	t.Run("answered question stays locked", func(t *testing.T) {
		t.Parallel()
		tests, test, attempt := setup(domain.AttemptInProgress, student.ID)
		q := test.Passages[0].Questions[0]
		stored := &domain.AttemptAnswer{ID: uuid.New(), QuestionID: q.ID, SelectedAnswer: "burn"}
		tests.On("GetAnswer", mock.Anything, attempt.ID, q.ID).Return(stored, nil)
		svc := reading.NewService(tests, nil, nil, logger.Discard())

		got, err := svc.Answer(context.Background(), student, attempt.ID,
			reading.AnswerInput{QuestionID: q.ID, SelectedAnswer: "filter water"})

		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.AnswerID)
		assert.False(t, got.IsCorrect)
		assert.Equal(t, "burn", got.SelectedAnswer)
		tests.AssertNotCalled(t, "CreateAnswer", mock.Anything, mock.Anything)
	})
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	test := newTest()
	started := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	attempt := domain.NewAttempt(student.ID, test.ID, started)
	q := test.Passages[0].Questions[0]

	tests := new(mocks.ReadingStore)
	tests.On("GetAttempt", mock.Anything, attempt.ID).Return(attempt, nil)
	tests.On("GetTest", mock.Anything, test.ID).Return(test, nil)
	tests.On("UpsertAnswer", mock.Anything, mock.MatchedBy(func(a *domain.AttemptAnswer) bool {
		return a.QuestionID == q.ID
	})).Return(nil).Once()
	tests.On("ListAnswers", mock.Anything, attempt.ID).
		Return([]*domain.AttemptAnswer{{QuestionID: q.ID, IsCorrect: true}}, nil)
	tests.On("UpdateAttempt", mock.Anything, attempt).Return(nil)

	svc, sm := newService(t, tests, true)
	svc.WithClock(func() time.Time { return started.Add(95 * time.Second) })

	out, err := svc.Submit(context.Background(), student, attempt.ID, []reading.AnswerInput{
		{QuestionID: q.ID, SelectedAnswer: "filter water"},
		{QuestionID: uuid.New(), SelectedAnswer: "ignored"},
	})

	require.NoError(t, err)
	assert.Equal(t, reading.Outcome{
		AttemptID: attempt.ID, Score: 15, Accuracy: 50, Correct: 1, Total: 2, Status: domain.AttemptCompleted,
	}, *out)
	require.NotNil(t, attempt.TotalTimeSeconds)
	assert.Equal(t, 95, *attempt.TotalTimeSeconds)
	tests.AssertExpectations(t)
	require.NoError(t, sm.ExpectationsWereMet())
}

func TestFinishRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	test := newTest()
	attempt := domain.NewAttempt(student.ID, test.ID, time.Now())
	tests := new(mocks.ReadingStore)
	tests.On("GetAttempt", mock.Anything, attempt.ID).Return(attempt, nil)
	tests.On("GetTest", mock.Anything, test.ID).Return(test, nil)
	tests.On("ListAnswers", mock.Anything, attempt.ID).Return(nil, assert.AnError)

	svc, sm := newService(t, tests, false)

	_, err := svc.Finish(context.Background(), student, attempt.ID)

	require.Error(t, err)
	var svcErr *service.ServiceError
	assert.ErrorAs(t, err, &svcErr)
	require.NoError(t, sm.ExpectationsWereMet())
}

func TestResult(t *testing.T) {
	t.Parallel()

	test := newTest()
	attempt := domain.NewAttempt(student.ID, test.ID, time.Now().Add(-2*time.Minute))
	attempt.Complete(15, attempt.StartedAt.Add(125*time.Second))
	q2 := test.Passages[0].Questions[1]

	tests := new(mocks.ReadingStore)
	tests.On("GetAttempt", mock.Anything, attempt.ID).Return(attempt, nil)
	tests.On("GetTest", mock.Anything, test.ID).Return(test, nil)
	tests.On("ListAnswers", mock.Anything, attempt.ID).Return([]*domain.AttemptAnswer{
		{QuestionID: q2.ID, SelectedAnswer: "wetlands", IsCorrect: true},
	}, nil)
	svc := reading.NewService(tests, nil, nil, logger.Discard())

	res, err := svc.Result(context.Background(), student, attempt.ID)

	require.NoError(t, err)
	assert.Equal(t, "02:05", res.TimeDisplay)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 50, res.Accuracy)
	require.Len(t, res.Answers, 1)
	assert.Equal(t, domain.QuestionMainIdea, res.Answers[0].QuestionType)
	assert.Equal(t, "wetlands", res.Answers[0].CorrectAnswer)

	other := service.Actor{ID: uuid.New(), Role: domain.RoleStudent}
	_, err = svc.Result(context.Background(), other, attempt.ID)
	assert.ErrorIs(t, err, store.ErrAttemptNotFound)
}

func TestHistoryNeverNil(t *testing.T) {
	t.Parallel()

	reports := new(mocks.ReportStore)
	reports.On("AttemptRows", mock.Anything, student.ID).Return(nil, nil)
	svc := reading.NewService(new(mocks.ReadingStore), reports, nil, logger.Discard())

	rows, err := svc.History(context.Background(), student)

	require.NoError(t, err)
	assert.NotNil(t, rows)
}
