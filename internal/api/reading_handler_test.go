package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/service/reading"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReading struct {
	reading.Service
	createTest   func(actor service.Actor, test *domain.ReadingTest) (*domain.ReadingTest, error)
	listTests    func(mode *domain.TestMode) ([]*store.TestSummary, error)
	startAttempt func(actor service.Actor, testID uuid.UUID) (*reading.AttemptStart, error)
	answer       func(actor service.Actor, attemptID uuid.UUID, in reading.AnswerInput) (*reading.PracticeAnswer, error)
	submit       func(actor service.Actor, attemptID uuid.UUID, answers []reading.AnswerInput) (*reading.Outcome, error)
	history      func(actor service.Actor) ([]store.AttemptRow, error)
}

func (f *fakeReading) CreateTest(_ context.Context, actor service.Actor, test *domain.ReadingTest) (*domain.ReadingTest, error) {
	return f.createTest(actor, test)
}

func (f *fakeReading) ListTests(_ context.Context, mode *domain.TestMode) ([]*store.TestSummary, error) {
	return f.listTests(mode)
}

func (f *fakeReading) StartAttempt(_ context.Context, actor service.Actor, testID uuid.UUID) (*reading.AttemptStart, error) {
	return f.startAttempt(actor, testID)
}

func (f *fakeReading) Answer(_ context.Context, actor service.Actor, attemptID uuid.UUID, in reading.AnswerInput) (*reading.PracticeAnswer, error) {
	return f.answer(actor, attemptID, in)
}

func (f *fakeReading) Submit(_ context.Context, actor service.Actor, attemptID uuid.UUID, answers []reading.AnswerInput) (*reading.Outcome, error) {
	return f.submit(actor, attemptID, answers)
}

func (f *fakeReading) History(_ context.Context, actor service.Actor) ([]store.AttemptRow, error) {
	return f.history(actor)
}

func validTestRequest() map[string]any {
	return map[string]any{
		"title":      "Coral reefs",
		"mode":       "exam",
		"time_limit": 20,
		"passages": []map[string]any{{
			"title":   "Reefs",
			"content": "Coral reefs are built by colonies of tiny animals.",
			"questions": []map[string]any{{
				"question_text":  "What builds reefs?",
				"question_type":  "detail",
				"choices":        []string{"Fish", "Coral polyps"},
				"correct_answer": "Coral polyps",
			}},
		}},
	}
}

func TestReadingHandler_CreateTest(t *testing.T) {
	t.Parallel()

	var got *domain.ReadingTest
	svc := &fakeReading{createTest: func(_ service.Actor, test *domain.ReadingTest) (*domain.ReadingTest, error) {
		got = test
		test.ID = uuid.New()
		return test, nil
	}}

	rec := doJSON(t, newTestRouter(NewReadingHandler(svc, nil), &teacherActor), http.MethodPost, "/tests", validTestRequest())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, domain.TestModeExam, got.Mode)
	assert.True(t, got.IsActive)
	require.Len(t, got.Passages, 1)
	require.Len(t, got.Passages[0].Questions, 1)
	assert.Equal(t, domain.QuestionDetail, got.Passages[0].Questions[0].QuestionType)

	t.Run("students cannot author", func(t *testing.T) {
		t.Parallel()
		rec := doJSON(t, newTestRouter(NewReadingHandler(svc, nil), &studentActor), http.MethodPost, "/tests", validTestRequest())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		t.Parallel()
		body := validTestRequest()
		body["mode"] = "quiz"
		rec := doJSON(t, newTestRouter(NewReadingHandler(svc, nil), &teacherActor), http.MethodPost, "/tests", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "mode must be one of [exam practice]", errorMessage(t, rec))
	})

	t.Run("needs a passage", func(t *testing.T) {
		t.Parallel()
		body := validTestRequest()
		body["passages"] = []map[string]any{}
		rec := doJSON(t, newTestRouter(NewReadingHandler(svc, nil), &teacherActor), http.MethodPost, "/tests", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReadingHandler_ListTestsMode(t *testing.T) {
	t.Parallel()

	var gotMode *domain.TestMode
	svc := &fakeReading{listTests: func(mode *domain.TestMode) ([]*store.TestSummary, error) {
		gotMode = mode
		return nil, nil
	}}
	router := newTestRouter(NewReadingHandler(svc, nil), &studentActor)

	rec := doJSON(t, router, http.MethodGet, "/tests?mode=practice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	require.NotNil(t, gotMode)
	assert.Equal(t, domain.TestModePractice, *gotMode)

	rec = doJSON(t, router, http.MethodGet, "/tests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, gotMode)
}

func TestReadingHandler_StartAttempt(t *testing.T) {
	t.Parallel()

	testID := uuid.New()
	attemptID := uuid.New()
	started := false
	svc := &fakeReading{startAttempt: func(_ service.Actor, id uuid.UUID) (*reading.AttemptStart, error) {
		if id != testID {
			return nil, store.ErrTestNotFound
		}
		resumed := started
		started = true
		return &reading.AttemptStart{AttemptID: attemptID, TestID: id, Status: domain.AttemptInProgress, Resumed: resumed}, nil
	}}
	router := newTestRouter(NewReadingHandler(svc, nil), &studentActor)
	path := "/tests/" + testID.String() + "/attempts"

	rec := doJSON(t, router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, attemptID.String(), decodeBody(t, rec)["attempt_id"])

	rec = doJSON(t, router, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, attemptID.String(), decodeBody(t, rec)["attempt_id"])

	rec = doJSON(t, router, http.MethodPost, "/tests/"+uuid.NewString()+"/attempts", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Test not found", errorMessage(t, rec))
}

func TestReadingHandler_Answer(t *testing.T) {
	t.Parallel()

	attemptID := uuid.New()
	questionID := uuid.New()
	spent := 30

	tests := []struct {
		name       string
		body       any
		err        error
		wantStatus int
		wantError  string
	}{
		{"recorded", AnswerRequest{QuestionID: questionID.String(), SelectedAnswer: "Coral polyps", TimeSpentSeconds: &spent}, nil, http.StatusOK, ""},
		{"bad question id", AnswerRequest{QuestionID: "nope"}, nil, http.StatusBadRequest, "question_id must be a valid UUID"},
		{"closed attempt", AnswerRequest{QuestionID: questionID.String()}, service.ErrAttemptClosed, http.StatusNotFound, service.ErrAttemptClosed.Error()},
		{"foreign question", AnswerRequest{QuestionID: questionID.String()}, service.ErrQuestionNotInTest, http.StatusBadRequest, service.ErrQuestionNotInTest.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeReading{answer: func(_ service.Actor, id uuid.UUID, in reading.AnswerInput) (*reading.PracticeAnswer, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				assert.Equal(t, attemptID, id)
				assert.Equal(t, questionID, in.QuestionID)
				require.NotNil(t, in.TimeSpentSeconds)
				assert.Equal(t, 30, *in.TimeSpentSeconds)
				return &reading.PracticeAnswer{IsCorrect: true, CorrectAnswer: "Coral polyps", SelectedAnswer: in.SelectedAnswer, Locked: true}, nil
			}}
			router := newTestRouter(NewReadingHandler(svc, nil), &studentActor)

			rec := doJSON(t, router, http.MethodPost, "/attempts/"+attemptID.String()+"/answers", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorMessage(t, rec))
				return
			}
			assert.Equal(t, true, decodeBody(t, rec)["is_correct"])
		})
	}
}

func TestReadingHandler_Submit(t *testing.T) {
	t.Parallel()

	attemptID := uuid.New()
	q1, q2 := uuid.New(), uuid.New()
	var got []reading.AnswerInput
	svc := &fakeReading{submit: func(_ service.Actor, id uuid.UUID, answers []reading.AnswerInput) (*reading.Outcome, error) {
		got = answers
		return &reading.Outcome{AttemptID: id, Score: 50, Accuracy: 50, Correct: 1, Total: 2, Status: domain.AttemptCompleted}, nil
	}}
	router := newTestRouter(NewReadingHandler(svc, nil), &studentActor)

	rec := doJSON(t, router, http.MethodPost, "/attempts/"+attemptID.String()+"/submit", SubmitRequest{Answers: []AnswerRequest{
		{QuestionID: q1.String(), SelectedAnswer: "A"},
		{QuestionID: q2.String(), SelectedAnswer: "B"},
	}})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, got, 2)
	assert.Equal(t, q1, got[0].QuestionID)
	assert.Equal(t, "B", got[1].SelectedAnswer)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 50, body["score"])
	assert.Equal(t, "completed", body["status"])
}

func TestReadingHandler_HistoryEmpty(t *testing.T) {
	t.Parallel()

	svc := &fakeReading{history: func(service.Actor) ([]store.AttemptRow, error) { return nil, nil }}

	rec := doJSON(t, newTestRouter(NewReadingHandler(svc, nil), &studentActor), http.MethodGet, "/attempts", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
