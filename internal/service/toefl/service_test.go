package toefl_test

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/assessment"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/events"
	"github.com/phrazzld/campus-api/internal/media"
	"github.com/phrazzld/campus-api/internal/mocks"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/service/toefl"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/phrazzld/campus-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var student = service.Actor{ID: uuid.New(), Role: domain.RoleStudent}

type fixture struct {
	store    *mocks.ToeflStore
	reports  *mocks.ReportStore
	emitter  *mocks.EventEmitter
	assessor *mocks.MockAssessor
	root     string
	sm       sqlmock.Sqlmock
	svc      *toefl.ServiceImpl
}

// newFixture expects txs committed transactions.
func newFixture(t *testing.T, txs int) *fixture {
	t.Helper()
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for range txs {
		sm.ExpectBegin()
		sm.ExpectCommit()
	}
	return fixtureWithDB(t, db, sm)
}

func fixtureWithDB(t *testing.T, db *sql.DB, sm sqlmock.Sqlmock) *fixture {
	t.Helper()
	root := t.TempDir()
	files, err := media.NewLocalStorage(root)
	require.NoError(t, err)

	f := &fixture{
		store:    new(mocks.ToeflStore),
		reports:  new(mocks.ReportStore),
		emitter:  new(mocks.EventEmitter),
		assessor: &mocks.MockAssessor{},
		root:     root,
		sm:       sm,
	}
	f.svc = toefl.NewService(f.store, f.reports, files, f.assessor, f.assessor, f.emitter, db, logger.Discard())
	return f
}

func question() *domain.ToeflQuestion {
	return &domain.ToeflQuestion{ID: uuid.New(), CategoryID: uuid.New(), Text: "Describe your hometown.", IsActive: true}
}

func failedWith(message string) any {
	return mock.MatchedBy(func(r *domain.AssessmentResult) bool { return r.FeedbackSummary == message })
}

func withStatus(status domain.SubmissionStatus) any {
	return mock.MatchedBy(func(s *domain.Submission) bool { return s.Status == status })
}

func TestCreateCategoryAndQuestion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	teacher := service.Actor{ID: uuid.New(), Role: domain.RoleTeacher}
	f.store.On("CreateCategory", mock.Anything, mock.Anything).Return(nil)
	f.store.On("CreateQuestion", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.CreateCategory(context.Background(), student, "Academic", domain.CategoryWriting)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.svc.CreateCategory(context.Background(), teacher, "Academic", "essay")
	assert.ErrorIs(t, err, domain.ErrInvalidCategoryType)

	cat, err := f.svc.CreateCategory(context.Background(), teacher, " Academic ", domain.CategoryWriting)
	require.NoError(t, err)
	assert.Equal(t, "Academic", cat.Name)
	assert.True(t, cat.IsActive)

	q, err := f.svc.CreateQuestion(context.Background(), teacher, toefl.QuestionInput{CategoryID: cat.ID, Text: "Agree or disagree?"})
	require.NoError(t, err)
	assert.Equal(t, toefl.DefaultDifficulty, q.Difficulty)

	_, err = f.svc.CreateQuestion(context.Background(), teacher, toefl.QuestionInput{CategoryID: cat.ID, Text: " "})
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestRandomQuestionNotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	kind := domain.CategoryListening
	f.store.On("RandomQuestion", mock.Anything, (*uuid.UUID)(nil), &kind).Return(nil, store.ErrQuestionNotFound)

	_, err := f.svc.RandomQuestion(context.Background(), nil, &kind)

	assert.ErrorIs(t, err, store.ErrQuestionNotFound)
}

func TestSubmitWriting(t *testing.T) {
	t.Parallel()

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 0)
		q := question()
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)

		_, err := f.svc.SubmitWriting(context.Background(), student, q.ID, " \n ")

		assert.ErrorIs(t, err, domain.ErrEmptyResponse)
	})

	t.Run("inactive question", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 0)
		q := question()
		q.IsActive = false
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)

		_, err := f.svc.SubmitWriting(context.Background(), student, q.ID, "An essay.")

		assert.ErrorIs(t, err, store.ErrQuestionNotFound)
	})

	t.Run("queued for assessment", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 1)
		q := question()
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
		f.store.On("CreateSubmission", mock.Anything, withStatus(domain.SubmissionInProgress)).Return(nil)
		f.store.On("CreateWriting", mock.Anything, mock.MatchedBy(func(w *domain.WritingSubmission) bool {
			return w.WordCount == 4
		})).Return(nil)

		var emitted *events.TaskRequestEvent
		f.emitter.On("EmitEvent", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { emitted = args.Get(1).(*events.TaskRequestEvent) }).
			Return(nil)

		out, err := f.svc.SubmitWriting(context.Background(), student, q.ID, "My town is quiet.")

		require.NoError(t, err)
		assert.True(t, out.Success)
		assert.Equal(t, "processing", out.Status)
		require.NotNil(t, emitted)
		assert.Equal(t, task.TaskTypeAssessment, emitted.Type)
		var payload struct {
			SubmissionID uuid.UUID `json:"submission_id"`
		}
		require.NoError(t, emitted.UnmarshalPayload(&payload))
		assert.Equal(t, out.SubmissionID, payload.SubmissionID)
		require.NoError(t, f.sm.ExpectationsWereMet())
	})

	t.Run("queue failure marks the submission failed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 2)
		q := question()
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
		f.store.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil)
		f.store.On("CreateWriting", mock.Anything, mock.Anything).Return(nil)
		f.emitter.On("EmitEvent", mock.Anything, mock.Anything).Return(errors.New("queue full"))
		f.store.On("UpsertResult", mock.Anything, failedWith(domain.AssessmentFailedMessage)).Return(nil)
		f.store.On("UpdateSubmission", mock.Anything, withStatus(domain.SubmissionFailed)).Return(nil)

		_, err := f.svc.SubmitWriting(context.Background(), student, q.ID, "An essay.")

		var svcErr *service.ServiceError
		require.ErrorAs(t, err, &svcErr)
		f.store.AssertExpectations(t)
	})
}

func TestSubmitSpeaking(t *testing.T) {
	t.Parallel()

	t.Run("undecodable audio", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 1)
		q := question()
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
		f.store.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil)
		f.store.On("UpsertResult", mock.Anything, failedWith(domain.AssessmentFailedMessage)).Return(nil)
		f.store.On("UpdateSubmission", mock.Anything, withStatus(domain.SubmissionFailed)).Return(nil)

		_, err := f.svc.SubmitSpeaking(context.Background(), student, q.ID, "data:audio/webm;base64,@@@", 30)

		assert.ErrorIs(t, err, service.ErrInvalidAudio)
		f.emitter.AssertNotCalled(t, "EmitEvent", mock.Anything, mock.Anything)
		f.store.AssertExpectations(t)
	})

	t.Run("stores the recording", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 0)
		q := question()
		audio := "data:audio/webm;codecs=opus;base64," + base64.StdEncoding.EncodeToString([]byte("opus-frames"))
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
		f.store.On("CreateSubmission", mock.Anything, mock.Anything).Return(nil)
		var stored *domain.SpeakingSubmission
		f.store.On("CreateSpeaking", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.SpeakingSubmission) }).
			Return(nil)
		f.emitter.On("EmitEvent", mock.Anything, mock.Anything).Return(nil)

		out, err := f.svc.SubmitSpeaking(context.Background(), student, q.ID, audio, 42)

		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "audio/"+out.SubmissionID.String()+".webm", stored.AudioPath)
		assert.Equal(t, 42, stored.DurationSeconds)
		data, err := os.ReadFile(filepath.Join(f.root, "audio", out.SubmissionID.String()+".webm"))
		require.NoError(t, err)
		assert.Equal(t, "opus-frames", string(data))
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	score := 81.5
	tests := []struct {
		name   string
		detail store.SubmissionDetail
		want   toefl.StatusView
	}{
		{
			name:   "in progress",
			detail: store.SubmissionDetail{Submission: domain.Submission{Status: domain.SubmissionInProgress}},
			want:   toefl.StatusView{Status: domain.SubmissionInProgress},
		},
		{
			name:   "completed",
			detail: store.SubmissionDetail{Submission: domain.Submission{Status: domain.SubmissionCompleted, OverallScore: &score}},
			want:   toefl.StatusView{Status: domain.SubmissionCompleted, Score: &score, Message: toefl.CompletedMessage},
		},
		{
			name: "failed with feedback",
			detail: store.SubmissionDetail{
				Submission: domain.Submission{Status: domain.SubmissionFailed},
				Result:     &domain.AssessmentResult{FeedbackSummary: domain.NoSpeechMessage},
			},
			want: toefl.StatusView{Status: domain.SubmissionFailed, Message: domain.NoSpeechMessage},
		},
		{
			name:   "failed without result",
			detail: store.SubmissionDetail{Submission: domain.Submission{Status: domain.SubmissionFailed}},
			want:   toefl.StatusView{Status: domain.SubmissionFailed, Message: domain.AssessmentFailedMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, 0)
			d := tt.detail
			d.ID = uuid.New()
			d.UserID = student.ID
			f.store.On("GetSubmission", mock.Anything, d.ID).Return(&d, nil)

			got, err := f.svc.Status(context.Background(), student, d.ID)

			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}

	t.Run("foreign submission", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 0)
		d := &store.SubmissionDetail{Submission: domain.Submission{ID: uuid.New(), UserID: uuid.New()}}
		f.store.On("GetSubmission", mock.Anything, d.ID).Return(d, nil)

		_, err := f.svc.Status(context.Background(), student, d.ID)

		assert.ErrorIs(t, err, store.ErrSubmissionNotFound)
	})
}

func writingDetail(q *domain.ToeflQuestion) *store.SubmissionDetail {
	sub := domain.NewSubmission(student.ID, q.ID, domain.SubmissionWriting)
	return &store.SubmissionDetail{
		Submission: *sub,
		Writing:    &domain.WritingSubmission{SubmissionID: sub.ID, Text: "My town is quiet.", WordCount: 4},
	}
}

func speakingDetail(t *testing.T, root string, q *domain.ToeflQuestion) *store.SubmissionDetail {
	t.Helper()
	sub := domain.NewSubmission(student.ID, q.ID, domain.SubmissionSpeaking)
	path := "audio/" + sub.ID.String() + ".wav"
	require.NoError(t, os.MkdirAll(filepath.Join(root, "audio"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(path)), []byte("RIFF"), 0o600))
	return &store.SubmissionDetail{
		Submission: *sub,
		Speaking:   &domain.SpeakingSubmission{SubmissionID: sub.ID, AudioPath: path, DurationSeconds: 45},
	}
}

func TestProcessSubmissionWriting(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	q := question()
	d := writingDetail(q)
	f.store.On("GetSubmission", mock.Anything, d.ID).Return(d, nil)
	f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
	f.store.On("UpsertResult", mock.Anything, mock.MatchedBy(func(r *domain.AssessmentResult) bool {
		return r.SubmissionID == d.ID && r.Grammar == 80 && len(r.Suggestions) == 1
	})).Return(nil)
	f.store.On("UpdateSubmission", mock.Anything, mock.MatchedBy(func(s *domain.Submission) bool {
		return s.Status == domain.SubmissionCompleted && s.OverallScore != nil && *s.OverallScore == 82.46
	})).Return(nil)
	f.assessor.Result = &assessment.Result{Overall: 82.456, Grammar: 80, Suggestions: []string{"Vary sentences."}}

	err := f.svc.ProcessSubmission(context.Background(), d.ID)

	require.NoError(t, err)
	require.Len(t, f.assessor.Requests, 1)
	assert.Equal(t, assessment.Request{
		Kind: domain.SubmissionWriting, Topic: q.Text, Text: "My town is quiet.", WordCount: 4,
	}, f.assessor.Requests[0])
	f.store.AssertExpectations(t)
	require.NoError(t, f.sm.ExpectationsWereMet())
}

func TestProcessSubmissionSpeaking(t *testing.T) {
	t.Parallel()

	t.Run("transcribed and assessed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 1)
		q := question()
		d := speakingDetail(t, f.root, q)
		f.store.On("GetSubmission", mock.Anything, d.ID).Return(d, nil)
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
		f.store.On("UpdateTranscript", mock.Anything, d.ID, "I grew up by the sea").Return(nil)
		f.store.On("UpsertResult", mock.Anything, mock.Anything).Return(nil)
		f.store.On("UpdateSubmission", mock.Anything, withStatus(domain.SubmissionCompleted)).Return(nil)
		f.assessor.Transcript = " I grew up by the sea "
		pron := 70.0
		f.assessor.Result = &assessment.Result{Overall: 75, Pronunciation: &pron}

		err := f.svc.ProcessSubmission(context.Background(), d.ID)

		require.NoError(t, err)
		require.Len(t, f.assessor.AudioPaths, 1)
		assert.True(t, filepath.IsAbs(f.assessor.AudioPaths[0]))
		assert.Equal(t, 6, f.assessor.Requests[0].WordCount)
		assert.Equal(t, 45, f.assessor.Requests[0].DurationSeconds)
		assert.NoFileExists(t, filepath.Join(f.root, filepath.FromSlash(d.Speaking.AudioPath)))
	})

	t.Run("silence", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, 1)
		q := question()
		d := speakingDetail(t, f.root, q)
		f.store.On("GetSubmission", mock.Anything, d.ID).Return(d, nil)
		f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
		f.store.On("UpsertResult", mock.Anything, failedWith(domain.NoSpeechMessage)).Return(nil)
		f.store.On("UpdateSubmission", mock.Anything, withStatus(domain.SubmissionFailed)).Return(nil)
		f.assessor.Transcript = "   "

		err := f.svc.ProcessSubmission(context.Background(), d.ID)

		require.NoError(t, err)
		assert.Empty(t, f.assessor.Requests)
		assert.NoFileExists(t, filepath.Join(f.root, filepath.FromSlash(d.Speaking.AudioPath)))
		f.store.AssertExpectations(t)
	})
}

func TestProcessSubmissionAssessorFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	q := question()
	d := writingDetail(q)
	f.store.On("GetSubmission", mock.Anything, d.ID).Return(d, nil)
	f.store.On("GetQuestion", mock.Anything, q.ID).Return(q, nil)
	f.store.On("UpsertResult", mock.Anything, failedWith(domain.AssessmentFailedMessage)).Return(nil)
	f.store.On("UpdateSubmission", mock.Anything, withStatus(domain.SubmissionFailed)).Return(nil)
	f.assessor.Err = assessment.ErrTransientFailure

	err := f.svc.ProcessSubmission(context.Background(), d.ID)

	assert.ErrorIs(t, err, assessment.ErrTransientFailure)
	f.store.AssertExpectations(t)
}

func TestProcessSubmissionSkipsFinished(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	d := writingDetail(question())
	d.Status = domain.SubmissionCompleted
	f.store.On("GetSubmission", mock.Anything, d.ID).Return(d, nil)

	require.NoError(t, f.svc.ProcessSubmission(context.Background(), d.ID))
	assert.Empty(t, f.assessor.Requests)
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	day := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	f.reports.On("ScoreSeries", mock.Anything, student.ID).Return([]store.ScorePoint{
		{Type: domain.SubmissionWriting, Score: 80, CreatedAt: day},
		{Type: domain.SubmissionSpeaking, Score: 70.333, CreatedAt: day.AddDate(0, 0, 1)},
		{Type: domain.SubmissionWriting, Score: 91, CreatedAt: day.AddDate(0, 0, 2)},
	}, nil)

	d, err := f.svc.Dashboard(context.Background(), student)

	require.NoError(t, err)
	assert.Equal(t, 3, d.CompletedCount)
	assert.Equal(t, 85.5, d.WritingAvg)
	assert.Equal(t, 70.33, d.SpeakingAvg)
	require.Len(t, d.Series, 3)
	assert.Equal(t, "2025/02/03", d.Series[0].Date)
	assert.Equal(t, 70.33, d.Series[1].Score)
}

func TestDashboardEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	f.reports.On("ScoreSeries", mock.Anything, student.ID).Return(nil, nil)

	d, err := f.svc.Dashboard(context.Background(), student)

	require.NoError(t, err)
	assert.Zero(t, d.WritingAvg)
	assert.Zero(t, d.SpeakingAvg)
	assert.NotNil(t, d.Series)
}
