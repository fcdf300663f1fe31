package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresVideoStore_RatingStats(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresVideoStore(db, logger.Discard())

	lessonID := uuid.New()
	mock.ExpectQuery("FROM video_ratings WHERE lesson_id = \\$1 GROUP BY score").
		WithArgs(lessonID).
		WillReturnRows(sqlmock.NewRows([]string{"score", "count"}).
			AddRow(int64(5), int64(2)).
			AddRow(int64(4), int64(1)))

	stats, err := s.RatingStats(context.Background(), lessonID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 4.67, stats.Average, 0.001)
	assert.Equal(t, [5]int{0, 0, 0, 1, 2}, stats.Distribution)
}

func TestPostgresVideoStore_ListPublishedEscapesSearch(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresVideoStore(db, logger.Discard())

	mock.ExpectQuery(`WHERE status = \$1 AND NOT is_deleted AND \(title ILIKE \$2 OR description ILIKE \$2\)`).
		WithArgs(domain.LessonStatusPublished, `%50\% off\_now%`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	lessons, err := s.ListPublished(context.Background(), store.VideoLessonFilter{Search: " 50% off_now "})
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestPostgresVideoStore_RatingStatsEmpty(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresVideoStore(db, logger.Discard())

	mock.ExpectQuery("GROUP BY score").WillReturnRows(sqlmock.NewRows([]string{"score", "count"}))

	stats, err := s.RatingStats(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.Average)
}

func TestPostgresVideoStore_Enroll(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresVideoStore(db, logger.Discard())

	userID, lessonID := uuid.New(), uuid.New()
	mock.ExpectExec("INSERT INTO video_enrollments").
		WithArgs(userID, lessonID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO video_enrollments").
		WithArgs(userID, lessonID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := s.Enroll(context.Background(), userID, lessonID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Enroll(context.Background(), userID, lessonID)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestPostgresVideoStore_UpsertRatingRejectsBadScore(t *testing.T) {
	t.Parallel()

	db, _ := newMock(t)
	s := NewPostgresVideoStore(db, logger.Discard())

	_, err := s.UpsertRating(context.Background(), &domain.Rating{ID: uuid.New(), Score: 6})
	assert.Error(t, err)
}

func TestPostgresVideoStore_ListQuestionsGroupsAnswers(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresVideoStore(db, logger.Discard())

	lessonID, first, second := uuid.New(), uuid.New(), uuid.New()
	student, teacher := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery("FROM video_questions WHERE lesson_id").
		WithArgs(lessonID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lesson_id", "user_id", "text", "created_at"}).
			AddRow(second.String(), lessonID.String(), student.String(), "Why?", now).
			AddRow(first.String(), lessonID.String(), student.String(), "How?", now.Add(-time.Hour)))
	mock.ExpectQuery("FROM video_answers a").
		WithArgs(lessonID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "question_id", "user_id", "text", "created_at"}).
			AddRow(uuid.NewString(), first.String(), teacher.String(), "Like this.", now).
			AddRow(uuid.NewString(), first.String(), teacher.String(), "And this.", now))

	questions, err := s.ListQuestions(context.Background(), lessonID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Empty(t, questions[0].Answers)
	require.Len(t, questions[1].Answers, 2)
	assert.Equal(t, "Like this.", questions[1].Answers[0].Text)
}

func TestPostgresVideoStore_GetViewMissing(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	s := NewPostgresVideoStore(db, logger.Discard())

	mock.ExpectQuery("FROM video_views").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "video_id", "watch_duration_seconds", "completed", "updated_at"}))

	_, err := s.GetView(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
