package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/store"
)

// PostgresReportStore implements store.ReportStore with sqlx, mapping
// aggregate rows straight into the tagged report structs.
type PostgresReportStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresReportStore wraps db for sqlx. driverName is the name the
// connection was opened with ("pgx" in production).
func NewPostgresReportStore(db *sql.DB, driverName string, logger *slog.Logger) *PostgresReportStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReportStore{
		db:     sqlx.NewDb(db, driverName),
		logger: logger.With(slog.String("component", "report_store")),
	}
}

var _ store.ReportStore = (*PostgresReportStore)(nil)

func (s *PostgresReportStore) selectRows(ctx context.Context, name string, dest any, query string, args ...any) error {
	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("report query failed",
			slog.String("report", name),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

func (s *PostgresReportStore) getRow(ctx context.Context, name string, dest any, query string, args ...any) error {
	if err := s.db.GetContext(ctx, dest, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("report query failed",
			slog.String("report", name),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// DueReminders lists users with unlearned words due on or before today.
func (s *PostgresReportStore) DueReminders(ctx context.Context, today domain.Date) ([]store.DueReminder, error) {
	var rows []store.DueReminder
	err := s.selectRows(ctx, "due_reminders", &rows, `
		SELECT u.id AS user_id, u.email, u.email_reminders, u.telegram_chat_id,
		       COUNT(w.id) AS due_count
		FROM users u
		JOIN vocab_lessons l ON l.user_id = u.id
		JOIN vocab_words w ON w.lesson_id = l.id
		WHERE NOT w.is_learned AND w.next_review_date <= $1
		GROUP BY u.id
		ORDER BY u.email
	`, today)
	return rows, err
}

// VocabStats counts a user's lessons, words, learned words and words due today.
func (s *PostgresReportStore) VocabStats(ctx context.Context, userID uuid.UUID, today domain.Date) (*store.VocabStats, error) {
	var stats store.VocabStats
	err := s.getRow(ctx, "vocab_stats", &stats, `
		SELECT (SELECT COUNT(*) FROM vocab_lessons WHERE user_id = $1) AS lessons,
		       COUNT(w.id) AS total_words,
		       COUNT(w.id) FILTER (WHERE w.is_learned) AS learned_words,
		       COUNT(w.id) FILTER (WHERE NOT w.is_learned AND w.next_review_date <= $2) AS due_today
		FROM vocab_words w
		JOIN vocab_lessons l ON l.id = w.lesson_id
		WHERE l.user_id = $1
	`, userID, today)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// LessonViewStats sums the views of a lesson's live videos.
func (s *PostgresReportStore) LessonViewStats(ctx context.Context, lessonID uuid.UUID) (*store.ViewStats, error) {
	var stats store.ViewStats
	err := s.getRow(ctx, "lesson_view_stats", &stats, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE vv.completed) AS completed,
		       COALESCE(SUM(vv.watch_duration_seconds), 0) AS total_watch_seconds
		FROM video_views vv
		JOIN videos v ON v.id = vv.video_id
		WHERE v.lesson_id = $1 AND NOT v.is_deleted
	`, lessonID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// LessonQuestionStats counts questions and how many have at least one answer.
func (s *PostgresReportStore) LessonQuestionStats(ctx context.Context, lessonID uuid.UUID) (*store.QuestionStats, error) {
	var stats store.QuestionStats
	err := s.getRow(ctx, "lesson_question_stats", &stats, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE EXISTS (
		           SELECT 1 FROM video_answers a WHERE a.question_id = q.id)) AS answered
		FROM video_questions q
		WHERE q.lesson_id = $1
	`, lessonID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// TeacherLessons summarises each lesson the teacher created.
func (s *PostgresReportStore) TeacherLessons(ctx context.Context, creatorID uuid.UUID) ([]store.TeacherLessonRow, error) {
	var rows []store.TeacherLessonRow
	err := s.selectRows(ctx, "teacher_lessons", &rows, `
		SELECT l.id AS lesson_id, l.title, l.status,
		       (SELECT COUNT(*) FROM video_views vv JOIN videos v ON v.id = vv.video_id
		         WHERE v.lesson_id = l.id AND NOT v.is_deleted) AS views,
		       (SELECT ROUND(AVG(r.score)::numeric, 2)::float8 FROM video_ratings r
		         WHERE r.lesson_id = l.id) AS avg_rating,
		       (SELECT COUNT(*) FROM video_questions q WHERE q.lesson_id = l.id) AS questions,
		       (SELECT COUNT(*) FROM video_questions q WHERE q.lesson_id = l.id
		         AND NOT EXISTS (SELECT 1 FROM video_answers a WHERE a.question_id = q.id)) AS unanswered,
		       (SELECT COUNT(*) FROM video_enrollments e WHERE e.lesson_id = l.id) AS enrollments
		FROM video_lessons l
		WHERE l.creator_id = $1 AND NOT l.is_deleted
		ORDER BY l.created_at DESC
	`, creatorID)
	return rows, err
}

// PendingQuestions returns the newest unanswered questions on the teacher's lessons.
func (s *PostgresReportStore) PendingQuestions(ctx context.Context, creatorID uuid.UUID, limit int) ([]store.PendingQuestion, error) {
	var rows []store.PendingQuestion
	err := s.selectRows(ctx, "pending_questions", &rows, `
		SELECT q.id AS question_id, l.id AS lesson_id, l.title AS lesson_title, q.text,
		       u.email AS asked_by, q.created_at
		FROM video_questions q
		JOIN video_lessons l ON l.id = q.lesson_id
		JOIN users u ON u.id = q.user_id
		WHERE l.creator_id = $1 AND NOT l.is_deleted
		  AND NOT EXISTS (SELECT 1 FROM video_answers a WHERE a.question_id = q.id)
		ORDER BY q.created_at DESC
		LIMIT $2
	`, creatorID, limit)
	return rows, err
}

// StudentLessons reports watch progress for each enrolled lesson.
func (s *PostgresReportStore) StudentLessons(ctx context.Context, userID uuid.UUID) ([]store.StudentLessonRow, error) {
	var rows []store.StudentLessonRow
	err := s.selectRows(ctx, "student_lessons", &rows, `
		SELECT l.id AS lesson_id, l.title,
		       COUNT(DISTINCT v.id) AS video_count,
		       COUNT(DISTINCT vv.video_id) AS watched_videos,
		       COUNT(DISTINCT vv.video_id) FILTER (WHERE vv.completed) AS completed_videos,
		       COALESCE(SUM(vv.watch_duration_seconds), 0) AS total_watch_seconds
		FROM video_enrollments e
		JOIN video_lessons l ON l.id = e.lesson_id AND NOT l.is_deleted
		LEFT JOIN videos v ON v.lesson_id = l.id AND NOT v.is_deleted
		LEFT JOIN video_views vv ON vv.video_id = v.id AND vv.user_id = e.user_id
		WHERE e.user_id = $1
		GROUP BY l.id, l.title, e.enrolled_at
		ORDER BY e.enrolled_at DESC
	`, userID)
	return rows, err
}

// StudentQuestions returns the student's newest questions with answer counts.
func (s *PostgresReportStore) StudentQuestions(ctx context.Context, userID uuid.UUID, limit int) ([]store.StudentQuestionRow, error) {
	var rows []store.StudentQuestionRow
	err := s.selectRows(ctx, "student_questions", &rows, `
		SELECT q.id AS question_id, l.title AS lesson_title, q.text,
		       (SELECT COUNT(*) FROM video_answers a WHERE a.question_id = q.id) AS answers_count,
		       q.created_at
		FROM video_questions q
		JOIN video_lessons l ON l.id = q.lesson_id
		WHERE q.user_id = $1
		ORDER BY q.created_at DESC
		LIMIT $2
	`, userID, limit)
	return rows, err
}

// AttemptRows lists the user's reading attempts newest first with answer tallies.
func (s *PostgresReportStore) AttemptRows(ctx context.Context, userID uuid.UUID) ([]store.AttemptRow, error) {
	var rows []store.AttemptRow
	err := s.selectRows(ctx, "attempt_rows", &rows, `
		SELECT a.id AS attempt_id, t.title AS test_title, t.mode, a.status, a.score,
		       a.total_time, a.started_at,
		       COUNT(ans.id) FILTER (WHERE ans.is_correct) AS correct,
		       COUNT(ans.id) AS answered,
		       (SELECT COUNT(*) FROM reading_questions q
		          JOIN reading_passages p ON p.id = q.passage_id
		         WHERE p.test_id = t.id) AS question_count
		FROM reading_attempts a
		JOIN reading_tests t ON t.id = a.test_id
		LEFT JOIN reading_answers ans ON ans.attempt_id = a.id
		WHERE a.user_id = $1
		GROUP BY a.id, t.id
		ORDER BY a.started_at DESC
	`, userID)
	return rows, err
}

// QuestionTypeAccuracy tallies answers in completed attempts per question type.
func (s *PostgresReportStore) QuestionTypeAccuracy(ctx context.Context, userID uuid.UUID) ([]store.QuestionTypeAccuracy, error) {
	var rows []store.QuestionTypeAccuracy
	err := s.selectRows(ctx, "question_type_accuracy", &rows, `
		SELECT q.question_type,
		       COUNT(*) FILTER (WHERE ans.is_correct) AS correct,
		       COUNT(*) AS total
		FROM reading_answers ans
		JOIN reading_attempts a ON a.id = ans.attempt_id
		JOIN reading_questions q ON q.id = ans.question_id
		WHERE a.user_id = $1 AND a.status = $2
		GROUP BY q.question_type
		ORDER BY q.question_type
	`, userID, domain.AttemptCompleted)
	return rows, err
}

// ScoreSeries returns scored submissions oldest first.
func (s *PostgresReportStore) ScoreSeries(ctx context.Context, userID uuid.UUID) ([]store.ScorePoint, error) {
	var rows []store.ScorePoint
	err := s.selectRows(ctx, "score_series", &rows, `
		SELECT type, overall_score, created_at
		FROM toefl_submissions
		WHERE user_id = $1 AND status = $2 AND overall_score IS NOT NULL
		ORDER BY created_at ASC
	`, userID, domain.SubmissionCompleted)
	return rows, err
}

// RoleCounts counts users per role.
func (s *PostgresReportStore) RoleCounts(ctx context.Context) (*store.RoleCounts, error) {
	var counts store.RoleCounts
	err := s.getRow(ctx, "role_counts", &counts, `
		SELECT COUNT(*) FILTER (WHERE role = 'student') AS students,
		       COUNT(*) FILTER (WHERE role = 'teacher') AS teachers,
		       COUNT(*) FILTER (WHERE role = 'admin') AS admins
		FROM users
	`)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}
