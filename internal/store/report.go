package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
)

// DueReminder is one user with vocabulary due for review.
type DueReminder struct {
	UserID         uuid.UUID `db:"user_id"`
	Email          string    `db:"email"`
	EmailReminders bool      `db:"email_reminders"`
	TelegramChatID *int64    `db:"telegram_chat_id"`
	DueCount       int       `db:"due_count"`
}

// VocabStats summarises a user's vocabulary.
type VocabStats struct {
	Lessons      int `db:"lessons"        json:"lessons"`
	TotalWords   int `db:"total_words"    json:"total_words"`
	LearnedWords int `db:"learned_words"  json:"learned_words"`
	DueToday     int `db:"due_today"      json:"due_today"`
}

// ViewStats aggregates watch data for one lesson.
type ViewStats struct {
	Total             int `db:"total"`
	Completed         int `db:"completed"`
	TotalWatchSeconds int `db:"total_watch_seconds"`
}

// QuestionStats counts lesson questions by answered state.
type QuestionStats struct {
	Total    int `db:"total"`
	Answered int `db:"answered"`
}

// TeacherLessonRow is one line of the teacher dashboard.
type TeacherLessonRow struct {
	LessonID    uuid.UUID           `db:"lesson_id"`
	Title       string              `db:"title"`
	Status      domain.LessonStatus `db:"status"`
	Views       int                 `db:"views"`
	AvgRating   *float64            `db:"avg_rating"`
	Questions   int                 `db:"questions"`
	Unanswered  int                 `db:"unanswered"`
	Enrollments int                 `db:"enrollments"`
}

// PendingQuestion is an unanswered question on one of a teacher's lessons.
type PendingQuestion struct {
	QuestionID  uuid.UUID `db:"question_id"`
	LessonID    uuid.UUID `db:"lesson_id"`
	LessonTitle string    `db:"lesson_title"`
	Text        string    `db:"text"`
	AskedBy     string    `db:"asked_by"`
	CreatedAt   time.Time `db:"created_at"`
}

// StudentLessonRow is one enrolled lesson on the student dashboard.
type StudentLessonRow struct {
	LessonID          uuid.UUID `db:"lesson_id"`
	Title             string    `db:"title"`
	VideoCount        int       `db:"video_count"`
	WatchedVideos     int       `db:"watched_videos"`
	CompletedVideos   int       `db:"completed_videos"`
	TotalWatchSeconds int       `db:"total_watch_seconds"`
}

// StudentQuestionRow is a question the student asked, with answer count.
type StudentQuestionRow struct {
	QuestionID   uuid.UUID `db:"question_id"`
	LessonTitle  string    `db:"lesson_title"`
	Text         string    `db:"text"`
	AnswersCount int       `db:"answers_count"`
	CreatedAt    time.Time `db:"created_at"`
}

// AttemptRow is a completed or running attempt with its answer tallies.
type AttemptRow struct {
	AttemptID        uuid.UUID            `db:"attempt_id"`
	TestTitle        string               `db:"test_title"`
	Mode             domain.TestMode      `db:"mode"`
	Status           domain.AttemptStatus `db:"status"`
	Score            *int                 `db:"score"`
	TotalTimeSeconds *int                 `db:"total_time"`
	StartedAt        time.Time            `db:"started_at"`
	Correct          int                  `db:"correct"`
	Answered         int                  `db:"answered"`
	QuestionCount    int                  `db:"question_count"`
}

// QuestionTypeAccuracy is the user's hit rate for one question type.
type QuestionTypeAccuracy struct {
	QuestionType domain.QuestionType `db:"question_type"`
	Correct      int                 `db:"correct"`
	Total        int                 `db:"total"`
}

// ScorePoint is one completed TOEFL submission score.
type ScorePoint struct {
	Type      domain.SubmissionType `db:"type"`
	Score     float64               `db:"overall_score"`
	CreatedAt time.Time             `db:"created_at"`
}

// RoleCounts is the number of users per role.
type RoleCounts struct {
	Students int `db:"students"`
	Teachers int `db:"teachers"`
	Admins   int `db:"admins"`
}

// ReportStore serves read-only aggregate queries for dashboards, the admin
// user list and the reminder sweep.
type ReportStore interface {
	DueReminders(ctx context.Context, today domain.Date) ([]DueReminder, error)
	VocabStats(ctx context.Context, userID uuid.UUID, today domain.Date) (*VocabStats, error)

	LessonViewStats(ctx context.Context, lessonID uuid.UUID) (*ViewStats, error)
	LessonQuestionStats(ctx context.Context, lessonID uuid.UUID) (*QuestionStats, error)
	TeacherLessons(ctx context.Context, creatorID uuid.UUID) ([]TeacherLessonRow, error)
	PendingQuestions(ctx context.Context, creatorID uuid.UUID, limit int) ([]PendingQuestion, error)
	StudentLessons(ctx context.Context, userID uuid.UUID) ([]StudentLessonRow, error)
	StudentQuestions(ctx context.Context, userID uuid.UUID, limit int) ([]StudentQuestionRow, error)

	AttemptRows(ctx context.Context, userID uuid.UUID) ([]AttemptRow, error)
	QuestionTypeAccuracy(ctx context.Context, userID uuid.UUID) ([]QuestionTypeAccuracy, error)

	ScoreSeries(ctx context.Context, userID uuid.UUID) ([]ScorePoint, error)

	RoleCounts(ctx context.Context) (*RoleCounts, error)
}
