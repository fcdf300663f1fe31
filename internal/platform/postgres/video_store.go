package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/store"
)

const (
	videoLessonColumns = `id, title, description, subject, level, skill, duration_seconds,
		status, published_at, creator_id, is_deleted, created_at`
	videoColumns  = `id, lesson_id, title, file_path, format, size_bytes, duration_seconds, is_deleted, uploaded_at`
	ratingColumns = `id, user_id, lesson_id, score, created_at, updated_at`
)

// PostgresVideoStore implements store.VideoStore.
type PostgresVideoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresVideoStore creates a video lesson store over db.
func NewPostgresVideoStore(db store.DBTX, logger *slog.Logger) *PostgresVideoStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresVideoStore{
		db:     db,
		logger: logger.With(slog.String("component", "video_store")),
	}
}

var _ store.VideoStore = (*PostgresVideoStore)(nil)

// WithTx returns a store bound to tx.
func (s *PostgresVideoStore) WithTx(tx *sql.Tx) store.VideoStore {
	return &PostgresVideoStore{db: tx, logger: s.logger}
}

func scanVideoLesson(row interface{ Scan(...any) error }) (*domain.VideoLesson, error) {
	var l domain.VideoLesson
	var level, status string
	err := row.Scan(&l.ID, &l.Title, &l.Description, &l.Subject, &level, &l.Skill,
		&l.DurationSeconds, &status, &l.PublishedAt, &l.CreatorID, &l.IsDeleted, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Level = domain.LessonLevel(level)
	l.Status = domain.LessonStatus(status)
	return &l, nil
}

func (s *PostgresVideoStore) queryLessons(ctx context.Context, query string, args ...any) ([]*domain.VideoLesson, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lessons []*domain.VideoLesson
	for rows.Next() {
		l, err := scanVideoLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// CreateLesson inserts a lesson.
func (s *PostgresVideoStore) CreateLesson(ctx context.Context, l *domain.VideoLesson) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := l.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_lessons (`+videoLessonColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, l.ID, l.Title, l.Description, l.Subject, l.Level, l.Skill, l.DurationSeconds,
		l.Status, l.PublishedAt, l.CreatorID, l.IsDeleted, l.CreatedAt)
	if err != nil {
		log.Error("failed to create video lesson",
			slog.String("error", err.Error()),
			slog.String("lesson_id", l.ID.String()))
		return MapError(err)
	}
	log.Info("video lesson created",
		slog.String("lesson_id", l.ID.String()),
		slog.String("creator_id", l.CreatorID.String()))
	return nil
}

// GetLesson hides soft-deleted lessons.
func (s *PostgresVideoStore) GetLesson(ctx context.Context, id uuid.UUID) (*domain.VideoLesson, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + videoLessonColumns + ` FROM video_lessons WHERE id = $1 AND NOT is_deleted`
	lesson, err := scanVideoLesson(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get video lesson",
				slog.String("error", err.Error()),
				slog.String("lesson_id", id.String()))
		}
		return nil, mapNotFound(err, store.ErrLessonNotFound)
	}
	return lesson, nil
}

// UpdateLesson writes every mutable column.
func (s *PostgresVideoStore) UpdateLesson(ctx context.Context, l *domain.VideoLesson) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE video_lessons
		SET title = $1, description = $2, subject = $3, level = $4, skill = $5,
		    duration_seconds = $6, status = $7, published_at = $8, is_deleted = $9
		WHERE id = $10
	`, l.Title, l.Description, l.Subject, l.Level, l.Skill, l.DurationSeconds,
		l.Status, l.PublishedAt, l.IsDeleted, l.ID)
	if err != nil {
		log.Error("failed to update video lesson",
			slog.String("error", err.Error()),
			slog.String("lesson_id", l.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrLessonNotFound)
}

// ListPublished returns the catalogue, newest publication first.
func (s *PostgresVideoStore) ListPublished(ctx context.Context, filter store.VideoLessonFilter) ([]*domain.VideoLesson, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var b queryBuilder
	b.where("status = %s AND NOT is_deleted", domain.LessonStatusPublished)
	if filter.Subject != "" {
		b.where("subject = %s", filter.Subject)
	}
	if filter.Level != "" {
		b.where("level = %s", filter.Level)
	}
	if filter.Skill != "" {
		b.where("skill = %s", filter.Skill)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		b.where("(title ILIKE %[1]s OR description ILIKE %[1]s)", containsPattern(term))
	}

	query := `SELECT ` + videoLessonColumns + ` FROM video_lessons` + b.clause() +
		` ORDER BY published_at DESC NULLS LAST, created_at DESC`
	lessons, err := s.queryLessons(ctx, query, b.args...)
	if err != nil {
		log.Error("failed to list published lessons", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return lessons, nil
}

// ListByCreator returns the teacher's non-deleted lessons in any status.
func (s *PostgresVideoStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.VideoLesson, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	lessons, err := s.queryLessons(ctx, `SELECT `+videoLessonColumns+`
		FROM video_lessons WHERE creator_id = $1 AND NOT is_deleted ORDER BY created_at DESC`, creatorID)
	if err != nil {
		log.Error("failed to list creator lessons",
			slog.String("error", err.Error()),
			slog.String("creator_id", creatorID.String()))
		return nil, MapError(err)
	}
	return lessons, nil
}

func scanVideo(row interface{ Scan(...any) error }) (*domain.Video, error) {
	var v domain.Video
	err := row.Scan(&v.ID, &v.LessonID, &v.Title, &v.FilePath, &v.Format, &v.SizeBytes,
		&v.DurationSeconds, &v.IsDeleted, &v.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVideo inserts an uploaded video.
func (s *PostgresVideoStore) CreateVideo(ctx context.Context, v *domain.Video) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (`+videoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, v.ID, v.LessonID, v.Title, v.FilePath, v.Format, v.SizeBytes,
		v.DurationSeconds, v.IsDeleted, v.UploadedAt)
	if err != nil {
		log.Error("failed to create video",
			slog.String("error", err.Error()),
			slog.String("lesson_id", v.LessonID.String()))
		return MapError(err)
	}
	return nil
}

// GetVideo hides soft-deleted videos.
func (s *PostgresVideoStore) GetVideo(ctx context.Context, id uuid.UUID) (*domain.Video, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1 AND NOT is_deleted`
	video, err := scanVideo(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("failed to get video",
				slog.String("error", err.Error()),
				slog.String("video_id", id.String()))
		}
		return nil, mapNotFound(err, store.ErrVideoNotFound)
	}
	return video, nil
}

// ListVideos returns the lesson's videos newest first.
func (s *PostgresVideoStore) ListVideos(ctx context.Context, lessonID uuid.UUID) ([]*domain.Video, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `SELECT `+videoColumns+`
		FROM videos WHERE lesson_id = $1 AND NOT is_deleted ORDER BY uploaded_at DESC, id`, lessonID)
	if err != nil {
		log.Error("failed to list videos",
			slog.String("error", err.Error()),
			slog.String("lesson_id", lessonID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var videos []*domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, MapError(err)
		}
		videos = append(videos, v)
	}
	return videos, MapError(rows.Err())
}

// CountVideos counts non-deleted videos.
func (s *PostgresVideoStore) CountVideos(ctx context.Context, lessonID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM videos WHERE lesson_id = $1 AND NOT is_deleted`, lessonID).Scan(&n)
	if err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// Enroll inserts the enrollment unless it already exists.
func (s *PostgresVideoStore) Enroll(ctx context.Context, userID, lessonID uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO video_enrollments (user_id, lesson_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, lesson_id) DO NOTHING
	`, userID, lessonID)
	if err != nil {
		log.Error("failed to enroll",
			slog.String("error", err.Error()),
			slog.String("lesson_id", lessonID.String()))
		return false, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}
	return n > 0, nil
}

// IsEnrolled reports whether the enrollment row exists.
func (s *PostgresVideoStore) IsEnrolled(ctx context.Context, userID, lessonID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM video_enrollments WHERE user_id = $1 AND lesson_id = $2)
	`, userID, lessonID).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// UpsertRating relies on xmax = 0 to tell inserts from updates.
func (s *PostgresVideoStore) UpsertRating(ctx context.Context, r *domain.Rating) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateScore(r.Score); err != nil {
		return false, err
	}
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO video_ratings (`+ratingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0)
	`, r.ID, r.UserID, r.LessonID, r.Score, r.CreatedAt, r.UpdatedAt).Scan(&r.ID, &r.CreatedAt, &created)
	if err != nil {
		log.Error("failed to upsert rating",
			slog.String("error", err.Error()),
			slog.String("lesson_id", r.LessonID.String()))
		return false, MapError(err)
	}
	return created, nil
}

func scanRating(row interface{ Scan(...any) error }) (*domain.Rating, error) {
	var r domain.Rating
	if err := row.Scan(&r.ID, &r.UserID, &r.LessonID, &r.Score, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRating returns store.ErrRatingNotFound when the user has not rated.
func (s *PostgresVideoStore) GetRating(ctx context.Context, userID, lessonID uuid.UUID) (*domain.Rating, error) {
	r, err := scanRating(s.db.QueryRowContext(ctx, `SELECT `+ratingColumns+`
		FROM video_ratings WHERE user_id = $1 AND lesson_id = $2`, userID, lessonID))
	if err != nil {
		return nil, mapNotFound(err, store.ErrRatingNotFound)
	}
	return r, nil
}

// RatingStats computes the average, total and per-star distribution.
func (s *PostgresVideoStore) RatingStats(ctx context.Context, lessonID uuid.UUID) (*store.RatingStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT score, COUNT(*) FROM video_ratings WHERE lesson_id = $1 GROUP BY score
	`, lessonID)
	if err != nil {
		log.Error("failed to load rating stats",
			slog.String("error", err.Error()),
			slog.String("lesson_id", lessonID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var stats store.RatingStats
	sum := 0
	for rows.Next() {
		var score, count int
		if err := rows.Scan(&score, &count); err != nil {
			return nil, MapError(err)
		}
		if score >= 1 && score <= 5 {
			stats.Distribution[score-1] = count
		}
		stats.Total += count
		sum += score * count
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	if stats.Total > 0 {
		stats.Average = domain.Round(float64(sum)/float64(stats.Total), 2)
	}
	return &stats, nil
}

// RecentRatings returns the newest ratings first.
func (s *PostgresVideoStore) RecentRatings(ctx context.Context, lessonID uuid.UUID, limit int) ([]*domain.Rating, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ratingColumns+`
		FROM video_ratings WHERE lesson_id = $1 ORDER BY updated_at DESC LIMIT $2`, lessonID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ratings []*domain.Rating
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, MapError(err)
		}
		ratings = append(ratings, r)
	}
	return ratings, MapError(rows.Err())
}

// CreateQuestion inserts a student question.
func (s *PostgresVideoStore) CreateQuestion(ctx context.Context, q *domain.LessonQuestion) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_questions (id, lesson_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, q.ID, q.LessonID, q.UserID, q.Text, q.CreatedAt)
	if err != nil {
		log.Error("failed to create question",
			slog.String("error", err.Error()),
			slog.String("lesson_id", q.LessonID.String()))
		return MapError(err)
	}
	return nil
}

// GetQuestion returns store.ErrQuestionNotFound when missing.
func (s *PostgresVideoStore) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.LessonQuestion, error) {
	var q domain.LessonQuestion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lesson_id, user_id, text, created_at FROM video_questions WHERE id = $1
	`, id).Scan(&q.ID, &q.LessonID, &q.UserID, &q.Text, &q.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err, store.ErrQuestionNotFound)
	}
	return &q, nil
}

// ListQuestions returns questions newest first, each with its answers oldest
// first. Answers are fetched in one query and grouped in memory.
func (s *PostgresVideoStore) ListQuestions(ctx context.Context, lessonID uuid.UUID) ([]*store.QuestionWithAnswers, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lesson_id, user_id, text, created_at
		FROM video_questions WHERE lesson_id = $1 ORDER BY created_at DESC
	`, lessonID)
	if err != nil {
		log.Error("failed to list questions",
			slog.String("error", err.Error()),
			slog.String("lesson_id", lessonID.String()))
		return nil, MapError(err)
	}

	var questions []*store.QuestionWithAnswers
	byID := make(map[uuid.UUID]*store.QuestionWithAnswers)
	for rows.Next() {
		var q store.QuestionWithAnswers
		if err := rows.Scan(&q.ID, &q.LessonID, &q.UserID, &q.Text, &q.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, MapError(err)
		}
		questions = append(questions, &q)
		byID[q.ID] = &q
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	answerRows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.question_id, a.user_id, a.text, a.created_at
		FROM video_answers a
		JOIN video_questions q ON q.id = a.question_id
		WHERE q.lesson_id = $1
		ORDER BY a.created_at ASC
	`, lessonID)
	if err != nil {
		log.Error("failed to list answers", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = answerRows.Close() }()

	for answerRows.Next() {
		var a domain.LessonAnswer
		if err := answerRows.Scan(&a.ID, &a.QuestionID, &a.UserID, &a.Text, &a.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		if q, ok := byID[a.QuestionID]; ok {
			q.Answers = append(q.Answers, a)
		}
	}
	return questions, MapError(answerRows.Err())
}

// CreateAnswer inserts a teacher's answer.
func (s *PostgresVideoStore) CreateAnswer(ctx context.Context, a *domain.LessonAnswer) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_answers (id, question_id, user_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, a.QuestionID, a.UserID, a.Text, a.CreatedAt)
	if err != nil {
		log.Error("failed to create answer",
			slog.String("error", err.Error()),
			slog.String("question_id", a.QuestionID.String()))
		return MapError(err)
	}
	return nil
}

// GetView returns store.ErrNotFound when the user never watched the video.
func (s *PostgresVideoStore) GetView(ctx context.Context, userID, videoID uuid.UUID) (*domain.VideoView, error) {
	var v domain.VideoView
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, video_id, watch_duration_seconds, completed, updated_at
		FROM video_views WHERE user_id = $1 AND video_id = $2
	`, userID, videoID).Scan(&v.UserID, &v.VideoID, &v.WatchDurationSeconds, &v.Completed, &v.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err, store.ErrNotFound)
	}
	return &v, nil
}

// SaveView inserts or replaces the view row.
func (s *PostgresVideoStore) SaveView(ctx context.Context, v *domain.VideoView) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_views (user_id, video_id, watch_duration_seconds, completed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, video_id)
		DO UPDATE SET watch_duration_seconds = EXCLUDED.watch_duration_seconds,
		              completed = EXCLUDED.completed,
		              updated_at = EXCLUDED.updated_at
	`, v.UserID, v.VideoID, v.WatchDurationSeconds, v.Completed, v.UpdatedAt)
	if err != nil {
		log.Error("failed to save view",
			slog.String("error", err.Error()),
			slog.String("video_id", v.VideoID.String()))
		return MapError(err)
	}
	return nil
}
