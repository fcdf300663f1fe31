// Package video implements the video lesson app: lessons authored by teachers,
// uploaded videos, enrollment, ratings, questions and answers, watch tracking
// and the teacher and student dashboards.
package video

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/media"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/store"
)

// Listing limits.
const (
	RecentRatingsLimit    = 10
	PendingQuestionsLimit = 10
	StudentQuestionsLimit = 5
)

// LessonInput is the authoring payload of a lesson.
type LessonInput struct {
	Title           string
	Description     string
	Subject         string
	Level           domain.LessonLevel
	Skill           string
	DurationSeconds int
}

// Upload is a video file sent by a lesson creator.
type Upload struct {
	Title           string
	Filename        string
	Size            int64
	DurationSeconds int
	Content         io.Reader
}

// Service is the video lesson use case set.
type Service interface {
	Browse(ctx context.Context, filter store.VideoLessonFilter) ([]*domain.VideoLesson, error)
	CreateLesson(ctx context.Context, actor service.Actor, in LessonInput) (*domain.VideoLesson, error)
	GetLesson(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*domain.VideoLesson, error)
	Publish(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*domain.VideoLesson, error)

	UploadVideo(ctx context.Context, actor service.Actor, lessonID uuid.UUID, up Upload) (*domain.Video, error)
	ListVideos(ctx context.Context, actor service.Actor, lessonID uuid.UUID) ([]*domain.Video, error)
	Watch(ctx context.Context, actor service.Actor, videoID uuid.UUID) (*WatchView, error)
	// OpenVideo returns the video and its open file. The caller closes it.
	OpenVideo(ctx context.Context, actor service.Actor, videoID uuid.UUID) (*domain.Video, *os.File, error)

	Enroll(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (created bool, err error)
	Rate(ctx context.Context, actor service.Actor, lessonID uuid.UUID, score int) (*RatingOutcome, error)
	Ratings(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*RatingSummary, error)

	AskQuestion(ctx context.Context, actor service.Actor, lessonID uuid.UUID, text string) (*domain.LessonQuestion, error)
	Questions(ctx context.Context, actor service.Actor, lessonID uuid.UUID) ([]*QuestionView, error)
	Answer(ctx context.Context, actor service.Actor, questionID uuid.UUID, text string) (*domain.LessonAnswer, error)

	RecordView(ctx context.Context, actor service.Actor, videoID uuid.UUID, watchSeconds int, completed bool) (*ViewOutcome, error)

	LessonStats(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*LessonStats, error)
	TeacherDashboard(ctx context.Context, actor service.Actor) (*TeacherDashboard, error)
	StudentDashboard(ctx context.Context, actor service.Actor) (*StudentDashboard, error)
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	videos         store.VideoStore
	reports        store.ReportStore
	files          media.Storage
	db             *sql.DB
	maxUploadBytes int64
	now            func() time.Time
	logger         *slog.Logger
}

var _ Service = (*ServiceImpl)(nil)

// NewService creates a video service. maxUploadBytes <= 0 disables the limit.
func NewService(
	videos store.VideoStore,
	reports store.ReportStore,
	files media.Storage,
	db *sql.DB,
	maxUploadBytes int64,
	logger *slog.Logger,
) *ServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceImpl{
		videos:         videos,
		reports:        reports,
		files:          files,
		db:             db,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		logger:         logger.With(slog.String("component", "video_service")),
	}
}

// Browse implements Service.
func (s *ServiceImpl) Browse(ctx context.Context, filter store.VideoLessonFilter) ([]*domain.VideoLesson, error) {
	lessons, err := s.videos.ListPublished(ctx, filter)
	if err != nil {
		return nil, service.NewServiceError("video", "browse", err)
	}
	return lessons, nil
}

// CreateLesson implements Service. The creator is enrolled in the new lesson.
func (s *ServiceImpl) CreateLesson(ctx context.Context, actor service.Actor, in LessonInput) (*domain.VideoLesson, error) {
	if !actor.IsTeacher() {
		return nil, service.ErrForbidden
	}
	lesson, err := domain.NewVideoLesson(actor.ID, in.Title, in.Description, in.Subject, in.Level, in.Skill, in.DurationSeconds)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		videos := s.videos.WithTx(tx)
		if err := videos.CreateLesson(ctx, lesson); err != nil {
			return err
		}
		_, err := videos.Enroll(ctx, actor.ID, lesson.ID)
		return err
	})
	if err != nil {
		return nil, service.NewServiceError("video", "create_lesson", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("video lesson created",
		slog.String("lesson_id", lesson.ID.String()))
	return lesson, nil
}

// visibleLesson returns the lesson when it is published or owned by actor.
func (s *ServiceImpl) visibleLesson(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*domain.VideoLesson, error) {
	lesson, err := s.videos.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.IsPublished() && lesson.CreatorID != actor.ID {
		return nil, store.ErrLessonNotFound
	}
	return lesson, nil
}

// ownLesson returns the lesson when actor created it.
func (s *ServiceImpl) ownLesson(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*domain.VideoLesson, error) {
	lesson, err := s.videos.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.CreatorID != actor.ID {
		return nil, service.ErrNotOwned
	}
	return lesson, nil
}

// participantLesson returns a published lesson actor is enrolled in.
func (s *ServiceImpl) participantLesson(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*domain.VideoLesson, error) {
	lesson, err := s.videos.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.IsPublished() {
		return nil, store.ErrLessonNotFound
	}
	if err := s.requireEnrolled(ctx, actor, lesson.ID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *ServiceImpl) requireEnrolled(ctx context.Context, actor service.Actor, lessonID uuid.UUID) error {
	enrolled, err := s.videos.IsEnrolled(ctx, actor.ID, lessonID)
	if err != nil {
		return service.NewServiceError("video", "check_enrollment", err)
	}
	if !enrolled {
		return service.ErrNotEnrolled
	}
	return nil
}

// GetLesson implements Service.
func (s *ServiceImpl) GetLesson(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*domain.VideoLesson, error) {
	return s.visibleLesson(ctx, actor, lessonID)
}

// Publish implements Service.
func (s *ServiceImpl) Publish(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*domain.VideoLesson, error) {
	lesson, err := s.ownLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}

	count, err := s.videos.CountVideos(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "publish", err)
	}
	if count == 0 {
		return nil, service.ErrNoVideos
	}

	lesson.Publish(s.now())
	if err := s.videos.UpdateLesson(ctx, lesson); err != nil {
		return nil, service.NewServiceError("video", "publish", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("video lesson published",
		slog.String("lesson_id", lessonID.String()))
	return lesson, nil
}

// UploadVideo implements Service. The file is removed again when the video
// row cannot be stored.
func (s *ServiceImpl) UploadVideo(
	ctx context.Context,
	actor service.Actor,
	lessonID uuid.UUID,
	up Upload,
) (*domain.Video, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.ownLesson(ctx, actor, lessonID); err != nil {
		return nil, err
	}
	if s.maxUploadBytes > 0 && up.Size > s.maxUploadBytes {
		return nil, media.ErrTooLarge
	}

	video, err := domain.NewVideo(lessonID, up.Title, up.Filename, up.Size, up.DurationSeconds)
	if err != nil {
		return nil, err
	}

	written, err := s.files.Save(video.FilePath, up.Content, s.maxUploadBytes)
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) {
			return nil, err
		}
		log.Error("failed to store video file", slog.String("error", err.Error()))
		return nil, service.NewServiceError("video", "upload", err)
	}
	video.SizeBytes = written

	if err := s.videos.CreateVideo(ctx, video); err != nil {
		if rmErr := s.files.Remove(video.FilePath); rmErr != nil {
			log.Warn("failed to remove orphaned video file",
				slog.String("path", video.FilePath),
				slog.String("error", rmErr.Error()))
		}
		return nil, service.NewServiceError("video", "upload", err)
	}

	log.Info("video uploaded",
		slog.String("lesson_id", lessonID.String()),
		slog.String("video_id", video.ID.String()),
		slog.Int64("size_bytes", written))
	return video, nil
}

// ListVideos implements Service. The creator always sees the list; students
// must be enrolled in the published lesson.
func (s *ServiceImpl) ListVideos(ctx context.Context, actor service.Actor, lessonID uuid.UUID) ([]*domain.Video, error) {
	lesson, err := s.videos.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.CreatorID != actor.ID {
		if !lesson.IsPublished() {
			return nil, store.ErrLessonNotFound
		}
		if err := s.requireEnrolled(ctx, actor, lessonID); err != nil {
			return nil, err
		}
	}

	videos, err := s.videos.ListVideos(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "list_videos", err)
	}
	return videos, nil
}

// accessibleVideo loads a video the actor may watch.
func (s *ServiceImpl) accessibleVideo(
	ctx context.Context,
	actor service.Actor,
	videoID uuid.UUID,
) (*domain.Video, *domain.VideoLesson, error) {
	video, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, nil, err
	}
	lesson, err := s.videos.GetLesson(ctx, video.LessonID)
	if err != nil {
		return nil, nil, err
	}
	if lesson.CreatorID == actor.ID {
		return video, lesson, nil
	}
	if !lesson.IsPublished() {
		return nil, nil, store.ErrVideoNotFound
	}
	if err := s.requireEnrolled(ctx, actor, lesson.ID); err != nil {
		return nil, nil, err
	}
	return video, lesson, nil
}

// Watch implements Service.
func (s *ServiceImpl) Watch(ctx context.Context, actor service.Actor, videoID uuid.UUID) (*WatchView, error) {
	video, lesson, err := s.accessibleVideo(ctx, actor, videoID)
	if err != nil {
		return nil, err
	}

	videos, err := s.videos.ListVideos(ctx, lesson.ID)
	if err != nil {
		return nil, service.NewServiceError("video", "watch", err)
	}
	// Playback runs oldest first; the store lists newest first.
	slices.Reverse(videos)

	view := &WatchView{Lesson: lesson, Video: video, Total: len(videos), Position: 1}
	for i, v := range videos {
		if v.ID != video.ID {
			continue
		}
		view.Position = i + 1
		if i > 0 {
			view.Previous = videos[i-1]
		}
		if i < len(videos)-1 {
			view.Next = videos[i+1]
		}
		break
	}
	return view, nil
}

// OpenVideo implements Service.
func (s *ServiceImpl) OpenVideo(ctx context.Context, actor service.Actor, videoID uuid.UUID) (*domain.Video, *os.File, error) {
	video, _, err := s.accessibleVideo(ctx, actor, videoID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.files.Open(video.FilePath)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Warn("video file missing",
				slog.String("video_id", videoID.String()))
			return nil, nil, store.ErrVideoNotFound
		}
		return nil, nil, service.NewServiceError("video", "stream", err)
	}
	return video, f, nil
}

// Enroll implements Service.
func (s *ServiceImpl) Enroll(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (bool, error) {
	lesson, err := s.videos.GetLesson(ctx, lessonID)
	if err != nil {
		return false, err
	}
	if !lesson.IsPublished() {
		return false, service.ErrLessonNotPublished
	}
	created, err := s.videos.Enroll(ctx, actor.ID, lessonID)
	if err != nil {
		return false, service.NewServiceError("video", "enroll", err)
	}
	return created, nil
}

// Rate implements Service.
func (s *ServiceImpl) Rate(ctx context.Context, actor service.Actor, lessonID uuid.UUID, score int) (*RatingOutcome, error) {
	if _, err := s.participantLesson(ctx, actor, lessonID); err != nil {
		return nil, err
	}
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rating := &domain.Rating{
		ID:        uuid.New(),
		UserID:    actor.ID,
		LessonID:  lessonID,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.videos.UpsertRating(ctx, rating)
	if err != nil {
		return nil, service.NewServiceError("video", "rate", err)
	}

	stats, err := s.videos.RatingStats(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "rate", err)
	}
	return &RatingOutcome{
		Rating:        rating,
		Created:       created,
		LessonAverage: domain.Round(stats.Average, 2),
		TotalRatings:  stats.Total,
	}, nil
}

// Ratings implements Service.
func (s *ServiceImpl) Ratings(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*RatingSummary, error) {
	lesson, err := s.visibleLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}

	stats, err := s.videos.RatingStats(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "ratings", err)
	}

	summary := &RatingSummary{Lesson: lesson, Stats: newRatingStatsView(stats)}

	mine, err := s.videos.GetRating(ctx, actor.ID, lessonID)
	switch {
	case err == nil:
		summary.UserRating = &mine.Score
	case !errors.Is(err, store.ErrRatingNotFound):
		return nil, service.NewServiceError("video", "ratings", err)
	}

	summary.Recent, err = s.videos.RecentRatings(ctx, lessonID, RecentRatingsLimit)
	if err != nil {
		return nil, service.NewServiceError("video", "ratings", err)
	}
	return summary, nil
}

// AskQuestion implements Service.
func (s *ServiceImpl) AskQuestion(
	ctx context.Context,
	actor service.Actor,
	lessonID uuid.UUID,
	text string,
) (*domain.LessonQuestion, error) {
	if _, err := s.participantLesson(ctx, actor, lessonID); err != nil {
		return nil, err
	}
	q, err := domain.NewLessonQuestion(lessonID, actor.ID, text)
	if err != nil {
		return nil, err
	}
	if err := s.videos.CreateQuestion(ctx, q); err != nil {
		return nil, service.NewServiceError("video", "ask_question", err)
	}
	return q, nil
}

// Questions implements Service.
func (s *ServiceImpl) Questions(ctx context.Context, actor service.Actor, lessonID uuid.UUID) ([]*QuestionView, error) {
	if _, err := s.visibleLesson(ctx, actor, lessonID); err != nil {
		return nil, err
	}
	qs, err := s.videos.ListQuestions(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "questions", err)
	}
	views := make([]*QuestionView, len(qs))
	for i, q := range qs {
		answers := q.Answers
		if answers == nil {
			answers = []domain.LessonAnswer{}
		}
		views[i] = &QuestionView{
			LessonQuestion: q.LessonQuestion,
			Answers:        answers,
			AnswersCount:   len(answers),
			IsMine:         q.UserID == actor.ID,
		}
	}
	return views, nil
}

// Answer implements Service. Only the teacher who created the lesson answers.
func (s *ServiceImpl) Answer(
	ctx context.Context,
	actor service.Actor,
	questionID uuid.UUID,
	text string,
) (*domain.LessonAnswer, error) {
	if !actor.IsTeacher() {
		return nil, service.ErrForbidden
	}
	q, err := s.videos.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownLesson(ctx, actor, q.LessonID); err != nil {
		return nil, err
	}

	answer, err := domain.NewLessonAnswer(questionID, actor.ID, text)
	if err != nil {
		return nil, err
	}
	if err := s.videos.CreateAnswer(ctx, answer); err != nil {
		return nil, service.NewServiceError("video", "answer", err)
	}
	return answer, nil
}

// RecordView implements Service.
func (s *ServiceImpl) RecordView(
	ctx context.Context,
	actor service.Actor,
	videoID uuid.UUID,
	watchSeconds int,
	completed bool,
) (*ViewOutcome, error) {
	if watchSeconds < 0 {
		return nil, domain.ErrInvalidDuration
	}
	if _, _, err := s.accessibleVideo(ctx, actor, videoID); err != nil {
		return nil, err
	}

	view, err := s.videos.GetView(ctx, actor.ID, videoID)
	created := false
	switch {
	case errors.Is(err, store.ErrNotFound):
		view = &domain.VideoView{UserID: actor.ID, VideoID: videoID}
		created = true
	case err != nil:
		return nil, service.NewServiceError("video", "record_view", err)
	}

	view.Merge(watchSeconds, completed, s.now())
	if err := s.videos.SaveView(ctx, view); err != nil {
		return nil, service.NewServiceError("video", "record_view", err)
	}
	return &ViewOutcome{View: view, Created: created}, nil
}

// LessonStats implements Service.
func (s *ServiceImpl) LessonStats(ctx context.Context, actor service.Actor, lessonID uuid.UUID) (*LessonStats, error) {
	lesson, err := s.ownLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}

	views, err := s.reports.LessonViewStats(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "lesson_stats", err)
	}
	ratings, err := s.videos.RatingStats(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "lesson_stats", err)
	}
	questions, err := s.reports.LessonQuestionStats(ctx, lessonID)
	if err != nil {
		return nil, service.NewServiceError("video", "lesson_stats", err)
	}

	return &LessonStats{
		Lesson:  lesson,
		Views:   newViewSummary(views),
		Ratings: newRatingStatsView(ratings),
		Questions: QuestionSummary{
			Total:      questions.Total,
			Answered:   questions.Answered,
			Unanswered: questions.Total - questions.Answered,
		},
	}, nil
}

// TeacherDashboard implements Service.
func (s *ServiceImpl) TeacherDashboard(ctx context.Context, actor service.Actor) (*TeacherDashboard, error) {
	if !actor.IsTeacher() {
		return nil, service.ErrForbidden
	}
	rows, err := s.reports.TeacherLessons(ctx, actor.ID)
	if err != nil {
		return nil, service.NewServiceError("video", "teacher_dashboard", err)
	}
	pending, err := s.reports.PendingQuestions(ctx, actor.ID, PendingQuestionsLimit)
	if err != nil {
		return nil, service.NewServiceError("video", "teacher_dashboard", err)
	}
	return newTeacherDashboard(rows, pending), nil
}

// StudentDashboard implements Service.
func (s *ServiceImpl) StudentDashboard(ctx context.Context, actor service.Actor) (*StudentDashboard, error) {
	rows, err := s.reports.StudentLessons(ctx, actor.ID)
	if err != nil {
		return nil, service.NewServiceError("video", "student_dashboard", err)
	}
	questions, err := s.reports.StudentQuestions(ctx, actor.ID, StudentQuestionsLimit)
	if err != nil {
		return nil, service.NewServiceError("video", "student_dashboard", err)
	}
	return newStudentDashboard(rows, questions), nil
}
