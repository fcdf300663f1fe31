package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service/video"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/samber/lo"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

// VideoLessonRequest is the lesson authoring payload.
type VideoLessonRequest struct {
	Title           string `json:"title"            validate:"required,max=255"`
	Description     string `json:"description"      validate:"required"`
	Subject         string `json:"subject"          validate:"required,max=100"`
	Level           string `json:"level"            validate:"required,oneof=beginner intermediate advanced"`
	Skill           string `json:"skill"            validate:"required,max=100"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
}

// RateRequest scores a lesson.
type RateRequest struct {
	Score int `json:"score"`
}

// TextRequest carries a question or answer.
type TextRequest struct {
	Text string `json:"text"`
}

// ViewRequest reports watch progress. WatchDuration is a pointer so a missing
// value is rejected instead of read as zero.
type ViewRequest struct {
	WatchDuration *int `json:"watch_duration"`
	Completed     bool `json:"completed"`
}

// VideoResponse adds display fields to a video.
type VideoResponse struct {
	*domain.Video
	MimeType        string `json:"mime_type"`
	FileSizeDisplay string `json:"file_size_display"`
}

func newVideoResponse(v *domain.Video) VideoResponse {
	return VideoResponse{
		Video:           v,
		MimeType:        v.MimeType(),
		FileSizeDisplay: domain.FormatFileSize(v.SizeBytes),
	}
}

// RatingResponse is the reply to a rating.
type RatingResponse struct {
	Message         string         `json:"message"`
	Rating          RatingSnapshot `json:"rating"`
	LessonAvgRating float64        `json:"lesson_avg_rating"`
	TotalRatings    int            `json:"total_ratings"`
}

// RatingSnapshot is the stored rating and whether it is new.
type RatingSnapshot struct {
	ID      string `json:"id"`
	Score   int    `json:"score"`
	Created bool   `json:"created"`
}

// VideoHandler serves /api/video.
type VideoHandler struct {
	videos         video.Service
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewVideoHandler creates a VideoHandler. maxUploadBytes caps the request
// body of uploads; zero leaves it to the service.
func NewVideoHandler(svc video.Service, maxUploadBytes int64, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{
		videos:         svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "video_handler")),
	}
}

// Browse handles GET /lessons.
func (h *VideoHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lessons, err := h.videos.Browse(r.Context(), store.VideoLessonFilter{
		Subject: q.Get("subject"),
		Level:   domain.LessonLevel(q.Get("level")),
		Skill:   q.Get("skill"),
		Search:  q.Get("search"),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list lessons")
		return
	}
	if lessons == nil {
		lessons = []*domain.VideoLesson{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lessons)
}

// CreateLesson handles POST /lessons.
func (h *VideoHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req VideoLessonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lesson, err := h.videos.CreateLesson(r.Context(), actor, video.LessonInput{
		Title:           req.Title,
		Description:     req.Description,
		Subject:         req.Subject,
		Level:           domain.LessonLevel(req.Level),
		Skill:           req.Skill,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create lesson")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, lesson)
}

// GetLesson handles GET /lessons/{id}.
func (h *VideoHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	lesson, err := h.videos.GetLesson(r.Context(), actor, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get lesson")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lesson)
}

// Publish handles POST /lessons/{id}/publish.
func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	lesson, err := h.videos.Publish(r.Context(), actor, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to publish lesson")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lesson)
}

// UploadVideo handles POST /lessons/{id}/videos with a multipart "file" and
// optional "title" and "duration_seconds" fields.
func (h *VideoHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "File exceeds the upload limit", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "A file field is required", err)
		return
	}
	defer func() { _ = file.Close() }()

	duration := 0
	if raw := strings.TrimSpace(r.FormValue("duration_seconds")); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			HandleAPIError(w, r,
				domain.NewValidationError("duration_seconds", "must be an integer", domain.ErrInvalidFormat), "")
			return
		}
	}

	v, err := h.videos.UploadVideo(r.Context(), actor, lessonID, video.Upload{
		Title:           r.FormValue("title"),
		Filename:        header.Filename,
		Size:            header.Size,
		DurationSeconds: duration,
		Content:         file,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to upload video")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, newVideoResponse(v))
}

// ListVideos handles GET /lessons/{id}/videos.
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	videos, err := h.videos.ListVideos(r.Context(), actor, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list videos")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lo.Map(videos, func(v *domain.Video, _ int) VideoResponse {
		return newVideoResponse(v)
	}))
}

// Watch handles GET /videos/{id}/watch.
func (h *VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	actor, videoID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.videos.Watch(r.Context(), actor, videoID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load video")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// Stream handles GET /videos/{id}/stream. Range requests are served by
// http.ServeContent.
func (h *VideoHandler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, videoID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	v, f, err := h.videos.OpenVideo(r.Context(), actor, videoID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to stream video")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to stream video")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("streaming video",
		slog.String("video_id", v.ID.String()),
		slog.String("range", r.Header.Get("Range")))
	w.Header().Set("Content-Type", v.MimeType())
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// Enroll handles POST /lessons/{id}/enroll.
func (h *VideoHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	created, err := h.videos.Enroll(r.Context(), actor, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enroll")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	shared.RespondWithJSON(w, r, status, map[string]any{"lesson_id": lessonID, "created": created})
}

// Rate handles POST /lessons/{id}/rate.
func (h *VideoHandler) Rate(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req RateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	outcome, err := h.videos.Rate(r.Context(), actor, lessonID, req.Score)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to rate lesson")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RatingResponse{
		Message: outcome.Message(),
		Rating: RatingSnapshot{
			ID:      outcome.Rating.ID.String(),
			Score:   outcome.Rating.Score,
			Created: outcome.Created,
		},
		LessonAvgRating: outcome.LessonAverage,
		TotalRatings:    outcome.TotalRatings,
	})
}

// Ratings handles GET /lessons/{id}/ratings.
func (h *VideoHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	summary, err := h.videos.Ratings(r.Context(), actor, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load ratings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// AskQuestion handles POST /lessons/{id}/questions.
func (h *VideoHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req TextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	q, err := h.videos.AskQuestion(r.Context(), actor, lessonID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to post question")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, q)
}

// Questions handles GET /lessons/{id}/questions.
func (h *VideoHandler) Questions(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	questions, err := h.videos.Questions(r.Context(), actor, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list questions")
		return
	}
	if questions == nil {
		questions = []*video.QuestionView{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, questions)
}

// Answer handles POST /questions/{id}/answers.
func (h *VideoHandler) Answer(w http.ResponseWriter, r *http.Request) {
	actor, questionID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req TextRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, err := h.videos.Answer(r.Context(), actor, questionID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to post answer")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, a)
}

// RecordView handles POST /videos/{id}/views.
func (h *VideoHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	actor, videoID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ViewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.WatchDuration == nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "watch_duration field is required")
		return
	}
	outcome, err := h.videos.RecordView(r.Context(), actor, videoID, *req.WatchDuration, req.Completed)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record view")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}

// LessonStats handles GET /lessons/{id}/stats.
func (h *VideoHandler) LessonStats(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.videos.LessonStats(r.Context(), actor, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load lesson statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// TeacherDashboard handles GET /dashboard/teacher.
func (h *VideoHandler) TeacherDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	dash, err := h.videos.TeacherDashboard(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load dashboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dash)
}

// StudentDashboard handles GET /dashboard/student.
func (h *VideoHandler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	dash, err := h.videos.StudentDashboard(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load dashboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dash)
}
