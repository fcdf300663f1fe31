package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service/vocab"
	"github.com/samber/lo"
)

// MaxImportBytes caps word list uploads.
const MaxImportBytes = 10 << 20

// LessonRequest creates or updates a vocabulary lesson.
type LessonRequest struct {
	Title       string `json:"title"       validate:"required,max=255"`
	Description string `json:"description"`
}

// WordRequest creates or updates a word. LessonID is only read on create.
type WordRequest struct {
	LessonID   string `json:"lesson"     validate:"omitempty,uuid"`
	Term       string `json:"term"       validate:"required,max=255"`
	Definition string `json:"definition" validate:"required"`
}

// ReviewRequest records one review. IsCorrect is a pointer so a missing
// field can be told apart from false.
type ReviewRequest struct {
	IsCorrect *bool `json:"is_correct"`
}

// ReviewResponse is the schedule after a review.
type ReviewResponse struct {
	Message        string       `json:"message"`
	Word           *domain.Word `json:"word"`
	CurrentDay     int          `json:"current_day"`
	ReviewHistory  string       `json:"review_history"`
	IsLearned      bool         `json:"is_learned"`
	NextReviewDate *domain.Date `json:"next_review_date"`
}

// VocabHandler serves /api/vocab.
type VocabHandler struct {
	vocab  vocab.Service
	logger *slog.Logger
}

// NewVocabHandler creates a VocabHandler.
func NewVocabHandler(svc vocab.Service, logger *slog.Logger) *VocabHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VocabHandler{
		vocab:  svc,
		logger: logger.With(slog.String("component", "vocab_handler")),
	}
}

// ListLessons handles GET /lessons.
func (h *VocabHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	lessons, err := h.vocab.ListLessons(r.Context(), actor.ID, q.Get("search"), q.Get("ordering"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list lessons")
		return
	}
	if lessons == nil {
		lessons = []*vocab.Lesson{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lessons)
}

// CreateLesson handles POST /lessons.
func (h *VocabHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req LessonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lesson, err := h.vocab.CreateLesson(r.Context(), actor.ID, req.Title, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create lesson")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, lesson)
}

// GetLesson handles GET /lessons/{id}.
func (h *VocabHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	lesson, err := h.vocab.GetLesson(r.Context(), actor.ID, lessonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get lesson")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lesson)
}

// UpdateLesson handles PUT /lessons/{id}.
func (h *VocabHandler) UpdateLesson(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req LessonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	lesson, err := h.vocab.UpdateLesson(r.Context(), actor.ID, lessonID, req.Title, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update lesson")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, lesson)
}

// DeleteLesson handles DELETE /lessons/{id}.
func (h *VocabHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.vocab.DeleteLesson(r.Context(), actor.ID, lessonID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete lesson")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportWords handles POST /lessons/{id}/import with a multipart "file".
func (h *VocabHandler) ImportWords(w http.ResponseWriter, r *http.Request) {
	actor, lessonID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImportBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "File exceeds the upload limit", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "A file field is required", err)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.vocab.ImportWords(r.Context(), actor.ID, lessonID, header.Filename, file)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to import words")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("words imported",
		slog.String("lesson_id", lessonID.String()),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ListWords handles GET /words.
func (h *VocabHandler) ListWords(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	lessonID, err := queryUUID(r, "lesson")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	currentDay, err := queryInt(r, "current_day")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	q := r.URL.Query()
	query := vocab.WordQuery{
		Search:      q.Get("search"),
		LessonID:    lessonID,
		IsLearned:   queryBool(r, "is_learned"),
		CurrentDay:  currentDay,
		TodayReview: lo.FromPtr(queryBool(r, "today_review")),
		ToReview:    lo.FromPtr(queryBool(r, "to_review")),
		Ordering:    q.Get("ordering"),
	}

	words, err := h.vocab.ListWords(r.Context(), actor.ID, query)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list words")
		return
	}
	if words == nil {
		words = []*domain.Word{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, words)
}

// CreateWord handles POST /words.
func (h *VocabHandler) CreateWord(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req WordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.LessonID == "" {
		HandleAPIError(w, r, domain.NewValidationError("lesson", "is required", domain.ErrValidation), "")
		return
	}
	lessonID, err := parseUUIDField("lesson", req.LessonID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	word, err := h.vocab.CreateWord(r.Context(), actor.ID, lessonID, req.Term, req.Definition)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create word")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, word)
}

// GetWord handles GET /words/{id}.
func (h *VocabHandler) GetWord(w http.ResponseWriter, r *http.Request) {
	actor, wordID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	word, err := h.vocab.GetWord(r.Context(), actor.ID, wordID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get word")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, word)
}

// UpdateWord handles PUT /words/{id}.
func (h *VocabHandler) UpdateWord(w http.ResponseWriter, r *http.Request) {
	actor, wordID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req WordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	word, err := h.vocab.UpdateWord(r.Context(), actor.ID, wordID, req.Term, req.Definition)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update word")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, word)
}

// DeleteWord handles DELETE /words/{id}.
func (h *VocabHandler) DeleteWord(w http.ResponseWriter, r *http.Request) {
	actor, wordID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.vocab.DeleteWord(r.Context(), actor.ID, wordID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete word")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Review handles POST /words/{id}/review.
func (h *VocabHandler) Review(w http.ResponseWriter, r *http.Request) {
	actor, wordID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if req.IsCorrect == nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "is_correct field is required")
		return
	}

	word, err := h.vocab.Review(r.Context(), actor.ID, wordID, *req.IsCorrect)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record review")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewResponse{
		Message:        "Review recorded successfully",
		Word:           word,
		CurrentDay:     word.CurrentDay,
		ReviewHistory:  word.ReviewHistory,
		IsLearned:      word.IsLearned,
		NextReviewDate: word.NextReviewDate,
	})
}

// Stats handles GET /stats.
func (h *VocabHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	stats, err := h.vocab.Stats(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
