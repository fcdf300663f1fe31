package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/service/toefl"
)

// MaxSpeakingBodyBytes caps speaking submissions, whose audio arrives base64
// encoded in the JSON body.
const MaxSpeakingBodyBytes = 32 << 20

// CategoryRequest creates a question category.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Type string `json:"type" validate:"required,oneof=writing listening"`
}

// ToeflQuestionRequest creates a prompt.
type ToeflQuestionRequest struct {
	CategoryID              string `json:"category_id"       validate:"required,uuid"`
	Text                    string `json:"text"              validate:"required"`
	Difficulty              string `json:"difficulty"        validate:"omitempty,max=20"`
	ExpectedDurationSeconds int    `json:"expected_duration" validate:"gte=0"`
	MinWordCount            int    `json:"min_word_count"    validate:"gte=0"`
}

// WritingRequest is an essay sent for assessment.
type WritingRequest struct {
	QuestionID string `json:"question_id" validate:"required,uuid"`
	Text       string `json:"text"`
}

// SpeakingRequest is a recorded answer sent for assessment.
type SpeakingRequest struct {
	QuestionID      string `json:"question_id"      validate:"required,uuid"`
	AudioData       string `json:"audio_data"`
	DurationSeconds int    `json:"duration_seconds"`
}

// ToeflHandler serves /api/toefl.
type ToeflHandler struct {
	toefl  toefl.Service
	logger *slog.Logger
}

// NewToeflHandler creates a ToeflHandler.
func NewToeflHandler(svc toefl.Service, logger *slog.Logger) *ToeflHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToeflHandler{
		toefl:  svc,
		logger: logger.With(slog.String("component", "toefl_handler")),
	}
}

func queryCategoryType(r *http.Request) *domain.CategoryType {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return nil
	}
	kind := domain.CategoryType(raw)
	return &kind
}

// ListCategories handles GET /categories?type=.
func (h *ToeflHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.toefl.ListCategories(r.Context(), queryCategoryType(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []*domain.QuestionCategory{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, categories)
}

// CreateCategory handles POST /categories.
func (h *ToeflHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	category, err := h.toefl.CreateCategory(r.Context(), actor, req.Name, domain.CategoryType(req.Type))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create category")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, category)
}

// CreateQuestion handles POST /questions.
func (h *ToeflHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req ToeflQuestionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	categoryID, err := parseUUIDField("category_id", req.CategoryID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	question, err := h.toefl.CreateQuestion(r.Context(), actor, toefl.QuestionInput{
		CategoryID:              categoryID,
		Text:                    req.Text,
		Difficulty:              req.Difficulty,
		ExpectedDurationSeconds: req.ExpectedDurationSeconds,
		MinWordCount:            req.MinWordCount,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create question")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, question)
}

// RandomQuestion handles GET /questions/random?category=&type=.
func (h *ToeflHandler) RandomQuestion(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryUUID(r, "category")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	question, err := h.toefl.RandomQuestion(r.Context(), categoryID, queryCategoryType(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to pick a question")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, question)
}

// SubmitWriting handles POST /submissions/writing.
func (h *ToeflHandler) SubmitWriting(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req WritingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	questionID, err := parseUUIDField("question_id", req.QuestionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	accepted, err := h.toefl.SubmitWriting(r.Context(), actor, questionID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit essay")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, accepted)
}

// SubmitSpeaking handles POST /submissions/speaking.
func (h *ToeflHandler) SubmitSpeaking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req SpeakingRequest
	if err := shared.DecodeJSONLimit(r, &req, MaxSpeakingBodyBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "Recording exceeds the upload limit", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		respondBadRequest(w, r, err)
		return
	}
	questionID, err := parseUUIDField("question_id", req.QuestionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	accepted, err := h.toefl.SubmitSpeaking(r.Context(), actor, questionID, req.AudioData, req.DurationSeconds)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit recording")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, accepted)
}

// Status handles GET /submissions/{id}/status.
func (h *ToeflHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	status, err := h.toefl.Status(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load submission")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// Detail handles GET /submissions/{id}.
func (h *ToeflHandler) Detail(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.toefl.Detail(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load submission")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, detail)
}

// History handles GET /submissions.
func (h *ToeflHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	subs, err := h.toefl.History(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load history")
		return
	}
	if subs == nil {
		subs = []*domain.Submission{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, subs)
}

// Dashboard handles GET /dashboard.
func (h *ToeflHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	dash, err := h.toefl.Dashboard(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load dashboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dash)
}
