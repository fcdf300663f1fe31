package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/campus-api/internal/api/shared"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/service/reading"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/samber/lo"
)

// CreateTestRequest authors a reading test with its passages and questions.
type CreateTestRequest struct {
	Title            string           `json:"title"      validate:"required,max=255"`
	Mode             string           `json:"mode"       validate:"required,oneof=exam practice"`
	TimeLimitMinutes int              `json:"time_limit" validate:"gte=0"`
	IsActive         *bool            `json:"is_active"`
	Passages         []PassageRequest `json:"passages"   validate:"required,min=1,dive"`
}

// PassageRequest is one passage of a new test.
type PassageRequest struct {
	Title     string            `json:"title"`
	Content   string            `json:"content"   validate:"required"`
	Questions []QuestionRequest `json:"questions" validate:"dive"`
}

// QuestionRequest is one question of a new passage.
type QuestionRequest struct {
	QuestionText  string   `json:"question_text"  validate:"required"`
	QuestionType  string   `json:"question_type"  validate:"required"`
	Choices       []string `json:"choices"        validate:"required,min=2"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
}

func (req CreateTestRequest) toDomain() *domain.ReadingTest {
	test := &domain.ReadingTest{
		Title:            req.Title,
		Mode:             domain.TestMode(req.Mode),
		TimeLimitMinutes: req.TimeLimitMinutes,
		IsActive:         lo.FromPtrOr(req.IsActive, true),
	}
	test.Passages = lo.Map(req.Passages, func(p PassageRequest, _ int) domain.Passage {
		return domain.Passage{
			Title:   p.Title,
			Content: p.Content,
			Questions: lo.Map(p.Questions, func(q QuestionRequest, _ int) domain.ReadingQuestion {
				return domain.ReadingQuestion{
					QuestionText:  q.QuestionText,
					QuestionType:  domain.QuestionType(q.QuestionType),
					Choices:       q.Choices,
					CorrectAnswer: q.CorrectAnswer,
				}
			}),
		}
	})
	return test
}

// AnswerRequest is a practice answer.
type AnswerRequest struct {
	QuestionID       string `json:"question_id"        validate:"required,uuid"`
	SelectedAnswer   string `json:"selected_answer"`
	TimeSpentSeconds *int   `json:"time_spent_seconds"`
}

func (req AnswerRequest) toInput() (reading.AnswerInput, error) {
	id, err := parseUUIDField("question_id", req.QuestionID)
	if err != nil {
		return reading.AnswerInput{}, err
	}
	return reading.AnswerInput{
		QuestionID:       id,
		SelectedAnswer:   req.SelectedAnswer,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}, nil
}

// SubmitRequest carries every answer of an exam attempt.
type SubmitRequest struct {
	Answers []AnswerRequest `json:"answers" validate:"dive"`
}

// ReadingHandler serves /api/reading.
type ReadingHandler struct {
	reading reading.Service
	logger  *slog.Logger
}

// NewReadingHandler creates a ReadingHandler.
func NewReadingHandler(svc reading.Service, logger *slog.Logger) *ReadingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingHandler{
		reading: svc,
		logger:  logger.With(slog.String("component", "reading_handler")),
	}
}

// CreateTest handles POST /tests.
func (h *ReadingHandler) CreateTest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req CreateTestRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	test, err := h.reading.CreateTest(r.Context(), actor, req.toDomain())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create test")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, test)
}

// ListTests handles GET /tests?mode=.
func (h *ReadingHandler) ListTests(w http.ResponseWriter, r *http.Request) {
	var mode *domain.TestMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		m := domain.TestMode(raw)
		mode = &m
	}
	tests, err := h.reading.ListTests(r.Context(), mode)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tests")
		return
	}
	if tests == nil {
		tests = []*store.TestSummary{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tests)
}

// GetTest handles GET /tests/{id}.
func (h *ReadingHandler) GetTest(w http.ResponseWriter, r *http.Request) {
	testID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	test, err := h.reading.GetTest(r.Context(), testID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get test")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, test)
}

// StartAttempt handles POST /tests/{id}/attempts. A resumed attempt answers
// 200, a new one 201.
func (h *ReadingHandler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	actor, testID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	start, err := h.reading.StartAttempt(r.Context(), actor, testID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start attempt")
		return
	}
	status := http.StatusCreated
	if start.Resumed {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, start)
}

// Answer handles POST /attempts/{id}/answers.
func (h *ReadingHandler) Answer(w http.ResponseWriter, r *http.Request) {
	actor, attemptID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	answer, err := h.reading.Answer(r.Context(), actor, attemptID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to save answer")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, answer)
}

// Submit handles POST /attempts/{id}/submit.
func (h *ReadingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, attemptID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req SubmitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	inputs := make([]reading.AnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		in, err := a.toInput()
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		inputs = append(inputs, in)
	}
	outcome, err := h.reading.Submit(r.Context(), actor, attemptID, inputs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit attempt")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}

// Finish handles POST /attempts/{id}/finish.
func (h *ReadingHandler) Finish(w http.ResponseWriter, r *http.Request) {
	actor, attemptID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	outcome, err := h.reading.Finish(r.Context(), actor, attemptID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to finish attempt")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}

// Result handles GET /attempts/{id}.
func (h *ReadingHandler) Result(w http.ResponseWriter, r *http.Request) {
	actor, attemptID, ok := actorAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	result, err := h.reading.Result(r.Context(), actor, attemptID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load result")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// History handles GET /attempts.
func (h *ReadingHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	rows, err := h.reading.History(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load history")
		return
	}
	if rows == nil {
		rows = []store.AttemptRow{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rows)
}

// Dashboard handles GET /dashboard.
func (h *ReadingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	dash, err := h.reading.Dashboard(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load dashboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dash)
}
