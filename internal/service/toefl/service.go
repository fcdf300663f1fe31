// Package toefl implements the TOEFL writing and speaking app: prompts,
// submissions, the background AI assessment and the score dashboard.
package toefl

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/assessment"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/events"
	"github.com/phrazzld/campus-api/internal/media"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/phrazzld/campus-api/internal/task"
)

// DefaultDifficulty is used for questions created without one.
const DefaultDifficulty = "intermediate"

// Messages returned to the submitter.
const (
	ProcessingMessage = "Processing, please wait."
	CompletedMessage  = "Assessment completed successfully."
)

// QuestionInput is the authoring payload of a prompt.
type QuestionInput struct {
	CategoryID              uuid.UUID
	Text                    string
	Difficulty              string
	ExpectedDurationSeconds int
	MinWordCount            int
}

// Accepted acknowledges a submission queued for assessment.
type Accepted struct {
	Success      bool      `json:"success"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
}

func accepted(id uuid.UUID) *Accepted {
	return &Accepted{Success: true, SubmissionID: id, Status: "processing", Message: ProcessingMessage}
}

// StatusView is the polling answer for a submission.
type StatusView struct {
	Status  domain.SubmissionStatus `json:"status"`
	Score   *float64                `json:"score,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// Service is the TOEFL use case set.
type Service interface {
	ListCategories(ctx context.Context, kind *domain.CategoryType) ([]*domain.QuestionCategory, error)
	CreateCategory(ctx context.Context, actor service.Actor, name string, kind domain.CategoryType) (*domain.QuestionCategory, error)
	CreateQuestion(ctx context.Context, actor service.Actor, in QuestionInput) (*domain.ToeflQuestion, error)
	RandomQuestion(ctx context.Context, categoryID *uuid.UUID, kind *domain.CategoryType) (*domain.ToeflQuestion, error)

	SubmitWriting(ctx context.Context, actor service.Actor, questionID uuid.UUID, text string) (*Accepted, error)
	SubmitSpeaking(ctx context.Context, actor service.Actor, questionID uuid.UUID, audioData string, durationSeconds int) (*Accepted, error)

	Status(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*StatusView, error)
	Detail(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*store.SubmissionDetail, error)
	History(ctx context.Context, actor service.Actor) ([]*domain.Submission, error)
	Dashboard(ctx context.Context, actor service.Actor) (*Dashboard, error)

	// ProcessSubmission assesses an in-progress submission and records the
	// outcome. It is run by the task runner.
	ProcessSubmission(ctx context.Context, submissionID uuid.UUID) error
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	toefl       store.ToeflStore
	reports     store.ReportStore
	files       media.Storage
	assessor    assessment.Assessor
	transcriber assessment.Transcriber
	emitter     events.EventEmitter
	db          *sql.DB
	logger      *slog.Logger
}

var (
	_ Service                  = (*ServiceImpl)(nil)
	_ task.SubmissionProcessor = (*ServiceImpl)(nil)
)

// NewService creates a TOEFL service.
func NewService(
	toefl store.ToeflStore,
	reports store.ReportStore,
	files media.Storage,
	assessor assessment.Assessor,
	transcriber assessment.Transcriber,
	emitter events.EventEmitter,
	db *sql.DB,
	logger *slog.Logger,
) *ServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceImpl{
		toefl:       toefl,
		reports:     reports,
		files:       files,
		assessor:    assessor,
		transcriber: transcriber,
		emitter:     emitter,
		db:          db,
		logger:      logger.With(slog.String("component", "toefl_service")),
	}
}

// ListCategories implements Service.
func (s *ServiceImpl) ListCategories(ctx context.Context, kind *domain.CategoryType) ([]*domain.QuestionCategory, error) {
	if kind != nil && !domain.ValidCategoryType(*kind) {
		return nil, domain.ErrInvalidCategoryType
	}
	cats, err := s.toefl.ListCategories(ctx, kind)
	if err != nil {
		return nil, service.NewServiceError("toefl", "list_categories", err)
	}
	return cats, nil
}

// CreateCategory implements Service.
func (s *ServiceImpl) CreateCategory(
	ctx context.Context,
	actor service.Actor,
	name string,
	kind domain.CategoryType,
) (*domain.QuestionCategory, error) {
	if !actor.IsTeacher() {
		return nil, service.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required", domain.ErrValidation)
	}
	if !domain.ValidCategoryType(kind) {
		return nil, domain.ErrInvalidCategoryType
	}

	c := &domain.QuestionCategory{ID: uuid.New(), Name: name, Type: kind, IsActive: true}
	if err := s.toefl.CreateCategory(ctx, c); err != nil {
		return nil, service.NewServiceError("toefl", "create_category", err)
	}
	return c, nil
}

// CreateQuestion implements Service.
func (s *ServiceImpl) CreateQuestion(ctx context.Context, actor service.Actor, in QuestionInput) (*domain.ToeflQuestion, error) {
	if !actor.IsTeacher() {
		return nil, service.ErrForbidden
	}
	q := &domain.ToeflQuestion{
		ID:                      uuid.New(),
		CategoryID:              in.CategoryID,
		Text:                    strings.TrimSpace(in.Text),
		Difficulty:              strings.TrimSpace(in.Difficulty),
		ExpectedDurationSeconds: in.ExpectedDurationSeconds,
		MinWordCount:            in.MinWordCount,
		IsActive:                true,
	}
	if q.Difficulty == "" {
		q.Difficulty = DefaultDifficulty
	}
	switch {
	case q.CategoryID == uuid.Nil:
		return nil, domain.NewValidationError("category_id", "is required", domain.ErrValidation)
	case q.Text == "":
		return nil, domain.NewValidationError("text", "is required", domain.ErrEmptyContent)
	case q.ExpectedDurationSeconds < 0, q.MinWordCount < 0:
		return nil, domain.NewValidationError("", "durations and word counts must not be negative", domain.ErrValidation)
	}

	if err := s.toefl.CreateQuestion(ctx, q); err != nil {
		return nil, service.NewServiceError("toefl", "create_question", err)
	}
	return q, nil
}

// RandomQuestion implements Service.
func (s *ServiceImpl) RandomQuestion(
	ctx context.Context,
	categoryID *uuid.UUID,
	kind *domain.CategoryType,
) (*domain.ToeflQuestion, error) {
	if kind != nil && !domain.ValidCategoryType(*kind) {
		return nil, domain.ErrInvalidCategoryType
	}
	return s.toefl.RandomQuestion(ctx, categoryID, kind)
}

func (s *ServiceImpl) activeQuestion(ctx context.Context, id uuid.UUID) (*domain.ToeflQuestion, error) {
	q, err := s.toefl.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.IsActive {
		return nil, store.ErrQuestionNotFound
	}
	return q, nil
}

// SubmitWriting implements Service.
func (s *ServiceImpl) SubmitWriting(
	ctx context.Context,
	actor service.Actor,
	questionID uuid.UUID,
	text string,
) (*Accepted, error) {
	if _, err := s.activeQuestion(ctx, questionID); err != nil {
		return nil, err
	}

	sub := domain.NewSubmission(actor.ID, questionID, domain.SubmissionWriting)
	writing, err := domain.NewWritingSubmission(sub.ID, text)
	if err != nil {
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		toefl := s.toefl.WithTx(tx)
		if err := toefl.CreateSubmission(ctx, sub); err != nil {
			return err
		}
		return toefl.CreateWriting(ctx, writing)
	})
	if err != nil {
		return nil, service.NewServiceError("toefl", "submit_writing", err)
	}

	if err := s.enqueue(ctx, sub); err != nil {
		return nil, service.NewServiceError("toefl", "submit_writing", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("writing submission queued",
		slog.String("submission_id", sub.ID.String()),
		slog.Int("word_count", writing.WordCount))
	return accepted(sub.ID), nil
}

// SubmitSpeaking implements Service. The submission is stored before the
// audio is decoded so that a bad recording leaves a failed submission behind.
func (s *ServiceImpl) SubmitSpeaking(
	ctx context.Context,
	actor service.Actor,
	questionID uuid.UUID,
	audioData string,
	durationSeconds int,
) (*Accepted, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.activeQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(audioData) == "" {
		return nil, domain.NewValidationError("audio_data", "is required", domain.ErrEmptyContent)
	}
	if durationSeconds < 0 {
		return nil, domain.ErrInvalidDuration
	}

	sub := domain.NewSubmission(actor.ID, questionID, domain.SubmissionSpeaking)
	if err := s.toefl.CreateSubmission(ctx, sub); err != nil {
		return nil, service.NewServiceError("toefl", "submit_speaking", err)
	}

	audio, ext, err := media.DecodeAudioDataURL(audioData)
	if err != nil {
		log.Warn("failed to decode speaking audio",
			slog.String("submission_id", sub.ID.String()),
			slog.String("error", err.Error()))
		s.fail(ctx, sub, domain.AssessmentFailedMessage)
		return nil, service.NewServiceError("toefl", "submit_speaking", fmt.Errorf("%w: %v", service.ErrInvalidAudio, err))
	}

	path := fmt.Sprintf("audio/%s%s", sub.ID, ext)
	if _, err := s.files.Save(path, bytes.NewReader(audio), 0); err != nil {
		log.Error("failed to store speaking audio",
			slog.String("submission_id", sub.ID.String()),
			slog.String("error", err.Error()))
		s.fail(ctx, sub, domain.AssessmentFailedMessage)
		return nil, service.NewServiceError("toefl", "submit_speaking", err)
	}

	speaking := &domain.SpeakingSubmission{SubmissionID: sub.ID, AudioPath: path, DurationSeconds: durationSeconds}
	if err := s.toefl.CreateSpeaking(ctx, speaking); err != nil {
		s.removeAudio(ctx, path)
		s.fail(ctx, sub, domain.AssessmentFailedMessage)
		return nil, service.NewServiceError("toefl", "submit_speaking", err)
	}

	if err := s.enqueue(ctx, sub); err != nil {
		return nil, service.NewServiceError("toefl", "submit_speaking", err)
	}

	log.Info("speaking submission queued",
		slog.String("submission_id", sub.ID.String()),
		slog.Int("audio_bytes", len(audio)))
	return accepted(sub.ID), nil
}

// enqueue requests the assessment task. A submission that cannot be queued
// is marked failed so that polling ends.
func (s *ServiceImpl) enqueue(ctx context.Context, sub *domain.Submission) error {
	event, err := events.NewTaskRequestEvent(task.TaskTypeAssessment, struct {
		SubmissionID uuid.UUID `json:"submission_id"`
	}{SubmissionID: sub.ID})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to queue assessment",
			slog.String("submission_id", sub.ID.String()),
			slog.String("error", err.Error()))
		s.fail(ctx, sub, domain.AssessmentFailedMessage)
		return err
	}
	return nil
}

// ownSubmission loads a submission of actor. Foreign submissions behave as
// missing.
func (s *ServiceImpl) ownSubmission(
	ctx context.Context,
	actor service.Actor,
	submissionID uuid.UUID,
) (*store.SubmissionDetail, error) {
	d, err := s.toefl.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if d.UserID != actor.ID {
		return nil, store.ErrSubmissionNotFound
	}
	return d, nil
}

// Status implements Service.
func (s *ServiceImpl) Status(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*StatusView, error) {
	d, err := s.ownSubmission(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	switch d.Status {
	case domain.SubmissionCompleted:
		return &StatusView{Status: d.Status, Score: d.OverallScore, Message: CompletedMessage}, nil
	case domain.SubmissionFailed:
		msg := domain.AssessmentFailedMessage
		if d.Result != nil && d.Result.FeedbackSummary != "" {
			msg = d.Result.FeedbackSummary
		}
		return &StatusView{Status: d.Status, Message: msg}, nil
	default:
		return &StatusView{Status: d.Status}, nil
	}
}

// Detail implements Service.
func (s *ServiceImpl) Detail(ctx context.Context, actor service.Actor, submissionID uuid.UUID) (*store.SubmissionDetail, error) {
	return s.ownSubmission(ctx, actor, submissionID)
}

// History implements Service.
func (s *ServiceImpl) History(ctx context.Context, actor service.Actor) ([]*domain.Submission, error) {
	subs, err := s.toefl.ListSubmissions(ctx, actor.ID)
	if err != nil {
		return nil, service.NewServiceError("toefl", "history", err)
	}
	if subs == nil {
		subs = []*domain.Submission{}
	}
	return subs, nil
}

// Dashboard implements Service.
func (s *ServiceImpl) Dashboard(ctx context.Context, actor service.Actor) (*Dashboard, error) {
	points, err := s.reports.ScoreSeries(ctx, actor.ID)
	if err != nil {
		return nil, service.NewServiceError("toefl", "dashboard", err)
	}
	return newDashboard(points), nil
}

// ProcessSubmission implements Service. Submissions no longer in progress
// are skipped so that a recovered task does not assess twice.
func (s *ServiceImpl) ProcessSubmission(ctx context.Context, submissionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("submission_id", submissionID.String()))

	d, err := s.toefl.GetSubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if d.Status != domain.SubmissionInProgress {
		log.Info("submission already processed", slog.String("status", string(d.Status)))
		return nil
	}
	if d.Speaking != nil {
		defer s.removeAudio(ctx, d.Speaking.AudioPath)
	}

	req := assessment.Request{Kind: d.Type}
	if q, err := s.toefl.GetQuestion(ctx, d.QuestionID); err == nil {
		req.Topic = q.Text
	} else {
		log.Warn("question missing for submission", slog.String("error", err.Error()))
	}

	switch {
	case d.Writing != nil:
		req.Text = d.Writing.Text
		req.WordCount = d.Writing.WordCount
	case d.Speaking != nil:
		transcript, err := s.transcribe(ctx, d.Speaking)
		if errors.Is(err, assessment.ErrNoSpeech) {
			log.Info("no speech in recording")
			s.fail(ctx, &d.Submission, domain.NoSpeechMessage)
			return nil
		}
		if err != nil {
			s.fail(ctx, &d.Submission, domain.AssessmentFailedMessage)
			return err
		}
		req.Text = transcript
		req.WordCount = len(strings.Fields(transcript))
		req.DurationSeconds = d.Speaking.DurationSeconds
	default:
		s.fail(ctx, &d.Submission, domain.AssessmentFailedMessage)
		return fmt.Errorf("submission has no %s response", d.Type)
	}

	result, err := s.assessor.Assess(ctx, req)
	if err != nil {
		log.Error("assessment failed", slog.String("error", err.Error()))
		s.fail(ctx, &d.Submission, domain.AssessmentFailedMessage)
		return err
	}

	overall := domain.Round(result.Overall, 2)
	sub := d.Submission
	sub.Status = domain.SubmissionCompleted
	sub.OverallScore = &overall
	sub.UpdatedAt = time.Now().UTC()

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		toefl := s.toefl.WithTx(tx)
		if err := toefl.UpsertResult(ctx, result.ToDomain(sub.ID)); err != nil {
			return err
		}
		return toefl.UpdateSubmission(ctx, &sub)
	})
	if err != nil {
		return fmt.Errorf("failed to store assessment: %w", err)
	}

	log.Info("submission assessed", slog.Float64("overall_score", overall))
	return nil
}

func (s *ServiceImpl) transcribe(ctx context.Context, sp *domain.SpeakingSubmission) (string, error) {
	path, err := s.files.LocalPath(sp.AudioPath)
	if err != nil {
		return "", err
	}
	transcript, err := s.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", assessment.ErrNoSpeech
	}
	if err := s.toefl.UpdateTranscript(ctx, sp.SubmissionID, transcript); err != nil {
		return "", err
	}
	return transcript, nil
}

// fail marks sub failed with message as feedback. Errors are logged only;
// the caller is already reporting a failure.
func (s *ServiceImpl) fail(ctx context.Context, sub *domain.Submission, message string) {
	failed := *sub
	failed.Status = domain.SubmissionFailed
	failed.OverallScore = nil
	failed.UpdatedAt = time.Now().UTC()

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		toefl := s.toefl.WithTx(tx)
		if err := toefl.UpsertResult(ctx, &domain.AssessmentResult{
			SubmissionID:    sub.ID,
			FeedbackSummary: message,
			Suggestions:     []string{},
			UpdatedAt:       failed.UpdatedAt,
		}); err != nil {
			return err
		}
		return toefl.UpdateSubmission(ctx, &failed)
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark submission failed",
			slog.String("submission_id", sub.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	*sub = failed
}

func (s *ServiceImpl) removeAudio(ctx context.Context, path string) {
	if err := s.files.Remove(path); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to remove audio file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
