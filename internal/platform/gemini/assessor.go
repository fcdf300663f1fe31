package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/campus-api/internal/assessment"
	"github.com/phrazzld/campus-api/internal/config"
	"github.com/phrazzld/campus-api/internal/redact"
	"google.golang.org/genai"
)

const temperature float32 = 0.2

// contentGenerator is the part of genai.Models the assessor uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Assessor scores TOEFL responses and transcribes recordings with Gemini.
type Assessor struct {
	models     contentGenerator
	model      string
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

var (
	_ assessment.Assessor    = (*Assessor)(nil)
	_ assessment.Transcriber = (*Assessor)(nil)
)

// NewAssessor creates a Gemini client from cfg.
func NewAssessor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Assessor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	cfg, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", assessment.ErrInvalidConfig, err)
	}

	logger.InfoContext(ctx, "gemini assessor initialized", slog.String("model", cfg.ModelName))
	return newAssessor(client.Models, cfg, logger), nil
}

func newAssessor(models contentGenerator, cfg config.LLMConfig, logger *slog.Logger) *Assessor {
	return &Assessor{
		models:     models,
		model:      cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Duration(cfg.RetryDelaySeconds) * time.Second,
		logger:     logger.With(slog.String("component", "gemini_assessor")),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Assess renders the rubric prompts for req.Kind and decodes the scores.
func (a *Assessor) Assess(ctx context.Context, req assessment.Request) (*assessment.Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, assessment.ErrEmptyInput
	}

	systemName, userName := templateNames(req.Kind)
	data := promptData{
		Topic:           req.Topic,
		Text:            req.Text,
		WordCount:       req.WordCount,
		DurationSeconds: req.DurationSeconds,
	}
	system, err := renderPrompt(systemName, data)
	if err != nil {
		return nil, err
	}
	user, err := renderPrompt(userName, data)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(temperature),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	a.logger.InfoContext(ctx, "assessing response",
		slog.String("kind", string(req.Kind)),
		slog.Int("word_count", req.WordCount))

	text, err := a.generateWithRetry(ctx, genai.Text(user), cfg)
	if err != nil {
		return nil, err
	}
	resp, err := decodeResponse(text)
	if err != nil {
		return nil, err
	}
	result, err := resp.toResult(req.Kind)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "assessment completed",
		slog.String("kind", string(req.Kind)),
		slog.Float64("overall_score", result.Overall))
	return result, nil
}

// Transcribe sends the recording inline and returns the spoken text.
func (a *Assessor) Transcribe(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyAudio
	}
	instruction, err := renderPrompt("transcribe.tmpl", nil)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(data, audioMIMEType(audioPath)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}

	text, err := a.generateWithRetry(ctx, contents, cfg)
	if err != nil {
		return "", err
	}
	transcript := strings.Trim(strings.TrimSpace(text), `"`)
	if transcript == "" {
		return "", assessment.ErrNoSpeech
	}
	a.logger.InfoContext(ctx, "transcription completed", slog.Int("characters", len(transcript)))
	return transcript, nil
}

func audioMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm":
		return "audio/webm"
	case ".mp3":
		return "audio/mp3"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}

// generateWithRetry calls the model, retrying transient failures with
// delay = base * 2^attempt * [0.5, 1.0).
func (a *Assessor) generateWithRetry(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	for attempt := 0; ; attempt++ {
		text, err := a.generate(ctx, contents, cfg)
		if err == nil {
			if attempt > 0 {
				a.logger.InfoContext(ctx, "gemini call succeeded after retry", slog.Int("attempt", attempt+1))
			}
			return text, nil
		}

		a.logger.WarnContext(ctx, "gemini call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", redact.Error(err)))

		if !isTransient(err) {
			return "", err
		}
		if attempt >= a.maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				assessment.ErrTransientFailure, a.maxRetries, err)
		}

		delay := a.backoff(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", assessment.ErrTransientFailure, ctx.Err())
		}
	}
}

func (a *Assessor) backoff(attempt int) time.Duration {
	a.rngMu.Lock()
	jitter := 0.5 + a.rng.Float64()*0.5
	a.rngMu.Unlock()
	return time.Duration(float64(a.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
}

func (a *Assessor) generate(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	resp, err := a.models.GenerateContent(ctx, a.model, contents, cfg)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", assessment.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", assessment.ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", assessment.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// isTransient reports whether err might succeed on retry: network failures,
// rate limiting and server errors. Model output problems and client errors
// are permanent.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, assessment.ErrInvalidResponse),
		errors.Is(err, assessment.ErrContentBlocked),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retryableStatus(apiErrPtr.Code)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
