package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryType separates writing prompts from listening/speaking prompts.
type CategoryType string

// Category types
const (
	CategoryWriting   CategoryType = "writing"
	CategoryListening CategoryType = "listening"
)

// SubmissionType is the kind of response a user sent.
type SubmissionType string

// Submission types
const (
	SubmissionWriting  SubmissionType = "writing"
	SubmissionSpeaking SubmissionType = "speaking"
)

// SubmissionStatus tracks AI assessment progress.
type SubmissionStatus string

// Submission statuses
const (
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionCompleted  SubmissionStatus = "completed"
	SubmissionFailed     SubmissionStatus = "failed"
)

// Feedback shown when assessment could not be completed.
const (
	AssessmentFailedMessage = "Assessment failed, please try again."
	NoSpeechMessage         = "No speech detected in the audio file."
)

// TOEFL errors
var (
	ErrEmptyResponse       = errors.New("response text cannot be empty")
	ErrInvalidCategoryType = errors.New("invalid category type")
)

// ValidCategoryType reports whether t is known.
func ValidCategoryType(t CategoryType) bool {
	return t == CategoryWriting || t == CategoryListening
}

// QuestionCategory groups TOEFL prompts.
type QuestionCategory struct {
	ID       uuid.UUID    `json:"id"`
	Name     string       `json:"name"`
	Type     CategoryType `json:"type"`
	IsActive bool         `json:"is_active"`
}

// ToeflQuestion is a writing or speaking prompt.
type ToeflQuestion struct {
	ID                      uuid.UUID `json:"id"`
	CategoryID              uuid.UUID `json:"category_id"`
	Text                    string    `json:"text"`
	Difficulty              string    `json:"difficulty"`
	ExpectedDurationSeconds int       `json:"expected_duration"`
	MinWordCount            int       `json:"min_word_count"`
	IsActive                bool      `json:"is_active"`
}

// Submission is a user's response awaiting or holding an AI assessment.
type Submission struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	QuestionID   uuid.UUID        `json:"question_id"`
	Type         SubmissionType   `json:"type"`
	Status       SubmissionStatus `json:"status"`
	OverallScore *float64         `json:"overall_score"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewSubmission creates an in-progress submission.
func NewSubmission(userID, questionID uuid.UUID, kind SubmissionType) *Submission {
	now := time.Now().UTC()
	return &Submission{
		ID:         uuid.New(),
		UserID:     userID,
		QuestionID: questionID,
		Type:       kind,
		Status:     SubmissionInProgress,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WritingSubmission holds the essay text.
type WritingSubmission struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Text         string    `json:"text"`
	WordCount    int       `json:"word_count"`
}

// NewWritingSubmission validates and counts the essay.
func NewWritingSubmission(submissionID uuid.UUID, text string) (*WritingSubmission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &WritingSubmission{
		SubmissionID: submissionID,
		Text:         text,
		WordCount:    len(strings.Fields(text)),
	}, nil
}

// SpeakingSubmission points at the recorded audio.
type SpeakingSubmission struct {
	SubmissionID    uuid.UUID `json:"submission_id"`
	AudioPath       string    `json:"-"`
	DurationSeconds int       `json:"duration_seconds"`
	Transcript      string    `json:"transcript"`
}

// AssessmentResult holds the rubric scores for a submission.
type AssessmentResult struct {
	SubmissionID    uuid.UUID `json:"submission_id"`
	Grammar         float64   `json:"grammar"`
	Vocabulary      float64   `json:"vocabulary"`
	Coherence       float64   `json:"coherence"`
	Fluency         float64   `json:"fluency"`
	Pronunciation   *float64  `json:"pronunciation"`
	FeedbackSummary string    `json:"feedback_summary"`
	Suggestions     []string  `json:"suggestions"`
	UpdatedAt       time.Time `json:"updated_at"`
}
