package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TestMode decides whether answers are revealed one by one or at the end.
type TestMode string

// Test modes
const (
	TestModeExam     TestMode = "exam"
	TestModePractice TestMode = "practice"
)

// QuestionType classifies reading questions for progress breakdowns.
type QuestionType string

// Reading question types
const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionInsertText     QuestionType = "insert_text"
	QuestionInference      QuestionType = "inference"
	QuestionVocabulary     QuestionType = "vocabulary"
	QuestionMainIdea       QuestionType = "main_idea"
	QuestionDetail         QuestionType = "detail"
	QuestionPurpose        QuestionType = "purpose"
)

// AttemptStatus is the lifecycle state of an attempt.
type AttemptStatus string

// Attempt statuses
const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// MaxReadingScore is the top of the scaled reading score.
const MaxReadingScore = 30

// Reading errors
var (
	ErrInvalidTestMode     = errors.New("invalid test mode")
	ErrInvalidQuestionType = errors.New("invalid question type")
	ErrEmptyChoices        = errors.New("question needs at least two choices")
	ErrAnswerNotInChoices  = errors.New("correct answer must be one of the choices")
)

// ValidQuestionType reports whether t is known.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionMultipleChoice, QuestionInsertText, QuestionInference, QuestionVocabulary,
		QuestionMainIdea, QuestionDetail, QuestionPurpose:
		return true
	}
	return false
}

// ReadingTest is a set of passages with questions.
type ReadingTest struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Mode             TestMode  `json:"mode"`
	TimeLimitMinutes int       `json:"time_limit"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	Passages         []Passage `json:"passages,omitempty"`
}

// Passage is a text students read before answering its questions.
type Passage struct {
	ID        uuid.UUID         `json:"id"`
	TestID    uuid.UUID         `json:"test_id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Order     int               `json:"order"`
	Questions []ReadingQuestion `json:"questions,omitempty"`
}

// ReadingQuestion belongs to a passage.
type ReadingQuestion struct {
	ID            uuid.UUID    `json:"id"`
	PassageID     uuid.UUID    `json:"passage_id"`
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	Choices       []string     `json:"choices"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Order         int          `json:"order"`
}

// Validate checks the test and everything nested in it.
func (t *ReadingTest) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "is required", ErrValidation)
	}
	if t.Mode != TestModeExam && t.Mode != TestModePractice {
		return ErrInvalidTestMode
	}
	if t.TimeLimitMinutes < 0 {
		return ErrInvalidDuration
	}
	for i := range t.Passages {
		p := &t.Passages[i]
		if strings.TrimSpace(p.Content) == "" {
			return NewValidationError("passages.content", "is required", ErrEmptyContent)
		}
		for j := range p.Questions {
			if err := p.Questions[j].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks that the question is answerable.
func (q *ReadingQuestion) Validate() error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return NewValidationError("question_text", "is required", ErrEmptyContent)
	}
	if !ValidQuestionType(q.QuestionType) {
		return ErrInvalidQuestionType
	}
	if len(q.Choices) < 2 {
		return ErrEmptyChoices
	}
	for _, c := range q.Choices {
		if strings.TrimSpace(c) == strings.TrimSpace(q.CorrectAnswer) {
			return nil
		}
	}
	return ErrAnswerNotInChoices
}

// IsCorrect compares a selected answer against the key, ignoring surrounding
// whitespace.
func (q *ReadingQuestion) IsCorrect(selected string) bool {
	return strings.TrimSpace(selected) == strings.TrimSpace(q.CorrectAnswer)
}

// WithoutAnswer returns a copy safe to show while an attempt is running.
func (q ReadingQuestion) WithoutAnswer() ReadingQuestion {
	q.CorrectAnswer = ""
	return q
}

// Attempt is one sitting of a reading test.
type Attempt struct {
	ID               uuid.UUID     `json:"id"`
	UserID           uuid.UUID     `json:"user_id"`
	TestID           uuid.UUID     `json:"test_id"`
	Status           AttemptStatus `json:"status"`
	Score            *int          `json:"score"`
	TotalTimeSeconds *int          `json:"total_time"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       *time.Time    `json:"finished_at"`
}

// NewAttempt starts an attempt at now.
func NewAttempt(userID, testID uuid.UUID, now time.Time) *Attempt {
	return &Attempt{
		ID:        uuid.New(),
		UserID:    userID,
		TestID:    testID,
		Status:    AttemptInProgress,
		StartedAt: now.UTC(),
	}
}

// Complete records the final score and elapsed time.
func (a *Attempt) Complete(score int, now time.Time) {
	elapsed := int(now.Sub(a.StartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	finished := now.UTC()
	a.Status = AttemptCompleted
	a.Score = &score
	a.TotalTimeSeconds = &elapsed
	a.FinishedAt = &finished
}

// AttemptAnswer is a single answered question within an attempt.
type AttemptAnswer struct {
	ID               uuid.UUID `json:"id"`
	AttemptID        uuid.UUID `json:"attempt_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedAnswer   string    `json:"selected_answer"`
	IsCorrect        bool      `json:"is_correct"`
	TimeSpentSeconds *int      `json:"time_spent_seconds"`
}

// NewAttemptAnswer grades selected against q. A provided time is clamped to at
// least one second.
func NewAttemptAnswer(attemptID uuid.UUID, q *ReadingQuestion, selected string, timeSpent *int) *AttemptAnswer {
	var spent *int
	if timeSpent != nil {
		v := max(1, *timeSpent)
		spent = &v
	}
	return &AttemptAnswer{
		ID:               uuid.New(),
		AttemptID:        attemptID,
		QuestionID:       q.ID,
		SelectedAnswer:   strings.TrimSpace(selected),
		IsCorrect:        q.IsCorrect(selected),
		TimeSpentSeconds: spent,
	}
}

// ReadingScore scales correct answers out of total onto 0-30 and a 0-100
// accuracy. Both are 0 when the test has no questions.
func ReadingScore(correct, total int) (score int, accuracy int) {
	if total <= 0 {
		return 0, 0
	}
	ratio := float64(correct) / float64(total)
	score = int(math.Round(ratio * MaxReadingScore))
	accuracy = int(math.Round(ratio * 100))
	return min(max(score, 0), MaxReadingScore), accuracy
}
