package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReviewDays is the number of scheduled reviews a word goes through.
const ReviewDays = 8

// LearnedThreshold is how many of the ReviewDays reviews must be correct for a
// word to count as learned.
const LearnedThreshold = 6

// EmptyReviewHistory is the history of a word that has never been reviewed.
var EmptyReviewHistory = strings.Repeat("0", ReviewDays)

// Vocabulary validation errors
var (
	ErrEmptyLessonTitle  = errors.New("lesson title cannot be empty")
	ErrEmptyTerm         = errors.New("term cannot be empty")
	ErrEmptyDefinition   = errors.New("definition cannot be empty")
	ErrInvalidHistory    = errors.New("review history must be 8 characters of 0 or 1")
	ErrInvalidCurrentDay = errors.New("current day must be between 0 and 8")
)

// VocabLesson groups the words a user is drilling.
type VocabLesson struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewVocabLesson creates a lesson owned by userID.
func NewVocabLesson(userID uuid.UUID, title, description string) (*VocabLesson, error) {
	l := &VocabLesson{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks if the lesson has valid data.
func (l *VocabLesson) Validate() error {
	if l.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if l.Title == "" {
		return ErrEmptyLessonTitle
	}
	return nil
}

// Word is a single term scheduled by the 8-tick Leitner system.
type Word struct {
	ID             uuid.UUID `json:"id"`
	LessonID       uuid.UUID `json:"lesson_id"`
	Term           string    `json:"term"`
	Definition     string    `json:"definition"`
	CurrentDay     int       `json:"current_day"`
	ReviewHistory  string    `json:"review_history"`
	IsLearned      bool      `json:"is_learned"`
	LastReviewDate *Date     `json:"last_review_date"`
	NextReviewDate *Date     `json:"next_review_date"`
}

// NewWord creates an unreviewed word that is due today.
func NewWord(lessonID uuid.UUID, term, definition string, today Date) (*Word, error) {
	w := &Word{
		ID:             uuid.New(),
		LessonID:       lessonID,
		Term:           strings.TrimSpace(term),
		Definition:     strings.TrimSpace(definition),
		ReviewHistory:  EmptyReviewHistory,
		NextReviewDate: today.Ptr(),
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks if the word has valid data.
func (w *Word) Validate() error {
	if w.LessonID == uuid.Nil {
		return NewValidationError("lesson_id", "cannot be empty", ErrValidation)
	}
	if w.Term == "" {
		return ErrEmptyTerm
	}
	if w.Definition == "" {
		return ErrEmptyDefinition
	}
	if w.CurrentDay < 0 || w.CurrentDay > ReviewDays {
		return ErrInvalidCurrentDay
	}
	if len(w.ReviewHistory) != ReviewDays || strings.Trim(w.ReviewHistory, "01") != "" {
		return ErrInvalidHistory
	}
	return nil
}

// CorrectCount is the number of correct reviews recorded in the history.
func (w *Word) CorrectCount() int {
	return strings.Count(w.ReviewHistory, "1")
}

// IsDue reports whether the word should be reviewed on day.
func (w *Word) IsDue(day Date) bool {
	if w.IsLearned || w.NextReviewDate == nil {
		return false
	}
	return !w.NextReviewDate.After(day.Time)
}

// LessonProgress returns correct reviews across a lesson's words, measured
// against LearnedThreshold correct reviews per word, as a percentage with one
// decimal and capped at 100.
func LessonProgress(correct, words int) float64 {
	if words <= 0 {
		return 0
	}
	pct := float64(correct) / float64(words*LearnedThreshold) * 100
	return Round(math.Min(pct, 100), 1)
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
