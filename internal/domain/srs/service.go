package srs

import (
	"errors"

	"github.com/phrazzld/campus-api/internal/domain"
)

// Review errors. Their messages are shown to users as-is.
var (
	ErrNilWord              = errors.New("word cannot be nil")
	ErrAlreadyReviewedToday = errors.New("Word already reviewed today")
	ErrReviewsComplete      = errors.New("Word has completed all 8 review days")
)

// Service schedules vocabulary reviews.
type Service interface {
	// Review records a correct or incorrect answer for word on today and
	// returns the updated word. word itself is not modified.
	Review(word *domain.Word, correct bool, today domain.Date) (*domain.Word, error)
}

type defaultService struct {
	params *Params
}

// NewDefaultService creates a Service with the standard 8-tick schedule.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a Service with a custom schedule.
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{params: params}
}

// Review implements Service.
func (s *defaultService) Review(word *domain.Word, correct bool, today domain.Date) (*domain.Word, error) {
	if word == nil {
		return nil, ErrNilWord
	}
	if word.LastReviewDate != nil && word.LastReviewDate.Equal(today) {
		return nil, ErrAlreadyReviewedToday
	}
	if word.CurrentDay >= s.params.ReviewDays {
		return nil, ErrReviewsComplete
	}
	if len(word.ReviewHistory) != s.params.ReviewDays {
		return nil, domain.ErrInvalidHistory
	}
	return nextState(word, correct, today, s.params), nil
}
