package srs

import (
	"strings"

	"github.com/phrazzld/campus-api/internal/domain"
)

// nextState applies one review to a copy of word. Preconditions are checked
// by the caller.
func nextState(word *domain.Word, correct bool, today domain.Date, params *Params) *domain.Word {
	next := *word

	mark := byte('0')
	if correct {
		mark = '1'
	}
	history := []byte(word.ReviewHistory)
	history[word.CurrentDay] = mark
	next.ReviewHistory = string(history)
	next.CurrentDay = word.CurrentDay + 1

	if correct {
		if days, ok := params.interval(next.CurrentDay); ok {
			next.NextReviewDate = today.AddDays(days).Ptr()
		} else {
			next.NextReviewDate = nil
		}
	} else {
		next.NextReviewDate = today.AddDays(params.RetryDays).Ptr()
	}

	if next.CurrentDay == params.ReviewDays && strings.Count(next.ReviewHistory, "1") >= params.LearnedThreshold {
		next.IsLearned = true
		next.NextReviewDate = nil
	}

	next.LastReviewDate = today.Ptr()
	return &next
}
