package srs

import "github.com/phrazzld/campus-api/internal/domain"

// Params defines the fixed schedule of the 8-tick Leitner system.
type Params struct {
	// ReviewDays is the number of scheduled reviews per word.
	ReviewDays int
	// LearnedThreshold is the number of correct reviews needed to mark a word learned.
	LearnedThreshold int
	// Intervals maps the review count reached after a correct answer to the
	// number of days until the next review. A missing entry means no further review.
	Intervals map[int]int
	// RetryDays is the delay after an incorrect answer.
	RetryDays int
}

// NewDefaultParams returns the doubling schedule 1, 2, 4 ... 64 days.
func NewDefaultParams() *Params {
	return &Params{
		ReviewDays:       domain.ReviewDays,
		LearnedThreshold: domain.LearnedThreshold,
		Intervals: map[int]int{
			1: 1,
			2: 2,
			3: 4,
			4: 8,
			5: 16,
			6: 32,
			7: 64,
		},
		RetryDays: 1,
	}
}

// interval returns the delay after a correct review that brought the word to
// day, and false when the schedule is exhausted.
func (p *Params) interval(day int) (int, bool) {
	days, ok := p.Intervals[day]
	return days, ok
}
