package toefl

import (
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/samber/lo"
)

// SeriesDateLayout formats dashboard series dates.
const SeriesDateLayout = "2006/01/02"

// SeriesPoint is one scored submission on the dashboard chart.
type SeriesPoint struct {
	Date  string                `json:"date"`
	Type  domain.SubmissionType `json:"type"`
	Score float64               `json:"score"`
}

// Dashboard summarises a user's assessed submissions.
type Dashboard struct {
	CompletedCount int           `json:"completed_count"`
	WritingAvg     float64       `json:"writing_avg"`
	SpeakingAvg    float64       `json:"speaking_avg"`
	Series         []SeriesPoint `json:"series"`
}

// newDashboard expects points oldest first.
func newDashboard(points []store.ScorePoint) *Dashboard {
	return &Dashboard{
		CompletedCount: len(points),
		WritingAvg:     averageOf(points, domain.SubmissionWriting),
		SpeakingAvg:    averageOf(points, domain.SubmissionSpeaking),
		Series: lo.Map(points, func(p store.ScorePoint, _ int) SeriesPoint {
			return SeriesPoint{
				Date:  p.CreatedAt.Format(SeriesDateLayout),
				Type:  p.Type,
				Score: domain.Round(p.Score, 2),
			}
		}),
	}
}

func averageOf(points []store.ScorePoint, kind domain.SubmissionType) float64 {
	scores := lo.FilterMap(points, func(p store.ScorePoint, _ int) (float64, bool) {
		return p.Score, p.Type == kind
	})
	if len(scores) == 0 {
		return 0
	}
	return domain.Round(lo.Sum(scores)/float64(len(scores)), 2)
}
