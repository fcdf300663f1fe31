package reading

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/samber/lo"
)

// Dashboard limits.
const (
	RecentAttemptsLimit = 5
	TrendScoresLimit    = 10
)

// Trend chart canvas.
const (
	trendWidth       = 472.0
	trendHeight      = 149.0
	trendChartHeight = 148.0
)

func countCorrect(answers []*domain.AttemptAnswer) int {
	return lo.CountBy(answers, func(a *domain.AttemptAnswer) bool { return a.IsCorrect })
}

// ResultAnswer is a graded answer with its question revealed.
type ResultAnswer struct {
	QuestionID       uuid.UUID           `json:"question_id"`
	QuestionText     string              `json:"question_text"`
	QuestionType     domain.QuestionType `json:"question_type"`
	SelectedAnswer   string              `json:"selected_answer"`
	CorrectAnswer    string              `json:"correct_answer"`
	IsCorrect        bool                `json:"is_correct"`
	TimeSpentSeconds *int                `json:"time_spent_seconds"`
}

// Result is the detailed outcome of one attempt.
type Result struct {
	domain.Attempt
	TestTitle   string          `json:"test_title"`
	Mode        domain.TestMode `json:"mode"`
	Answers     []ResultAnswer  `json:"answers"`
	Accuracy    int             `json:"accuracy"`
	Correct     int             `json:"correct"`
	Total       int             `json:"total"`
	TimeDisplay string          `json:"time_display"`
}

// newResult lists answers in test order.
func newResult(attempt *domain.Attempt, test *domain.ReadingTest, answers []*domain.AttemptAnswer) *Result {
	byQuestion := lo.KeyBy(answers, func(a *domain.AttemptAnswer) uuid.UUID { return a.QuestionID })

	res := &Result{
		Attempt:     *attempt,
		TestTitle:   test.Title,
		Mode:        test.Mode,
		Answers:     []ResultAnswer{},
		Correct:     countCorrect(answers),
		TimeDisplay: formatMMSS(lo.FromPtr(attempt.TotalTimeSeconds)),
	}
	for _, p := range test.Passages {
		for _, q := range p.Questions {
			res.Total++
			a, ok := byQuestion[q.ID]
			if !ok {
				continue
			}
			res.Answers = append(res.Answers, ResultAnswer{
				QuestionID:       q.ID,
				QuestionText:     q.QuestionText,
				QuestionType:     q.QuestionType,
				SelectedAnswer:   a.SelectedAnswer,
				CorrectAnswer:    q.CorrectAnswer,
				IsCorrect:        a.IsCorrect,
				TimeSpentSeconds: a.TimeSpentSeconds,
			})
		}
	}
	_, res.Accuracy = domain.ReadingScore(res.Correct, res.Total)
	return res
}

// RecentAttempt is a completed attempt on the dashboard.
type RecentAttempt struct {
	AttemptID  uuid.UUID       `json:"attempt_id"`
	TestTitle  string          `json:"test_title"`
	Mode       domain.TestMode `json:"mode"`
	Score      int             `json:"score"`
	ScoreLabel string          `json:"score_label"`
	DateLabel  string          `json:"date_label"`
}

// Trend holds SVG paths of recent scores as percentages.
type Trend struct {
	LinePath string `json:"line_path"`
	AreaPath string `json:"area_path"`
}

// Dashboard is a student's reading progress.
type Dashboard struct {
	TotalAttempts       int                  `json:"total_attempts"`
	CompletedAttempts   int                  `json:"completed_attempts"`
	InProgressAttempts  int                  `json:"in_progress_attempts"`
	AverageScore        *float64             `json:"average_score"`
	AverageAccuracy     int                  `json:"average_accuracy"`
	QuestionsAnswered   int                  `json:"questions_answered"`
	AvgTimePerQuestion  string               `json:"avg_time_per_question"`
	WeakestQuestionType *domain.QuestionType `json:"weakest_question_type"`
	WeakestAccuracy     int                  `json:"weakest_accuracy"`
	Recent              []RecentAttempt      `json:"recent"`
	Trend               Trend                `json:"trend"`
}

// newDashboard builds the dashboard from attempt rows ordered newest first.
func newDashboard(rows []store.AttemptRow, byType []store.QuestionTypeAccuracy, now time.Time) *Dashboard {
	completed := lo.Filter(rows, func(r store.AttemptRow, _ int) bool {
		return r.Status == domain.AttemptCompleted && r.Score != nil
	})

	d := &Dashboard{
		TotalAttempts:      len(rows),
		CompletedAttempts:  lo.CountBy(rows, func(r store.AttemptRow) bool { return r.Status == domain.AttemptCompleted }),
		InProgressAttempts: lo.CountBy(rows, func(r store.AttemptRow) bool { return r.Status == domain.AttemptInProgress }),
		QuestionsAnswered:  lo.SumBy(rows, func(r store.AttemptRow) int { return r.Answered }),
		Recent:             []RecentAttempt{},
	}

	if len(completed) > 0 {
		sum := lo.SumBy(completed, func(r store.AttemptRow) int { return *r.Score })
		avg := domain.Round(float64(sum)/float64(len(completed)), 1)
		d.AverageScore = &avg
		d.AverageAccuracy = scorePercent(avg)
	}

	seconds := lo.SumBy(completed, func(r store.AttemptRow) int { return lo.FromPtr(r.TotalTimeSeconds) })
	answered := lo.SumBy(completed, func(r store.AttemptRow) int { return r.Answered })
	if answered > 0 {
		d.AvgTimePerQuestion = formatCompact(seconds / answered)
	} else {
		d.AvgTimePerQuestion = formatCompact(0)
	}

	weakest := -1
	for _, t := range byType {
		if t.Total == 0 {
			continue
		}
		_, acc := domain.ReadingScore(t.Correct, t.Total)
		if weakest < 0 || acc < weakest {
			weakest = acc
			d.WeakestQuestionType = &t.QuestionType
		}
	}
	d.WeakestAccuracy = max(weakest, 0)

	for _, r := range lo.Slice(completed, 0, RecentAttemptsLimit) {
		d.Recent = append(d.Recent, RecentAttempt{
			AttemptID:  r.AttemptID,
			TestTitle:  r.TestTitle,
			Mode:       r.Mode,
			Score:      *r.Score,
			ScoreLabel: fmt.Sprintf("%d/%d", *r.Score, domain.MaxReadingScore),
			DateLabel:  relativeDate(r.StartedAt, now),
		})
	}

	trend := lo.Map(lo.Slice(completed, 0, TrendScoresLimit), func(r store.AttemptRow, _ int) float64 {
		return float64(scorePercent(float64(*r.Score)))
	})
	d.Trend = trendPaths(lo.Reverse(trend))
	return d
}

// scorePercent maps a 0-30 score onto 0-100.
func scorePercent(score float64) int {
	bounded := min(max(math.Round(score), 0), domain.MaxReadingScore)
	return int(math.Round(bounded / domain.MaxReadingScore * 100))
}

// trendPaths plots values (0-100, oldest first) across the chart canvas.
// An empty series is drawn as a flat zero line.
func trendPaths(values []float64) Trend {
	if len(values) == 0 {
		values = []float64{0, 0, 0, 0}
	}
	step := 0.0
	if len(values) > 1 {
		step = trendWidth / float64(len(values)-1)
	}

	points := make([]string, len(values))
	for i, v := range values {
		bounded := min(max(v, 0), 100)
		x := domain.Round(float64(i)*step, 2)
		y := domain.Round(trendHeight-bounded/100*trendChartHeight, 2)
		points[i] = formatFloat(x) + " " + formatFloat(y)
	}

	line := "M " + strings.Join(points, " L ")
	return Trend{
		LinePath: line,
		AreaPath: fmt.Sprintf("%s V %s H 0 Z", line, formatFloat(trendHeight)),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatMMSS renders seconds as mm:ss.
func formatMMSS(seconds int) string {
	seconds = max(seconds, 0)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// formatCompact renders seconds as "1m 5s" or "42s".
func formatCompact(seconds int) string {
	seconds = max(seconds, 0)
	if m := seconds / 60; m > 0 {
		return fmt.Sprintf("%dm %ds", m, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

// relativeDate labels t by whole calendar days before now.
func relativeDate(t, now time.Time) string {
	days := int(domain.DateOf(now).Sub(domain.DateOf(t).Time).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
