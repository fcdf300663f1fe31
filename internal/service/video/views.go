package video

import (
	"fmt"

	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/samber/lo"
)

// WatchView is a video with its neighbours in playback order.
type WatchView struct {
	Lesson   *domain.VideoLesson `json:"lesson"`
	Video    *domain.Video       `json:"video"`
	Previous *domain.Video       `json:"previous_video"`
	Next     *domain.Video       `json:"next_video"`
	Position int                 `json:"current_video_index"`
	Total    int                 `json:"total_videos"`
}

// RatingOutcome is the result of rating a lesson.
type RatingOutcome struct {
	Rating        *domain.Rating
	Created       bool
	LessonAverage float64
	TotalRatings  int
}

// Message is the confirmation shown to the rater.
func (o *RatingOutcome) Message() string {
	if o.Created {
		return "Rating created"
	}
	return "Rating updated"
}

// RatingStatsView is RatingStats rounded for display, with a keyed
// star distribution.
type RatingStatsView struct {
	Average      float64        `json:"average"`
	Total        int            `json:"total"`
	Distribution map[string]int `json:"distribution"`
}

func newRatingStatsView(s *store.RatingStats) RatingStatsView {
	dist := make(map[string]int, len(s.Distribution))
	for i, n := range s.Distribution {
		dist[fmt.Sprintf("star_%d", i+1)] = n
	}
	return RatingStatsView{
		Average:      domain.Round(s.Average, 2),
		Total:        s.Total,
		Distribution: dist,
	}
}

// RatingSummary is the public rating overview of a lesson.
type RatingSummary struct {
	Lesson     *domain.VideoLesson `json:"-"`
	Stats      RatingStatsView     `json:"stats"`
	UserRating *int                `json:"user_rating"`
	Recent     []*domain.Rating    `json:"ratings"`
}

// QuestionView is a lesson question as seen by one user.
type QuestionView struct {
	domain.LessonQuestion
	Answers      []domain.LessonAnswer `json:"answers"`
	AnswersCount int                   `json:"answers_count"`
	IsMine       bool                  `json:"is_mine"`
}

// ViewOutcome is the stored watch progress after a report.
type ViewOutcome struct {
	View    *domain.VideoView `json:"view"`
	Created bool              `json:"created"`
}

// ViewSummary aggregates lesson watch data for its creator.
type ViewSummary struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	CompletionRate  float64 `json:"completion_rate"`
	TotalWatchHours float64 `json:"total_watch_hours"`
	AvgWatchMinutes float64 `json:"avg_watch_minutes"`
}

func newViewSummary(v *store.ViewStats) ViewSummary {
	sum := ViewSummary{
		Total:           v.Total,
		Completed:       v.Completed,
		TotalWatchHours: domain.Round(float64(v.TotalWatchSeconds)/3600, 2),
	}
	if v.Total > 0 {
		sum.CompletionRate = domain.Round(float64(v.Completed)/float64(v.Total)*100, 2)
		sum.AvgWatchMinutes = domain.Round(float64(v.TotalWatchSeconds)/float64(v.Total)/60, 2)
	}
	return sum
}

// QuestionSummary counts lesson questions by answered state.
type QuestionSummary struct {
	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Unanswered int `json:"unanswered"`
}

// LessonStats is the creator's analytics page for one lesson.
type LessonStats struct {
	Lesson    *domain.VideoLesson `json:"lesson"`
	Views     ViewSummary         `json:"views"`
	Ratings   RatingStatsView     `json:"ratings"`
	Questions QuestionSummary     `json:"questions"`
}

// TeacherLesson is one lesson row of the teacher dashboard.
type TeacherLesson struct {
	store.TeacherLessonRow
	AvgRating float64 `json:"avg_rating"`
}

// TeacherDashboard summarises a teacher's lessons.
type TeacherDashboard struct {
	Lessons          []TeacherLesson         `json:"lessons"`
	TotalLessons     int                     `json:"total_lessons"`
	TotalViews       int                     `json:"total_views"`
	TotalUnanswered  int                     `json:"total_unanswered"`
	PendingQuestions []store.PendingQuestion `json:"recent_unanswered"`
}

func newTeacherDashboard(rows []store.TeacherLessonRow, pending []store.PendingQuestion) *TeacherDashboard {
	lessons := lo.Map(rows, func(r store.TeacherLessonRow, _ int) TeacherLesson {
		return TeacherLesson{TeacherLessonRow: r, AvgRating: domain.Round(lo.FromPtr(r.AvgRating), 2)}
	})
	if pending == nil {
		pending = []store.PendingQuestion{}
	}
	return &TeacherDashboard{
		Lessons:          lessons,
		TotalLessons:     len(rows),
		TotalViews:       lo.SumBy(rows, func(r store.TeacherLessonRow) int { return r.Views }),
		TotalUnanswered:  lo.SumBy(rows, func(r store.TeacherLessonRow) int { return r.Unanswered }),
		PendingQuestions: pending,
	}
}

// StudentLesson is one enrolled lesson with watch progress.
type StudentLesson struct {
	store.StudentLessonRow
	ProgressPercent float64 `json:"progress_percent"`
	Completed       bool    `json:"completed"`
}

// StudentDashboard summarises a student's enrolled lessons and questions.
type StudentDashboard struct {
	Lessons          []StudentLesson            `json:"lessons"`
	TotalLessons     int                        `json:"total_lessons"`
	TotalWatchHours  float64                    `json:"total_watch_hours"`
	CompletedLessons int                        `json:"completed_lessons"`
	Questions        []store.StudentQuestionRow `json:"my_questions"`
}

func newStudentDashboard(rows []store.StudentLessonRow, questions []store.StudentQuestionRow) *StudentDashboard {
	lessons := lo.Map(rows, func(r store.StudentLessonRow, _ int) StudentLesson {
		l := StudentLesson{StudentLessonRow: r}
		if r.VideoCount > 0 {
			l.ProgressPercent = domain.Round(float64(r.CompletedVideos)/float64(r.VideoCount)*100, 1)
			l.Completed = r.CompletedVideos >= r.VideoCount
		}
		return l
	})
	if questions == nil {
		questions = []store.StudentQuestionRow{}
	}
	watched := lo.SumBy(rows, func(r store.StudentLessonRow) int { return r.TotalWatchSeconds })
	return &StudentDashboard{
		Lessons:          lessons,
		TotalLessons:     len(rows),
		TotalWatchHours:  domain.Round(float64(watched)/3600, 1),
		CompletedLessons: lo.CountBy(lessons, func(l StudentLesson) bool { return l.Completed }),
		Questions:        questions,
	}
}
