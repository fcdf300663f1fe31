package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LessonLevel is the difficulty of a video lesson.
type LessonLevel string

// Lesson levels
const (
	LevelBeginner     LessonLevel = "beginner"
	LevelIntermediate LessonLevel = "intermediate"
	LevelAdvanced     LessonLevel = "advanced"
)

// LessonStatus tracks the publication state of a video lesson.
type LessonStatus string

// Lesson statuses
const (
	LessonStatusDraft     LessonStatus = "draft"
	LessonStatusPublished LessonStatus = "published"
	LessonStatusArchived  LessonStatus = "archived"
)

// Video lesson errors
var (
	ErrInvalidLevel     = errors.New("invalid lesson level")
	ErrInvalidDuration  = errors.New("duration must not be negative")
	ErrInvalidScore     = errors.New("score must be between 1 and 5")
	ErrQuestionTooShort = errors.New("question must be at least 10 characters")
	ErrAnswerTooShort   = errors.New("answer must be at least 5 characters")
)

// Minimum lengths of trimmed question and answer text.
const (
	MinQuestionLength = 10
	MinAnswerLength   = 5
)

// VideoLesson is a course unit made of one or more uploaded videos.
type VideoLesson struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Subject         string       `json:"subject"`
	Level           LessonLevel  `json:"level"`
	Skill           string       `json:"skill"`
	DurationSeconds int          `json:"duration_seconds"`
	Status          LessonStatus `json:"status"`
	PublishedAt     *time.Time   `json:"published_at"`
	CreatorID       uuid.UUID    `json:"creator_id"`
	IsDeleted       bool         `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewVideoLesson creates a draft lesson. Every descriptive field is required.
func NewVideoLesson(
	creatorID uuid.UUID,
	title, description, subject string,
	level LessonLevel,
	skill string,
	durationSeconds int,
) (*VideoLesson, error) {
	l := &VideoLesson{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(title),
		Description:     strings.TrimSpace(description),
		Subject:         strings.TrimSpace(subject),
		Level:           level,
		Skill:           strings.TrimSpace(skill),
		DurationSeconds: durationSeconds,
		Status:          LessonStatusDraft,
		CreatorID:       creatorID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks if the lesson has valid data.
func (l *VideoLesson) Validate() error {
	if l.CreatorID == uuid.Nil {
		return ErrEmptyUserID
	}
	required := []struct{ field, value string }{
		{"title", l.Title},
		{"description", l.Description},
		{"subject", l.Subject},
		{"skill", l.Skill},
	}
	for _, r := range required {
		if r.value == "" {
			return NewValidationError(r.field, "is required", ErrValidation)
		}
	}
	switch l.Level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
	default:
		return ErrInvalidLevel
	}
	if l.DurationSeconds < 0 {
		return ErrInvalidDuration
	}
	return nil
}

// IsPublished reports whether students can see the lesson.
func (l *VideoLesson) IsPublished() bool {
	return l.Status == LessonStatusPublished && !l.IsDeleted
}

// Publish marks the lesson published at now.
func (l *VideoLesson) Publish(now time.Time) {
	l.Status = LessonStatusPublished
	published := now.UTC()
	l.PublishedAt = &published
}

// videoFormats maps upload extensions to the stored format name.
var videoFormats = map[string]string{
	".mp4":  "mp4",
	".mkv":  "mkv",
	".avi":  "avi",
	".mov":  "mov",
	".webm": "webm",
}

var videoMimeTypes = map[string]string{
	"mp4":  "video/mp4",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"webm": "video/webm",
}

// Video is an uploaded file belonging to a lesson.
type Video struct {
	ID              uuid.UUID `json:"id"`
	LessonID        uuid.UUID `json:"lesson_id"`
	Title           string    `json:"title"`
	FilePath        string    `json:"-"`
	Format          string    `json:"format"`
	SizeBytes       int64     `json:"size_bytes"`
	DurationSeconds int       `json:"duration_seconds"`
	IsDeleted       bool      `json:"-"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// NewVideo creates a video record for an uploaded file. The stored file name is
// a fresh UUID with the original extension under videos/.
func NewVideo(lessonID uuid.UUID, title, originalName string, size int64, durationSeconds int) (*Video, error) {
	if lessonID == uuid.Nil {
		return nil, NewValidationError("lesson_id", "cannot be empty", ErrValidation)
	}
	if size <= 0 {
		return nil, NewValidationError("file", "cannot be empty", ErrEmptyContent)
	}
	if durationSeconds < 0 {
		return nil, ErrInvalidDuration
	}
	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(originalName))
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	}
	return &Video{
		ID:              id,
		LessonID:        lessonID,
		Title:           title,
		FilePath:        "videos/" + id.String() + ext,
		Format:          VideoFormat(originalName),
		SizeBytes:       size,
		DurationSeconds: durationSeconds,
		UploadedAt:      time.Now().UTC(),
	}, nil
}

// VideoFormat derives the format from a file name. Unknown extensions map to mp4.
func VideoFormat(name string) string {
	if f, ok := videoFormats[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}
	return "mp4"
}

// MimeType returns the Content-Type for the video's format.
func (v *Video) MimeType() string {
	if m, ok := videoMimeTypes[v.Format]; ok {
		return m
	}
	return "video/mp4"
}

// FormatFileSize renders a byte count for display.
func FormatFileSize(size int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case size >= gb:
		return fmt.Sprintf("%.2f GB", float64(size)/gb)
	case size >= mb:
		return fmt.Sprintf("%.2f MB", float64(size)/mb)
	case size >= kb:
		return fmt.Sprintf("%.2f KB", float64(size)/kb)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// Enrollment records that a user joined a lesson.
type Enrollment struct {
	UserID     uuid.UUID `json:"user_id"`
	LessonID   uuid.UUID `json:"lesson_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Rating is a user's 1-5 star score for a lesson.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	LessonID  uuid.UUID `json:"lesson_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateScore checks the 1-5 range.
func ValidateScore(score int) error {
	if score < 1 || score > 5 {
		return ErrInvalidScore
	}
	return nil
}

// LessonQuestion is a question a student asked about a lesson.
type LessonQuestion struct {
	ID        uuid.UUID `json:"id"`
	LessonID  uuid.UUID `json:"lesson_id"`
	UserID    uuid.UUID `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLessonQuestion trims and validates question text.
func NewLessonQuestion(lessonID, userID uuid.UUID, text string) (*LessonQuestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(text)) < MinQuestionLength {
		return nil, ErrQuestionTooShort
	}
	return &LessonQuestion{
		ID:        uuid.New(),
		LessonID:  lessonID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// LessonAnswer is a teacher's reply to a LessonQuestion.
type LessonAnswer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	UserID     uuid.UUID `json:"user_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewLessonAnswer trims and validates answer text.
func NewLessonAnswer(questionID, userID uuid.UUID, text string) (*LessonAnswer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(text)) < MinAnswerLength {
		return nil, ErrAnswerTooShort
	}
	return &LessonAnswer{
		ID:         uuid.New(),
		QuestionID: questionID,
		UserID:     userID,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// VideoView tracks how much of a video a user watched.
type VideoView struct {
	UserID               uuid.UUID `json:"user_id"`
	VideoID              uuid.UUID `json:"video_id"`
	WatchDurationSeconds int       `json:"watch_duration"`
	Completed            bool      `json:"completed"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Merge folds a new progress report into the view: the longest duration wins
// and completion is sticky.
func (v *VideoView) Merge(watchDuration int, completed bool, now time.Time) {
	if watchDuration > v.WatchDurationSeconds {
		v.WatchDurationSeconds = watchDuration
	}
	v.Completed = v.Completed || completed
	v.UpdatedAt = now.UTC()
}
