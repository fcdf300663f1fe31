package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// ReportStore is a testify mock of store.ReportStore.
type ReportStore struct {
	mock.Mock
}

var _ store.ReportStore = (*ReportStore)(nil)

// DueReminders implements store.ReportStore.
func (m *ReportStore) DueReminders(ctx context.Context, today domain.Date) ([]store.DueReminder, error) {
	args := m.Called(ctx, today)
	if v, ok := args.Get(0).([]store.DueReminder); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// VocabStats implements store.ReportStore.
func (m *ReportStore) VocabStats(ctx context.Context, userID uuid.UUID, today domain.Date) (*store.VocabStats, error) {
	args := m.Called(ctx, userID, today)
	if v, ok := args.Get(0).(*store.VocabStats); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// LessonViewStats implements store.ReportStore.
func (m *ReportStore) LessonViewStats(ctx context.Context, lessonID uuid.UUID) (*store.ViewStats, error) {
	args := m.Called(ctx, lessonID)
	if v, ok := args.Get(0).(*store.ViewStats); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// LessonQuestionStats implements store.ReportStore.
func (m *ReportStore) LessonQuestionStats(ctx context.Context, lessonID uuid.UUID) (*store.QuestionStats, error) {
	args := m.Called(ctx, lessonID)
	if v, ok := args.Get(0).(*store.QuestionStats); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// TeacherLessons implements store.ReportStore.
func (m *ReportStore) TeacherLessons(ctx context.Context, creatorID uuid.UUID) ([]store.TeacherLessonRow, error) {
	args := m.Called(ctx, creatorID)
	if v, ok := args.Get(0).([]store.TeacherLessonRow); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// PendingQuestions implements store.ReportStore.
func (m *ReportStore) PendingQuestions(ctx context.Context, creatorID uuid.UUID, limit int) ([]store.PendingQuestion, error) {
	args := m.Called(ctx, creatorID, limit)
	if v, ok := args.Get(0).([]store.PendingQuestion); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// StudentLessons implements store.ReportStore.
func (m *ReportStore) StudentLessons(ctx context.Context, userID uuid.UUID) ([]store.StudentLessonRow, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]store.StudentLessonRow); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// StudentQuestions implements store.ReportStore.
func (m *ReportStore) StudentQuestions(ctx context.Context, userID uuid.UUID, limit int) ([]store.StudentQuestionRow, error) {
	args := m.Called(ctx, userID, limit)
	if v, ok := args.Get(0).([]store.StudentQuestionRow); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// AttemptRows implements store.ReportStore.
func (m *ReportStore) AttemptRows(ctx context.Context, userID uuid.UUID) ([]store.AttemptRow, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]store.AttemptRow); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// QuestionTypeAccuracy implements store.ReportStore.
func (m *ReportStore) QuestionTypeAccuracy(ctx context.Context, userID uuid.UUID) ([]store.QuestionTypeAccuracy, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]store.QuestionTypeAccuracy); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// ScoreSeries implements store.ReportStore.
func (m *ReportStore) ScoreSeries(ctx context.Context, userID uuid.UUID) ([]store.ScorePoint, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]store.ScorePoint); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// RoleCounts implements store.ReportStore.
func (m *ReportStore) RoleCounts(ctx context.Context) (*store.RoleCounts, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).(*store.RoleCounts); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
