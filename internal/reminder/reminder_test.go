package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/mocks"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	channel string
	accepts func(store.DueReminder) bool
	err     error
	sent    []uuid.UUID
}

func (f *fakeNotifier) Channel() string                  { return f.channel }
func (f *fakeNotifier) Accepts(r store.DueReminder) bool { return f.accepts(r) }

func (f *fakeNotifier) Notify(_ context.Context, r store.DueReminder) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, r.UserID)
	return nil
}

type reportedError struct {
	err    error
	extras map[string]any
}

type recordingReporter struct {
	reports []reportedError
}

func (r *recordingReporter) Error(_ context.Context, err error, extras map[string]any) {
	r.reports = append(r.reports, reportedError{err: err, extras: extras})
}

func TestMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "You have 1 word to review today. Keep your streak going!", Message(1))
	assert.Contains(t, Message(7), "7 words")
}

func TestRun(t *testing.T) {
	t.Parallel()

	chat := int64(42)
	emailOnly := store.DueReminder{UserID: uuid.New(), Email: "a@example.com", EmailReminders: true, DueCount: 3}
	both := store.DueReminder{UserID: uuid.New(), Email: "b@example.com", EmailReminders: true, TelegramChatID: &chat, DueCount: 1}
	nothingDue := store.DueReminder{UserID: uuid.New(), Email: "c@example.com", EmailReminders: true}

	today := domain.DateOf(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC))
	reports := new(mocks.ReportStore)
	reports.On("DueReminders", context.Background(), today).
		Return([]store.DueReminder{emailOnly, both, nothingDue}, nil)

	email := &fakeNotifier{channel: "email", accepts: func(r store.DueReminder) bool { return r.EmailReminders }}
	telegram := &fakeNotifier{
		channel: "telegram",
		accepts: func(r store.DueReminder) bool { return r.TelegramChatID != nil },
		err:     errors.New("chat not found"),
	}

	reporter := &recordingReporter{}
	svc := NewService(reports, []Notifier{telegram, email}, reporter, logger.Discard())
	svc.today = func() domain.Date { return today }

	sum, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 3, Sent: 2, Failed: 1}, sum)
	// The telegram failure for the second user does not stop its e-mail.
	assert.Equal(t, []uuid.UUID{emailOnly.UserID, both.UserID}, email.sent)

	require.Len(t, reporter.reports, 1)
	assert.ErrorContains(t, reporter.reports[0].err, "chat not found")
	assert.Equal(t, "telegram", reporter.reports[0].extras["channel"])
	assert.Equal(t, both.UserID.String(), reporter.reports[0].extras["user_id"])
}

func TestRunWithoutReporter(t *testing.T) {
	t.Parallel()

	today := domain.DateOf(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC))
	due := store.DueReminder{UserID: uuid.New(), Email: "a@example.com", EmailReminders: true, DueCount: 2}
	reports := new(mocks.ReportStore)
	reports.On("DueReminders", context.Background(), today).Return([]store.DueReminder{due}, nil)

	failing := &fakeNotifier{channel: "email", accepts: func(store.DueReminder) bool { return true }, err: errors.New("smtp 550")}
	svc := NewService(reports, []Notifier{failing}, nil, logger.Discard())
	svc.today = func() domain.Date { return today }

	sum, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Summary{Users: 1, Failed: 1}, sum)
}

func TestRunLoadFailure(t *testing.T) {
	t.Parallel()

	reports := new(mocks.ReportStore)
	today := domain.DateOf(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC))
	reports.On("DueReminders", context.Background(), today).Return(nil, errors.New("db down"))
	svc := NewService(reports, nil, nil, logger.Discard())
	svc.today = func() domain.Date { return today }

	_, err := svc.Run(context.Background())

	require.Error(t, err)
}

func TestSchedulerSweepReportsFailure(t *testing.T) {
	t.Parallel()

	today := domain.DateOf(time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC))
	reports := new(mocks.ReportStore)
	reports.On("DueReminders", mock.Anything, today).Return(nil, errors.New("db down"))
	reporter := &recordingReporter{}
	svc := NewService(reports, nil, reporter, logger.Discard())
	svc.today = func() domain.Date { return today }

	s, err := NewScheduler(svc, "08:30", logger.Discard())
	require.NoError(t, err)
	s.sweep()

	require.Len(t, reporter.reports, 1)
	assert.ErrorContains(t, reporter.reports[0].err, "db down")
}

func TestNewSchedulerRejectsBadTime(t *testing.T) {
	t.Parallel()

	svc := NewService(new(mocks.ReportStore), nil, nil, logger.Discard())

	_, err := NewScheduler(svc, "25:99", logger.Discard())
	require.Error(t, err)

	s, err := NewScheduler(svc, "08:30", logger.Discard())
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
