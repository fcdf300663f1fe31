// Package reminder sends the daily vocabulary review reminder to users with
// words due, over every channel they enabled.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/phrazzld/campus-api/internal/domain"
	"github.com/phrazzld/campus-api/internal/platform/logger"
	"github.com/phrazzld/campus-api/internal/store"
)

// Notifier delivers a reminder over one channel.
type Notifier interface {
	// Channel names the delivery channel in logs.
	Channel() string
	// Accepts reports whether the user enabled this channel.
	Accepts(r store.DueReminder) bool
	Notify(ctx context.Context, r store.DueReminder) error
}

// ErrorReporter forwards delivery and sweep failures to an error tracker.
// *rollbar.Reporter satisfies it.
type ErrorReporter interface {
	Error(ctx context.Context, err error, extras map[string]any)
}

type nopReporter struct{}

func (nopReporter) Error(context.Context, error, map[string]any) {}

// Message renders the reminder text for count due words.
func Message(count int) string {
	if count == 1 {
		return "You have 1 word to review today. Keep your streak going!"
	}
	return fmt.Sprintf("You have %d words to review today. Keep your streak going!", count)
}

// Summary counts the outcome of one reminder sweep.
type Summary struct {
	Users  int
	Sent   int
	Failed int
}

// Service runs reminder sweeps.
type Service struct {
	reports   store.ReportStore
	notifiers []Notifier
	reporter  ErrorReporter
	today     func() domain.Date
	logger    *slog.Logger
}

// NewService creates a reminder service sending through notifiers. A nil
// reporter drops failure reports.
func NewService(reports store.ReportStore, notifiers []Notifier, reporter ErrorReporter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Service{
		reports:   reports,
		notifiers: notifiers,
		reporter:  reporter,
		today:     domain.Today,
		logger:    logger.With(slog.String("component", "reminder")),
	}
}

// Run notifies every user with words due today. A failed delivery is
// logged and reported and does not stop the sweep.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	due, err := s.reports.DueReminders(ctx, s.today())
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load due reminders: %w", err)
	}

	sum := Summary{Users: len(due)}
	for _, r := range due {
		if r.DueCount <= 0 {
			continue
		}
		for _, n := range s.notifiers {
			if !n.Accepts(r) {
				continue
			}
			if err := n.Notify(ctx, r); err != nil {
				sum.Failed++
				log.Warn("failed to send reminder",
					slog.String("channel", n.Channel()),
					slog.String("user_id", r.UserID.String()),
					slog.String("error", err.Error()))
				s.reporter.Error(ctx, fmt.Errorf("reminder delivery failed: %w", err), map[string]any{
					"channel": n.Channel(),
					"user_id": r.UserID.String(),
				})
				continue
			}
			sum.Sent++
		}
	}

	log.Info("reminder sweep finished",
		slog.Int("users", sum.Users),
		slog.Int("sent", sum.Sent),
		slog.Int("failed", sum.Failed))
	return sum, nil
}

// Scheduler runs the sweep once a day.
type Scheduler struct {
	cron    *gocron.Scheduler
	service *Service
	logger  *slog.Logger
}

// NewScheduler schedules svc daily at "HH:MM" UTC.
func NewScheduler(svc *Service, at string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		service: svc,
		logger:  logger.With(slog.String("component", "reminder_scheduler")),
	}
	s.cron.SingletonModeAll()
	if _, err := s.cron.Every(1).Day().At(at).Do(s.sweep); err != nil {
		return nil, fmt.Errorf("failed to schedule reminders at %q: %w", at, err)
	}
	return s, nil
}

func (s *Scheduler) sweep() {
	ctx := logger.WithLogger(context.Background(), s.logger)
	if _, err := s.service.Run(ctx); err != nil {
		s.logger.Error("reminder sweep failed", slog.String("error", err.Error()))
		s.service.reporter.Error(ctx, err, map[string]any{"component": "reminder_scheduler"})
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	_, next := s.cron.NextRun()
	s.logger.Info("reminder scheduler started", slog.Time("next_run", next))
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
