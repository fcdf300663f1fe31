package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/campus-api/internal/config"
	"github.com/phrazzld/campus-api/internal/domain/srs"
	"github.com/phrazzld/campus-api/internal/events"
	"github.com/phrazzld/campus-api/internal/media"
	"github.com/phrazzld/campus-api/internal/platform/gemini"
	"github.com/phrazzld/campus-api/internal/platform/postgres"
	"github.com/phrazzld/campus-api/internal/platform/rollbar"
	"github.com/phrazzld/campus-api/internal/platform/sendgrid"
	"github.com/phrazzld/campus-api/internal/platform/telegram"
	"github.com/phrazzld/campus-api/internal/reminder"
	"github.com/phrazzld/campus-api/internal/service"
	"github.com/phrazzld/campus-api/internal/service/auth"
	"github.com/phrazzld/campus-api/internal/service/reading"
	"github.com/phrazzld/campus-api/internal/service/toefl"
	"github.com/phrazzld/campus-api/internal/service/video"
	"github.com/phrazzld/campus-api/internal/service/vocab"
	"github.com/phrazzld/campus-api/internal/store"
	"github.com/phrazzld/campus-api/internal/task"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore  store.UserStore
	vocabStore store.VocabStore
	taskStore  task.TaskStore

	jwtService auth.JWTService
	reporter   *rollbar.Reporter

	userService    service.UserService
	vocabService   vocab.Service
	videoService   video.Service
	readingService reading.Service
	toeflService   toefl.Service

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
	reminders    *reminder.Scheduler

	started bool
}

// newApplication wires stores, services and background workers. Nothing is
// started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		db:       db,
		reporter: rollbar.NewReporter(cfg.Rollbar, version),
	}
	if app.reporter.Enabled() {
		logger.Info("error reporting enabled", slog.String("environment", cfg.Rollbar.Environment))
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	files, err := media.NewLocalStorage(cfg.Media.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open media storage: %w", err)
	}

	assessor, err := gemini.NewAssessor(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assessor: %w", err)
	}
	logger.Info("assessor initialized", slog.String("model", cfg.LLM.ModelName))

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.vocabStore = postgres.NewPostgresVocabStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	videoStore := postgres.NewPostgresVideoStore(db, logger)
	readingStore := postgres.NewPostgresReadingStore(db, logger)
	toeflStore := postgres.NewPostgresToeflStore(db, logger)
	reports := postgres.NewPostgresReportStore(db, postgres.DriverName, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.userService = service.NewUserService(app.userStore, reports, app.jwtService, auth.NewBcryptVerifier(), db, logger)
	app.vocabService = vocab.NewService(app.vocabStore, reports, srs.NewDefaultService(), db, logger)
	app.videoService = video.NewService(videoStore, reports, files, db, cfg.Media.MaxUploadMB<<20, logger)
	app.readingService = reading.NewService(readingStore, reports, db, logger)
	toeflService := toefl.NewService(toeflStore, reports, files, assessor, assessor, app.eventEmitter, db, logger)
	app.toeflService = toeflService

	registry := task.NewRegistry()
	registry.Register(task.TaskTypeAssessment, task.AssessmentFactory(toeflService, logger))

	app.taskRunner = task.NewTaskRunner(app.taskStore, registry, task.TaskRunnerConfig{
		QueueSize:    cfg.Task.QueueSize,
		WorkerCount:  cfg.Task.WorkerCount,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)
	app.taskRunner.SetErrorHandler(app.reportTaskFailure)
	app.eventEmitter.RegisterHandler(task.NewEventHandler(registry, app.taskRunner, logger))

	if cfg.Reminder.Enabled {
		notifiers, err := buildNotifiers(cfg, logger)
		if err != nil {
			return nil, err
		}
		app.reminders, err = reminder.NewScheduler(reminder.NewService(reports, notifiers, app.reporter, logger), cfg.Reminder.At, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule reminders: %w", err)
		}
	}

	logger.Info("application initialized")
	return app, nil
}

// buildNotifiers returns the reminder channels that have credentials.
func buildNotifiers(cfg *config.Config, logger *slog.Logger) ([]reminder.Notifier, error) {
	var notifiers []reminder.Notifier
	if cfg.Mail.SendGridAPIKey != "" {
		mailer, err := sendgrid.NewMailer(cfg.Mail)
		if err != nil {
			return nil, fmt.Errorf("failed to create mailer: %w", err)
		}
		notifiers = append(notifiers, mailer)
	}
	if cfg.Telegram.BotToken != "" {
		bot, err := telegram.NewNotifier(cfg.Telegram.BotToken)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		notifiers = append(notifiers, bot)
	}
	if len(notifiers) == 0 {
		logger.Warn("reminders enabled without any delivery channel configured")
	}
	return notifiers, nil
}

// reportTaskFailure logs a failed background task and sends it to Rollbar.
func (app *application) reportTaskFailure(t task.Task, err error) {
	app.logger.Error("task execution failed",
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()),
		slog.String("error", err.Error()))
	app.reporter.Error(context.Background(), err, map[string]any{
		"task_id":   t.ID().String(),
		"task_type": t.Type(),
	})
}

// start launches the task runner and the reminder scheduler.
func (app *application) start() error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	app.started = true
	if app.reminders != nil {
		app.reminders.Start()
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.start(); err != nil {
		app.cleanup()
		return err
	}
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases resources in reverse start order.
func (app *application) cleanup() {
	if app.reminders != nil && app.started {
		app.reminders.Stop()
	}
	if app.taskRunner != nil && app.started {
		app.taskRunner.Stop()
	}
	app.reporter.Flush()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
