package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/campus-api/internal/config"
	"github.com/phrazzld/campus-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

// migrationCommands are the accepted -migrate values.
var migrationCommands = []string{"up", "down", "status", "version", "create"}

// slogGooseLogger forwards goose output to slog. Fatalf does not exit so the
// error reaches main.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// validateMigrationCommand checks command and its arguments before any
// connection is opened.
func validateMigrationCommand(command, name string) error {
	valid := false
	for _, c := range migrationCommands {
		if c == command {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown migration command: %s (expected up, down, status, version or create)", command)
	}
	if command == "create" && name == "" {
		return fmt.Errorf("migration name is required for 'create' command")
	}
	return nil
}

// runMigrations executes a goose command against the embedded migrations.
// create writes a new SQL file to the source migrations directory instead.
func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger, command, name string) error {
	if err := validateMigrationCommand(command, name); err != nil {
		return err
	}

	log := logger.With(
		slog.String("correlation_id", uuid.NewString()),
		slog.String("component", "migrations"),
		slog.String("command", command))
	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if command == "create" {
		dir := os.Getenv("CAMPUS_MIGRATIONS_DIR")
		if dir == "" {
			dir = "internal/platform/postgres/migrations"
		}
		log.Info("creating migration", slog.String("name", name), slog.String("dir", dir))
		if err := goose.Create(nil, dir, name, "sql"); err != nil {
			return fmt.Errorf("migration command 'create' failed: %w", err)
		}
		return nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolConfig{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	goose.SetBaseFS(postgres.Migrations)
	defer goose.SetBaseFS(nil)

	start := time.Now()
	if err := executeMigration(ctx, db, command); err != nil {
		log.Error("migration command failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}
	log.Info("migration command executed successfully",
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

func executeMigration(ctx context.Context, db *sql.DB, command string) error {
	dir := postgres.MigrationsDir
	switch command {
	case "up":
		return goose.UpContext(ctx, db, dir)
	case "down":
		return goose.DownContext(ctx, db, dir)
	case "status":
		return goose.StatusContext(ctx, db, dir)
	case "version":
		return goose.VersionContext(ctx, db, dir)
	}
	return fmt.Errorf("unsupported migration command: %s", command)
}
