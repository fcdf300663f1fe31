// Package main runs the campus API server. Flags switch it into one-shot
// maintenance commands: database migrations, admin creation and vocabulary
// imports.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/campus-api/internal/config"
	"github.com/phrazzld/campus-api/internal/platform/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// options are the parsed command line flags.
type options struct {
	migrate     string
	name        string
	createAdmin bool
	email       string
	importWords string
	lesson      string
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.migrate, "migrate", "", "run a migration command: up, down, status, version or create")
	fs.StringVar(&opts.name, "name", "", "name of the migration created by -migrate create")
	fs.BoolVar(&opts.createAdmin, "create-admin", false, "create or promote an admin user")
	fs.StringVar(&opts.email, "email", "", "email of the admin created by -create-admin")
	fs.StringVar(&opts.importWords, "import-words", "", "path of an .xlsx or .csv word list to import")
	fs.StringVar(&opts.lesson, "lesson", "", "vocabulary lesson receiving -import-words")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	commands := 0
	for _, set := range []bool{opts.migrate != "", opts.createAdmin, opts.importWords != ""} {
		if set {
			commands++
		}
	}
	if commands > 1 {
		return options{}, fmt.Errorf("-migrate, -create-admin and -import-words are mutually exclusive")
	}
	if opts.createAdmin && opts.email == "" {
		return options{}, fmt.Errorf("-create-admin requires -email")
	}
	if opts.importWords != "" && opts.lesson == "" {
		return options{}, fmt.Errorf("-import-words requires -lesson")
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("campus-api exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.migrate != "" {
		return runMigrations(ctx, cfg, log, opts.migrate, opts.name)
	}

	db, err := openDatabase(ctx, cfg.Database.URL, log)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	switch {
	case opts.createAdmin:
		defer app.cleanup()
		return createAdmin(ctx, app.userService, opts.email, terminalPassword, os.Stdout)
	case opts.importWords != "":
		defer app.cleanup()
		return importWords(ctx, app.vocabStore, app.vocabService, opts.importWords, opts.lesson, os.Stdout)
	}

	return app.Run(ctx)
}
