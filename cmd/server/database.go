package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/campus-api/internal/platform/postgres"
	"github.com/phrazzld/campus-api/internal/redact"
)

// openDatabase connects with the server's pool settings.
func openDatabase(ctx context.Context, url string, logger *slog.Logger) (*sql.DB, error) {
	db, err := postgres.Open(ctx, url, postgres.DefaultPoolConfig)
	if err != nil {
		logger.Error("database connection failed", slog.String("error", redact.Error(err)))
		return nil, err
	}
	logger.Info("database connection established")
	return db, nil
}
