// Package testdb opens a migrated PostgreSQL database for integration tests
// and isolates each test in a rolled back transaction.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/campus-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// Environment variables checked for the test database URL, in order.
const (
	EnvTestDatabaseURL = "CAMPUS_TEST_DATABASE_URL"
	EnvDatabaseURL     = "DATABASE_URL"
)

// Timeout bounds setup queries.
const Timeout = 10 * time.Second

var migrateOnce = map[string]*sync.Once{}
var migrateMu sync.Mutex

// DatabaseURL returns the first non-empty test database URL.
func DatabaseURL() string {
	for _, key := range []string{EnvTestDatabaseURL, EnvDatabaseURL} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// Open connects to the test database and applies the embedded migrations once
// per URL. The test is skipped when no URL is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := DatabaseURL()
	if url == "" {
		t.Skipf("integration test skipped: set %s or %s", EnvTestDatabaseURL, EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	db, err := postgres.Open(ctx, url, postgres.PoolConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrate(ctx, t, db, url))
	return db
}

func migrate(ctx context.Context, t *testing.T, db *sql.DB, url string) error {
	migrateMu.Lock()
	once, ok := migrateOnce[url]
	if !ok {
		once = &sync.Once{}
		migrateOnce[url] = once
	}
	migrateMu.Unlock()

	var err error
	once.Do(func() {
		goose.SetLogger(&gooseLogger{t: t})
		defer goose.SetLogger(goose.NopLogger())
		goose.SetTableName("schema_migrations")
		goose.SetBaseFS(postgres.Migrations)
		defer goose.SetBaseFS(nil)
		if dialectErr := goose.SetDialect("postgres"); dialectErr != nil {
			err = dialectErr
			return
		}
		if upErr := goose.UpContext(ctx, db, postgres.MigrationsDir); upErr != nil {
			err = fmt.Errorf("failed to run migrations: %w", upErr)
		}
	})
	return err
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

type gooseLogger struct {
	t *testing.T
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.t.Log("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.t.Fatal("goose: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}
