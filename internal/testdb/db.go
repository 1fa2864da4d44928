package testdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// DatabaseURLEnv names the environment variable holding the test database URL.
const DatabaseURLEnv = "DATABASE_URL"

// MigrateFunc brings a freshly opened database up to the current schema.
type MigrateFunc func(ctx context.Context, db *sql.DB) error

// DatabaseURL returns the configured test database URL, or "" when integration
// tests should be skipped.
func DatabaseURL() string {
	return os.Getenv(DatabaseURLEnv)
}

// Open connects to the test database and applies migrate, skipping t when no
// database is configured. The connection is closed when t finishes.
func Open(t *testing.T, migrate MigrateFunc) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		t.Skipf("Skipping integration test - %s environment variable required", DatabaseURLEnv)
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}
	if migrate != nil {
		if err := migrate(ctx, db); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	}
	return db
}
