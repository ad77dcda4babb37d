package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/formpilot/internal/config"
	"github.com/xxxsen/formpilot/internal/db"
)

// OpenTestDB connects to TEST_DB_DSN and applies migrations. Tests are
// skipped when the variable is unset.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
