package project

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/DanialSobri/api-studio/internal/infrastructure/config"
	"github.com/DanialSobri/api-studio/internal/infrastructure/database"
	"github.com/DanialSobri/api-studio/migrations"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "project-test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// seedUser inserts a bare user row and returns its id.
func seedUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.Exec(
		"INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at) VALUES (?, 'x', 'user', 1, ?, ?)",
		email, now, now)
	if err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	id, _ := res.LastInsertId()
	return id
}

func strPtr(s string) *string { return &s }
