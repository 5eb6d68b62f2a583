package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DanialSobri/api-studio/internal/infrastructure/config"
	"github.com/DanialSobri/api-studio/internal/infrastructure/database"
	"github.com/DanialSobri/api-studio/migrations"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit-test.db"),
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

type sinkCall struct {
	ev      Event
	dropped bool
	err     error
}

// captureSink records every call it receives.
type captureSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (c *captureSink) EventRecorded(_ context.Context, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, sinkCall{ev: ev})
}

func (c *captureSink) EventDropped(_ context.Context, ev Event, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, sinkCall{ev: ev, dropped: true, err: err})
}

func (c *captureSink) all() []sinkCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sinkCall(nil), c.calls...)
}

func ptr(v int64) *int64 { return &v }
