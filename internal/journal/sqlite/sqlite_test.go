package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/georgeshao/canned-status/internal/journal"
	"github.com/georgeshao/canned-status/internal/journal/journaltest"
)

func setupTestStore(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "sqlite_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "test.db")
	store, err := New(dbPath)
	if err != nil {
		if removeErr := os.RemoveAll(tempDir); removeErr != nil {
			t.Logf("Failed to remove temp dir: %v", removeErr)
		}
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		if removeErr := os.RemoveAll(tempDir); removeErr != nil {
			t.Logf("Failed to remove temp dir: %v", removeErr)
		}
	}

	return store, cleanup
}

func TestSQLiteStore(t *testing.T) {
	journaltest.RunStoreTests(t, func(t *testing.T) journal.Store {
		store, cleanup := setupTestStore(t)
		t.Cleanup(cleanup)
		return store
	})
}

func TestDuplicateIDRollsBackBatch(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	defer store.Close()

	ctx := context.Background()
	rec := &journal.Record{ID: "rec_dup", Token: "200", Outcome: "ok", StatusCode: 200, CreatedAt: time.Now()}

	if err := store.Append(ctx, []*journal.Record{rec}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	fresh := &journal.Record{ID: "rec_fresh", Token: "400", Outcome: "bad_request", StatusCode: 400, CreatedAt: time.Now()}
	if err := store.Append(ctx, []*journal.Record{fresh, rec}); err == nil {
		t.Fatal("Expected duplicate ID to fail")
	}

	_, total, err := store.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected failed batch to roll back, total %d", total)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "sqlite_reopen")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "journal.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Append(ctx, []*journal.Record{{ID: "rec_1", Token: "500", Outcome: "server_error", StatusCode: 500, CreatedAt: time.Now()}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.ByOutcome["server_error"] != 1 {
		t.Errorf("Expected record to survive reopen, got %+v", stats)
	}
}
