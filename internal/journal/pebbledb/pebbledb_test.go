package pebbledb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/georgeshao/canned-status/internal/journal"
	"github.com/georgeshao/canned-status/internal/journal/journaltest"
)

func setupTestStore(t *testing.T) (*PebbleStore, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "pebble_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	store, err := New(filepath.Join(tempDir, "journal"))
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

func TestPebbleStore(t *testing.T) {
	journaltest.RunStoreTests(t, func(t *testing.T) journal.Store {
		store, cleanup := setupTestStore(t)
		t.Cleanup(cleanup)
		return store
	})
}

func TestCountersSurviveReopen(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "pebble_reopen")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, "journal")
	store, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rec := &journal.Record{ID: journal.NewRecordID(), Token: "400", Outcome: "bad_request", StatusCode: 400, CreatedAt: time.Now()}
		if err := store.Append(ctx, []*journal.Record{rec}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = New(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.ByOutcome["bad_request"] != 3 || stats.Total != 3 {
		t.Errorf("Expected 3 bad_request records, got %+v", stats)
	}
}

func TestExtractIDFromIndexKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"ts:00000000000000000001:rec_abc", "rec_abc"},
		{"oc:unknown:00000000000000000001:rec_abc", "rec_abc"},
		{"ts:00000000000000000001:", ""},
		{"garbage", ""},
	}

	for _, tt := range tests {
		if got := extractIDFromIndexKey([]byte(tt.key)); got != tt.want {
			t.Errorf("extractIDFromIndexKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
