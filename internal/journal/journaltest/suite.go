// Package journaltest holds the behaviour every journal.Store backend must share.
package journaltest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/georgeshao/canned-status/internal/journal"
)

// RunStoreTests exercises a Store implementation. newStore must return an
// empty store; the suite closes it.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) journal.Store) {
	t.Run("AppendAndList", func(t *testing.T) { testAppendAndList(t, newStore(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testListNewestFirst(t, newStore(t)) })
	t.Run("OutcomeFilter", func(t *testing.T) { testOutcomeFilter(t, newStore(t)) })
	t.Run("CursorPagination", func(t *testing.T) { testCursorPagination(t, newStore(t)) })
	t.Run("CursorSameTimestamp", func(t *testing.T) { testCursorSameTimestamp(t, newStore(t)) })
	t.Run("DefaultLimit", func(t *testing.T) { testDefaultLimit(t, newStore(t)) })
	t.Run("Stats", func(t *testing.T) { testStats(t, newStore(t)) })
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, newStore(t)) })
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func record(i int, token, outcome string, status int) *journal.Record {
	return &journal.Record{
		ID:         fmt.Sprintf("rec_%04d", i),
		Token:      token,
		Outcome:    outcome,
		StatusCode: status,
		Method:     "GET",
		RemoteIP:   "127.0.0.1",
		CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
	}
}

func closeStore(t *testing.T, s journal.Store) {
	if err := s.Close(); err != nil {
		t.Logf("Failed to close store: %v", err)
	}
}

func testAppendAndList(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	want := record(1, "abc", "unknown", 404)
	if err := s.Append(ctx, []*journal.Record{want}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, total, err := s.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d (total %d)", len(records), total)
	}

	got := records[0]
	if got.ID != want.ID || got.Token != want.Token || got.Outcome != want.Outcome {
		t.Errorf("Record mismatch: got %+v, want %+v", got, want)
	}
	if got.StatusCode != want.StatusCode || got.Method != want.Method || got.RemoteIP != want.RemoteIP {
		t.Errorf("Record mismatch: got %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func testListNewestFirst(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	// Appended out of order across two batches.
	if err := s.Append(ctx, []*journal.Record{record(2, "200", "ok", 200), record(0, "200", "ok", 200)}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, []*journal.Record{record(1, "200", "ok", 200)}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, _, err := s.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, id := range []string{"rec_0002", "rec_0001", "rec_0000"} {
		if records[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, records[i].ID)
		}
	}
}

func testOutcomeFilter(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	batch := []*journal.Record{
		record(0, "200", "ok", 200),
		record(1, "400", "bad_request", 400),
		record(2, "x", "unknown", 404),
		record(3, "y", "unknown", 404),
	}
	if err := s.Append(ctx, batch); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	outcome := "unknown"
	records, total, err := s.List(ctx, journal.Filter{Outcome: &outcome})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("Expected 2 unknown records, got %d (total %d)", len(records), total)
	}
	for _, rec := range records {
		if rec.Outcome != "unknown" {
			t.Errorf("Unexpected outcome %s", rec.Outcome)
		}
	}

	missing := "server_error"
	records, total, err = s.List(ctx, journal.Filter{Outcome: &missing})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 0 || len(records) != 0 {
		t.Errorf("Expected no server_error records, got %d (total %d)", len(records), total)
	}
}

func testCursorPagination(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	var batch []*journal.Record
	for i := 0; i < 5; i++ {
		batch = append(batch, record(i, "200", "ok", 200))
	}
	if err := s.Append(ctx, batch); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	page, total, err := s.List(ctx, journal.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(page) != 2 || page[0].ID != "rec_0004" || page[1].ID != "rec_0003" {
		t.Fatalf("Unexpected first page: %v", ids(page))
	}

	cursor := journal.Cursor{CreatedAt: page[1].CreatedAt, ID: page[1].ID}
	page, _, err = s.List(ctx, journal.Filter{Limit: 2, Cursor: &cursor})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "rec_0002" || page[1].ID != "rec_0001" {
		t.Fatalf("Unexpected second page: %v", ids(page))
	}

	cursor = journal.Cursor{CreatedAt: page[1].CreatedAt, ID: page[1].ID}
	page, _, err = s.List(ctx, journal.Filter{Limit: 2, Cursor: &cursor})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 1 || page[0].ID != "rec_0000" {
		t.Fatalf("Unexpected last page: %v", ids(page))
	}
}

func testCursorSameTimestamp(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	// A burst recorded within one clock tick shares a timestamp; paging must
	// still visit every record exactly once.
	var batch []*journal.Record
	for i := 0; i < 5; i++ {
		rec := record(i, "200", "ok", 200)
		rec.CreatedAt = base
		batch = append(batch, rec)
	}
	batch = append(batch, record(-1000, "400", "bad_request", 400))
	if err := s.Append(ctx, batch); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var seen []string
	var cursor *journal.Cursor
	for pages := 0; pages < 10; pages++ {
		page, total, err := s.List(ctx, journal.Filter{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 6 {
			t.Errorf("Expected total 6, got %d", total)
		}
		seen = append(seen, ids(page)...)
		if len(page) < 2 {
			break
		}
		last := page[len(page)-1]
		cursor = &journal.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	want := []string{"rec_0004", "rec_0003", "rec_0002", "rec_0001", "rec_0000", "rec_-1000"}
	if len(seen) != len(want) {
		t.Fatalf("Expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], seen[i])
		}
	}

	// A cursor without an ID skips everything at its instant.
	page, _, err := s.List(ctx, journal.Filter{Cursor: &journal.Cursor{CreatedAt: base}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 1 || page[0].ID != "rec_-1000" {
		t.Errorf("Expected only the earlier record, got %v", ids(page))
	}
}

func testDefaultLimit(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	var batch []*journal.Record
	for i := 0; i < journal.DefaultListLimit+5; i++ {
		batch = append(batch, record(i, "500", "server_error", 500))
	}
	if err := s.Append(ctx, batch); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	records, total, err := s.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != journal.DefaultListLimit {
		t.Errorf("Expected %d records, got %d", journal.DefaultListLimit, len(records))
	}
	if total != journal.DefaultListLimit+5 {
		t.Errorf("Expected total %d, got %d", journal.DefaultListLimit+5, total)
	}
}

func testStats(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	batch := []*journal.Record{
		record(0, "200", "ok", 200),
		record(1, "200", "ok", 200),
		record(2, "400", "bad_request", 400),
		record(3, "500", "server_error", 500),
		record(4, "", "unknown", 404),
		record(5, "404", "unknown", 404),
		record(6, "abc", "unknown", 404),
	}
	if err := s.Append(ctx, batch[:3]); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, batch[3:]); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 7 {
		t.Errorf("Expected total 7, got %d", stats.Total)
	}

	want := map[string]int{"ok": 2, "bad_request": 1, "server_error": 1, "unknown": 3}
	for outcome, n := range want {
		if stats.ByOutcome[outcome] != n {
			t.Errorf("Outcome %s: expected %d, got %d", outcome, n, stats.ByOutcome[outcome])
		}
	}
}

func testEmptyStore(t *testing.T, s journal.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	if err := s.Append(ctx, nil); err != nil {
		t.Fatalf("Append(nil) failed: %v", err)
	}

	records, total, err := s.List(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 || total != 0 {
		t.Errorf("Expected empty list, got %d (total %d)", len(records), total)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("Expected zero total, got %d", stats.Total)
	}
}

func ids(records []*journal.Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.ID
	}
	return out
}
