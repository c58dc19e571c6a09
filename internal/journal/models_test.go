package journal

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC),
		ID:        "rec_5b0a",
	}

	got, err := ParseCursor(c.String())
	if err != nil {
		t.Fatalf("ParseCursor failed: %v", err)
	}
	if !got.CreatedAt.Equal(c.CreatedAt) || got.ID != c.ID {
		t.Errorf("Cursor mismatch: got %+v, want %+v", got, c)
	}
}

func TestParseCursorBareTimestamp(t *testing.T) {
	got, err := ParseCursor("2024-05-01T12:00:00.5Z")
	if err != nil {
		t.Fatalf("ParseCursor failed: %v", err)
	}
	if got.ID != "" {
		t.Errorf("Expected empty ID, got %q", got.ID)
	}
	if got.CreatedAt.Nanosecond() != 500000000 {
		t.Errorf("Unexpected timestamp %v", got.CreatedAt)
	}
}

func TestParseCursorInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "|rec_1", "2024-05-01|rec_1"} {
		if _, err := ParseCursor(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}
