package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultListLimit = 100

type Record struct {
	ID         string
	Token      string
	Outcome    string
	StatusCode int
	Method     string
	RemoteIP   string
	CreatedAt  time.Time
}

type Filter struct {
	Outcome *string
	Limit   int
	Cursor  *Cursor
}

// Cursor marks the last record of a page. Lists are ordered by
// (CreatedAt, ID) descending, so the next page starts strictly below it.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type Stats struct {
	Total     int
	ByOutcome map[string]int
}

func NewRecordID() string {
	return "rec_" + uuid.New().String()
}

// EffectiveLimit returns the filter limit, or DefaultListLimit when unset.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func (c Cursor) String() string {
	return c.CreatedAt.Format(time.RFC3339Nano) + "|" + c.ID
}

// ParseCursor accepts "<rfc3339nano>|<id>" or a bare RFC3339Nano timestamp,
// which selects every record created before that instant.
func ParseCursor(s string) (Cursor, error) {
	ts, id, _ := strings.Cut(s, "|")
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	return Cursor{CreatedAt: t, ID: id}, nil
}
