package pebbledb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/georgeshao/canned-status/internal/journal"
)

// Key prefixes
const (
	prefixRec   = "rec:"   // rec:{id} → record JSON
	prefixTs    = "ts:"    // ts:{ts}:{id} → empty
	prefixOc    = "oc:"    // oc:{outcome}:{ts}:{id} → empty
	prefixCount = "count:" // count:{outcome} → int64
)

// PebbleStore keeps records in a pebble LSM. Record IDs are assumed unique;
// appending an existing ID overwrites it and skews the counters.
type PebbleStore struct {
	db *pebble.DB
}

type recordData struct {
	ID         string `json:"id"`
	Token      string `json:"token"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code"`
	Method     string `json:"method,omitempty"`
	RemoteIP   string `json:"remote_ip,omitempty"`
	CreatedAt  int64  `json:"created_at"` // Unix nano
}

func New(dbPath string) (*PebbleStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := &pebble.Options{
		Merger: &pebble.Merger{
			Name: "int64_add",
			Merge: func(key, value []byte) (pebble.ValueMerger, error) {
				return &int64Merger{sum: decodeInt64(value)}, nil
			},
		},
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func recKey(id string) []byte {
	return []byte(prefixRec + id)
}

func tsKey(ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixTs, ts, id))
}

func ocPrefix(outcome string) []byte {
	return []byte(prefixOc + outcome + ":")
}

func ocKey(outcome string, ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixOc, outcome, ts, id))
}

func countKey(outcome string) []byte {
	return []byte(prefixCount + outcome)
}

func encodeInt64(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

type int64Merger struct {
	sum int64
}

func (m *int64Merger) MergeNewer(value []byte) error {
	m.sum += decodeInt64(value)
	return nil
}

func (m *int64Merger) MergeOlder(value []byte) error {
	m.sum += decodeInt64(value)
	return nil
}

func (m *int64Merger) Finish(includesBase bool) ([]byte, io.Closer, error) {
	return encodeInt64(m.sum), nil, nil
}

func upperBound(prefix []byte) []byte {
	ub := make([]byte, len(prefix))
	copy(ub, prefix)
	for i := len(ub) - 1; i >= 0; i-- {
		if ub[i] < 0xff {
			ub[i]++
			return ub
		}
		ub[i] = 0
	}
	return append(ub, 0)
}

func (s *PebbleStore) Append(ctx context.Context, records []*journal.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, rec := range records {
		data := recordData{
			ID:         rec.ID,
			Token:      rec.Token,
			Outcome:    rec.Outcome,
			StatusCode: rec.StatusCode,
			Method:     rec.Method,
			RemoteIP:   rec.RemoteIP,
			CreatedAt:  rec.CreatedAt.UnixNano(),
		}

		value, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		if err := batch.Set(recKey(rec.ID), value, nil); err != nil {
			return fmt.Errorf("failed to stage record: %w", err)
		}
		if err := batch.Set(tsKey(data.CreatedAt, rec.ID), nil, nil); err != nil {
			return fmt.Errorf("failed to stage time index: %w", err)
		}
		if err := batch.Set(ocKey(rec.Outcome, data.CreatedAt, rec.ID), nil, nil); err != nil {
			return fmt.Errorf("failed to stage outcome index: %w", err)
		}
		if err := batch.Merge(countKey(rec.Outcome), encodeInt64(1), nil); err != nil {
			return fmt.Errorf("failed to stage counter: %w", err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

func (s *PebbleStore) List(ctx context.Context, filter journal.Filter) ([]*journal.Record, int, error) {
	limit := filter.EffectiveLimit()

	prefix := []byte(prefixTs)
	if filter.Outcome != nil {
		prefix = ocPrefix(*filter.Outcome)
	}

	upper := upperBound(prefix)
	if filter.Cursor != nil {
		// Index keys sort by zero-padded timestamp then ID, so this exclusive
		// bound keeps exactly the keys below the cursor. An empty ID yields
		// "{ts}:", which excludes every record at the cursor's instant.
		upper = []byte(fmt.Sprintf("%s%020d:%s", prefix, filter.Cursor.CreatedAt.UnixNano(), filter.Cursor.ID))
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upper,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var records []*journal.Record
	for iter.Last(); iter.Valid() && len(records) < limit; iter.Prev() {
		id := extractIDFromIndexKey(iter.Key())
		if id == "" {
			continue
		}
		rec, err := s.getRecord(id)
		if err != nil {
			return nil, 0, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate records: %w", err)
	}

	var total int
	if filter.Outcome != nil {
		total = int(s.getCount(*filter.Outcome))
	} else {
		stats, err := s.Stats(ctx)
		if err != nil {
			return nil, 0, err
		}
		total = stats.Total
	}

	return records, total, nil
}

func (s *PebbleStore) Stats(ctx context.Context) (*journal.Stats, error) {
	prefix := []byte(prefixCount)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	stats := &journal.Stats{ByOutcome: make(map[string]int)}
	for iter.First(); iter.Valid(); iter.Next() {
		outcome := strings.TrimPrefix(string(iter.Key()), prefixCount)
		count := int(decodeInt64(iter.Value()))
		stats.ByOutcome[outcome] = count
		stats.Total += count
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}

	return stats, nil
}

func (s *PebbleStore) getCount(outcome string) int64 {
	value, closer, err := s.db.Get(countKey(outcome))
	if err != nil {
		return 0
	}
	defer closer.Close()
	return decodeInt64(value)
}

func (s *PebbleStore) getRecord(id string) (*journal.Record, error) {
	value, closer, err := s.db.Get(recKey(id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	defer closer.Close()

	var data recordData
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &journal.Record{
		ID:         data.ID,
		Token:      data.Token,
		Outcome:    data.Outcome,
		StatusCode: data.StatusCode,
		Method:     data.Method,
		RemoteIP:   data.RemoteIP,
		CreatedAt:  time.Unix(0, data.CreatedAt),
	}, nil
}

// extractIDFromIndexKey returns the record ID from ts:{ts}:{id} or
// oc:{outcome}:{ts}:{id}. IDs never contain ':'.
func extractIDFromIndexKey(key []byte) string {
	k := string(key)
	i := strings.LastIndexByte(k, ':')
	if i < 0 || i == len(k)-1 {
		return ""
	}
	return k[i+1:]
}
