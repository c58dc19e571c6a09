package journal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memStore struct {
	mu      sync.Mutex
	records []*Record
	batches int
	err     error
}

func (s *memStore) Append(ctx context.Context, records []*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, records...)
	s.batches++
	return nil
}

func (s *memStore) List(ctx context.Context, filter Filter) ([]*Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.records...), len(s.records), nil
}

func (s *memStore) Stats(ctx context.Context) (*Stats, error) {
	return &Stats{}, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func newRecord(token string) *Record {
	return &Record{
		ID:         NewRecordID(),
		Token:      token,
		Outcome:    "unknown",
		StatusCode: 404,
		Method:     "GET",
		CreatedAt:  time.Now(),
	}
}

func runWriter(t *testing.T, w *Writer, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestWriterFlushesOnClose(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, WriterConfig{MaxBatchSize: 100, FlushInterval: time.Hour})
	done := runWriter(t, w, context.Background())

	for i := 0; i < 10; i++ {
		if !w.Enqueue(newRecord("200")) {
			t.Fatalf("Enqueue %d rejected", i)
		}
	}

	w.Close()
	waitDone(t, done)

	if got := store.count(); got != 10 {
		t.Errorf("Expected 10 records, got %d", got)
	}

	stats := w.Stats()
	if stats.Enqueued != 10 || stats.Written != 10 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Dropped != 0 || stats.Failed != 0 {
		t.Errorf("Expected no drops or failures, got %+v", stats)
	}
}

func TestWriterFlushesFullBatch(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, WriterConfig{MaxBatchSize: 3, FlushInterval: time.Hour})
	done := runWriter(t, w, context.Background())
	defer func() {
		w.Close()
		waitDone(t, done)
	}()

	for i := 0; i < 3; i++ {
		w.Enqueue(newRecord("400"))
	}

	deadline := time.Now().Add(5 * time.Second)
	for store.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Full batch not flushed, have %d records", store.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWriterFlushesOnInterval(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, WriterConfig{MaxBatchSize: 100, FlushInterval: 10 * time.Millisecond})
	done := runWriter(t, w, context.Background())
	defer func() {
		w.Close()
		waitDone(t, done)
	}()

	w.Enqueue(newRecord("500"))

	deadline := time.Now().Add(5 * time.Second)
	for store.count() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("Partial batch not flushed on interval")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWriterDropsWhenBufferFull(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, WriterConfig{BufferSize: 2})

	// Run is not started, so nothing drains the buffer.
	if !w.Enqueue(newRecord("a")) || !w.Enqueue(newRecord("b")) {
		t.Fatal("Expected first two records to be accepted")
	}
	if w.Enqueue(newRecord("c")) {
		t.Error("Expected third record to be dropped")
	}

	stats := w.Stats()
	if stats.Enqueued != 2 || stats.Dropped != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestWriterRateLimit(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, WriterConfig{RecordsPerSecond: 1})

	accepted := 0
	for i := 0; i < 5; i++ {
		if w.Enqueue(newRecord("200")) {
			accepted++
		}
	}

	if accepted != 1 {
		t.Errorf("Expected 1 record within the burst, got %d", accepted)
	}
	if got := w.Stats().Dropped; got != 4 {
		t.Errorf("Expected 4 dropped, got %d", got)
	}
}

func TestWriterRejectsAfterClose(t *testing.T) {
	w := NewWriter(&memStore{}, DefaultWriterConfig())
	w.Close()
	w.Close()

	if w.Enqueue(newRecord("200")) {
		t.Error("Expected Enqueue after Close to be rejected")
	}
}

func TestWriterDrainsOnContextCancel(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, WriterConfig{MaxBatchSize: 100, FlushInterval: time.Hour})

	for i := 0; i < 5; i++ {
		w.Enqueue(newRecord("200"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	waitDone(t, runWriter(t, w, ctx))

	if got := store.count(); got != 5 {
		t.Errorf("Expected 5 records after drain, got %d", got)
	}
	if w.Enqueue(newRecord("200")) {
		t.Error("Expected writer to be closed after context cancel")
	}
}

func TestWriterCountsFailures(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	w := NewWriter(store, WriterConfig{MaxBatchSize: 100, FlushInterval: time.Hour})
	done := runWriter(t, w, context.Background())

	w.Enqueue(newRecord("200"))
	w.Enqueue(newRecord("400"))
	w.Close()
	waitDone(t, done)

	stats := w.Stats()
	if stats.Failed != 2 {
		t.Errorf("Expected 2 failed, got %d", stats.Failed)
	}
	if stats.Written != 0 {
		t.Errorf("Expected 0 written, got %d", stats.Written)
	}
}

func TestWriterCloseDuringEnqueueKeepsStatsConsistent(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, WriterConfig{MaxBatchSize: 16, BufferSize: 1 << 16, FlushInterval: time.Hour})
	done := runWriter(t, w, context.Background())

	const producers = 8
	const perProducer = 2000

	var attempts atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				attempts.Add(1)
				w.Enqueue(newRecord("200"))
			}
		}()
	}

	// Close while producers are still sending.
	time.Sleep(time.Millisecond)
	w.Close()
	waitDone(t, done)
	wg.Wait()

	stats := w.Stats()
	if stats.Enqueued != stats.Written {
		t.Errorf("Accepted %d records but wrote %d", stats.Enqueued, stats.Written)
	}
	if got := int64(store.count()); got != stats.Written {
		t.Errorf("Store holds %d records, stats say %d", got, stats.Written)
	}
	if stats.Enqueued+stats.Dropped != attempts.Load() {
		t.Errorf("Enqueued %d + dropped %d != attempts %d", stats.Enqueued, stats.Dropped, attempts.Load())
	}
}
