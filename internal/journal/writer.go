package journal

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/time/rate"
)

type WriterConfig struct {
	MaxBatchSize     int           // commit after this many records
	BufferSize       int           // queued records before Enqueue starts dropping
	FlushInterval    time.Duration // commit partial batches at least this often
	RecordsPerSecond float64       // 0 means unlimited
}

func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxBatchSize:  500,
		BufferSize:    10000,
		FlushInterval: time.Second,
	}
}

type WriterStats struct {
	Enqueued int64
	Written  int64
	Dropped  int64
	Failed   int64
}

// Writer batches records into a Store off the request path. Enqueue never
// blocks; Run owns the store and must be running for records to be persisted.
type Writer struct {
	store   Store
	config  WriterConfig
	limiter *rate.Limiter
	recCh   chan *Record
	stopCh  chan struct{}

	// mu orders Enqueue's send against Close, so nothing lands in recCh
	// after Run has started its final drain.
	mu     sync.RWMutex
	closed bool

	enqueued atomic.Int64
	written  atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

func NewWriter(store Store, config WriterConfig) *Writer {
	defaults := DefaultWriterConfig()
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = defaults.MaxBatchSize
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = defaults.FlushInterval
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RecordsPerSecond > 0 {
		burst := int(math.Ceil(config.RecordsPerSecond))
		limiter = rate.NewLimiter(rate.Limit(config.RecordsPerSecond), burst)
	}

	return &Writer{
		store:   store,
		config:  config,
		limiter: limiter,
		recCh:   make(chan *Record, config.BufferSize),
		stopCh:  make(chan struct{}),
	}
}

// Enqueue queues a record for persistence and reports whether it was
// accepted. Records are dropped when the writer is closed, rate limited or
// its buffer is full.
func (w *Writer) Enqueue(rec *Record) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed || !w.limiter.Allow() {
		w.dropped.Add(1)
		return false
	}

	select {
	case w.recCh <- rec:
		w.enqueued.Add(1)
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Close stops accepting records. Every record accepted before Close returns
// is written (or counted as failed) by Run, which then returns.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	close(w.stopCh)
}

func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Enqueued: w.enqueued.Load(),
		Written:  w.written.Load(),
		Dropped:  w.dropped.Load(),
		Failed:   w.failed.Load(),
	}
}

// Run commits batches until Close is called or ctx is done, then flushes the
// remaining queue and returns.
func (w *Writer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	// Draining happens after cancellation, so commits must outlive ctx.
	storeCtx := context.WithoutCancel(ctx)
	batch := make([]*Record, 0, w.config.MaxBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.store.Append(storeCtx, batch); err != nil {
			w.failed.Add(int64(len(batch)))
			log.Errorw("Failed to append journal batch", "records", len(batch), "error", err)
		} else {
			w.written.Add(int64(len(batch)))
		}
		batch = make([]*Record, 0, w.config.MaxBatchSize)
	}

	add := func(rec *Record) {
		batch = append(batch, rec)
		if len(batch) >= w.config.MaxBatchSize {
			flush()
		}
	}

	for {
		select {
		case rec := <-w.recCh:
			add(rec)

		case <-ticker.C:
			flush()

		case <-ctx.Done():
			w.Close()
			w.drain(add)
			flush()
			return nil

		case <-w.stopCh:
			w.drain(add)
			flush()
			return nil
		}
	}
}

func (w *Writer) drain(add func(*Record)) {
	for {
		select {
		case rec := <-w.recCh:
			add(rec)
		default:
			return
		}
	}
}
