package journal

import (
	"context"
)

// Store persists dispatch records. Implementations must be safe for use by
// one writer and any number of concurrent readers.
type Store interface {
	Append(ctx context.Context, records []*Record) error
	List(ctx context.Context, filter Filter) ([]*Record, int, error)
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}
