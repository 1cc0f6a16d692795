// Package dedupe guards operations that must not run twice at once for the
// same key, such as two saves of one view.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records keys with an operation in flight.
type Deduper interface {
	// SeenAndRecord atomically checks whether key is in flight and records
	// it if not. Returns true if the caller must back off.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases key once its operation has finished.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a mutex-guarded set.
// With maxSize > 0 new keys are refused once maxSize keys are in flight;
// keys are never evicted, so a recorded key stays blocked until released.
type inMemoryDeduper struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	maxSize  int
	size     atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord reports whether key is already in flight, recording it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.inFlight[key]; exists {
		return true
	}
	if d.maxSize > 0 && len(d.inFlight) >= d.maxSize {
		return true
	}
	d.inFlight[key] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord releases key. Unknown keys are ignored.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.inFlight[key]; exists {
		delete(d.inFlight, key)
		d.size.Add(-1)
	}
}

// Size returns the number of keys in flight.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
