// Package dedupe tracks already-ingested batch ids so replayed sync
// payloads do not double-register records.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen ids for at-most-once ingestion.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records
	// it if not. Returns true when id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id, allowing a retry after a failed apply.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of tracked ids.
	Size() int64
}

const defaultMaxSize = 50_000

// memoryDeduper is a bounded in-memory Deduper. When the cap is
// reached the oldest recorded id is evicted first. A cap of zero or
// less means unbounded.
type memoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	maxSize int
}

// Option applies a configuration option to the Deduper.
type Option func(*memoryDeduper)

// WithMaxSize bounds the number of tracked ids. Zero or negative
// disables eviction.
func WithMaxSize(n int) Option {
	return func(d *memoryDeduper) {
		d.maxSize = n
	}
}

// NewMemoryDeduper creates an in-memory Deduper with configuration
// options.
func NewMemoryDeduper(opts ...Option) Deduper {
	d := &memoryDeduper{
		seen:    make(map[string]struct{}),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *memoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return false
}

func (d *memoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *memoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
