// Package deduper tracks detail URLs the Job Runner has already extracted,
// so the same business isn't re-scraped when a location's search results
// overlap with a neighboring city or an earlier phase (spec.md §4.7's
// population-phased traversal can surface the same listing from more than
// one city query). Grounded on the teacher's own deduper package: the
// AddIfNotExists/Close contract here matches what its sqliteDeduper already
// implements, generalized from cross-job URL dedup to this module's
// per-run detail-URL dedup.
package deduper

import (
	"context"
	"sync"
)

// Deduper reports whether a key has been seen before, recording it as seen
// either way.
type Deduper interface {
	// AddIfNotExists returns true the first time key is seen, false on
	// every subsequent call.
	AddIfNotExists(ctx context.Context, key string) bool
	Close() error
}

// memoryDeduper is the default in-process Deduper: cheap, job-scoped, no
// disk footprint. Used for the Job Runner's within-run detail-URL dedup;
// NewPersistentSQLite remains available for a cross-job, disk-backed dedup
// window if a deployment wants one.
type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New returns an empty in-memory Deduper.
func New() Deduper {
	return &memoryDeduper{seen: make(map[string]struct{})}
}

func (d *memoryDeduper) AddIfNotExists(_ context.Context, key string) bool {
	if key == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

func (d *memoryDeduper) Close() error {
	return nil
}
