package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Deduplicator collapses concurrent computations of the same key
type Deduplicator[V any] struct {
	group singleflight.Group
	mu    sync.Mutex
	stats DedupStats
}

// DedupStats represents deduplication statistics
type DedupStats struct {
	Requests     int64 `json:"requests"`
	Deduplicated int64 `json:"deduplicated"`
	CacheHits    int64 `json:"cache_hits"`
}

// NewDeduplicator creates a new deduplicator
func NewDeduplicator[V any]() *Deduplicator[V] {
	return &Deduplicator[V]{}
}

// Execute runs fn once per key among concurrent callers.
func (d *Deduplicator[V]) Execute(ctx context.Context, key CacheKey, fn func(context.Context) (V, error)) (V, error) {
	d.record(false, false)

	result, err, shared := d.group.Do(string(key), func() (interface{}, error) {
		return fn(ctx)
	})
	if shared {
		d.record(true, false)
	}
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := result.(V)
	return v, nil
}

// ExecuteWithCache consults cache first, then computes and stores on miss.
// Errors are never cached.
func (d *Deduplicator[V]) ExecuteWithCache(
	ctx context.Context,
	key CacheKey,
	cache *LRUCache[V],
	fn func(context.Context) (V, error),
) (V, bool, error) {
	if entry, ok := cache.Get(key); ok {
		d.record(false, true)
		return entry.Value, true, nil
	}

	v, err := d.Execute(ctx, key, func(ctx context.Context) (V, error) {
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		cache.Set(key, v, 0)
		return v, nil
	})
	return v, false, err
}

func (d *Deduplicator[V]) record(deduplicated, cacheHit bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case deduplicated:
		d.stats.Deduplicated++
	case cacheHit:
		d.stats.Requests++
		d.stats.CacheHits++
	default:
		d.stats.Requests++
	}
}

// Stats returns a snapshot of the counters
func (d *Deduplicator[V]) Stats() DedupStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stats
}

// Reset resets all statistics
func (d *Deduplicator[V]) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats = DedupStats{}
}
