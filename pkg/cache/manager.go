package cache

import (
	"context"
	"fmt"
)

// Observer is notified of hits and misses; the metrics package satisfies it.
type Observer interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// CacheManager is an explicit key→value store with singleflight fill and
// explicit invalidation.
type CacheManager[V any] struct {
	name         string
	cache        *LRUCache[V]
	deduplicator *Deduplicator[V]
	config       CacheConfig
	observer     Observer
}

// NewCacheManager creates a named cache manager. observer may be nil.
func NewCacheManager[V any](name string, config *CacheConfig, observer Observer) (*CacheManager[V], error) {
	if config == nil {
		config = DefaultCacheConfig()
	}
	cache, err := NewLRUCache[V](config)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache %s: %w", name, err)
	}

	return &CacheManager[V]{
		name:         name,
		cache:        cache,
		deduplicator: NewDeduplicator[V](),
		config:       *config,
		observer:     observer,
	}, nil
}

// GetOrCompute returns the cached value for key or computes and stores it.
// The boolean reports a cache hit.
func (cm *CacheManager[V]) GetOrCompute(ctx context.Context, key CacheKey, fn func(context.Context) (V, error)) (V, bool, error) {
	v, hit, err := cm.deduplicator.ExecuteWithCache(ctx, key, cm.cache, fn)
	if cm.observer != nil {
		if hit {
			cm.observer.RecordCacheHit(cm.name)
		} else {
			cm.observer.RecordCacheMiss(cm.name)
		}
	}
	return v, hit, err
}

// Get retrieves a value from the cache
func (cm *CacheManager[V]) Get(key CacheKey) (V, bool) {
	entry, ok := cm.cache.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores a value in the cache
func (cm *CacheManager[V]) Set(key CacheKey, value V) {
	cm.cache.Set(key, value, 0)
}

// Invalidate drops one key and reports whether it was present
func (cm *CacheManager[V]) Invalidate(key CacheKey) bool {
	return cm.cache.Delete(key)
}

// Purge drops every entry and returns how many were dropped
func (cm *CacheManager[V]) Purge() int {
	n := cm.cache.Len()
	cm.cache.Clear()
	cm.deduplicator.Reset()
	return n
}

// Len returns the current cache size
func (cm *CacheManager[V]) Len() int {
	return cm.cache.Len()
}

// Stats returns comprehensive cache statistics
func (cm *CacheManager[V]) Stats() map[string]interface{} {
	cacheStats := cm.cache.Stats()
	dedupStats := cm.deduplicator.Stats()

	var dedupRate float64
	if dedupStats.Requests > 0 {
		dedupRate = float64(dedupStats.Deduplicated) / float64(dedupStats.Requests)
	}

	return map[string]interface{}{
		"name": cm.name,
		"cache": map[string]interface{}{
			"hits":          cacheStats.Hits,
			"misses":        cacheStats.Misses,
			"size":          cacheStats.Size,
			"max_size":      cacheStats.MaxSize,
			"hit_rate":      cacheStats.HitRate,
			"evictions":     cacheStats.Evictions,
			"expirations":   cacheStats.Expirations,
			"invalidations": cacheStats.Invalidations,
		},
		"deduplication": map[string]interface{}{
			"requests":     dedupStats.Requests,
			"deduplicated": dedupStats.Deduplicated,
			"cache_hits":   dedupStats.CacheHits,
			"dedup_rate":   dedupRate,
		},
		"config": map[string]interface{}{
			"max_size":         cm.config.MaxSize,
			"default_ttl":      cm.config.DefaultTTL.String(),
			"cleanup_interval": cm.config.CleanupInterval.String(),
		},
	}
}

// Close closes the cache manager and cleans up resources
func (cm *CacheManager[V]) Close() {
	cm.cache.Close()
}
