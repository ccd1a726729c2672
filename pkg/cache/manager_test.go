package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (o *countingObserver) RecordCacheHit(string) {
	o.mu.Lock()
	o.hits++
	o.mu.Unlock()
}

func (o *countingObserver) RecordCacheMiss(string) {
	o.mu.Lock()
	o.misses++
	o.mu.Unlock()
}

func TestGetOrCompute(t *testing.T) {
	obs := &countingObserver{}
	cm, err := NewCacheManager[string]("run", &CacheConfig{MaxSize: 8}, obs)
	require.NoError(t, err)
	defer cm.Close()

	key := KeyFor("A B C = triangle A B C")
	v, hit, err := cm.GetOrCompute(context.Background(), key, func(context.Context) (string, error) {
		return "solved", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "solved", v)

	v, hit, err = cm.GetOrCompute(context.Background(), key, func(context.Context) (string, error) {
		t.Error("must not recompute on hit")
		return "", nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "solved", v)
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	cm, err := NewCacheManager[int]("run", nil, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, _, err = cm.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cm.Len())
}

func TestInvalidateAndPurge(t *testing.T) {
	cm, err := NewCacheManager[int]("model", nil, nil)
	require.NoError(t, err)

	cm.Set("a", 1)
	cm.Set("b", 2)
	assert.True(t, cm.Invalidate("a"))
	_, ok := cm.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 1, cm.Purge())
	assert.Equal(t, 0, cm.Len())

	stats := cm.Stats()
	assert.Equal(t, "model", stats["name"])
}

func TestConcurrentComputeIsDeduplicated(t *testing.T) {
	cm, err := NewCacheManager[int]("model", nil, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := cm.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	v, ok := cm.Get("k")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestNilInterfaceValue(t *testing.T) {
	cm, err := NewCacheManager[any]("model", nil, nil)
	require.NoError(t, err)
	v, _, err := cm.GetOrCompute(context.Background(), "k", func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
}
