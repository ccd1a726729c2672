package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter()
	ep := Endpoint{Name: "solve", MaxRPM: 100}

	require.NotNil(t, rl.GetLimiter(ep))
	assert.True(t, rl.Allow(ep), "first request should be allowed")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, rl.Wait(ctx, ep))

	stats := rl.GetStats(ep)
	assert.Equal(t, "solve", stats["endpoint"])
	assert.Equal(t, 10, stats["burst"])
}

func TestRateLimiterLowLimit(t *testing.T) {
	rl := NewRateLimiter()
	ep := Endpoint{Name: "build", MaxRPM: 10}

	allowed := 0
	for i := 0; i < 20; i++ {
		if rl.Allow(ep) {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRateLimiterDefaultLimit(t *testing.T) {
	rl := NewRateLimiter()
	ep := Endpoint{Name: "proof"}
	assert.Equal(t, 60, rl.GetLimiter(ep).Burst())
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter()
	ep := Endpoint{Name: "build", MaxRPM: 10}

	before := rl.GetLimiter(ep)
	rl.Reset("build")
	assert.NotSame(t, before, rl.GetLimiter(ep))
}
