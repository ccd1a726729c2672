package limiter

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter manages rate limiting per endpoint
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetLimiter returns or creates the limiter for an endpoint
func (rl *RateLimiter) GetLimiter(ep Endpoint) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ep.Name]; exists {
		return limiter
	}

	rpm := ep.rpm()
	burst := int(rpm / 10.0) // Burst = 1/10 of limit
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rpm/60.0), burst)
	rl.limiters[ep.Name] = limiter

	return limiter
}

// Wait waits for the rate limiter to allow the request
func (rl *RateLimiter) Wait(ctx context.Context, ep Endpoint) error {
	if err := rl.GetLimiter(ep).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// Allow checks if the request is allowed without waiting
func (rl *RateLimiter) Allow(ep Endpoint) bool {
	return rl.GetLimiter(ep).Allow()
}

// GetStats returns rate limiter statistics for an endpoint
func (rl *RateLimiter) GetStats(ep Endpoint) map[string]interface{} {
	limiter := rl.GetLimiter(ep)

	return map[string]interface{}{
		"endpoint": ep.Name,
		"limit":    limiter.Limit(),
		"burst":    limiter.Burst(),
		"tokens":   limiter.Tokens(),
		"max_rpm":  ep.rpm(),
	}
}

// Reset resets the rate limiter for an endpoint
func (rl *RateLimiter) Reset(name string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.limiters, name)
}

// ResetAll resets all rate limiters
func (rl *RateLimiter) ResetAll() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.limiters = make(map[string]*rate.Limiter)
}
