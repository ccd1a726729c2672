package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxRetries int) *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = maxRetries
	cfg.BaseDelay = 10 * time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestRetryManagerSuccess(t *testing.T) {
	rm := NewRetryManager(fastRetry(2))

	attempts := 0
	result, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return "success", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 1, attempts)
}

func TestRetryManagerWithRetries(t *testing.T) {
	cfg := fastRetry(3)
	var seen []int
	cfg.OnRetry = func(attempt int, err error) { seen = append(seen, attempt) }
	rm := NewRetryManager(cfg)

	attempts := 0
	result, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, NewHTTPError(503, "Service unavailable", "")
		}
		return "success", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRetryManagerMaxRetriesExceeded(t *testing.T) {
	rm := NewRetryManager(fastRetry(2))

	attempts := 0
	result, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, NewHTTPError(429, "Rate limited", "")
	})
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryManagerNonRetryableError(t *testing.T) {
	rm := NewRetryManager(fastRetry(3))

	attempts := 0
	_, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, NewHTTPError(422, "Build failed", "")
	})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 422, httpErr.StatusCode)
	assert.Equal(t, 1, attempts)
}

func TestRetryManagerContextCancellation(t *testing.T) {
	cfg := fastRetry(3)
	cfg.BaseDelay = 100 * time.Millisecond
	rm := NewRetryManager(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	_, err := rm.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, NewHTTPError(429, "Rate limited", "")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, attempts)
}

func TestHTTPError(t *testing.T) {
	err := NewHTTPError(429, "Rate limited", "Too many requests")
	assert.Equal(t, "HTTP 429: Rate limited", err.Error())
}

func TestIsRetryableHTTPError(t *testing.T) {
	for code, want := range map[int]bool{200: false, 400: false, 422: false, 429: true, 500: true, 502: true, 503: true, 504: true} {
		assert.Equal(t, want, IsRetryableHTTPError(code), "status %d", code)
	}
}
