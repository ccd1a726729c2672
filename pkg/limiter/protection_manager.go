package limiter

import (
	"context"
	"fmt"
	"sort"
)

// Hooks observe the protection layer. Any field may be nil.
type Hooks struct {
	OnRetry       func(endpoint string, attempt int, err error)
	OnStateChange StateChangeFunc
}

// ProtectionManager integrates rate limiting, retries, and circuit breaker
type ProtectionManager struct {
	rateLimiter    *RateLimiter
	retryConfig    RetryConfig
	circuitBreaker *CircuitBreakerManager
	endpoints      map[string]Endpoint
	hooks          Hooks
}

// NewProtectionManager protects the given endpoints. A nil retry config uses
// DefaultRetryConfig.
func NewProtectionManager(endpoints []Endpoint, retry *RetryConfig, hooks Hooks) *ProtectionManager {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	pm := &ProtectionManager{
		rateLimiter:    NewRateLimiter(),
		retryConfig:    *retry,
		circuitBreaker: NewCircuitBreakerManager(hooks.OnStateChange),
		endpoints:      make(map[string]Endpoint, len(endpoints)),
		hooks:          hooks,
	}
	for _, ep := range endpoints {
		pm.endpoints[ep.Name] = ep
	}
	return pm
}

// ExecuteWithProtection executes a function with all protection mechanisms
func (pm *ProtectionManager) ExecuteWithProtection(
	ctx context.Context,
	endpoint string,
	fn func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	ep, ok := pm.endpoints[endpoint]
	if !ok {
		return nil, fmt.Errorf("endpoint %s is not configured", endpoint)
	}

	if pm.circuitBreaker.IsOpen(ep) {
		return nil, fmt.Errorf("circuit breaker is open for endpoint %s", endpoint)
	}

	if err := pm.rateLimiter.Wait(ctx, ep); err != nil {
		return nil, fmt.Errorf("rate limiting failed: %w", err)
	}

	retry := pm.retryConfig
	if pm.hooks.OnRetry != nil {
		retry.OnRetry = func(attempt int, err error) { pm.hooks.OnRetry(endpoint, attempt, err) }
	}
	rm := NewRetryManager(&retry)

	result, err := pm.circuitBreaker.Execute(ctx, ep, func() (interface{}, error) {
		return rm.Execute(ctx, fn)
	})
	if err != nil {
		return nil, fmt.Errorf("protected execution failed: %w", err)
	}
	return result, nil
}

// GetStats returns statistics for an endpoint
func (pm *ProtectionManager) GetStats(endpoint string) map[string]interface{} {
	ep, ok := pm.endpoints[endpoint]
	if !ok {
		return map[string]interface{}{
			"error": "endpoint not found",
		}
	}

	return map[string]interface{}{
		"endpoint":        endpoint,
		"rate_limiter":    pm.rateLimiter.GetStats(ep),
		"circuit_breaker": pm.circuitBreaker.GetStats(ep),
		"retry_config": map[string]interface{}{
			"max_retries":      pm.retryConfig.MaxRetries,
			"base_delay":       pm.retryConfig.BaseDelay.String(),
			"max_delay":        pm.retryConfig.MaxDelay.String(),
			"backoff_factor":   pm.retryConfig.BackoffFactor,
			"jitter":           pm.retryConfig.Jitter,
			"retryable_errors": pm.retryConfig.RetryableErrors,
		},
	}
}

// GetAllStats returns statistics for all endpoints
func (pm *ProtectionManager) GetAllStats() map[string]interface{} {
	allStats := make(map[string]interface{}, len(pm.endpoints))
	for name := range pm.endpoints {
		allStats[name] = pm.GetStats(name)
	}
	return allStats
}

// Reset resets all protection mechanisms for one endpoint
func (pm *ProtectionManager) Reset(endpoint string) {
	pm.rateLimiter.Reset(endpoint)
	pm.circuitBreaker.Reset(endpoint)
}

// ResetAll resets all protection mechanisms
func (pm *ProtectionManager) ResetAll() {
	pm.rateLimiter.ResetAll()
	pm.circuitBreaker.ResetAll()
}

// IsAvailable reports whether the endpoint's circuit is not open.
func (pm *ProtectionManager) IsAvailable(endpoint string) bool {
	ep, ok := pm.endpoints[endpoint]
	if !ok {
		return false
	}
	return !pm.circuitBreaker.IsOpen(ep)
}

// Endpoints returns the configured endpoint names, sorted.
func (pm *ProtectionManager) Endpoints() []string {
	names := make([]string, 0, len(pm.endpoints))
	for name := range pm.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
