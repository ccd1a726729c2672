package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Name        string                             `json:"name"`
	MaxRequests uint32                             `json:"max_requests"`
	Interval    time.Duration                      `json:"interval"`
	Timeout     time.Duration                      `json:"timeout"`
	ReadyToTrip func(counts gobreaker.Counts) bool `json:"-"`
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open if failure rate is >= 50% over at least 5 requests
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
}

// StateChangeFunc observes breaker transitions.
type StateChangeFunc func(endpoint, from, to string)

// CircuitBreakerManager manages one circuit breaker per endpoint
type CircuitBreakerManager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	onChange StateChangeFunc
	mu       sync.Mutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager. onChange
// may be nil.
func NewCircuitBreakerManager(onChange StateChangeFunc) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		onChange: onChange,
	}
}

// GetBreaker returns or creates the circuit breaker for an endpoint
func (cbm *CircuitBreakerManager) GetBreaker(ep Endpoint) *gobreaker.CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[ep.Name]; exists {
		return breaker
	}

	cfg := DefaultCircuitBreakerConfig("prover-" + ep.Name)
	onChange := cbm.onChange
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		ReadyToTrip:  cfg.ReadyToTrip,
		IsSuccessful: isHealthy,
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			if onChange != nil {
				onChange(ep.Name, from.String(), to.String())
			}
		},
	})
	cbm.breakers[ep.Name] = breaker

	return breaker
}

// isHealthy treats client errors and cancellations as successes.
func isHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < 500 && httpErr.StatusCode != 429
	}
	return false
}

// Execute executes a function through the circuit breaker
func (cbm *CircuitBreakerManager) Execute(ctx context.Context, ep Endpoint, fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbm.GetBreaker(ep).Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("circuit breaker execution failed: %w", err)
	}
	return result, nil
}

// GetState returns the current state of a circuit breaker
func (cbm *CircuitBreakerManager) GetState(ep Endpoint) gobreaker.State {
	return cbm.GetBreaker(ep).State()
}

// GetStats returns circuit breaker statistics for an endpoint
func (cbm *CircuitBreakerManager) GetStats(ep Endpoint) map[string]interface{} {
	breaker := cbm.GetBreaker(ep)
	counts := breaker.Counts()

	return map[string]interface{}{
		"endpoint":             ep.Name,
		"state":                breaker.State().String(),
		"requests":             counts.Requests,
		"total_success":        counts.TotalSuccesses,
		"total_failures":       counts.TotalFailures,
		"consecutive_success":  counts.ConsecutiveSuccesses,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

// Reset resets the circuit breaker for an endpoint
func (cbm *CircuitBreakerManager) Reset(name string) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	delete(cbm.breakers, name)
}

// ResetAll resets all circuit breakers
func (cbm *CircuitBreakerManager) ResetAll() {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	cbm.breakers = make(map[string]*gobreaker.CircuitBreaker)
}

// IsOpen checks if the circuit breaker is open for an endpoint
func (cbm *CircuitBreakerManager) IsOpen(ep Endpoint) bool {
	return cbm.GetState(ep) == gobreaker.StateOpen
}

// IsClosed checks if the circuit breaker is closed for an endpoint
func (cbm *CircuitBreakerManager) IsClosed(ep Endpoint) bool {
	return cbm.GetState(ep) == gobreaker.StateClosed
}
