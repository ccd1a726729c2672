package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtectionManagerExecute(t *testing.T) {
	var retries []string
	pm := NewProtectionManager(
		[]Endpoint{{Name: "build", MaxRPM: 600}, {Name: "solve", MaxRPM: 600}},
		fastRetry(2),
		Hooks{OnRetry: func(endpoint string, attempt int, err error) { retries = append(retries, endpoint) }},
	)

	calls := 0
	res, err := pm.ExecuteWithProtection(context.Background(), "solve", func(ctx context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, NewHTTPError(502, "Bad gateway", "")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res)
	assert.Equal(t, []string{"solve"}, retries)
	assert.Equal(t, []string{"build", "solve"}, pm.Endpoints())
}

func TestProtectionManagerUnknownEndpoint(t *testing.T) {
	pm := NewProtectionManager(nil, nil, Hooks{})
	_, err := pm.ExecuteWithProtection(context.Background(), "nope", func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Error(t, err)
	assert.False(t, pm.IsAvailable("nope"))
	assert.Equal(t, "endpoint not found", pm.GetStats("nope")["error"])
}

func TestProtectionManagerPreservesCause(t *testing.T) {
	sentinel := errors.New("degenerate")
	pm := NewProtectionManager([]Endpoint{{Name: "build"}}, fastRetry(1), Hooks{})

	_, err := pm.ExecuteWithProtection(context.Background(), "build", func(ctx context.Context) (interface{}, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestProtectionManagerOpensCircuit(t *testing.T) {
	cfg := fastRetry(0)
	cfg.MaxDelay = time.Millisecond
	pm := NewProtectionManager([]Endpoint{{Name: "solve"}}, cfg, Hooks{})

	for i := 0; i < 5; i++ {
		_, _ = pm.ExecuteWithProtection(context.Background(), "solve", func(ctx context.Context) (interface{}, error) {
			return nil, NewHTTPError(500, "boom", "")
		})
	}
	assert.False(t, pm.IsAvailable("solve"))

	pm.ResetAll()
	assert.True(t, pm.IsAvailable("solve"))
	assert.Contains(t, pm.GetAllStats(), "solve")
}
