package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordRoundAndProblem(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.RecordRound("rejected")
	m.RecordRound("rejected")
	m.RecordRound("accepted")
	m.RecordProblem("triangle", false, 7, 2, 150*time.Millisecond)
	m.RecordRejection()

	assert.Equal(t, 2.0, counterValue(t, m.RoundsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, counterValue(t, m.ProblemsTotal.WithLabelValues("triangle", "false")))
	assert.Equal(t, 1.0, counterValue(t, m.BuildRejections))
}

func TestProverMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.RecordRequest("solve", "ok")
	m.RecordLatency("solve", time.Second)
	m.RecordCacheHit("model")
	m.RecordCacheMiss("model")
	m.RecordCacheMiss("model")
	m.RecordRetry("build", "status 503")
	m.RecordCircuitState("build", "open")

	assert.Equal(t, 1.0, counterValue(t, m.RequestsTotal.WithLabelValues("solve", "ok")))
	assert.Equal(t, 2.0, counterValue(t, m.CacheMissesTotal.WithLabelValues("model")))
	assert.Equal(t, 1.0, counterValue(t, m.CircuitStateChanges.WithLabelValues("build", "open")))
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics(prometheus.NewRegistry())
		NewPrometheusMetrics(prometheus.NewRegistry())
	})
}
