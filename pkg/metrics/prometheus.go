package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// Search metrics
	RoundsTotal     *prometheus.CounterVec
	ProblemsTotal   *prometheus.CounterVec
	ProofLength     prometheus.Histogram
	AuxPoints       prometheus.Histogram
	BuildRejections prometheus.Counter
	SearchDuration  prometheus.Histogram

	// Prover call metrics
	RequestsTotal    *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Retry metrics
	RetriesTotal *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitStateChanges *prometheus.CounterVec
}

// NewPrometheusMetrics registers the metrics with reg; nil means the default
// registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &PrometheusMetrics{
		RoundsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosynth_rounds_total",
				Help: "Search rounds by outcome",
			},
			[]string{"outcome"},
		),

		ProblemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosynth_problems_total",
				Help: "Accepted problems by primitive",
			},
			[]string{"primitive", "forced"},
		),

		ProofLength: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geosynth_proof_length",
				Help:    "Proof length of accepted problems after minimization",
				Buckets: prometheus.LinearBuckets(1, 2, 12),
			},
		),

		AuxPoints: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geosynth_aux_points",
				Help:    "Auxiliary points in accepted rounds",
				Buckets: prometheus.LinearBuckets(0, 1, 8),
			},
		),

		BuildRejections: f.NewCounter(
			prometheus.CounterOpts{
				Name: "geosynth_build_rejections_total",
				Help: "Sampled clauses rejected by the model builder",
			},
		),

		SearchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geosynth_search_duration_seconds",
				Help:    "Wall time of one search",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosynth_prover_requests_total",
				Help: "Total number of prover requests",
			},
			[]string{"endpoint", "status"},
		),

		LatencyHistogram: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "geosynth_prover_latency_seconds",
				Help:    "Prover request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosynth_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),

		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosynth_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		RetriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosynth_prover_retries_total",
				Help: "Total number of retries",
			},
			[]string{"endpoint", "reason"},
		),

		CircuitStateChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosynth_circuit_state_changes_total",
				Help: "Circuit breaker transitions by target state",
			},
			[]string{"endpoint", "state"},
		),
	}
}

// RecordRound records the outcome of one search round.
func (m *PrometheusMetrics) RecordRound(outcome string) {
	m.RoundsTotal.WithLabelValues(outcome).Inc()
}

// RecordProblem records an accepted problem.
func (m *PrometheusMetrics) RecordProblem(primitive string, forced bool, proofLength, aux int, took time.Duration) {
	f := "false"
	if forced {
		f = "true"
	}
	m.ProblemsTotal.WithLabelValues(primitive, f).Inc()
	m.ProofLength.Observe(float64(proofLength))
	m.AuxPoints.Observe(float64(aux))
	m.SearchDuration.Observe(took.Seconds())
}

// RecordRejection records a clause discarded by the model builder.
func (m *PrometheusMetrics) RecordRejection() {
	m.BuildRejections.Inc()
}

// RecordRequest records a request metric
func (m *PrometheusMetrics) RecordRequest(endpoint, status string) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordLatency records a latency metric
func (m *PrometheusMetrics) RecordLatency(endpoint string, duration time.Duration) {
	m.LatencyHistogram.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit
func (m *PrometheusMetrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *PrometheusMetrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordRetry records a retry
func (m *PrometheusMetrics) RecordRetry(endpoint, reason string) {
	m.RetriesTotal.WithLabelValues(endpoint, reason).Inc()
}

// RecordCircuitState records a circuit breaker transition
func (m *PrometheusMetrics) RecordCircuitState(endpoint, state string) {
	m.CircuitStateChanges.WithLabelValues(endpoint, state).Inc()
}
