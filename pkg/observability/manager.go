package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/snow-ghost/geosynth/pkg/logging"
	"github.com/snow-ghost/geosynth/pkg/metrics"
	"github.com/snow-ghost/geosynth/pkg/tracing"
)

// Manager manages all observability components
type Manager struct {
	registry *prometheus.Registry
	metrics  *metrics.PrometheusMetrics
	tracer   *tracing.Tracer
	logger   *logging.Logger
}

// Config holds observability configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	JaegerEndpoint string
	LogLevel       string
	LogFormat      string
	LogOutput      string
	// RuntimeMetrics adds the Go and process collectors.
	RuntimeMetrics bool
}

// NewManager creates the logger, tracer and a private metrics registry, and
// installs the logger as the slog default.
func NewManager(config Config) (*Manager, error) {
	// Create logger
	loggerConfig := logging.DefaultConfig()
	loggerConfig.AddCaller = true
	if config.LogLevel != "" {
		loggerConfig.Level = config.LogLevel
	}
	if config.LogFormat != "" {
		loggerConfig.Format = config.LogFormat
	}
	if config.LogOutput != "" {
		loggerConfig.Output = config.LogOutput
	}
	logger, err := logging.NewLogger(loggerConfig)
	if err != nil {
		return nil, err
	}
	logger.Install()

	// Create tracer
	tracer, err := tracing.NewTracer(tracing.Config{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		JaegerEndpoint: config.JaegerEndpoint,
		Environment:    config.Environment,
	})
	if err != nil {
		return nil, err
	}

	// Create metrics
	registry := prometheus.NewRegistry()
	if config.RuntimeMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Manager{
		registry: registry,
		metrics:  metrics.NewPrometheusMetrics(registry),
		tracer:   tracer,
		logger:   logger,
	}, nil
}

// GetMetrics returns the metrics instance
func (m *Manager) GetMetrics() *metrics.PrometheusMetrics {
	return m.metrics
}

// GetTracer returns the tracer instance
func (m *Manager) GetTracer() *tracing.Tracer {
	return m.tracer
}

// GetLogger returns the logger instance
func (m *Manager) GetLogger() *logging.Logger {
	return m.logger
}

// Gatherer exposes the private registry for the /metrics handler.
func (m *Manager) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Shutdown flushes spans and buffered log entries.
func (m *Manager) Shutdown(ctx context.Context) error {
	return errors.Join(m.tracer.Shutdown(ctx), m.logger.Sync())
}
