package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/telemetry/health"
	"mercator-hq/cwlens/pkg/telemetry/logging"
	"mercator-hq/cwlens/pkg/telemetry/metrics"
	"mercator-hq/cwlens/pkg/telemetry/tracing"
)

// Telemetry holds the process-wide observability components.
type Telemetry struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// Option customizes New.
type Option func(*options)

type options struct {
	logWriter io.Writer
	registry  *prometheus.Registry
}

// WithLogWriter sends log output to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// WithRegistry registers metrics with registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// New builds logging, metrics, tracing, and health from cfg.
// Metrics are nil when disabled.
func New(cfg *config.TelemetryConfig, opts ...Option) (*Telemetry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logCfg := logging.FromConfig(cfg.Logging)
	logCfg.Writer = o.logWriter
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	t := &Telemetry{
		logger: logger,
		tracer: tracer,
		health: health.New(0),
	}
	if cfg.Metrics.Enabled {
		t.metrics = metrics.NewCollector(&cfg.Metrics, o.registry)
	}

	return t, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *logging.Logger { return t.logger }

// Slog returns the *slog.Logger handed to components.
func (t *Telemetry) Slog() *slog.Logger { return t.logger.Slog() }

// Metrics returns the collector, or nil when metrics are disabled.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
