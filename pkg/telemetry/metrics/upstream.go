package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cwlens/pkg/config"
)

// UpstreamMetrics tracks calls to the upstream planning service.
//
// Metrics:
//   - cwlens_upstream_requests_total{endpoint,status}: requests by outcome
//   - cwlens_upstream_request_duration_seconds{endpoint}: request latency
//   - cwlens_capability_fallback_total: model limit lookups that fell back to the default
//   - cwlens_stream_reconnects_total: push stream reconnect attempts
//   - cwlens_stream_messages_total{type}: push stream messages received
type UpstreamMetrics struct {
	requestsTotal           *prometheus.CounterVec
	requestDuration         *prometheus.HistogramVec
	capabilityFallbackTotal prometheus.Counter
	streamReconnectsTotal   prometheus.Counter
	streamMessagesTotal     *prometheus.CounterVec
}

// NewUpstreamMetrics creates and registers upstream metrics.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream requests",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Duration of upstream requests in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
		capabilityFallbackTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "capability_fallback_total",
				Help:      "Total number of model limit lookups that used the fallback limit",
			},
		),
		streamReconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_reconnects_total",
				Help:      "Total number of push stream reconnect attempts",
			},
		),
		streamMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_messages_total",
				Help:      "Total number of push stream messages received",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		um.requestsTotal,
		um.requestDuration,
		um.capabilityFallbackTotal,
		um.streamReconnectsTotal,
		um.streamMessagesTotal,
	)

	return um
}

// RecordRequest records a completed upstream request. Transport failures
// with no HTTP status are labelled "error".
func (um *UpstreamMetrics) RecordRequest(endpoint string, status int, duration time.Duration, err error) {
	label := strconv.Itoa(status)
	if status == 0 && err != nil {
		label = "error"
	}
	um.requestsTotal.WithLabelValues(endpoint, label).Inc()
	um.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
