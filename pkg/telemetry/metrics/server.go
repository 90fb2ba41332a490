package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cwlens/pkg/config"
)

// ServerMetrics tracks the Live Status server.
//
// Metrics:
//   - cwlens_http_requests_total{route,code}
//   - cwlens_http_request_duration_seconds{route}
//   - cwlens_live_clients: connected /v1/live WebSocket clients
type ServerMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	liveClients     prometheus.Gauge
}

// NewServerMetrics creates and registers server metrics.
func NewServerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ServerMetrics {
	sm := &ServerMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of Live Status HTTP requests",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of Live Status HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		liveClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "live_clients",
				Help:      "Number of connected live view WebSocket clients",
			},
		),
	}

	registry.MustRegister(sm.requestsTotal, sm.requestDuration, sm.liveClients)
	return sm
}

// RecordRequest records a served request.
func (sm *ServerMetrics) RecordRequest(route string, code int, duration time.Duration) {
	sm.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	sm.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
