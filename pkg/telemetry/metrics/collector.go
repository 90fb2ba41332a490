package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cwlens/pkg/config"
)

// Collector is the entry point for recording cwlens metrics.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	reconcile *ReconcileMetrics
	upstream  *UpstreamMetrics
	server    *ServerMetrics
}

// NewCollector creates a collector and registers every metric with
// registry. A nil registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		reconcile: NewReconcileMetrics(cfg, registry),
		upstream:  NewUpstreamMetrics(cfg, registry),
		server:    NewServerMetrics(cfg, registry),
	}
}

// Registry returns the registry metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordReconcile records one produced view.
// hasSnapshot distinguishes full views from static configuration views.
func (c *Collector) RecordReconcile(hasSnapshot bool, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.reconcile.RecordReconcile(hasSnapshot, duration)
}

// RecordDegraded records entry into a degrade state.
func (c *Collector) RecordDegraded(reason string) {
	if !c.enabled() {
		return
	}
	c.reconcile.degradedTotal.WithLabelValues(reason).Inc()
}

// SetEffectiveLimit records the resolved token ceiling and its source.
func (c *Collector) SetEffectiveLimit(tokens int, source string) {
	if !c.enabled() {
		return
	}
	c.reconcile.SetEffectiveLimit(tokens, source)
}

// SetModuleUtilization replaces the per-module utilization gauges.
func (c *Collector) SetModuleUtilization(utilization map[string]float64) {
	if !c.enabled() {
		return
	}
	c.reconcile.SetModuleUtilization(utilization)
}

// RecordSnapshot records an applied snapshot.
func (c *Collector) RecordSnapshot(outOfOrder bool) {
	if !c.enabled() {
		return
	}
	c.reconcile.snapshotsTotal.Inc()
	if outOfOrder {
		c.reconcile.outOfOrderTotal.Inc()
	}
}

// RecordStaleDiscarded records a response dropped because its session or
// profile is no longer current.
func (c *Collector) RecordStaleDiscarded(kind string) {
	if !c.enabled() {
		return
	}
	c.reconcile.staleTotal.WithLabelValues(kind).Inc()
}

// RecordUpstreamRequest records one upstream call.
func (c *Collector) RecordUpstreamRequest(endpoint string, status int, duration time.Duration, err error) {
	if !c.enabled() {
		return
	}
	c.upstream.RecordRequest(endpoint, status, duration, err)
}

// RecordCapabilityFallback records use of the fallback model limit.
func (c *Collector) RecordCapabilityFallback() {
	if !c.enabled() {
		return
	}
	c.upstream.capabilityFallbackTotal.Inc()
}

// RecordStreamReconnect records a push stream reconnect attempt.
func (c *Collector) RecordStreamReconnect() {
	if !c.enabled() {
		return
	}
	c.upstream.streamReconnectsTotal.Inc()
}

// RecordStreamMessage records a push stream message by type.
func (c *Collector) RecordStreamMessage(msgType string) {
	if !c.enabled() {
		return
	}
	c.upstream.streamMessagesTotal.WithLabelValues(msgType).Inc()
}

// RecordHTTPRequest records a Live Status server request.
func (c *Collector) RecordHTTPRequest(route string, code int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.server.RecordRequest(route, code, duration)
}

// LiveClientConnected adjusts the connected WebSocket client gauge.
func (c *Collector) LiveClientConnected(delta int) {
	if !c.enabled() {
		return
	}
	c.server.liveClients.Add(float64(delta))
}
