package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cwlens/pkg/config"
)

// ReconcileMetrics tracks view production and session state.
//
// Metrics:
//   - cwlens_reconciliations_total{kind}: views produced (full or static)
//   - cwlens_reconcile_duration_seconds: time to build a view
//   - cwlens_degraded_total{reason}: entries into a degrade state
//   - cwlens_effective_limit_tokens{source}: resolved token ceiling
//   - cwlens_module_utilization_percent{module}: used/allocated per module
//   - cwlens_snapshots_applied_total: snapshots applied to the cache
//   - cwlens_snapshot_out_of_order_total: snapshots whose turn went backwards
//   - cwlens_stale_responses_discarded_total{kind}: responses for a previous session or profile
type ReconcileMetrics struct {
	reconciliationsTotal *prometheus.CounterVec
	reconcileDuration    prometheus.Histogram
	degradedTotal        *prometheus.CounterVec
	effectiveLimit       *prometheus.GaugeVec
	moduleUtilization    *prometheus.GaugeVec
	snapshotsTotal       prometheus.Counter
	outOfOrderTotal      prometheus.Counter
	staleTotal           *prometheus.CounterVec
}

// NewReconcileMetrics creates and registers reconciliation metrics.
func NewReconcileMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReconcileMetrics {
	rm := &ReconcileMetrics{
		reconciliationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reconciliations_total",
				Help:      "Total number of reconciled views produced",
			},
			[]string{"kind"},
		),
		reconcileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "reconcile_duration_seconds",
				Help:      "Time spent building a reconciled view",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8), // 10µs to ~160ms
			},
		),
		degradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "degraded_total",
				Help:      "Total number of times the view entered a degrade state",
			},
			[]string{"reason"},
		),
		effectiveLimit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "effective_limit_tokens",
				Help:      "Resolved effective context limit in tokens",
			},
			[]string{"source"},
		),
		moduleUtilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "module_utilization_percent",
				Help:      "Used tokens as a percentage of allocated tokens for the latest turn",
			},
			[]string{"module"},
		),
		snapshotsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "snapshots_applied_total",
				Help:      "Total number of budget snapshots applied",
			},
		),
		outOfOrderTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "snapshot_out_of_order_total",
				Help:      "Total number of snapshots applied with a lower turn number than the previous one",
			},
		),
		staleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stale_responses_discarded_total",
				Help:      "Total number of responses discarded because the session or profile changed",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		rm.reconciliationsTotal,
		rm.reconcileDuration,
		rm.degradedTotal,
		rm.effectiveLimit,
		rm.moduleUtilization,
		rm.snapshotsTotal,
		rm.outOfOrderTotal,
		rm.staleTotal,
	)

	return rm
}

// RecordReconcile records a produced view.
func (rm *ReconcileMetrics) RecordReconcile(hasSnapshot bool, duration time.Duration) {
	kind := "static"
	if hasSnapshot {
		kind = "full"
	}
	rm.reconciliationsTotal.WithLabelValues(kind).Inc()
	rm.reconcileDuration.Observe(duration.Seconds())
}

// SetEffectiveLimit keeps a single series labelled with the current source.
func (rm *ReconcileMetrics) SetEffectiveLimit(tokens int, source string) {
	rm.effectiveLimit.Reset()
	rm.effectiveLimit.WithLabelValues(source).Set(float64(tokens))
}

// SetModuleUtilization drops series for modules no longer present.
func (rm *ReconcileMetrics) SetModuleUtilization(utilization map[string]float64) {
	rm.moduleUtilization.Reset()
	for module, pct := range utilization {
		rm.moduleUtilization.WithLabelValues(module).Set(pct)
	}
}
