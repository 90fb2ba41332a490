// Package metrics exposes cwlens Prometheus metrics.
//
// A Collector owns a registry and three metric groups:
//
//   - reconciliation: views produced, degrade states, effective limit,
//     per-module utilization, snapshot ordering, stale responses
//   - upstream: request counts and latency per endpoint, capability
//     fallbacks, push stream reconnects and messages
//   - server: Live Status requests and connected WebSocket clients
//
// All metric names carry the configured namespace (default "cwlens"), for
// example cwlens_snapshot_out_of_order_total.
//
// A nil *Collector is valid and records nothing, so components can run
// without metrics in tests.
package metrics
