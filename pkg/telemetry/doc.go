// Package telemetry bundles the observability stack for cwlens.
//
// Subpackages:
//
//   - logging: slog-based structured logging with context fields and
//     credential redaction
//   - metrics: Prometheus collector for reconciliation, upstream, and
//     server metrics
//   - tracing: OpenTelemetry tracer with OTLP gRPC export
//   - health: liveness and readiness probes
//
// New builds all four from the telemetry configuration section:
//
//	tel, err := telemetry.New(&cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
package telemetry
