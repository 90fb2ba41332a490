// Package tracing provides OpenTelemetry tracing for cwlens.
//
// Spans cover upstream fetches, push stream messages, and reconciliation.
// When tracing is disabled New returns a tracer backed by the noop
// provider, so call sites never branch on configuration:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "upstream.fetch_profiles")
//	defer span.End()
//
// Exports go to an OTLP gRPC collector. Trace context travels to the
// upstream service in W3C traceparent headers (see Inject).
package tracing
