// Package server provides the Live Status HTTP server.
//
// The server publishes the reconciled view of the active session and
// accepts the few control requests an operator or a planner needs to drive
// it. It holds no state of its own: every request is delegated to a
// Backend, normally a *controller.Controller.
//
// # Basic Usage
//
//	srv := server.New(&cfg.Server, ctrl, server.Deps{
//	    Logger:  tel.Slog(),
//	    Metrics: tel.Metrics(),
//	    Health:  tel.Health(),
//	    Tracer:  tel.Tracer(),
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled, then shuts down gracefully within
// the configured shutdown timeout.
//
// # Routes
//
//	GET  /health              liveness
//	GET  /ready               readiness (503 while the session has guidance)
//	GET  /version             build information
//	GET  /metrics             Prometheus metrics (path configurable)
//	GET  /v1/view             current status and view as JSON
//	GET  /v1/live             WebSocket; one status message per change
//	POST /v1/session          {"session_id": "...", "profile_id": "..."}
//	POST /v1/session/limit    {"context_limit": 50000} or {"context_limit": null}
//	POST /v1/snapshots        {"session_id": "...", "snapshot": {...}}
//
// # Middleware
//
// Requests pass through, outermost first: panic recovery, request ID
// (X-Request-ID, generated when absent), tracing, and access logging with
// request metrics.
package server
