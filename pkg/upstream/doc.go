// Package upstream talks to the planning service that owns profiles,
// context window types, model capabilities, session overrides, and the
// per-turn budget snapshots.
//
// Client covers the request/response endpoints:
//
//	GET  /profiles
//	GET  /context-window-types/{id}
//	GET  /llm/configurations/{id}/context-limit
//	GET  /session/{id}
//	POST /sessions/{id}/context-limit
//
// Every request carries the bearer token, a fresh X-Request-ID, and W3C
// trace context. Non-2xx responses become *APIError.
//
// Stream consumes the WebSocket push channel and hands each
// context_window_snapshot message to a callback. Other message types are
// ignored. Dropped connections are re-dialled, paced by a token bucket.
package upstream
