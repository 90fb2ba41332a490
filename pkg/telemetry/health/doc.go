// Package health serves liveness and readiness probes for the Live Status
// server. Components register named checks; readiness runs them
// concurrently with a per-check timeout and reports 503 if any fails.
package health
