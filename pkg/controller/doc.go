// Package controller drives the session cache from the outside world.
//
// The controller is the only component that talks to configuration and
// limit sources. It turns their failures into degrade states instead of
// errors, discards responses that arrive after the session or profile they
// were requested for has been replaced, applies pushed snapshots, and
// publishes a freshly reconciled Status to subscribers after every change.
//
// # Loading
//
// A session switch or profile selection fetches the profile list first,
// then the bound window type, the model capability, and the session
// override concurrently. Each read fails independently:
//
//   - no profiles, or none bound to a window type: Guidance status
//   - window type unavailable: Guidance status
//   - model capability unavailable: fallback limit, logged and counted
//   - session override unavailable: treated as no override
//
// # Staleness
//
// Every load carries the session.Tag current when it started. If the cache
// has moved on by the time the responses are in, the results are dropped
// and ErrStale is returned.
package controller
