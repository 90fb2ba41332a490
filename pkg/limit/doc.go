// Package limit resolves the effective context token ceiling for a session.
//
// # Override Hierarchy
//
// Three sources can set the ceiling, from weakest to strongest:
//
//   - Model: the model's maximum context tokens (capability lookup)
//   - Profile: a per-profile override, which can only lower the model limit
//   - Session: a per-session override, clamped to [MinTokens, effective max]
//
// The resolver never fails. A missing model limit falls back to
// DefaultModelLimit and non-positive overrides are treated as absent.
//
// # Usage
//
//	lim := limit.Resolve(200000, &profileOverride, nil)
//	fmt.Println(lim.Tokens, lim.Source)
//
// # Slider Granularity
//
// User-adjustable representations step in units of StepTokens and never go
// below MinTokens, whatever the model supports. SnapToStep converts an
// arbitrary request into a value on that grid.
package limit
