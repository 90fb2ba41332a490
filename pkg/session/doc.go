// Package session holds the per-session reconciliation inputs.
//
// The Cache keeps the configuration, profile, and latest snapshot for the
// single active session and moves through three states:
//
//	empty ──LoadConfig──▶ configured ──ApplySnapshot──▶ reconciled
//	  ▲                        ▲                            │
//	  └──────ResetSession──────┴────────LoadConfig──────────┘
//
// ResetSession must run on every session switch. Skipping it would leave the
// previous session's snapshot overlaid on the new session's view.
//
// # Stale Responses
//
// Fetches for a session or profile may complete after the user has moved
// on. Callers take a Tag before issuing a fetch and check IsCurrent before
// applying the response; every ResetSession and BeginProfile invalidates
// outstanding tags.
package session
