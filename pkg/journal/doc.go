// Package journal records every snapshot applied to a session so the
// history of a conversation's budget can be reviewed after the fact.
//
// # Backends
//
//   - Memory: process-local, lost on exit. The default.
//   - SQLite: durable, through either the pure Go driver ("sqlite",
//     modernc.org/sqlite) or the cgo driver ("sqlite3", mattn/go-sqlite3).
//
// Both backends return entries in the order they were appended.
//
// # Retention
//
// A Scheduler prunes entries older than a maximum age on a cron schedule:
//
//	sched := journal.NewScheduler(store, cfg.Retention, logger)
//	if err := sched.Start(ctx); err != nil { ... }
//	defer sched.Stop()
//
// # Turn Order
//
// Snapshots are applied last-write-wins, so a delayed push can land after a
// newer turn. CheckTurnOrder reports every place in a session's history
// where the turn number went backwards.
package journal
