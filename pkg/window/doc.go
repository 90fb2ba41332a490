// Package window defines the context window data model shared by every
// cwlens component.
//
// # Static Configuration
//
// A Type (a "context window type") names a set of modules, each with a
// target share of the input token budget, an active flag, and a priority.
// It also carries the dynamic adjustment rules the upstream planner may fire
// on any turn. Types are owned by an external configuration service and are
// read-only here.
//
// # Runtime Snapshots
//
// A Snapshot records what the planner actually did for one completed turn:
// per-module allocation and usage, fired rule conditions, condensations,
// distillations, and surplus reallocation. Snapshots are immutable and are
// superseded by the next turn's snapshot, never mutated.
//
// # Adjustment Actions
//
// Rule actions arrive on the wire as an object with one of the keys
// force_full, reduce, transfer, or condense (plus an optional to). They are
// decoded into the Action sum type so consumers switch on a closed set of
// variants instead of probing for keys:
//
//	switch a := rule.Action.(type) {
//	case window.ForceFull:
//	case window.Reduce:
//	case window.Transfer: // a.From, a.To
//	case window.Condense:
//	case window.Unrecognized:
//	}
package window
