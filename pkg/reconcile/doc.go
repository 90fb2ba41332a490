// Package reconcile merges a static context window type with a turn's
// runtime snapshot into a single View of configured versus actual budget.
//
// # Pipeline
//
// Reconcile composes four pure steps:
//
//  1. limit.Resolve picks the effective token ceiling
//  2. Normalize turns contributions into per-module percentages and bands
//  3. Attribute maps fired adjustment rules to the modules they touched
//  4. Aggregate sums reallocation events into a surplus ledger
//
// Every function in this package is total over its input domain: a zero
// available budget, an allocation of zero, usage above allocation, or
// unknown module ids all produce a View instead of a panic or error.
// Division goes through SafeDiv, which yields 0 for a zero denominator.
//
// # Determinism
//
// Reconcile has no side effects. Calling it twice with the same Input
// returns deep-equal Views, so callers may cache or diff results freely.
//
// # Missing Snapshots
//
// Before the first turn completes there is no snapshot. The View then holds
// only static configuration: per-module Usage, Status and the Totals block
// are nil, which consumers must read as "not yet available" rather than 0.
package reconcile
