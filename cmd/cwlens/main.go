// cwlens reconciles a session's configured context-window budget with the
// budget snapshots the planner reports each turn.
//
// Usage:
//
//	# Observe a session and serve the Live Status API
//	cwlens run --config cwlens.yaml --session s-123
//
//	# Reconcile files offline
//	cwlens view --window standard.yaml --snapshot turn7.json
//
//	# Show the view of a running instance
//	cwlens view
//
//	# Check window type files
//	cwlens validate ./catalog
//
//	# Inspect the snapshot journal
//	cwlens history s-123
package main

import "os"

func main() {
	os.Exit(Execute())
}
