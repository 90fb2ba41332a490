package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/cwlens/pkg/cli"
	"mercator-hq/cwlens/pkg/journal"
)

var historyFlags struct {
	limit int
	since time.Duration
	prune bool
}

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Inspect the snapshot journal",
	Long: `Inspect the snapshot journal written by cwlens run.

Without arguments the recorded sessions are listed, most recent first. With
a session id the session's snapshots are listed in the order they were
applied, and any turn that went backwards is reported.

Examples:
  # List sessions
  cwlens history

  # Last 20 snapshots of a session
  cwlens history s-123 --limit 20

  # Apply the retention policy now
  cwlens history --prune`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 0, "show only the most recent N entries")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "show only entries recorded within this duration")
	historyCmd.Flags().BoolVar(&historyFlags.prune, "prune", false, "delete entries older than journal.retention.max_age")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Backend == "memory" {
		return cli.NewConfigError("journal.backend", "the memory journal does not outlive cwlens run; use the sqlite backend")
	}

	store, err := journal.Open(cfg.Journal, discardLogger())
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyFlags.prune {
		if cfg.Journal.Retention.MaxAge <= 0 {
			return cli.NewConfigError("journal.retention.max_age", "retention is disabled")
		}
		removed := journal.NewScheduler(store, cfg.Journal.Retention, discardLogger()).RunOnce(ctx)
		fmt.Fprintf(out, "✓ Pruned %d entries older than %s\n", removed, cfg.Journal.Retention.MaxAge)
		return nil
	}

	if len(args) == 0 {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return cli.NewCommandError("history", err)
		}
		return printResult(out, sessions)
	}

	q := journal.Query{SessionID: args[0], Limit: historyFlags.limit}
	if historyFlags.since > 0 {
		q.Since = time.Now().Add(-historyFlags.since)
	}
	entries, err := store.List(ctx, q)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	return printResult(out, &cli.HistoryReport{
		SessionID:   args[0],
		Entries:     entries,
		OrderIssues: journal.CheckTurnOrder(entries),
	})
}

func discardLogger() *slog.Logger {
	if verbose {
		return slog.Default()
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
