/*
Package cli provides command-line helpers for cwlens.

Output Formatting:

Command results can be printed as text, JSON, or YAML:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, status); err != nil {
		return err
	}

The text formatter knows how to lay out reconciled views, session status,
validation issues, and journal history as aligned tables; anything else
is printed with %v.

Errors and Exit Codes:

ConfigError and CommandError carry enough context for a useful message,
and ExitCode maps an error onto the process exit status.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
