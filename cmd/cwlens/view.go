package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/cwlens/pkg/catalog"
	"mercator-hq/cwlens/pkg/cli"
	"mercator-hq/cwlens/pkg/controller"
	"mercator-hq/cwlens/pkg/limit"
	"mercator-hq/cwlens/pkg/reconcile"
	"mercator-hq/cwlens/pkg/window"
)

var viewFlags struct {
	window       string
	snapshot     string
	modelLimit   int
	profileLimit int
	sessionLimit int
	server       string
	timeout      time.Duration
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show a reconciled budget view",
	Long: `Show a reconciled budget view.

With --window the view is computed offline from a window type file and an
optional snapshot file. Without it the current status is fetched from a
running cwlens instance.

Examples:
  # Configured budget only
  cwlens view --window catalog/standard.yaml

  # Reconcile one turn with a session override
  cwlens view --window standard.yaml --snapshot turn7.json --session-limit 50000

  # Ask the local instance
  cwlens view --server http://127.0.0.1:8090 -o json`,
	Args: cobra.NoArgs,
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)

	viewCmd.Flags().StringVar(&viewFlags.window, "window", "", "window type YAML file")
	viewCmd.Flags().StringVar(&viewFlags.snapshot, "snapshot", "", "snapshot JSON file")
	viewCmd.Flags().IntVar(&viewFlags.modelLimit, "model-limit", 0, "model context limit in tokens (default from config)")
	viewCmd.Flags().IntVar(&viewFlags.profileLimit, "profile-limit", 0, "profile context limit override in tokens")
	viewCmd.Flags().IntVar(&viewFlags.sessionLimit, "session-limit", 0, "session context limit override in tokens")
	viewCmd.Flags().StringVar(&viewFlags.server, "server", "", "base URL of a running instance (default from server.listen_address)")
	viewCmd.Flags().DurationVar(&viewFlags.timeout, "timeout", 5*time.Second, "request timeout for --server")
}

func runView(cmd *cobra.Command, args []string) error {
	if viewFlags.window == "" {
		if viewFlags.snapshot != "" {
			return cli.NewConfigError("snapshot", "--snapshot requires --window")
		}
		st, err := fetchStatus(cmd)
		if err != nil {
			return cli.NewCommandError("view", err)
		}
		return printResult(cmd.OutOrStdout(), st)
	}

	view, err := offlineView()
	if err != nil {
		return cli.NewCommandError("view", err)
	}
	return printResult(cmd.OutOrStdout(), view)
}

func offlineView() (*reconcile.View, error) {
	wt, err := catalog.LoadWindowType(viewFlags.window)
	if err != nil {
		return nil, err
	}

	in := reconcile.Input{
		Window:     wt,
		ModelLimit: viewFlags.modelLimit,
	}
	if in.ModelLimit <= 0 {
		in.ModelLimit = limit.DefaultModelLimit
		if cfg, err := loadConfig(); err == nil {
			in.ModelLimit = cfg.Limits.FallbackModelLimit
		}
	}
	if viewFlags.profileLimit > 0 {
		n := viewFlags.profileLimit
		in.Profile = &window.Profile{ContextLimitOverride: &n}
	}
	if viewFlags.sessionLimit > 0 {
		n := viewFlags.sessionLimit
		in.SessionOverride = &n
	}

	if viewFlags.snapshot != "" {
		snap, err := readSnapshot(viewFlags.snapshot)
		if err != nil {
			return nil, err
		}
		in.Snapshot = snap
	}
	return reconcile.Reconcile(in), nil
}

func readSnapshot(path string) (*window.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap window.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}

func fetchStatus(cmd *cobra.Command) (*controller.Status, error) {
	base := viewFlags.server
	if base == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		base = "http://" + cfg.Server.ListenAddress
	}

	client := &http.Client{Timeout: viewFlags.timeout}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(base, "/")+"/v1/view", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s returned %d: %s", base, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var st controller.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}
	return &st, nil
}
