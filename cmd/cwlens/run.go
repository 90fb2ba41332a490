package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"mercator-hq/cwlens/pkg/catalog"
	"mercator-hq/cwlens/pkg/cli"
	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/controller"
	"mercator-hq/cwlens/pkg/journal"
	"mercator-hq/cwlens/pkg/server"
	"mercator-hq/cwlens/pkg/telemetry"
	"mercator-hq/cwlens/pkg/upstream"
)

var runFlags struct {
	sessionID     string
	profileID     string
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Observe a session and serve its reconciled view",
	Long: `Start cwlens with the specified configuration.

cwlens loads profiles and window types from the upstream service (or the
local catalog), consumes the snapshot push stream, reconciles every turn,
and serves the result on the Live Status API.

Examples:
  # Start with a config file
  cwlens run --config cwlens.yaml

  # Observe a session with a specific profile
  cwlens run --session s-123 --profile planner

  # Validate config without starting
  cwlens run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.sessionID, "session", "", "session to observe at startup (overrides session.id)")
	runCmd.Flags().StringVar(&runFlags.profileID, "profile", "", "profile to load (overrides session.profile_id)")
	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override server listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runService(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.sessionID != "" {
		cfg.Session.ID = runFlags.sessionID
	}
	if runFlags.profileID != "" {
		cfg.Session.ProfileID = runFlags.profileID
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	tel, err := telemetry.New(&cfg.Telemetry, telemetry.WithLogWriter(cmd.ErrOrStderr()))
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	slog.SetDefault(tel.Slog())
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			tel.Slog().Error("telemetry shutdown failed", "error", err)
		}
	}()

	a, err := newApp(cfg, tel)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.close()

	fmt.Fprintf(out, "cwlens v%s\n", Version)
	if cfg.Server.Enabled {
		fmt.Fprintf(out, "✓ Live Status on http://%s/v1/view\n", cfg.Server.ListenAddress)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	if err := a.run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Stopped")
	return nil
}

// app holds the components wired for `cwlens run`.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger *slog.Logger

	catalog   *catalog.Store
	client    *upstream.Client
	stream    *upstream.Stream
	journal   journal.Store
	scheduler *journal.Scheduler
	ctrl      *controller.Controller
	server    *server.Server
}

func newApp(cfg *config.Config, tel *telemetry.Telemetry) (*app, error) {
	a := &app{cfg: cfg, tel: tel, logger: tel.Slog()}

	if cfg.Upstream.BaseURL != "" {
		opts := upstream.OptionsFromConfig(cfg.Upstream)
		opts.Logger = a.logger
		opts.Metrics = tel.Metrics()
		opts.Tracer = tel.Tracer()
		client, err := upstream.New(opts)
		if err != nil {
			return nil, err
		}
		a.client = client

		if cfg.Upstream.Stream.Enabled {
			streamOpts, err := upstream.StreamOptionsFromConfig(cfg.Upstream)
			if err != nil {
				return nil, err
			}
			streamOpts.Logger = a.logger
			streamOpts.Metrics = tel.Metrics()
			streamOpts.Tracer = tel.Tracer()
			a.stream, err = upstream.NewStream(streamOpts)
			if err != nil {
				return nil, err
			}
		}
	}

	ctrlOpts := controller.Options{
		FallbackModelLimit: cfg.Limits.FallbackModelLimit,
		Logger:             a.logger,
		Metrics:            tel.Metrics(),
		Tracer:             tel.Tracer(),
	}
	if a.client != nil {
		ctrlOpts.Config = a.client
		ctrlOpts.Limits = a.client
	}
	if cfg.Catalog.Enabled {
		store, err := catalog.Open(cfg.Catalog.Path, a.logger)
		if err != nil {
			return nil, err
		}
		a.catalog = store
		ctrlOpts.Config = store
	}
	if ctrlOpts.Config == nil {
		return nil, errors.New("no configuration source: set upstream.base_url or enable the catalog")
	}

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal, a.logger)
		if err != nil {
			return nil, err
		}
		a.journal = store
		a.scheduler = journal.NewScheduler(store, cfg.Journal.Retention, a.logger)
		ctrlOpts.Journal = store
	}

	ctrl, err := controller.New(ctrlOpts)
	if err != nil {
		a.close()
		return nil, err
	}
	a.ctrl = ctrl

	tel.Health().Register("session", ctrl.Ready)
	if a.catalog != nil {
		a.catalog.OnReload(func() {
			if ctrl.SessionID() == "" {
				return
			}
			if _, err := ctrl.Refresh(context.Background()); err != nil {
				a.logger.Warn("refresh after catalog reload failed", "error", err)
			}
		})
	}

	if cfg.Server.Enabled {
		a.server = server.New(&cfg.Server, ctrl, server.Deps{
			Logger:      a.logger,
			Metrics:     tel.Metrics(),
			MetricsPath: cfg.Telemetry.Metrics.Path,
			Health:      tel.Health(),
			Tracer:      tel.Tracer(),
			Version:     buildInfo(),
		})
	}
	return a, nil
}

// run starts every background component, opens the configured session,
// and blocks until ctx is done or the server fails.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	fail := func(err error) {
		select {
		case errCh <- err:
		default:
		}
		cancel()
	}

	if a.catalog != nil && a.cfg.Catalog.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.catalog.Watch(ctx, a.cfg.Catalog.DebounceDelay); err != nil {
				a.logger.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			a.logger.Warn("failed to start journal retention", "error", err)
		} else {
			defer a.scheduler.Stop()
		}
	}

	if a.stream != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.stream.Run(ctx, a.ctrl.HandleEvent); err != nil {
				a.logger.Error("snapshot stream stopped", "error", err)
			}
		}()
	}

	if a.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.Start(ctx); err != nil {
				fail(err)
			}
		}()
	}

	if a.cfg.Session.ID != "" {
		st, err := a.ctrl.SwitchSession(ctx, a.cfg.Session.ID, a.cfg.Session.ProfileID)
		switch {
		case err != nil:
			a.logger.Error("failed to open session", "session", a.cfg.Session.ID, "error", err)
		case st.Guidance != "":
			a.logger.Warn("session degraded", "session", st.SessionID, "guidance", st.Guidance)
		default:
			a.logger.Info("session opened", "session", st.SessionID, "profile", st.ProfileID)
		}
	}

	<-ctx.Done()
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (a *app) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close journal", "error", err)
		}
	}
}
