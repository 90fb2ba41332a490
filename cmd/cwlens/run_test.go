package main

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/cwlens/pkg/config"
	"mercator-hq/cwlens/pkg/telemetry"
)

func newTestApp(t *testing.T, mutate func(cfg *config.Config)) *app {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "profiles.yaml", profilesYAML)
	writeFile(t, dir, "standard.yaml", standardYAML)

	cfg := config.NewDefault()
	cfg.Catalog.Enabled = true
	cfg.Catalog.Path = dir
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Session.ID = "s1"
	cfg.Journal.Backend = "sqlite"
	cfg.Journal.SQLite.Path = filepath.Join(dir, "journal.db")
	if mutate != nil {
		mutate(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	tel, err := telemetry.New(&cfg.Telemetry, telemetry.WithLogWriter(io.Discard))
	if err != nil {
		t.Fatalf("telemetry.New failed: %v", err)
	}
	a, err := newApp(cfg, tel)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(a.close)
	return a
}

func TestApp_RunCatalogSession(t *testing.T) {
	a := newTestApp(t, nil)
	if a.client != nil || a.stream != nil {
		t.Fatal("catalog-only config should not create upstream clients")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for {
		st := a.ctrl.Status()
		if st.View != nil && st.SessionID == "s1" {
			if st.ProfileID != "p-default" || st.View.Window != "standard" {
				t.Errorf("unexpected status: %+v", st)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never configured: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var addr string
	for addr == "" && time.Now().Before(deadline) {
		addr = a.server.Addr()
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("server never started")
	}
	resp, err := http.Get("http://" + addr + "/ready")
	if err != nil {
		t.Fatalf("GET /ready failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ready = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestApp_ServerDisabled(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.Enabled = false
		cfg.Journal.Enabled = false
	})
	if a.server != nil || a.journal != nil || a.scheduler != nil {
		t.Error("disabled components should not be created")
	}
}

func TestApp_UpstreamClients(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Catalog.Enabled = false
		cfg.Upstream.BaseURL = "http://planner.invalid/api"
	})
	if a.client == nil || a.stream == nil {
		t.Error("upstream client and stream should be created")
	}
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "cwlens.yaml", "upstream:\n  base_url: http://planner.invalid/api\n")

	runFlags.dryRun = true
	defer func() { runFlags.dryRun = false }()

	out, _, err := execute(t, "run", "--config", cfg, "--dry-run")
	if err != nil {
		t.Fatalf("run --dry-run failed: %v", err)
	}
	if out != "✓ Configuration valid\n" {
		t.Errorf("unexpected output: %q", out)
	}
}
