package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cwlens/pkg/config"
)

func TestNew(t *testing.T) {
	cfg := config.NewDefault().Telemetry
	var buf bytes.Buffer
	registry := prometheus.NewRegistry()

	tel, err := New(&cfg, WithLogWriter(&buf), WithRegistry(registry))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tel.Shutdown(context.Background())

	tel.Slog().Info("hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("Expected JSON log line, got %q", buf.String())
	}
	if tel.Metrics() == nil || tel.Metrics().Registry() != registry {
		t.Error("Expected metrics on the provided registry")
	}
	if tel.Tracer().Enabled() {
		t.Error("Expected tracing disabled by default")
	}
	if tel.Health() == nil {
		t.Error("Expected health checker")
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := config.NewDefault().Telemetry
	cfg.Metrics.Enabled = false

	tel, err := New(&cfg, WithLogWriter(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tel.Metrics() != nil {
		t.Error("Expected nil metrics when disabled")
	}
}

func TestNew_InvalidLogging(t *testing.T) {
	cfg := config.NewDefault().Telemetry
	cfg.Logging.Level = "shout"

	if _, err := New(&cfg); err == nil {
		t.Error("Expected error for invalid log level")
	}
}
