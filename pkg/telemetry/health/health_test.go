package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_ReadinessNoChecks(t *testing.T) {
	c := New(0)
	status := c.Readiness(context.Background())
	if status.Status != StatusReady {
		t.Errorf("Expected ready with no checks, got %s", status.Status)
	}
}

func TestChecker_Readiness(t *testing.T) {
	c := New(50 * time.Millisecond)
	c.Register("journal", func(ctx context.Context) error { return nil })
	c.Register("controller", func(ctx context.Context) error { return errors.New("no profiles available") })
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	status := c.Readiness(context.Background())

	if status.Status != StatusNotReady {
		t.Errorf("Expected not_ready, got %s", status.Status)
	}
	if status.Checks["journal"].Status != StatusOK {
		t.Errorf("Expected journal ok, got %+v", status.Checks["journal"])
	}
	if got := status.Checks["controller"]; got.Status != StatusUnhealthy || got.Message != "no profiles available" {
		t.Errorf("Unexpected controller result %+v", got)
	}
	if got := status.Checks["slow"]; got.Message != "health check timeout" {
		t.Errorf("Expected timeout for slow check, got %+v", got)
	}
}

func TestChecker_Names(t *testing.T) {
	c := New(0)
	c.Register("b", func(context.Context) error { return nil })
	c.Register("a", func(context.Context) error { return nil })
	c.Register("a", func(context.Context) error { return nil })

	names := c.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Expected [a b], got %v", names)
	}
}

func TestHandlers(t *testing.T) {
	c := New(0)
	c.Register("controller", func(context.Context) error { return errors.New("down") })

	tests := []struct {
		name    string
		handler http.HandlerFunc
		method  string
		code    int
	}{
		{"liveness", c.LivenessHandler(), http.MethodGet, http.StatusOK},
		{"readiness failing", c.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable},
		{"version", VersionHandler("1.0.0", "abc", "today"), http.MethodGet, http.StatusOK},
		{"wrong method", c.LivenessHandler(), http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))
			if rec.Code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
}

func TestVersionHandler_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.3", "deadbeef", "2026-01-01")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "deadbeef" || info.GoVersion == "" {
		t.Errorf("Unexpected version info %+v", info)
	}
}
