package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/cwlens/pkg/window"
)

const profilesYAML = `
profiles:
  - id: p-default
    name: Default
    is_default: true
    context_window_type_id: standard
    llm_configuration_id: llm-1
  - id: p-lean
    name: Lean
    context_window_type_id: lean
    context_limit_override: 32000
`

const standardYAML = `
name: standard
description: General purpose
modules:
  system_prompt: {active: true, target_pct: 10, priority: 100}
  conversation_history: {active: true, target_pct: 40}
  tools: {active: true, target_pct: 20}
dynamic_adjustments:
  - condition: history_overflow
    action: {transfer: tools, to: conversation_history}
`

const leanYAML = `
name: lean
output_reserve_pct: 20
modules:
  system_prompt: {active: true, target_pct: 15}
  conversation_history: {active: true, target_pct: 60}
`

// writeCatalog writes files into a fresh directory and returns its path.
func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestOpen(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"profiles.yaml": profilesYAML,
		"standard.yaml": standardYAML,
		"lean.yml":      leanYAML,
		".hidden.yaml":  "not: [valid",
		"README.md":     "# ignored",
	})

	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Version() != 1 {
		t.Errorf("Expected version 1, got %d", s.Version())
	}

	ids := s.WindowTypeIDs()
	if len(ids) != 2 || ids[0] != "lean" || ids[1] != "standard" {
		t.Errorf("Expected [lean standard], got %v", ids)
	}

	profiles, err := s.Profiles(context.Background())
	if err != nil {
		t.Fatalf("Profiles failed: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("Expected 2 profiles, got %d", len(profiles))
	}
	if !profiles[0].IsDefault || profiles[0].WindowTypeID != "standard" || profiles[0].LLMConfigurationID != "llm-1" {
		t.Errorf("Unexpected default profile %+v", profiles[0])
	}
	if profiles[1].ContextLimitOverride == nil || *profiles[1].ContextLimitOverride != 32000 {
		t.Errorf("Expected lean override 32000, got %v", profiles[1].ContextLimitOverride)
	}
}

func TestStore_WindowType(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"standard.yaml": standardYAML})
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	wt, err := s.WindowType(context.Background(), "standard")
	if err != nil {
		t.Fatalf("WindowType failed: %v", err)
	}
	if wt.OutputReservePct != window.DefaultOutputReservePct {
		t.Errorf("Expected default reserve, got %v", wt.OutputReservePct)
	}
	if wt.Modules["tools"].Priority != window.DefaultPriority {
		t.Errorf("Expected default priority, got %d", wt.Modules["tools"].Priority)
	}
	if wt.Modules["system_prompt"].Priority != 100 {
		t.Errorf("Expected explicit priority kept, got %d", wt.Modules["system_prompt"].Priority)
	}
	if _, ok := wt.Rules[0].Action.(window.Transfer); !ok {
		t.Errorf("Expected transfer action, got %#v", wt.Rules[0].Action)
	}

	// Mutating the returned copy must not leak into the store.
	delete(wt.Modules, "tools")
	again, _ := s.WindowType(context.Background(), "standard")
	if _, ok := again.Modules["tools"]; !ok {
		t.Error("Expected store contents unaffected by caller mutation")
	}
}

func TestStore_WindowTypeNotFound(t *testing.T) {
	s, err := Open(writeCatalog(t, nil), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	_, err = s.WindowType(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s, _ := Open(writeCatalog(t, map[string]string{"standard.yaml": standardYAML}), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Profiles(ctx); err == nil {
		t.Error("Expected error from Profiles on canceled context")
	}
	if _, err := s.WindowType(ctx, "standard"); err == nil {
		t.Error("Expected error from WindowType on canceled context")
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"bad window type", map[string]string{"broken.yaml": "modules: [unclosed"}},
		{"bad profiles", map[string]string{"profiles.yaml": "profiles: {"}},
		{"profile without id", map[string]string{"profiles.yaml": "profiles:\n  - name: x\n"}},
		{"duplicate profile", map[string]string{"profiles.yaml": "profiles:\n  - id: a\n  - id: a\n"}},
		{"duplicate window type", map[string]string{"lean.yaml": leanYAML, "lean.yml": leanYAML}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeCatalog(t, tt.files), nil)
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Errorf("Expected LoadError, got %v", err)
			}
		})
	}
}

func TestOpen_MissingDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestStore_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"standard.yaml": standardYAML})
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "standard.yaml"), []byte("modules: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err == nil {
		t.Fatal("Expected reload error")
	}
	if s.Version() != 1 {
		t.Errorf("Expected version unchanged, got %d", s.Version())
	}
	if _, err := s.WindowType(context.Background(), "standard"); err != nil {
		t.Errorf("Expected previous window type kept, got %v", err)
	}
}

func TestStore_OnReload(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"standard.yaml": standardYAML})
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	calls := 0
	s.OnReload(func() { calls++ })

	if err := os.WriteFile(filepath.Join(dir, "lean.yaml"), []byte(leanYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 hook call, got %d", calls)
	}
	if len(s.WindowTypeIDs()) != 2 {
		t.Errorf("Expected new window type after reload, got %v", s.WindowTypeIDs())
	}
}

func TestLoadWindowType(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"lean.yaml": leanYAML})

	wt, err := LoadWindowType(filepath.Join(dir, "lean.yaml"))
	if err != nil {
		t.Fatalf("LoadWindowType failed: %v", err)
	}
	if wt.Name != "lean" || wt.OutputReservePct != 20 {
		t.Errorf("Unexpected window type %+v", wt)
	}
}
