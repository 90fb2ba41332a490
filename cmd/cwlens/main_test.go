package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cfgFile, outputFormat, verbose = "", "text", false
	viewFlags.window, viewFlags.snapshot, viewFlags.server = "", "", ""
	viewFlags.modelLimit, viewFlags.profileLimit, viewFlags.sessionLimit = 0, 0, 0
	viewFlags.timeout = 5 * time.Second
	historyFlags.limit, historyFlags.since, historyFlags.prune = 0, 0, false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

const standardYAML = `
name: standard
description: General purpose
output_reserve_pct: 20
modules:
  system_prompt: {active: true, target_pct: 10}
  conversation_history: {active: true, target_pct: 40}
  tools: {active: true, target_pct: 20}
dynamic_adjustments:
  - condition: history_overflow
    action: {transfer: tools, to: conversation_history}
`

const brokenYAML = `
name: ""
modules:
  tools: {active: true, target_pct: 140}
`

const profilesYAML = `
profiles:
  - id: p-default
    name: Default
    is_default: true
    context_window_type_id: standard
`

const snapshotJSON = `{
  "turn_number": 7,
  "budget": {"available": 100000, "used": 30000, "model_limit": 128000},
  "contributions": [
    {"module_id": "system_prompt", "allocated": 10000, "used": 8000},
    {"module_id": "conversation_history", "allocated": 40000, "used": 22000}
  ],
  "dynamic_adjustments": ["history_overflow"]
}`

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "cwlens "+Version) || !strings.Contains(out, "Go Version:") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, _, err = execute(t, "version", "-o", "json")
	if err != nil {
		t.Fatalf("version -o json failed: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if info["version"] != Version || info["platform"] == "" {
		t.Errorf("unexpected version info: %v", info)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	_, _, err := execute(t, "version", "-o", "csv")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}
