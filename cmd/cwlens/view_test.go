package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/cwlens/pkg/controller"
	"mercator-hq/cwlens/pkg/limit"
	"mercator-hq/cwlens/pkg/reconcile"
)

func TestViewOffline_ConfigOnly(t *testing.T) {
	dir := t.TempDir()
	wt := writeFile(t, dir, "standard.yaml", standardYAML)

	out, _, err := execute(t, "view", "--window", wt, "--model-limit", "128000", "--profile-limit", "64000", "-o", "json")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}

	var v reconcile.View
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if v.Window != "standard" || len(v.Modules) != 3 {
		t.Errorf("unexpected view: %+v", v)
	}
	if v.Limit.Tokens != 64000 || v.Limit.Source != limit.SourceProfile {
		t.Errorf("limit = %+v, want 64000 from profile", v.Limit)
	}
	if v.Totals != nil {
		t.Error("totals should be absent without a snapshot")
	}
}

func TestViewOffline_WithSnapshot(t *testing.T) {
	dir := t.TempDir()
	wt := writeFile(t, dir, "standard.yaml", standardYAML)
	snap := writeFile(t, dir, "turn7.json", snapshotJSON)

	out, _, err := execute(t, "view", "--window", wt, "--snapshot", snap, "--session-limit", "50000", "-o", "json")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}

	var v reconcile.View
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if v.Totals == nil || v.Totals.TurnNumber != 7 {
		t.Fatalf("expected totals for turn 7, got %+v", v.Totals)
	}
	if v.Limit.Tokens != 50000 || v.Limit.Source != limit.SourceSession {
		t.Errorf("limit = %+v, want session 50000", v.Limit)
	}

	text, _, err := execute(t, "view", "--window", wt, "--snapshot", snap)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if !strings.Contains(text, "Turn 7: 30000 / 100000 tokens (30.0%)") {
		t.Errorf("unexpected text output:\n%s", text)
	}
}

func TestViewOffline_Errors(t *testing.T) {
	dir := t.TempDir()
	wt := writeFile(t, dir, "standard.yaml", standardYAML)
	bad := writeFile(t, dir, "bad.json", "{not json")

	if _, _, err := execute(t, "view", "--snapshot", bad); err == nil {
		t.Error("expected error for --snapshot without --window")
	}
	if _, _, err := execute(t, "view", "--window", wt, "--snapshot", bad); err == nil {
		t.Error("expected error for malformed snapshot")
	}
	if _, _, err := execute(t, "view", "--window", dir+"/missing.yaml"); err == nil {
		t.Error("expected error for missing window file")
	}
}

func TestViewRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/view" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(controller.Status{SessionID: "s-9", State: "configured", Guidance: "waiting"})
	}))
	defer srv.Close()

	out, _, err := execute(t, "view", "--server", srv.URL+"/")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if !strings.Contains(out, "Session: s-9  State: configured") || !strings.Contains(out, "Guidance: waiting") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestViewRemote_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := execute(t, "view", "--server", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "returned 500") {
		t.Errorf("expected status error, got %v", err)
	}
}
