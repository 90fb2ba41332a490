package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestStore_Watch(t *testing.T) {
	dir := writeCatalog(t, map[string]string{"standard.yaml": standardYAML})
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	reloaded := make(chan struct{}, 8)
	s.OnReload(func() { reloaded <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 20*time.Millisecond) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "lean.yaml"), []byte(leanYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
	if _, err := s.WindowType(context.Background(), "lean"); err != nil {
		t.Errorf("Expected lean window type after reload, got %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil from Watch, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStore_WatchMissingDir(t *testing.T) {
	dir := writeCatalog(t, nil)
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	if err := s.Watch(context.Background(), time.Millisecond); err == nil {
		t.Error("Expected error watching a removed directory")
	}
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/c/standard.yaml", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/c/standard.YML", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/c/standard.yaml", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/c/standard.yaml", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/c/.standard.yaml.swp", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/c/.hidden.yaml", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/c/notes.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		if got := relevant(tt.event); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls, last int32
	for i := int32(1); i <= 5; i++ {
		v := i
		d.Trigger(func() {
			atomic.AddInt32(&calls, 1)
			atomic.StoreInt32(&last, v)
		})
	}

	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 call, got %d", got)
	}
	if got := atomic.LoadInt32(&last); got != 5 {
		t.Errorf("Expected last callback to win, got %d", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls int32
	d.Trigger(func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	d.Trigger(func() { atomic.AddInt32(&calls, 1) })

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("Expected no calls after Stop, got %d", got)
	}
}
