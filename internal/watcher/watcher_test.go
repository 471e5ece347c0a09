package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func drainUntilFlush(t *testing.T, events <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var collected []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			collected = append(collected, ev)
			if ev.Flushed {
				return collected
			}
		case <-deadline:
			t.Fatalf("timed out waiting for flush, collected so far: %+v", collected)
		}
	}
}

func TestWatcherReportsCreatedFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.DebounceWindow = 20 * time.Millisecond

	w, err := New(dir, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	events := drainUntilFlush(t, w.Events(), 2*time.Second)
	found := false
	for _, ev := range events {
		if ev.Path == path {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an event for %s, got %+v", path, events)
	}
}

func TestWatcherIgnoresConfiguredDirectories(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.DebounceWindow = 20 * time.Millisecond

	if err := os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New(dir, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	ignoredPath := filepath.Join(dir, "node_modules", "pkg.js")
	if err := os.WriteFile(ignoredPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	watchedPath := filepath.Join(dir, "seen.go")
	if err := os.WriteFile(watchedPath, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	events := drainUntilFlush(t, w.Events(), 2*time.Second)
	for _, ev := range events {
		if ev.Path == ignoredPath {
			t.Fatalf("expected node_modules change to be ignored, got %+v", events)
		}
	}
}

func TestStrongestKindWinsCoalescing(t *testing.T) {
	if Removed.strength() <= Created.strength() || Created.strength() <= Modified.strength() {
		t.Fatalf("expected Removed > Created > Modified strength ordering")
	}
}
