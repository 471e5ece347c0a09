// Package watcher wraps fsnotify into a debounced, coalesced stream of file
// change events for a watched directory tree.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a coalesced file change.
type EventKind int

const (
	Modified EventKind = iota
	Created
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Removed:
		return "removed"
	default:
		return "modified"
	}
}

// strength orders kinds for strongest-wins coalescing: Removed beats
// Created beats Modified.
func (k EventKind) strength() int {
	switch k {
	case Removed:
		return 2
	case Created:
		return 1
	default:
		return 0
	}
}

// Event is either a coalesced file change or the flush marker that follows a
// quiet debounce window.
type Event struct {
	Path    string
	Kind    EventKind
	Flushed bool
}

var defaultIgnoreDirs = []string{
	".git", "node_modules", ".idea", ".vscode", "__pycache__", "dist",
	"build", "vendor", ".canopy", ".next", "target",
}

// Options configures a Watcher.
type Options struct {
	DebounceWindow time.Duration
	IgnorePatterns []string
	BufferSize     int
}

// DefaultOptions returns the recommended defaults: a 100ms debounce window,
// the common junk-directory ignore list, and a 1000-event buffer.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 100 * time.Millisecond,
		IgnorePatterns: append([]string{}, defaultIgnoreDirs...),
		BufferSize:     1000,
	}
}

type rawChange struct {
	path string
	kind EventKind
}

// Watcher recursively watches a root directory and emits debounced Events.
type Watcher struct {
	root string
	fsw  *fsnotify.Watcher
	opts Options

	raw    chan rawChange
	events chan Event

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a Watcher rooted at root. Call Start to begin watching.
func New(root string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		root:   root,
		fsw:    fsw,
		opts:   opts,
		raw:    make(chan rawChange, opts.BufferSize),
		events: make(chan Event, opts.BufferSize),
		done:   make(chan struct{}),
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Events returns the channel of coalesced events, terminated by Flushed
// markers after each quiet debounce window.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins processing filesystem events. Both goroutines exit once ctx
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.processRaw(ctx)
	go w.debounceLoop(ctx)
}

// Stop shuts the watcher down. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("watcher: failed to add directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, pat := range w.opts.IgnorePatterns {
		if base == pat {
			return true
		}
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
		for _, part := range parts {
			if part == pat {
				return true
			}
		}
	}
	return false
}

// processRaw reads fsnotify events, filters and classifies them, re-adds
// newly created directories to the watch set, and forwards everything else
// onto the raw channel for debouncing. It never blocks on extraction work —
// it only enqueues.
func (w *Watcher) processRaw(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			kind, recognized := convertOp(ev.Op)
			if !recognized {
				continue
			}
			if kind == Created {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						slog.Warn("watcher: failed to add new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			select {
			case w.raw <- rawChange{path: ev.Name, kind: kind}:
			default:
				slog.Warn("watcher: raw event buffer full, dropping change", "path", ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher: fsnotify error", "error", err)
		}
	}
}

// debounceLoop coalesces raw changes per path — keeping the strongest kind
// seen — and flushes them once no new change arrives within the debounce
// window.
func (w *Watcher) debounceLoop(ctx context.Context) {
	pending := make(map[string]EventKind)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case change := <-w.raw:
			if existing, ok := pending[change.path]; !ok || change.kind.strength() >= existing.strength() {
				pending[change.path] = change.kind
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.DebounceWindow)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.opts.DebounceWindow)
			}
		case <-timerC:
			w.flush(pending)
			pending = make(map[string]EventKind)
			timer = nil
			timerC = nil
		}
	}
}

func (w *Watcher) flush(pending map[string]EventKind) {
	if len(pending) == 0 {
		return
	}
	for path, kind := range pending {
		select {
		case w.events <- Event{Path: path, Kind: kind}:
		default:
			slog.Warn("watcher: event buffer full, dropping change", "path", path)
		}
	}
	select {
	case w.events <- Event{Flushed: true}:
	default:
	}
}

func convertOp(op fsnotify.Op) (EventKind, bool) {
	switch {
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return Removed, true
	case op&fsnotify.Create != 0:
		return Created, true
	case op&fsnotify.Write != 0, op&fsnotify.Chmod != 0:
		return Modified, true
	default:
		return Modified, false
	}
}
