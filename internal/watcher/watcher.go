// Package watcher reports changes to the template directory so the server can
// reload its templates without a restart.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch of events.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	DebounceMs     int           `json:"debounceMs" mapstructure:"debounceMs"`
	Poll           bool          `json:"poll" mapstructure:"poll"`
	IgnorePatterns []string      `json:"ignorePatterns" mapstructure:"ignorePatterns"`
	PollInterval   time.Duration `json:"-"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 250,
		IgnorePatterns: []string{
			"*.swp",
			"*.tmp",
			"*~",
			".#*",
			".git/**",
		},
		PollInterval: 2 * time.Second,
	}
}

// Mode reports how a watcher observes the directory.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeNotify   Mode = "fsnotify"
	ModePoll     Mode = "poll"
)

// Watcher watches one directory tree for template changes.
type Watcher struct {
	root    string
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	batch   *BatchDebouncer

	mu   sync.RWMutex
	mode Mode
}

// New creates a watcher for root. handler runs on a timer goroutine.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	w := &Watcher{
		root:    root,
		config:  config,
		logger:  logger,
		handler: handler,
		mode:    ModeDisabled,
	}
	delay := time.Duration(config.DebounceMs) * time.Millisecond
	w.batch = NewBatchDebouncer(delay, w.emit)
	return w
}

// Mode returns the active watch mode.
func (w *Watcher) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

func (w *Watcher) setMode(m Mode) {
	w.mu.Lock()
	w.mode = m
	w.mu.Unlock()
}

// Run watches until ctx is cancelled. fsnotify is preferred; when it cannot be
// set up the watcher falls back to polling modification times.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.config.Enabled {
		w.logger.Info("Template watcher is disabled")
		return nil
	}
	defer w.batch.Cancel()

	if !w.config.Poll {
		fw, err := w.newNotifyWatcher()
		if err == nil {
			defer fw.Close()
			w.setMode(ModeNotify)
			w.logger.Info("Watching templates",
				"root", w.root,
				"mode", ModeNotify,
				"debounceMs", w.config.DebounceMs,
			)
			w.notifyLoop(ctx, fw)
			return nil
		}
		w.logger.Warn("fsnotify unavailable, falling back to polling",
			"root", w.root,
			"error", err.Error(),
		)
	}

	w.setMode(ModePoll)
	w.logger.Info("Watching templates",
		"root", w.root,
		"mode", ModePoll,
		"interval", w.pollInterval().String(),
	)
	w.pollLoop(ctx)
	return nil
}

func (w *Watcher) newNotifyWatcher() (*fsnotify.Watcher, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("not a directory: " + w.root)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.addTree(fw, w.root); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// addTree registers dir and its subdirectories; fsnotify is not recursive.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && w.IsIgnored(w.rel(p)) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}

func (w *Watcher) notifyLoop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleNotify(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Template watcher error", "error", err.Error())
		}
	}
}

func (w *Watcher) handleNotify(fw *fsnotify.Watcher, ev fsnotify.Event) {
	rel := w.rel(ev.Name)
	if w.IsIgnored(rel) {
		return
	}

	var typ EventType
	switch {
	case ev.Has(fsnotify.Create):
		typ = EventCreate
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory",
					"path", ev.Name,
					"error", err.Error(),
				)
			}
		}
	case ev.Has(fsnotify.Write):
		typ = EventModify
	case ev.Has(fsnotify.Remove):
		typ = EventDelete
	case ev.Has(fsnotify.Rename):
		typ = EventRename
	default:
		return
	}

	w.batch.Add(Event{Type: typ, Path: rel, Timestamp: time.Now()})
}

type fileState struct {
	modTime time.Time
	size    int64
}

func (w *Watcher) pollInterval() time.Duration {
	if w.config.PollInterval <= 0 {
		return 2 * time.Second
	}
	return w.config.PollInterval
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	last := w.snapshot()
	for {
		select {
		case <-ticker.C:
			current := w.snapshot()
			for _, ev := range diffSnapshots(last, current) {
				w.batch.Add(ev)
			}
			last = current
		case <-ctx.Done():
			return
		}
	}
}

// snapshot records every non-ignored file under root. A missing root is an
// empty snapshot.
func (w *Watcher) snapshot() map[string]fileState {
	files := make(map[string]fileState)
	_ = filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel := w.rel(p)
		if d.IsDir() {
			if p != w.root && w.IsIgnored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.IsIgnored(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[rel] = fileState{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return files
}

func diffSnapshots(before, after map[string]fileState) []Event {
	now := time.Now()
	var events []Event
	for p, st := range after {
		prev, ok := before[p]
		switch {
		case !ok:
			events = append(events, Event{Type: EventCreate, Path: p, Timestamp: now})
		case !prev.modTime.Equal(st.modTime) || prev.size != st.size:
			events = append(events, Event{Type: EventModify, Path: p, Timestamp: now})
		}
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			events = append(events, Event{Type: EventDelete, Path: p, Timestamp: now})
		}
	}
	return events
}

func (w *Watcher) emit(events []Event) {
	w.logger.Debug("Template changes detected", "eventCount", len(events))
	if w.handler != nil {
		w.handler(events)
	}
}

func (w *Watcher) rel(p string) string {
	r, err := filepath.Rel(w.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(r)
}

// IsIgnored checks if a root-relative path matches ignore patterns
func (w *Watcher) IsIgnored(path string) bool {
	for _, pattern := range w.config.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}

		// "dir/**" ignores everything below dir
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// Flush emits pending events immediately.
func (w *Watcher) Flush() {
	w.batch.Flush()
}
