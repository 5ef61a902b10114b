package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.eventType.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if !config.Enabled {
		t.Error("Enabled should be true by default")
	}
	if config.DebounceMs != 250 {
		t.Errorf("DebounceMs = %d, want 250", config.DebounceMs)
	}
	if config.Poll {
		t.Error("Poll should be false by default")
	}
	if config.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", config.PollInterval)
	}
}

func TestWatcherIsIgnored(t *testing.T) {
	w := New(t.TempDir(), DefaultConfig(), discardLogger(), nil)

	tests := []struct {
		path string
		want bool
	}{
		{"markdown.html", false},
		{"partials/nav.html", false},
		{".markdown.html.swp", true},
		{"markdown.html~", true},
		{"partials/scratch.tmp", true},
		{".#markdown.html", true},
		{".git", true},
		{".git/HEAD", true},
		{".github/x.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := w.IsIgnored(tt.path); got != tt.want {
				t.Errorf("IsIgnored(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatcherRunDisabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false
	w := New(t.TempDir(), config, discardLogger(), nil)

	if err := w.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if w.Mode() != ModeDisabled {
		t.Errorf("Mode() = %v, want %v", w.Mode(), ModeDisabled)
	}
}

// collector gathers emitted batches for assertions.
type collector struct {
	mu     sync.Mutex
	events []Event
	fired  chan struct{}
}

func newCollector() *collector {
	return &collector{fired: make(chan struct{}, 16)}
}

func (c *collector) handle(events []Event) {
	c.mu.Lock()
	c.events = append(c.events, events...)
	c.mu.Unlock()
	select {
	case c.fired <- struct{}{}:
	default:
	}
}

func (c *collector) waitFor(t *testing.T, path string) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		c.mu.Lock()
		for _, ev := range c.events {
			if ev.Path == path {
				c.mu.Unlock()
				return ev
			}
		}
		c.mu.Unlock()
		select {
		case <-c.fired:
		case <-deadline:
			t.Fatalf("no event for %s", path)
		}
	}
}

func runWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(5 * time.Second)
	for w.Mode() == ModeDisabled {
		if time.Now().After(deadline) {
			t.Fatal("watcher did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatcherNotify(t *testing.T) {
	root := t.TempDir()
	c := newCollector()
	config := DefaultConfig()
	config.DebounceMs = 20

	w := New(root, config, discardLogger(), c.handle)
	runWatcher(t, w)
	if w.Mode() != ModeNotify {
		t.Skipf("fsnotify unavailable, mode = %v", w.Mode())
	}

	if err := os.WriteFile(filepath.Join(root, "markdown.html"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.waitFor(t, "markdown.html")

	// New subdirectories are picked up.
	sub := filepath.Join(root, "partials")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	c.waitFor(t, "partials")
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "nav.html"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.waitFor(t, "partials/nav.html")
}

func TestWatcherPoll(t *testing.T) {
	root := t.TempDir()
	c := newCollector()
	config := DefaultConfig()
	config.Poll = true
	config.PollInterval = 20 * time.Millisecond
	config.DebounceMs = 10

	w := New(root, config, discardLogger(), c.handle)
	runWatcher(t, w)
	if w.Mode() != ModePoll {
		t.Fatalf("Mode() = %v, want %v", w.Mode(), ModePoll)
	}

	path := filepath.Join(root, "directory.html")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ev := c.waitFor(t, "directory.html"); ev.Type != EventCreate {
		t.Errorf("Type = %v, want create", ev.Type)
	}
}

func TestWatcherMissingRootFallsBackToPoll(t *testing.T) {
	config := DefaultConfig()
	config.PollInterval = 20 * time.Millisecond
	w := New(filepath.Join(t.TempDir(), "missing"), config, discardLogger(), nil)
	runWatcher(t, w)
	if w.Mode() != ModePoll {
		t.Errorf("Mode() = %v, want %v", w.Mode(), ModePoll)
	}
}

func TestDiffSnapshots(t *testing.T) {
	t0 := time.Unix(1000, 0)
	before := map[string]fileState{
		"same.html":    {modTime: t0, size: 1},
		"changed.html": {modTime: t0, size: 1},
		"gone.html":    {modTime: t0, size: 1},
	}
	after := map[string]fileState{
		"same.html":    {modTime: t0, size: 1},
		"changed.html": {modTime: t0.Add(time.Second), size: 1},
		"new.html":     {modTime: t0, size: 1},
	}

	got := map[string]EventType{}
	for _, ev := range diffSnapshots(before, after) {
		got[ev.Path] = ev.Type
	}
	want := map[string]EventType{
		"changed.html": EventModify,
		"gone.html":    EventDelete,
		"new.html":     EventCreate,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for p, typ := range want {
		if got[p] != typ {
			t.Errorf("%s: %v, want %v", p, got[p], typ)
		}
	}
}

// BatchDebouncer tests

func TestBatchDebouncerAdd(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Event
	emit := func(events []Event) {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
	}

	b := NewBatchDebouncer(50*time.Millisecond, emit)
	b.Add(Event{Type: EventCreate, Path: "a.html"})
	b.Add(Event{Type: EventModify, Path: "b.html"})
	b.Add(Event{Type: EventModify, Path: "a.html"})

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("emitted %d batches, want 1", len(batches))
	}
	if len(batches[0]) != 2 {
		t.Fatalf("batch has %d events, want 2 (same path coalesced)", len(batches[0]))
	}
	if batches[0][0].Path != "a.html" || batches[0][0].Type != EventModify {
		t.Errorf("first event = %+v, want latest a.html modify", batches[0][0])
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	var mu sync.Mutex
	called := false
	b := NewBatchDebouncer(50*time.Millisecond, func([]Event) {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	b.Add(Event{Path: "a"})
	b.Cancel()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if called {
		t.Error("emit should not be called after Cancel")
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d, want 0", b.EventCount())
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var got []Event
	b := NewBatchDebouncer(time.Hour, func(events []Event) { got = events })

	b.Add(Event{Path: "a"})
	b.Add(Event{Path: "b"})
	if b.EventCount() != 2 {
		t.Errorf("EventCount() = %d, want 2", b.EventCount())
	}
	b.Flush()

	if len(got) != 2 {
		t.Errorf("flushed %d events, want 2", len(got))
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() after flush = %d, want 0", b.EventCount())
	}
}

func TestBatchDebouncerNoEmitWithNoEvents(t *testing.T) {
	called := false
	b := NewBatchDebouncer(10*time.Millisecond, func([]Event) { called = true })
	b.Flush()
	if called {
		t.Error("emit should not be called with no events")
	}
}
