package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dshills/exthost/internal/config"
	"github.com/dshills/exthost/internal/uri"
)

type fakeSource struct {
	events chan rawEvent
	errors chan error
	added  []string
	once   sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan rawEvent),
		errors: make(chan error),
	}
}

func (f *fakeSource) Add(dir string) error {
	f.added = append(f.added, dir)
	return nil
}

func (f *fakeSource) Events() <-chan rawEvent { return f.events }
func (f *fakeSource) Errors() <-chan error    { return f.errors }

func (f *fakeSource) Close() error {
	f.once.Do(func() {
		close(f.events)
		close(f.errors)
	})
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []FileEvent
	ch     chan FileEvent
}

func newRecorder(w *FileSystemWatcher) *recorder {
	r := &recorder{ch: make(chan FileEvent, 64)}
	add := func(ev FileEvent) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
		r.ch <- ev
	}
	w.OnDidCreate()(add)
	w.OnDidChange()(add)
	w.OnDidDelete()(add)
	return r
}

func (r *recorder) wait(t *testing.T) FileEvent {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for file event")
		return FileEvent{}
	}
}

func (r *recorder) all() []FileEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FileEvent(nil), r.events...)
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Created, "created"},
		{Changed, "changed"},
		{Deleted, "deleted"},
		{Kind(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, expected %q", tt.kind, got, tt.want)
		}
	}
}

func TestWatchErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := Watch(ctx, filepath.Join(dir, "missing"), ""); !errors.Is(err, ErrPathNotExist) {
		t.Errorf("expected ErrPathNotExist, got %v", err)
	}
	if _, err := Watch(ctx, file, ""); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("expected ErrNotDirectory, got %v", err)
	}
	if _, err := Watch(ctx, dir, "[", withSource(newFakeSource())); err == nil {
		t.Error("expected bad glob error")
	}
}

func TestWatcherFiltersAndDelivers(t *testing.T) {
	root := t.TempDir()
	src := newFakeSource()
	w, err := Watch(context.Background(), root, "**/*.go",
		withSource(src),
		WithDebounce(10*time.Millisecond),
		WithIgnorePatterns(".git/", "node_modules/"),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	rec := newRecorder(w)

	if len(src.added) != 1 || src.added[0] != root {
		t.Errorf("expected root to be added, got %v", src.added)
	}

	src.events <- rawEvent{Path: filepath.Join(root, "notes.txt"), Kind: Created}
	src.events <- rawEvent{Path: filepath.Join(root, ".git", "hook.go"), Kind: Created}
	src.events <- rawEvent{Path: filepath.Join(root, "node_modules", "x", "y.go"), Kind: Changed}
	src.events <- rawEvent{Path: filepath.Join(filepath.Dir(root), "outside.go"), Kind: Created}
	src.events <- rawEvent{Path: filepath.Join(root, "pkg", "a.go"), Kind: Created}

	got := rec.wait(t)
	want := FileEvent{Kind: Created, URI: uri.File(filepath.Join(root, "pkg", "a.go"))}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	w.Flush()
	if all := rec.all(); len(all) != 1 {
		t.Errorf("filtered events must not be delivered, got %v", all)
	}
}

func TestWatcherIgnoreFlags(t *testing.T) {
	root := t.TempDir()
	src := newFakeSource()
	w, err := Watch(context.Background(), root, "",
		withSource(src),
		WithDebounce(time.Hour),
		IgnoreChange(),
		IgnoreDelete(),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	rec := newRecorder(w)

	src.events <- rawEvent{Path: filepath.Join(root, "a"), Kind: Changed}
	src.events <- rawEvent{Path: filepath.Join(root, "b"), Kind: Deleted}
	src.events <- rawEvent{Path: filepath.Join(root, "c"), Kind: Created}
	// An unbuffered send returns only once the previous event is handled.
	src.events <- rawEvent{Path: filepath.Join(root, "c"), Kind: Changed}

	w.Flush()
	all := rec.all()
	if len(all) != 1 || all[0].Kind != Created || all[0].URI != uri.File(filepath.Join(root, "c")) {
		t.Errorf("expected only the create of c, got %v", all)
	}
}

func TestWatcherIgnoreHidden(t *testing.T) {
	root := t.TempDir()
	src := newFakeSource()
	w, err := Watch(context.Background(), root, "",
		withSource(src),
		WithDebounce(time.Hour),
		WithIgnoreHidden(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	rec := newRecorder(w)

	src.events <- rawEvent{Path: filepath.Join(root, ".cache", "a"), Kind: Created}
	src.events <- rawEvent{Path: filepath.Join(root, ".env"), Kind: Created}
	src.events <- rawEvent{Path: filepath.Join(root, "visible"), Kind: Created}
	src.events <- rawEvent{Path: filepath.Join(root, "visible"), Kind: Changed}

	w.Flush()
	if all := rec.all(); len(all) != 1 || all[0].URI.Base() != "visible" {
		t.Errorf("hidden paths must be skipped, got %v", all)
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := Watch(ctx, t.TempDir(), "", withSource(newFakeSource()))
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-w.loopDone:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	c := config.Default().Watcher
	c.IgnoreHidden = true
	var o options
	for _, opt := range FromConfig(c) {
		opt(&o)
	}
	if o.debounce != c.Debounce.Duration || !o.ignoreHidden || len(o.ignore) != len(c.Ignore) {
		t.Errorf("unexpected options %+v", o)
	}
}

func TestFSNotifyWatcher(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	w, err := Watch(context.Background(), root, "**/*.txt", WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	rec := newRecorder(w)

	path := filepath.Join(root, "sub", "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	ev := rec.wait(t)
	if ev.Kind != Created || ev.URI != uri.File(path) {
		t.Errorf("expected create of %s, got %v", path, ev)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ev = rec.wait(t)
	if ev.Kind != Deleted || ev.URI != uri.File(path) {
		t.Errorf("expected delete of %s, got %v", path, ev)
	}
}
