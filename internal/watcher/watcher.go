// Package watcher reports file creation, change and deletion below a root
// directory.
//
// Watch starts a FileSystemWatcher for the files under root whose
// slash-separated relative path matches a glob. Raw notifications from
// fsnotify are filtered through gitignore-style ignore rules, coalesced per
// URI by a debouncer and delivered on OnDidCreate, OnDidChange and
// OnDidDelete. Listeners run on the watcher's goroutine.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dshills/exthost/internal/config"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/glob"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
)

// Common errors returned by Watch.
var (
	ErrPathNotExist = errors.New("path does not exist")
	ErrNotDirectory = errors.New("path is not a directory")
)

// Kind is the type of file system change.
type Kind uint8

const (
	// Created indicates a new file or directory.
	Created Kind = iota + 1
	// Changed indicates modified file contents.
	Changed
	// Deleted indicates a removed or renamed-away file or directory.
	Deleted
)

// String returns a lower-case name for the kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileEvent is a coalesced change to one file.
type FileEvent struct {
	Kind Kind
	URI  uri.URI
}

// Option configures a watcher.
type Option func(*options)

type options struct {
	debounce     time.Duration
	ignore       []string
	ignoreHidden bool
	ignoreCreate bool
	ignoreChange bool
	ignoreDelete bool
	logger       *logging.Logger
	src          source
}

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// WithIgnorePatterns adds gitignore-style rules.
func WithIgnorePatterns(patterns ...string) Option {
	return func(o *options) { o.ignore = append(o.ignore, patterns...) }
}

// WithIgnoreHidden drops events for paths with a segment starting with '.'.
func WithIgnoreHidden(ignore bool) Option {
	return func(o *options) { o.ignoreHidden = ignore }
}

// IgnoreCreate suppresses OnDidCreate.
func IgnoreCreate() Option {
	return func(o *options) { o.ignoreCreate = true }
}

// IgnoreChange suppresses OnDidChange.
func IgnoreChange() Option {
	return func(o *options) { o.ignoreChange = true }
}

// IgnoreDelete suppresses OnDidDelete.
func IgnoreDelete() Option {
	return func(o *options) { o.ignoreDelete = true }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// withSource replaces the fsnotify backend.
func withSource(s source) Option {
	return func(o *options) { o.src = s }
}

// FromConfig returns the options for a [watcher] configuration section.
func FromConfig(c config.WatcherConfig) []Option {
	return []Option{
		WithDebounce(c.Debounce.Duration),
		WithIgnorePatterns(c.Ignore...),
		WithIgnoreHidden(c.IgnoreHidden),
	}
}

// FileSystemWatcher delivers events for one root and glob.
type FileSystemWatcher struct {
	root    string
	pattern *glob.Pattern
	ignore  *IgnorePatterns
	opts    options
	logger  *logging.Logger

	src source
	deb *debouncer

	created *event.Emitter[FileEvent]
	changed *event.Emitter[FileEvent]
	deleted *event.Emitter[FileEvent]

	closing   chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Watch starts watching root for files whose path relative to root matches
// pattern. An empty pattern matches every file. The watcher stops when ctx
// is cancelled or Close is called.
func Watch(ctx context.Context, root, pattern string, opts ...Option) (*FileSystemWatcher, error) {
	var o options
	o.debounce = DefaultDebounce
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.New("watcher")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrPathNotExist, root)
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	if pattern == "" {
		pattern = "**"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	ignore := NewIgnorePatterns()
	if err := ignore.AddPatterns(o.ignore); err != nil {
		return nil, err
	}

	w := &FileSystemWatcher{
		root:     abs,
		pattern:  g,
		ignore:   ignore,
		opts:     o,
		logger:   o.logger.WithField("root", abs),
		created:  event.NewEmitter[FileEvent]("watcher.create"),
		changed:  event.NewEmitter[FileEvent]("watcher.change"),
		deleted:  event.NewEmitter[FileEvent]("watcher.delete"),
		closing:  make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	w.deb = newDebouncer(o.debounce, w.deliver)

	src := o.src
	if src == nil {
		fs, err := newFSNotifySource(w.skip)
		if err != nil {
			return nil, err
		}
		src = fs
	}
	if err := src.Add(abs); err != nil {
		_ = src.Close()
		return nil, err
	}
	w.src = src

	go w.loop()
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.closing:
		}
	}()

	w.logger.Debug("watching %q", pattern)
	return w, nil
}

// Root returns the absolute watched directory.
func (w *FileSystemWatcher) Root() string { return w.root }

// Pattern returns the glob filter.
func (w *FileSystemWatcher) Pattern() string { return w.pattern.String() }

// OnDidCreate fires for created files.
func (w *FileSystemWatcher) OnDidCreate() event.Event[FileEvent] { return w.created.Event() }

// OnDidChange fires for changed files.
func (w *FileSystemWatcher) OnDidChange() event.Event[FileEvent] { return w.changed.Event() }

// OnDidDelete fires for deleted files.
func (w *FileSystemWatcher) OnDidDelete() event.Event[FileEvent] { return w.deleted.Event() }

// Flush delivers pending coalesced events without waiting for the window.
func (w *FileSystemWatcher) Flush() { w.deb.Flush() }

// Close stops watching and drops pending events. It is safe to call more
// than once.
func (w *FileSystemWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.closing)
		w.closeErr = w.src.Close()
		<-w.loopDone
		w.deb.close()
		w.created.Dispose()
		w.changed.Dispose()
		w.deleted.Dispose()
		w.logger.Debug("stopped")
	})
	return w.closeErr
}

// Dispose is Close without the error.
func (w *FileSystemWatcher) Dispose() { _ = w.Close() }

func (w *FileSystemWatcher) loop() {
	defer close(w.loopDone)

	events, errs := w.src.Events(), w.src.Errors()
	for events != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.handle(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *FileSystemWatcher) handle(ev rawEvent) {
	rel, ok := w.relative(ev.Path)
	if !ok {
		return
	}
	isDir := false
	if ev.Kind != Deleted {
		if info, err := os.Stat(ev.Path); err == nil {
			isDir = info.IsDir()
		}
	}
	if w.skipRel(rel, isDir) || !w.pattern.Match(rel) {
		return
	}
	w.deb.push(FileEvent{Kind: ev.Kind, URI: uri.File(ev.Path)})
}

func (w *FileSystemWatcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// skip is the source's directory filter.
func (w *FileSystemWatcher) skip(path string, isDir bool) bool {
	rel, ok := w.relative(path)
	if !ok {
		return false
	}
	return w.skipRel(rel, isDir)
}

func (w *FileSystemWatcher) skipRel(rel string, isDir bool) bool {
	if w.opts.ignoreHidden {
		for _, seg := range strings.Split(rel, "/") {
			if strings.HasPrefix(seg, ".") {
				return true
			}
		}
	}
	return w.ignore.Match(rel, isDir)
}

func (w *FileSystemWatcher) deliver(ev FileEvent) {
	switch ev.Kind {
	case Created:
		if !w.opts.ignoreCreate {
			w.created.Fire(ev)
		}
	case Changed:
		if !w.opts.ignoreChange {
			w.changed.Fire(ev)
		}
	case Deleted:
		if !w.opts.ignoreDelete {
			w.deleted.Fire(ev)
		}
	}
}
