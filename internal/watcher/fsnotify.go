package watcher

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// rawEvent is an uncoalesced event from a source.
type rawEvent struct {
	Path string
	Kind Kind
}

// source produces raw file system events for a directory tree.
type source interface {
	Add(dir string) error
	Events() <-chan rawEvent
	Errors() <-chan error
	Close() error
}

// fsnotifySource adapts an fsnotify.Watcher to source. fsnotify watches
// single directories, so new subdirectories are added as they appear.
type fsnotifySource struct {
	w      *fsnotify.Watcher
	skip   func(path string, isDir bool) bool
	events chan rawEvent
	errors chan error
	done   chan struct{}
}

func newFSNotifySource(skip func(string, bool) bool) (*fsnotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	s := &fsnotifySource{
		w:      w,
		skip:   skip,
		events: make(chan rawEvent, 256),
		errors: make(chan error, 16),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s, nil
}

// Add watches dir and every directory below it that is not skipped.
func (s *fsnotifySource) Add(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && s.skip(p, true) {
			return filepath.SkipDir
		}
		return s.w.Add(p)
	})
}

func (s *fsnotifySource) Events() <-chan rawEvent { return s.events }

func (s *fsnotifySource) Errors() <-chan error { return s.errors }

func (s *fsnotifySource) Close() error {
	err := s.w.Close()
	<-s.done
	return err
}

func (s *fsnotifySource) loop() {
	defer close(s.done)
	defer close(s.events)
	defer close(s.errors)

	for {
		select {
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			default:
			}
		}
	}
}

func (s *fsnotifySource) handle(ev fsnotify.Event) {
	kind, ok := convertOp(ev.Op)
	if !ok {
		return
	}
	if kind == Created {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !s.skip(ev.Name, true) {
				_ = s.Add(ev.Name)
			}
		}
	}
	s.events <- rawEvent{Path: ev.Name, Kind: kind}
}

// convertOp maps fsnotify operations to event kinds. A rename reports the
// old name; the new name arrives as a create. Chmod is not a content change.
func convertOp(op fsnotify.Op) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Created, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return Deleted, true
	case op.Has(fsnotify.Write):
		return Changed, true
	default:
		return 0, false
	}
}
