package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/logging"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrDisposed      = errors.New("history disposed")
)

// DefaultMaxEntries bounds the undo stack when no limit is given.
const DefaultMaxEntries = 1000

// step is one recorded commit.
type step struct {
	changes []engine.Change
}

// entry is one undo unit.
type entry struct {
	label     string
	timestamp time.Time
	steps     []step
}

func (e *entry) size() int {
	n := 0
	for _, s := range e.steps {
		n += len(s.changes)
	}
	return n
}

// EntryInfo describes an undo or redo entry.
type EntryInfo struct {
	Label     string
	Timestamp time.Time
	Commits   int
	Changes   int
}

func (e *entry) info() EntryInfo {
	return EntryInfo{Label: e.label, Timestamp: e.timestamp, Commits: len(e.steps), Changes: e.size()}
}

// History records the commits of one document for undo and redo.
type History struct {
	doc    *engine.Document
	sub    event.Disposable
	logger *logging.Logger

	mu sync.Mutex
	// version is the document version after the last recorded commit.
	// Reverting starts from it, so an unrecorded commit fails the revert.
	version   int
	undoStack []*entry
	redoStack []*entry

	grouping bool
	group    *entry

	// joinNext appends the next commit to the newest undo entry.
	joinNext bool
	// capture receives the commits made by Undo and Redo.
	capture *entry

	maxEntries int
	disposed   bool
}

// Option configures a History.
type Option func(*History)

// WithMaxEntries bounds the undo stack. Oldest entries are dropped first.
func WithMaxEntries(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.maxEntries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *History) {
		if l != nil {
			h.logger = l
		}
	}
}

// New starts recording the commits of doc.
func New(doc *engine.Document, opts ...Option) *History {
	h := &History{
		doc:        doc,
		logger:     logging.Nop,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.version = doc.Version()
	h.sub = doc.OnDidChange()(h.record)
	return h
}

// Document returns the recorded document.
func (h *History) Document() *engine.Document { return h.doc }

func (h *History) record(ev engine.ChangeEvent) {
	s := step{changes: ev.Changes}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = ev.Version
	switch {
	case h.disposed:
	case h.capture != nil:
		h.capture.steps = append(h.capture.steps, s)
	case h.grouping:
		h.group.steps = append(h.group.steps, s)
	case h.joinNext && len(h.undoStack) > 0:
		top := h.undoStack[len(h.undoStack)-1]
		top.steps = append(top.steps, s)
		h.redoStack = nil
	default:
		h.pushLocked(&entry{label: describe(ev.Changes), timestamp: time.Now(), steps: []step{s}})
	}
	h.joinNext = false
}

// pushLocked adds an undo entry and clears the redo stack.
func (h *History) pushLocked(e *entry) {
	h.undoStack = append(h.undoStack, e)
	h.redoStack = nil
	if excess := len(h.undoStack) - h.maxEntries; excess > 0 {
		h.undoStack = h.undoStack[excess:]
	}
}

// JoinNext makes the next commit part of the newest undo entry instead of
// starting a new one.
func (h *History) JoinNext() {
	h.mu.Lock()
	h.joinNext = true
	h.mu.Unlock()
}

// CancelJoin drops a pending JoinNext so the next commit starts a new entry.
func (h *History) CancelJoin() {
	h.mu.Lock()
	h.joinNext = false
	h.mu.Unlock()
}

// JoinPending reports whether the next commit will join the newest entry.
func (h *History) JoinPending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.joinNext
}

// Undo reverts the newest undo entry and moves it to the redo stack.
func (h *History) Undo() error {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return ErrDisposed
	}
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToUndo
	}
	e := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	version := h.version
	h.mu.Unlock()

	inverse, err := h.revert(e, version)
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		return h.failedLocked(e, inverse, &h.undoStack, err)
	}
	h.redoStack = append(h.redoStack, inverse)
	h.logger.Debug("undid %q (%d commits)", e.label, len(e.steps))
	return nil
}

// Redo re-applies the newest redo entry and moves it to the undo stack.
func (h *History) Redo() error {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return ErrDisposed
	}
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToRedo
	}
	e := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	version := h.version
	h.mu.Unlock()

	inverse, err := h.revert(e, version)
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		return h.failedLocked(e, inverse, &h.redoStack, err)
	}
	h.undoStack = append(h.undoStack, inverse)
	h.logger.Debug("redid %q (%d commits)", e.label, len(e.steps))
	return nil
}

// failedLocked handles a revert error. If nothing was committed the entry
// goes back on its stack. Otherwise the document no longer matches either
// stack and the history is cleared.
func (h *History) failedLocked(e, inverse *entry, stack *[]*entry, err error) error {
	if len(inverse.steps) == 0 {
		*stack = append(*stack, e)
		return err
	}
	h.logger.Warn("history cleared after partial revert of %q: %v", e.label, err)
	h.undoStack = nil
	h.redoStack = nil
	return err
}

// revert commits the inverse of e's steps, newest first, against the
// document at version and returns the entry recording those commits.
func (h *History) revert(e *entry, version int) (*entry, error) {
	inverse := &entry{label: e.label, timestamp: time.Now()}
	for i := len(e.steps) - 1; i >= 0; i-- {
		tx := h.doc.BeginAt(version).Add(Invert(e.steps[i].changes)...)
		if err := tx.Prepare(); err != nil {
			return inverse, fmt.Errorf("revert %q: %w", e.label, err)
		}
		// The commit slot is held until Apply returns, so the only event
		// recorded into the capture is this commit.
		h.mu.Lock()
		h.capture = inverse
		h.mu.Unlock()
		ev := tx.Apply()
		h.mu.Lock()
		h.capture = nil
		h.mu.Unlock()
		if ev != nil {
			version = ev.Version
		}
	}
	return inverse, nil
}

// CanUndo reports whether an undo entry is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo reports whether a redo entry is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo entries.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo entries.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// UndoInfo describes the undo entries, oldest first.
func (h *History) UndoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undoStack)
}

// RedoInfo describes the redo entries, oldest first.
func (h *History) RedoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redoStack)
}

func infos(stack []*entry) []EntryInfo {
	out := make([]EntryInfo, len(stack))
	for i, e := range stack {
		out[i] = e.info()
	}
	return out
}

// PeekUndo describes the entry Undo would revert.
func (h *History) PeekUndo() (EntryInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) == 0 {
		return EntryInfo{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo describes the entry Redo would re-apply.
func (h *History) PeekRedo() (EntryInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redoStack) == 0 {
		return EntryInfo{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// SetMaxEntries changes the undo limit, dropping the oldest entries beyond
// it. Non-positive values restore the default.
func (h *History) SetMaxEntries(n int) {
	if n <= 0 {
		n = DefaultMaxEntries
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxEntries = n
	if excess := len(h.undoStack) - n; excess > 0 {
		h.undoStack = h.undoStack[excess:]
	}
}

// MaxEntries returns the undo limit.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}

// Clear drops both stacks and any open group.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.group = nil
	h.joinNext = false
}

// Dispose stops recording and drops the stacks.
func (h *History) Dispose() {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	h.disposed = true
	h.mu.Unlock()
	h.sub.Dispose()
	h.Clear()
}
