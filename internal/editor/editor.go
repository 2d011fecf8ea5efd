package editor

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/exthost/internal/async"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/cursor"
	"github.com/dshills/exthost/internal/engine/history"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/logging"
)

// ErrDisposed is returned by operations on a disposed editor.
var ErrDisposed = errors.New("editor disposed")

// SelectionChangeKind describes what moved the selections.
type SelectionChangeKind uint8

const (
	// ChangeCommand is an explicit SetSelections call.
	ChangeCommand SelectionChangeKind = iota
	// ChangeEdit is a remap caused by a document change.
	ChangeEdit
)

// String returns the kind name.
func (k SelectionChangeKind) String() string {
	if k == ChangeEdit {
		return "edit"
	}
	return "command"
}

// SelectionChangeEvent is fired after an editor's selections change.
type SelectionChangeEvent struct {
	Editor     *TextEditor
	Selections []cursor.Selection
	Kind       SelectionChangeKind
}

// OptionsChangeEvent is fired after an editor's options change.
type OptionsChangeEvent struct {
	Editor  *TextEditor
	Options Options
}

// TextEditor is a view of one document with its own selections and
// options. Several editors may show the same document; each remaps its
// selections independently when the document changes.
type TextEditor struct {
	id  string
	doc *engine.Document

	mu         sync.Mutex
	selections *cursor.Set
	options    Options
	disposed   bool

	history    *history.History
	ownHistory bool

	selectionChanged *event.Emitter[SelectionChangeEvent]
	optionsChanged   *event.Emitter[OptionsChangeEvent]
	sub              event.Disposable
	logger           *logging.Logger
}

// Option configures a TextEditor.
type Option func(*TextEditor)

// WithOptions sets the initial editor options.
func WithOptions(o Options) Option {
	return func(e *TextEditor) {
		e.options = o.normalize()
	}
}

// WithSelections sets the initial selections.
func WithSelections(selections ...cursor.Selection) Option {
	return func(e *TextEditor) {
		e.selections.Replace(selections)
	}
}

// WithHistory makes the editor undo through h, which the caller owns.
// Without it the editor records its own history.
func WithHistory(h *history.History) Option {
	return func(e *TextEditor) {
		e.history = h
	}
}

// WithLogger sets the editor's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *TextEditor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an editor on doc with a single cursor at the start of the
// document.
func New(doc *engine.Document, opts ...Option) *TextEditor {
	e := &TextEditor{
		id:         uuid.NewString(),
		doc:        doc,
		selections: cursor.NewSet(),
		options:    DefaultOptions(),
		logger:     logging.Nop,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("editor", e.id)
	e.selections.Clamp(doc.ValidatePosition)
	if e.history == nil {
		e.history = history.New(doc, history.WithLogger(e.logger))
		e.ownHistory = true
	}

	onError := event.WithErrorHandler(func(err error) {
		e.logger.Error("editor listener failed: %v", err)
	})
	e.selectionChanged = event.NewEmitter[SelectionChangeEvent]("editor.selection", onError)
	e.optionsChanged = event.NewEmitter[OptionsChangeEvent]("editor.options", onError)
	e.sub = doc.OnDidChange()(e.onDocumentChange)
	return e
}

// ID returns the editor's unique identifier.
func (e *TextEditor) ID() string { return e.id }

// Document returns the document shown by the editor.
func (e *TextEditor) Document() *engine.Document { return e.doc }

// History returns the undo history used by Undo and Redo.
func (e *TextEditor) History() *history.History { return e.history }

// OnDidChangeSelection fires after the selections change.
func (e *TextEditor) OnDidChangeSelection() event.Event[SelectionChangeEvent] {
	return e.selectionChanged.Event()
}

// OnDidChangeOptions fires after the options change.
func (e *TextEditor) OnDidChangeOptions() event.Event[OptionsChangeEvent] {
	return e.optionsChanged.Event()
}

// Selection returns the primary selection.
func (e *TextEditor) Selection() cursor.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selections.Primary()
}

// Selections returns all selections, primary first.
func (e *TextEditor) Selections() []cursor.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selections.All()
}

// SetSelection replaces all selections with s.
func (e *TextEditor) SetSelection(s cursor.Selection) {
	e.SetSelections([]cursor.Selection{s})
}

// SetSelections replaces the selections. Positions are clamped to the
// document. An empty list leaves a single cursor at the document start.
func (e *TextEditor) SetSelections(selections []cursor.Selection) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	if e.selections.Equal(selections) {
		e.mu.Unlock()
		return
	}
	e.selections.Replace(selections)
	e.selections.Clamp(e.doc.ValidatePosition)
	all := e.selections.All()
	e.mu.Unlock()

	e.selectionChanged.Fire(SelectionChangeEvent{Editor: e, Selections: all, Kind: ChangeCommand})
}

// Options returns the editor options.
func (e *TextEditor) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.options
}

// SetOptions replaces the options and fires OnDidChangeOptions when they
// differ.
func (e *TextEditor) SetOptions(o Options) {
	o = o.normalize()
	e.mu.Lock()
	if e.disposed || e.options == o {
		e.mu.Unlock()
		return
	}
	e.options = o
	e.mu.Unlock()

	e.optionsChanged.Fire(OptionsChangeEvent{Editor: e, Options: o})
}

// EditOptions control how an edit joins the undo history.
type EditOptions struct {
	// UndoStopBefore starts a new undo entry for the edit. Without it the
	// edit joins the previous entry.
	UndoStopBefore bool
	// UndoStopAfter ends the entry after the edit. Without it the next
	// commit joins the edit's entry.
	UndoStopAfter bool
}

// DefaultEditOptions give every edit its own undo entry.
var DefaultEditOptions = EditOptions{UndoStopBefore: true, UndoStopAfter: true}

// Edit runs fn with a builder bound to the document's current version and
// commits the collected operations as one transaction. The future resolves
// to true when the edit applied. It resolves to false with the error when
// the document changed in the meantime or the operations are invalid.
func (e *TextEditor) Edit(fn func(b *EditBuilder)) *async.Future[bool] {
	return e.EditWithOptions(fn, DefaultEditOptions)
}

// EditWithOptions is Edit with control over undo stops.
func (e *TextEditor) EditWithOptions(fn func(b *EditBuilder), opts EditOptions) *async.Future[bool] {
	e.mu.Lock()
	disposed := e.disposed
	e.mu.Unlock()
	if disposed {
		return async.Rejected[bool](ErrDisposed)
	}

	b := &EditBuilder{tx: e.doc.BeginAt(e.doc.Version())}
	fn(b)
	// A join requested by this edit must not outlive it when nothing
	// commits. One left by an earlier UndoStopAfter stays pending.
	pending := e.history.JoinPending()
	if !opts.UndoStopBefore {
		e.history.JoinNext()
	}
	ev, err := b.tx.Commit()
	if ev == nil && !opts.UndoStopBefore && !pending {
		e.history.CancelJoin()
	}
	if err != nil {
		e.logger.Debug("edit rejected: %v", err)
		return async.Rejected[bool](err)
	}
	if ev != nil && !opts.UndoStopAfter {
		e.history.JoinNext()
	}
	return async.Resolved(true)
}

// Undo reverts the newest undo entry of the document.
func (e *TextEditor) Undo() *async.Future[bool] {
	return e.step(e.history.Undo)
}

// Redo re-applies the newest undone entry.
func (e *TextEditor) Redo() *async.Future[bool] {
	return e.step(e.history.Redo)
}

func (e *TextEditor) step(fn func() error) *async.Future[bool] {
	e.mu.Lock()
	disposed := e.disposed
	e.mu.Unlock()
	if disposed {
		return async.Rejected[bool](ErrDisposed)
	}
	err := fn()
	switch {
	case errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrNothingToRedo):
		return async.Resolved(false)
	case err != nil:
		return async.Rejected[bool](err)
	}
	return async.Resolved(true)
}

func (e *TextEditor) onDocumentChange(ev engine.ChangeEvent) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	changed := e.selections.Remap(ev.Changes, e.doc.ValidatePosition)
	all := e.selections.All()
	e.mu.Unlock()

	if changed {
		e.selectionChanged.Fire(SelectionChangeEvent{Editor: e, Selections: all, Kind: ChangeEdit})
	}
}

// Dispose detaches the editor from its document and drops its listeners.
func (e *TextEditor) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.mu.Unlock()

	e.sub.Dispose()
	if e.ownHistory {
		e.history.Dispose()
	}
	e.selectionChanged.Dispose()
	e.optionsChanged.Dispose()
}

// EditBuilder collects the operations of one TextEditor.Edit call.
type EditBuilder struct {
	tx *engine.Transaction
}

// Replace replaces r with text.
func (b *EditBuilder) Replace(r engine.Range, text string) {
	b.tx.Replace(r, text)
}

// Insert inserts text at p.
func (b *EditBuilder) Insert(p engine.Position, text string) {
	b.tx.Insert(p, text)
}

// Delete removes the text in r.
func (b *EditBuilder) Delete(r engine.Range) {
	b.tx.Delete(r)
}
