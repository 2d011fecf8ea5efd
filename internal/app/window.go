package app

import (
	"context"
	"slices"

	"github.com/dshills/exthost/internal/editor"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/cursor"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/uri"
)

// ActiveEditorEvent reports a new active editor. Editor is nil when no
// editor is active.
type ActiveEditorEvent struct {
	Editor *editor.TextEditor
}

// VisibleEditorsEvent carries the visible editors after a change.
type VisibleEditorsEvent struct {
	Editors []*editor.TextEditor
}

// ShowOptions controls ShowDocument.
type ShowOptions struct {
	// PreserveFocus keeps the current active editor.
	PreserveFocus bool
	// Selection, when set, replaces the editor's selections.
	Selection *cursor.Selection
}

// OnDidChangeActiveEditor fires when the active editor changes.
func (c *Context) OnDidChangeActiveEditor() event.Event[ActiveEditorEvent] {
	return c.activeChanged.Event()
}

// OnDidChangeVisibleEditors fires when an editor is shown or closed.
func (c *Context) OnDidChangeVisibleEditors() event.Event[VisibleEditorsEvent] {
	return c.visibleChanged.Event()
}

// ActiveEditor returns the focused editor, or nil.
func (c *Context) ActiveEditor() *editor.TextEditor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// VisibleEditors returns the shown editors in the order they were opened.
func (c *Context) VisibleEditors() []*editor.TextEditor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.visible)
}

// ShowDocument opens u if needed and shows it in an editor. A document
// that is already visible reuses its editor.
func (c *Context) ShowDocument(ctx context.Context, u uri.URI, opts ShowOptions) (*editor.TextEditor, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	doc, ok := c.store.Get(u)
	if !ok {
		var err error
		if doc, err = c.store.Open(ctx, u); err != nil {
			return nil, err
		}
	}
	return c.ShowTextDocument(doc, opts)
}

// ShowTextDocument shows an already open document.
func (c *Context) ShowTextDocument(doc *engine.Document, opts ShowOptions) (*editor.TextEditor, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.mu.Lock()
	ed := c.editorFor(doc)
	created := ed == nil
	if created {
		ed = editor.New(doc,
			editor.WithOptions(editor.Options{
				TabSize:      c.cfg.Editor.TabSize,
				InsertSpaces: c.cfg.Editor.InsertSpaces,
			}),
			editor.WithLogger(c.logger.WithComponent("editor")),
		)
		c.visible = append(c.visible, ed)
	}
	activated := !opts.PreserveFocus || c.active == nil
	activated = activated && c.active != ed
	if activated {
		c.active = ed
	}
	visible := slices.Clone(c.visible)
	c.mu.Unlock()

	if opts.Selection != nil {
		ed.SetSelection(*opts.Selection)
	}
	if created {
		c.logger.Debug("showing %s in editor %s", doc.URI(), ed.ID())
		c.visibleChanged.Fire(VisibleEditorsEvent{Editors: visible})
	}
	if activated {
		c.activeChanged.Fire(ActiveEditorEvent{Editor: ed})
	}
	return ed, nil
}

// SetActiveEditor focuses a visible editor.
func (c *Context) SetActiveEditor(ed *editor.TextEditor) error {
	c.mu.Lock()
	if !slices.Contains(c.visible, ed) {
		c.mu.Unlock()
		return ErrEditorNotVisible
	}
	if c.active == ed {
		c.mu.Unlock()
		return nil
	}
	c.active = ed
	c.mu.Unlock()

	c.activeChanged.Fire(ActiveEditorEvent{Editor: ed})
	return nil
}

// CloseEditor hides and disposes an editor. The document stays open. When
// the active editor closes, the most recently opened visible editor becomes
// active.
func (c *Context) CloseEditor(ed *editor.TextEditor) error {
	c.mu.Lock()
	i := slices.Index(c.visible, ed)
	if i < 0 {
		c.mu.Unlock()
		return ErrEditorNotVisible
	}
	c.visible = slices.Delete(c.visible, i, i+1)
	visible := slices.Clone(c.visible)
	activeChanged := c.active == ed
	if activeChanged {
		c.active = nil
		if n := len(c.visible); n > 0 {
			c.active = c.visible[n-1]
		}
	}
	active := c.active
	c.mu.Unlock()

	ed.Dispose()
	c.visibleChanged.Fire(VisibleEditorsEvent{Editors: visible})
	if activeChanged {
		c.activeChanged.Fire(ActiveEditorEvent{Editor: active})
	}
	return nil
}

// editorFor returns the visible editor of doc. Callers hold mu.
func (c *Context) editorFor(doc *engine.Document) *editor.TextEditor {
	for _, ed := range c.visible {
		if ed.Document() == doc {
			return ed
		}
	}
	return nil
}

func (c *Context) onDocumentClosed(doc *engine.Document) {
	c.mu.RLock()
	ed := c.editorFor(doc)
	c.mu.RUnlock()
	if ed != nil {
		_ = c.CloseEditor(ed)
	}
}
