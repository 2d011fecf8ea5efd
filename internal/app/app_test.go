package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dshills/exthost/internal/config"
	"github.com/dshills/exthost/internal/editor"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/engine/cursor"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
	"github.com/dshills/exthost/internal/workspace"
)

func setup(t *testing.T, cfg *config.Config, files map[string]string) *Context {
	t.Helper()
	mem := workspace.NewMemStorage()
	for path, text := range files {
		mem.Put(path, []byte(text))
	}
	if cfg == nil {
		cfg = config.Default()
	}
	c, err := New(WithConfig(cfg), WithStorage(mem), WithLogger(logging.Nop))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew(t *testing.T) {
	c := setup(t, nil, nil)
	if c.Policy() != workspace.PolicyAtomic {
		t.Errorf("expected atomic policy, got %s", c.Policy())
	}
	if c.Store() == nil || c.Languages() == nil || c.Diagnostics() == nil || c.Logger() == nil {
		t.Fatal("context components must be initialized")
	}
	if c.ActiveEditor() != nil || len(c.VisibleEditors()) != 0 {
		t.Error("a new context has no editors")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := c.ApplyEdit(context.Background(), workspace.NewEdit()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from ApplyEdit, got %v", err)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace.EditPolicy = "sometimes"
	_, err := New(WithConfig(cfg), WithLogger(logging.Nop))
	if !errors.Is(err, ErrInitialization) {
		t.Fatalf("expected ErrInitialization, got %v", err)
	}
	var ie *InitError
	if !errors.As(err, &ie) || ie.Component != "config" {
		t.Errorf("expected config InitError, got %v", err)
	}
}

func TestShowDocument(t *testing.T) {
	c := setup(t, nil, map[string]string{
		"/w/a.go": "package a\n",
		"/w/b.go": "package b\n",
	})
	ctx := context.Background()

	var active []*editor.TextEditor
	c.OnDidChangeActiveEditor()(func(ev ActiveEditorEvent) { active = append(active, ev.Editor) })
	visibleEvents := 0
	c.OnDidChangeVisibleEditors()(func(VisibleEditorsEvent) { visibleEvents++ })

	a, err := c.ShowDocument(ctx, uri.File("/w/a.go"), ShowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if c.ActiveEditor() != a || a.Document().LanguageID() != "go" {
		t.Fatalf("expected active go editor, got %v", c.ActiveEditor())
	}

	again, err := c.ShowDocument(ctx, uri.File("/w/a.go"), ShowOptions{})
	if err != nil || again != a {
		t.Fatalf("showing a visible document must reuse its editor: %v", err)
	}

	sel := cursor.NewCursorSelection(engine.Position{Line: 0, Character: 3})
	b, err := c.ShowDocument(ctx, uri.File("/w/b.go"), ShowOptions{PreserveFocus: true, Selection: &sel})
	if err != nil {
		t.Fatal(err)
	}
	if c.ActiveEditor() != a {
		t.Error("PreserveFocus must keep the active editor")
	}
	if b.Selection() != sel {
		t.Errorf("expected selection %s, got %s", sel, b.Selection())
	}
	if got := c.VisibleEditors(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("unexpected visible editors %v", got)
	}

	if err := c.CloseEditor(a); err != nil {
		t.Fatal(err)
	}
	if c.ActiveEditor() != b {
		t.Error("closing the active editor must activate the remaining one")
	}
	if err := c.CloseEditor(a); !errors.Is(err, ErrEditorNotVisible) {
		t.Errorf("expected ErrEditorNotVisible, got %v", err)
	}
	if _, ok := c.Store().Get(uri.File("/w/a.go")); !ok {
		t.Error("closing an editor must keep the document open")
	}

	if len(active) != 2 || active[0] != a || active[1] != b {
		t.Errorf("unexpected active editor events %v", active)
	}
	if visibleEvents != 3 {
		t.Errorf("expected 3 visible editor events, got %d", visibleEvents)
	}
}

func TestShowDocumentMissing(t *testing.T) {
	c := setup(t, nil, nil)
	_, err := c.ShowDocument(context.Background(), uri.File("/nope.txt"), ShowOptions{})
	if !errors.Is(err, workspace.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestSetActiveEditor(t *testing.T) {
	c := setup(t, nil, nil)
	doc := c.Store().NewUntitled("plaintext", "x")
	ed, err := c.ShowTextDocument(doc, ShowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetActiveEditor(ed); err != nil {
		t.Fatal(err)
	}

	other := editor.New(doc)
	defer other.Dispose()
	if err := c.SetActiveEditor(other); !errors.Is(err, ErrEditorNotVisible) {
		t.Errorf("expected ErrEditorNotVisible, got %v", err)
	}
}

func TestDocumentCloseHidesEditor(t *testing.T) {
	c := setup(t, nil, map[string]string{"/w/a.txt": "a"})
	u := uri.File("/w/a.txt")
	if _, err := c.ShowDocument(context.Background(), u, ShowOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Store().Close(u); err != nil {
		t.Fatal(err)
	}
	if c.ActiveEditor() != nil || len(c.VisibleEditors()) != 0 {
		t.Error("closing a document must close its editor")
	}
}

func TestConfigApplied(t *testing.T) {
	cfg := config.Default()
	cfg.Editor.TabSize = 2
	cfg.Editor.InsertSpaces = false
	cfg.Editor.EOL = "crlf"
	cfg.Languages["mylang"] = config.LanguageConfig{Extensions: []string{"ml"}, WordPattern: `[a-z]+`}
	c := setup(t, cfg, map[string]string{"/w/x.ml": "abc-def"})

	ed, err := c.ShowDocument(context.Background(), uri.File("/w/x.ml"), ShowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	doc := ed.Document()
	if doc.LanguageID() != "mylang" {
		t.Errorf("expected configured language, got %q", doc.LanguageID())
	}
	if doc.EOL() != engine.EOLCRLF {
		t.Errorf("expected configured EOL, got %s", doc.EOL())
	}
	if o := ed.Options(); o.TabSize != 2 || o.InsertSpaces {
		t.Errorf("expected configured editor options, got %+v", o)
	}
	r, ok := doc.WordRangeAtPosition(engine.Position{Line: 0, Character: 5}, nil)
	if !ok || r != buffer.MustRange(0, 4, 0, 7) {
		t.Errorf("expected configured word pattern, got %v %v", r, ok)
	}
}

func TestApplyEdit(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace.EditPolicy = "best-effort"
	c := setup(t, cfg, map[string]string{"/w/a.txt": "hello", "/w/b.txt": "world"})
	ctx := context.Background()

	ed, err := c.ShowDocument(ctx, uri.File("/w/a.txt"), ShowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	ed.SetSelection(cursor.NewCursorSelection(engine.Position{Line: 0, Character: 5}))

	e := workspace.NewEdit()
	e.Insert(uri.File("/w/a.txt"), engine.Position{Line: 0, Character: 0}, ">> ")
	e.Replace(uri.File("/w/b.txt"), buffer.MustRange(0, 0, 0, 99), "x")

	res, err := c.ApplyEdit(ctx, e)
	if err != nil {
		t.Fatal(err)
	}
	if res.Policy != workspace.PolicyBestEffort || res.Applied {
		t.Fatalf("expected partial best-effort result, got %+v", res)
	}
	if ed.Document().Text() != ">> hello" {
		t.Errorf("unexpected text %q", ed.Document().Text())
	}
	if got := ed.Selection().Active; got.Character != 8 {
		t.Errorf("editor selection must follow the edit, got %v", got)
	}
	if len(res.Failed) != 1 || res.Failed[0] != uri.File("/w/b.txt") {
		t.Errorf("expected b.txt to fail, got %v", res.Failed)
	}
}

func TestBackupOnClose(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace.Backup = filepath.Join(t.TempDir(), "backup.msgpack")

	c, err := New(WithConfig(cfg), WithStorage(workspace.NewMemStorage()), WithLogger(logging.Nop))
	if err != nil {
		t.Fatal(err)
	}
	doc := c.Store().NewUntitled("markdown", "# notes")
	name := doc.URI()
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	restored := setup(t, cfg, nil)
	docs, err := restored.RestoreBackup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].URI() != name || docs[0].Text() != "# notes" || !docs[0].IsDirty() {
		t.Errorf("unexpected restored documents %v", docs)
	}
}
