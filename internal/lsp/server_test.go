package lsp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dshills/exthost/internal/app"
	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/languages"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/workspace"
)

const docURI = "file:///w/notes.txt"

type published struct {
	mu    sync.Mutex
	calls []protocol.PublishDiagnosticsParams
}

func (p *published) notify(method string, params any) {
	if method != "textDocument/publishDiagnostics" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, params.(protocol.PublishDiagnosticsParams))
}

func (p *published) last(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		t.Fatal("nothing published")
	}
	return p.calls[len(p.calls)-1]
}

func (p *published) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// todoLinter warns about every TODO on a line.
func todoLinter(ctx context.Context, doc *engine.Document) ([]diagnostics.Diagnostic, error) {
	var out []diagnostics.Diagnostic
	for i, line := range strings.Split(doc.Text(), "\n") {
		if col := strings.Index(line, "TODO"); col >= 0 {
			d := diagnostics.New(buffer.MustRange(i, col, i, col+4), "todo left")
			d.Severity = diagnostics.SeverityWarning
			d.Source = "todo"
			out = append(out, d)
		}
	}
	return out, nil
}

func setup(t *testing.T) (*Server, *glsp.Context, *published) {
	t.Helper()
	host, err := app.New(app.WithStorage(workspace.NewMemStorage()), app.WithLogger(logging.Nop))
	if err != nil {
		t.Fatal(err)
	}
	host.Languages().RegisterDiagnosticsProvider(languages.ForLanguages("plaintext"), languages.DiagnosticsFunc(todoLinter))

	s := NewServer(host, WithName("test"), WithVersion("1.2.3"))
	t.Cleanup(func() {
		s.Dispose()
		_ = host.Close()
	})

	pub := &published{}
	ctx := &glsp.Context{Notify: pub.notify}
	if _, err := s.initialize(ctx, &protocol.InitializeParams{}); err != nil {
		t.Fatal(err)
	}
	return s, ctx, pub
}

func open(t *testing.T, s *Server, ctx *glsp.Context, text string) {
	t.Helper()
	err := s.didOpen(ctx, &protocol.DidOpenTextDocumentParams{TextDocument: protocol.TextDocumentItem{
		URI: docURI, LanguageID: "plaintext", Version: 5, Text: text,
	}})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInitialize(t *testing.T) {
	s, ctx, _ := setup(t)
	res, err := s.initialize(ctx, &protocol.InitializeParams{})
	if err != nil {
		t.Fatal(err)
	}
	result, ok := res.(protocol.InitializeResult)
	if !ok {
		t.Fatalf("unexpected result %T", res)
	}
	if result.ServerInfo == nil || result.ServerInfo.Name != "test" || result.ServerInfo.Version == nil || *result.ServerInfo.Version != "1.2.3" {
		t.Errorf("unexpected server info %+v", result.ServerInfo)
	}
	syncOpts, ok := result.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	if !ok || syncOpts.Change == nil || *syncOpts.Change != protocol.TextDocumentSyncKindIncremental {
		t.Errorf("expected incremental sync, got %#v", result.Capabilities.TextDocumentSync)
	}
	if result.Capabilities.HoverProvider == nil {
		t.Error("hover capability must be advertised")
	}
}

func TestOpenPublishesDiagnostics(t *testing.T) {
	s, ctx, pub := setup(t)
	open(t, s, ctx, "one\nTODO two\n")

	doc, err := s.document(docURI)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version() != 5 || doc.LanguageID() != "plaintext" {
		t.Errorf("unexpected document %s v%d", doc.LanguageID(), doc.Version())
	}

	p := pub.last(t)
	if p.URI != docURI || len(p.Diagnostics) != 1 {
		t.Fatalf("unexpected publish %+v", p)
	}
	d := p.Diagnostics[0]
	if d.Range.Start.Line != 1 || d.Range.Start.Character != 0 || *d.Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestChangeRepublishes(t *testing.T) {
	s, ctx, pub := setup(t)
	open(t, s, ctx, "TODO\n")
	before := pub.count()

	err := s.didChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
			Version:                6,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{
					Start: protocol.Position{Line: 0, Character: 0},
					End:   protocol.Position{Line: 0, Character: 4},
				},
				Text: "done",
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if pub.count() != before+1 {
		t.Fatalf("expected one more publish, got %d", pub.count()-before)
	}
	if p := pub.last(t); len(p.Diagnostics) != 0 || p.Diagnostics == nil {
		t.Errorf("expected an empty diagnostics list, got %v", p.Diagnostics)
	}

	doc, _ := s.document(docURI)
	if doc.Text() != "done\n" {
		t.Errorf("unexpected text %q", doc.Text())
	}
}

func TestChangeTracksClientVersion(t *testing.T) {
	s, ctx, pub := setup(t)
	open(t, s, ctx, "TODO\n")

	insert := func(col uint32, text string) protocol.TextDocumentContentChangeEvent {
		return protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: col},
				End:   protocol.Position{Line: 0, Character: col},
			},
			Text: text,
		}
	}
	change := func(version protocol.Integer, changes ...any) error {
		return s.didChange(ctx, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
				Version:                version,
			},
			ContentChanges: changes,
		})
	}

	if err := change(6, insert(4, "!"), insert(5, "?")); err != nil {
		t.Fatal(err)
	}
	doc, _ := s.document(docURI)
	if doc.Text() != "TODO!?\n" {
		t.Fatalf("unexpected text %q", doc.Text())
	}
	if v, ok := s.ClientVersion(doc.URI()); !ok || v != 6 {
		t.Errorf("expected client version 6, got %d", v)
	}
	if p := pub.last(t); p.Version == nil || *p.Version != 6 {
		t.Errorf("diagnostics must carry the client version, got %v", p.Version)
	}

	if err := change(6, insert(0, "x")); !errors.Is(err, ErrStaleVersion) {
		t.Errorf("expected ErrStaleVersion, got %v", err)
	}
	if err := change(7, insert(0, "x"), insert(99, "y")); err == nil {
		t.Error("expected an out of range change to fail")
	}
	if doc.Text() != "TODO!?\n" {
		t.Errorf("rejected changes must not commit, got %q", doc.Text())
	}
	if v, _ := s.ClientVersion(doc.URI()); v != 6 {
		t.Errorf("a rejected change must not advance the client version, got %d", v)
	}
}

func TestReopenTakesClientText(t *testing.T) {
	s, ctx, _ := setup(t)
	open(t, s, ctx, "first")
	open(t, s, ctx, "second")
	doc, _ := s.document(docURI)
	if doc.Text() != "second" {
		t.Errorf("expected client text, got %q", doc.Text())
	}
}

func TestSaveAndClose(t *testing.T) {
	s, ctx, pub := setup(t)
	open(t, s, ctx, "TODO")
	doc, _ := s.document(docURI)

	text := "saved"
	err := s.didSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		Text:         &text,
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Text() != "saved" || doc.IsDirty() {
		t.Errorf("expected clean saved text, got %q dirty=%v", doc.Text(), doc.IsDirty())
	}
	if p := pub.last(t); len(p.Diagnostics) != 0 {
		t.Errorf("expected diagnostics to clear, got %v", p.Diagnostics)
	}

	if err := s.didClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.document(docURI); !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
	err = s.didChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
		},
	})
	if !errors.Is(err, ErrNotOpen) {
		t.Errorf("changes to closed documents must fail, got %v", err)
	}
}

func TestHover(t *testing.T) {
	s, ctx, _ := setup(t)
	reg := s.host.Languages()
	word := buffer.MustRange(0, 0, 0, 5)
	reg.RegisterHoverProvider(languages.ForLanguages("plaintext"), languages.HoverFunc(
		func(ctx context.Context, doc *engine.Document, pos engine.Position) (*languages.Hover, error) {
			return &languages.Hover{Contents: []string{"**hello**"}, Range: &word}, nil
		}))
	reg.RegisterHoverProvider(languages.ForLanguages("*"), languages.HoverFunc(
		func(ctx context.Context, doc *engine.Document, pos engine.Position) (*languages.Hover, error) {
			return &languages.Hover{Contents: []string{"generic"}}, nil
		}))
	open(t, s, ctx, "hello world")

	h, err := s.hover(ctx, &protocol.HoverParams{TextDocumentPositionParams: protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		Position:     protocol.Position{Line: 0, Character: 2},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if h == nil {
		t.Fatal("expected a hover")
	}
	content, ok := h.Contents.(protocol.MarkupContent)
	if !ok || content.Kind != protocol.MarkupKindMarkdown {
		t.Fatalf("expected markdown, got %#v", h.Contents)
	}
	if !strings.Contains(content.Value, "**hello**") || !strings.Contains(content.Value, "generic") {
		t.Errorf("expected both hovers merged, got %q", content.Value)
	}
	if h.Range == nil || h.Range.End.Character != 5 {
		t.Errorf("expected the provider range, got %v", h.Range)
	}
}

func TestFormatting(t *testing.T) {
	s, ctx, _ := setup(t)
	var got languages.FormattingOptions
	s.host.Languages().RegisterFormattingProvider(languages.ForLanguages("plaintext"), languages.FormattingFunc(
		func(ctx context.Context, doc *engine.Document, opts languages.FormattingOptions) ([]engine.Edit, error) {
			got = opts
			return []engine.Edit{engine.NewInsert(engine.Position{}, strings.Repeat(" ", opts.TabSize))}, nil
		}))
	open(t, s, ctx, "x")

	edits, err := s.formatting(ctx, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		Options:      protocol.FormattingOptions{"tabSize": float64(2), "insertSpaces": false},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.TabSize != 2 || got.InsertSpaces {
		t.Errorf("unexpected options %+v", got)
	}
	if len(edits) != 1 || edits[0].NewText != "  " {
		t.Errorf("unexpected edits %v", edits)
	}
}

func TestFormattingOptionsDefaults(t *testing.T) {
	s, _, _ := setup(t)
	cfg := s.host.Config().Editor
	got := s.formattingOptions(protocol.FormattingOptions{})
	if got.TabSize != cfg.TabSize || got.InsertSpaces != cfg.InsertSpaces {
		t.Errorf("expected editor defaults, got %+v", got)
	}
	got = s.formattingOptions(protocol.FormattingOptions{"tabSize": protocol.UInteger(8)})
	if got.TabSize != 8 {
		t.Errorf("expected tab size 8, got %d", got.TabSize)
	}
}

func TestOtherCollectionsArePublished(t *testing.T) {
	s, ctx, pub := setup(t)
	open(t, s, ctx, "clean")

	other := s.host.Diagnostics().CreateCollection("external")
	defer other.Dispose()
	doc, _ := s.document(docURI)
	if _, err := other.Set(doc.URI(), []diagnostics.Diagnostic{
		diagnostics.New(buffer.MustRange(0, 0, 0, 1), "from elsewhere"),
	}).Result(); err != nil {
		t.Fatal(err)
	}
	p := pub.last(t)
	if len(p.Diagnostics) != 1 || p.Diagnostics[0].Message != "from elsewhere" {
		t.Errorf("unexpected publish %+v", p)
	}
}
