package lsp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fortio.org/safecast"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/dshills/exthost/internal/app"
	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/languages"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
	"github.com/dshills/exthost/internal/workspace"
)

// Server errors.
var (
	ErrNotOpen      = errors.New("document not open")
	ErrStaleVersion = errors.New("stale document version")
)

// Server is a language server backed by an app.Context. Client buffers
// live in the context's store, incremental changes are committed as
// transactions and the providers registered in the context's registry
// answer requests. Diagnostics from every collection are published.
type Server struct {
	host    *app.Context
	handler protocol.Handler
	logger  *logging.Logger

	name    string
	version string
	debug   bool

	collection *diagnostics.Collection
	subs       event.Bag

	mu     sync.Mutex
	notify func(method string, params any)
	// versions holds the client's version of each open document. Document
	// versions count commits and drift from it when a notification carries
	// several changes.
	versions map[uri.URI]protocol.Integer
}

// Option configures a Server.
type Option func(*Server)

// WithName sets the server name reported to clients and used for logging.
func WithName(name string) Option {
	return func(s *Server) { s.name = name }
}

// WithVersion sets the reported server version.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithDebug enables protocol debug logging.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// NewServer creates a server for host.
func NewServer(host *app.Context, opts ...Option) *Server {
	s := &Server{
		host:   host,
		logger: host.Logger().WithComponent("lsp"),
		name:     "exthost",
		versions: make(map[uri.URI]protocol.Integer),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.collection = host.Diagnostics().CreateCollection("lsp")
	s.subs.Add(host.Diagnostics().OnDidChange()(s.onDiagnosticsChanged))

	s.handler = protocol.Handler{
		Initialize:                  s.initialize,
		Initialized:                 s.initialized,
		Shutdown:                    s.shutdown,
		SetTrace:                    s.setTrace,
		TextDocumentDidOpen:         s.didOpen,
		TextDocumentDidChange:       s.didChange,
		TextDocumentDidSave:         s.didSave,
		TextDocumentDidClose:        s.didClose,
		TextDocumentHover:           s.hover,
		TextDocumentFormatting:      s.formatting,
		TextDocumentRangeFormatting: s.rangeFormatting,
	}
	return s
}

// Handler returns the protocol handler.
func (s *Server) Handler() *protocol.Handler {
	return &s.handler
}

// RunStdio serves the protocol on stdin and stdout until the client exits.
func (s *Server) RunStdio() error {
	s.logger.Info("starting %s on stdio", s.name)
	return server.NewServer(&s.handler, s.name, s.debug).RunStdio()
}

// Dispose releases the server's collection and subscriptions.
func (s *Server) Dispose() {
	s.subs.Dispose()
	s.collection.Dispose()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.mu.Lock()
	s.notify = ctx.Notify
	s.mu.Unlock()

	if params.ClientInfo != nil {
		s.logger.Info("client %s connected", params.ClientInfo.Name)
	}

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.False},
	}

	info := &protocol.InitializeResultServerInfo{Name: s.name}
	if s.version != "" {
		version := s.version
		info.Version = &version
	}
	return protocol.InitializeResult{Capabilities: capabilities, ServerInfo: info}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	u, err := uri.Parse(item.URI)
	if err != nil {
		return err
	}

	store := s.host.Store()
	doc, err := store.OpenText(u, item.LanguageID, item.Text, engine.WithVersion(int(item.Version)))
	if errors.Is(err, workspace.ErrAlreadyOpen) {
		// The client now owns the buffer; take its content.
		doc, _ = store.Get(u)
		err = s.replaceAll(doc, item.Text)
	}
	if err != nil {
		return err
	}
	s.setClientVersion(u, item.Version)
	s.logger.Debug("opened %s (%s)", u, doc.LanguageID())
	s.validate(doc)
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return err
	}
	version := params.TextDocument.Version
	if last, ok := s.ClientVersion(doc.URI()); ok && version <= last {
		s.logger.Warn("change of %s at version %d ignored, already at %d", doc.URI(), version, last)
		return fmt.Errorf("%w: %d after %d", ErrStaleVersion, version, last)
	}
	n, err := ApplyContentChanges(doc, params.ContentChanges)
	if err != nil {
		s.logger.Warn("change of %s rejected: %v", doc.URI(), err)
		if n > 0 {
			s.validate(doc)
		}
		return err
	}
	s.setClientVersion(doc.URI(), version)
	if n > 0 {
		s.validate(doc)
	}
	return nil
}

func (s *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if params.Text != nil && *params.Text != doc.Text() {
		if err := s.replaceAll(doc, *params.Text); err != nil {
			return err
		}
	}
	doc.MarkSaved()
	s.validate(doc)
	return nil
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	u, err := uri.Parse(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if err := s.host.Store().Close(u); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.versions, u)
	s.mu.Unlock()
	_, err = s.collection.Delete(u).Await(context.Background())
	return err
}

func (s *Server) hover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	pos, err := FromPosition(params.Position)
	if err != nil {
		return nil, err
	}

	hovers := s.host.Languages().Hovers(context.Background(), doc, pos)
	if len(hovers) == 0 {
		return nil, nil
	}
	var (
		parts []string
		rng   *protocol.Range
	)
	for _, h := range hovers {
		parts = append(parts, h.Contents...)
		if rng == nil && h.Range != nil {
			r, err := ToRange(*h.Range)
			if err != nil {
				return nil, err
			}
			rng = &r
		}
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(parts, "\n\n---\n\n"),
		},
		Range: rng,
	}, nil
}

func (s *Server) formatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	edits, ok := s.host.Languages().FormatDocument(context.Background(), doc, s.formattingOptions(params.Options))
	if !ok {
		return nil, nil
	}
	return ToTextEdits(edits)
}

func (s *Server) rangeFormatting(ctx *glsp.Context, params *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	r, err := FromRange(params.Range)
	if err != nil {
		return nil, err
	}
	edits, ok := s.host.Languages().FormatRange(context.Background(), doc, r, s.formattingOptions(params.Options))
	if !ok {
		return nil, nil
	}
	return ToTextEdits(edits)
}

// formattingOptions reads the tab settings of a request, falling back to
// the editor configuration.
func (s *Server) formattingOptions(opts protocol.FormattingOptions) languages.FormattingOptions {
	editor := s.host.Config().Editor
	out := languages.FormattingOptions{TabSize: editor.TabSize, InsertSpaces: editor.InsertSpaces}
	switch v := opts["tabSize"].(type) {
	case float64:
		out.TabSize = int(v)
	case protocol.UInteger:
		out.TabSize = int(v)
	case int:
		out.TabSize = v
	}
	if v, ok := opts["insertSpaces"].(bool); ok {
		out.InsertSpaces = v
	}
	return out
}

func (s *Server) document(raw protocol.DocumentUri) (*engine.Document, error) {
	u, err := uri.Parse(raw)
	if err != nil {
		return nil, err
	}
	doc, ok := s.host.Store().Get(u)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, u)
	}
	return doc, nil
}

func (s *Server) replaceAll(doc *engine.Document, text string) error {
	_, err := doc.Begin().Replace(doc.ValidateRange(wholeDocument), text).Commit()
	return err
}

// validate runs the diagnostics providers for doc and stores the result in
// the server's collection, which triggers publishing.
func (s *Server) validate(doc *engine.Document) {
	diags := s.host.Languages().Diagnostics(context.Background(), doc)
	if _, err := s.collection.Set(doc.URI(), diags).Await(context.Background()); err != nil {
		s.logger.Warn("diagnostics for %s: %v", doc.URI(), err)
	}
}

// ClientVersion returns the version the client last reported for u.
func (s *Server) ClientVersion(u uri.URI) (protocol.Integer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[u]
	return v, ok
}

func (s *Server) setClientVersion(u uri.URI, v protocol.Integer) {
	s.mu.Lock()
	s.versions[u] = v
	s.mu.Unlock()
}

func (s *Server) onDiagnosticsChanged(ev diagnostics.ChangeEvent) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify == nil {
		return
	}

	for _, u := range ev.URIs {
		diags, err := ToDiagnostics(s.host.Diagnostics().Get(u))
		if err != nil {
			s.logger.Warn("publish %s: %v", u, err)
			continue
		}
		params := protocol.PublishDiagnosticsParams{
			URI:         u.String(),
			Diagnostics: diags,
		}
		if v, ok := s.ClientVersion(u); ok {
			if version, err := safecast.Conv[protocol.UInteger](v); err == nil {
				params.Version = &version
			}
		}
		notify("textDocument/publishDiagnostics", params)
	}
}
