package workspace

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/exthost/internal/async"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
)

// DefaultMaxFileSize is the largest file Open loads.
const DefaultMaxFileSize = 10 * 1024 * 1024

// Store is the registry of open documents. At most one live document exists
// per URI. The store forwards every document's change events and fires its
// own open, close and save events.
//
// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	documents map[uri.URI]*entry
	untitled  int

	storage      Storage
	languages    *Languages
	wordPatterns map[string]*regexp.Regexp
	eol          *engine.EOL
	maxFileSize  int64
	logger       *logging.Logger

	opened  *event.Emitter[*engine.Document]
	closed  *event.Emitter[*engine.Document]
	changed *event.Emitter[engine.ChangeEvent]
	saved   *event.Emitter[*engine.Document]
}

type entry struct {
	doc *engine.Document
	sub event.Disposable
}

// Option configures a Store.
type Option func(*Store)

// WithStorage sets the file system documents are loaded from and saved to.
func WithStorage(s Storage) Option {
	return func(st *Store) {
		if s != nil {
			st.storage = s
		}
	}
}

// WithLanguages sets the extension to language id mapping.
func WithLanguages(l *Languages) Option {
	return func(st *Store) {
		if l != nil {
			st.languages = l
		}
	}
}

// WithWordPattern sets the word pattern of documents in a language.
func WithWordPattern(languageID string, re *regexp.Regexp) Option {
	return func(st *Store) {
		st.wordPatterns[languageID] = re
	}
}

// WithEOL forces the line terminator of new documents.
func WithEOL(eol engine.EOL) Option {
	return func(st *Store) {
		st.eol = &eol
	}
}

// WithMaxFileSize sets the maximum file size. Zero means unlimited.
func WithMaxFileSize(size int64) Option {
	return func(st *Store) {
		st.maxFileSize = size
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *logging.Logger) Option {
	return func(st *Store) {
		if l != nil {
			st.logger = l
		}
	}
}

// NewStore creates an empty store reading from the OS file system.
func NewStore(opts ...Option) *Store {
	s := &Store{
		documents:    make(map[uri.URI]*entry),
		storage:      OSStorage{},
		languages:    NewLanguages(),
		wordPatterns: make(map[string]*regexp.Regexp),
		maxFileSize:  DefaultMaxFileSize,
		logger:       logging.Nop,
	}
	for _, opt := range opts {
		opt(s)
	}

	onError := event.WithErrorHandler(func(err error) {
		s.logger.Error("store listener failed: %v", err)
	})
	s.opened = event.NewEmitter[*engine.Document]("store.open", onError)
	s.closed = event.NewEmitter[*engine.Document]("store.close", onError)
	s.changed = event.NewEmitter[engine.ChangeEvent]("store.change", onError)
	s.saved = event.NewEmitter[*engine.Document]("store.save", onError)
	return s
}

// OnDidOpen fires after a document is added.
func (s *Store) OnDidOpen() event.Event[*engine.Document] { return s.opened.Event() }

// OnDidClose fires after a document is removed.
func (s *Store) OnDidClose() event.Event[*engine.Document] { return s.closed.Event() }

// OnDidChange fires after any open document commits a change.
func (s *Store) OnDidChange() event.Event[engine.ChangeEvent] { return s.changed.Event() }

// OnDidSave fires after a document is written to storage.
func (s *Store) OnDidSave() event.Event[*engine.Document] { return s.saved.Event() }

// Languages returns the store's language mapping.
func (s *Store) Languages() *Languages {
	return s.languages
}

// Open returns the live document for u, loading it from storage if it is
// not open yet. Untitled documents must have been created with NewUntitled
// or OpenText.
func (s *Store) Open(ctx context.Context, u uri.URI) (*engine.Document, error) {
	if doc, ok := s.Get(u); ok {
		return doc, nil
	}

	switch {
	case u.IsZero():
		return nil, &ResourceError{Op: "open", URI: u, Err: uri.ErrInvalid}
	case u.IsUntitled():
		return nil, &ResourceError{Op: "open", URI: u, Err: ErrDocumentNotFound}
	case !u.IsFile():
		return nil, &ResourceError{Op: "open", URI: u, Err: ErrUnsupportedScheme}
	}

	path := u.FsPath()
	info, err := s.storage.Stat(ctx, path)
	if err != nil {
		return nil, &ResourceError{Op: "open", URI: u, Err: fmt.Errorf("%w: %w", ErrDocumentNotFound, err)}
	}
	if info.IsDir() {
		return nil, &ResourceError{Op: "open", URI: u, Err: ErrIsDirectory}
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, &ResourceError{Op: "open", URI: u, Err: ErrFileTooLarge}
	}

	content, err := s.storage.ReadFile(ctx, path)
	if err != nil {
		return nil, &ResourceError{Op: "open", URI: u, Err: err}
	}
	if IsBinary(content) {
		return nil, &ResourceError{Op: "open", URI: u, Err: ErrBinaryFile}
	}

	doc, _ := s.add(u, s.languages.Detect(u), string(content))
	return doc, nil
}

// OpenText registers a document whose content is supplied by the caller,
// such as a client that owns the buffer. It fails with ErrAlreadyOpen if
// the URI is open.
func (s *Store) OpenText(u uri.URI, languageID, text string, opts ...engine.Option) (*engine.Document, error) {
	if u.IsZero() {
		return nil, &ResourceError{Op: "open", URI: u, Err: uri.ErrInvalid}
	}
	if languageID == "" {
		languageID = s.languages.Detect(u)
	}
	doc, added := s.add(u, languageID, text, opts...)
	if !added {
		return nil, &ResourceError{Op: "open", URI: u, Err: ErrAlreadyOpen}
	}
	return doc, nil
}

// NewUntitled creates an empty or pre-filled untitled document named
// Untitled-N.
func (s *Store) NewUntitled(languageID, text string) *engine.Document {
	if languageID == "" {
		languageID = PlainText
	}
	for {
		s.mu.Lock()
		s.untitled++
		u := uri.Untitled("Untitled-" + strconv.Itoa(s.untitled))
		_, taken := s.documents[u]
		s.mu.Unlock()
		if taken {
			continue
		}
		if doc, added := s.add(u, languageID, text); added {
			return doc
		}
	}
}

// add inserts a new document unless u is already open, in which case the
// existing document is returned with added false.
func (s *Store) add(u uri.URI, languageID, text string, extra ...engine.Option) (*engine.Document, bool) {
	opts := []engine.Option{engine.WithLogger(s.logger.WithComponent("document"))}
	if re, ok := s.wordPatterns[languageID]; ok {
		opts = append(opts, engine.WithWordPattern(re))
	}
	if s.eol != nil {
		opts = append(opts, engine.WithEOL(*s.eol))
	}
	opts = append(opts, extra...)
	doc := engine.NewDocument(u, languageID, text, opts...)

	s.mu.Lock()
	// Double-check in case another goroutine opened it.
	if existing, ok := s.documents[u]; ok {
		s.mu.Unlock()
		return existing.doc, false
	}
	sub := doc.OnDidChange()(s.changed.Fire)
	s.documents[u] = &entry{doc: doc, sub: sub}
	s.mu.Unlock()

	s.logger.Debug("opened %s (%s)", u, languageID)
	s.opened.Fire(doc)
	return doc, true
}

// OpenAll opens every URI concurrently. The result is in input order. The
// first error cancels the remaining loads and is returned.
func (s *Store) OpenAll(ctx context.Context, uris []uri.URI) ([]*engine.Document, error) {
	docs := make([]*engine.Document, len(uris))
	if len(uris) == 0 {
		return docs, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.GOMAXPROCS(0), len(uris)))
	for i, u := range uris {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := s.Open(gctx, u)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Get returns the open document for u.
func (s *Store) Get(u uri.URI) (*engine.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.documents[u]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// Documents returns all open documents ordered by URI.
func (s *Store) Documents() []*engine.Document {
	s.mu.RLock()
	docs := make([]*engine.Document, 0, len(s.documents))
	for _, e := range s.documents {
		docs = append(docs, e.doc)
	}
	s.mu.RUnlock()

	slices.SortFunc(docs, func(a, b *engine.Document) int {
		return uri.Compare(a.URI(), b.URI())
	})
	return docs
}

// DirtyDocuments returns open documents with unsaved changes, ordered by URI.
func (s *Store) DirtyDocuments() []*engine.Document {
	var dirty []*engine.Document
	for _, doc := range s.Documents() {
		if doc.IsDirty() {
			dirty = append(dirty, doc)
		}
	}
	return dirty
}

// Count returns the number of open documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Close removes the document and fires OnDidClose. Unsaved changes are
// discarded.
func (s *Store) Close(u uri.URI) error {
	s.mu.Lock()
	e, ok := s.documents[u]
	if !ok {
		s.mu.Unlock()
		return &ResourceError{Op: "close", URI: u, Err: ErrDocumentNotOpen}
	}
	delete(s.documents, u)
	s.mu.Unlock()

	e.sub.Dispose()
	e.doc.Close()
	s.logger.Debug("closed %s", u)
	s.closed.Fire(e.doc)
	return nil
}

// Save writes the document to storage, clears its dirty flag and fires
// OnDidSave. The future resolves to true once written. Untitled documents
// cannot be saved and resolve to false with ErrUntitledSave.
func (s *Store) Save(ctx context.Context, u uri.URI) *async.Future[bool] {
	doc, ok := s.Get(u)
	if !ok {
		return async.Rejected[bool](&ResourceError{Op: "save", URI: u, Err: ErrDocumentNotOpen})
	}
	if doc.IsUntitled() || !u.IsFile() {
		return async.Rejected[bool](&ResourceError{Op: "save", URI: u, Err: ErrUntitledSave})
	}

	return async.Go(ctx, func(ctx context.Context) (bool, error) {
		snap, version := doc.Snapshot()
		if err := s.storage.WriteFile(ctx, u.FsPath(), []byte(snap.Text())); err != nil {
			return false, &ResourceError{Op: "save", URI: u, Err: err}
		}
		// Edits made while writing keep the document dirty.
		if doc.Version() == version {
			doc.MarkSaved()
		}
		s.logger.Debug("saved %s at version %d", u, version)
		s.saved.Fire(doc)
		return true, nil
	})
}

// SaveAll saves every dirty file document and waits for completion.
func (s *Store) SaveAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, doc := range s.DirtyDocuments() {
		if doc.IsUntitled() {
			continue
		}
		f := s.Save(gctx, doc.URI())
		g.Go(func() error {
			_, err := f.Await(gctx)
			return err
		})
	}
	return g.Wait()
}

// Dispose closes every document and releases all listeners.
func (s *Store) Dispose() {
	for _, doc := range s.Documents() {
		_ = s.Close(doc.URI())
	}
	s.opened.Dispose()
	s.closed.Dispose()
	s.changed.Dispose()
	s.saved.Dispose()
}
