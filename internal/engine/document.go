package engine

import (
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/uri"
)

// Re-export geometry types for convenience.
type (
	// Position is a (line, character) coordinate in UTF-16 code units.
	Position = buffer.Position

	// Range is an ordered pair of positions.
	Range = buffer.Range

	// Edit is one replace, insert or delete operation.
	Edit = buffer.Edit

	// Change is one applied edit as reported in a ChangeEvent.
	Change = buffer.Change

	// Line is a read-only view of one document line.
	Line = buffer.Line

	// EOL is a line terminator style.
	EOL = buffer.EOL
)

// Re-export constants.
const (
	EOLLF   = buffer.EOLLF
	EOLCRLF = buffer.EOLCRLF
)

// Edit constructors.
var (
	NewReplace = buffer.NewReplace
	NewInsert  = buffer.NewInsert
	NewDelete  = buffer.NewDelete
)

// ChangeEvent is emitted once per non-empty commit. Changes are in
// ascending range order and expressed in the coordinates of the document
// before the commit.
type ChangeEvent struct {
	Document *Document
	Version  int
	Changes  []Change
}

// Document is an open text document: a buffer plus identity and metadata.
// Content is mutated only through transactions (see Begin).
//
// All methods are safe for concurrent use.
type Document struct {
	uri        uri.URI
	languageID string

	mu      sync.Mutex
	buf     *buffer.Buffer
	version int
	dirty   bool
	closed  bool

	wordPattern *regexp.Regexp

	// committing is the commit slot. At most one transaction holds it.
	committing atomic.Bool

	changes *event.Emitter[ChangeEvent]
	logger  *logging.Logger
}

// NewDocument creates a document with the given content.
func NewDocument(u uri.URI, languageID, text string, opts ...Option) *Document {
	cfg := options{
		version:     DefaultVersion,
		wordPattern: DefaultWordPattern,
		logger:      logging.Nop,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var bufOpts []buffer.Option
	if cfg.eolSet {
		bufOpts = append(bufOpts, buffer.WithEOL(cfg.eol))
	}

	d := &Document{
		uri:         u,
		languageID:  languageID,
		buf:         buffer.New(text, bufOpts...),
		version:     cfg.version,
		dirty:       cfg.dirty,
		wordPattern: cfg.wordPattern,
		logger:      cfg.logger.WithField("uri", u.String()),
	}
	d.changes = event.NewEmitter[ChangeEvent]("document.change",
		event.WithErrorHandler(func(err error) {
			d.logger.Error("change listener failed: %v", err)
		}))
	return d
}

// URI returns the document's resource identifier.
func (d *Document) URI() uri.URI {
	return d.uri
}

// FileName returns the file system path of the document.
func (d *Document) FileName() string {
	return d.uri.FsPath()
}

// IsUntitled reports whether the document has never been saved.
func (d *Document) IsUntitled() bool {
	return d.uri.IsUntitled()
}

// LanguageID returns the language identifier.
func (d *Document) LanguageID() string {
	return d.languageID
}

// Version returns the current version. It increases by exactly one per
// non-empty commit.
func (d *Document) Version() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// IsDirty reports whether the document has unsaved changes.
func (d *Document) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// IsClosed reports whether the document was closed.
func (d *Document) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// EOL returns the line terminator style.
func (d *Document) EOL() EOL {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.EOL()
}

// OnDidChange is fired after every non-empty commit.
func (d *Document) OnDidChange() event.Event[ChangeEvent] {
	return d.changes.Event()
}

// Text returns the full content.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Text()
}

// TextInRange returns the text in r after clamping it.
func (d *Document) TextInRange(r Range) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.TextInRange(d.validateRange(r))
}

// LineCount returns the number of lines. Always at least one.
func (d *Document) LineCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.LineCount()
}

// LineAt returns line n. Unlike the other queries it does not clamp: an
// index outside [0, LineCount) yields a *LineError.
func (d *Document) LineAt(n int) (Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 || n >= d.buf.LineCount() {
		return Line{}, &LineError{Line: n, LineCount: d.buf.LineCount()}
	}
	return d.buf.Line(n)
}

// LineAtPosition returns the line containing the clamped position.
func (d *Document) LineAtPosition(p Position) Line {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, _ := d.buf.Line(d.validatePosition(p).Line)
	return l
}

// ValidatePosition clamps p into the document.
func (d *Document) ValidatePosition(p Position) Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validatePosition(p)
}

// ValidateRange clamps both ends of r into the document. The result is
// idempotent under repeated validation.
func (d *Document) ValidateRange(r Range) Range {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validateRange(r)
}

// OffsetAt returns the absolute offset of the clamped position.
func (d *Document) OffsetAt(p Position) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.OffsetAt(d.validatePosition(p))
}

// PositionAt returns the position of an absolute offset, clamped.
func (d *Document) PositionAt(offset int) Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.PositionAt(offset)
}

// Snapshot returns an immutable copy of the content together with the
// version it belongs to.
func (d *Document) Snapshot() (*buffer.Snapshot, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Snapshot(), d.version
}

// WordRangeAtPosition returns the range of the word covering p. A nil
// pattern selects the document's word pattern. It returns false when p is
// not on or directly after a word.
func (d *Document) WordRangeAtPosition(p Position, pattern *regexp.Regexp) (Range, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pattern == nil {
		pattern = d.wordPattern
	}
	p = d.validatePosition(p)
	return wordRange(d.buf.LineText(p.Line), p, pattern)
}

// MarkSaved clears the dirty flag.
func (d *Document) MarkSaved() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = false
}

// Close marks the document closed and drops its listeners. Later
// transactions fail with ErrDocumentClosed.
func (d *Document) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.changes.Dispose()
}

func (d *Document) validatePosition(p Position) Position {
	if p.Line < 0 {
		return Position{}
	}
	last := d.buf.LineCount() - 1
	if p.Line > last {
		return Position{Line: last, Character: d.buf.LineLength(last)}
	}
	return Position{Line: p.Line, Character: min(max(p.Character, 0), d.buf.LineLength(p.Line))}
}

func (d *Document) validateRange(r Range) Range {
	start := d.validatePosition(r.Start)
	end := d.validatePosition(r.End)
	if end.IsBefore(start) {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}
