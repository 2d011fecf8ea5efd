package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/exthost/internal/engine/buffer"
)

type txState uint8

const (
	txOpen txState = iota
	txPrepared
	txDone
)

// Transaction collects edits against one document and applies them as a
// unit. Edits are buffered and do not touch the document until Commit (or
// Prepare followed by Apply).
//
// A Transaction is used by a single goroutine and is discarded after it
// commits, fails or is aborted.
type Transaction struct {
	doc   *Document
	edits []Edit

	baseVersion  int
	checkVersion bool

	state   txState
	ordered []Edit
}

// Begin starts a transaction against the document's current content.
func (d *Document) Begin() *Transaction {
	return &Transaction{doc: d}
}

// BeginAt starts a transaction that fails with ErrVersionMismatch if the
// document is no longer at version.
func (d *Document) BeginAt(version int) *Transaction {
	return &Transaction{doc: d, baseVersion: version, checkVersion: true}
}

// Document returns the target document.
func (t *Transaction) Document() *Document {
	return t.doc
}

// Replace buffers replacing r with text.
func (t *Transaction) Replace(r Range, text string) *Transaction {
	return t.Add(buffer.NewReplace(r, text))
}

// Insert buffers inserting text at p.
func (t *Transaction) Insert(p Position, text string) *Transaction {
	return t.Add(buffer.NewInsert(p, text))
}

// Delete buffers deleting r.
func (t *Transaction) Delete(r Range) *Transaction {
	return t.Add(buffer.NewDelete(r))
}

// Add buffers edits in order.
func (t *Transaction) Add(edits ...Edit) *Transaction {
	t.edits = append(t.edits, edits...)
	return t
}

// Edits returns the buffered edits in insertion order.
func (t *Transaction) Edits() []Edit {
	return slices.Clone(t.edits)
}

// Len returns the number of buffered edits.
func (t *Transaction) Len() int {
	return len(t.edits)
}

// Commit validates and applies the buffered edits. On success it returns
// the emitted change event, or nil when there was nothing to change. On
// failure the document is untouched and the error says why.
func (t *Transaction) Commit() (*ChangeEvent, error) {
	if err := t.Prepare(); err != nil {
		return nil, err
	}
	return t.Apply(), nil
}

// Prepare takes the document's commit slot and validates every edit. After
// a successful Prepare the caller must call Apply or Abort; until then other
// transactions on the document fail with ErrTransactionInProgress. A failed
// Prepare releases the slot and finishes the transaction.
func (t *Transaction) Prepare() error {
	if t.state != txOpen {
		return ErrTransactionDone
	}
	if !t.doc.committing.CompareAndSwap(false, true) {
		return ErrTransactionInProgress
	}

	ordered, err := t.validate()
	if err != nil {
		t.state = txDone
		t.doc.committing.Store(false)
		return err
	}
	t.ordered = ordered
	t.state = txPrepared
	return nil
}

// Abort releases a prepared transaction without applying it. Calling Abort
// on an open transaction just finishes it.
func (t *Transaction) Abort() {
	if t.state == txPrepared {
		t.doc.committing.Store(false)
	}
	t.state = txDone
	t.ordered = nil
}

// Apply mutates the document with the prepared edits, bumps the version and
// fires the change event, in that order, before returning. It returns nil
// if the transaction was not prepared or had no effective edits.
func (t *Transaction) Apply() *ChangeEvent {
	if t.state != txPrepared {
		return nil
	}
	d := t.doc
	defer d.committing.Store(false)
	t.state = txDone

	if len(t.ordered) == 0 {
		return nil
	}

	d.mu.Lock()
	eol := d.buf.EOL().Sequence()
	changes := make([]Change, len(t.ordered))
	for i, e := range t.ordered {
		start := d.buf.OffsetAt(e.Range.Start)
		changes[i] = Change{
			Range:       e.Range,
			RangeOffset: start,
			RangeLength: d.buf.OffsetAt(e.Range.End) - start,
			Text:        normalizeEOL(e.NewText, eol),
			Removed:     d.buf.TextInRange(e.Range),
		}
	}
	for i := len(t.ordered) - 1; i >= 0; i-- {
		e := t.ordered[i]
		if _, err := d.buf.Splice(e.Range, e.NewText); err != nil {
			// validate checked every range against this content
			panic(fmt.Sprintf("engine: splice after validation: %v", err))
		}
	}
	d.version++
	d.dirty = true
	ev := &ChangeEvent{Document: d, Version: d.version, Changes: changes}
	d.mu.Unlock()

	d.logger.Debug("committed %d change(s) at version %d", len(changes), ev.Version)
	d.changes.Fire(*ev)
	return ev
}

// validate checks the buffered edits against the current content and
// returns the effective edits in ascending range order.
func (t *Transaction) validate() ([]Edit, error) {
	d := t.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDocumentClosed
	}
	if t.checkVersion && t.baseVersion != d.version {
		return nil, fmt.Errorf("%w: begun at %d, document at %d", ErrVersionMismatch, t.baseVersion, d.version)
	}

	type indexed struct {
		idx  int
		edit Edit
	}
	effective := make([]indexed, 0, len(t.edits))
	for i, e := range t.edits {
		if !e.Range.IsValid() {
			return nil, &EditError{Index: i, Edit: e, Err: ErrRangeInvalid}
		}
		if !d.buf.InBounds(e.Range) {
			return nil, &EditError{Index: i, Edit: e, Err: ErrRangeOutOfBounds}
		}
		if e.IsNoOp() {
			continue
		}
		effective = append(effective, indexed{idx: i, edit: e})
	}

	// Stable, so inserts at one position keep their insertion order.
	slices.SortStableFunc(effective, func(a, b indexed) int {
		return cmp.Or(
			a.edit.Range.Start.Compare(b.edit.Range.Start),
			a.edit.Range.End.Compare(b.edit.Range.End),
		)
	})

	ordered := make([]Edit, len(effective))
	for i, cur := range effective {
		if i > 0 {
			prev := effective[i-1]
			if prev.edit.Range.End.IsAfter(cur.edit.Range.Start) {
				return nil, &EditError{
					Index: cur.idx,
					Edit:  cur.edit,
					Err:   fmt.Errorf("%w with edit %d %s", ErrEditsOverlap, prev.idx, prev.edit),
				}
			}
		}
		ordered[i] = cur.edit
	}
	return ordered, nil
}

func normalizeEOL(text, eol string) string {
	if !strings.ContainsAny(text, "\r\n") {
		return text
	}
	return strings.Join(buffer.SplitLines(text), eol)
}
