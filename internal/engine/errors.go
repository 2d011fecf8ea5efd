package engine

import (
	"errors"
	"fmt"

	"github.com/dshills/exthost/internal/engine/buffer"
)

// Errors returned by document and transaction operations.
var (
	// ErrRangeInvalid indicates a range whose end precedes its start.
	ErrRangeInvalid = buffer.ErrRangeInvalid

	// ErrRangeOutOfBounds indicates an edit range outside the document.
	ErrRangeOutOfBounds = buffer.ErrRangeOutOfBounds

	// ErrLineOutOfRange indicates a line index outside [0, LineCount).
	ErrLineOutOfRange = buffer.ErrLineOutOfRange

	// ErrEditsOverlap indicates two edits in one transaction overlap.
	ErrEditsOverlap = errors.New("edits overlap")

	// ErrTransactionInProgress indicates another transaction holds the
	// document's commit slot.
	ErrTransactionInProgress = errors.New("transaction already in progress")

	// ErrTransactionDone indicates a transaction was reused after commit,
	// rejection or abort.
	ErrTransactionDone = errors.New("transaction already finished")

	// ErrVersionMismatch indicates the document changed since the
	// transaction was begun against a specific version.
	ErrVersionMismatch = errors.New("document version mismatch")

	// ErrDocumentClosed indicates an edit against a closed document.
	ErrDocumentClosed = errors.New("document is closed")
)

// LineError reports a line index outside the document.
type LineError struct {
	Line      int
	LineCount int
}

// Error implements the error interface.
func (e *LineError) Error() string {
	return fmt.Sprintf("line %d out of range [0, %d)", e.Line, e.LineCount)
}

// Unwrap returns ErrLineOutOfRange.
func (e *LineError) Unwrap() error {
	return ErrLineOutOfRange
}

// EditError identifies the edit that failed validation.
type EditError struct {
	Index int
	Edit  buffer.Edit
	Err   error
}

// Error implements the error interface.
func (e *EditError) Error() string {
	return fmt.Sprintf("edit %d %s: %v", e.Index, e.Edit, e.Err)
}

// Unwrap returns the underlying error.
func (e *EditError) Unwrap() error {
	return e.Err
}
