package buffer

import "fmt"

// EditKind categorizes an edit operation.
type EditKind uint8

const (
	EditReplace EditKind = iota // Replace a range with new text
	EditInsert                  // Insert text at a position (empty range)
	EditDelete                  // Delete a range (empty text)
)

// String returns a string representation of the edit kind.
func (k EditKind) String() string {
	switch k {
	case EditReplace:
		return "replace"
	case EditInsert:
		return "insert"
	case EditDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Edit represents a text edit operation.
// It specifies a range to replace and the new text. Insert is a replace with
// an empty range, delete is a replace with empty text.
type Edit struct {
	Kind    EditKind
	Range   Range
	NewText string
}

// NewReplace creates an Edit that replaces a range with text.
func NewReplace(r Range, text string) Edit {
	return Edit{Kind: EditReplace, Range: r, NewText: text}
}

// NewInsert creates an Edit that inserts text at a position.
func NewInsert(p Position, text string) Edit {
	return Edit{Kind: EditInsert, Range: EmptyRange(p), NewText: text}
}

// NewDelete creates an Edit that deletes a range of text.
func NewDelete(r Range) Edit {
	return Edit{Kind: EditDelete, Range: r}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	switch e.Kind {
	case EditInsert:
		return fmt.Sprintf("Insert(%s, %q)", e.Range.Start, e.NewText)
	case EditDelete:
		return fmt.Sprintf("Delete%s", e.Range)
	default:
		return fmt.Sprintf("Replace%s with %q", e.Range, e.NewText)
	}
}

// IsNoOp returns true if this edit does nothing.
func (e Edit) IsNoOp() bool {
	return e.Range.IsEmpty() && e.NewText == ""
}

// Change describes one applied edit in the coordinates of the content it was
// applied to: the replaced range, its absolute offset and length in UTF-16
// units, and the text that replaced it. A sequence of Changes ordered by
// range is the only record consumers need to re-derive positions.
//
// Removed holds the replaced text so a change can be inverted.
type Change struct {
	Range       Range
	RangeOffset int
	RangeLength int
	Text        string
	Removed     string
}

// NewEnd returns the position just after the inserted text, assuming the
// change's start is still valid.
func (c Change) NewEnd() Position {
	return TextEnd(c.Range.Start, c.Text)
}
