package cursor

import (
	"fmt"

	"github.com/dshills/exthost/internal/engine/buffer"
)

// Position is an alias for buffer.Position for convenience.
type Position = buffer.Position

// Range is an alias for buffer.Range for convenience.
type Range = buffer.Range

// Selection represents a range of selected text with a direction.
// Anchor is where the selection started; Active is the current cursor
// position (where typing occurs). Either may come first, so unlike
// buffer.Range a Selection carries reversed spans verbatim.
// When Anchor == Active, this represents a cursor with no selection.
// Selection is an immutable value type.
type Selection struct {
	Anchor Position
	Active Position
}

// NewSelection creates a selection from anchor to active without reordering.
func NewSelection(anchor, active Position) Selection {
	return Selection{Anchor: anchor, Active: active}
}

// NewCursorSelection creates a selection representing just a cursor.
func NewCursorSelection(p Position) Selection {
	return Selection{Anchor: p, Active: p}
}

// NewRangeSelection creates a forward selection covering the given range.
func NewRangeSelection(r Range) Selection {
	return Selection{Anchor: r.Start, Active: r.End}
}

// Start returns the earlier of anchor and active.
func (s Selection) Start() Position {
	return buffer.MinPosition(s.Anchor, s.Active)
}

// End returns the later of anchor and active.
func (s Selection) End() Position {
	return buffer.MaxPosition(s.Anchor, s.Active)
}

// Range returns the selection as a range (always Start <= End).
func (s Selection) Range() Range {
	return Range{Start: s.Start(), End: s.End()}
}

// IsEmpty returns true if the selection has no extent (just a cursor).
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Active
}

// IsSingleLine returns true if anchor and active are on the same line.
func (s Selection) IsSingleLine() bool {
	return s.Anchor.Line == s.Active.Line
}

// IsReversed returns true if active precedes anchor.
func (s Selection) IsReversed() bool {
	return s.Active.IsBefore(s.Anchor)
}

// Contains returns true if the position is within the selected range.
func (s Selection) Contains(p Position) bool {
	return s.Range().Contains(p)
}

// Extend returns a new selection with the active end moved.
// The anchor remains fixed.
func (s Selection) Extend(p Position) Selection {
	return Selection{Anchor: s.Anchor, Active: p}
}

// Collapse collapses the selection to a cursor at the active position.
func (s Selection) Collapse() Selection {
	return Selection{Anchor: s.Active, Active: s.Active}
}

// Flip returns a selection with anchor and active swapped.
func (s Selection) Flip() Selection {
	return Selection{Anchor: s.Active, Active: s.Anchor}
}

// String returns a string representation of the selection.
func (s Selection) String() string {
	if s.IsEmpty() {
		return fmt.Sprintf("Cursor%s", s.Active)
	}
	dir := "→"
	if s.IsReversed() {
		dir = "←"
	}
	return fmt.Sprintf("Selection(%s%s%s)", s.Anchor, dir, s.Active)
}
