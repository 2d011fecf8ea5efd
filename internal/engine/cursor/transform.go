package cursor

import "github.com/dshills/exthost/internal/engine/buffer"

// Change is an alias for buffer.Change for convenience.
type Change = buffer.Change

// RemapPosition updates a position after a set of applied changes.
// The changes must be non-overlapping and expressed in the coordinates of
// the content before the edit, in ascending range order, which is exactly
// what a document change event carries.
//
// Transformation rules per change:
//   - Position at or before the change start (and not at its end):
//     unchanged
//   - Position at or after the change end: shifted by the difference
//     between the old end and the end of the inserted text, in lines and,
//     on the change's last line, in characters
//   - Position strictly inside the replaced range: collapsed to the end
//     of the inserted text
//
// Changes are replayed from last to first so each change's range is still
// expressed in the coordinates the position is in when it is visited.
func RemapPosition(p Position, changes []Change) Position {
	for i := len(changes) - 1; i >= 0; i-- {
		p = remapOne(p, changes[i])
	}
	return p
}

func remapOne(p Position, c Change) Position {
	start, end := c.Range.Start, c.Range.End

	if p.IsBeforeOrEqual(start) && p != end {
		return p
	}

	newEnd := c.NewEnd()
	if p.IsAfterOrEqual(end) {
		if p.Line == end.Line {
			return Position{
				Line:      newEnd.Line,
				Character: newEnd.Character + (p.Character - end.Character),
			}
		}
		return Position{Line: p.Line + (newEnd.Line - end.Line), Character: p.Character}
	}

	// Inside the replaced range: the original location no longer exists.
	return newEnd
}

// RemapSelection updates both ends of a selection independently.
func RemapSelection(s Selection, changes []Change) Selection {
	return Selection{
		Anchor: RemapPosition(s.Anchor, changes),
		Active: RemapPosition(s.Active, changes),
	}
}

// RemapRange updates a range after changes, keeping Start <= End.
func RemapRange(r Range, changes []Change) Range {
	start := RemapPosition(r.Start, changes)
	end := RemapPosition(r.End, changes)
	if end.IsBefore(start) {
		end = start
	}
	return Range{Start: start, End: end}
}
