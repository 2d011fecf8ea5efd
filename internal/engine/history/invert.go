package history

import (
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
)

// Invert returns the edits that undo changes. changes must be the ordered,
// non-overlapping changes of one commit; the edits are in the coordinates
// of the content after that commit.
func Invert(changes []engine.Change) []engine.Edit {
	out := make([]engine.Edit, 0, len(changes))
	lineDelta := 0
	charDelta := 0
	lastLine := -1
	for _, c := range changes {
		start := engine.Position{Line: c.Range.Start.Line + lineDelta, Character: c.Range.Start.Character}
		if c.Range.Start.Line == lastLine {
			start.Character += charDelta
		}
		end := buffer.TextEnd(start, c.Text)
		out = append(out, buffer.NewReplace(engine.Range{Start: start, End: end}, c.Removed))

		lineDelta += (end.Line - start.Line) - (c.Range.End.Line - c.Range.Start.Line)
		charDelta = end.Character - c.Range.End.Character
		lastLine = c.Range.End.Line
	}
	return out
}

// describe labels an entry recorded without a group name.
func describe(changes []engine.Change) string {
	if len(changes) != 1 {
		return "edit"
	}
	c := changes[0]
	switch {
	case c.Removed == "":
		return "insert"
	case c.Text == "":
		return "delete"
	default:
		return "replace"
	}
}
