package buffer

import "fmt"

// Position represents a line and character position in a document.
// Both Line and Character are 0-indexed.
// Character is measured in UTF-16 code units from the start of the line,
// which is the unit used by the language server protocol.
// Position is an immutable value type.
type Position struct {
	Line      int // 0-indexed line number
	Character int // 0-indexed column in UTF-16 code units
}

// NewPosition creates a Position. Negative components are not rejected here;
// documents clamp them through ValidatePosition.
func NewPosition(line, character int) Position {
	return Position{Line: line, Character: character}
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Character)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Position) Compare(other Position) int {
	if p.Line < other.Line {
		return -1
	}
	if p.Line > other.Line {
		return 1
	}
	if p.Character < other.Character {
		return -1
	}
	if p.Character > other.Character {
		return 1
	}
	return 0
}

// IsBefore returns true if p comes strictly before other.
func (p Position) IsBefore(other Position) bool {
	return p.Compare(other) < 0
}

// IsBeforeOrEqual returns true if p comes before or is equal to other.
func (p Position) IsBeforeOrEqual(other Position) bool {
	return p.Compare(other) <= 0
}

// IsAfter returns true if p comes strictly after other.
func (p Position) IsAfter(other Position) bool {
	return p.Compare(other) > 0
}

// IsAfterOrEqual returns true if p comes after or is equal to other.
func (p Position) IsAfterOrEqual(other Position) bool {
	return p.Compare(other) >= 0
}

// IsEqual returns true if both positions address the same location.
func (p Position) IsEqual(other Position) bool {
	return p == other
}

// Translate returns a position shifted by the given line and character deltas.
func (p Position) Translate(lineDelta, characterDelta int) Position {
	return Position{Line: p.Line + lineDelta, Character: p.Character + characterDelta}
}

// With returns a copy of p with the line and character replaced.
func (p Position) With(line, character int) Position {
	return Position{Line: line, Character: character}
}

// MinPosition returns the earlier of two positions.
func MinPosition(a, b Position) Position {
	if b.IsBefore(a) {
		return b
	}
	return a
}

// MaxPosition returns the later of two positions.
func MaxPosition(a, b Position) Position {
	if b.IsAfter(a) {
		return b
	}
	return a
}
