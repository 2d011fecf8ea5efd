package buffer

import "fmt"

// Range represents a span between two positions.
// Start is inclusive, End is exclusive. Start <= End always holds for a Range
// built with NewRange; reversed bounds are rejected rather than swapped.
// Directional spans are expressed with cursor.Selection instead.
type Range struct {
	Start Position // Inclusive start position
	End   Position // Exclusive end position
}

// NewRange creates a Range from start and end positions.
// Returns ErrRangeInvalid if end comes before start.
func NewRange(start, end Position) (Range, error) {
	if end.IsBefore(start) {
		return Range{}, fmt.Errorf("%w: start %s is after end %s", ErrRangeInvalid, start, end)
	}
	return Range{Start: start, End: end}, nil
}

// MustRange is like NewRange but panics on reversed bounds.
// Intended for literals whose ordering is known.
func MustRange(startLine, startChar, endLine, endChar int) Range {
	r, err := NewRange(Position{startLine, startChar}, Position{endLine, endChar})
	if err != nil {
		panic(err)
	}
	return r
}

// EmptyRange returns the empty range located at p.
func EmptyRange(p Position) Range {
	return Range{Start: p, End: p}
}

// String returns a human-readable representation of the range.
func (r Range) String() string {
	return fmt.Sprintf("[%s-%s)", r.Start.String(), r.End.String())
}

// IsEmpty returns true if start equals end.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// IsValid returns true if start <= end.
func (r Range) IsValid() bool {
	return r.Start.IsBeforeOrEqual(r.End)
}

// IsSingleLine returns true if the range spans only one line.
func (r Range) IsSingleLine() bool {
	return r.Start.Line == r.End.Line
}

// IsEqual returns true if both ranges have the same bounds.
func (r Range) IsEqual(other Range) bool {
	return r == other
}

// Contains returns true if the position is within [Start, End].
// Both bounds are inclusive so that an empty range contains its own position.
func (r Range) Contains(p Position) bool {
	return r.Start.IsBeforeOrEqual(p) && p.IsBeforeOrEqual(r.End)
}

// ContainsRange returns true if other lies entirely within r.
func (r Range) ContainsRange(other Range) bool {
	return r.Contains(other.Start) && r.Contains(other.End)
}

// Overlaps returns true if the ranges share at least one character, or if an
// empty range sits strictly inside a non-empty one. Ranges that only touch at
// an endpoint do not overlap.
func (r Range) Overlaps(other Range) bool {
	if r.IsEmpty() && other.IsEmpty() {
		return false
	}
	if r.IsEmpty() {
		return other.Start.IsBefore(r.Start) && r.Start.IsBefore(other.End)
	}
	if other.IsEmpty() {
		return r.Start.IsBefore(other.Start) && other.Start.IsBefore(r.End)
	}
	return r.Start.IsBefore(other.End) && other.Start.IsBefore(r.End)
}

// Intersection returns the overlapping part of two ranges.
// The boolean is false when the ranges are disjoint.
func (r Range) Intersection(other Range) (Range, bool) {
	start := MaxPosition(r.Start, other.Start)
	end := MinPosition(r.End, other.End)
	if end.IsBefore(start) {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// Union returns the smallest range that contains both ranges.
func (r Range) Union(other Range) Range {
	return Range{
		Start: MinPosition(r.Start, other.Start),
		End:   MaxPosition(r.End, other.End),
	}
}

// With returns a copy of r with new bounds, validating the ordering.
func (r Range) With(start, end Position) (Range, error) {
	return NewRange(start, end)
}
