package buffer

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Errors returned by buffer operations.
var (
	ErrRangeInvalid     = errors.New("invalid range")
	ErrRangeOutOfBounds = errors.New("range outside buffer bounds")
	ErrLineOutOfRange   = errors.New("line out of range")
)

// Buffer stores document content as an ordered sequence of lines without
// terminators. Absolute offsets are UTF-16 code units and include the
// terminator of every line but the last.
//
// Line start offsets are a prefix sum maintained lazily: a splice only
// rebuilds the lines it touches and marks the prefix sum stale from the
// first touched line onwards. Lookups extend the valid prefix on demand,
// so sequential access patterns stay amortized O(1) and random lookups
// are a binary search.
//
// Buffer is not safe for concurrent use. Document serializes access.
type Buffer struct {
	lines  []string
	widths []int // UTF-16 length of each line, terminator excluded
	starts []int // starts[i] is the offset of line i, valid for i < valid
	valid  int
	eol    EOL
	eolSet bool
}

// New creates a buffer holding text. Without WithEOL the line terminator is
// detected from the content.
func New(text string, opts ...Option) *Buffer {
	b := &Buffer{}
	for _, opt := range opts {
		opt(b)
	}
	if !b.eolSet {
		b.eol = DetectEOL(text)
	}
	b.lines = splitLines(text)
	b.widths = make([]int, len(b.lines))
	for i, l := range b.lines {
		b.widths[i] = UTF16Len(l)
	}
	b.starts = make([]int, len(b.lines))
	b.valid = 0
	return b
}

// EOL returns the buffer's line terminator.
func (b *Buffer) EOL() EOL {
	return b.eol
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int {
	return len(b.lines)
}

// LineText returns the text of a line without its terminator.
// Returns the empty string for lines outside the buffer.
func (b *Buffer) LineText(n int) string {
	if n < 0 || n >= len(b.lines) {
		return ""
	}
	return b.lines[n]
}

// LineLength returns the UTF-16 length of a line without its terminator.
func (b *Buffer) LineLength(n int) int {
	if n < 0 || n >= len(b.widths) {
		return 0
	}
	return b.widths[n]
}

// Line returns the line view for line n.
func (b *Buffer) Line(n int) (Line, error) {
	if n < 0 || n >= len(b.lines) {
		return Line{}, fmt.Errorf("%w: %d not in [0, %d)", ErrLineOutOfRange, n, len(b.lines))
	}
	return newLine(n, b.lines[n], len(b.lines)), nil
}

// Text returns the full buffer content joined with the buffer's terminator.
func (b *Buffer) Text() string {
	return strings.Join(b.lines, b.eol.Sequence())
}

// Len returns the total length of the buffer in UTF-16 code units.
func (b *Buffer) Len() int {
	last := len(b.lines) - 1
	return b.lineStart(last) + b.widths[last]
}

// End returns the position after the last character.
func (b *Buffer) End() Position {
	last := len(b.lines) - 1
	return Position{Line: last, Character: b.widths[last]}
}

// InBounds reports whether r addresses existing content.
func (b *Buffer) InBounds(r Range) bool {
	return b.validPosition(r.Start) && b.validPosition(r.End) && r.IsValid()
}

func (b *Buffer) validPosition(p Position) bool {
	return p.Line >= 0 && p.Line < len(b.lines) &&
		p.Character >= 0 && p.Character <= b.widths[p.Line]
}

// TextInRange returns the text covered by r. The range must be in bounds.
func (b *Buffer) TextInRange(r Range) string {
	if r.IsEmpty() || !b.InBounds(r) {
		return ""
	}
	first := b.lines[r.Start.Line]
	sb := ByteIndex(first, r.Start.Character)
	if r.IsSingleLine() {
		return first[sb:ByteIndex(first, r.End.Character)]
	}

	last := b.lines[r.End.Line]
	var sbuf strings.Builder
	sbuf.WriteString(first[sb:])
	for i := r.Start.Line + 1; i < r.End.Line; i++ {
		sbuf.WriteString(b.eol.Sequence())
		sbuf.WriteString(b.lines[i])
	}
	sbuf.WriteString(b.eol.Sequence())
	sbuf.WriteString(last[:ByteIndex(last, r.End.Character)])
	return sbuf.String()
}

// OffsetAt converts a position to an absolute offset.
// Characters past the line end are clamped to the line end.
func (b *Buffer) OffsetAt(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(b.lines) {
		return b.Len()
	}
	return b.lineStart(p.Line) + min(max(p.Character, 0), b.widths[p.Line])
}

// PositionAt converts an absolute offset to a position.
// Offsets are clamped to [0, Len()]. An offset inside a line terminator
// maps to the end of that line.
func (b *Buffer) PositionAt(offset int) Position {
	if offset <= 0 {
		return Position{}
	}
	last := len(b.lines) - 1
	b.ensure(last)
	// Largest line whose start is <= offset.
	n := sort.Search(len(b.lines), func(i int) bool { return b.starts[i] > offset }) - 1
	n = max(n, 0)
	return Position{Line: n, Character: min(offset-b.starts[n], b.widths[n])}
}

// Splice replaces the text covered by r with text and returns the range the
// inserted text now occupies. Line terminators in text are normalized to the
// buffer's terminator. Only the lines spanned by r are rebuilt.
func (b *Buffer) Splice(r Range, text string) (Range, error) {
	if !r.IsValid() {
		return Range{}, fmt.Errorf("%w: %s", ErrRangeInvalid, r)
	}
	if !b.InBounds(r) {
		return Range{}, fmt.Errorf("%w: %s", ErrRangeOutOfBounds, r)
	}

	first := b.lines[r.Start.Line]
	last := b.lines[r.End.Line]
	prefix := first[:ByteIndex(first, r.Start.Character)]
	suffix := last[ByteIndex(last, r.End.Character):]

	parts := splitLines(text)
	replaced := make([]string, len(parts))
	copy(replaced, parts)
	replaced[0] = prefix + replaced[0]
	replaced[len(replaced)-1] += suffix

	widths := make([]int, len(replaced))
	for i, l := range replaced {
		widths[i] = UTF16Len(l)
	}

	b.lines = slices.Replace(b.lines, r.Start.Line, r.End.Line+1, replaced...)
	b.widths = slices.Replace(b.widths, r.Start.Line, r.End.Line+1, widths...)
	b.resizeStarts()
	b.invalidate(r.Start.Line + 1)

	start := Position{Line: r.Start.Line, Character: UTF16Len(prefix)}
	end := TextEnd(start, text)
	return Range{Start: start, End: end}, nil
}

// Snapshot returns an immutable copy of the current lines.
func (b *Buffer) Snapshot() *Snapshot {
	return &Snapshot{lines: slices.Clone(b.lines), eol: b.eol}
}

// lineStart returns the offset of line n, extending the prefix sum if needed.
func (b *Buffer) lineStart(n int) int {
	b.ensure(n)
	return b.starts[n]
}

// ensure makes starts valid up to and including index n.
func (b *Buffer) ensure(n int) {
	if b.valid == 0 && len(b.starts) > 0 {
		b.starts[0] = 0
		b.valid = 1
	}
	step := b.eol.Len()
	for i := b.valid; i <= n && i < len(b.starts); i++ {
		b.starts[i] = b.starts[i-1] + b.widths[i-1] + step
		b.valid = i + 1
	}
}

// invalidate marks prefix sums from line n onwards as stale.
func (b *Buffer) invalidate(n int) {
	if n < b.valid {
		b.valid = max(n, 0)
	}
}

func (b *Buffer) resizeStarts() {
	if cap(b.starts) >= len(b.lines) {
		b.starts = b.starts[:len(b.lines)]
	} else {
		grown := make([]int, len(b.lines))
		copy(grown, b.starts[:b.valid])
		b.starts = grown
	}
	if b.valid > len(b.starts) {
		b.valid = len(b.starts)
	}
}
