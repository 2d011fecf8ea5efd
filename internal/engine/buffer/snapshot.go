package buffer

import "strings"

// Snapshot provides a read-only view of a buffer at a specific point in time.
// It is safe for concurrent access and will not change even if the original
// buffer is modified.
type Snapshot struct {
	lines []string
	eol   EOL
}

// Text returns the full snapshot content as a string.
func (s *Snapshot) Text() string {
	return strings.Join(s.lines, s.eol.Sequence())
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() int {
	return len(s.lines)
}

// LineText returns the text of a specific line (without terminator).
func (s *Snapshot) LineText(n int) string {
	if n < 0 || n >= len(s.lines) {
		return ""
	}
	return s.lines[n]
}

// Lines returns a copy of all lines.
func (s *Snapshot) Lines() []string {
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// EOL returns the terminator the snapshot was taken with.
func (s *Snapshot) EOL() EOL {
	return s.eol
}
