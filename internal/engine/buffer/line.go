package buffer

// Line is a read-only view of one buffer line.
type Line struct {
	Number int
	Text   string

	// Range covers the line text without its terminator.
	Range Range

	// RangeIncludingLineBreak also covers the terminator. For the last
	// line it equals Range.
	RangeIncludingLineBreak Range

	// FirstNonWhitespaceCharacterIndex is the UTF-16 column of the first
	// character that is not a space or tab. Equals the line length when
	// the line is blank.
	FirstNonWhitespaceCharacterIndex int

	// IsEmptyOrWhitespace is true when the line has only spaces and tabs.
	IsEmptyOrWhitespace bool
}

// newLine builds the line view for line n of a buffer with lineCount lines.
func newLine(n int, text string, lineCount int) Line {
	length := UTF16Len(text)
	lead := leadingWhitespace(text)
	r := Range{Start: Position{n, 0}, End: Position{n, length}}
	withBreak := r
	if n < lineCount-1 {
		withBreak.End = Position{n + 1, 0}
	}
	return Line{
		Number:                           n,
		Text:                             text,
		Range:                            r,
		RangeIncludingLineBreak:          withBreak,
		FirstNonWhitespaceCharacterIndex: lead,
		IsEmptyOrWhitespace:              lead == length,
	}
}

// leadingWhitespace returns the count of leading spaces and tabs. Both are
// single UTF-16 units, so the byte count is also the column.
func leadingWhitespace(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return i
		}
	}
	return len(s)
}
