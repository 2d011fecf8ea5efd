package buffer

// UTF16Len counts UTF-16 code units in a string.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2 // Surrogate pair (characters outside BMP)
		} else {
			n++
		}
	}
	return n
}

// ByteIndex converts a UTF-16 column to a byte offset within s.
// Columns past the end map to len(s). A column that falls inside a surrogate
// pair is rounded up to the end of that character.
func ByteIndex(s string, col int) int {
	if col <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		if units >= col {
			return i
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return len(s)
}

// UTF16Index converts a byte offset within s to a UTF-16 column.
// Offsets inside a multi-byte sequence count the whole character.
func UTF16Index(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset >= len(s) {
		return UTF16Len(s)
	}
	units := 0
	for i, r := range s {
		if i >= byteOffset {
			break
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return units
}

// splitLines splits text on \r\n, \r and \n. The result always has at least
// one element; a trailing terminator yields a trailing empty line.
func splitLines(text string) []string {
	lines := make([]string, 0, 1)
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	return append(lines, text[start:])
}

// SplitLines is the exported form of the line splitter used by the buffer.
func SplitLines(text string) []string {
	return splitLines(text)
}

// TextEnd returns the position just after text when it is inserted at start.
func TextEnd(start Position, text string) Position {
	lines := splitLines(text)
	if len(lines) == 1 {
		return Position{Line: start.Line, Character: start.Character + UTF16Len(text)}
	}
	return Position{Line: start.Line + len(lines) - 1, Character: UTF16Len(lines[len(lines)-1])}
}

