package buffer

// EOL specifies the line terminator a buffer uses when joining lines.
type EOL uint8

const (
	EOLLF   EOL = iota // Unix: \n
	EOLCRLF            // Windows: \r\n
)

// String returns the escaped representation of the line ending.
func (e EOL) String() string {
	if e == EOLCRLF {
		return "\\r\\n"
	}
	return "\\n"
}

// Sequence returns the actual line ending characters.
func (e EOL) Sequence() string {
	if e == EOLCRLF {
		return "\r\n"
	}
	return "\n"
}

// Len returns the length of the terminator in UTF-16 code units.
func (e EOL) Len() int {
	if e == EOLCRLF {
		return 2
	}
	return 1
}

// ParseEOL parses "lf" or "crlf" (case-insensitive forms used in config).
// Any other value yields EOLLF and false.
func ParseEOL(s string) (EOL, bool) {
	switch s {
	case "lf", "LF", "\n":
		return EOLLF, true
	case "crlf", "CRLF", "\r\n":
		return EOLCRLF, true
	default:
		return EOLLF, false
	}
}

// Option is a functional option for configuring a Buffer.
type Option func(*Buffer)

// WithEOL sets the buffer's line terminator.
func WithEOL(eol EOL) Option {
	return func(b *Buffer) {
		b.eol = eol
		b.eolSet = true
	}
}

// DetectEOL returns the most common line ending in the text.
// Lone carriage returns count as LF. Returns EOLLF if no line endings are found.
func DetectEOL(text string) EOL {
	var lf, crlf int
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				crlf++
				i++
			} else {
				lf++
			}
		case '\n':
			lf++
		}
	}
	if crlf > lf {
		return EOLCRLF
	}
	return EOLLF
}
