package diagnostics

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/uri"
)

// Severity ranks a diagnostic. The values match the language server
// protocol, so lower is more severe.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInformation:
		return "Information"
	case SeverityHint:
		return "Hint"
	default:
		return "Unknown"
	}
}

// Icon returns a single character for the severity.
func (s Severity) Icon() string {
	switch s {
	case SeverityError:
		return "E"
	case SeverityWarning:
		return "W"
	case SeverityInformation:
		return "I"
	case SeverityHint:
		return "H"
	default:
		return "?"
	}
}

// ParseSeverity parses a severity name, case-insensitively. Unknown names
// yield SeverityError and false.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "information", "info":
		return SeverityInformation, true
	case "hint":
		return SeverityHint, true
	default:
		return SeverityError, false
	}
}

// Tag is additional metadata clients may render specially.
type Tag int

const (
	TagUnnecessary Tag = 1
	TagDeprecated  Tag = 2
)

// Code is an optional diagnostic code, either a string or an integer.
// The zero value means no code.
type Code struct {
	str   string
	num   int
	isNum bool
	set   bool
}

// StringCode returns a string code.
func StringCode(s string) Code {
	return Code{str: s, set: true}
}

// IntCode returns an integer code.
func IntCode(n int) Code {
	return Code{num: n, isNum: true, set: true}
}

// IsZero reports whether no code is set.
func (c Code) IsZero() bool { return !c.set }

// Int returns the integer code.
func (c Code) Int() (int, bool) { return c.num, c.isNum }

// String returns the code as text.
func (c Code) String() string {
	if c.isNum {
		return strconv.Itoa(c.num)
	}
	return c.str
}

// RelatedInformation points at another location relevant to a diagnostic.
type RelatedInformation struct {
	URI     uri.URI
	Range   engine.Range
	Message string
}

// Diagnostic is a problem reported against a range of a document.
type Diagnostic struct {
	Range    engine.Range
	Message  string
	Severity Severity
	Code     Code
	Source   string
	Tags     []Tag
	Related  []RelatedInformation
}

// New returns an error diagnostic.
func New(r engine.Range, message string) Diagnostic {
	return Diagnostic{Range: r, Message: message, Severity: SeverityError}
}

// Equal reports whether both diagnostics are identical.
func (d Diagnostic) Equal(other Diagnostic) bool {
	return d.Range == other.Range &&
		d.Message == other.Message &&
		d.Severity == other.Severity &&
		d.Code == other.Code &&
		d.Source == other.Source &&
		slices.Equal(d.Tags, other.Tags) &&
		slices.Equal(d.Related, other.Related)
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.Icon())
	sb.WriteString(" ")
	if d.Source != "" {
		sb.WriteString("[")
		sb.WriteString(d.Source)
		sb.WriteString("] ")
	}
	sb.WriteString(d.Message)
	if !d.Code.IsZero() {
		sb.WriteString(" (")
		sb.WriteString(d.Code.String())
		sb.WriteString(")")
	}
	return sb.String()
}

// FormatWithLocation formats d prefixed with a 1-based path:line:col.
func FormatWithLocation(path string, d Diagnostic) string {
	return fmt.Sprintf("%s:%d:%d: %s",
		path,
		d.Range.Start.Line+1,
		d.Range.Start.Character+1,
		d.String(),
	)
}

// Sort orders diagnostics by position, then severity.
func Sort(diags []Diagnostic) {
	slices.SortStableFunc(diags, func(a, b Diagnostic) int {
		if c := a.Range.Start.Compare(b.Range.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Severity, b.Severity)
	})
}

func equalAll(a, b []Diagnostic) bool {
	return slices.EqualFunc(a, b, Diagnostic.Equal)
}
