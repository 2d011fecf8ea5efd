// Package glob matches slash-separated paths against glob patterns.
//
// Supported syntax:
//
//	*        any run of characters except '/'
//	?        one character except '/'
//	**       any number of path segments, including none
//	{a,b}    either alternative (alternatives may contain globs)
//	[abc]    character class, [!abc] negated
//
// Matching is against the whole path.
package glob

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrBadPattern indicates a malformed pattern.
var ErrBadPattern = errors.New("glob: bad pattern")

// Pattern is a compiled glob.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// Compile parses a glob pattern.
func Compile(pattern string) (*Pattern, error) {
	expr, err := translate(pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, pattern, err)
	}
	return &Pattern{source: pattern, re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether pattern matches path. A malformed pattern matches
// nothing.
func Match(pattern, path string) bool {
	p, err := Compile(pattern)
	if err != nil {
		return false
	}
	return p.Match(path)
}

// String returns the source pattern.
func (p *Pattern) String() string { return p.source }

// Match reports whether the whole path matches.
func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(strings.ReplaceAll(path, "\\", "/"))
}

// MatchAny reports whether path or any of its trailing segment suffixes
// match. A pattern without a '/' therefore matches by base name.
func (p *Pattern) MatchAny(path string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	for {
		if p.re.MatchString(path) {
			return true
		}
		i := strings.IndexByte(path, '/')
		if i < 0 {
			return false
		}
		path = path[i+1:]
	}
}

func translate(pattern string) (string, error) {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				atStart := i == 1 || pattern[i-2] == '/'
				if atStart && i+1 < len(pattern) && pattern[i+1] == '/' {
					// "**/" matches zero or more leading segments.
					i++
					sb.WriteString("(?:.*/)?")
				} else {
					sb.WriteString(".*")
				}
				continue
			}
			sb.WriteString("[^/]*")
		case '?':
			sb.WriteString("[^/]")
		case '{':
			depth++
			sb.WriteString("(?:")
		case '}':
			if depth == 0 {
				sb.WriteString(`\}`)
				continue
			}
			depth--
			sb.WriteString(")")
		case ',':
			if depth > 0 {
				sb.WriteString("|")
				continue
			}
			sb.WriteString(",")
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: %q: unterminated class", ErrBadPattern, pattern)
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			sb.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i += end + 1
		case '\\':
			if i+1 < len(pattern) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(pattern[i])))
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("%w: %q: unbalanced braces", ErrBadPattern, pattern)
	}
	return sb.String(), nil
}
