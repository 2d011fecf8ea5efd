// Package uri implements resource identifiers for documents: files on disk
// and in-memory untitled buffers.
package uri

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// Well-known schemes.
const (
	SchemeFile     = "file"
	SchemeUntitled = "untitled"
)

// ErrInvalid is returned when a string cannot be parsed as a resource
// identifier.
var ErrInvalid = errors.New("invalid uri")

// URI identifies a document. It is comparable and can be used as a map key.
// The zero value is the empty URI.
type URI struct {
	scheme    string
	authority string
	path      string
	query     string
	fragment  string
}

// Parse parses s. A scheme is required.
func Parse(s string) (URI, error) {
	if s == "" {
		return URI{}, fmt.Errorf("%w: empty", ErrInvalid)
	}
	u, err := url.Parse(s)
	if err != nil {
		return URI{}, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	if u.Scheme == "" {
		return URI{}, fmt.Errorf("%w: %q: missing scheme", ErrInvalid, s)
	}
	path := u.Path
	if path == "" && u.Opaque != "" {
		path = u.Opaque
	}
	return URI{
		scheme:    strings.ToLower(u.Scheme),
		authority: u.Host,
		path:      path,
		query:     u.RawQuery,
		fragment:  u.Fragment,
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// File returns the file URI for a filesystem path. Relative paths are made
// absolute.
func File(path string) URI {
	if path == "" {
		return URI{}
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	path = filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + strings.ToLower(path[:1]) + path[1:]
	}
	return URI{scheme: SchemeFile, path: path}
}

// Untitled returns an identifier for an unsaved buffer.
func Untitled(name string) URI {
	return URI{scheme: SchemeUntitled, path: name}
}

// Scheme returns the part before the first colon.
func (u URI) Scheme() string { return u.scheme }

// Authority returns the host part.
func (u URI) Authority() string { return u.authority }

// Path returns the unescaped path.
func (u URI) Path() string { return u.path }

// Query returns the raw query.
func (u URI) Query() string { return u.query }

// Fragment returns the fragment.
func (u URI) Fragment() string { return u.fragment }

// IsZero reports whether u is the empty URI.
func (u URI) IsZero() bool {
	return u == URI{}
}

// IsFile reports whether u addresses a file on disk.
func (u URI) IsFile() bool {
	return u.scheme == SchemeFile
}

// IsUntitled reports whether u addresses an unsaved buffer.
func (u URI) IsUntitled() bool {
	return u.scheme == SchemeUntitled
}

// FsPath returns the platform file system path for u, ignoring the scheme.
// UNC authorities are preserved.
func (u URI) FsPath() string {
	p := u.path
	if u.authority != "" && u.scheme == SchemeFile {
		p = "//" + u.authority + p
	}
	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = strings.ToLower(p[1:2]) + p[2:]
	}
	return filepath.FromSlash(p)
}

// Base returns the last path element.
func (u URI) Base() string {
	if u.path == "" {
		return ""
	}
	i := strings.LastIndexByte(u.path, '/')
	return u.path[i+1:]
}

// Ext returns the file name extension including the dot.
func (u URI) Ext() string {
	return filepath.Ext(u.Base())
}

// String returns the canonical form.
func (u URI) String() string {
	if u.IsZero() {
		return ""
	}
	if u.authority == "" && !strings.HasPrefix(u.path, "/") {
		return u.scheme + ":" + u.path + suffix(u)
	}
	v := url.URL{
		Scheme:   u.scheme,
		Host:     u.authority,
		Path:     u.path,
		RawQuery: u.query,
		Fragment: u.fragment,
	}
	if v.Host == "" && u.scheme == SchemeFile {
		// file:///path rather than file:/path
		return "file://" + v.EscapedPath() + suffix(u)
	}
	return v.String()
}

func suffix(u URI) string {
	var sb strings.Builder
	if u.query != "" {
		sb.WriteByte('?')
		sb.WriteString(u.query)
	}
	if u.fragment != "" {
		sb.WriteByte('#')
		sb.WriteString((&url.URL{Fragment: u.fragment}).EscapedFragment())
	}
	return sb.String()
}

// Compare orders URIs by their string form.
func Compare(a, b URI) int {
	return strings.Compare(a.String(), b.String())
}

// MarshalText implements encoding.TextMarshaler.
func (u URI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *URI) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
