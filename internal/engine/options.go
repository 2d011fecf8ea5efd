package engine

import (
	"regexp"

	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/logging"
)

// DefaultVersion is the version of a newly opened document.
const DefaultVersion = 1

// DefaultWordPattern matches numbers such as -1.5e3 and runs of characters
// that are neither separators nor whitespace.
var DefaultWordPattern = regexp.MustCompile(`(-?\d*\.\d\w*)|([^` + "`" + `~!@#$%^&*()\-=+\[{\]}\\|;:'",.<>/?\s]+)`)

// Option configures a Document during creation.
type Option func(*options)

type options struct {
	version     int
	dirty       bool
	eol         buffer.EOL
	eolSet      bool
	wordPattern *regexp.Regexp
	logger      *logging.Logger
}

// WithVersion sets the initial version, as reported by a client that owns
// the document.
func WithVersion(v int) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithDirty marks the document as having unsaved changes from the start,
// as for restored backups.
func WithDirty() Option {
	return func(o *options) {
		o.dirty = true
	}
}

// WithEOL forces the line terminator instead of detecting it.
func WithEOL(eol buffer.EOL) Option {
	return func(o *options) {
		o.eol = eol
		o.eolSet = true
	}
}

// WithWordPattern sets the pattern used by WordRangeAtPosition when the
// caller passes none.
func WithWordPattern(re *regexp.Regexp) Option {
	return func(o *options) {
		if re != nil {
			o.wordPattern = re
		}
	}
}

// WithLogger sets the document's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
