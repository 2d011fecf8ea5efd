package editor

import "strings"

// Options are the per-editor formatting settings providers read.
type Options struct {
	TabSize      int
	InsertSpaces bool
}

// DefaultOptions returns four-space indentation.
func DefaultOptions() Options {
	return Options{TabSize: 4, InsertSpaces: true}
}

func (o Options) normalize() Options {
	if o.TabSize <= 0 {
		o.TabSize = DefaultOptions().TabSize
	}
	return o
}

// Indent returns one indentation unit.
func (o Options) Indent() string {
	if !o.InsertSpaces {
		return "\t"
	}
	return strings.Repeat(" ", o.normalize().TabSize)
}
