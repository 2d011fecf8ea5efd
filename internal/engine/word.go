package engine

import (
	"regexp"

	"github.com/dshills/exthost/internal/engine/buffer"
)

// wordRange finds the match of pattern on line text that covers p. A
// position at either edge of a word belongs to it.
func wordRange(text string, p Position, pattern *regexp.Regexp) (Range, bool) {
	if text == "" {
		return Range{}, false
	}
	col := buffer.ByteIndex(text, p.Character)

	for _, m := range pattern.FindAllStringIndex(text, -1) {
		if m[0] == m[1] {
			continue
		}
		if m[0] > col {
			break
		}
		if col <= m[1] {
			start := Position{Line: p.Line, Character: buffer.UTF16Index(text, m[0])}
			end := Position{Line: p.Line, Character: buffer.UTF16Index(text, m[1])}
			return Range{Start: start, End: end}, true
		}
	}
	return Range{}, false
}
