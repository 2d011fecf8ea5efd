package languages

import (
	"github.com/dshills/exthost/internal/glob"
	"github.com/dshills/exthost/internal/uri"
)

// Filter narrows the documents a provider applies to. Empty fields match
// anything; "*" matches anything with a lower score than an exact match.
type Filter struct {
	Language string `toml:"language" yaml:"language"`
	Scheme   string `toml:"scheme" yaml:"scheme"`
	Pattern  string `toml:"pattern" yaml:"pattern"`
}

// Selector is a list of filters. A document matches when any filter does.
type Selector []Filter

// ForLanguages returns a selector matching each language id.
func ForLanguages(ids ...string) Selector {
	s := make(Selector, len(ids))
	for i, id := range ids {
		s[i] = Filter{Language: id}
	}
	return s
}

// Score rates how well the filter matches a document. Zero means no match,
// 10 an exact match and 5 a wildcard match.
func (f Filter) Score(u uri.URI, languageID string) int {
	score := 0

	if f.Language != "" {
		switch f.Language {
		case languageID:
			score = 10
		case "*":
			score = max(score, 5)
		default:
			return 0
		}
	}

	if f.Scheme != "" {
		switch f.Scheme {
		case u.Scheme():
			score = 10
		case "*":
			score = max(score, 5)
		default:
			return 0
		}
	}

	if f.Pattern != "" {
		path := u.Path()
		if u.IsFile() {
			path = u.FsPath()
		}
		if f.Pattern != path && !glob.Match(f.Pattern, path) {
			return 0
		}
		score = 10
	}

	return score
}

// Score returns the best score of any filter.
func (s Selector) Score(u uri.URI, languageID string) int {
	best := 0
	for _, f := range s {
		best = max(best, f.Score(u, languageID))
	}
	return best
}
