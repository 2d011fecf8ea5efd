package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/exthost/internal/glob"
)

// IgnorePatterns holds gitignore-style rules:
//   - *.log              files ending in .log at any depth
//   - /build/            the build directory at the root
//   - **/node_modules/** anything below node_modules
//   - !keep.log          re-include keep.log
//
// Later rules override earlier ones.
type IgnorePatterns struct {
	mu    sync.RWMutex
	rules []ignoreRule
}

type ignoreRule struct {
	source   string
	glob     *glob.Pattern
	negation bool
	dirOnly  bool
	rooted   bool
}

// NewIgnorePatterns creates an empty rule set.
func NewIgnorePatterns() *IgnorePatterns {
	return &IgnorePatterns{}
}

// AddPattern adds one rule. Blank lines and comments are skipped.
func (ip *IgnorePatterns) AddPattern(pattern string) error {
	pattern = strings.TrimRight(pattern, " \t")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return nil
	}

	r := ignoreRule{source: pattern}
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.rooted = true
		pattern = pattern[1:]
	}
	if pattern == "" {
		return nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return err
	}
	r.glob = g

	ip.mu.Lock()
	ip.rules = append(ip.rules, r)
	ip.mu.Unlock()
	return nil
}

// AddPatterns adds several rules, stopping at the first bad one.
func (ip *IgnorePatterns) AddPatterns(patterns []string) error {
	for _, p := range patterns {
		if err := ip.AddPattern(p); err != nil {
			return err
		}
	}
	return nil
}

// AddFromFile loads rules from a .gitignore style file.
func (ip *IgnorePatterns) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ip.AddPattern(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Len returns the number of rules.
func (ip *IgnorePatterns) Len() int {
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	return len(ip.rules)
}

// Match reports whether rel, a path relative to the watched root, is
// ignored. A path below an ignored directory is ignored too.
func (ip *IgnorePatterns) Match(rel string, isDir bool) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}

	ip.mu.RLock()
	defer ip.mu.RUnlock()

	ignored := false
	for _, r := range ip.rules {
		if r.matches(rel, isDir) {
			ignored = !r.negation
		}
	}
	return ignored
}

func (r ignoreRule) matches(rel string, isDir bool) bool {
	if r.matchPath(rel, isDir) {
		return true
	}
	// Any ancestor directory matching the rule ignores the path.
	parts := strings.Split(rel, "/")
	for i := len(parts) - 1; i > 0; i-- {
		if r.matchPath(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return false
}

func (r ignoreRule) matchPath(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	if r.rooted || strings.Contains(r.glob.String(), "/") {
		return r.glob.Match(rel)
	}
	return r.glob.MatchAny(rel)
}
