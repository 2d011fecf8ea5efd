package workspace

import (
	"maps"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/exthost/internal/uri"
)

// PlainText is the language id of documents with no recognised extension.
const PlainText = "plaintext"

var defaultExtensions = map[string]string{
	".go":       "go",
	".py":       "python",
	".js":       "javascript",
	".ts":       "typescript",
	".jsx":      "javascriptreact",
	".tsx":      "typescriptreact",
	".rs":       "rust",
	".rb":       "ruby",
	".java":     "java",
	".c":        "c",
	".cpp":      "cpp",
	".cc":       "cpp",
	".cxx":      "cpp",
	".h":        "cpp",
	".hpp":      "cpp",
	".cs":       "csharp",
	".php":      "php",
	".swift":    "swift",
	".kt":       "kotlin",
	".html":     "html",
	".htm":      "html",
	".css":      "css",
	".json":     "json",
	".yaml":     "yaml",
	".yml":      "yaml",
	".xml":      "xml",
	".md":       "markdown",
	".markdown": "markdown",
	".sql":      "sql",
	".sh":       "shellscript",
	".bash":     "shellscript",
	".lua":      "lua",
	".toml":     "toml",
	".ini":      "ini",
	".proto":    "protobuf",
	".txt":      PlainText,
}

// Languages maps file extensions to language ids. The zero value is not
// usable; use NewLanguages.
type Languages struct {
	mu    sync.RWMutex
	byExt map[string]string
}

// NewLanguages returns the built-in mapping.
func NewLanguages() *Languages {
	return &Languages{byExt: maps.Clone(defaultExtensions)}
}

// Register associates extensions (with or without the leading dot) with a
// language id, overriding earlier associations.
func (l *Languages) Register(languageID string, extensions ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.byExt[strings.ToLower(ext)] = languageID
	}
}

// Detect returns the language id for u, or PlainText.
func (l *Languages) Detect(u uri.URI) string {
	return l.DetectPath(u.Path())
}

// DetectPath returns the language id for a file path, or PlainText.
func (l *Languages) DetectPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id, ok := l.byExt[ext]; ok {
		return id
	}
	return PlainText
}
