// Package config loads exthost settings.
//
// Settings are layered: built-in defaults, then a TOML or YAML file, then
// EXTHOST_* environment variables. The merged result is decoded into a
// typed Config and validated.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/exthost/internal/config/loader"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "EXTHOST_"

// DefaultFileNames are searched by Find, in order.
var DefaultFileNames = []string{"exthost.toml", ".exthost.toml", "exthost.yaml", "exthost.yml"}

// Config is the complete exthost configuration.
type Config struct {
	Log        LogConfig                 `toml:"log"`
	Editor     EditorConfig              `toml:"editor"`
	Languages  map[string]LanguageConfig `toml:"languages"`
	Workspace  WorkspaceConfig           `toml:"workspace"`
	Providers  ProvidersConfig           `toml:"providers"`
	Watcher    WatcherConfig             `toml:"watcher"`
	Scripts    []ScriptConfig            `toml:"scripts"`
	Extensions ExtensionsConfig          `toml:"extensions"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// EditorConfig holds the defaults for new editors and documents.
type EditorConfig struct {
	TabSize      int    `toml:"tab_size"`
	InsertSpaces bool   `toml:"insert_spaces"`
	EOL          string `toml:"eol"`
}

// LanguageConfig customizes one language id.
type LanguageConfig struct {
	WordPattern string   `toml:"word_pattern"`
	Extensions  []string `toml:"extensions"`
}

// WorkspaceConfig configures the document store and edit application.
type WorkspaceConfig struct {
	Root        string `toml:"root"`
	EditPolicy  string `toml:"edit_policy"`
	MaxFileSize int64  `toml:"max_file_size"`
	Backup      string `toml:"backup"`
}

// ProvidersConfig configures provider calls.
type ProvidersConfig struct {
	Timeout Duration `toml:"timeout"`
}

// WatcherConfig configures file watching.
type WatcherConfig struct {
	Debounce     Duration `toml:"debounce"`
	Ignore       []string `toml:"ignore"`
	IgnoreHidden bool     `toml:"ignore_hidden"`
}

// ScriptConfig declares a Lua provider script.
type ScriptConfig struct {
	Path      string   `toml:"path"`
	Languages []string `toml:"languages"`
	Kinds     []string `toml:"kinds"`
}

// ExtensionsConfig configures extension discovery. Empty Paths search the
// default extension directories.
type ExtensionsConfig struct {
	Paths        []string `toml:"paths"`
	Disabled     []string `toml:"disabled"`
	AutoActivate bool     `toml:"auto_activate"`
}

// Script kinds.
const (
	KindDiagnostics = "diagnostics"
	KindFormatting  = "formatting"
	KindHover       = "hover"
)

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: "info"},
		Editor:    EditorConfig{TabSize: 4, InsertSpaces: true, EOL: "auto"},
		Languages: map[string]LanguageConfig{},
		Workspace: WorkspaceConfig{
			EditPolicy:  "atomic",
			MaxFileSize: 10 * 1024 * 1024,
		},
		Providers: ProvidersConfig{Timeout: Duration{5 * time.Second}},
		Watcher: WatcherConfig{
			Debounce:     Duration{100 * time.Millisecond},
			Ignore:       []string{".git/", "node_modules/", "vendor/", "*.swp", "*~"},
			IgnoreHidden: false,
		},
		Extensions: ExtensionsConfig{AutoActivate: true},
	}
}

// Load builds the configuration from defaults, the file at path (skipped
// when empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	return LoadFS(loader.DefaultFS(), path)
}

// LoadFS is Load reading the file through fsys.
func LoadFS(fsys loader.FileSystem, path string) (*Config, error) {
	var layers []map[string]any
	if path != "" {
		m, err := loader.ForPath(fsys, path).Load()
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		layers = append(layers, m)
	}

	env, err := loader.NewEnvLoader(EnvPrefix).Load()
	if err != nil {
		return nil, err
	}
	layers = append(layers, env)

	cfg, err := decode(layers...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a single file without environment overrides.
func LoadFile(path string) (*Config, error) {
	m, err := loader.ForPath(loader.DefaultFS(), path).Load()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	cfg, err := decode(m)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// decode merges the layers and decodes them over the defaults.
func decode(layers ...map[string]any) (*Config, error) {
	merged := map[string]any{}
	for _, l := range layers {
		merged = loader.DeepMerge(merged, loader.Clone(l))
	}

	cfg := Default()
	if len(merged) == 0 {
		return cfg, nil
	}
	data, err := toml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return cfg, nil
}

// Find returns the first default configuration file in dir, or "".
func Find(dir string) string {
	for _, name := range DefaultFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.Log.Level)) {
		add("log.level", "unknown level %q", c.Log.Level)
	}
	if c.Editor.TabSize < 1 || c.Editor.TabSize > 32 {
		add("editor.tab_size", "must be between 1 and 32, got %d", c.Editor.TabSize)
	}
	if !slices.Contains([]string{"auto", "lf", "crlf"}, strings.ToLower(c.Editor.EOL)) {
		add("editor.eol", "must be auto, lf or crlf, got %q", c.Editor.EOL)
	}
	switch strings.ToLower(c.Workspace.EditPolicy) {
	case "atomic", "best-effort", "besteffort", "best_effort":
	default:
		add("workspace.edit_policy", "must be atomic or best-effort, got %q", c.Workspace.EditPolicy)
	}
	if c.Workspace.MaxFileSize < 0 {
		add("workspace.max_file_size", "must not be negative")
	}
	if c.Providers.Timeout.Duration < 0 {
		add("providers.timeout", "must not be negative")
	}
	if c.Watcher.Debounce.Duration < 0 {
		add("watcher.debounce", "must not be negative")
	}
	for id, lang := range c.Languages {
		if lang.WordPattern == "" {
			continue
		}
		if _, err := regexp.Compile(lang.WordPattern); err != nil {
			add("languages."+id+".word_pattern", "%v", err)
		}
	}
	for i, s := range c.Scripts {
		field := fmt.Sprintf("scripts[%d]", i)
		if s.Path == "" {
			add(field+".path", "is required")
		}
		for _, k := range s.Kinds {
			if !slices.Contains([]string{KindDiagnostics, KindFormatting, KindHover}, k) {
				add(field+".kinds", "unknown kind %q", k)
			}
		}
	}
	return errors.Join(errs...)
}

// WordPattern returns the compiled word pattern of a language, or nil.
func (c *Config) WordPattern(languageID string) *regexp.Regexp {
	lang, ok := c.Languages[languageID]
	if !ok || lang.WordPattern == "" {
		return nil
	}
	re, err := regexp.Compile(lang.WordPattern)
	if err != nil {
		return nil
	}
	return re
}

// ScriptPath resolves a script path relative to base.
func (s ScriptConfig) ScriptPath(base string) string {
	if filepath.IsAbs(s.Path) || base == "" {
		return s.Path
	}
	return filepath.Join(base, s.Path)
}

// SearchPaths resolves the extension paths relative to base.
func (e ExtensionsConfig) SearchPaths(base string) []string {
	out := make([]string, 0, len(e.Paths))
	for _, p := range e.Paths {
		if !filepath.IsAbs(p) && base != "" {
			p = filepath.Join(base, p)
		}
		out = append(out, p)
	}
	return out
}

// HasKind reports whether the script provides kind. A script without kinds
// provides all of them.
func (s ScriptConfig) HasKind(kind string) bool {
	return len(s.Kinds) == 0 || slices.Contains(s.Kinds, kind)
}
