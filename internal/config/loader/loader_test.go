package loader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"
)

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return []byte(data), nil
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m[path]; ok {
		return memFileInfo(path), nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo string

func (f memFileInfo) Name() string       { return string(f) }
func (f memFileInfo) Size() int64        { return 0 }
func (f memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f memFileInfo) ModTime() time.Time { return time.Time{} }
func (f memFileInfo) IsDir() bool        { return false }
func (f memFileInfo) Sys() any           { return nil }

func getByPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := data
	for i, part := range parts {
		v, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if current, ok = v.(map[string]any); !ok {
			return nil, false
		}
	}
	return nil, false
}

func TestTOMLLoader(t *testing.T) {
	fsys := memFS{"/exthost.toml": `
[editor]
tab_size = 2
eol = "crlf"

[[scripts]]
path = "lint.lua"
`}
	config, err := NewTOMLLoaderWithFS(fsys, "/exthost.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, _ := getByPath(config, "editor.tab_size"); v != int64(2) {
		t.Errorf("tab_size = %v (%T), want 2", v, v)
	}
	if v, _ := getByPath(config, "editor.eol"); v != "crlf" {
		t.Errorf("eol = %v, want crlf", v)
	}
	if scripts, ok := config["scripts"].([]any); !ok || len(scripts) != 1 {
		t.Errorf("expected one script table, got %v", config["scripts"])
	}
}

func TestTOMLLoaderMissingFile(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(memFS{}, "/none.toml").Load()
	if err != nil || config != nil {
		t.Errorf("missing file must yield nil, nil; got %v, %v", config, err)
	}
}

func TestTOMLLoaderParseError(t *testing.T) {
	fsys := memFS{"/bad.toml": "[editor\ntab_size = 2"}
	_, err := NewTOMLLoaderWithFS(fsys, "/bad.toml").Load()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Path != "/bad.toml" || pe.Line == 0 {
		t.Errorf("expected path and line, got %+v", pe)
	}
}

func TestYAMLLoader(t *testing.T) {
	fsys := memFS{"/exthost.yaml": `
editor:
  tab_size: 8
  insert_spaces: false
watcher:
  ignore: ["*.log", "build/"]
`}
	config, err := ForPath(fsys, "/exthost.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, _ := getByPath(config, "editor.tab_size"); v != int64(8) {
		t.Errorf("tab_size = %v (%T), want int64 8", v, v)
	}
	if v, _ := getByPath(config, "editor.insert_spaces"); v != false {
		t.Errorf("insert_spaces = %v, want false", v)
	}
	if v, _ := getByPath(config, "watcher.ignore"); len(v.([]any)) != 2 {
		t.Errorf("unexpected ignore list %v", v)
	}

	if _, err := ForPath(memFS{"/x.yml": "a: [b"}, "/x.yml").Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("EXTHOST_EDITOR_TAB_SIZE", "2")
	t.Setenv("EXTHOST_LOG_LEVEL", "debug")
	t.Setenv("EXTHOST_WATCHER_IGNORE_HIDDEN", "yes")
	t.Setenv("EXTHOST_WATCHER_DEBOUNCE", "250ms")
	t.Setenv("EXTHOST_ROOT", "/srv")
	t.Setenv("OTHER_EDITOR_TAB_SIZE", "9")

	l := NewEnvLoader("EXTHOST_")
	l.AddMapping("EXTHOST_ROOT", "workspace.root")
	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := map[string]any{
		"editor.tab_size":       int64(2),
		"log.level":             "debug",
		"watcher.ignore_hidden": true,
		"watcher.debounce":      "250ms",
		"workspace.root":        "/srv",
	}
	for path, want := range tests {
		if got, ok := getByPath(config, path); !ok || got != want {
			t.Errorf("%s = %v (%T), want %v", path, got, got, want)
		}
	}
	if _, ok := config["other"]; ok {
		t.Error("variables without the prefix must be ignored")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"on", true},
		{"OFF", false},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"lf", "lf"},
		{"1", int64(1)},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v", tt.in, got, got, tt.want)
		}
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"editor": map[string]any{"tab_size": int64(4), "eol": "lf"},
		"log":    map[string]any{"level": "info"},
	}
	src := map[string]any{
		"editor": map[string]any{"tab_size": int64(2)},
		"scripts": []any{map[string]any{"path": "a.lua"}},
	}
	before := Clone(dst)
	merged := DeepMerge(Clone(dst), src)

	if v, _ := getByPath(merged, "editor.tab_size"); v != int64(2) {
		t.Errorf("src must override, got %v", v)
	}
	if v, _ := getByPath(merged, "editor.eol"); v != "lf" {
		t.Errorf("untouched keys must survive, got %v", v)
	}
	if _, ok := merged["scripts"]; !ok {
		t.Error("new keys must be added")
	}
	if v, _ := getByPath(before, "editor.tab_size"); v != int64(4) {
		t.Error("Clone must be deep")
	}
}

func TestLoadersEmptyFile(t *testing.T) {
	fsys := memFS{"/empty.toml": "", "/comments.toml": "# nothing\n", "/empty.yaml": ""}
	for path := range fsys {
		t.Run(path, func(t *testing.T) {
			m, err := ForPath(fsys, path).Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if m == nil || len(m) != 0 {
				t.Errorf("expected an empty non-nil map, got %#v", m)
			}
		})
	}
}
