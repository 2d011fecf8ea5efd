package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/uri"
	"github.com/dshills/exthost/internal/workspace"
)

func TestResolveURI(t *testing.T) {
	tests := []struct {
		in     string
		scheme string
		path   string
	}{
		{"main.go", "file", "/w/main.go"},
		{"sub/a.txt", "file", "/w/sub/a.txt"},
		{"/abs/b.txt", "file", "/abs/b.txt"},
		{"file:///x/c.txt", "file", "/x/c.txt"},
		{"untitled:Untitled-1", "untitled", "Untitled-1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := resolveURI(tt.in, "/w")
			if err != nil {
				t.Fatal(err)
			}
			if u.Scheme() != tt.scheme {
				t.Errorf("scheme = %q, want %q", u.Scheme(), tt.scheme)
			}
			if tt.scheme == "file" && u.FsPath() != tt.path {
				t.Errorf("path = %q, want %q", u.FsPath(), tt.path)
			}
		})
	}

	if _, err := resolveURI("", "/w"); err == nil {
		t.Error("empty uri must fail")
	}
}

func TestParseEditFile(t *testing.T) {
	data := []byte(`
changes:
  - uri: a.txt
    edits:
      - range: [0, 0, 0, 3]
        text: "one"
      - range: [1, 0, 1, 0]
        text: "two\n"
  - uri: untitled:scratch
    edits:
      - range: [0, 0, 0, 0]
        text: "x"
`)
	e, err := parseEditFile(data, "/w")
	if err != nil {
		t.Fatal(err)
	}
	if e.Size() != 3 {
		t.Fatalf("expected 3 operations, got %d", e.Size())
	}
	edits := e.Get(uri.File("/w/a.txt"))
	if len(edits) != 2 {
		t.Fatalf("expected 2 edits for a.txt, got %d", len(edits))
	}
	want := engine.Range{End: engine.Position{Character: 3}}
	if edits[0].Range != want || edits[0].NewText != "one" {
		t.Errorf("unexpected first edit %+v", edits[0])
	}
	if !e.Has(uri.MustParse("untitled:scratch")) {
		t.Error("expected the untitled resource")
	}
}

func TestParseEditFileErrors(t *testing.T) {
	tests := map[string]string{
		"yaml":  "changes: [",
		"range": "changes:\n  - uri: a.txt\n    edits:\n      - range: [0, 0, 1]\n",
		"uri":   "changes:\n  - edits:\n      - range: [0, 0, 0, 0]\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseEditFile([]byte(data), "/w"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPrintApplyResult(t *testing.T) {
	u := uri.MustParse("untitled:one")
	res := &workspace.ApplyResult{
		Applied: true,
		Policy:  workspace.PolicyAtomic,
		Resources: []workspace.ResourceResult{
			{URI: u, Applied: true},
		},
	}
	var buf bytes.Buffer
	printApplyResult(&buf, res, nil)
	out := buf.String()
	if !strings.Contains(out, "untitled:one") || !strings.Contains(out, "unchanged") {
		t.Errorf("unexpected output %q", out)
	}
	if !strings.Contains(out, "1 resources, 0 failed") {
		t.Errorf("missing summary in %q", out)
	}
}

func TestApplyCommandSaves(t *testing.T) {
	tests := []struct {
		name   string
		dryRun string
		want   string
	}{
		{"dry run", "--dry-run=true", "hello\n"},
		{"save", "--dry-run=false", "HELLO\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			target := filepath.Join(dir, "a.txt")
			if err := os.WriteFile(target, []byte("hello\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			cfgPath := filepath.Join(dir, "exthost.toml")
			if err := os.WriteFile(cfgPath, nil, 0o644); err != nil {
				t.Fatal(err)
			}
			editPath := filepath.Join(dir, "edit.yaml")
			edit := "changes:\n  - uri: a.txt\n    edits:\n      - range: [0, 0, 0, 5]\n        text: HELLO\n"
			if err := os.WriteFile(editPath, []byte(edit), 0o644); err != nil {
				t.Fatal(err)
			}

			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs([]string{"--config", cfgPath, "--color", "off", "apply", tt.dryRun, editPath})
			t.Cleanup(func() {
				rootCmd.SetOut(nil)
				rootCmd.SetArgs(nil)
			})
			if err := rootCmd.Execute(); err != nil {
				t.Fatalf("apply failed: %v\n%s", err, out.String())
			}

			data, err := os.ReadFile(target)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("file = %q, want %q", data, tt.want)
			}
			if !strings.Contains(out.String(), "1 resources, 0 failed") {
				t.Errorf("unexpected output %q", out.String())
			}
		})
	}
}

func TestPrintApplyResultSaveError(t *testing.T) {
	u := uri.File("/w/a.txt")
	res := &workspace.ApplyResult{
		Applied: true,
		Policy:  workspace.PolicyAtomic,
		Resources: []workspace.ResourceResult{
			{URI: u, Applied: true, Event: &engine.ChangeEvent{Version: 2}},
		},
	}
	var buf bytes.Buffer
	printApplyResult(&buf, res, map[uri.URI]error{u: errors.New("disk full")})
	out := buf.String()
	if !strings.Contains(out, "save: disk full") || strings.Contains(out, "✓") {
		t.Errorf("unexpected output %q", out)
	}
}
