package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/uri"
	"github.com/dshills/exthost/internal/workspace"
)

var applyCmd = &cobra.Command{
	Use:   "apply [flags] <edit.yaml>",
	Short: "Apply a workspace edit described in a YAML file",
	Long: `Apply a workspace edit with the configured policy and save the touched documents.

The edit file lists replacements per resource. Ranges are zero-based
[startLine, startCharacter, endLine, endCharacter] in UTF-16 code units.
Relative paths resolve against the edit file's directory.

  changes:
    - uri: src/main.go
      edits:
        - range: [0, 0, 0, 7]
          text: "package"`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().Bool("dry-run", false, "apply in memory without saving")
	applyCmd.Flags().String("policy", "", "override the edit policy (atomic|best-effort)")
}

type editFile struct {
	Changes []resourceEdits `yaml:"changes"`
}

type resourceEdits struct {
	URI   string     `yaml:"uri"`
	Edits []textEdit `yaml:"edits"`
}

type textEdit struct {
	Range []int  `yaml:"range"`
	Text  string `yaml:"text"`
}

// parseEditFile decodes an edit file. base resolves relative paths.
func parseEditFile(data []byte, base string) (*workspace.Edit, error) {
	var f editFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse edit file: %w", err)
	}
	e := workspace.NewEdit()
	for i, res := range f.Changes {
		u, err := resolveURI(res.URI, base)
		if err != nil {
			return nil, fmt.Errorf("changes[%d]: %w", i, err)
		}
		for j, te := range res.Edits {
			if len(te.Range) != 4 {
				return nil, fmt.Errorf("changes[%d].edits[%d]: range needs 4 numbers, got %d", i, j, len(te.Range))
			}
			r := engine.Range{
				Start: engine.Position{Line: te.Range[0], Character: te.Range[1]},
				End:   engine.Position{Line: te.Range[2], Character: te.Range[3]},
			}
			e.Replace(u, r, te.Text)
		}
	}
	return e, nil
}

// resolveURI accepts a URI with a scheme or a file path.
func resolveURI(s, base string) (uri.URI, error) {
	if s == "" {
		return uri.URI{}, errors.New("uri is required")
	}
	if strings.Contains(s, "://") || strings.HasPrefix(s, uri.SchemeUntitled+":") {
		return uri.Parse(s)
	}
	if !filepath.IsAbs(s) {
		s = filepath.Join(base, s)
	}
	return uri.File(s), nil
}

func runApply(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	edit, err := parseEditFile(data, filepath.Dir(abs))
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if p, _ := cmd.Flags().GetString("policy"); p != "" {
		cfg.Workspace.EditPolicy = p
	}
	host, err := newHost(cfg)
	if err != nil {
		return err
	}
	defer host.Close()

	ctx := cmd.Context()
	res, err := host.ApplyEdit(ctx, edit)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	saveErrs := map[uri.URI]error{}
	if !dryRun {
		for _, r := range res.Resources {
			if r.Applied && r.Event != nil {
				saved, err := host.Store().Save(ctx, r.URI).Await(ctx)
				if err == nil && !saved {
					err = errors.New("document was not written")
				}
				if err != nil {
					saveErrs[r.URI] = err
				}
			}
		}
	}

	color.NoColor = !useColor(cmd, os.Stdout)
	printApplyResult(cmd.OutOrStdout(), res, saveErrs)
	if !res.Applied || len(saveErrs) > 0 {
		return errSilent
	}
	return nil
}

func printApplyResult(w io.Writer, res *workspace.ApplyResult, saveErrs map[uri.URI]error) {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, r := range res.Resources {
		name := displayName(r.URI)
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", bad("✗"), name, r.Err)
		case saveErrs[r.URI] != nil:
			fmt.Fprintf(w, "%s %s: save: %v\n", bad("✗"), name, saveErrs[r.URI])
		case r.Event == nil:
			fmt.Fprintf(w, "%s %s %s\n", dim("-"), name, dim("(unchanged)"))
		default:
			fmt.Fprintf(w, "%s %s %s\n", ok("✓"), name, dim(fmt.Sprintf("(%d changes, v%d)", len(r.Event.Changes), r.Event.Version)))
		}
	}
	fmt.Fprintf(w, "policy %s: %d resources, %d failed\n", res.Policy, len(res.Resources), len(res.Failed))
}

func displayName(u uri.URI) string {
	if !u.IsFile() {
		return u.String()
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, u.FsPath()); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return u.FsPath()
}
