package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/uri"
)

var lintCmd = &cobra.Command{
	Use:   "lint [flags] <file>...",
	Short: "Run the configured diagnostics scripts over files",
	Long: `Open the files, run every diagnostics provider registered for their
languages and print the results. Exits with status 1 when an error is
reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	lintCmd.Flags().Int("max-diagnostics", 0, "maximum number of diagnostics to print per file (0 = all)")
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	host, err := newHost(cfg)
	if err != nil {
		return err
	}
	defer host.Close()
	providers := loadProviders(cmd.Context(), host, cfg, base)
	defer providers.Dispose()

	uris := make([]uri.URI, len(args))
	for i, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		uris[i] = uri.File(abs)
	}

	ctx := cmd.Context()
	docs, err := host.Store().OpenAll(ctx, uris)
	if err != nil {
		return err
	}

	coll := host.Diagnostics().CreateCollection("lint")
	for _, doc := range docs {
		diags := host.Languages().Diagnostics(ctx, doc)
		if _, err := coll.Set(doc.URI(), diags).Await(ctx); err != nil {
			return err
		}
	}

	limit, _ := cmd.Flags().GetInt("max-diagnostics")
	color.NoColor = !useColor(cmd, os.Stdout)
	for i, doc := range docs {
		printDiagnostics(cmd.OutOrStdout(), displayName(uris[i]), coll.Get(doc.URI()), limit)
	}

	summary := host.Diagnostics().Summary()
	printSummary(cmd.OutOrStdout(), summary, len(docs))

	strict, _ := cmd.Flags().GetBool("warnings-as-errors")
	if summary.Errors > 0 || (strict && summary.Warnings > 0) {
		return errSilent
	}
	return nil
}

func severityColor(s diagnostics.Severity) *color.Color {
	switch s {
	case diagnostics.SeverityError:
		return color.New(color.FgRed, color.Bold)
	case diagnostics.SeverityWarning:
		return color.New(color.FgYellow)
	case diagnostics.SeverityInformation:
		return color.New(color.FgBlue)
	default:
		return color.New(color.Faint)
	}
}

func printDiagnostics(w io.Writer, name string, diags []diagnostics.Diagnostic, limit int) {
	diagnostics.Sort(diags)
	for i, d := range diags {
		if limit > 0 && i == limit {
			fmt.Fprintf(w, "%s: %d more not shown\n", name, len(diags)-limit)
			return
		}
		loc := fmt.Sprintf("%s:%d:%d:", name, d.Range.Start.Line+1, d.Range.Start.Character+1)
		fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint(loc), severityColor(d.Severity).Sprint(d.String()))
	}
}

func printSummary(w io.Writer, s diagnostics.Summary, files int) {
	if s.Errors+s.Warnings+s.Infos+s.Hints == 0 {
		fmt.Fprintf(w, "%s %d files checked\n", color.GreenString("✓"), files)
		return
	}
	fmt.Fprintf(w, "%d files checked: %s, %s, %d infos, %d hints\n",
		files,
		color.RedString("%d errors", s.Errors),
		color.YellowString("%d warnings", s.Warnings),
		s.Infos, s.Hints,
	)
}
