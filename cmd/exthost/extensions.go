package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/exthost/internal/plugin"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List discovered extensions",
	Long: `List the extensions found on the configured search paths, with the
state they reach when loaded. Extensions that fail to load are shown with
their error.`,
	Args: cobra.NoArgs,
	RunE: runExtensions,
}

func runExtensions(cmd *cobra.Command, args []string) error {
	cfg, base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	host, err := newHost(cfg)
	if err != nil {
		return err
	}
	defer host.Close()

	m := plugin.NewManager(host.Languages(), plugin.ConfigFrom(cfg.Extensions, base),
		plugin.WithLanguages(host.Store().Languages()),
		plugin.WithLogger(host.Logger().WithComponent("extensions")),
	)
	defer m.Dispose()

	infos, err := m.Discover()
	if err != nil {
		return err
	}
	loadErr := m.LoadAll(cmd.Context())
	host.Logger().Debug("load: %v", loadErr)

	color.NoColor = !useColor(cmd, os.Stdout)
	w := cmd.OutOrStdout()
	for _, info := range infos {
		printExtension(w, m, info, cfg.Extensions.Disabled)
	}
	if len(infos) == 0 {
		fmt.Fprintf(w, "no extensions in %v\n", m.Loader().Paths())
	}
	return nil
}

func printExtension(w io.Writer, m *plugin.Manager, info *plugin.Info, disabled []string) {
	name := color.New(color.Bold).Sprint(info.Name)
	switch ext, ok := m.Get(info.Name); {
	case info.Error != nil:
		fmt.Fprintf(w, "%s %s %v\n", name, color.RedString("invalid"), info.Error)
	case ok && ext.State() == plugin.StateError:
		fmt.Fprintf(w, "%s %s %s\n", name, color.RedString("error"), ext.Err())
	case ok:
		fmt.Fprintf(w, "%s %s %s (%s)\n", name, info.Manifest.Version, color.GreenString(ext.State().String()), info.Manifest.MainPath())
	case slices.Contains(disabled, info.Name):
		fmt.Fprintf(w, "%s %s\n", name, color.New(color.Faint).Sprint("disabled"))
	default:
		fmt.Fprintf(w, "%s %s\n", name, color.YellowString("not loaded"))
	}
}

