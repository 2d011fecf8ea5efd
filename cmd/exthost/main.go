// Package main is the exthost command line: it applies workspace edits,
// runs Lua diagnostics over files, watches directories and serves the
// document model over the Language Server Protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"github.com/dshills/exthost/internal/app"
	"github.com/dshills/exthost/internal/config"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/logging"
	"github.com/dshills/exthost/internal/plugin"
	"github.com/dshills/exthost/internal/plugin/lua"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errSilent makes main exit with status 1 without printing anything more.
var errSilent = errors.New("silent failure")

var rootCmd = &cobra.Command{
	Use:           "exthost",
	Short:         "Extension host document model tools",
	Long:          `exthost hosts text documents, editors and language providers for editor extensions`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		logging.Configure(logging.ParseLevel(level), "")
		return nil
	},
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extensionsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to configuration file (default: exthost.toml in the working directory)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads --config, or the default file in the working directory.
// It returns the directory relative script paths resolve against.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		path = config.Find(wd)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	if flag := cmd.Flags().Lookup("log-level"); flag == nil || !flag.Changed {
		logging.Configure(logging.ParseLevel(cfg.Log.Level), cfg.Log.File)
	} else if cfg.Log.File != "" {
		logging.Configure(logging.ParseLevel(flag.Value.String()), cfg.Log.File)
	}

	base := wd
	if path != "" {
		base = filepath.Dir(path)
	}
	return cfg, base, nil
}

// newHost builds the host state from the configuration.
func newHost(cfg *config.Config) (*app.Context, error) {
	return app.New(app.WithConfig(cfg), app.WithLogger(logging.New("app")))
}

// loadProviders registers the configured provider scripts and the
// discovered extensions with host. Load failures are logged; everything
// that loaded stays registered until the returned value is disposed.
func loadProviders(ctx context.Context, host *app.Context, cfg *config.Config, base string) event.Disposable {
	stateOpts := []lua.StateOption{
		lua.WithExecutionTimeout(cfg.Providers.Timeout.Duration),
		lua.WithStateLogger(host.Logger().WithComponent("lua")),
	}
	scripts, err := lua.LoadAll(cfg.Scripts, base, host.Languages(), stateOpts...)
	if err != nil {
		host.Logger().Warn("%v", err)
	}

	extCfg := plugin.ConfigFrom(cfg.Extensions, base)
	extCfg.StateOptions = stateOpts
	extensions := plugin.NewManager(host.Languages(), extCfg,
		plugin.WithLanguages(host.Store().Languages()),
		plugin.WithLogger(host.Logger().WithComponent("extensions")),
	)
	if err := extensions.LoadAll(ctx); err != nil {
		host.Logger().Warn("%v", err)
	}
	host.Logger().Debug("%d scripts, %d extensions loaded", len(scripts.Scripts()), extensions.Count())
	return event.From(extensions, scripts)
}

// useColor resolves the --color flag against the terminal state of f.
func useColor(cmd *cobra.Command, f *os.File) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on", "always":
		return true
	case "off", "never":
		return false
	default:
		return isTerminal(f)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
