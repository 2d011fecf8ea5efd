package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/exthost/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <dir>",
	Short: "Print file create, change and delete events under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringP("pattern", "p", "**", "glob pattern relative to the directory")
	watchCmd.Flags().StringSlice("ignore", nil, "additional gitignore-style patterns")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pattern, _ := cmd.Flags().GetString("pattern")
	ignore, _ := cmd.Flags().GetStringSlice("ignore")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := watcher.FromConfig(cfg.Watcher)
	if len(ignore) > 0 {
		opts = append(opts, watcher.WithIgnorePatterns(ignore...))
	}
	w, err := watcher.Watch(ctx, args[0], pattern, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	color.NoColor = !useColor(cmd, os.Stdout)
	out := cmd.OutOrStdout()
	styles := map[watcher.Kind]*color.Color{
		watcher.Created: color.New(color.FgGreen),
		watcher.Changed: color.New(color.FgYellow),
		watcher.Deleted: color.New(color.FgRed),
	}
	show := func(ev watcher.FileEvent) {
		fmt.Fprintf(out, "%s %s\n", styles[ev.Kind].Sprintf("%-7s", ev.Kind), displayName(ev.URI))
	}
	w.OnDidCreate()(show)
	w.OnDidChange()(show)
	w.OnDidDelete()(show)

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (%s)\n", w.Root(), w.Pattern())
	<-ctx.Done()
	return nil
}
