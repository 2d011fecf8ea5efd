package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		color.NoColor = !useColor(cmd, os.Stdout)
		name := color.New(color.FgCyan, color.Bold)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", name.Sprint("exthost"), version)
		fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", date)
	},
}
