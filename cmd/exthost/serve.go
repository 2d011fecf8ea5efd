package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/exthost/internal/lsp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve documents and script providers over the Language Server Protocol on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("debug", false, "log protocol messages")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	debug, _ := cmd.Flags().GetBool("debug")
	server := lsp.NewServer(host,
		lsp.WithName("exthost"),
		lsp.WithVersion(version),
		lsp.WithDebug(debug),
	)
	defer server.Dispose()
	return server.RunStdio()
}
