package main

import (
	"github.com/spf13/cobra"

	mcpserver "coremirror/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing the mirror as tools:
query_catalog, materialize, and cache_status. An MCP client (editor or
agent) connects by launching this command as a subprocess.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := newManager(cfg, false)
	if err != nil {
		return err
	}
	table, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	srv := mcpserver.NewServer(m, table)
	return srv.Run(cmd.Context())
}
