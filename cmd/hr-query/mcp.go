package main

import (
	"context"

	"github.com/spf13/cobra"

	"hr-query-engine/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine as MCP tools over stdio",
	Long: `Serve ask_hr, hr_query_suggestions and hr_query_analytics as MCP tools.
Logs are written to stderr; stdout carries the protocol.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, zapLog, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer zapLog.Sync()
	defer a.Close()

	s := mcpserver.NewServer(a.Config.App.Name, a.Config.App.Version, mcpserver.NewTools(a.Engine, a.MCPLogger()))
	return mcpserver.ServeStdio(s)
}
