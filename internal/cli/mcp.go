package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	projmcp "github.com/valter-silva-au/projitive/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the projitive MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the projitive MCP server on stdio",
	Long: `Start the projitive MCP server on stdio transport.

The server exposes the task ledgers as MCP tools that AI agents can call:
project_scan, task_list, task_next, task_context, task_create, task_update,
task_lint, task_confidence. Logs go to stderr; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectSvc == nil || TaskMgr == nil {
			return fmt.Errorf("services not initialized")
		}

		srv := projmcp.NewServer(ProjectSvc, TaskMgr, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if Logger != nil {
			Logger.Info("mcp server starting", "transport", "stdio", "version", appVersion)
		}
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		if Logger != nil {
			Logger.Info("mcp server stopped")
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
