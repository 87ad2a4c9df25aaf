package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grahms/segmentweaver/internal/mcpserver"
	"github.com/grahms/segmentweaver/internal/render"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server on stdio",
	Long: `Exposes render_segments, validate_segments and import_markdown as MCP
tools over standard input and output. Logs go to stderr so they never
corrupt the JSON-RPC stream. Use "serve" for the HTTP transport.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache(cmd.Context(), cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()

		srv := mcpserver.NewServer(render.NewService(store, logger), cfg.Render.Policy(), logger)
		logger.Info("starting MCP server (stdio)")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
