package main

import (
	"github.com/spf13/cobra"

	"github.com/sweetpotato0/enrichrag/mcp"
)

var mcpIngest []string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge base as MCP tools over stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
"answer" and "capabilities" tools. Logs go to stderr.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "enrichrag": {
        "command": "/path/to/enrichrag",
        "args": ["mcp", "--config", "/path/to/enrichrag.yaml"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := openApplication(ctx)
		if err != nil {
			return err
		}
		defer app.Close(ctx)

		if len(mcpIngest) > 0 {
			if _, err := ingestPaths(ctx, app.retriever, mcpIngest, cmd.ErrOrStderr()); err != nil {
				return err
			}
		}
		app.runRetention(ctx)
		server := mcp.NewServer(app.pipeline, app.registry,
			mcp.WithVersion(version),
			mcp.WithEnrichment(cfg.Enrichment.Enabled),
		)
		return server.Run(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringSliceVar(&mcpIngest, "ingest", nil, "files or directories to index at startup")
	rootCmd.AddCommand(mcpCmd)
}
