package cmd

import (
	"github.com/spf13/cobra"
	mcpserver "github.com/wesm/ologbrowse/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server for AI assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

MCP clients can search the logbook with the search_log_entries,
get_log_entry, list_logbooks and list_tags tools. Searches use the
[search] defaults but never change the saved search.

Example client config:
  {
    "mcpServers": {
      "ologbrowse": {
        "command": "ologbrowse",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newServiceClient(cfg)
		if err != nil {
			return err
		}
		return mcpserver.Serve(cmd.Context(), client, mcpserver.Options{
			Version:         Version,
			DefaultCriteria: cfg.DefaultCriteria(),
			DefaultSort:     cfg.SortDirection(),
			DefaultPageSize: cfg.Search.PageSize,
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
