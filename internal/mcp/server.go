// Package mcp serves the log service to MCP clients over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// Tool name constants.
const (
	ToolSearchEntries = "search_log_entries"
	ToolGetEntry      = "get_log_entry"
	ToolListLogbooks  = "list_logbooks"
	ToolListTags      = "list_tags"
)

// Options are the defaults applied when a tool call leaves them out.
type Options struct {
	Version         string
	DefaultCriteria search.Criteria
	DefaultSort     search.SortDirection
	DefaultPageSize int
}

// NewServer creates an MCP server with the logbook tools registered.
func NewServer(client logbook.Client, opts Options) *server.MCPServer {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"ologbrowse",
		version,
		server.WithToolCapabilities(false),
	)

	h := &handlers{client: client, opts: opts}

	s.AddTool(searchEntriesTool(), h.searchEntries)
	s.AddTool(getEntryTool(), h.getEntry)
	s.AddTool(listLogbooksTool(), h.listLogbooks)
	s.AddTool(listTagsTool(), h.listTags)
	return s
}

// Serve runs the MCP server over stdio. It blocks until stdin is closed or
// the context is cancelled.
func Serve(ctx context.Context, client logbook.Client, opts Options) error {
	stdio := server.NewStdioServer(NewServer(client, opts))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func searchEntriesTool() mcp.Tool {
	return mcp.NewTool(ToolSearchEntries,
		mcp.WithDescription("Search logbook entries. Thread replies are folded into one result per thread. "+
			"The query uses key=value pairs joined by &: title, desc, owner, level, logbooks, tags, start, end."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Search query, e.g. 'logbooks=ops,controls&level=Problem&start=7 days'. Omit for the default search."),
		),
		mcp.WithString("sort",
			mcp.Description("Created-date order"),
			mcp.Enum("down", "up"),
		),
		mcp.WithNumber("from",
			mcp.Description("Offset of the first result for pagination (default 0)"),
		),
		mcp.WithNumber("size",
			mcp.Description("Page size (default from configuration)"),
		),
	)
}

func getEntryTool() mcp.Tool {
	return mcp.NewTool(ToolGetEntry,
		mcp.WithDescription("Get one log entry in full: description, properties, thread id and attachment names."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Log entry ID"),
		),
	)
}

func listLogbooksTool() mcp.Tool {
	return mcp.NewTool(ToolListLogbooks,
		mcp.WithDescription("List the logbook names that can be used in the logbooks= filter."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listTagsTool() mcp.Tool {
	return mcp.NewTool(ToolListTags,
		mcp.WithDescription("List the tag names that can be used in the tags= filter."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
