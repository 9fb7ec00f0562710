package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wesm/ologbrowse/internal/display"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

const maxLimit = 1000

type handlers struct {
	client logbook.Client
	opts   Options
}

// entrySummary is one row of a search result.
type entrySummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Owner       string   `json:"owner"`
	Level       string   `json:"level,omitempty"`
	CreatedDate string   `json:"created_date"`
	Logbooks    []string `json:"logbooks,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ThreadID    string   `json:"thread_id,omitempty"`
}

type searchResult struct {
	Query   string         `json:"query"`
	Sort    string         `json:"sort"`
	From    int            `json:"from"`
	Size    int            `json:"size"`
	Total   int64          `json:"total"`
	Entries []entrySummary `json:"entries"`
}

type entryDetail struct {
	entrySummary
	State       string              `json:"state,omitempty"`
	ModifyDate  string              `json:"modify_date,omitempty"`
	Description string              `json:"description"`
	Properties  map[string][]string `json:"properties,omitempty"`
	Attachments []string            `json:"attachments,omitempty"`
}

func toSummary(e logbook.LogEntry) entrySummary {
	return entrySummary{
		ID:          e.ID,
		Title:       e.Title,
		Owner:       e.Owner,
		Level:       e.Level,
		CreatedDate: e.CreatedDate.UTC().Format(time.RFC3339),
		Logbooks:    e.Logbooks,
		Tags:        e.Tags,
		ThreadID:    e.GroupID(),
	}
}

func toDetail(e logbook.LogEntry) entryDetail {
	d := entryDetail{
		entrySummary: toSummary(e),
		State:        e.State,
		Description:  e.Description,
	}
	if e.ModifyDate != nil {
		d.ModifyDate = e.ModifyDate.UTC().Format(time.RFC3339)
	}
	for _, p := range e.Properties {
		if p.Name == logbook.GroupPropertyName {
			continue
		}
		if d.Properties == nil {
			d.Properties = make(map[string][]string)
		}
		for _, a := range p.Attributes {
			d.Properties[p.Name] = append(d.Properties[p.Name], a.Name+"="+a.Value)
		}
	}
	for _, a := range e.Attachments {
		d.Attachments = append(d.Attachments, a.Filename)
	}
	return d
}

// getIDArg extracts a required entry id. Clients send ids either as strings
// or as JSON numbers.
func getIDArg(args map[string]any, key string) (string, error) {
	switch v := args[key].(type) {
	case string:
		if id := strings.TrimSpace(v); id != "" {
			return id, nil
		}
	case float64:
		if v == math.Trunc(v) && v >= 0 && v <= math.MaxInt64 {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return "", fmt.Errorf("%s must be a non-negative integer or string", key)
	}
	return "", fmt.Errorf("%s parameter is required", key)
}

func (h *handlers) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	criteria := h.opts.DefaultCriteria
	if q, _ := args["query"].(string); strings.TrimSpace(q) != "" {
		criteria = search.Decode(q)
	}

	page := search.PageParams{
		Sort: h.opts.DefaultSort,
		From: limitArg(args, "from", 0),
		Size: limitArg(args, "size", 0),
	}
	if s, ok := args["sort"].(string); ok && s != "" {
		d, valid := search.ParseSortDirection(s)
		if !valid {
			return mcp.NewToolResultError(fmt.Sprintf("invalid sort %q: use up or down", s)), nil
		}
		page.Sort = d
	}
	page = page.Normalize(h.opts.DefaultPageSize)

	res, err := h.client.SearchLogs(ctx, criteria, page)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	entries := display.Transform(res.Entries, page.Sort)
	out := searchResult{
		Query:   search.Encode(criteria),
		Sort:    page.Sort.String(),
		From:    page.From,
		Size:    page.Size,
		Total:   res.TotalCount,
		Entries: make([]entrySummary, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, toSummary(e))
	}
	return jsonResult(out)
}

func (h *handlers) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := getIDArg(req.GetArguments(), "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := h.client.GetEntry(ctx, id)
	switch logbook.Classify(err) {
	case logbook.ErrorKindNone:
	case logbook.ErrorKindNotFound:
		return mcp.NewToolResultError(fmt.Sprintf("log entry not found: %s", id)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("error loading log entry %s: %v", id, err)), nil
	}

	return jsonResult(toDetail(*entry))
}

func (h *handlers) listLogbooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.client.ListLogbooks(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list logbooks failed: %v", err)), nil
	}
	return jsonResult(nonNil(names))
}

func (h *handlers) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.client.ListTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list tags failed: %v", err)), nil
	}
	return jsonResult(nonNil(names))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// limitArg extracts a non-negative integer from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit to prevent excessive
// result sets.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
