package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/textutil"
)

// entryJSON is the JSON form of a log entry printed by search and show.
type entryJSON struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Owner       string              `json:"owner"`
	Level       string              `json:"level,omitempty"`
	State       string              `json:"state,omitempty"`
	CreatedDate string              `json:"created_date"`
	ModifyDate  string              `json:"modify_date,omitempty"`
	Logbooks    []string            `json:"logbooks"`
	Tags        []string            `json:"tags"`
	GroupID     string              `json:"group_id,omitempty"`
	Description string              `json:"description,omitempty"`
	Properties  map[string][]string `json:"properties,omitempty"`
	Attachments []string            `json:"attachments,omitempty"`
}

func toEntryJSON(e logbook.LogEntry, full bool) entryJSON {
	out := entryJSON{
		ID:          e.ID,
		Title:       e.Title,
		Owner:       e.Owner,
		Level:       e.Level,
		State:       e.State,
		CreatedDate: e.CreatedDate.UTC().Format(time.RFC3339),
		Logbooks:    nonNil(e.Logbooks),
		Tags:        nonNil(e.Tags),
		GroupID:     e.GroupID(),
	}
	if e.ModifyDate != nil {
		out.ModifyDate = e.ModifyDate.UTC().Format(time.RFC3339)
	}
	if !full {
		return out
	}
	out.Description = e.Description
	if len(e.Properties) > 0 {
		out.Properties = make(map[string][]string, len(e.Properties))
		for _, p := range e.Properties {
			for _, a := range p.Attributes {
				out.Properties[p.Name] = append(out.Properties[p.Name], a.Name+"="+a.Value)
			}
		}
	}
	for _, a := range e.Attachments {
		out.Attachments = append(out.Attachments, a.Filename)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// cell truncates s to width terminal cells and pads it.
func cell(s string, width int) string {
	s = textutil.SingleLine(s)
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// writeEntryTable prints entries as aligned columns for a terminal.
// Thread members are marked with ⤷.
func writeEntryTable(w io.Writer, entries []logbook.LogEntry) {
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		cell("ID", 8), cell("CREATED", 16), cell("OWNER", 12), cell("LOGBOOKS", 18), "TITLE")
	for _, e := range entries {
		title := textutil.SingleLine(e.Title)
		if e.GroupID() != "" {
			title = "⤷ " + title
		}
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			cell(e.ID, 8),
			cell(e.CreatedDate.Local().Format("2006-01-02 15:04"), 16),
			cell(e.Owner, 12),
			cell(strings.Join(e.Logbooks, ","), 18),
			runewidth.Truncate(title, 60, "…"),
		)
	}
}

// writeEntryLines prints one tab-separated line per entry for scripts.
func writeEntryLines(w io.Writer, entries []logbook.LogEntry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.CreatedDate.UTC().Format(time.RFC3339),
			e.Owner,
			strings.Join(e.Logbooks, ","),
			e.GroupID(),
			textutil.SingleLine(e.Title),
		)
	}
}

// writeEntryDetail prints a single entry in full.
func writeEntryDetail(w io.Writer, e logbook.LogEntry) {
	fmt.Fprintf(w, "ID:       %s\n", e.ID)
	fmt.Fprintf(w, "Title:    %s\n", textutil.SingleLine(e.Title))
	fmt.Fprintf(w, "Owner:    %s\n", e.Owner)
	fmt.Fprintf(w, "Created:  %s\n", e.CreatedDate.Local().Format("Mon, 02 Jan 2006 15:04:05 MST"))
	if e.ModifyDate != nil {
		fmt.Fprintf(w, "Modified: %s\n", e.ModifyDate.Local().Format("Mon, 02 Jan 2006 15:04:05 MST"))
	}
	if e.Level != "" {
		fmt.Fprintf(w, "Level:    %s\n", e.Level)
	}
	if len(e.Logbooks) > 0 {
		fmt.Fprintf(w, "Logbooks: %s\n", strings.Join(e.Logbooks, ", "))
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(e.Tags, ", "))
	}
	if g := e.GroupID(); g != "" {
		fmt.Fprintf(w, "Thread:   %s\n", g)
	}
	for _, p := range e.Properties {
		if p.Name == logbook.GroupPropertyName {
			continue
		}
		attrs := make([]string, 0, len(p.Attributes))
		for _, a := range p.Attributes {
			attrs = append(attrs, a.Name+"="+a.Value)
		}
		sort.Strings(attrs)
		fmt.Fprintf(w, "%s: %s\n", p.Name, strings.Join(attrs, ", "))
	}
	for _, a := range e.Attachments {
		fmt.Fprintf(w, "Attachment: %s (%s)\n", a.Filename, a.ContentType)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, textutil.SanitizeTerminal(e.Description))
}
