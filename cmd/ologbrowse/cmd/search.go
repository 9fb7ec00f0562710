package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/ologbrowse/internal/criteria"
	"github.com/wesm/ologbrowse/internal/display"
	"github.com/wesm/ologbrowse/internal/search"
)

var (
	searchJSON bool
	searchSort string
	searchFrom int
	searchSize int
	searchSave bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run one search and print the results",
	Long: `Run a single search against the log service and print the display
sequence: thread members grouped under their representative, in the
requested sort order.

The query uses the same key=value&... form as the TUI search box:
  title=     Title text (wildcards allowed)
  desc=      Description text
  owner=     Author
  level=     Entry type
  logbooks=  Comma-separated logbook names
  tags=      Comma-separated tag names
  start=     Start time (2024-06-01, "24 hours", "7 days")
  end=       End time ("now", absolute date)

Without a query the saved search is used. The saved search is only
replaced when --save is given.

Examples:
  ologbrowse search 'logbooks=ops&start=7 days'
  ologbrowse search 'title=vacuum*' --sort up --size 50
  ologbrowse search --json | jq '.entries[].title'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newServiceClient(cfg)
		if err != nil {
			return err
		}
		state := openStateBackend(cfg)
		defer closeQuietly("state", state.Close)
		store := criteria.Open(state, storeOptions(cfg))

		c := store.Criteria()
		if len(args) > 0 {
			c = search.Decode(strings.Join(args, " "))
		}
		p := store.PageParams()
		p.From = 0
		if searchSort != "" {
			d, ok := search.ParseSortDirection(searchSort)
			if !ok {
				return fmt.Errorf("invalid --sort %q (use up or down)", searchSort)
			}
			p.Sort = d
		}
		if cmd.Flags().Changed("from") {
			p.From = searchFrom
		}
		if cmd.Flags().Changed("size") {
			p.Size = searchSize
		}
		p = p.Normalize(store.DefaultPageSize())

		if searchSave {
			store.SetCriteria(c)
			store.SetPageParams(p)
		}

		logger.Debug("search", "query", search.Encode(c), "page", search.EncodePageParams(p))
		res, err := client.SearchLogs(cmd.Context(), c, p)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		entries := display.Transform(res.Entries, p.Sort)

		out := cmd.OutOrStdout()
		if searchJSON {
			items := make([]entryJSON, len(entries))
			for i, e := range entries {
				items[i] = toEntryJSON(e, false)
			}
			doc := map[string]any{
				"query":   search.Encode(c),
				"page":    map[string]any{"sort": p.Sort.String(), "from": p.From, "size": p.Size},
				"total":   res.TotalCount,
				"entries": items,
			}
			if w, ok := search.ResolveWindow(c, time.Now()); ok {
				doc["window"] = map[string]string{
					"start": w.Start.Format(time.RFC3339),
					"end":   w.End.Format(time.RFC3339),
				}
			}
			return writeJSON(out, doc)
		}

		if !isTerminal(out) {
			writeEntryLines(out, entries)
			return nil
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No log entries found.")
			return nil
		}
		writeEntryTable(out, entries)
		fmt.Fprintf(out, "\nShowing %d-%d of %d (%s)\n",
			p.From+1, p.From+len(entries), res.TotalCount, search.Encode(c))
		if w, ok := search.ResolveWindow(c, time.Now()); ok {
			fmt.Fprintf(out, "Window: %s to %s\n",
				w.Start.Format("2006-01-02 15:04"), w.End.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort by created date: down (newest first) or up")
	searchCmd.Flags().IntVar(&searchFrom, "from", 0, "offset of the first result")
	searchCmd.Flags().IntVarP(&searchSize, "size", "n", 0, "page size (default: saved or [search] page_size)")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "remember this search for the next session")
}
