package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wesm/ologbrowse/internal/criteria"
	"github.com/wesm/ologbrowse/internal/search"
)

var (
	querySave  bool
	queryReset bool
)

var queryCmd = &cobra.Command{
	Use:   "query [query]",
	Short: "Print the canonical form of a query, or the saved one",
	Long: `Print a query string in canonical form: keys in fixed order, set
values sorted, unknown keys and malformed tokens dropped.

Without an argument the saved search and page settings are printed.

Examples:
  ologbrowse query 'logbooks=ops,controls&level=ERROR'
  ologbrowse query 'title=beam' --save
  ologbrowse query --reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) > 0 && !querySave {
			fmt.Fprintln(out, search.Encode(search.Decode(strings.Join(args, " "))))
			return nil
		}

		state := openStateBackend(cfg)
		defer closeQuietly("state", state.Close)
		store := criteria.Open(state, storeOptions(cfg))

		switch {
		case queryReset:
			store.SetCriteria(cfg.DefaultCriteria())
			store.SetPageParams(search.PageParams{Sort: cfg.SortDirection(), Size: store.DefaultPageSize()})
		case len(args) > 0:
			store.ApplyQuery(strings.Join(args, " "))
		}

		fmt.Fprintln(out, store.Query())
		fmt.Fprintln(out, search.EncodePageParams(store.PageParams()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&querySave, "save", false, "save the query as the current search")
	queryCmd.Flags().BoolVar(&queryReset, "reset", false, "restore the default search and page settings")
}
