package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesm/ologbrowse/internal/logbook"
)

var showJSON bool

// errEntryNotFound is reported when show is given an unknown id.
var errEntryNotFound = errors.New("log entry not found")

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one log entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newServiceClient(cfg)
		if err != nil {
			return err
		}
		id := args[0]

		entry, err := client.GetEntry(cmd.Context(), id)
		switch logbook.Classify(err) {
		case logbook.ErrorKindNone:
		case logbook.ErrorKindNotFound:
			return fmt.Errorf("%w: %s", errEntryNotFound, id)
		default:
			return fmt.Errorf("error loading log entry %s: %w", id, err)
		}

		if showJSON {
			return writeJSON(cmd.OutOrStdout(), toEntryJSON(*entry, true))
		}
		writeEntryDetail(cmd.OutOrStdout(), *entry)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
}
