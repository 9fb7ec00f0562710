package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var namesJSON bool

// newNamesCmd builds a command that lists logbook or tag names.
func newNamesCmd(use, short, noun string, list func(ctx context.Context) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := list(cmd.Context())
			if err != nil {
				return fmt.Errorf("list %s: %w", noun, err)
			}
			out := cmd.OutOrStdout()
			if namesJSON {
				return writeJSON(out, nonNil(names))
			}
			if len(names) == 0 {
				fmt.Fprintf(out, "No %s found.\n", noun)
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
}

func init() {
	logbooksCmd := newNamesCmd("logbooks", "List logbook names", "logbooks", func(ctx context.Context) ([]string, error) {
		client, err := newServiceClient(cfg)
		if err != nil {
			return nil, err
		}
		return client.ListLogbooks(ctx)
	})
	tagsCmd := newNamesCmd("tags", "List tag names", "tags", func(ctx context.Context) ([]string, error) {
		client, err := newServiceClient(cfg)
		if err != nil {
			return nil, err
		}
		return client.ListTags(ctx)
	})
	for _, c := range []*cobra.Command{logbooksCmd, tagsCmd} {
		c.Flags().BoolVar(&namesJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
}
