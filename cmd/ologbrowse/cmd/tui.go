package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wesm/ologbrowse/internal/tui"
)

var tuiQuery string

// tuiLogName is the file under the home directory that receives logs while
// the TUI owns the terminal.
const tuiLogName = "tui.log"

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long: `Open an interactive terminal UI for browsing the logbook.

Results refresh automatically every [search] poll_interval. The last
search, sort order and page size are restored on the next start.

Navigation:
  ↑/k, ↓/j    Move up/down
  PgUp/PgDn   Page up/down
  Enter       Open log entry
  ←/→         Previous/next entry (detail view)
  Esc         Back to results
  /           Edit the query string
  n/p         Next/previous page
  s           Reverse sort direction
  z           Cycle page size
  r           Refresh now
  q           Quit

While the TUI runs, logs are written to tui.log in the home directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Log lines on stderr would draw over the alternate screen.
		logPath := filepath.Join(cfg.HomeDir, tuiLogName)
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()
		logger = newLogger(logFile, cfg.Log.Level, cfg.Log.Format, verbose)
		slog.SetDefault(logger)

		opened, err := openSession(cfg)
		if err != nil {
			return err
		}
		defer closeQuietly("session", opened.Close)

		if cmd.Flags().Changed("query") {
			opened.session.ApplyQuery(tuiQuery)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		pollErr := make(chan error, 1)
		go func() { pollErr <- opened.session.Run(ctx) }()

		err = tui.Run(ctx, opened.session, tui.Options{
			Version:         Version,
			ServiceURL:      opened.client.BaseURL(),
			PageSizeOptions: cfg.Search.PageSizeOptions,
		})
		cancel()
		if perr := <-pollErr; perr != nil && !errors.Is(perr, context.Canceled) {
			logger.Warn("poller stopped", "error", perr)
		}
		if err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVarP(&tuiQuery, "query", "q", "", "start with this query instead of the saved one")
}
