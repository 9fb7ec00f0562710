package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/ologbrowse/internal/api"
	"github.com/wesm/ologbrowse/internal/persist"
	"github.com/wesm/ologbrowse/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// purgeJobName is the scheduler job that sweeps expired saved state.
const purgeJobName = "purge-state"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the polling session behind a local HTTP API",
	Long: `Run a long-lived browsing session and expose it over HTTP.

The session polls the log service every [search] poll_interval. Other
tools read and steer it through the API:
  GET  /api/v1/results          current display sequence
  GET  /api/v1/query            canonical query
  PUT  /api/v1/query            apply a query (text body)
  PUT  /api/v1/page             set {sort, from, size}
  GET  /api/v1/entries/{id}     one entry with previous/next ids
  POST /api/v1/refresh          poll now

When the persistence backend keeps expired records (file, sqlite, memory),
they are swept on [persistence] purge_schedule (cron format).

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	opened, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer closeQuietly("session", opened.Close)

	sched, err := newPurgeScheduler(opened.state)
	if err != nil {
		return err
	}
	sched.Start()

	apiServer := api.NewServer(cfg, opened.session, sched, logger)

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		if err := opened.session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("poller: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}

		select {
		case <-sched.Stop().Done():
		case <-time.After(30 * time.Second):
			logger.Warn("scheduler shutdown timed out")
		}
		return nil
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ologbrowse serving %s\n", opened.client.BaseURL())
	fmt.Fprintf(out, "  API server: http://%s\n", cfg.APIAddr())
	fmt.Fprintf(out, "  Poll interval: %s\n", opened.session.PollInterval())
	fmt.Fprintf(out, "  Query: %s\n", opened.session.Snapshot().Query)
	for _, st := range sched.Status() {
		fmt.Fprintf(out, "  %s: next run at %s\n", st.Name, st.NextRun.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop.")

	err = g.Wait()
	fmt.Fprintln(out, "Shutdown complete.")
	return err
}

// newPurgeScheduler schedules the expired-state sweep when the backend
// keeps expired records. Badger expires entries natively and gets no job.
func newPurgeScheduler(state persist.Adapter) (*scheduler.Scheduler, error) {
	sched := scheduler.New().WithLogger(logger)
	purger, ok := state.(persist.Purger)
	if !ok || cfg.Persistence.PurgeSchedule == "" {
		return sched, nil
	}
	if err := sched.AddPurge(purgeJobName, cfg.Persistence.PurgeSchedule, purger); err != nil {
		return nil, fmt.Errorf("schedule state purge: %w", err)
	}
	return sched, nil
}
