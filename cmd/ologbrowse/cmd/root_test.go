package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newTestRootCmd creates a fresh root command for testing, avoiding mutation
// of the global rootCmd which could cause race conditions in parallel tests.
func newTestRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ologbrowse",
		Short: "Browse an electronic logbook from the terminal",
	}
}

// runCLI executes the real root command with args and returns its stdout.
// Flag globals are reset afterwards since cobra keeps parsed values.
//
// NOTE: uses the package-level rootCmd; callers must not use t.Parallel().
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetErr(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags() {
	cfgFile, homeDir, verbose = "", "", false
	querySave, queryReset = false, false
	searchJSON, searchSort, searchFrom, searchSize, searchSave = false, "", 0, 0, false
	showJSON, namesJSON = false, false
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
}

// TestExecuteContext_CancellationPropagates verifies that context cancellation
// from ExecuteContext propagates to command handlers.
func TestExecuteContext_CancellationPropagates(t *testing.T) {
	var contextWasCancelled atomic.Bool
	handlerStarted := make(chan struct{})

	testRoot := newTestRootCmd()
	testCmd := &cobra.Command{
		Use:   "test-cancel",
		Short: "Test command for context cancellation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			close(handlerStarted)
			select {
			case <-ctx.Done():
				contextWasCancelled.Store(true)
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	}
	testRoot.AddCommand(testCmd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		testRoot.SetArgs([]string{"test-cancel"})
		done <- testRoot.ExecuteContext(ctx)
	}()

	select {
	case <-handlerStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("command handler did not start in time")
	}

	// Simulates SIGINT/SIGTERM
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled error, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ExecuteContext did not return after context cancellation")
	}

	if !contextWasCancelled.Load() {
		t.Error("command did not observe context cancellation")
	}
}

// TestExecuteContext_PropagatesContext verifies ExecuteContext passes context to command handlers.
//
// NOTE: This test modifies the package-level rootCmd variable and must NOT use t.Parallel().
func TestExecuteContext_PropagatesContext(t *testing.T) {
	savedRootCmd := rootCmd
	defer func() { rootCmd = savedRootCmd }()

	testRoot := newTestRootCmd()

	type ctxKey string
	var receivedCtx context.Context
	testRoot.AddCommand(&cobra.Command{
		Use: "test-ctx",
		RunE: func(cmd *cobra.Command, args []string) error {
			receivedCtx = cmd.Context()
			return nil
		},
	})
	rootCmd = testRoot

	testKey := ctxKey("test-key")
	ctx := context.WithValue(context.Background(), testKey, "test-value")

	testRoot.SetArgs([]string{"test-ctx"})
	if err := ExecuteContext(ctx); err != nil {
		t.Fatalf("ExecuteContext returned unexpected error: %v", err)
	}
	if receivedCtx == nil {
		t.Fatal("command did not receive context")
	}
	if got := receivedCtx.Value(testKey); got != "test-value" {
		t.Errorf("context value mismatch: got %v, want test-value", got)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    slog.Level
	}{
		{"info", false, slog.LevelInfo},
		{"", false, slog.LevelInfo},
		{"DEBUG", false, slog.LevelDebug},
		{"warning", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"error", true, slog.LevelDebug},
		{"bogus", false, slog.LevelInfo},
	}
	for _, tt := range tests {
		l := newLogger(&bytes.Buffer{}, tt.level, "text", tt.verbose)
		ctx := context.Background()
		if !l.Enabled(ctx, tt.want) {
			t.Errorf("newLogger(%q, verbose=%v): level %v disabled", tt.level, tt.verbose, tt.want)
		}
		if tt.want > slog.LevelDebug && l.Enabled(ctx, tt.want-1) {
			t.Errorf("newLogger(%q, verbose=%v): level below %v enabled", tt.level, tt.verbose, tt.want)
		}
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "json", false).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("json format output = %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "info", "text", false).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("text format output = %q", buf.String())
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	out, err := runCLI(t, "version", "--config", "/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output = %q, want it to contain %q", out, Version)
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := runCLI(t, "query", "--config", t.TempDir()+"/missing.toml")
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("err = %v, want config file not found", err)
	}
}
