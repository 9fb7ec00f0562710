package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/wesm/ologbrowse/internal/search"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("OLOGBROWSE_HOME", tmpDir)

	cfg := NewDefaultConfig()
	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.Search.PollInterval.Std() != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.Search.PollInterval.Std())
	}
	if cfg.Search.PageSize != 30 {
		t.Errorf("PageSize = %d, want 30", cfg.Search.PageSize)
	}
	if diff := cmp.Diff([]int{10, 30, 50}, cfg.Search.PageSizeOptions); diff != "" {
		t.Errorf("PageSizeOptions (-want +got):\n%s", diff)
	}
	if cfg.SortDirection() != search.SortDown {
		t.Errorf("SortDirection() = %v, want down", cfg.SortDirection())
	}
	if cfg.Persistence.TTL.Std() != 100000000*time.Second {
		t.Errorf("TTL = %v", cfg.Persistence.TTL.Std())
	}
	if cfg.Service.Timeout.Std() != 30*time.Second {
		t.Errorf("Service.Timeout = %v", cfg.Service.Timeout.Std())
	}
	if cfg.APIAddr() != "127.0.0.1:8484" {
		t.Errorf("APIAddr() = %q", cfg.APIAddr())
	}
}

func TestLoadEmptyPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("OLOGBROWSE_HOME", tmpDir)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if want := filepath.Join(tmpDir, "state.json"); cfg.StatePath() != want {
		t.Errorf("StatePath() = %q, want %q", cfg.StatePath(), want)
	}
	if want := filepath.Join(tmpDir, "config.toml"); cfg.ConfigFilePath() != want {
		t.Errorf("ConfigFilePath() = %q, want %q", cfg.ConfigFilePath(), want)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("OLOGBROWSE_HOME", tmpDir)

	writeConfig(t, tmpDir, `
[service]
url = "https://olog.example.org:8181/Olog"
username = "jones"
timeout = "5s"

[search]
poll_interval = "1m"
page_size = 50
sort = "up"
default_query = "logbooks=ops&start=1 week"

[persistence]
backend = "sqlite"
path = "~/state/olog.db"
ttl = "720h"

[server]
api_port = 9000
rate_limit_qps = 2.5

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	if cfg.Service.URL != "https://olog.example.org:8181/Olog" || cfg.Service.Username != "jones" {
		t.Errorf("Service = %+v", cfg.Service)
	}
	if cfg.Service.Timeout.Std() != 5*time.Second {
		t.Errorf("Service.Timeout = %v, want 5s", cfg.Service.Timeout.Std())
	}
	if cfg.Search.PollInterval.Std() != time.Minute {
		t.Errorf("PollInterval = %v, want 1m", cfg.Search.PollInterval.Std())
	}
	if cfg.Search.PageSize != 50 || cfg.SortDirection() != search.SortUp {
		t.Errorf("Search = %+v", cfg.Search)
	}
	wantCriteria := search.Criteria{Logbooks: []string{"ops"}, Start: "1 week"}
	if diff := cmp.Diff(wantCriteria, cfg.DefaultCriteria()); diff != "" {
		t.Errorf("DefaultCriteria() (-want +got):\n%s", diff)
	}
	if want := filepath.Join(home, "state/olog.db"); cfg.StatePath() != want {
		t.Errorf("StatePath() = %q, want %q", cfg.StatePath(), want)
	}
	if cfg.Persistence.TTL.Std() != 720*time.Hour {
		t.Errorf("TTL = %v", cfg.Persistence.TTL.Std())
	}
	// Unset keys keep their defaults.
	if cfg.Persistence.PurgeSchedule != "0 * * * *" {
		t.Errorf("PurgeSchedule = %q", cfg.Persistence.PurgeSchedule)
	}
	if cfg.Server.APIPort != 9000 || cfg.Server.RateLimitQPS != 2.5 || cfg.Server.BindAddr != "127.0.0.1" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadExplicitPathNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml", "")
	if err == nil {
		t.Fatal("Load with explicit nonexistent path should return error")
	}
	if got := err.Error(); !strings.Contains(got, "config file not found") {
		t.Errorf("error = %q, want it to contain %q", got, "config file not found")
	}
}

func TestLoadExplicitPathDerivedHomeDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, "[persistence]\nbackend = \"badger\"\n")

	cfg, err := Load(configPath, "")
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", configPath, err)
	}
	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if want := filepath.Join(tmpDir, "state.badger"); cfg.StatePath() != want {
		t.Errorf("StatePath() = %q, want %q", cfg.StatePath(), want)
	}
	if cfg.ConfigFilePath() != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", cfg.ConfigFilePath(), configPath)
	}
}

func TestLoadWithHomeDir(t *testing.T) {
	homeDir := t.TempDir()
	writeConfig(t, homeDir, "[persistence]\nbackend = \"sqlite\"\n")

	cfg, err := Load("", homeDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HomeDir != homeDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, homeDir)
	}
	if want := filepath.Join(homeDir, "state.db"); cfg.StatePath() != want {
		t.Errorf("StatePath() = %q, want %q", cfg.StatePath(), want)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad sort", "[search]\nsort = \"sideways\"\n", "search.sort"},
		{"bad backend", "[persistence]\nbackend = \"cookies\"\n", "persistence.backend"},
		{"bad duration", "[search]\npoll_interval = \"soon\"\n", "invalid duration"},
		{"negative page size", "[search]\npage_size = -1\n", "page_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := Load(writeConfig(t, dir, tt.content), "")
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadBackslashErrorHint(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid escape (backslash G)",
			content: "[persistence]\npath = \"C:\\Games\\olog\"\n",
		},
		{
			name:    "unicode escape (backslash U)",
			content: "[persistence]\npath = \"C:\\Users\\jones\\olog\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("OLOGBROWSE_HOME", tmpDir)
			writeConfig(t, tmpDir, tt.content)

			_, err := Load("", "")
			if err == nil {
				t.Fatal("Load should fail on TOML backslash error")
			}
			errMsg := err.Error()
			if !strings.Contains(errMsg, "hint:") {
				t.Errorf("error should contain hint, got: %s", errMsg)
			}
			if !strings.Contains(errMsg, "forward slashes") {
				t.Errorf("error should mention forward slashes, got: %s", errMsg)
			}
		})
	}
}

func TestDefaultCriteriaFallback(t *testing.T) {
	cfg := NewDefaultConfig()
	if diff := cmp.Diff(search.DefaultCriteria(), cfg.DefaultCriteria()); diff != "" {
		t.Errorf("DefaultCriteria() (-want +got):\n%s", diff)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
		unixOnly bool
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "just tilde", input: "~", expected: home},
		{name: "tilde with slash and path", input: "~/foo", expected: filepath.Join(home, "foo")},
		{name: "tilde with trailing slash only", input: "~/", expected: home},
		{name: "tilde user notation not expanded", input: "~user", expected: "~user"},
		{name: "tilde with double slash", input: "~//foo", expected: filepath.Join(home, "foo")},
		{name: "absolute path unchanged", input: "/var/log/test", expected: "/var/log/test", unixOnly: true},
		{name: "relative path unchanged", input: "relative/path", expected: "relative/path"},
		{name: "tilde in middle not expanded", input: "/home/~user/foo", expected: "/home/~user/foo", unixOnly: true},
		{name: "nested path after tilde", input: "~/foo/bar/baz", expected: filepath.Join(home, "foo/bar/baz")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.unixOnly && runtime.GOOS == "windows" {
				t.Skip("skipping Unix-specific path test on Windows")
			}
			got := expandPath(tt.input)
			if got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultHomeExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}
	t.Setenv("OLOGBROWSE_HOME", "~/olog-home")
	if got, want := DefaultHome(), filepath.Join(home, "olog-home"); got != want {
		t.Errorf("DefaultHome() = %q, want %q", got, want)
	}
}
