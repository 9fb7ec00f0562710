// Package config handles loading and managing ologbrowse configuration.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/wesm/ologbrowse/internal/fileutil"
	"github.com/wesm/ologbrowse/internal/search"
)

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServiceConfig describes the log service connection.
type ServiceConfig struct {
	URL           string   `toml:"url"`            // Service root, e.g. https://olog:8181/Olog
	Username      string   `toml:"username"`       // Basic auth user (optional)
	Password      string   `toml:"password"`       // Basic auth password
	AllowInsecure bool     `toml:"allow_insecure"` // Permit http:// URLs
	Timeout       Duration `toml:"timeout"`        // Per-request timeout
}

// SearchConfig holds search and polling defaults.
type SearchConfig struct {
	PollInterval    Duration `toml:"poll_interval"`
	PageSize        int      `toml:"page_size"`
	PageSizeOptions []int    `toml:"page_size_options"`
	Sort            string   `toml:"sort"`          // "down" (newest first) or "up"
	DefaultQuery    string   `toml:"default_query"` // used when no saved criteria exist
}

// Persistence backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// PersistenceConfig selects where search state is saved between sessions.
type PersistenceConfig struct {
	Backend       string   `toml:"backend"`
	Path          string   `toml:"path"`           // file, database or directory; defaults under HomeDir
	TTL           Duration `toml:"ttl"`            // lifetime of saved values
	PurgeSchedule string   `toml:"purge_schedule"` // cron expression; empty disables purging
}

// ServerConfig holds local HTTP API server configuration.
type ServerConfig struct {
	BindAddr        string   `toml:"bind_addr"`        // Listen address (default: 127.0.0.1)
	APIPort         int      `toml:"api_port"`         // HTTP server port (default: 8484)
	APIKey          string   `toml:"api_key"`          // API authentication key
	AllowInsecure   bool     `toml:"allow_insecure"`   // Permit non-loopback bind without api_key
	RateLimitQPS    float64  `toml:"rate_limit_qps"`   // Per-client request rate
	CORSOrigins     []string `toml:"cors_origins"`     // Allowed origins; empty disables CORS
	CORSCredentials bool     `toml:"cors_credentials"` // Send Access-Control-Allow-Credentials
	CORSMaxAge      int      `toml:"cors_max_age"`     // Preflight cache seconds
}

// IsLoopback reports whether the bind address only accepts local connections.
func (s ServerConfig) IsLoopback() bool {
	addr := s.BindAddr
	if addr == "" || addr == "localhost" {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// ValidateSecure refuses to expose the API beyond loopback without a key,
// unless allow_insecure is set.
func (s ServerConfig) ValidateSecure() error {
	if s.IsLoopback() || s.APIKey != "" || s.AllowInsecure {
		return nil
	}
	return fmt.Errorf("refusing to bind API server to %s without authentication\n\n"+
		"Options:\n"+
		"  1. Set [server] api_key in config.toml\n"+
		"  2. Bind to loopback: [server] bind_addr = \"127.0.0.1\"\n"+
		"  3. For trusted networks: add 'allow_insecure = true' to [server]", s.BindAddr)
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// Config represents the ologbrowse configuration.
type Config struct {
	Service     ServiceConfig     `toml:"service"`
	Search      SearchConfig      `toml:"search"`
	Persistence PersistenceConfig `toml:"persistence"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DefaultHome returns the default ologbrowse home directory.
// Respects OLOGBROWSE_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("OLOGBROWSE_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ologbrowse"
	}
	return filepath.Join(home, ".ologbrowse")
}

// NewDefaultConfig returns a configuration with default values.
func NewDefaultConfig() *Config {
	homeDir := DefaultHome()
	return &Config{
		HomeDir: homeDir,
		Service: ServiceConfig{
			Timeout: Duration(30 * time.Second),
		},
		Search: SearchConfig{
			PollInterval:    Duration(30 * time.Second),
			PageSize:        search.DefaultPageSize,
			PageSizeOptions: []int{10, 30, 50},
			Sort:            search.SortDown.String(),
		},
		Persistence: PersistenceConfig{
			Backend:       BackendFile,
			TTL:           Duration(100000000 * time.Second),
			PurgeSchedule: "0 * * * *",
		},
		Server: ServerConfig{
			BindAddr:     "127.0.0.1",
			APIPort:      8484,
			RateLimitQPS: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration. If path is empty, config.toml in the home
// directory is used and is optional; an explicit path must exist. homeDir
// overrides DefaultHome. When path is explicit and homeDir is empty, the
// home directory is the config file's directory.
func Load(path, homeDir string) (*Config, error) {
	cfg := NewDefaultConfig()
	explicit := path != ""

	switch {
	case homeDir != "":
		cfg.HomeDir = expandPath(homeDir)
	case explicit:
		abs, err := filepath.Abs(expandPath(path))
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		cfg.HomeDir = filepath.Dir(abs)
	}

	if explicit {
		path = expandPath(path)
	} else {
		path = filepath.Join(cfg.HomeDir, "config.toml")
	}
	cfg.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, decodeError(err)
	}

	cfg.Persistence.Path = expandPath(cfg.Persistence.Path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeError adds a hint for the common Windows-path mistake of using
// backslashes inside double-quoted TOML strings.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n\nhint: use forward slashes (C:/Users/...) "+
			"or single quotes ('C:\\Users\\...') for paths in config.toml", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// Validate checks values that cannot be fixed up with defaults.
func (c *Config) Validate() error {
	if _, ok := search.ParseSortDirection(c.Search.Sort); !ok {
		return fmt.Errorf("search.sort must be \"up\" or \"down\", got %q", c.Search.Sort)
	}
	if c.Search.PageSize < 0 {
		return fmt.Errorf("search.page_size must not be negative")
	}
	if c.Search.PollInterval.Std() < 0 {
		return fmt.Errorf("search.poll_interval must not be negative")
	}
	switch c.Persistence.Backend {
	case BackendFile, BackendSQLite, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("persistence.backend must be one of file, sqlite, badger, memory; got %q", c.Persistence.Backend)
	}
	return nil
}

// EnsureHomeDir creates the home directory if it doesn't exist.
func (c *Config) EnsureHomeDir() error {
	return fileutil.SecureMkdirAll(c.HomeDir, 0700)
}

// ConfigFilePath returns the path the configuration was (or would be) read from.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// SortDirection returns the configured default sort.
func (c *Config) SortDirection() search.SortDirection {
	d, _ := search.ParseSortDirection(c.Search.Sort)
	return d
}

// DefaultCriteria returns the criteria used when nothing is saved.
func (c *Config) DefaultCriteria() search.Criteria {
	if strings.TrimSpace(c.Search.DefaultQuery) == "" {
		return search.DefaultCriteria()
	}
	return search.Decode(c.Search.DefaultQuery)
}

// StatePath returns where the persistence backend keeps its data.
func (c *Config) StatePath() string {
	if c.Persistence.Path != "" {
		return c.Persistence.Path
	}
	switch c.Persistence.Backend {
	case BackendSQLite:
		return filepath.Join(c.HomeDir, "state.db")
	case BackendBadger:
		return filepath.Join(c.HomeDir, "state.badger")
	default:
		return filepath.Join(c.HomeDir, "state.json")
	}
}

// APIAddr returns the listen address for the local API.
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddr, c.Server.APIPort)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
