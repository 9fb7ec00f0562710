package cmd

import (
	"fmt"

	"github.com/wesm/ologbrowse/internal/browse"
	"github.com/wesm/ologbrowse/internal/config"
	"github.com/wesm/ologbrowse/internal/criteria"
	"github.com/wesm/ologbrowse/internal/persist"
	badgerstore "github.com/wesm/ologbrowse/internal/persist/badger"
	sqlitestore "github.com/wesm/ologbrowse/internal/persist/sqlite"
	"github.com/wesm/ologbrowse/internal/remote"
)

// stateBackend is a persistence adapter that owns resources.
type stateBackend interface {
	persist.Adapter
	Close() error
}

// openStateBackend opens the configured persistence backend. A durable
// backend that cannot be opened is replaced by an in-memory one so saved
// searches degrade to defaults instead of blocking startup.
func openStateBackend(c *config.Config) stateBackend {
	path := c.StatePath()
	var (
		b   stateBackend
		err error
	)
	switch c.Persistence.Backend {
	case config.BackendMemory:
		return persist.NewMemory()
	case config.BackendSQLite:
		b, err = sqlitestore.Open(path)
	case config.BackendBadger:
		b, err = badgerstore.Open(path)
	default:
		return persist.NewFile(path)
	}
	if err != nil {
		logger.Warn("could not open saved search state, using defaults for this run",
			"backend", c.Persistence.Backend, "path", path, "error", err)
		return persist.NewMemory()
	}
	return b
}

// newServiceClient creates the log service client from [service].
func newServiceClient(c *config.Config) (*remote.Client, error) {
	if c.Service.URL == "" {
		return nil, errServiceNotConfigured(c)
	}
	client, err := remote.New(remote.Config{
		URL:           c.Service.URL,
		Username:      c.Service.Username,
		Password:      c.Service.Password,
		AllowInsecure: c.Service.AllowInsecure,
		Timeout:       c.Service.Timeout.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("create log service client: %w", err)
	}
	return client, nil
}

func errServiceNotConfigured(c *config.Config) error {
	return fmt.Errorf("log service URL not configured\n\n"+
		"Add to %s:\n"+
		"  [service]\n"+
		"  url = \"https://olog.example.org:8181/Olog\"", c.ConfigFilePath())
}

// storeOptions maps [search] and [persistence] to criteria store options.
func storeOptions(c *config.Config) criteria.Options {
	return criteria.Options{
		DefaultCriteria: c.DefaultCriteria(),
		DefaultSort:     c.SortDirection(),
		DefaultPageSize: c.Search.PageSize,
		TTL:             c.Persistence.TTL.Std(),
		Logger:          logger,
	}
}

// openedSession bundles a session with the resources it depends on.
type openedSession struct {
	session *browse.Session
	client  *remote.Client
	state   stateBackend
}

// Close stops the session and closes the state backend.
func (o *openedSession) Close() error {
	o.session.Close()
	return o.state.Close()
}

// openSession wires the client, persisted criteria store and session.
// The caller starts polling with session.Run.
func openSession(c *config.Config) (*openedSession, error) {
	client, err := newServiceClient(c)
	if err != nil {
		return nil, err
	}
	state := openStateBackend(c)
	store := criteria.Open(state, storeOptions(c))
	session := browse.New(client, store, browse.Options{
		PollInterval: c.Search.PollInterval.Std(),
		Logger:       logger,
	})
	return &openedSession{session: session, client: client, state: state}, nil
}

// closeQuietly logs a close error instead of returning it.
func closeQuietly(what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("close failed", "what", what, "error", err)
	}
}
