// Package criteria owns the current search criteria and page parameters for a
// browsing session, mirrors them to a persist.Adapter and notifies observers
// of every change.
package criteria

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wesm/ologbrowse/internal/persist"
	"github.com/wesm/ologbrowse/internal/search"
)

// Persistence keys. The criteria and the page params have separate keys so
// either can be restored when the other is missing.
const (
	CriteriaKey   = "searchParams"
	PageParamsKey = "searchPageParams"
)

// DefaultTTL is how long persisted state survives without being rewritten.
const DefaultTTL = 100000000 * time.Second

// Options configures a Store.
type Options struct {
	DefaultCriteria search.Criteria      // Used when nothing valid is persisted
	DefaultSort     search.SortDirection // Initial sort direction
	DefaultPageSize int                  // Initial page size
	TTL             time.Duration        // Persisted value lifetime (0 = DefaultTTL)
	Logger          *slog.Logger
}

// DefaultOptions returns the last-24-hours criteria, newest first, default
// page size and the default TTL.
func DefaultOptions() Options {
	return Options{
		DefaultCriteria: search.DefaultCriteria(),
		DefaultSort:     search.SortDown,
		DefaultPageSize: search.DefaultPageSize,
		TTL:             DefaultTTL,
	}
}

// Change describes a mutation delivered to observers.
type Change struct {
	Criteria        search.Criteria
	Page            search.PageParams
	CriteriaChanged bool // false when only page params changed
}

// Store holds the session's criteria and page params.
type Store struct {
	adapter persist.Adapter
	opts    Options
	logger  *slog.Logger

	mu        sync.Mutex
	criteria  search.Criteria
	page      search.PageParams
	nextObsID int
	observers map[int]func(Change)
	obsOrder  []int
}

// Open creates a Store and restores state from adapter. Missing, expired or
// corrupt values fall back to the defaults in opts; Open never fails.
func Open(adapter persist.Adapter, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.DefaultCriteria.IsEmpty() {
		opts.DefaultCriteria = search.DefaultCriteria()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if adapter == nil {
		adapter = persist.NewMemory()
	}

	s := &Store{
		adapter:   adapter,
		opts:      opts,
		logger:    logger,
		observers: make(map[int]func(Change)),
	}
	s.criteria = s.restoreCriteria()
	s.page = s.restorePageParams()
	return s
}

func (s *Store) defaultPageParams() search.PageParams {
	p := search.DefaultPageParams(s.opts.DefaultPageSize)
	p.Sort = s.opts.DefaultSort
	return p
}

func (s *Store) restoreCriteria() search.Criteria {
	raw, err := s.adapter.Get(CriteriaKey)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			s.logger.Warn("could not read saved search criteria, using defaults", "error", err)
		}
		return cloneCriteria(s.opts.DefaultCriteria)
	}
	c := search.Decode(raw)
	if c.IsEmpty() && strings.TrimSpace(raw) != "" {
		// Something was saved but none of it is a known field.
		s.logger.Warn("saved search criteria unreadable, using defaults", "value", raw)
		return cloneCriteria(s.opts.DefaultCriteria)
	}
	return c
}

func (s *Store) restorePageParams() search.PageParams {
	defaults := s.defaultPageParams()
	raw, err := s.adapter.Get(PageParamsKey)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			s.logger.Warn("could not read saved page params, using defaults", "error", err)
		}
		return defaults
	}
	p, ok := search.DecodePageParams(raw, defaults)
	if !ok {
		s.logger.Warn("saved page params unreadable, using defaults", "value", raw)
		return defaults
	}
	return p
}

// Criteria returns a copy of the current criteria.
func (s *Store) Criteria() search.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCriteria(s.criteria)
}

// PageParams returns the current page params.
func (s *Store) PageParams() search.PageParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Params returns the criteria and page params as one consistent pair.
func (s *Store) Params() (search.Criteria, search.PageParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCriteria(s.criteria), s.page
}

// Query returns the canonical query string for the current criteria.
func (s *Store) Query() string {
	return search.Encode(s.Criteria())
}

// DefaultPageSize returns the configured page size.
func (s *Store) DefaultPageSize() int {
	return s.defaultPageParams().Size
}

// SetCriteria replaces the criteria and resets the offset to 0. Sort and page
// size are kept. Both keys are persisted and observers are notified, even if
// c equals the current criteria. c is reduced to what its query string can
// carry; see search.Criteria.
func (s *Store) SetCriteria(c search.Criteria) {
	if !c.Encodable() {
		s.logger.Warn("search criteria hold query separators, values truncated", "query", search.Encode(c))
	}
	c = search.Decode(search.Encode(c)) // canonical form
	s.checkBounds(c)

	s.mu.Lock()
	s.criteria = c
	s.page.From = 0
	s.persist(CriteriaKey, search.Encode(c))
	s.persist(PageParamsKey, search.EncodePageParams(s.page))
	change := Change{Criteria: cloneCriteria(c), Page: s.page, CriteriaChanged: true}
	observers := s.observersLocked()
	s.mu.Unlock()

	s.logger.Debug("search criteria changed", "query", search.Encode(c))
	notify(observers, change)
}

// ApplyQuery decodes a user-entered query string and applies it as a single
// SetCriteria. It returns the applied criteria.
func (s *Store) ApplyQuery(q string) search.Criteria {
	c := search.Decode(q)
	s.SetCriteria(c)
	return c
}

// SetPageParams replaces the page params without touching the criteria.
// Out-of-range values are normalized.
func (s *Store) SetPageParams(p search.PageParams) {
	p = p.Normalize(s.opts.DefaultPageSize)

	s.mu.Lock()
	s.page = p
	s.persist(PageParamsKey, search.EncodePageParams(p))
	change := Change{Criteria: cloneCriteria(s.criteria), Page: p}
	observers := s.observersLocked()
	s.mu.Unlock()

	s.logger.Debug("page params changed", "sort", p.Sort, "from", p.From, "size", p.Size)
	notify(observers, change)
}

// Subscribe registers fn to be called synchronously after every mutation.
// The returned function removes the registration.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsOrder = append(s.obsOrder, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
		s.obsOrder = slices.DeleteFunc(s.obsOrder, func(x int) bool { return x == id })
	}
}

// checkBounds logs start/end values that cannot be resolved locally. They
// are still sent to the service, which may understand them.
func (s *Store) checkBounds(c search.Criteria) {
	now := time.Now()
	for key, bound := range map[string]string{search.KeyStart: c.Start, search.KeyEnd: c.End} {
		if bound == "" {
			continue
		}
		if _, ok := search.ResolveTime(bound, now); !ok {
			s.logger.Debug("time bound not recognized, sending unchanged", "key", key, "value", bound)
		}
	}
}

// persist writes a value, logging and dropping any failure. Callers hold mu
// so writes to the same key land in mutation order.
func (s *Store) persist(key, value string) {
	if err := s.adapter.Set(key, value, s.opts.TTL); err != nil {
		s.logger.Warn("persist search state failed", "key", key, "error", err)
	}
}

func (s *Store) observersLocked() []func(Change) {
	out := make([]func(Change), 0, len(s.obsOrder))
	for _, id := range s.obsOrder {
		out = append(out, s.observers[id])
	}
	return out
}

func notify(observers []func(Change), change Change) {
	for _, fn := range observers {
		fn(change)
	}
}

func cloneCriteria(c search.Criteria) search.Criteria {
	c.Logbooks = slices.Clone(c.Logbooks)
	c.Tags = slices.Clone(c.Tags)
	return c
}
