// Package browse ties the criteria store, the result poller and the display
// transforms into one browsing session that front ends render from.
package browse

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/wesm/ologbrowse/internal/criteria"
	"github.com/wesm/ologbrowse/internal/display"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/poller"
	"github.com/wesm/ologbrowse/internal/search"
)

// View is an immutable snapshot of the session.
type View struct {
	Criteria search.Criteria
	Query    string
	Page     search.PageParams

	Entries    []logbook.LogEntry // display sequence
	TotalCount int64
	Loading    bool      // params changed and no response for them yet
	SearchErr  error     // last search failure, until dismissed or a success
	UpdatedAt  time.Time // time of the last applied search response

	CurrentID    string
	Current      *logbook.LogEntry
	EntryErr     error
	EntryErrKind logbook.ErrorKind
	EntryLoading bool
	Neighbors    display.Neighbors
}

// HasNextPage reports whether entries exist past the current page.
func (v View) HasNextPage() bool {
	return int64(v.Page.From+v.Page.Size) < v.TotalCount
}

// HasPrevPage reports whether the current page is not the first.
func (v View) HasPrevPage() bool { return v.Page.From > 0 }

// Options configures a Session.
type Options struct {
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Session is safe for concurrent use.
type Session struct {
	client  logbook.Client
	store   *criteria.Store
	fetcher *poller.Fetcher
	logger  *slog.Logger
	unsubs  []func()

	// paramsMu orders store reads with fetcher.SetParams.
	paramsMu sync.Mutex

	mu        sync.Mutex
	entries   []logbook.LogEntry
	total     int64
	loading   bool
	searchErr error
	updatedAt time.Time
	cache     map[string]logbook.LogEntry

	currentID    string
	current      *logbook.LogEntry
	entryErr     error
	entryLoading bool
	entryReq     uint64
	neighbors    display.Neighbors

	nextSubID int
	subs      map[int]func(View)
	subOrder  []int
}

// New creates a session over client and store. Call Run to start polling.
func New(client logbook.Client, store *criteria.Store, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		client:  client,
		store:   store,
		logger:  logger,
		loading: true,
		entries: []logbook.LogEntry{},
		cache:   make(map[string]logbook.LogEntry),
		subs:    make(map[int]func(View)),
	}
	s.fetcher = poller.New(client, store.Criteria(), store.PageParams(), poller.Options{
		Interval: opts.PollInterval,
		Logger:   logger,
	})
	s.unsubs = append(s.unsubs,
		store.Subscribe(s.onCriteriaChange),
		s.fetcher.Subscribe(s.onResult),
	)
	return s
}

// Run polls until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	return s.fetcher.Run(ctx)
}

// Close detaches the session from the store and the poller. Results that
// arrive afterwards are ignored.
func (s *Session) Close() {
	for _, fn := range s.unsubs {
		fn()
	}
	s.unsubs = nil
}

// Store returns the session's criteria store.
func (s *Session) Store() *criteria.Store { return s.store }

// Client returns the log service client.
func (s *Session) Client() logbook.Client { return s.client }

// PollInterval returns the configured polling period.
func (s *Session) PollInterval() time.Duration { return s.fetcher.Interval() }

// Subscribe registers fn to receive a fresh View after every change.
// Callbacks may run on any goroutine.
func (s *Session) Subscribe(fn func(View)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subOrder = append(s.subOrder, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
		s.subOrder = slices.DeleteFunc(s.subOrder, func(x int) bool { return x == id })
	}
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	c := s.store.Criteria()
	v := View{
		Criteria:     c,
		Query:        search.Encode(c),
		Page:         s.store.PageParams(),
		Entries:      s.entries,
		TotalCount:   s.total,
		Loading:      s.loading,
		SearchErr:    s.searchErr,
		UpdatedAt:    s.updatedAt,
		CurrentID:    s.currentID,
		EntryErr:     s.entryErr,
		EntryErrKind: logbook.Classify(s.entryErr),
		EntryLoading: s.entryLoading,
		Neighbors:    s.neighbors,
	}
	if s.current != nil {
		cur := *s.current
		v.Current = &cur
	}
	return v
}

// unlockAndNotify releases mu and delivers the view to subscribers.
func (s *Session) unlockAndNotify() {
	v := s.viewLocked()
	subs := make([]func(View), 0, len(s.subOrder))
	for _, id := range s.subOrder {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}

// onCriteriaChange ignores the event payload. Events from overlapping
// mutations can arrive out of order, so the poller always gets the store's
// current values.
func (s *Session) onCriteriaChange(criteria.Change) {
	s.mu.Lock()
	s.loading = true
	s.unlockAndNotify()

	s.paramsMu.Lock()
	defer s.paramsMu.Unlock()
	c, p := s.store.Params()
	s.fetcher.SetParams(c, p)
}

func (s *Session) onResult(r poller.Result) {
	if c, p := s.store.Params(); r.Page != p || !r.Criteria.Equal(c) {
		s.logger.Debug("search result for replaced params ignored", "seq", r.Seq, "query", search.Encode(r.Criteria))
		return
	}
	s.mu.Lock()
	s.loading = false
	if r.Err != nil {
		s.searchErr = r.Err
	} else {
		s.searchErr = nil
		s.updatedAt = r.FetchedAt
		s.entries = display.Transform(r.Entries, r.Page.Sort)

		cache := make(map[string]logbook.LogEntry, len(r.Entries))
		for _, e := range r.Entries {
			cache[e.ID] = e
		}
		s.cache = cache
		if s.current != nil {
			if fresh, ok := cache[s.currentID]; ok {
				s.current = &fresh
			}
		}
	}
	s.neighbors = display.Locate(s.entries, s.currentID)
	s.unlockAndNotify()
}

// SetCriteria replaces the criteria, which also returns to the first page.
func (s *Session) SetCriteria(c search.Criteria) { s.store.SetCriteria(c) }

// ApplyQuery decodes q and applies it as the new criteria.
func (s *Session) ApplyQuery(q string) search.Criteria { return s.store.ApplyQuery(q) }

// SetPageParams replaces the page params.
func (s *Session) SetPageParams(p search.PageParams) { s.store.SetPageParams(p) }

// NextPage advances by one page. It reports false on the last page.
func (s *Session) NextPage() bool {
	v := s.Snapshot()
	if !v.HasNextPage() {
		return false
	}
	p := v.Page
	p.From += p.Size
	s.store.SetPageParams(p)
	return true
}

// PrevPage moves back one page. It reports false on the first page.
func (s *Session) PrevPage() bool {
	p := s.store.PageParams()
	if p.From <= 0 {
		return false
	}
	p.From = max(0, p.From-p.Size)
	s.store.SetPageParams(p)
	return true
}

// ToggleSort reverses the sort direction and returns to the first page.
func (s *Session) ToggleSort() search.SortDirection {
	p := s.store.PageParams()
	p.Sort = p.Sort.Reverse()
	p.From = 0
	s.store.SetPageParams(p)
	return p.Sort
}

// SetPageSize changes the page size and returns to the first page.
func (s *Session) SetPageSize(n int) {
	p := s.store.PageParams()
	p.Size = n
	p.From = 0
	s.store.SetPageParams(p)
}

// Refresh polls immediately.
func (s *Session) Refresh() { s.fetcher.Refresh() }

// DismissError hides the current search error. A later failure shows again.
func (s *Session) DismissError() {
	s.mu.Lock()
	if s.searchErr == nil {
		s.mu.Unlock()
		return
	}
	s.searchErr = nil
	s.unlockAndNotify()
}

// OpenEntry makes id the current entry and fetches it from the service.
// A cached copy from the latest search is shown while the fetch runs. The
// returned error is also recorded in the view; use logbook.Classify to tell
// not-found from other failures.
func (s *Session) OpenEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	s.entryReq++
	req := s.entryReq
	s.currentID = id
	s.current = nil
	if e, ok := s.cache[id]; ok {
		s.current = &e
	}
	s.entryErr = nil
	s.entryLoading = true
	s.neighbors = display.Locate(s.entries, id)
	s.unlockAndNotify()

	entry, err := s.client.GetEntry(ctx, id)
	if err != nil {
		err = fmt.Errorf("get log entry %s: %w", id, err)
	}

	s.mu.Lock()
	if req != s.entryReq {
		// Superseded by a later OpenEntry.
		s.mu.Unlock()
		return err
	}
	s.entryLoading = false
	if err != nil {
		s.entryErr = err
		if logbook.Classify(err) == logbook.ErrorKindNotFound {
			s.current = nil
		}
		s.logger.Debug("open log entry failed", "id", id, "kind", logbook.Classify(err), "error", err)
	} else {
		s.current = entry
		s.cache[id] = *entry
	}
	s.unlockAndNotify()
	return err
}

// NextEntry opens the entry after the current one in the display sequence.
// It reports false when there is none.
func (s *Session) NextEntry(ctx context.Context) (bool, error) {
	s.mu.Lock()
	next := s.neighbors.Next
	s.mu.Unlock()
	if next == nil {
		return false, nil
	}
	return true, s.OpenEntry(ctx, next.ID)
}

// PreviousEntry opens the entry before the current one in the display
// sequence. It reports false when there is none.
func (s *Session) PreviousEntry(ctx context.Context) (bool, error) {
	s.mu.Lock()
	prev := s.neighbors.Previous
	s.mu.Unlock()
	if prev == nil {
		return false, nil
	}
	return true, s.OpenEntry(ctx, prev.ID)
}

// CloseEntry clears the current entry.
func (s *Session) CloseEntry() {
	s.mu.Lock()
	s.entryReq++
	s.currentID = ""
	s.current = nil
	s.entryErr = nil
	s.entryLoading = false
	s.neighbors = display.Locate(s.entries, "")
	s.unlockAndNotify()
}
