// Package poller keeps a log search result fresh by re-issuing the search on
// a fixed interval and publishing only the newest response.
package poller

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 30 * time.Second

// Result is one published search outcome.
type Result struct {
	Seq      uint64
	Criteria search.Criteria
	Page     search.PageParams

	// Entries and TotalCount are the raw service response. When Err is set
	// they hold the last successful response instead.
	Entries    []logbook.LogEntry
	TotalCount int64
	Err        error

	FetchedAt time.Time
}

// Options configures a Fetcher.
type Options struct {
	Interval time.Duration // 0 = DefaultInterval
	Logger   *slog.Logger
}

type response struct {
	seq      uint64
	version  uint64
	criteria search.Criteria
	page     search.PageParams
	result   *logbook.SearchResult
	err      error
}

// Fetcher polls a logbook.Client. Run owns all sequencing state; the other
// methods are safe to call from any goroutine.
type Fetcher struct {
	client   logbook.Client
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	// onDiscard, when set, observes responses dropped as stale.
	onDiscard func(seq uint64)

	mu            sync.Mutex
	criteria      search.Criteria
	page          search.PageParams
	latest        Result
	hasLatest     bool
	pendingFetch  bool
	version       uint64 // bumped by every SetParams
	nextSubID     int
	subs          map[int]func(Result)
	subOrder      []int

	wake chan struct{}
}

// New creates a Fetcher for the given initial parameters. Nothing is fetched
// until Run is called.
func New(client logbook.Client, c search.Criteria, p search.PageParams, opts Options) *Fetcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:   client,
		interval: opts.Interval,
		logger:   logger,
		now:      time.Now,
		criteria: c,
		page:     p,
		subs:     make(map[int]func(Result)),
		wake:     make(chan struct{}, 1),
	}
}

// Interval returns the polling period.
func (f *Fetcher) Interval() time.Duration { return f.interval }

// SetParams replaces the search parameters. Responses to requests issued
// before this call are discarded, a new request is issued immediately and the
// polling timer restarts.
func (f *Fetcher) SetParams(c search.Criteria, p search.PageParams) {
	f.mu.Lock()
	f.criteria = c
	f.page = p
	f.version++
	f.pendingFetch = true
	f.mu.Unlock()
	f.signal()
}

// Refresh issues a request immediately without changing parameters.
func (f *Fetcher) Refresh() {
	f.mu.Lock()
	f.pendingFetch = true
	f.mu.Unlock()
	f.signal()
}

func (f *Fetcher) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Latest returns the most recently published result, if any.
func (f *Fetcher) Latest() (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.hasLatest
}

// Subscribe registers fn to receive every published result. Callbacks run on
// the Run goroutine and must not block for long.
func (f *Fetcher) Subscribe(fn func(Result)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSubID
	f.nextSubID++
	f.subs[id] = fn
	f.subOrder = append(f.subOrder, id)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
		f.subOrder = slices.DeleteFunc(f.subOrder, func(x int) bool { return x == id })
	}
}

func (f *Fetcher) params() (search.Criteria, search.PageParams, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.criteria, f.page, f.version
}



// takePending reports and clears the pending-request flag.
func (f *Fetcher) takePending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fetch := f.pendingFetch
	f.pendingFetch = false
	return fetch
}

// Run polls until ctx is cancelled. Requests are never cancelled individually;
// a response that arrives after a newer one has been applied, or that was
// requested before the latest SetParams, is dropped.
func (f *Fetcher) Run(ctx context.Context) error {
	responses := make(chan response)
	var seq, lastApplied uint64

	issue := func() {
		seq++
		n := seq
		c, p, v := f.params()
		f.logger.Debug("log search issued", "seq", n, "query", search.Encode(c), "from", p.From, "size", p.Size)
		go func() {
			res, err := f.client.SearchLogs(ctx, c, p)
			select {
			case responses <- response{seq: n, version: v, criteria: c, page: p, result: res, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	// Parameters set before Run are already current.
	f.takePending()
	issue()

	timer := time.NewTimer(f.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			issue()
			timer.Reset(f.interval)

		case <-f.wake:
			if f.takePending() {
				issue()
				timer.Reset(f.interval)
			}

		case r := <-responses:
			// publish compares the version under mu, so a SetParams that
			// returned before its wake signal was taken still wins.
			if r.seq <= lastApplied || !f.publish(r) {
				f.logger.Debug("stale log search response discarded", "seq", r.seq, "applied", lastApplied, "version", r.version)
				if f.onDiscard != nil {
					f.onDiscard(r.seq)
				}
				continue
			}
			lastApplied = r.seq
		}
	}
}

// publish applies r and notifies subscribers. It reports false without
// applying anything when r was requested under replaced parameters.
func (f *Fetcher) publish(r response) bool {
	f.mu.Lock()
	if r.version != f.version {
		f.mu.Unlock()
		return false
	}
	prev := f.latest
	out := Result{
		Seq:       r.seq,
		Criteria:  r.criteria,
		Page:      r.page,
		FetchedAt: f.now(),
	}
	switch {
	case r.err != nil:
		out.Err = r.err
		out.Entries = prev.Entries
		out.TotalCount = prev.TotalCount
	case r.result == nil:
		out.Entries = []logbook.LogEntry{}
	default:
		out.Entries = r.result.Entries
		out.TotalCount = r.result.TotalCount
	}
	f.latest = out
	f.hasLatest = true
	subs := make([]func(Result), 0, len(f.subOrder))
	for _, id := range f.subOrder {
		subs = append(subs, f.subs[id])
	}
	f.mu.Unlock()

	if out.Err != nil {
		f.logger.Warn("log search failed", "seq", out.Seq, "error", out.Err)
	} else {
		f.logger.Debug("log search applied", "seq", out.Seq, "entries", len(out.Entries), "total", out.TotalCount)
	}
	for _, fn := range subs {
		fn(out)
	}
	return true
}
