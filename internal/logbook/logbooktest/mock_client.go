// Package logbooktest provides shared test doubles for the logbook.Client interface.
package logbooktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// SearchCall records the arguments of one SearchLogs call.
type SearchCall struct {
	Criteria search.Criteria
	Page     search.PageParams
}

// MockClient implements logbook.Client for testing. Each method delegates to
// an optional function field; when the field is nil, canned data is returned.
type MockClient struct {
	SearchResult *logbook.SearchResult
	Entries      map[string]*logbook.LogEntry
	Logbooks     []string
	Tags         []string

	// Optional overrides; set these to customise behavior per-test.
	SearchLogsFunc   func(context.Context, search.Criteria, search.PageParams) (*logbook.SearchResult, error)
	GetEntryFunc     func(context.Context, string) (*logbook.LogEntry, error)
	ListLogbooksFunc func(context.Context) ([]string, error)
	ListTagsFunc     func(context.Context) ([]string, error)

	mu       sync.Mutex
	searches []SearchCall
}

// Compile-time check.
var _ logbook.Client = (*MockClient)(nil)

func (m *MockClient) SearchLogs(ctx context.Context, c search.Criteria, p search.PageParams) (*logbook.SearchResult, error) {
	m.mu.Lock()
	m.searches = append(m.searches, SearchCall{Criteria: c, Page: p})
	m.mu.Unlock()

	if m.SearchLogsFunc != nil {
		return m.SearchLogsFunc(ctx, c, p)
	}
	if m.SearchResult != nil {
		return m.SearchResult, nil
	}
	return &logbook.SearchResult{}, nil
}

func (m *MockClient) GetEntry(ctx context.Context, id string) (*logbook.LogEntry, error) {
	if m.GetEntryFunc != nil {
		return m.GetEntryFunc(ctx, id)
	}
	if e, ok := m.Entries[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("get entry %s: %w", id, logbook.ErrNotFound)
}

func (m *MockClient) ListLogbooks(ctx context.Context) ([]string, error) {
	if m.ListLogbooksFunc != nil {
		return m.ListLogbooksFunc(ctx)
	}
	return m.Logbooks, nil
}

func (m *MockClient) ListTags(ctx context.Context) ([]string, error) {
	if m.ListTagsFunc != nil {
		return m.ListTagsFunc(ctx)
	}
	return m.Tags, nil
}

// Searches returns a copy of the recorded SearchLogs calls.
func (m *MockClient) Searches() []SearchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SearchCall, len(m.searches))
	copy(out, m.searches)
	return out
}

// SearchCount returns how many times SearchLogs was called.
func (m *MockClient) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches)
}
