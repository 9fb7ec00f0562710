package tui

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/wesm/ologbrowse/internal/browse"
	"github.com/wesm/ologbrowse/internal/display"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// ansiStart is the escape sequence prefix found in styled terminal output.
const ansiStart = "\x1b["

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// fakeSession is an in-memory Session. Entry lookups resolve against
// details, falling back to the display sequence.
type fakeSession struct {
	mu      sync.Mutex
	view    browse.View
	details map[string]logbook.LogEntry
	openErr map[string]error

	queries    []string
	opened     []string
	refreshes  int
	dismissed  int
	closed     int
	pageSizes  []int
	subscribed int
}

func newFakeSession(entries ...logbook.LogEntry) *fakeSession {
	if entries == nil {
		entries = []logbook.LogEntry{}
	}
	return &fakeSession{
		view: browse.View{
			Criteria:   search.DefaultCriteria(),
			Query:      search.Encode(search.DefaultCriteria()),
			Page:       search.DefaultPageParams(search.DefaultPageSize),
			Entries:    entries,
			TotalCount: int64(len(entries)),
			Neighbors:  display.Locate(entries, ""),
		},
		details: make(map[string]logbook.LogEntry),
		openErr: make(map[string]error),
	}
}

func (f *fakeSession) Snapshot() browse.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeSession) Subscribe(func(browse.View)) func() {
	f.mu.Lock()
	f.subscribed++
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.subscribed--
		f.mu.Unlock()
	}
}

func (f *fakeSession) ApplyQuery(q string) search.Criteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	c := search.Decode(q)
	f.view.Criteria = c
	f.view.Query = search.Encode(c)
	f.view.Page.From = 0
	f.view.Loading = true
	return c
}

func (f *fakeSession) NextPage() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.view.HasNextPage() {
		return false
	}
	f.view.Page.From += f.view.Page.Size
	return true
}

func (f *fakeSession) PrevPage() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.view.Page.From <= 0 {
		return false
	}
	f.view.Page.From = max(0, f.view.Page.From-f.view.Page.Size)
	return true
}

func (f *fakeSession) ToggleSort() search.SortDirection {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.view.Page.Sort = f.view.Page.Sort.Reverse()
	f.view.Page.From = 0
	return f.view.Page.Sort
}

func (f *fakeSession) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSizes = append(f.pageSizes, n)
	f.view.Page.Size = n
	f.view.Page.From = 0
}

func (f *fakeSession) Refresh() {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
}

func (f *fakeSession) DismissError() {
	f.mu.Lock()
	f.dismissed++
	f.view.SearchErr = nil
	f.mu.Unlock()
}

func (f *fakeSession) OpenEntry(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, id)
	f.view.CurrentID = id
	f.view.Current = nil
	f.view.EntryErr = nil
	f.view.EntryErrKind = logbook.ErrorKindNone
	f.view.Neighbors = display.Locate(f.view.Entries, id)

	if err := f.openErr[id]; err != nil {
		err = fmt.Errorf("get log entry %s: %w", id, err)
		f.view.EntryErr = err
		f.view.EntryErrKind = logbook.Classify(err)
		return err
	}
	e, ok := f.details[id]
	if !ok {
		for _, x := range f.view.Entries {
			if x.ID == id {
				e, ok = x, true
				break
			}
		}
	}
	if !ok {
		err := fmt.Errorf("get log entry %s: %w", id, logbook.ErrNotFound)
		f.view.EntryErr = err
		f.view.EntryErrKind = logbook.ErrorKindNotFound
		return err
	}
	f.view.Current = &e
	return nil
}

func (f *fakeSession) CloseEntry() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.view.CurrentID = ""
	f.view.Current = nil
	f.view.EntryErr = nil
	f.view.Neighbors = display.Locate(f.view.Entries, "")
}

// setView replaces the fake's view, for simulating poll results.
func (f *fakeSession) setView(fn func(v *browse.View)) browse.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.view)
	return f.view
}

// newTestModel builds a sized model over session.
func newTestModel(t *testing.T, session Session) Model {
	t.Helper()
	m := New(session, Options{Version: "v1.2.3", ServiceURL: "https://olog.example/Olog"})
	t.Cleanup(m.Close)
	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: 120, Height: 24})
	return m
}

// sendKey sends a key message to the model and returns the updated concrete Model.
func sendKey(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(k)
	return newM.(Model), cmd
}

// sendMsg sends any tea.Msg through Update and returns the concrete Model.
func sendMsg(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(msg)
	return newM.(Model), cmd
}

// openAndLoad presses enter on the cursor row and delivers the entry result.
func openAndLoad(t *testing.T, m Model) Model {
	t.Helper()
	id := m.view.Entries[m.cursor].ID
	m, _ = sendKey(t, m, keyEnter())
	if m.level != levelDetail {
		t.Fatalf("expected detail level after enter, got %v", m.level)
	}
	return deliverEntry(t, m, id)
}

// deliverEntry runs the entry load for the model's latest request and feeds
// the result back through Update.
func deliverEntry(t *testing.T, m Model, id string) Model {
	t.Helper()
	msg := m.loadEntry(id)()
	m, _ = sendMsg(t, m, msg)
	return m
}

func assertModal(t *testing.T, m Model, expected modalType) {
	t.Helper()
	if m.modal != expected {
		t.Errorf("expected modal %v, got %v", expected, m.modal)
	}
}

func assertLevel(t *testing.T, m Model, expected viewLevel) {
	t.Helper()
	if m.level != expected {
		t.Errorf("expected level %v, got %v", expected, m.level)
	}
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func keyEnter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }
func keyEsc() tea.KeyMsg   { return tea.KeyMsg{Type: tea.KeyEsc} }
func keyDown() tea.KeyMsg  { return tea.KeyMsg{Type: tea.KeyDown} }
func keyUp() tea.KeyMsg    { return tea.KeyMsg{Type: tea.KeyUp} }
func keyLeft() tea.KeyMsg  { return tea.KeyMsg{Type: tea.KeyLeft} }
func keyRight() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRight} }
