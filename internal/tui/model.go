// Package tui provides a terminal user interface for browsing a logbook.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/ologbrowse/internal/browse"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// Session is the part of browse.Session the TUI drives.
type Session interface {
	Snapshot() browse.View
	Subscribe(fn func(browse.View)) (unsubscribe func())
	ApplyQuery(q string) search.Criteria
	NextPage() bool
	PrevPage() bool
	ToggleSort() search.SortDirection
	SetPageSize(n int)
	Refresh()
	DismissError()
	OpenEntry(ctx context.Context, id string) error
	CloseEntry()
}

// Options configuration for TUI.
type Options struct {
	Version         string
	ServiceURL      string
	PageSizeOptions []int // sizes cycled by the page-size key
}

// modalType represents the type of modal dialog.
type modalType int

const (
	modalNone modalType = iota
	modalQuitConfirm
	modalHelp
)

// Model is the main TUI model following the Elm architecture.
type Model struct {
	session Session
	updates chan struct{} // signalled by the session subscription
	unsub   func()

	version         string
	serviceURL      string
	pageSizeOptions []int

	// Latest session snapshot.
	view browse.View

	level        viewLevel
	cursor       int
	scrollOffset int

	// Terminal dimensions
	width  int
	height int

	// Detail view
	detailScroll    int
	detailLineCount int
	entryRequestID  uint64 // ignores entry results for superseded requests
	entryPending    bool

	// Search bar
	searchActive bool
	searchInput  textinput.Model

	modal      modalType
	helpScroll int

	flashMessage   string
	flashExpiresAt time.Time

	spinnerFrame  int
	spinnerActive bool

	quitting bool
}

// New creates a TUI model over session. The session must be running (or be
// started by the caller) for results to arrive.
func New(session Session, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "title=... desc=... logbooks=a,b start=24 hours end=now"
	ti.CharLimit = 500
	ti.Width = 60

	sizes := opts.PageSizeOptions
	if len(sizes) == 0 {
		sizes = []int{10, search.DefaultPageSize, 50}
	}

	m := Model{
		session:         session,
		updates:         make(chan struct{}, 1),
		version:         opts.Version,
		serviceURL:      opts.ServiceURL,
		pageSizeOptions: sizes,
		view:            session.Snapshot(),
		searchInput:     ti,
		spinnerActive:   true,
	}
	updates := m.updates
	m.unsub = session.Subscribe(func(browse.View) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	return m
}

// Close detaches the model from the session.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Run runs the TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, session Session, opts Options) error {
	m := New(session, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), spinnerTick())
}

// viewUpdatedMsg carries a fresh session snapshot.
type viewUpdatedMsg struct {
	view browse.View
}

// entryLoadedMsg is sent when an OpenEntry call returns.
type entryLoadedMsg struct {
	view      browse.View
	err       error
	requestID uint64
}

// flashClearMsg clears the flash message after timeout.
type flashClearMsg struct{}

// spinnerTickMsg advances the loading spinner animation.
type spinnerTickMsg struct{}

const flashDuration = 3 * time.Second

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// waitForUpdate blocks until the session changes and returns its snapshot.
func (m Model) waitForUpdate() tea.Cmd {
	updates, session := m.updates, m.session
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return viewUpdatedMsg{view: session.Snapshot()}
	}
}

// loadEntry opens id in the session.
func (m Model) loadEntry(id string) tea.Cmd {
	requestID := m.entryRequestID
	session := m.session
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = entryLoadedMsg{view: session.Snapshot(), err: fmt.Errorf("open entry panic: %v", r), requestID: requestID}
			}
		}()
		err := session.OpenEntry(context.Background(), id)
		return entryLoadedMsg{view: session.Snapshot(), err: err, requestID: requestID}
	}
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already
// active, and marks it as active.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

func (m Model) isLoading() bool {
	return m.view.Loading || m.entryPending || m.view.EntryLoading
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.ensureCursorVisible()
		if m.level == levelDetail {
			m.updateDetailLineCount()
			m.clampDetailScroll()
		}
		return m, nil

	case viewUpdatedMsg:
		m.applyView(msg.view)
		var spin tea.Cmd
		if m.isLoading() {
			spin = m.startSpinner()
		}
		return m, tea.Batch(m.waitForUpdate(), spin)

	case entryLoadedMsg:
		if msg.requestID != m.entryRequestID {
			return m, nil
		}
		m.entryPending = false
		if msg.err != nil && msg.view.EntryErr == nil {
			msg.view.EntryErr = msg.err
			msg.view.EntryErrKind = logbook.Classify(msg.err)
		}
		m.applyView(msg.view)
		m.detailScroll = 0
		m.updateDetailLineCount()
		return m, nil

	case flashClearMsg:
		if time.Now().After(m.flashExpiresAt) || m.flashExpiresAt.IsZero() {
			m.flashMessage = ""
		}
		return m, nil

	case spinnerTickMsg:
		if m.isLoading() {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	if m.searchActive {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applyView installs a session snapshot and keeps the cursor in range.
func (m *Model) applyView(v browse.View) {
	m.view = v
	m.clampCursor()
	if m.level == levelDetail {
		m.updateDetailLineCount()
		m.clampDetailScroll()
	}
}

// showFlash displays a temporary flash message.
func (m Model) showFlash(message string) (tea.Model, tea.Cmd) {
	m.flashMessage = message
	m.flashExpiresAt = time.Now().Add(flashDuration)
	return m, tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// listRows returns how many entry rows fit on screen. Title bar, breadcrumb,
// table header, separator, info line and footer take six lines.
func (m Model) listRows() int {
	return max(m.height-6, 1)
}

// detailPageSize returns the number of content lines in the detail view.
func (m Model) detailPageSize() int {
	return max(m.height-4, 1)
}

// clampDetailScroll keeps detailScroll within bounds.
func (m *Model) clampDetailScroll() {
	maxScroll := max(m.detailLineCount-m.detailPageSize(), 0)
	if m.detailScroll > maxScroll {
		m.detailScroll = maxScroll
	}
	if m.detailScroll < 0 {
		m.detailScroll = 0
	}
}

// updateDetailLineCount recalculates the line count for scroll bounds.
func (m *Model) updateDetailLineCount() {
	m.detailLineCount = len(m.buildDetailLines())
}

// nextPageSize returns the option after the current page size, wrapping.
func (m Model) nextPageSize() int {
	cur := m.view.Page.Size
	for i, n := range m.pageSizeOptions {
		if n == cur {
			return m.pageSizeOptions[(i+1)%len(m.pageSizeOptions)]
		}
	}
	for _, n := range m.pageSizeOptions {
		if n > cur {
			return n
		}
	}
	return m.pageSizeOptions[0]
}
