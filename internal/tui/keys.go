package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != modalNone {
		return m.handleModalKeys(msg)
	}
	if m.searchActive {
		return m.handleSearchKeys(msg)
	}
	switch m.level {
	case levelDetail:
		return m.handleDetailKeys(msg)
	default:
		return m.handleListKeys(msg)
	}
}

// handleGlobalKeys handles keys common to all views.
// Returns (model, cmd, true) if the key was handled.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		m.modal = modalQuitConfirm
		return m, nil, true
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit, true
	case "?":
		m.modal = modalHelp
		m.helpScroll = 0
		return m, nil, true
	case "r":
		m.session.Refresh()
		return m, m.startSpinner(), true
	case "x":
		if m.view.SearchErr != nil {
			m.session.DismissError()
		}
		return m, nil, true
	}
	return m, nil, false
}

// handleSearchKeys handles keys while the query bar is focused.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchActive = false
		m.searchInput.Blur()
		c := m.session.ApplyQuery(m.searchInput.Value())
		m.view.Criteria = c
		m.cursor = 0
		m.scrollOffset = 0
		return m, m.startSpinner()

	case "esc":
		m.searchActive = false
		m.searchInput.Blur()
		return m, nil

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
}

// activateSearch focuses the query bar, pre-filled with the canonical query.
func (m *Model) activateSearch() tea.Cmd {
	m.searchActive = true
	m.searchInput.SetValue(m.view.Query)
	m.searchInput.CursorEnd()
	return m.searchInput.Focus()
}

// handleListKeys handles keys in the result list.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	key := msg.String()
	if m.navigateList(key, len(m.view.Entries)) {
		return m, nil
	}

	switch key {
	case "enter":
		if len(m.view.Entries) == 0 {
			return m, nil
		}
		return m.openEntry(m.view.Entries[m.cursor].ID)

	case "/":
		return m, m.activateSearch()

	case "n", "right", "l":
		if !m.session.NextPage() {
			return m.showFlash("At last page")
		}
		m.cursor, m.scrollOffset = 0, 0
		return m, m.startSpinner()

	case "p", "left", "h":
		if !m.session.PrevPage() {
			return m.showFlash("At first page")
		}
		m.cursor, m.scrollOffset = 0, 0
		return m, m.startSpinner()

	case "s":
		dir := m.session.ToggleSort()
		m.cursor, m.scrollOffset = 0, 0
		spin := m.startSpinner()
		m2, flash := m.showFlash(fmt.Sprintf("Sort: %s", sortLabel(dir)))
		return m2, tea.Batch(flash, spin)

	case "z":
		size := m.nextPageSize()
		m.session.SetPageSize(size)
		m.cursor, m.scrollOffset = 0, 0
		return m.showFlash(fmt.Sprintf("Page size: %d", size))
	}

	return m, nil
}

// handleDetailKeys handles keys in the entry detail view.
func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m2, cmd, handled := m.handleGlobalKeys(msg); handled {
		return m2, cmd
	}

	switch msg.String() {
	case "esc", "backspace":
		return m.goBack()

	case "left", "h":
		return m.changeEntry(-1)

	case "right", "l":
		return m.changeEntry(1)

	case "up", "k":
		m.clampDetailScroll()
		if m.detailScroll == 0 {
			return m.showFlash("At top")
		}
		m.detailScroll--
	case "down", "j":
		m.clampDetailScroll()
		if m.detailScroll >= max(m.detailLineCount-m.detailPageSize(), 0) {
			return m.showFlash("At bottom")
		}
		m.detailScroll++
	case "pgup", "ctrl+u":
		m.clampDetailScroll()
		if m.detailScroll == 0 {
			return m.showFlash("At top")
		}
		m.detailScroll -= m.detailPageSize()
		m.clampDetailScroll()
	case "pgdown", "ctrl+d":
		m.clampDetailScroll()
		if m.detailScroll >= max(m.detailLineCount-m.detailPageSize(), 0) {
			return m.showFlash("At bottom")
		}
		m.detailScroll += m.detailPageSize()
		m.clampDetailScroll()
	case "home", "g":
		m.detailScroll = 0
	case "end", "G":
		m.detailScroll = max(m.detailLineCount-m.detailPageSize(), 0)
	}

	return m, nil
}

// handleModalKeys handles keys while a modal is open.
func (m Model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalQuitConfirm:
		switch msg.String() {
		case "y", "Y", "q", "enter", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			m.modal = modalNone
		}
	case modalHelp:
		switch msg.String() {
		case "up", "k":
			if m.helpScroll > 0 {
				m.helpScroll--
			}
		case "down", "j":
			if m.helpScroll < len(rawHelpLines)-m.helpMaxVisible() {
				m.helpScroll++
			}
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			m.modal = modalNone
		}
	}
	return m, nil
}
