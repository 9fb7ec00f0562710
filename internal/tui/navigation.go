package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// viewLevel represents the current navigation depth.
type viewLevel int

const (
	levelList   viewLevel = iota // display sequence
	levelDetail                  // one log entry
)

// calculateScrollOffset computes the new scroll offset to keep cursor visible within pageSize.
func calculateScrollOffset(cursor, currentOffset, pageSize int) int {
	if cursor < currentOffset {
		return cursor
	}
	if cursor >= currentOffset+pageSize {
		return cursor - pageSize + 1
	}
	return currentOffset
}

func (m *Model) ensureCursorVisible() {
	m.scrollOffset = calculateScrollOffset(m.cursor, m.scrollOffset, m.listRows())
}

// clampCursor keeps the cursor inside the display sequence after it changes.
func (m *Model) clampCursor() {
	n := len(m.view.Entries)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.scrollOffset > m.cursor {
		m.scrollOffset = m.cursor
	}
	m.ensureCursorVisible()
}

// navigateList moves the list cursor. Returns false for keys it does not handle.
func (m *Model) navigateList(key string, itemCount int) bool {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < itemCount-1 {
			m.cursor++
		}
	case "pgup", "ctrl+u":
		m.cursor -= m.listRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
	case "pgdown", "ctrl+d":
		m.cursor += m.listRows()
		if m.cursor >= itemCount {
			m.cursor = itemCount - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	case "home", "g":
		m.cursor = 0
		m.scrollOffset = 0
		return true
	case "end", "G":
		m.cursor = itemCount - 1
		if m.cursor < 0 {
			m.cursor = 0
		}
	default:
		return false
	}
	m.ensureCursorVisible()
	return true
}

// openEntry switches to the detail level and fetches id.
func (m Model) openEntry(id string) (tea.Model, tea.Cmd) {
	m.level = levelDetail
	m.detailScroll = 0
	m.entryRequestID++
	m.entryPending = true
	return m, tea.Batch(m.loadEntry(id), m.startSpinner())
}

// changeEntry opens the previous (delta < 0) or next entry of the display
// sequence, as computed by the session's navigation cursor.
func (m Model) changeEntry(delta int) (tea.Model, tea.Cmd) {
	n := m.view.Neighbors
	if n.Index < 0 {
		return m.showFlash("Entry is not in the current results")
	}
	if delta < 0 {
		if !n.HasPrevious() {
			return m.showFlash("At first entry")
		}
		m.cursor = n.Index - 1
		m.ensureCursorVisible()
		return m.openEntry(n.Previous.ID)
	}
	if !n.HasNext() {
		return m.showFlash("At last entry")
	}
	m.cursor = n.Index + 1
	m.ensureCursorVisible()
	return m.openEntry(n.Next.ID)
}

// goBack returns from the detail level to the list, keeping the cursor on
// the entry that was open when it is still in the results.
func (m Model) goBack() (tea.Model, tea.Cmd) {
	if m.level != levelDetail {
		return m, nil
	}
	id := m.view.CurrentID
	m.session.CloseEntry()
	m.entryRequestID++
	m.entryPending = false
	m.level = levelList
	m.detailScroll = 0
	for i, e := range m.view.Entries {
		if e.ID == id {
			m.cursor = i
			break
		}
	}
	m.clampCursor()
	return m, nil
}
