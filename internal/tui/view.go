package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
	"github.com/wesm/ologbrowse/internal/textutil"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	// Not faint, so it stays visible on the stats line.
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Background(bgBase)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}).
			Background(bgBase)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#aa0000", Dark: "#ff6666"}).
			Background(bgBase)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).
			Background(lipgloss.AdaptiveColor{Light: "#e8d44d", Dark: "#e8d44d"}).
			Bold(true)
)

// sortLabel names a sort direction for the header.
func sortLabel(d search.SortDirection) string {
	if d == search.SortUp {
		return "oldest first ↑"
	}
	return "newest first ↓"
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	switch m.level {
	case levelDetail:
		body = m.entryDetailView()
	default:
		body = m.entryListView()
	}
	out := fmt.Sprintf("%s\n%s\n%s", m.headerView(), body, m.footerView())
	if m.modal != modalNone {
		return m.overlayModal(out)
	}
	return out
}

// buildTitleBar builds the title bar line.
// Format: "ologbrowse [version] - https://olog.example/Olog"
func (m Model) buildTitleBar() string {
	titleText := "ologbrowse"
	if m.version != "" && m.version != "dev" && m.version != "unknown" {
		titleText = fmt.Sprintf("ologbrowse [%s]", m.version)
	}
	line := titleText
	if m.serviceURL != "" {
		line += " - " + m.serviceURL
	}
	return titleBarStyle.Render(padRight(line, m.width-2))
}

// buildBreadcrumb describes what is on screen.
func (m Model) buildBreadcrumb() string {
	switch m.level {
	case levelDetail:
		title := ""
		if m.view.Current != nil {
			title = m.view.Current.Title
		}
		return fmt.Sprintf("Entry %s: %s", m.view.CurrentID, truncateRunes(title, 50))
	default:
		if m.view.Query == "" {
			return "All entries"
		}
		return "Search: " + truncateRunes(m.view.Query, 60)
	}
}

// buildStatsString summarises the result page, e.g.
// "31-60 of 1.2K | newest first ↓ | updated 5 seconds ago".
func (m Model) buildStatsString() string {
	v := m.view
	var parts []string
	if n := len(v.Entries); n > 0 {
		parts = append(parts, fmt.Sprintf("%d-%d of %s", v.Page.From+1, v.Page.From+n, formatCount(v.TotalCount)))
	} else {
		parts = append(parts, fmt.Sprintf("0 of %s", formatCount(v.TotalCount)))
	}
	parts = append(parts, sortLabel(v.Page.Sort))
	if !v.UpdatedAt.IsZero() {
		parts = append(parts, "updated "+humanize.Time(v.UpdatedAt))
	}
	return strings.Join(parts, " | ")
}

// headerView renders the title bar and the breadcrumb/stats line.
func (m Model) headerView() string {
	line1 := m.buildTitleBar()

	breadcrumbStyled := statsStyle.Render(" " + m.buildBreadcrumb() + " ")
	statsStyled := statsStyle.Render(m.buildStatsString() + " ")
	gap := max(m.width-lipgloss.Width(breadcrumbStyled)-lipgloss.Width(statsStyled), 0)
	line2 := breadcrumbStyled + strings.Repeat(" ", gap) + statsStyled

	return line1 + "\n" + line2
}

// Column widths for the entry list.
const (
	dateWidth     = 16
	ownerWidth    = 12
	logbooksWidth = 18
	levelWidth    = 8
)

// entryListView renders the display sequence as a table.
func (m Model) entryListView() string {
	rows := m.listRows()
	var sb strings.Builder

	titleWidth := max(m.width-dateWidth-ownerWidth-logbooksWidth-levelWidth-11, 10)

	headerRow := fmt.Sprintf("   %s  %s  %s  %s  %s",
		padCell("Created", dateWidth),
		padCell("Owner", ownerWidth),
		padCell("Logbooks", logbooksWidth),
		padCell("Level", levelWidth),
		"Title",
	)
	sb.WriteString(tableHeaderStyle.Render(padRight(headerRow, m.width)))
	sb.WriteString("\n")
	sb.WriteString(separatorStyle.Render(strings.Repeat("─", max(m.width, 0))))
	sb.WriteString("\n")

	entries := m.view.Entries
	used := 0
	switch {
	case len(entries) == 0 && m.view.Loading:
		sb.WriteString(loadingStyle.Render(padRight(m.spinnerIndicator()+" Loading log entries...", m.width)))
		sb.WriteString("\n")
		used = 1
	case len(entries) == 0:
		sb.WriteString(normalRowStyle.Render(padRight("No log entries match the current search", m.width)))
		sb.WriteString("\n")
		used = 1
	default:
		end := min(m.scrollOffset+rows, len(entries))
		for i := m.scrollOffset; i < end; i++ {
			sb.WriteString(m.renderEntryRow(i, entries[i], titleWidth))
			sb.WriteString("\n")
			used++
		}
	}

	for i := used; i < rows; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", max(m.width, 0))))
		sb.WriteString("\n")
	}

	sb.WriteString(m.listInfoLine())
	return sb.String()
}

// renderEntryRow renders one list row. Entries that belong to a thread are
// marked with ⤷.
func (m Model) renderEntryRow(i int, e logbook.LogEntry, titleWidth int) string {
	isCursor := i == m.cursor
	indicator := "   "
	if isCursor {
		indicator = cursorRowStyle.Render("▶  ")
	}

	title := textutil.SingleLine(e.Title)
	if e.GroupID() != "" {
		title = "⤷ " + title
	}
	if len(e.Attachments) > 0 {
		title = "📎 " + title
	}
	title = highlightCriteria(padCell(title, titleWidth), m.view.Criteria)

	line := fmt.Sprintf("%s  %s  %s  %s  %s",
		padCell(formatDate(e.CreatedDate), dateWidth),
		padCell(textutil.SingleLine(e.Owner), ownerWidth),
		padCell(formatLogbooks(e), logbooksWidth),
		padCell(e.Level, levelWidth),
		title,
	)

	style := normalRowStyle
	switch {
	case isCursor:
		style = cursorRowStyle
	case i%2 == 1:
		style = altRowStyle
	}
	return indicator + style.Render(padRight(line, m.width-3))
}

// listInfoLine shows, in priority order: the query bar, the search error
// banner, a flash message, or the active query.
func (m Model) listInfoLine() string {
	switch {
	case m.searchActive:
		return m.renderInfoLine("/"+m.searchInput.View(), false)
	case m.view.SearchErr != nil:
		msg := fmt.Sprintf("Search failed: %s (x to dismiss, r to retry)", textutil.FirstLine(m.view.SearchErr.Error()))
		return bannerStyle.Render(padRight(" "+msg, m.width))
	case m.flashMessage != "":
		return m.renderNotificationLine()
	default:
		return m.renderInfoLine("", m.isLoading())
	}
}

// buildDetailLines constructs the lines for the entry detail view.
func (m Model) buildDetailLines() []string {
	e := m.view.Current
	if e == nil {
		return nil
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Title: %s", textutil.SingleLine(e.Title)))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Created: %s", formatDateLong(e.CreatedDate)))
	if e.ModifyDate != nil {
		lines = append(lines, fmt.Sprintf("Modified: %s", formatDateLong(*e.ModifyDate)))
	}
	lines = append(lines, fmt.Sprintf("Owner: %s", e.Owner))
	if e.Level != "" {
		lines = append(lines, fmt.Sprintf("Level: %s", e.Level))
	}
	if e.State != "" {
		lines = append(lines, fmt.Sprintf("State: %s", e.State))
	}
	if len(e.Logbooks) > 0 {
		lines = append(lines, fmt.Sprintf("Logbooks: %s", strings.Join(e.Logbooks, ", ")))
	}
	if len(e.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("Tags: %s", strings.Join(e.Tags, ", ")))
	}
	if g := e.GroupID(); g != "" {
		lines = append(lines, fmt.Sprintf("Thread: %s", g))
	}

	for _, p := range e.Properties {
		if p.Name == logbook.GroupPropertyName {
			continue
		}
		attrs := make([]string, 0, len(p.Attributes))
		for _, a := range p.Attributes {
			attrs = append(attrs, a.Name+"="+a.Value)
		}
		sort.Strings(attrs)
		lines = append(lines, fmt.Sprintf("%s: %s", p.Name, strings.Join(attrs, ", ")))
	}

	if len(e.Attachments) > 0 {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("Attachments (%d):", len(e.Attachments)))
		for _, a := range e.Attachments {
			if a.ContentType != "" {
				lines = append(lines, fmt.Sprintf("  📎 %s (%s)", a.Filename, a.ContentType))
			} else {
				lines = append(lines, fmt.Sprintf("  📎 %s", a.Filename))
			}
		}
	}

	lines = append(lines, "")
	sepWidth := min(m.width-2, 80)
	if sepWidth < 1 {
		sepWidth = 40
	}
	lines = append(lines, strings.Repeat("─", sepWidth))
	lines = append(lines, "")

	body := textutil.SanitizeTerminal(e.Description)
	if strings.TrimSpace(body) == "" {
		body = "(No description)"
	}
	lines = append(lines, wrapText(body, m.width-2)...)

	return lines
}

// fillDetail pads a single-line detail state to the full detail height.
func (m Model) fillDetail(content string) string {
	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteString("\n")
	for i := 1; i < m.detailPageSize(); i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", max(m.width, 0))))
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderNotificationLine())
	return sb.String()
}

// entryDetailView renders the current entry.
func (m Model) entryDetailView() string {
	v := m.view
	if v.EntryErr != nil && v.Current == nil {
		msg := "Error loading log entry: " + textutil.FirstLine(v.EntryErr.Error())
		if v.EntryErrKind == logbook.ErrorKindNotFound {
			msg = fmt.Sprintf("Log entry %s not found", v.CurrentID)
		}
		return m.fillDetail(errorStyle.Render(padRight(msg, m.width)))
	}
	if v.Current == nil {
		return m.fillDetail(loadingStyle.Render(padRight(m.spinnerIndicator()+" Loading log entry...", m.width)))
	}

	lines := m.buildDetailLines()
	pageSize := m.detailPageSize()
	start := min(max(m.detailScroll, 0), max(len(lines)-1, 0))
	end := min(start+pageSize, len(lines))

	var sb strings.Builder
	for _, line := range lines[start:end] {
		line = highlightCriteria(line, v.Criteria)
		sb.WriteString(normalRowStyle.Render(padRight(line, m.width)))
		sb.WriteString("\n")
	}
	for i := end - start; i < pageSize; i++ {
		sb.WriteString(normalRowStyle.Render(strings.Repeat(" ", max(m.width, 0))))
		sb.WriteString("\n")
	}

	if v.EntryErr != nil {
		// Refresh of a cached entry failed; the cached copy stays visible.
		sb.WriteString(bannerStyle.Render(padRight(" Refresh failed: "+textutil.FirstLine(v.EntryErr.Error()), m.width)))
	} else {
		sb.WriteString(m.renderNotificationLine())
	}
	return sb.String()
}

// footerView renders the key hints and the position indicator.
func (m Model) footerView() string {
	var keys []string
	var posStr string

	switch m.level {
	case levelDetail:
		keys = []string{"←/→ prev/next", "↑/↓ scroll", "Esc back", "r refresh", "? help"}
		if n := m.view.Neighbors; n.Index >= 0 {
			posStr = fmt.Sprintf(" entry %d/%d ", n.Index+1, len(m.view.Entries))
		}
	default:
		keys = []string{"↑/k", "↓/j", "Enter", "/ search", "n/p page", "s sort", "z size", "r refresh", "? help"}
		if len(m.view.Entries) > 0 {
			posStr = fmt.Sprintf(" %d/%d ", m.cursor+1, len(m.view.Entries))
		}
	}

	keysStr := strings.Join(keys, " │ ")
	gap := max(m.width-lipgloss.Width(keysStr)-lipgloss.Width(posStr)-2, 0)
	return footerStyle.Render(keysStr + strings.Repeat(" ", gap) + posStr)
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}

// renderInfoLine renders the info line with an optional right-aligned
// loading spinner.
func (m Model) renderInfoLine(content string, loading bool) string {
	// statsStyle pads by one cell on each side.
	contentWidth := max(m.width-2, 1)

	if content == "" && !loading {
		return statsStyle.Render(strings.Repeat(" ", contentWidth))
	}
	if loading {
		indicator := m.spinnerIndicator()
		gap := max(contentWidth-lipgloss.Width(content)-lipgloss.Width(indicator), 1)
		content += strings.Repeat(" ", gap) + spinnerStyle.Render(indicator)
	}
	return statsStyle.Render(padRight(content, contentWidth))
}

// renderNotificationLine shows a flash message, a loading spinner, or blank.
func (m Model) renderNotificationLine() string {
	if m.flashMessage != "" {
		flash := " " + m.flashMessage
		if m.isLoading() {
			indicator := m.spinnerIndicator()
			gap := max(m.width-lipgloss.Width(flash)-lipgloss.Width(indicator), 1)
			return flashStyle.Render(padRight(flash+strings.Repeat(" ", gap)+indicator, m.width))
		}
		return flashStyle.Render(padRight(flash, m.width))
	}
	if m.isLoading() {
		return m.renderInfoLine("", true)
	}
	return normalRowStyle.Render(strings.Repeat(" ", max(m.width, 0)))
}

// rawHelpLines is the help modal content. The first line is the title.
var rawHelpLines = []string{
	"Keyboard Shortcuts",
	"",
	"Results",
	"  ↑/k, ↓/j    Move cursor up/down",
	"  PgUp/PgDn   Scroll a screen",
	"  Home/End    Go to first/last",
	"  Enter       Open log entry",
	"  n/→, p/←    Next/previous page",
	"  s           Reverse sort order",
	"  z           Cycle page size",
	"  /           Edit query (key=value&...)",
	"",
	"Log entry",
	"  ←/h, →/l    Previous/next entry",
	"  ↑/↓         Scroll",
	"  Esc         Back to results",
	"",
	"Other",
	"  r           Refresh now",
	"  x           Dismiss search error",
	"  q           Quit",
	"",
	"[↑/↓] Scroll  [Any other key] Close",
}

// helpMaxVisible returns the max visible lines for the help modal.
func (m Model) helpMaxVisible() int {
	return min(max(m.height-6, 1), len(rawHelpLines))
}

func (m Model) renderHelpModal() string {
	maxVisible := m.helpMaxVisible()
	scroll := min(m.helpScroll, max(len(rawHelpLines)-maxVisible, 0))

	visible := rawHelpLines[scroll : scroll+maxVisible]
	rendered := make([]string, len(visible))
	for i, line := range visible {
		if scroll+i == 0 {
			rendered[i] = modalTitleStyle.Render(line)
		} else {
			rendered[i] = line
		}
	}
	return strings.Join(rendered, "\n")
}

func (m Model) renderQuitConfirmModal() string {
	return modalTitleStyle.Render("Quit ologbrowse?") + "\n\n" +
		"[Y] Yes  [any other key] No"
}

// overlayModal renders the active modal centred over background.
func (m Model) overlayModal(background string) string {
	var modalContent string
	switch m.modal {
	case modalQuitConfirm:
		modalContent = m.renderQuitConfirmModal()
	case modalHelp:
		modalContent = m.renderHelpModal()
	}
	if modalContent == "" {
		return background
	}

	modal := modalStyle.Render(modalContent)
	bgLines := strings.Split(background, "\n")
	modalLines := strings.Split(modal, "\n")

	startLine := max((len(bgLines)-len(modalLines))/2, 0)
	modalWidth := lipgloss.Width(modal)
	leftPadding := max((m.width-modalWidth)/2, 0)

	for i, modalLine := range modalLines {
		lineIdx := startLine + i
		if lineIdx >= len(bgLines) {
			break
		}
		bgLine := bgLines[lineIdx]

		var composite strings.Builder
		if leftPadding > 0 {
			leftBg := truncateToWidth(bgLine, leftPadding)
			composite.WriteString(leftBg)
			if w := lipgloss.Width(leftBg); w < leftPadding {
				composite.WriteString(strings.Repeat(" ", leftPadding-w))
			}
		}
		composite.WriteString(modalLine)
		if rightStart := leftPadding + modalWidth; rightStart < lipgloss.Width(bgLine) {
			composite.WriteString(skipToWidth(bgLine, rightStart))
		}
		bgLines[lineIdx] = composite.String()
	}

	return strings.Join(bgLines, "\n")
}
