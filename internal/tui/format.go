package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// highlightCriteria applies highlight styling to the title and free-text
// terms of the active criteria.
func highlightCriteria(text string, c search.Criteria) string {
	if text == "" {
		return text
	}
	terms := extractSearchTerms(c)
	if len(terms) == 0 {
		return text
	}
	return applyHighlight(text, terms)
}

// extractSearchTerms returns the whitespace-separated words of the title and
// text filters, de-duplicated case-insensitively. Wildcards are stripped.
func extractSearchTerms(c search.Criteria) []string {
	var terms []string
	for _, f := range []string{c.Title, c.Text} {
		for _, w := range strings.Fields(f) {
			w = strings.Trim(w, "*?\"")
			if w != "" {
				terms = append(terms, w)
			}
		}
	}
	seen := make(map[string]bool, len(terms))
	filtered := terms[:0]
	for _, t := range terms {
		lower := strings.ToLower(t)
		if !seen[lower] {
			seen[lower] = true
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// applyHighlight wraps all case-insensitive occurrences of any term in text
// with highlightStyle. It works on runes so that case folding which changes
// byte length cannot shift the offsets.
func applyHighlight(text string, terms []string) string {
	if len(terms) == 0 {
		return text
	}
	textRunes := []rune(text)
	lowerRunes := []rune(strings.ToLower(text))
	if len(lowerRunes) != len(textRunes) {
		return text
	}
	type interval struct{ start, end int }
	var intervals []interval
	for _, term := range terms {
		termLower := []rune(strings.ToLower(term))
		tLen := len(termLower)
		if tLen == 0 {
			continue
		}
		for i := 0; i <= len(lowerRunes)-tLen; i++ {
			match := true
			for j := 0; j < tLen; j++ {
				if lowerRunes[i+j] != termLower[j] {
					match = false
					break
				}
			}
			if match {
				intervals = append(intervals, interval{i, i + tLen})
				i += tLen - 1
			}
		}
	}
	if len(intervals) == 0 {
		return text
	}
	// Few intervals expected; insertion sort.
	for i := 1; i < len(intervals); i++ {
		for j := i; j > 0 && intervals[j].start < intervals[j-1].start; j-- {
			intervals[j], intervals[j-1] = intervals[j-1], intervals[j]
		}
	}
	merged := []interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.start <= last.end {
			if iv.end > last.end {
				last.end = iv.end
			}
		} else {
			merged = append(merged, iv)
		}
	}
	var sb strings.Builder
	prev := 0
	for _, iv := range merged {
		sb.WriteString(string(textRunes[prev:iv.start]))
		sb.WriteString(highlightStyle.Render(string(textRunes[iv.start:iv.end])))
		prev = iv.end
	}
	sb.WriteString(string(textRunes[prev:]))
	return sb.String()
}

// formatCount formats a count as a short human-readable string (e.g. "1.5K").
func formatCount(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// formatDate renders a created date for the list column.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// formatDateLong renders a timestamp with its relative age, e.g.
// "Sat, 15 Jun 2024 12:00:00 UTC (3 hours ago)".
func formatDateLong(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("Mon, 02 Jan 2006 15:04:05 MST"), humanize.Time(t))
}

// formatLogbooks joins logbook names for the list column.
func formatLogbooks(e logbook.LogEntry) string {
	if len(e.Logbooks) == 0 {
		return "-"
	}
	return strings.Join(e.Logbooks, ",")
}

// padRight pads s with spaces to fill width terminal cells, truncating
// ANSI-aware when it is wider.
func padRight(s string, width int) string {
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateRunes truncates s to fit within maxWidth terminal cells. Newlines
// and tabs are flattened so a cell cannot break the row layout.
func truncateRunes(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")

	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// padCell truncates s to width cells and pads it to exactly width.
func padCell(s string, width int) string {
	return runewidth.FillRight(truncateRunes(s, width), width)
}

// wrapText wraps text to fit within width terminal cells, preferring to
// break at spaces.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}

		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1

			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}

			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}
			if breakAt == 0 {
				// Single character wider than the line.
				breakAt = 1
			}

			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]

			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}

	return result
}

// truncateToWidth returns the prefix of s that fits within maxWidth columns.
func truncateToWidth(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "")
}

// skipToWidth returns the suffix of s after skipWidth columns.
func skipToWidth(s string, skipWidth int) string {
	return ansi.Cut(s, skipWidth, 10000)
}
