package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// absoluteLayouts are the absolute timestamp forms accepted in start/end.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// relativePattern matches expressions like "24 hours", "3d", "2 weeks".
var relativePattern = regexp.MustCompile(`^(\d+)\s*([a-z]+)$`)

// ResolveTime interprets a start/end bound relative to now. Supported forms
// are "now", relative spans ("24 hours", "7 days", "2w", "90 min") meaning
// that long before now, and absolute timestamps. ok is false for anything
// else; such bounds are still sent to the service unchanged.
func ResolveTime(bound string, now time.Time) (t time.Time, ok bool) {
	bound = strings.TrimSpace(bound)
	if bound == "" {
		return time.Time{}, false
	}
	lower := strings.ToLower(bound)
	if lower == "now" {
		return now, true
	}

	if match := relativePattern.FindStringSubmatch(lower); match != nil {
		amount, err := strconv.Atoi(match[1])
		if err != nil {
			return time.Time{}, false
		}
		switch match[2] {
		case "s", "sec", "secs", "second", "seconds":
			return now.Add(-time.Duration(amount) * time.Second), true
		case "m", "min", "mins", "minute", "minutes":
			return now.Add(-time.Duration(amount) * time.Minute), true
		case "h", "hr", "hrs", "hour", "hours":
			return now.Add(-time.Duration(amount) * time.Hour), true
		case "d", "day", "days":
			return now.AddDate(0, 0, -amount), true
		case "w", "week", "weeks":
			return now.AddDate(0, 0, -amount*7), true
		case "month", "months":
			return now.AddDate(0, -amount, 0), true
		case "y", "year", "years":
			return now.AddDate(-amount, 0, 0), true
		}
		return time.Time{}, false
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, bound, now.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Window is the absolute time range selected by a criteria's bounds.
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow resolves c's start and end against now. A missing end means
// now. ok is false when start is missing or either bound is not understood.
func ResolveWindow(c Criteria, now time.Time) (w Window, ok bool) {
	if w.Start, ok = ResolveTime(c.Start, now); !ok {
		return Window{}, false
	}
	w.End = now
	if strings.TrimSpace(c.End) != "" {
		if w.End, ok = ResolveTime(c.End, now); !ok {
			return Window{}, false
		}
	}
	return w, true
}
