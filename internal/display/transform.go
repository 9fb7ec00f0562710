// Package display turns raw search pages into the sequence shown to the user
// and provides previous/next navigation over it.
package display

import (
	"slices"

	"github.com/wesm/ologbrowse/internal/logbook"
	"github.com/wesm/ologbrowse/internal/search"
)

// Transform builds the display sequence from a raw result page.
//
// Entries are walked once in the order the service returned them. An entry
// whose thread has already been represented is dropped; the first entry seen
// for each thread is its representative. Entries without a thread are always
// kept. The survivors are then stably sorted by created date, newest first
// unless dir is SortUp.
//
// The representative depends on server order: if replies arrive before their
// root, a reply represents the thread.
func Transform(raw []logbook.LogEntry, dir search.SortDirection) []logbook.LogEntry {
	out := make([]logbook.LogEntry, 0, len(raw))
	seen := make(map[string]struct{})
	for _, e := range raw {
		groupID := e.GroupID()
		if groupID == "" {
			out = append(out, e)
			continue
		}
		if _, dup := seen[groupID]; !dup {
			out = append(out, e)
		}
		seen[groupID] = struct{}{}
	}

	slices.SortStableFunc(out, func(a, b logbook.LogEntry) int {
		c := a.CreatedDate.Compare(b.CreatedDate)
		if dir == search.SortUp {
			return c
		}
		return -c
	})
	return out
}
