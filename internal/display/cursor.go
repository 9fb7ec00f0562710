package display

import "github.com/wesm/ologbrowse/internal/logbook"

// Neighbors is the position of the current entry within a display sequence.
type Neighbors struct {
	Index    int // -1 when the entry is not in the sequence
	Previous *logbook.LogEntry
	Next     *logbook.LogEntry
}

// HasPrevious reports whether backward navigation is enabled.
func (n Neighbors) HasPrevious() bool { return n.Previous != nil }

// HasNext reports whether forward navigation is enabled.
func (n Neighbors) HasNext() bool { return n.Next != nil }

// Locate finds currentID in seq and returns its neighbors. An id that is not
// in seq (for example an entry opened directly by id) disables both
// directions. Call it again whenever seq changes.
func Locate(seq []logbook.LogEntry, currentID string) Neighbors {
	idx := -1
	for i := range seq {
		if seq[i].ID == currentID {
			idx = i
			break
		}
	}
	n := Neighbors{Index: idx}
	if idx < 0 {
		return n
	}
	if idx > 0 {
		prev := seq[idx-1]
		n.Previous = &prev
	}
	if idx < len(seq)-1 {
		next := seq[idx+1]
		n.Next = &next
	}
	return n
}
