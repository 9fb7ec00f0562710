package logbooktest

import (
	"time"

	"github.com/wesm/ologbrowse/internal/logbook"
)

// BaseTime is the created date used by Entry unless overridden.
var BaseTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// EntryOption customises an entry built by Entry.
type EntryOption func(*logbook.LogEntry)

// Entry builds a log entry with the given id and title.
func Entry(id, title string, opts ...EntryOption) logbook.LogEntry {
	e := logbook.LogEntry{
		ID:          id,
		Owner:       "jones",
		Title:       title,
		Description: title + " description",
		Level:       "Normal",
		State:       "Active",
		CreatedDate: BaseTime,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// InGroup puts the entry in the thread with the given group id.
func InGroup(groupID string) EntryOption {
	return func(e *logbook.LogEntry) {
		e.Properties = append(e.Properties, logbook.Property{
			Name: logbook.GroupPropertyName,
			Attributes: []logbook.Attribute{
				{Name: logbook.GroupAttributeName, Value: groupID},
			},
		})
	}
}

// CreatedAt sets the created date.
func CreatedAt(t time.Time) EntryOption {
	return func(e *logbook.LogEntry) { e.CreatedDate = t }
}

// CreatedMinutesAfter sets the created date to BaseTime plus n minutes.
func CreatedMinutesAfter(n int) EntryOption {
	return CreatedAt(BaseTime.Add(time.Duration(n) * time.Minute))
}

// WithLogbooks sets the logbooks.
func WithLogbooks(names ...string) EntryOption {
	return func(e *logbook.LogEntry) { e.Logbooks = names }
}
