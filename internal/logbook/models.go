// Package logbook provides the log entry model and the boundary to the
// electronic logbook service.
package logbook

import (
	"strings"
	"time"
)

// Property names used to link an entry to its thread.
const (
	GroupPropertyName  = "Log Entry Group"
	GroupAttributeName = "id"
)

// LogEntry is a single logbook record. Entries are immutable once fetched; a
// newer fetch of the same ID replaces the old value entirely.
type LogEntry struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Level       string
	State       string
	CreatedDate time.Time
	ModifyDate  *time.Time
	Logbooks    []string
	Tags        []string
	Properties  []Property
	Attachments []Attachment
}

// Property is a named group of attributes attached to an entry.
type Property struct {
	Name       string
	Attributes []Attribute
}

// Attribute is a single key/value pair inside a Property.
type Attribute struct {
	Name  string
	Value string
}

// Attachment describes a file attached to an entry.
type Attachment struct {
	ID          string
	Filename    string
	ContentType string
}

// Property returns the first property with the given name.
func (e LogEntry) Property(name string) (Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Attribute returns the value of the first attribute with the given name.
func (p Property) Attribute(name string) (string, bool) {
	for _, a := range p.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// GroupID returns the thread group id of the entry, or "" when the entry is
// not part of a thread. A blank id is treated as no thread.
func (e LogEntry) GroupID() string {
	p, ok := e.Property(GroupPropertyName)
	if !ok {
		return ""
	}
	id, ok := p.Attribute(GroupAttributeName)
	if !ok {
		return ""
	}
	return strings.TrimSpace(id)
}

// SearchResult is one page of search hits in server order.
type SearchResult struct {
	Entries    []LogEntry
	TotalCount int64
}
