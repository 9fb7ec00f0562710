package logbook

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func groupProperty(id string) Property {
	return Property{
		Name:       GroupPropertyName,
		Attributes: []Attribute{{Name: GroupAttributeName, Value: id}},
	}
}

func TestGroupID(t *testing.T) {
	tests := []struct {
		name  string
		entry LogEntry
		want  string
	}{
		{
			name:  "no properties",
			entry: LogEntry{ID: "1"},
			want:  "",
		},
		{
			name:  "group property",
			entry: LogEntry{ID: "1", Properties: []Property{groupProperty("G")}},
			want:  "G",
		},
		{
			name: "group property among others",
			entry: LogEntry{ID: "1", Properties: []Property{
				{Name: "Shift", Attributes: []Attribute{{Name: "id", Value: "night"}}},
				groupProperty("abc-123"),
			}},
			want: "abc-123",
		},
		{
			name:  "blank id",
			entry: LogEntry{ID: "1", Properties: []Property{groupProperty("   ")}},
			want:  "",
		},
		{
			name: "missing id attribute",
			entry: LogEntry{ID: "1", Properties: []Property{
				{Name: GroupPropertyName, Attributes: []Attribute{{Name: "other", Value: "x"}}},
			}},
			want: "",
		},
		{
			name: "other property with id attribute",
			entry: LogEntry{ID: "1", Properties: []Property{
				{Name: "Resource", Attributes: []Attribute{{Name: "id", Value: "R"}}},
			}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.GroupID(); got != tt.want {
				t.Errorf("GroupID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ErrorKindNone},
		{"not found", ErrNotFound, ErrorKindNotFound},
		{"wrapped not found", fmt.Errorf("get entry 12345abcde12345: %w", ErrNotFound), ErrorKindNotFound},
		{"service error", &ServiceError{StatusCode: 500, Message: "boom"}, ErrorKindFetch},
		{"transport", errors.New("connection refused"), ErrorKindFetch},
		{"cancelled", context.Canceled, ErrorKindFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{StatusCode: 503, Message: "maintenance"}
	if got := err.Error(); got != "log service error (503): maintenance" {
		t.Errorf("Error() = %q", got)
	}
}
