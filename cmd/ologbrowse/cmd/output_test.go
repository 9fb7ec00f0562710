package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mattn/go-runewidth"
	"github.com/wesm/ologbrowse/internal/logbook"
)

func outputEntry() logbook.LogEntry {
	modified := time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC)
	return logbook.LogEntry{
		ID:          "42",
		Title:       "Vacuum\tleak  in sector 4",
		Owner:       "jones",
		Description: "Pressure rising.",
		Level:       "Problem",
		CreatedDate: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		ModifyDate:  &modified,
		Logbooks:    []string{"ops", "vacuum"},
		Properties: []logbook.Property{
			{Name: logbook.GroupPropertyName, Attributes: []logbook.Attribute{{Name: "id", Value: "g9"}}},
			{Name: "Shift", Attributes: []logbook.Attribute{{Name: "lead", Value: "kim"}, {Name: "crew", Value: "B"}}},
		},
		Attachments: []logbook.Attachment{{ID: "a1", Filename: "gauge.png", ContentType: "image/png"}},
	}
}

func TestToEntryJSON(t *testing.T) {
	e := outputEntry()

	brief := toEntryJSON(e, false)
	want := entryJSON{
		ID:          "42",
		Title:       e.Title,
		Owner:       "jones",
		Level:       "Problem",
		CreatedDate: "2024-06-15T12:00:00Z",
		ModifyDate:  "2024-06-15T13:00:00Z",
		Logbooks:    []string{"ops", "vacuum"},
		Tags:        []string{},
		GroupID:     "g9",
	}
	if diff := cmp.Diff(want, brief); diff != "" {
		t.Errorf("brief mismatch (-want +got):\n%s", diff)
	}

	full := toEntryJSON(e, true)
	if full.Description != "Pressure rising." {
		t.Errorf("Description = %q", full.Description)
	}
	if diff := cmp.Diff([]string{"lead=kim", "crew=B"}, full.Properties["Shift"]); diff != "" {
		t.Errorf("Shift properties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"gauge.png"}, full.Attachments); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteEntryLines(t *testing.T) {
	var buf bytes.Buffer
	writeEntryLines(&buf, []logbook.LogEntry{outputEntry()})
	want := "42\t2024-06-15T12:00:00Z\tjones\tops,vacuum\tg9\tVacuum leak in sector 4\n"
	if got := buf.String(); got != want {
		t.Errorf("writeEntryLines = %q, want %q", got, want)
	}
}

func TestWriteEntryTable(t *testing.T) {
	var buf bytes.Buffer
	writeEntryTable(&buf, []logbook.LogEntry{outputEntry()})
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + 1:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.HasSuffix(lines[0], "TITLE") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "⤷ Vacuum") {
		t.Errorf("thread member not marked: %q", lines[1])
	}
}

func TestWriteEntryDetail(t *testing.T) {
	var buf bytes.Buffer
	writeEntryDetail(&buf, outputEntry())
	out := buf.String()
	for _, want := range []string{
		"ID:       42\n",
		"Logbooks: ops, vacuum\n",
		"Thread:   g9\n",
		"Shift: crew=B, lead=kim\n",
		"Attachment: gauge.png (image/png)\n",
		"\nPressure rising.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, logbook.GroupPropertyName) {
		t.Errorf("group property printed as a property:\n%s", out)
	}
	if strings.Contains(out, "Tags:") {
		t.Errorf("empty tags printed:\n%s", out)
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"a  b\nc", 5, "a b c"},
		{"abcdefgh", 5, "abcd…"},
		{"日本語テキスト", 6, "日本… "},
	}
	for _, tt := range tests {
		got := cell(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("cell(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if w := runewidth.StringWidth(got); w != tt.width {
			t.Errorf("cell(%q, %d) width = %d", tt.in, tt.width, w)
		}
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("buffer reported as terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if isTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}
