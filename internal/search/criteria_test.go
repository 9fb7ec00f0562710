package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// assertCriteriaEqual compares two Criteria, treating nil slices and empty
// slices as equivalent.
func assertCriteriaEqual(t *testing.T, got, want Criteria) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Criteria mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Criteria
	}{
		{
			name:  "empty string",
			query: "",
			want:  Criteria{},
		},
		{
			name:  "single field",
			query: "level=ERROR",
			want:  Criteria{Level: "ERROR"},
		},
		{
			name:  "all fields",
			query: "title=beam&desc=trip&owner=jones&level=WARN&logbooks=ops&tags=rf,vacuum&start=2 days&end=now",
			want: Criteria{
				Title:    "beam",
				Text:     "trip",
				Owner:    "jones",
				Level:    "WARN",
				Logbooks: []string{"ops"},
				Tags:     []string{"rf", "vacuum"},
				Start:    "2 days",
				End:      "now",
			},
		},
		{
			name:  "arbitrary token order",
			query: "end=now&logbooks=ops&start=24 hours",
			want:  Criteria{Logbooks: []string{"ops"}, Start: "24 hours", End: "now"},
		},
		{
			name:  "surrounding whitespace",
			query: "  level = ERROR &  logbooks = ops , controls ",
			want:  Criteria{Level: "ERROR", Logbooks: []string{"controls", "ops"}},
		},
		{
			name:  "unknown keys ignored",
			query: "level=INFO&shiny=new&future=field",
			want:  Criteria{Level: "INFO"},
		},
		{
			name:  "token without equals skipped",
			query: "level=INFO&garbage&&logbooks=ops",
			want:  Criteria{Level: "INFO", Logbooks: []string{"ops"}},
		},
		{
			name:  "keys are case-insensitive",
			query: "LEVEL=INFO&Logbooks=ops",
			want:  Criteria{Level: "INFO", Logbooks: []string{"ops"}},
		},
		{
			name:  "value may contain equals",
			query: "desc=a=b",
			want:  Criteria{Text: "a=b"},
		},
		{
			name:  "empty value is absent",
			query: "title=&logbooks=,,",
			want:  Criteria{},
		},
		{
			name:  "set members deduplicated",
			query: "tags=rf,rf,vacuum,rf",
			want:  Criteria{Tags: []string{"rf", "vacuum"}},
		},
		{
			name:  "later token wins",
			query: "level=INFO&level=ERROR",
			want:  Criteria{Level: "ERROR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCriteriaEqual(t, Decode(tt.query), tt.want)
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     string
	}{
		{
			name:     "empty",
			criteria: Criteria{},
			want:     "",
		},
		{
			name:     "defaults",
			criteria: DefaultCriteria(),
			want:     "start=24 hours&end=now",
		},
		{
			name:     "fixed field order",
			criteria: Criteria{End: "now", Level: "ERROR", Title: "x"},
			want:     "title=x&level=ERROR&end=now",
		},
		{
			name:     "sets sorted",
			criteria: Criteria{Logbooks: []string{"ops", "controls"}, Level: "ERROR"},
			want:     "level=ERROR&logbooks=controls,ops",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.criteria); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_SetOrderIndependent(t *testing.T) {
	a := Criteria{Logbooks: []string{"ops", "controls"}, Level: "ERROR"}
	b := Criteria{Logbooks: []string{"controls", "ops"}, Level: "ERROR"}

	if Encode(a) != Encode(b) {
		t.Errorf("Encode differs by set order: %q vs %q", Encode(a), Encode(b))
	}

	got := Decode(Encode(a))
	if diff := cmp.Diff([]string{"controls", "ops"}, got.Logbooks); diff != "" {
		t.Errorf("logbooks mismatch (-want +got):\n%s", diff)
	}
	if got.Level != "ERROR" {
		t.Errorf("Level = %q, want ERROR", got.Level)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"start=24 hours&end=now",
		"end=now&start=24 hours",
		"level=ERROR&logbooks=ops,controls",
		" tags = b , a , b & title = hello world ",
		"desc=x=y&owner=jones&unknown=1&broken",
		"logbooks=,&level=",
		"title=a&title=b",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			c := Decode(in)
			encoded := Encode(c)
			again := Decode(encoded)
			assertCriteriaEqual(t, again, c)
			if Encode(again) != encoded {
				t.Errorf("Encode not stable: %q then %q", encoded, Encode(again))
			}
		})
	}
}

func TestCriteriaEqual(t *testing.T) {
	a := Criteria{Tags: []string{"b", "a"}, Level: "INFO"}
	b := Criteria{Tags: []string{"a", "b"}, Level: "INFO"}
	if !a.Equal(b) {
		t.Error("Equal() = false for same set content")
	}
	if a.Equal(Criteria{Level: "INFO"}) {
		t.Error("Equal() = true for different tags")
	}
}

func TestCriteriaIsEmpty(t *testing.T) {
	if !(Criteria{}).IsEmpty() {
		t.Error("zero Criteria should be empty")
	}
	if DefaultCriteria().IsEmpty() {
		t.Error("default Criteria should not be empty")
	}
}

func TestCriteriaEncodable(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want bool
	}{
		{"defaults", DefaultCriteria(), true},
		{"padded value", Criteria{Title: " beam "}, true},
		{"ampersand in text", Criteria{Text: "beam & vacuum"}, false},
		{"ampersand in end", Criteria{End: "now&x"}, false},
		{"comma in logbook", Criteria{Logbooks: []string{"ops,controls"}}, false},
		{"ampersand in tag", Criteria{Tags: []string{"a&b"}}, false},
		{"comma in scalar", Criteria{Title: "beam, vacuum"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Encodable(); got != tt.want {
				t.Errorf("Encodable() = %v, want %v", got, tt.want)
			}
		})
	}
}
