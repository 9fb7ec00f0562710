// Package search provides the canonical query-string form of logbook search
// criteria and page parameters.
package search

import (
	"slices"
	"strings"
)

// Criteria holds the user's search filters. A zero-valued field is absent:
// it is never encoded and never sent to the log service.
//
// The query string form has no escaping. A value cannot contain '&', set
// members cannot contain ','. Surrounding whitespace is not significant.
// Criteria that break these rules lose the excess when they round-trip
// through Encode and Decode.
type Criteria struct {
	Title    string   // title= filter
	Text     string   // desc= free text
	Owner    string   // owner= filter
	Level    string   // level= (entry type)
	Logbooks []string // logbooks= set, canonical order
	Tags     []string // tags= set, canonical order
	Start    string   // start= time bound (absolute or relative, e.g. "24 hours")
	End      string   // end= time bound (e.g. "now")
}

// Query string keys, in encoding order.
const (
	KeyTitle    = "title"
	KeyText     = "desc"
	KeyOwner    = "owner"
	KeyLevel    = "level"
	KeyLogbooks = "logbooks"
	KeyTags     = "tags"
	KeyStart    = "start"
	KeyEnd      = "end"
)

// DefaultCriteria returns the criteria used when nothing has been persisted:
// the last 24 hours through now.
func DefaultCriteria() Criteria {
	return Criteria{Start: "24 hours", End: "now"}
}

// IsEmpty returns true if no field is set.
func (c Criteria) IsEmpty() bool {
	return c.Title == "" &&
		c.Text == "" &&
		c.Owner == "" &&
		c.Level == "" &&
		len(c.Logbooks) == 0 &&
		len(c.Tags) == 0 &&
		c.Start == "" &&
		c.End == ""
}

// Equal reports whether two criteria hold the same content. Sets compare by
// membership.
func (c Criteria) Equal(o Criteria) bool {
	return c.Title == o.Title &&
		c.Text == o.Text &&
		c.Owner == o.Owner &&
		c.Level == o.Level &&
		slices.Equal(canonicalSet(c.Logbooks), canonicalSet(o.Logbooks)) &&
		slices.Equal(canonicalSet(c.Tags), canonicalSet(o.Tags)) &&
		c.Start == o.Start &&
		c.End == o.End
}

// Encodable reports whether c keeps its meaning through Encode and Decode:
// no value holds '&' and no set member holds ','.
func (c Criteria) Encodable() bool {
	for _, v := range []string{c.Title, c.Text, c.Owner, c.Level, c.Start, c.End} {
		if strings.Contains(v, "&") {
			return false
		}
	}
	for _, m := range slices.Concat(c.Logbooks, c.Tags) {
		if strings.ContainsAny(m, "&,") {
			return false
		}
	}
	return true
}

// Params returns the present fields as key/value pairs in encoding order.
// Set fields are comma-joined.
func (c Criteria) Params() [][2]string {
	var out [][2]string
	for _, f := range fields {
		if v := f.get(c); v != "" {
			out = append(out, [2]string{f.key, v})
		}
	}
	return out
}

// field binds a query-string key to a Criteria field.
type field struct {
	key string
	get func(c Criteria) string
	set func(c *Criteria, v string)
}

// fields lists every supported key in its fixed encoding order.
var fields = []field{
	{
		key: KeyTitle,
		get: func(c Criteria) string { return c.Title },
		set: func(c *Criteria, v string) { c.Title = v },
	},
	{
		key: KeyText,
		get: func(c Criteria) string { return c.Text },
		set: func(c *Criteria, v string) { c.Text = v },
	},
	{
		key: KeyOwner,
		get: func(c Criteria) string { return c.Owner },
		set: func(c *Criteria, v string) { c.Owner = v },
	},
	{
		key: KeyLevel,
		get: func(c Criteria) string { return c.Level },
		set: func(c *Criteria, v string) { c.Level = v },
	},
	{
		key: KeyLogbooks,
		get: func(c Criteria) string { return strings.Join(canonicalSet(c.Logbooks), ",") },
		set: func(c *Criteria, v string) { c.Logbooks = splitSet(v) },
	},
	{
		key: KeyTags,
		get: func(c Criteria) string { return strings.Join(canonicalSet(c.Tags), ",") },
		set: func(c *Criteria, v string) { c.Tags = splitSet(v) },
	},
	{
		key: KeyStart,
		get: func(c Criteria) string { return c.Start },
		set: func(c *Criteria, v string) { c.Start = v },
	},
	{
		key: KeyEnd,
		get: func(c Criteria) string { return c.End },
		set: func(c *Criteria, v string) { c.End = v },
	},
}

// fieldsByKey indexes fields for decoding.
var fieldsByKey = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.key] = f
	}
	return m
}()

// Encode renders criteria as its canonical query string, e.g.
//
//	level=ERROR&logbooks=controls,ops&start=24 hours&end=now
//
// Two criteria with the same content always encode identically.
func Encode(c Criteria) string {
	params := c.Params()
	tokens := make([]string, len(params))
	for i, p := range params {
		tokens[i] = p[0] + "=" + p[1]
	}
	return strings.Join(tokens, "&")
}

// Decode parses a query string into criteria. It never fails: tokens without
// '=' are skipped, unknown keys are ignored, token order and surrounding
// whitespace do not matter. A later token for the same key wins.
func Decode(s string) Criteria {
	var c Criteria
	for _, token := range strings.Split(s, "&") {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			continue
		}
		f, known := fieldsByKey[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			continue
		}
		f.set(&c, strings.TrimSpace(value))
	}
	return c
}

// splitSet splits a comma-joined set value into its canonical form.
func splitSet(v string) []string {
	return canonicalSet(strings.Split(v, ","))
}

// canonicalSet trims, drops empty members, de-duplicates and sorts.
// Returns nil for an empty set.
func canonicalSet(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
