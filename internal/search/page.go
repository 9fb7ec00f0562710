package search

import (
	"strconv"
	"strings"
)

// SortDirection orders results by created date.
type SortDirection int

const (
	SortDown SortDirection = iota // Newest first (default)
	SortUp                        // Oldest first
)

// String returns the wire name used by the log service ("down" or "up").
func (d SortDirection) String() string {
	if d == SortUp {
		return "up"
	}
	return "down"
}

// Reverse returns the opposite direction.
func (d SortDirection) Reverse() SortDirection {
	if d == SortUp {
		return SortDown
	}
	return SortUp
}

// ParseSortDirection accepts "up"/"down" and the asc/desc spellings.
func ParseSortDirection(s string) (SortDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down", "desc", "descending":
		return SortDown, true
	case "up", "asc", "ascending":
		return SortUp, true
	default:
		return SortDown, false
	}
}

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 30

// PageParams holds sort direction and pagination. It is independent of
// Criteria: a new query resets From but keeps Sort and Size.
type PageParams struct {
	Sort SortDirection
	From int // Offset of the first result, >= 0
	Size int // Page size, > 0
}

// DefaultPageParams returns newest-first, offset 0 and the given size.
// A non-positive size falls back to DefaultPageSize.
func DefaultPageParams(size int) PageParams {
	if size <= 0 {
		size = DefaultPageSize
	}
	return PageParams{Sort: SortDown, From: 0, Size: size}
}

// Normalize clamps From to >= 0 and replaces a non-positive Size with
// defaultSize.
func (p PageParams) Normalize(defaultSize int) PageParams {
	if p.From < 0 {
		p.From = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageParams(defaultSize).Size
	}
	return p
}

// Page param keys.
const (
	KeySort = "sort"
	KeyFrom = "from"
	KeySize = "size"
)

// EncodePageParams renders page params in the query-string grammar:
// sort=down&from=0&size=30.
func EncodePageParams(p PageParams) string {
	return KeySort + "=" + p.Sort.String() +
		"&" + KeyFrom + "=" + strconv.Itoa(p.From) +
		"&" + KeySize + "=" + strconv.Itoa(p.Size)
}

// DecodePageParams parses an encoded page-param string. Each missing or
// malformed field takes its value from defaults; ok is false when no field
// could be read at all.
func DecodePageParams(s string, defaults PageParams) (p PageParams, ok bool) {
	p = defaults
	for _, token := range strings.Split(s, "&") {
		key, value, found := strings.Cut(token, "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case KeySort:
			if d, valid := ParseSortDirection(value); valid {
				p.Sort = d
				ok = true
			}
		case KeyFrom:
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				p.From = n
				ok = true
			}
		case KeySize:
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				p.Size = n
				ok = true
			}
		}
	}
	return p, ok
}
