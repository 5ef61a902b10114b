package server

import "strings"

// Format is a response representation chosen from the Accept header.
type Format int

const (
	FormatHTML Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "html"
}

// PreferredFormat walks the Accept clauses in header order and stops at the
// first one mentioning json, html or */*. Quality values are ignored.
func PreferredFormat(accept string) Format {
	for _, clause := range strings.Split(accept, ",") {
		clause = strings.ToLower(strings.TrimSpace(clause))
		switch {
		case strings.Contains(clause, "json"):
			return FormatJSON
		case strings.Contains(clause, "html"), strings.Contains(clause, "*/*"):
			return FormatHTML
		}
	}
	return FormatHTML
}
