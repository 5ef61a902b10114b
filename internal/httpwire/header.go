// Package httpwire reads and writes the subset of HTTP/1.1 framing the
// document server speaks: one request per connection, Content-Length bodies
// only, no chunked encoding.
package httpwire

import (
	"sort"
	"strings"
	"unicode"
)

// Header maps canonical header names to their raw values.
// Unlike http.Header there is exactly one value per name; repeated fields are
// folded into a comma-separated list.
type Header map[string]string

// CanonicalName returns the canonical form of a header name:
// the first letter and every letter following a hyphen upper-cased, the rest
// lower-cased ("content-length" -> "Content-Length").
func CanonicalName(name string) string {
	ret := make([]rune, 0, len(name))
	upper := true
	for _, r := range name {
		switch {
		case upper && unicode.IsLetter(r):
			ret = append(ret, unicode.ToUpper(r))
			upper = false
		case unicode.IsLetter(r):
			ret = append(ret, unicode.ToLower(r))
		default:
			ret = append(ret, r)
		}
		if r == '-' {
			upper = true
		}
	}
	return string(ret)
}

// Get returns the value for name, matched case-insensitively.
func (h Header) Get(name string) string {
	return h[CanonicalName(name)]
}

// Lookup is like Get but reports whether the header was present.
func (h Header) Lookup(name string) (string, bool) {
	v, ok := h[CanonicalName(name)]
	return v, ok
}

// Set replaces the value for name.
func (h Header) Set(name, value string) {
	h[CanonicalName(name)] = value
}

// Add appends value to an existing field, comma-separated. A repeated
// Content-Length therefore no longer parses as a number and is rejected.
func (h Header) Add(name, value string) {
	key := CanonicalName(name)
	if prev, ok := h[key]; ok {
		h[key] = prev + ", " + value
		return
	}
	h[key] = value
}

// Del removes name.
func (h Header) Del(name string) {
	delete(h, CanonicalName(name))
}

// Names returns the header names in sorted order.
func (h Header) Names() []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// parseHeaderLine splits a single field line on its first colon.
func parseHeaderLine(line string) (string, string, error) {
	if line == "" {
		return "", "", malformed("empty header line")
	}
	if line[0] == ' ' || line[0] == '\t' {
		return "", "", malformed("obsolete header line folding")
	}
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", malformed("header line without colon")
	}
	if name == "" || !isToken(name) {
		return "", "", malformed("invalid header name")
	}
	return name, strings.TrimSpace(value), nil
}

// isToken reports whether s consists only of RFC 9110 tchar characters.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
