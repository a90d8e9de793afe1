// Package matcher implements the request predicates a backend pool is
// selected by: exact host, regex host, and boolean composition of either.
package matcher

import (
	"net/http"
	"regexp"
	"strings"
)

// Matcher decides whether a request belongs to a backend pool.
type Matcher interface {
	Match(r *http.Request) bool
	Equal(other Matcher) bool
}

// Host matches the request's Host header exactly (case-insensitive,
// ignoring any port suffix).
type Host struct {
	Name string
}

func (m Host) Match(r *http.Request) bool {
	return strings.EqualFold(hostOnly(r.Host), m.Name)
}

func (m Host) Equal(other Matcher) bool {
	o, ok := other.(Host)
	return ok && o.Name == m.Name
}

// HostRegex matches the request's Host header (port stripped) against a
// compiled regular expression.
type HostRegex struct {
	Pattern string
	re      *regexp.Regexp
}

func NewHostRegex(pattern string) (*HostRegex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &HostRegex{Pattern: pattern, re: re}, nil
}

func (m *HostRegex) Match(r *http.Request) bool {
	return m.re.MatchString(hostOnly(r.Host))
}

func (m *HostRegex) Equal(other Matcher) bool {
	o, ok := other.(*HostRegex)
	return ok && o.Pattern == m.Pattern
}

// And matches when both inner matchers match.
type And struct {
	A, B Matcher
}

func (m And) Match(r *http.Request) bool { return m.A.Match(r) && m.B.Match(r) }

func (m And) Equal(other Matcher) bool {
	o, ok := other.(And)
	return ok && o.A.Equal(m.A) && o.B.Equal(m.B)
}

// Or matches when either inner matcher matches.
type Or struct {
	A, B Matcher
}

func (m Or) Match(r *http.Request) bool { return m.A.Match(r) || m.B.Match(r) }

func (m Or) Equal(other Matcher) bool {
	o, ok := other.(Or)
	return ok && o.A.Equal(m.A) && o.B.Equal(m.B)
}

// hostOnly strips an optional ":port" suffix from a Host header value.
func hostOnly(host string) string {
	for i := len(host) - 1; i >= 0; i-- {
		switch host[i] {
		case ']':
			return host
		case ':':
			return host[:i]
		}
	}
	return host
}
