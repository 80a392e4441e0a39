package request

import (
	"net/http"
	"strings"

	"github.com/Jon-Davis/http-tools/match"
)

// Status identifies the first predicate that disqualified a chain.
type Status int

// Chain statuses, one per predicate kind.
const (
	// StatusPass marks a chain that every predicate so far has accepted.
	StatusPass Status = iota
	StatusFailHeader
	StatusFailQuery
	StatusFailPath
	StatusFailMethod
	StatusFailScheme
	StatusFailPort
	StatusFailCustom
)

// String returns the predicate kind behind the status.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFailHeader:
		return "header"
	case StatusFailQuery:
		return "query"
	case StatusFailPath:
		return "path"
	case StatusFailMethod:
		return "method"
	case StatusFailScheme:
		return "scheme"
	case StatusFailPort:
		return "port"
	case StatusFailCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the status to the code a router answers with when no
// candidate matched: 404 for a path miss, 405 for a method miss and 400 for
// every other rejection. StatusPass maps to 200.
func (s Status) HTTPStatus() int {
	switch s {
	case StatusPass:
		return http.StatusOK
	case StatusFailPath:
		return http.StatusNotFound
	case StatusFailMethod:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusBadRequest
	}
}

// A Chain carries a borrowed request through a sequence of predicates.
// Chains are small values: each predicate returns a derived chain and the
// original stays usable, so several routes can branch from one common
// prefix. A disqualified chain ignores further predicates.
type Chain struct {
	req     *http.Request
	status  Status
	pattern string
	path    string
}

// Filter lifts a request into a live chain. The request must not be nil; it
// is only borrowed and never mutated.
func Filter(req *http.Request) Chain {
	return Chain{req: req}
}

// Live reports whether every predicate so far has accepted the request.
func (c Chain) Live() bool {
	return c.status == StatusPass
}

// Status returns StatusPass for a live chain, or the kind of the first
// predicate that rejected the request.
func (c Chain) Status() Status {
	return c.status
}

// Request returns the underlying request of a live chain. A disqualified
// chain returns (nil, false).
func (c Chain) Request() (*http.Request, bool) {
	if c.status != StatusPass {
		return nil, false
	}
	return c.req, true
}

// Method requires the request method to equal method byte for byte. Methods
// are case-sensitive, so http.MethodGet does not match "get".
func (c Chain) Method(method string) Chain {
	if c.status != StatusPass {
		return c
	}
	if c.req.Method != method {
		c.status = StatusFailMethod
	}
	return c
}

// Scheme requires the request scheme to equal scheme, ignoring case.
// Requests delivered by a server carry no scheme in their URL; those fall
// back to "https" when the connection had TLS and "http" otherwise.
func (c Chain) Scheme(scheme string) Chain {
	if c.status != StatusPass {
		return c
	}
	got := c.req.URL.Scheme
	if got == "" {
		if c.req.TLS != nil {
			got = "https"
		} else {
			got = "http"
		}
	}
	if !strings.EqualFold(got, scheme) {
		c.status = StatusFailScheme
	}
	return c
}

// Path requires the escaped request path to match the path pattern, segment
// by segment. On success the chain records the pattern so that Var can
// extract wildcard captures.
func (c Chain) Path(pattern string) Chain {
	if c.status != StatusPass {
		return c
	}
	path := rawPath(c.req)
	if !match.Path(pattern, path) {
		c.status = StatusFailPath
		return c
	}
	c.pattern, c.path = pattern, path
	return c
}

// PathPrefix requires the pattern's segments to be a leading subsequence of
// the escaped request path. Prefix matches record no captures.
func (c Chain) PathPrefix(pattern string) Chain {
	if c.status != StatusPass {
		return c
	}
	if !match.PathPrefix(pattern, rawPath(c.req)) {
		c.status = StatusFailPath
	}
	return c
}

// Header requires some value of the named header to match the value
// pattern. Header names are looked up case-insensitively and an absent
// header never matches. The name {} matches against the values of every
// header.
func (c Chain) Header(name, pattern string) Chain {
	if c.status != StatusPass {
		return c
	}
	if name == match.Wildcard {
		for _, vs := range c.req.Header {
			for _, v := range vs {
				if match.Value(pattern, v) {
					return c
				}
			}
		}
		c.status = StatusFailHeader
		return c
	}
	for _, v := range c.req.Header.Values(name) {
		if match.Value(pattern, v) {
			return c
		}
	}
	c.status = StatusFailHeader
	return c
}

// Query requires the raw query to contain a pair whose key equals key byte
// for byte and whose value matches the value pattern. Neither side is
// percent-decoded, so a pattern for an encoded key must be written in its
// encoded form. The key {} matches against the values of every pair.
func (c Chain) Query(key, pattern string) Chain {
	if c.status != StatusPass {
		return c
	}
	it := NewQueryIter(c.req)
	for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
		if key == match.Wildcard || k == key {
			if match.Value(pattern, v) {
				return c
			}
		}
	}
	c.status = StatusFailQuery
	return c
}

// Port requires the request authority to carry an explicit port equal to
// port. An authority without a port never matches, even when the scheme
// implies one.
func (c Chain) Port(port int) Chain {
	if c.status != StatusPass {
		return c
	}
	host := c.req.Host
	if host == "" {
		host = c.req.URL.Host
	}
	if portOf(host) != port {
		c.status = StatusFailPort
	}
	return c
}

// Custom applies an arbitrary predicate to the request. The predicate is
// not invoked on a disqualified chain, so side effects inside it happen
// only while the chain is still live.
func (c Chain) Custom(pred func(*http.Request) bool) Chain {
	if c.status != StatusPass {
		return c
	}
	if !pred(c.req) {
		c.status = StatusFailCustom
	}
	return c
}

// Var returns the capture of the n-th wildcard, counting from 1, of the
// most recent successful Path pattern. It returns ("", false) on a
// disqualified chain, before any Path predicate has run, or when n is out
// of range. The capture is a substring of the request's escaped path.
func (c Chain) Var(n int) (string, bool) {
	if c.status != StatusPass || c.pattern == "" {
		return "", false
	}
	return match.PathVar(c.pattern, c.path, n)
}

// Vars returns every wildcard capture of the most recent successful Path
// pattern in order, or nil when there are none.
func (c Chain) Vars() []string {
	if c.status != StatusPass || c.pattern == "" {
		return nil
	}
	return match.PathVars(c.pattern, c.path)
}

// AndThen applies f to the request of a live chain and returns its result.
// The boolean reports whether f ran; on a disqualified chain f is skipped
// and the zero value is returned.
func AndThen[T any](c Chain, f func(*http.Request) T) (T, bool) {
	if c.status != StatusPass {
		var zero T
		return zero, false
	}
	return f(c.req), true
}

// rawPath returns the path in its wire form. URL.Path has percent escapes
// decoded, which would let an encoded slash act as a separator during
// matching.
func rawPath(req *http.Request) string {
	return req.URL.EscapedPath()
}

// portOf returns the explicit port of a host:port authority, or -1 when the
// authority has none.
func portOf(host string) int {
	i := strings.LastIndexByte(host, ':')
	if i < 0 || i == len(host)-1 || strings.IndexByte(host[i:], ']') >= 0 {
		return -1
	}
	port := 0
	for _, c := range host[i+1:] {
		if c < '0' || c > '9' {
			return -1
		}
		port = port*10 + int(c-'0')
		if port > 65535 {
			return -1
		}
	}
	return port
}
