package response

import (
	"net/http"

	"github.com/Jon-Davis/http-tools/match"
)

// A Chain carries a borrowed response through a sequence of predicates,
// mirroring the request chain. The first failing predicate disqualifies the
// chain and later predicates are no-ops.
type Chain struct {
	resp *http.Response
	live bool
}

// Filter lifts a response into a live chain. The response must not be nil;
// it is only borrowed and never mutated.
func Filter(resp *http.Response) Chain {
	return Chain{resp: resp, live: true}
}

// Live reports whether every predicate so far has accepted the response.
func (c Chain) Live() bool {
	return c.live
}

// Response returns the underlying response of a live chain. A disqualified
// chain returns (nil, false).
func (c Chain) Response() (*http.Response, bool) {
	if !c.live {
		return nil, false
	}
	return c.resp, true
}

// Status requires the response status code to equal code.
func (c Chain) Status(code int) Chain {
	if c.live && c.resp.StatusCode != code {
		c.live = false
	}
	return c
}

// Informational requires a 1xx status code.
func (c Chain) Informational() Chain {
	return c.statusBetween(100, 199)
}

// Success requires a 2xx status code.
func (c Chain) Success() Chain {
	return c.statusBetween(200, 299)
}

// Redirection requires a 3xx status code.
func (c Chain) Redirection() Chain {
	return c.statusBetween(300, 399)
}

// ClientError requires a 4xx status code.
func (c Chain) ClientError() Chain {
	return c.statusBetween(400, 499)
}

// ServerError requires a 5xx status code.
func (c Chain) ServerError() Chain {
	return c.statusBetween(500, 599)
}

func (c Chain) statusBetween(lo, hi int) Chain {
	if !c.live {
		return c
	}
	if code := c.resp.StatusCode; code < lo || code > hi {
		c.live = false
	}
	return c
}

// Header requires some value of the named header to match the value
// pattern. Header names are looked up case-insensitively and an absent
// header never matches. The name {} matches against the values of every
// header.
func (c Chain) Header(name, pattern string) Chain {
	if !c.live {
		return c
	}
	if name == match.Wildcard {
		for _, values := range c.resp.Header {
			for _, v := range values {
				if match.Value(pattern, v) {
					return c
				}
			}
		}
		c.live = false
		return c
	}
	for _, v := range c.resp.Header.Values(name) {
		if match.Value(pattern, v) {
			return c
		}
	}
	c.live = false
	return c
}

// Custom applies an arbitrary predicate to the response. The predicate is
// not invoked on a disqualified chain.
func (c Chain) Custom(pred func(*http.Response) bool) Chain {
	if !c.live {
		return c
	}
	if !pred(c.resp) {
		c.live = false
	}
	return c
}

// AndThen applies f to the response of a live chain and returns its result.
// The boolean reports whether f ran.
func AndThen[T any](c Chain, f func(*http.Response) T) (T, bool) {
	if !c.live {
		var zero T
		return zero, false
	}
	return f(c.resp), true
}
