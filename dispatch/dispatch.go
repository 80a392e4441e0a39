// Package dispatch routes requests to the first handler whose filter
// accepts them. Candidates are tried strictly in registration order, and
// once a filter matches the search stops: the matched handler's outcome is
// final even when it is an error, so a failure never falls through to a
// later route. Requests no candidate accepts fall back to a not-found
// response, or to a fallback chosen by the status of the nearest miss.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Jon-Davis/http-tools/request"
	"github.com/Jon-Davis/http-tools/response"
)

// FilterFunc decides whether a route accepts a request. Implementations
// usually build a request.Chain and return it after applying filters.
type FilterFunc func(*http.Request) request.Chain

// Handler produces the response for a request its route accepted.
type Handler func(ctx context.Context, req *http.Request) (*http.Response, error)

// Sentinel errors reported for misbehaving routes.
var (
	// ErrNilHandler is reported when a matched route has no handler.
	ErrNilHandler = errors.New("dispatch: route has no handler")

	// ErrNoResponse is reported when a handler returns neither a
	// response nor an error.
	ErrNoResponse = errors.New("dispatch: handler returned no response")
)

// Route pairs a filter with the handler to run when it matches.
// A nil Filter accepts every request, which makes catch-all routes easy
// to express.
type Route struct {
	Name    string
	Filter  FilterFunc
	Handler Handler
}

// Outcome is the result of dispatching one request.
//
// Exactly one of three shapes is produced: a response (Response set), a
// terminal handler failure (Err set), or a miss (neither set, Status
// holding the disqualification of the nearest miss among the candidates).
type Outcome struct {
	Response *http.Response
	Err      error
	Status   request.Status
}

// Matched reports whether some route accepted the request.
func (o Outcome) Matched() bool {
	return o.Status == request.StatusPass
}

// Respond converts the outcome into a response: the handler's response,
// an error response built with response.FromError, or 404 Not Found when
// nothing matched.
func (o Outcome) Respond() *http.Response {
	switch {
	case o.Err != nil:
		return response.FromError(o.Err)
	case o.Response != nil:
		return o.Response
	default:
		return response.FromStatus(http.StatusNotFound)
	}
}

// Do runs the route against one request: a miss carries the chain's
// status, a match carries the handler's response or error.
func (rt Route) Do(ctx context.Context, req *http.Request) Outcome {
	chain := filterRoute(rt.Filter, req)
	if !chain.Live() {
		return Outcome{Status: chain.Status()}
	}
	return rt.invoke(ctx, req)
}

// invoke runs the handler of an already matched route.
func (rt Route) invoke(ctx context.Context, req *http.Request) Outcome {
	if rt.Handler == nil {
		return Outcome{Err: fmt.Errorf("route %q: %w", rt.Name, ErrNilHandler)}
	}
	resp, err := rt.Handler(ctx, req)
	if err != nil {
		return Outcome{Err: err}
	}
	if resp == nil {
		return Outcome{Err: fmt.Errorf("route %q: %w", rt.Name, ErrNoResponse)}
	}
	return Outcome{Response: resp}
}

// First dispatches the request to the first route whose filter accepts it.
// Filters after the winning one never run, and neither do their handlers.
// When every route misses, the returned outcome carries the status of the
// nearest miss.
func First(ctx context.Context, req *http.Request, routes ...Route) Outcome {
	miss := request.StatusFailPath
	for _, rt := range routes {
		chain := filterRoute(rt.Filter, req)
		if chain.Live() {
			return rt.invoke(ctx, req)
		}
		miss = closerMiss(miss, chain.Status())
	}
	return Outcome{Status: miss}
}

// filterRoute applies the filter, treating nil as match-all.
func filterRoute(f FilterFunc, req *http.Request) request.Chain {
	if f == nil {
		return request.Filter(req)
	}
	return f(req)
}

// closerMiss keeps the more specific of two miss statuses. A method miss
// outranks everything else, since it means the resource exists. Any other
// failure outranks a path miss. Ties keep the earlier status.
func closerMiss(best, s request.Status) request.Status {
	if missRank(s) > missRank(best) {
		return s
	}
	return best
}

// missRank orders disqualification statuses by how close the request came
// to matching.
func missRank(s request.Status) int {
	switch s {
	case request.StatusFailMethod:
		return 2
	case request.StatusFailPath:
		return 0
	default:
		return 1
	}
}
