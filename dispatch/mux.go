package dispatch

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Jon-Davis/http-tools/observability"
	"github.com/Jon-Davis/http-tools/request"
	"github.com/Jon-Davis/http-tools/response"
)

// Mux dispatches requests across an ordered list of routes and implements
// http.Handler. The zero configuration discards logs, records no metrics,
// and answers unmatched requests with 404 Not Found.
type Mux struct {
	routes   []Route
	logger   observability.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	notFound func(*http.Request, request.Status) *http.Response
	onError  func(*http.Request, error) *http.Response
}

// Option configures a Mux.
type Option func(*Mux)

// WithLogger sets the logger used for dispatch and write failures.
func WithLogger(l observability.Logger) Option {
	return func(m *Mux) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics attaches dispatch metrics.
func WithMetrics(mx *Metrics) Option {
	return func(m *Mux) {
		m.metrics = mx
	}
}

// WithTracer opens a span around every handler invocation.
func WithTracer(t trace.Tracer) Option {
	return func(m *Mux) {
		m.tracer = t
	}
}

// WithNotFound replaces the response for requests no route accepts. The
// status of the nearest miss is passed alongside the request.
func WithNotFound(f func(*http.Request, request.Status) *http.Response) Option {
	return func(m *Mux) {
		if f != nil {
			m.notFound = f
		}
	}
}

// WithErrorResponse replaces the response built when a handler fails.
func WithErrorResponse(f func(*http.Request, error) *http.Response) Option {
	return func(m *Mux) {
		if f != nil {
			m.onError = f
		}
	}
}

// WithStatusFallback answers unmatched requests according to the nearest
// miss: 405 when only the method differed, 404 when no path matched, and
// 400 otherwise.
func WithStatusFallback() Option {
	return WithNotFound(func(_ *http.Request, s request.Status) *http.Response {
		return response.FromStatus(s.HTTPStatus())
	})
}

// NewMux creates a Mux with the given options.
func NewMux(opts ...Option) *Mux {
	m := &Mux{
		logger: observability.NopLogger(),
		notFound: func(*http.Request, request.Status) *http.Response {
			return response.FromStatus(http.StatusNotFound)
		},
		onError: func(_ *http.Request, err error) *http.Response {
			return response.FromError(err)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle appends a route. Routes are tried in the order they were added.
func (m *Mux) Handle(name string, filter FilterFunc, handler Handler) *Mux {
	m.routes = append(m.routes, Route{Name: name, Filter: filter, Handler: handler})
	m.metrics.initRoute(name)
	return m
}

// HandleFunc appends a route whose handler cannot fail.
func (m *Mux) HandleFunc(name string, filter FilterFunc, handler func(*http.Request) *http.Response) *Mux {
	return m.Handle(name, filter, func(_ context.Context, req *http.Request) (*http.Response, error) {
		return handler(req), nil
	})
}

// Dispatch runs the request against the routes and returns the outcome of
// the first match, or a miss outcome when every filter disqualifies.
func (m *Mux) Dispatch(ctx context.Context, req *http.Request) Outcome {
	start := time.Now()
	miss := request.StatusFailPath

	for i := range m.routes {
		rt := &m.routes[i]

		chain := filterRoute(rt.Filter, req)
		if !chain.Live() {
			miss = closerMiss(miss, chain.Status())
			continue
		}

		m.metrics.observeMatch(time.Since(start))
		m.metrics.incRouteMatch(rt.Name)
		m.logger.WithContext(ctx).Debug("route matched",
			observability.String("route", rt.Name),
			observability.String("method", req.Method),
			observability.String("path", req.URL.Path),
		)

		out := m.invoke(ctx, *rt, req)
		if out.Err != nil {
			m.metrics.incOutcome(outcomeError)
			m.logger.WithContext(ctx).Error("handler failed",
				observability.String("route", rt.Name),
				observability.Error(out.Err),
			)
		} else {
			m.metrics.incOutcome(outcomeMatched)
		}
		return out
	}

	m.metrics.observeMatch(time.Since(start))
	m.metrics.incOutcome(outcomeNoMatch)
	m.logger.WithContext(ctx).Debug("no route matched",
		observability.String("method", req.Method),
		observability.String("path", req.URL.Path),
		observability.String("reason", miss.String()),
	)
	return Outcome{Status: miss}
}

// invoke runs the handler of a matched route, wrapped in a span when a
// tracer is configured.
func (m *Mux) invoke(ctx context.Context, rt Route, req *http.Request) Outcome {
	var span trace.Span
	if m.tracer != nil {
		ctx, span = m.tracer.Start(ctx, "dispatch "+rt.Name,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attribute.String("dispatch.route", rt.Name)),
		)
		defer span.End()
	}

	start := time.Now()
	out := rt.invoke(ctx, req)
	m.metrics.observeHandler(rt.Name, time.Since(start))

	if span != nil && out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	}
	return out
}

// ServeHTTP dispatches the request and writes the outcome, applying the
// configured not-found and error fallbacks.
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out := m.Dispatch(r.Context(), r)

	resp := m.respond(r, out)
	if err := response.Write(w, resp); err != nil {
		m.logger.WithContext(r.Context()).Error("write response",
			observability.Error(err),
		)
	}
}

// respond converts an outcome into the response to write.
func (m *Mux) respond(r *http.Request, out Outcome) *http.Response {
	switch {
	case out.Err != nil:
		return m.onError(r, out.Err)
	case out.Response != nil:
		return out.Response
	default:
		return m.notFound(r, out.Status)
	}
}
