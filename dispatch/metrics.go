package dispatch

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for the dispatches counter.
const (
	outcomeMatched = "matched"
	outcomeError   = "error"
	outcomeNoMatch = "no_match"
)

// Metrics holds Prometheus metrics for a Mux. All recording methods are
// safe on a nil receiver, so a Mux without metrics pays nothing.
type Metrics struct {
	dispatches      *prometheus.CounterVec
	routeMatches    *prometheus.CounterVec
	matchDuration   prometheus.Histogram
	handlerDuration *prometheus.HistogramVec
	registry        *prometheus.Registry
}

// NewMetrics creates a Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "httptools"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dispatches_total",
			Help:      "Total number of dispatched requests by outcome",
		},
		[]string{"outcome"},
	)

	m.routeMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "route_matches_total",
			Help:      "Total number of matches per route",
		},
		[]string{"route"},
	)

	m.matchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "match_duration_seconds",
			Help:      "Time spent finding the matching route",
			Buckets: []float64{
				.000001, .00001, .0001, .001,
				.01, .1, 1,
			},
		},
	)

	m.handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time per route",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"route"},
	)

	m.registerCollectors()

	return m
}

// registerCollectors registers all metric collectors with the registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.dispatches,
		m.routeMatches,
		m.matchDuration,
		m.handlerDuration,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)
}

// initRoute pre-populates the per-route vectors so routes appear in the
// metrics output before their first match. Cardinality stays bounded by
// the number of registered routes.
func (m *Metrics) initRoute(route string) {
	if m == nil {
		return
	}
	m.routeMatches.WithLabelValues(route)
	m.handlerDuration.WithLabelValues(route)
}

// incOutcome counts one dispatched request by outcome.
func (m *Metrics) incOutcome(outcome string) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(outcome).Inc()
}

// incRouteMatch counts one match for the route.
func (m *Metrics) incRouteMatch(route string) {
	if m == nil {
		return
	}
	m.routeMatches.WithLabelValues(route).Inc()
}

// observeMatch records the time spent in the filter loop.
func (m *Metrics) observeMatch(d time.Duration) {
	if m == nil {
		return
	}
	m.matchDuration.Observe(d.Seconds())
}

// observeHandler records handler execution time for the route.
func (m *Metrics) observeHandler(route string, d time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCollector registers an additional collector with the registry,
// letting callers expose their own metrics through the same endpoint.
func (m *Metrics) RegisterCollector(c prometheus.Collector) error {
	return m.registry.Register(c)
}

// MustRegisterCollector registers an additional collector, panicking on
// error.
func (m *Metrics) MustRegisterCollector(c prometheus.Collector) {
	m.registry.MustRegister(c)
}
