package greetd

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreMetrics holds Prometheus metrics for greeting store operations.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates store metrics registered with the given
// registerer, typically the registry behind the /metrics endpoint.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	factory := promauto.With(reg)

	return &StoreMetrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "greetd",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of greeting store operations",
			},
			[]string{"operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "greetd",
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Greeting store operation duration in seconds",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .05, .1, .5, 1,
				},
			},
			[]string{"operation"},
		),
	}
}

// record counts one operation and its duration.
func (m *StoreMetrics) record(op string, start time.Time, err error) {
	m.operations.WithLabelValues(op, statusOf(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// statusOf maps an operation error to a bounded label value.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// InstrumentStore wraps a store so every operation is counted and timed.
// A nil metrics value returns the store unchanged.
func InstrumentStore(next Store, metrics *StoreMetrics) Store {
	if metrics == nil {
		return next
	}
	return &instrumentedStore{next: next, metrics: metrics}
}

type instrumentedStore struct {
	next    Store
	metrics *StoreMetrics
}

func (s *instrumentedStore) Get(ctx context.Context, lang string) (string, error) {
	start := time.Now()
	greeting, err := s.next.Get(ctx, lang)
	s.metrics.record("get", start, err)
	return greeting, err
}

func (s *instrumentedStore) Set(ctx context.Context, lang, greeting string) error {
	start := time.Now()
	err := s.next.Set(ctx, lang, greeting)
	s.metrics.record("set", start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, lang string) error {
	start := time.Now()
	err := s.next.Delete(ctx, lang)
	s.metrics.record("delete", start, err)
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	s.metrics.record("ping", start, err)
	return err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
