// Package prom exports casrdzv events and store latency as Prometheus
// metrics.
//
//	m := prom.New("rdzv")
//	st = m.Store(st)
//	backend, _ := casrdzv.New(ctx, st, runID, casrdzv.Options{Hooks: m})
//	mux.Handle("/metrics", m.Handler())
package prom

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unkn0wn-root/casrdzv"
	"github.com/unkn0wn-root/casrdzv/store"
)

// Metrics implements casrdzv.Hooks and owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	conflicts     prometheus.Counter
	corrupt       prometheus.Counter
	storeErrors   *prometheus.CounterVec
	foreignTokens *prometheus.CounterVec
	hostFallbacks prometheus.Counter

	storeRequests *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	inFlight      *prometheus.GaugeVec
}

var _ casrdzv.Hooks = (*Metrics)(nil)

// New registers every collector under namespace on a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_conflicts_total",
			Help:      "SetState calls that lost the compare-and-set.",
		}),
		corrupt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_corrupt_total",
			Help:      "Stored values that failed to decode.",
		}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed store calls seen by the backend, by op.",
		}, []string{"op"}),
		foreignTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "foreign_tokens_total",
			Help:      "SetState calls with a token from another backend, by backend.",
		}, []string{"backend"}),
		hostFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_fallbacks_total",
			Help:      "Inferred hosts that could not bind and joined as clients.",
		}),
		storeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Store calls by op and outcome.",
		}, []string{"op", "status"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Latency of store calls. Blocking gets include the wait.",
			// 1ms .. ~65s
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 17),
		}, []string{"op"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_in_flight_requests",
			Help:      "Store calls currently running.",
		}, []string{"op"}),
	}
	m.Registry.MustRegister(
		m.conflicts, m.corrupt, m.storeErrors, m.foreignTokens, m.hostFallbacks,
		m.storeRequests, m.storeDuration, m.inFlight,
	)
	return m
}

// Handler exposes the registry. Mount it with mux.Handle("/metrics", m.Handler()).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StateConflict(string)             { m.conflicts.Inc() }
func (m *Metrics) StateCorrupt(string, error)       { m.corrupt.Inc() }
func (m *Metrics) StoreError(op, _ string, _ error) { m.storeErrors.WithLabelValues(op).Inc() }
func (m *Metrics) ForeignToken(_, backend string)   { m.foreignTokens.WithLabelValues(backend).Inc() }
func (m *Metrics) HostFallback(string, error)       { m.hostFallbacks.Inc() }

// Store wraps st so every call is counted and timed.
func (m *Metrics) Store(st store.Store) store.Store { return &instrumented{Store: st, m: m} }

type instrumented struct {
	store.Store
	m *Metrics
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	s.m.storeRequests.WithLabelValues(op, status(err)).Inc()
	s.m.storeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	g := s.m.inFlight.WithLabelValues("get")
	g.Inc()
	defer g.Dec()
	start := time.Now()
	v, err := s.Store.Get(ctx, key)
	s.observe("get", start, err)
	return v, err
}

func (s *instrumented) CompareAndSet(ctx context.Context, key string, expected, desired []byte) ([]byte, error) {
	g := s.m.inFlight.WithLabelValues("compare_set")
	g.Inc()
	defer g.Dec()
	start := time.Now()
	v, err := s.Store.CompareAndSet(ctx, key, expected, desired)
	s.observe("compare_set", start, err)
	return v, err
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) error {
	g := s.m.inFlight.WithLabelValues("set")
	g.Inc()
	defer g.Dec()
	start := time.Now()
	err := s.Store.Set(ctx, key, value)
	s.observe("set", start, err)
	return err
}
