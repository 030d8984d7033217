package sqlite

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// Lookup outcomes recorded in lookup_lookups_total.
const (
	outcomeFound    = "found"
	outcomeMiss     = "miss"
	outcomeNotFound = "not_found"
	outcomeTooMany  = "too_many"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
)

type metrics struct {
	lookups    *prometheus.CounterVec
	statements *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookup",
		Name:      "lookups_total",
		Help:      "Lookups by table, method and outcome.",
	}, []string{"table", "method", "outcome"})
	statements := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lookup",
		Name:      "statement_duration_seconds",
		Help:      "SQL statement latency by notification name.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
	}, []string{"name"})

	return &metrics{
		lookups:    register(reg, lookups),
		statements: register(reg, statements),
	}
}

// register adds c to reg, reusing an identical collector that is already
// registered so several backends can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *metrics) observeStatement(name string, d time.Duration) {
	m.statements.WithLabelValues(name).Observe(d.Seconds())
}

func (m *metrics) observeLookup(table, method string, found bool, err error) {
	m.lookups.WithLabelValues(table, method, outcome(found, err)).Inc()
}

func outcome(found bool, err error) string {
	switch {
	case err == nil && found:
		return outcomeFound
	case err == nil:
		return outcomeMiss
	case errors.Is(err, types.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, types.ErrTooManyResults):
		return outcomeTooMany
	case errors.Is(err, types.ErrInvalidArgument):
		return outcomeInvalid
	default:
		return outcomeError
	}
}
