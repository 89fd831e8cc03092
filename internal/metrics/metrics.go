// Package metrics exposes Prometheus instrumentation for optimization runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/bitclimb/internal/optimization"
)

const namespace = "bitclimb"

// Metrics holds the collectors recorded by the server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Searches    *prometheus.CounterVec
	Evaluations prometheus.Counter
	Moves       prometheus.Histogram
	Duration    prometheus.Histogram
	ActiveJobs  prometheus.Gauge
	Throttled   prometheus.Counter
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them on promhttp.Handler().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed hill-climb searches by outcome.",
		}, []string{"outcome"}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objective_evaluations_total",
			Help:      "Objective function evaluations performed by searches.",
		}),
		Moves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "accepted_moves",
			Help:      "Accepted bit-flip moves per search.",
			Buckets:   prometheus.LinearBuckets(0, 4, 10),
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall-clock time of optimization jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		ActiveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Optimization jobs currently running.",
		}),
		Throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_requests_total",
			Help:      "Optimization starts rejected by the rate limiter.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Searches, m.Evaluations, m.Moves, m.Duration, m.ActiveJobs, m.Throttled)
	}
	return m
}

// Outcome labels for Searches.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// ObserveSearch records one finished search.
func (m *Metrics) ObserveSearch(res *optimization.OptimizationResult, outcome string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	if res != nil {
		m.Evaluations.Add(float64(res.Evaluations))
		m.Moves.Observe(float64(res.Moves))
	}
}

// JobStarted marks a job as running and returns a func that ends it.
func (m *Metrics) JobStarted() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.ActiveJobs.Inc()
	return func() {
		m.ActiveJobs.Dec()
		m.Duration.Observe(time.Since(start).Seconds())
	}
}

// ObserveThrottled counts a rejected start.
func (m *Metrics) ObserveThrottled() {
	if m == nil {
		return
	}
	m.Throttled.Inc()
}
