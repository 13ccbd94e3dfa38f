// Package metrics holds the client-side Prometheus collectors. All methods are safe on a
// nil *Metrics, which records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for status changes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeBlocked  = "blocked"
	OutcomeBusy     = "busy"
	OutcomeFailed   = "failed"
)

// Metrics is the set of client collectors.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	refreshTotal   *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec
	pollsTotal     *prometheus.CounterVec
	activeTimers   prometheus.Gauge
	cacheLookups   *prometheus.CounterVec
}

// New registers the collectors on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Backend API requests by method and status code.",
			},
			[]string{"method", "code"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Backend API request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refresh_total",
				Help:      "Access token refresh attempts by result.",
			},
			[]string{"result"},
		),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_changes_total",
				Help:      "Ticket status change requests by transition and outcome.",
			},
			[]string{"from", "to", "outcome"},
		),
		pollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polls_total",
				Help:      "Periodic polls by monitor and result.",
			},
			[]string{"monitor", "result"},
		),
		activeTimers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_timers",
				Help:      "Open views currently displaying a running work timer.",
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticket_cache_lookups_total",
				Help:      "Ticket cache lookups by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.refreshTotal, m.statusChanges,
		m.pollsTotal, m.activeTimers, m.cacheLookups)
	return m
}

// ObserveRequest records one completed request. code 0 means no response was received.
func (m *Metrics) ObserveRequest(method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(code)
	if code == 0 {
		label = "network_error"
	}
	m.requestsTotal.WithLabelValues(method, label).Inc()
	m.requestLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// TokenRefresh records a refresh attempt.
func (m *Metrics) TokenRefresh(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.refreshTotal.WithLabelValues(result).Inc()
}

// StatusChange records a requested transition and what became of it.
func (m *Metrics) StatusChange(from, to, outcome string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(from, to, outcome).Inc()
}

// Poll records one run of a monitor.
func (m *Metrics) Poll(monitor string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.pollsTotal.WithLabelValues(monitor, result).Inc()
}

// TimerShown adjusts the running timer gauge.
func (m *Metrics) TimerShown(shown bool) {
	if m == nil {
		return
	}
	if shown {
		m.activeTimers.Inc()
	} else {
		m.activeTimers.Dec()
	}
}

// CacheLookup records a ticket cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
