package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "tickora")

	m.ObserveRequest("GET", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", 200, 30*time.Millisecond)
	m.ObserveRequest("PATCH", 403, time.Millisecond)
	m.ObserveRequest("GET", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("PATCH", "403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "network_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestLatency))
}

func TestStatusChangeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "tickora")

	m.StatusChange("new", "in_progress", OutcomeApplied)
	m.StatusChange("in_progress", "closed", OutcomeBlocked)

	expected := `
# HELP tickora_status_changes_total Ticket status change requests by transition and outcome.
# TYPE tickora_status_changes_total counter
tickora_status_changes_total{from="in_progress",outcome="blocked",to="closed"} 1
tickora_status_changes_total{from="new",outcome="applied",to="in_progress"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tickora_status_changes_total"))
}

func TestPollTimerAndCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "tickora")

	m.Poll("attendance", nil)
	m.Poll("attendance", errors.New("down"))
	m.TimerShown(true)
	m.TimerShown(true)
	m.TimerShown(false)
	m.CacheLookup(true)
	m.TokenRefresh(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pollsTotal.WithLabelValues("attendance", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeTimers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", 200, time.Millisecond)
		m.StatusChange("a", "b", OutcomeApplied)
		m.Poll("leave", nil)
		m.TimerShown(true)
		m.CacheLookup(false)
		m.TokenRefresh(true)
	})
}
