package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordCacheLookup("screening", "hit")
	m.RecordCacheLookup("screening", "hit")
	m.RecordUpstreamOutcome("confirmation", "found", 120*time.Millisecond)
	m.ObserveResolve("2", true, time.Second)
	m.AddSweepDeleted("tasks", 0)
	m.AddSweepDeleted("tasks", 3)

	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheLookups.WithLabelValues("screening", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UpstreamOutcomes.WithLabelValues("confirmation", "found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ResolveResults.WithLabelValues("2", "true")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.SweepDeleted.WithLabelValues("tasks")), 0)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCacheLookup("screening", "miss")
		m.RecordUpstreamOutcome("screening", "transient", time.Millisecond)
		m.IncrementSolveMiss()
		m.ObserveResolve("0", false, time.Millisecond)
		m.RecordAutoSearch("created")
		m.RecordNotification("log", "sent")
		m.AddSweepDeleted("cache", 1)
		m.RecordBreakerState("screening", "open")
		m.RecordRejected("quota")
	})
}
