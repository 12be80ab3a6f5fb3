package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the service exports. All methods
// are safe to call on a nil receiver so components can run without metrics.
type Metrics struct {
	CacheLookups        *prometheus.CounterVec
	UpstreamOutcomes    *prometheus.CounterVec
	UpstreamLatency     *prometheus.HistogramVec
	CaptchaSolveMisses  prometheus.Counter
	ResolveDuration     *prometheus.HistogramVec
	ResolveResults      *prometheus.CounterVec
	AutoSearchTasks     *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	SweepDeleted        *prometheus.CounterVec
	BreakerStateChanges *prometheus.CounterVec
	RequestsRejected    *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_cache_lookups_total",
			Help: "Cache lookups by level and result",
		}, []string{"level", "result"}), // level: "screening", "confirmation"; result: "hit", "miss", "error"

		UpstreamOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_upstream_outcomes_total",
			Help: "Per-candidate upstream lookup outcomes",
		}, []string{"upstream", "outcome"}),

		UpstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iinfinder_upstream_duration_seconds",
			Help:    "Duration of a single upstream exchange",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"upstream"}),

		CaptchaSolveMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "iinfinder_captcha_solve_misses_total",
			Help: "Challenges whose decoded code was shorter than expected",
		}),

		ResolveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iinfinder_resolve_duration_seconds",
			Help:    "Duration of a full resolution run by cache tier",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"tier"}),

		ResolveResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_resolve_results_total",
			Help: "Resolution runs by cache tier and whether anything was found",
		}, []string{"tier", "found"}),

		AutoSearchTasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_autosearch_tasks_total",
			Help: "Auto-search task transitions",
		}, []string{"result"}), // result: "created", "cancelled", "matched", "deferred", "failed", "expired"

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_notifications_total",
			Help: "Owner notifications by driver and result",
		}, []string{"driver", "result"}),

		SweepDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_sweep_deleted_total",
			Help: "Rows deleted by background retention sweeps",
		}, []string{"sweep"}),

		BreakerStateChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_breaker_state_changes_total",
			Help: "Circuit breaker transitions by breaker and target state",
		}, []string{"breaker", "state"}),

		RequestsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iinfinder_requests_rejected_total",
			Help: "Search requests refused before running",
		}, []string{"reason"}), // reason: "denied", "quota"

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "iinfinder_http_request_duration_seconds",
			Help:    "API request latency by route pattern, method and status",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) RecordCacheLookup(level, result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(level, result).Inc()
	}
}

func (m *Metrics) RecordUpstreamOutcome(upstream, outcome string, d time.Duration) {
	if m != nil {
		m.UpstreamOutcomes.WithLabelValues(upstream, outcome).Inc()
		m.UpstreamLatency.WithLabelValues(upstream).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementSolveMiss() {
	if m != nil {
		m.CaptchaSolveMisses.Inc()
	}
}

// ObserveResolve records one resolution run.
func (m *Metrics) ObserveResolve(tier string, found bool, d time.Duration) {
	if m != nil {
		m.ResolveDuration.WithLabelValues(tier).Observe(d.Seconds())
		f := "false"
		if found {
			f = "true"
		}
		m.ResolveResults.WithLabelValues(tier, f).Inc()
	}
}

func (m *Metrics) RecordAutoSearch(result string) {
	if m != nil {
		m.AutoSearchTasks.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RecordNotification(driver, result string) {
	if m != nil {
		m.Notifications.WithLabelValues(driver, result).Inc()
	}
}

func (m *Metrics) AddSweepDeleted(sweep string, n int64) {
	if m != nil && n > 0 {
		m.SweepDeleted.WithLabelValues(sweep).Add(float64(n))
	}
}

func (m *Metrics) RecordBreakerState(breaker, state string) {
	if m != nil {
		m.BreakerStateChanges.WithLabelValues(breaker, state).Inc()
	}
}

func (m *Metrics) RecordRejected(reason string) {
	if m != nil {
		m.RequestsRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
