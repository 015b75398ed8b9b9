package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for workflow execution and session
// activity. All metrics are namespaced "researchagent".
//
// Metrics exposed:
//   - runs_total (counter): completed runs by outcome (completed, degraded, error)
//   - step_latency_ms (histogram): step duration by step name and status
//   - search_failures_total (counter): tolerated search tool failures
//   - active_sessions (gauge): sessions currently live in the store
//
// A nil *Metrics is valid and records nothing, so metrics stay optional.
type Metrics struct {
	runs           *prometheus.CounterVec
	stepLatency    *prometheus.HistogramVec
	searchFailures prometheus.Counter
	activeSessions prometheus.Gauge
}

// NewMetrics registers all workflow metrics with the given registry. Pass
// prometheus.DefaultRegisterer for the global registry, or a private
// prometheus.NewRegistry() for isolation.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "researchagent",
			Name:      "runs_total",
			Help:      "Completed workflow runs by outcome",
		}, []string{"outcome"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "researchagent",
			Name:      "step_latency_ms",
			Help:      "Workflow step duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"step", "status"}),
		searchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "researchagent",
			Name:      "search_failures_total",
			Help:      "Search tool failures tolerated by the workflow",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "researchagent",
			Name:      "active_sessions",
			Help:      "Sessions currently live in the session store",
		}),
	}
}

func (m *Metrics) recordRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeStep(step, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(step, status).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) recordSearchFailure() {
	if m == nil {
		return
	}
	m.searchFailures.Inc()
}

// SetActiveSessions updates the session gauge. The service layer calls this
// after session stats change.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
