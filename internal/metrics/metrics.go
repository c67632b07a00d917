package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for finished runs
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeFailed       = "failed"
	OutcomeLaunchFailed = "launch_failed"
	OutcomeAborted      = "aborted"
)

// Metrics holds all Prometheus metrics for auditd
type Metrics struct {
	// Run lifecycle metrics
	RunsStarted  *prometheus.CounterVec
	RunsFinished *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	RunsActive   prometheus.Gauge
	LogLines     *prometheus.CounterVec

	// Rejected run requests, by reason (not_found, content_unavailable, conflict)
	RunsRejected *prometheus.CounterVec

	// Auth metrics
	AuthDenied *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		RunsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditd_runs_started_total",
				Help: "Total number of audit runs started",
			},
			[]string{"site"},
		),
		RunsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditd_runs_finished_total",
				Help: "Total number of audit runs finished, by outcome",
			},
			[]string{"site", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditd_run_duration_seconds",
				Help:    "Audit run duration in seconds",
				Buckets: []float64{1.0, 5.0, 15.0, 30.0, 60.0, 120.0, 300.0, 600.0, 1800.0},
			},
			[]string{"site"},
		),
		RunsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "auditd_runs_active",
				Help: "Number of audit runs currently in progress",
			},
		),
		LogLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditd_log_lines_total",
				Help: "Total number of task output lines streamed to clients",
			},
			[]string{"site", "stream"},
		),
		RunsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditd_runs_rejected_total",
				Help: "Total number of audit requests rejected before a run started",
			},
			[]string{"site", "reason"},
		),
		AuthDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditd_auth_denied_total",
				Help: "Total number of requests denied by the auth guard",
			},
			[]string{"method"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditd_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RunStarted records a run that won its site's slot
func (m *Metrics) RunStarted(site string) {
	m.RunsStarted.WithLabelValues(site).Inc()
	m.RunsActive.Inc()
}

// RunFinished records the end of a run started with RunStarted
func (m *Metrics) RunFinished(site, outcome string, d time.Duration) {
	m.RunsFinished.WithLabelValues(site, outcome).Inc()
	m.RunDuration.WithLabelValues(site).Observe(d.Seconds())
	m.RunsActive.Dec()
}
