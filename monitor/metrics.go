package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsOptions configure prometheus registration.
type MetricsOptions struct {
	// Registerer receives the collectors. Defaults to the global
	// prometheus registerer.
	Registerer prometheus.Registerer

	// Namespace prefixes all metric names. Defaults to "chronicler".
	Namespace string
}

// metrics holds the prometheus collectors mirroring the in-memory
// statistics, so operators can scrape what the monitoring endpoint
// reports.
type metrics struct {
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	toolCallsTotal  *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
}

func newMetrics(opts *MetricsOptions) *metrics {
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := opts.Namespace
	if ns == "" {
		ns = "chronicler"
	}
	factory := promauto.With(reg)

	return &metrics{
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sessions_total",
			Help:      "Finished reasoning sessions by terminal status.",
		}, []string{"status"}),
		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of finished sessions.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		toolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of tool invocations by tool name.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"tool"}),
	}
}

func (m *metrics) observeSession(status string, d time.Duration) {
	m.sessionsTotal.WithLabelValues(status).Inc()
	m.sessionDuration.Observe(d.Seconds())
}

func (m *metrics) observeToolCall(tool string, d time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}
