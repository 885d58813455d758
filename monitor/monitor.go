// Package monitor aggregates counts, timings and recent errors across
// all sessions and computes a health classification. All mutation flows
// through one mutex-serialized path so concurrent sessions never lose
// updates; snapshot reads copy under the same lock and therefore never
// observe a half-applied update.
//
// The monitor is an explicit dependency handed to the engine and tool
// executor rather than process-global state, so tests can instantiate
// isolated instances.
package monitor

import (
	"sync"
	"time"

	"github.com/chronicler-ai/chronicler/core"
)

// HealthStatus is the coarse health classification.
type HealthStatus string

const (
	// Healthy: success rate >= 90% and fewer than 3 recent errors.
	Healthy HealthStatus = "healthy"
	// Degraded: success rate >= 70% and fewer than 5 recent errors.
	Degraded HealthStatus = "degraded"
	// Unhealthy: everything else.
	Unhealthy HealthStatus = "unhealthy"
)

const (
	// recentErrorCap bounds the retained error messages.
	recentErrorCap = 50
	// recentWindow is the trailing session count used for the
	// recent-error health signal.
	recentWindow = 10
)

// Outcome describes one finished session for recording.
type Outcome struct {
	SessionID string
	Status    core.Status
	Error     *core.ErrorInfo
	Duration  time.Duration
	ToolCalls int
}

// RecentError is one entry of the bounded error history.
type RecentError struct {
	SessionID string         `json:"session_id"`
	Code      core.ErrorCode `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

// Snapshot is an atomic copy of the accumulated statistics.
type Snapshot struct {
	TotalSessions              int            `json:"total_sessions"`
	SuccessfulSessions         int            `json:"successful_sessions"`
	FailedSessions             int            `json:"failed_sessions"`
	TotalToolCalls             int            `json:"total_tool_calls"`
	AverageToolCallsPerSession float64        `json:"average_tool_calls_per_session"`
	AverageResponseTime        float64        `json:"average_session_time"`
	ToolUsage                  map[string]int `json:"tool_usage"`
	RecentErrors               []RecentError  `json:"recent_errors"`
	SuccessRate                float64        `json:"success_rate"`
	RecentErrorCount           int            `json:"recent_error_count"`
	Health                     HealthStatus   `json:"health"`
}

// Monitor is the single-writer statistics aggregator.
type Monitor struct {
	mu sync.Mutex

	totalSessions      int
	successfulSessions int
	failedSessions     int
	totalToolCalls     int
	totalDuration      time.Duration

	toolUsage    map[string]int
	recentErrors []RecentError

	// recentOutcomes is a fixed ring of the last recentWindow session
	// results; true means the session failed.
	recentOutcomes [recentWindow]bool
	recentCount    int
	recentNext     int

	metrics *metrics
}

// Options configure a Monitor.
type Options struct {
	// Metrics, when non-nil, receives prometheus registration.
	Metrics *MetricsOptions
}

// New constructs an empty Monitor.
func New(optFns ...func(o *Options)) *Monitor {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	m := &Monitor{toolUsage: make(map[string]int)}
	if opts.Metrics != nil {
		m.metrics = newMetrics(opts.Metrics)
	}
	return m
}

// RecordSession folds a finished session into the statistics.
func (m *Monitor) RecordSession(o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalSessions++
	failed := o.Status != core.StatusSucceeded
	if failed {
		m.failedSessions++
	} else {
		m.successfulSessions++
	}
	m.totalToolCalls += o.ToolCalls
	m.totalDuration += o.Duration

	if o.Error != nil {
		m.recentErrors = append(m.recentErrors, RecentError{
			SessionID: o.SessionID,
			Code:      o.Error.Code,
			Message:   o.Error.Message,
			Timestamp: time.Now().UTC(),
		})
		if len(m.recentErrors) > recentErrorCap {
			m.recentErrors = m.recentErrors[len(m.recentErrors)-recentErrorCap:]
		}
	}

	m.recentOutcomes[m.recentNext] = failed
	m.recentNext = (m.recentNext + 1) % recentWindow
	if m.recentCount < recentWindow {
		m.recentCount++
	}

	if m.metrics != nil {
		m.metrics.observeSession(string(o.Status), o.Duration)
	}
}

// RecordToolCall folds one tool invocation into the statistics.
// Implements tool.UsageRecorder.
func (m *Monitor) RecordToolCall(name string, duration time.Duration, success bool) {
	m.mu.Lock()
	if success {
		m.toolUsage[name]++
	} else {
		m.toolUsage[name+"_error"]++
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.observeToolCall(name, duration, success)
	}
}

// Snapshot returns an atomic copy of the statistics including the
// derived health classification.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		TotalSessions:      m.totalSessions,
		SuccessfulSessions: m.successfulSessions,
		FailedSessions:     m.failedSessions,
		TotalToolCalls:     m.totalToolCalls,
		ToolUsage:          make(map[string]int, len(m.toolUsage)),
		RecentErrors:       make([]RecentError, len(m.recentErrors)),
	}
	for k, v := range m.toolUsage {
		snap.ToolUsage[k] = v
	}
	copy(snap.RecentErrors, m.recentErrors)

	if m.totalSessions > 0 {
		snap.SuccessRate = float64(m.successfulSessions) / float64(m.totalSessions)
		snap.AverageResponseTime = m.totalDuration.Seconds() / float64(m.totalSessions)
		snap.AverageToolCallsPerSession = float64(m.totalToolCalls) / float64(m.totalSessions)
	} else {
		snap.SuccessRate = 1.0
	}

	for i := 0; i < m.recentCount; i++ {
		if m.recentOutcomes[i] {
			snap.RecentErrorCount++
		}
	}
	snap.Health = ComputeHealth(snap.SuccessRate, snap.RecentErrorCount)
	return snap
}

// ComputeHealth is the deterministic classification of the accumulated
// statistics. Exposed as a pure function so the thresholds are directly
// testable.
func ComputeHealth(successRate float64, recentErrors int) HealthStatus {
	switch {
	case successRate >= 0.90 && recentErrors < 3:
		return Healthy
	case successRate >= 0.70 && recentErrors < 5:
		return Degraded
	default:
		return Unhealthy
	}
}
