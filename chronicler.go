// Package chronicler assembles the reasoning engine, tool executor,
// session manager, monitor and event streaming into one agent facade.
// The HTTP layer in server/ and the library consumer both talk to the
// Agent type; neither reaches into the subsystems directly.
package chronicler

import (
	"context"
	"time"

	"github.com/chronicler-ai/chronicler/completion"
	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/engine"
	"github.com/chronicler-ai/chronicler/logging"
	"github.com/chronicler-ai/chronicler/monitor"
	"github.com/chronicler-ai/chronicler/session"
	"github.com/chronicler-ai/chronicler/stream"
	"github.com/chronicler-ai/chronicler/tool"
)

// Options configure an Agent.
type Options struct {
	// MaxIterations bounds reasoning steps per run.
	MaxIterations int

	// Temperature for completion calls.
	Temperature float64

	// ToolFailureLimit aborts a run after this many consecutive
	// failures of the same tool.
	ToolFailureLimit int

	// ToolTimeout bounds each tool call.
	ToolTimeout time.Duration

	// MaxConcurrentTools bounds simultaneous tool executions.
	MaxConcurrentTools int64

	// SessionIdleTTL evicts sessions idle longer than this. Zero
	// disables eviction.
	SessionIdleTTL time.Duration

	// StreamBuffer is the per-session event channel capacity.
	StreamBuffer int

	// Metrics enables prometheus collectors when non-nil.
	Metrics *monitor.MetricsOptions

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Agent is the top-level query-answering service.
type Agent struct {
	client   completion.Client
	registry *tool.Registry
	engine   *engine.Engine
	sessions *session.Manager
	monitor  *monitor.Monitor
	logger   logging.Logger
	buffer   int
}

// New wires an Agent from a completion client and a tool registry.
func New(client completion.Client, registry *tool.Registry, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxIterations:      5,
		Temperature:        0.3,
		ToolFailureLimit:   3,
		ToolTimeout:        30 * time.Second,
		MaxConcurrentTools: 16,
		SessionIdleTTL:     30 * time.Minute,
		StreamBuffer:       64,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	mon := monitor.New(func(o *monitor.Options) {
		o.Metrics = opts.Metrics
	})

	executor := tool.NewExecutor(registry, func(o *tool.ExecutorOptions) {
		o.Timeout = opts.ToolTimeout
		o.MaxConcurrent = opts.MaxConcurrentTools
		o.Recorder = mon
		o.Logger = opts.Logger
	})

	eng := engine.New(client, registry, executor, func(o *engine.Options) {
		o.MaxIterations = opts.MaxIterations
		o.Temperature = opts.Temperature
		o.ToolFailureLimit = opts.ToolFailureLimit
		o.Logger = opts.Logger
	})

	sessions := session.NewManager(func(o *session.Options) {
		o.IdleTTL = opts.SessionIdleTTL
		o.Logger = opts.Logger
	})

	return &Agent{
		client:   client,
		registry: registry,
		engine:   eng,
		sessions: sessions,
		monitor:  mon,
		logger:   opts.Logger,
		buffer:   opts.StreamBuffer,
	}
}

// Close releases background resources (the idle-eviction sweeper).
func (a *Agent) Close() {
	a.sessions.Close()
}

// SubmitQuery runs a query to completion and returns the full result.
// An empty sessionID starts a fresh session; a known id continues that
// session with its prior steps as context.
func (a *Agent) SubmitQuery(ctx context.Context, query, sessionID string) (*core.QueryResult, error) {
	sess, err := a.sessions.Acquire(sessionID, query)
	if err != nil {
		return nil, err
	}
	defer a.sessions.Release(sess.ID())

	// Synchronous callers have no event consumer; a canceled stream
	// discards publishes without ever blocking the engine.
	st := stream.New(func(o *stream.Options) {
		o.Buffer = a.buffer
		o.Logger = a.logger
	})
	st.Cancel()

	started := time.Now()
	result := a.engine.Run(ctx, sess, st)
	a.recordOutcome(sess, result, time.Since(started))
	return result, nil
}

// SubmitQueryStream starts a query run and returns the live event
// stream. The run proceeds in the background on a context detached from
// ctx: a consumer going away stops event delivery, never the reasoning
// loop. The stream ends with a single session_complete or session_error
// event. When the consumer stops reading it must call Cancel on the
// stream.
func (a *Agent) SubmitQueryStream(ctx context.Context, query, sessionID string) (*stream.Stream, string, error) {
	sess, err := a.sessions.Acquire(sessionID, query)
	if err != nil {
		return nil, "", err
	}

	st := stream.New(func(o *stream.Options) {
		o.Buffer = a.buffer
		o.Logger = a.logger
	})

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer a.sessions.Release(sess.ID())
		started := time.Now()
		result := a.engine.Run(runCtx, sess, st)
		a.recordOutcome(sess, result, time.Since(started))
	}()

	return st, sess.ID(), nil
}

func (a *Agent) recordOutcome(sess *core.Session, result *core.QueryResult, duration time.Duration) {
	snap := sess.Snapshot()
	a.monitor.RecordSession(monitor.Outcome{
		SessionID: snap.ID,
		Status:    snap.Status,
		Error:     snap.Error,
		Duration:  duration,
		ToolCalls: result.ToolCalls,
	})
}

// GetSession returns the full snapshot for a session id.
func (a *Agent) GetSession(sessionID string) (core.SessionSnapshot, error) {
	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		return core.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

// ListSessions returns summaries of all sessions, most recent first.
func (a *Agent) ListSessions() []core.SessionSummary {
	return a.sessions.List()
}

// ClearSession removes a session. Returns AlreadyInProgress while its
// run is in flight and SessionNotFound for unknown ids.
func (a *Agent) ClearSession(sessionID string) error {
	return a.sessions.Clear(sessionID)
}

// ClearAllSessions removes every idle session and returns the count.
func (a *Agent) ClearAllSessions() int {
	return a.sessions.ClearAll()
}

// CancelSession requests cooperative cancellation of a running session.
func (a *Agent) CancelSession(sessionID string) error {
	return a.sessions.RequestCancel(sessionID)
}

// Monitoring returns the aggregated statistics snapshot.
func (a *Agent) Monitoring() monitor.Snapshot {
	return a.monitor.Snapshot()
}

// HealthReport is the liveness summary exposed by the health endpoint.
type HealthReport struct {
	Status         monitor.HealthStatus `json:"status"`
	Provider       string               `json:"provider"`
	ToolsAvailable int                  `json:"tools_available"`
	ActiveSessions int                  `json:"active_sessions"`
	Timestamp      time.Time            `json:"timestamp"`
}

// Health classifies current service health from the monitoring data.
func (a *Agent) Health() HealthReport {
	snap := a.monitor.Snapshot()
	return HealthReport{
		Status:         snap.Health,
		Provider:       a.client.Provider(),
		ToolsAvailable: a.registry.Len(),
		ActiveSessions: a.sessions.Len(),
		Timestamp:      time.Now().UTC(),
	}
}

// Tools returns the registered tool catalog.
func (a *Agent) Tools() []tool.Descriptor {
	return a.registry.Descriptors()
}
