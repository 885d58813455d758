package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	// StatusRunning means a reasoning loop currently owns the session.
	StatusRunning Status = "running"
	// StatusSucceeded means the loop produced a final answer.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the loop terminated on an unrecoverable error.
	StatusFailed Status = "failed"
	// StatusMaxIterations means the loop exhausted its iteration budget
	// without a final answer. Terminal but not treated as an error.
	StatusMaxIterations Status = "max_iterations_exceeded"
)

// FinalAnswerAction is the sentinel action recorded on the step that
// ends a successful session.
const FinalAnswerAction = "final_answer"

// Step is one iteration of the reason-act-observe loop. Steps are
// created only by the engine while it owns the session and are never
// mutated after being appended.
type Step struct {
	Number      int            `json:"number"`
	Thought     string         `json:"thought"`
	Action      string         `json:"action"`
	ActionInput map[string]any `json:"action_input,omitempty"`
	Observation string         `json:"observation"`
	ToolsUsed   []string       `json:"tools_used"`
	Duration    time.Duration  `json:"duration"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Session tracks one query's end-to-end reasoning run. It is safe for
// concurrent access; the steps slice is append-only and step numbers
// are strictly increasing from 1 with no gaps.
type Session struct {
	id    string
	query string

	mu           sync.RWMutex
	steps        []Step
	runStart     int
	status       Status
	answer       string
	answered     bool
	errInfo      *ErrorInfo
	created      time.Time
	lastActivity time.Time
	cancel       bool
}

// NewSession allocates a session for the given query. An empty id gets
// a fresh UUID.
func NewSession(id, query string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Session{
		id:           id,
		query:        query,
		status:       StatusRunning,
		created:      now,
		lastActivity: now,
	}
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Query returns the query text driving the current run.
func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// BeginRun prepares the session for a (re)run with a follow-up query.
// Prior steps are retained as reasoning context; the outcome fields are
// reset and the new run's steps are counted from here. The caller
// (session.Manager) guarantees exclusivity.
func (s *Session) BeginRun(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.runStart = len(s.steps)
	s.status = StatusRunning
	s.answer = ""
	s.answered = false
	s.errInfo = nil
	s.cancel = false
	s.lastActivity = time.Now().UTC()
}

// AppendStep records the next step. The step number must continue the
// strictly increasing sequence; a gap or repeat is a programming error.
func (s *Session) AppendStep(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if want := len(s.steps) + 1; step.Number != want {
		return fmt.Errorf("step number %d out of sequence, want %d", step.Number, want)
	}
	s.steps = append(s.steps, step)
	s.lastActivity = time.Now().UTC()
	return nil
}

// NextStepNumber returns the number the next appended step must carry.
func (s *Session) NextStepNumber() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps) + 1
}

// Steps returns a defensive copy of the step history.
func (s *Session) Steps() []Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	steps := make([]Step, len(s.steps))
	copy(steps, s.steps)
	return steps
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Finish records the terminal outcome of a run. A non-empty answer is
// recorded even for max-iterations outcomes (partial synthesis).
func (s *Session) Finish(status Status, answer string, errInfo *ErrorInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if answer != "" {
		s.answer = answer
		s.answered = true
	}
	s.errInfo = errInfo
	s.lastActivity = time.Now().UTC()
}

// Answer returns the final (or partial) answer and whether one exists.
func (s *Session) Answer() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answer, s.answered
}

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now().UTC()
}

// LastActivity returns the timestamp of the most recent state change.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.created }

// RequestCancel sets the cooperative cancellation flag. The engine
// checks it at step boundaries; in-flight completion and tool calls are
// allowed to finish naturally.
func (s *Session) RequestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = true
}

// CancelRequested reports whether cooperative cancellation was asked for.
func (s *Session) CancelRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel
}

// ToolCallCount returns the total number of tool invocations recorded
// across all steps.
func (s *Session) ToolCallCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, st := range s.steps {
		n += len(st.ToolsUsed)
	}
	return n
}

// Snapshot returns an atomic, read-only view of the session.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := SessionSnapshot{
		ID:             s.id,
		Query:          s.query,
		Status:         s.status,
		CreatedAt:      s.created,
		LastActivityAt: s.lastActivity,
		Steps:          make([]Step, len(s.steps)),
		RunStart:       s.runStart,
	}
	copy(snap.Steps, s.steps)
	if s.answered {
		answer := s.answer
		snap.Answer = &answer
	}
	if s.errInfo != nil {
		e := *s.errInfo
		snap.Error = &e
	}
	return snap
}

// SessionSnapshot is a point-in-time copy of a session safe for
// serialization and concurrent reads. RunStart indexes the first step
// of the current (or latest) run within Steps.
type SessionSnapshot struct {
	ID             string     `json:"id"`
	Query          string     `json:"query"`
	Steps          []Step     `json:"steps"`
	RunStart       int        `json:"-"`
	Status         Status     `json:"status"`
	Answer         *string    `json:"answer"`
	Error          *ErrorInfo `json:"error"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// SessionSummary is the compact listing shape returned by list_sessions.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Query        string    `json:"query"`
	Success      bool      `json:"success"`
	ToolCalls    int       `json:"tool_calls"`
	SessionStart time.Time `json:"session_start"`
	LastActivity time.Time `json:"last_activity"`
}

// Summary condenses the session for listings, truncating long queries.
func (s *Session) Summary() SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := s.query
	if len(query) > 100 {
		query = query[:100] + "..."
	}
	toolCalls := 0
	for _, st := range s.steps {
		toolCalls += len(st.ToolsUsed)
	}
	return SessionSummary{
		SessionID:    s.id,
		Query:        query,
		Success:      s.status == StatusSucceeded,
		ToolCalls:    toolCalls,
		SessionStart: s.created,
		LastActivity: s.lastActivity,
	}
}
