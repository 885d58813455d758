package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the state transitions the engine publishes while a
// session runs.
type EventType string

const (
	// EventSessionStart opens every session's event sequence.
	EventSessionStart EventType = "session_start"
	// EventStepStart marks the beginning of a reasoning iteration.
	EventStepStart EventType = "step_start"
	// EventThinking carries the parsed thought for the current step.
	EventThinking EventType = "thinking"
	// EventExecutingTools signals dispatch of the step's tool call.
	EventExecutingTools EventType = "executing_tools"
	// EventObservation carries the tool result (or failure) text.
	EventObservation EventType = "observation"
	// EventStepComplete closes a reasoning iteration.
	EventStepComplete EventType = "step_complete"
	// EventSessionComplete ends a successful or max-iterations run and
	// carries the full QueryResult payload.
	EventSessionComplete EventType = "session_complete"
	// EventSessionError ends a failed run.
	EventSessionError EventType = "session_error"
)

// Event is one state-transition notification in a session's ordered
// stream. Sequence is assigned by the stream publisher and is strictly
// increasing within a session; no ordering holds across sessions. After
// publication an event is immutable.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Sequence  uint64         `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NewEvent constructs an event bound to a session. The sequence number
// is zero until the stream publisher assigns it.
func NewEvent(eventType EventType, sessionID string, payload map[string]any) Event {
	return Event{
		ID:        NewID(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// IsTerminal reports whether this event type ends a session stream.
func (e Event) IsTerminal() bool {
	return e.Type == EventSessionComplete || e.Type == EventSessionError
}

// NewID generates a unique identifier for events and sessions.
func NewID() string { return uuid.NewString() }
