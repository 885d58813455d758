package core

import (
	"errors"
	"fmt"
)

// ErrorCode classifies every failure the engine can surface. The API
// layer maps internal errors to exactly one of these codes; raw internal
// error text never leaves the process for unexpected failures.
type ErrorCode string

const (
	// CodeValidation covers bad requests and tool arguments that do not
	// satisfy the declared input schema.
	CodeValidation ErrorCode = "validation_error"
	// CodeParse marks malformed model output. Recoverable: the engine
	// re-prompts once before counting the iteration as used.
	CodeParse ErrorCode = "parse_error"
	// CodeTool marks a tool execution failure. Recoverable: fed back to
	// the model as the step's observation.
	CodeTool ErrorCode = "tool_error"
	// CodeRateLimited marks a completion provider rate limit. Retried
	// with backoff at the call level before escalating.
	CodeRateLimited ErrorCode = "rate_limited"
	// CodeTimeout marks a per-call timeout (completion or tool).
	CodeTimeout ErrorCode = "timeout"
	// CodeMaxIterations is terminal but not an error: the loop ran out
	// of iterations without a final answer.
	CodeMaxIterations ErrorCode = "max_iterations_exceeded"
	// CodeToolFailureExceeded is the runaway-loop guard: the same tool
	// failed on K consecutive iterations.
	CodeToolFailureExceeded ErrorCode = "tool_failure_exceeded"
	// CodeAlreadyInProgress signals a second request (or clear) for a
	// session whose reasoning loop is still running.
	CodeAlreadyInProgress ErrorCode = "already_in_progress"
	// CodeSessionNotFound signals an unknown session id.
	CodeSessionNotFound ErrorCode = "session_not_found"
	// CodeCancelled marks a run stopped by cooperative cancellation at a
	// step boundary.
	CodeCancelled ErrorCode = "cancelled"
	// CodeCompletionFailed marks a permanent completion provider failure
	// that terminated the session.
	CodeCompletionFailed ErrorCode = "completion_failed"
)

// AgentError is the taxonomy-coded error type shared across components.
type AgentError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAgentError constructs a coded error with a formatted message.
func NewAgentError(code ErrorCode, format string, args ...any) *AgentError {
	return &AgentError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrSessionNotFound builds the canonical unknown-session error.
func ErrSessionNotFound(sessionID string) *AgentError {
	return NewAgentError(CodeSessionNotFound, "session %s not found", sessionID)
}

// ErrAlreadyInProgress builds the canonical busy-session error.
func ErrAlreadyInProgress(sessionID string) *AgentError {
	return NewAgentError(CodeAlreadyInProgress, "session %s is currently processing", sessionID)
}

// CodeOf extracts the taxonomy code from err, unwrapping as needed.
// Unclassified errors map to CodeCompletionFailed's sibling-less default
// of an empty code so callers can substitute their own.
func CodeOf(err error) ErrorCode {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// ErrorInfo is the wire representation of a terminal session error.
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// InfoFromError converts an error into its wire form, defaulting the
// code for errors raised outside the taxonomy.
func InfoFromError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	code := CodeOf(err)
	msg := err.Error()
	if code == "" {
		code = CodeCompletionFailed
	} else {
		var ae *AgentError
		if errors.As(err, &ae) {
			msg = ae.Message
		}
	}
	return &ErrorInfo{Code: code, Message: msg}
}
