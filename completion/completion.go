// Package completion abstracts the language-model completion service
// behind a minimal Client interface plus a small transient/permanent
// error taxonomy, so the engine can retry rate limits and timeouts
// without knowing which provider it is talking to.
package completion

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Client is the completion service consumed by the reasoning engine.
// Complete may block; implementations must honor ctx cancellation.
type Client interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)

	// Provider returns a short identifier ("openai", "anthropic", "script")
	// used in logs and metrics.
	Provider() string
}

// ErrorKind classifies completion failures for the retry policy.
type ErrorKind string

const (
	// KindRateLimited marks HTTP 429 style throttling. Retryable.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTimeout marks a per-call deadline hit. Retryable.
	KindTimeout ErrorKind = "timeout"
	// KindInvalidResponse marks an empty or unusable provider response.
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindPermanent marks everything that retrying cannot fix (auth,
	// bad request, provider outage after retries upstream).
	KindPermanent ErrorKind = "permanent"
)

// Error is a classified completion failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion %s error (%s): %s", e.Kind, e.Provider, e.Message)
}

// Retryable reports whether the retry policy may re-attempt the call.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTimeout
}

// NewError constructs a classified completion error.
func NewError(kind ErrorKind, provider, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether err (anywhere in its chain) is a
// retryable completion error.
func IsRetryable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Retryable()
}

// KindOf returns the error kind, or KindPermanent for errors raised
// outside the completion taxonomy.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindPermanent
}

// Call records one Complete invocation on the Script client.
type Call struct {
	Prompt      string
	Temperature float64
}

// Script is a deterministic in-memory Client for tests and examples.
// Responses are consumed in FIFO order; a fallback function serves
// calls once the queue is drained.
type Script struct {
	mu       sync.Mutex
	queue    []scripted
	fallback func(prompt string) (string, error)
	calls    []Call
}

type scripted struct {
	text string
	err  error
}

// NewScript constructs an empty scripted client. Without pushed
// responses or a fallback every call fails with KindInvalidResponse.
func NewScript() *Script { return &Script{} }

// Push enqueues a canned completion.
func (s *Script) Push(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scripted{text: text})
}

// PushError enqueues a failure.
func (s *Script) PushError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, scripted{err: err})
}

// SetFallback installs a handler for calls beyond the scripted queue.
func (s *Script) SetFallback(fn func(prompt string) (string, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = fn
}

// Calls returns a copy of every recorded invocation.
func (s *Script) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]Call, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// Complete implements Client.
func (s *Script) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.calls = append(s.calls, Call{Prompt: prompt, Temperature: temperature})
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return next.text, next.err
	}
	fallback := s.fallback
	s.mu.Unlock()
	if fallback != nil {
		return fallback(prompt)
	}
	return "", NewError(KindInvalidResponse, "script", "no scripted response for prompt")
}

// Provider implements Client.
func (s *Script) Provider() string { return "script" }
