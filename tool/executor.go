package tool

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/chronicler-ai/chronicler/internal/schema"
	"github.com/chronicler-ai/chronicler/logging"
)

// UsageRecorder receives the outcome of every tool invocation,
// successful or not. monitor.Monitor satisfies it.
type UsageRecorder interface {
	RecordToolCall(name string, duration time.Duration, success bool)
}

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	// Timeout bounds each tool call. Zero means no per-call deadline.
	Timeout time.Duration

	// MaxConcurrent bounds simultaneous tool executions across all
	// sessions so external dependencies are not overwhelmed.
	MaxConcurrent int64

	// Recorder receives per-call outcomes. Nil disables recording.
	Recorder UsageRecorder

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Executor invokes registered tools with validated arguments. Every
// failure path (unknown name, bad args, panic, timeout, schema-breaking
// result) is wrapped as *ToolError so callers can fold it into an
// observation instead of crashing the session.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	sem      *semaphore.Weighted
	recorder UsageRecorder
	logger   logging.Logger
}

// NewExecutor constructs an Executor bound to a registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Timeout:       30 * time.Second,
		MaxConcurrent: 16,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	e := &Executor{
		registry: registry,
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if opts.MaxConcurrent > 0 {
		e.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}
	return e
}

// Execute runs the named tool. The returned error, when non-nil, is
// always a *ToolError.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	t, ok := e.registry.Get(name)
	if !ok {
		e.record(name, 0, false)
		return nil, NewToolError(name, fmt.Sprintf("unknown tool %q", name), CodeValidationError)
	}

	if err := schema.Validate(args, t.InputSchema()); err != nil {
		e.logger.Warn("tool argument validation failed", "tool", name, "error", err)
		e.record(name, 0, false)
		return nil, &ToolError{
			Tool:    name,
			Message: fmt.Sprintf("argument validation failed: %v", err),
			Code:    CodeValidationError,
			Details: err,
		}
	}

	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			e.record(name, 0, false)
			return nil, NewToolError(name, fmt.Sprintf("cancelled waiting for execution slot: %v", err), CodeExecutionError)
		}
		defer e.sem.Release(1)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if e.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.invoke(callCtx, t, args)
	dur := time.Since(start)

	if err != nil {
		e.record(name, dur, false)
		e.logger.Warn("tool execution failed", "tool", name, "duration_ms", dur.Milliseconds(), "error", err)
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, NewToolError(name, fmt.Sprintf("timed out after %s", e.timeout), CodeTimeout)
		}
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, NewToolError(name, err.Error(), CodeExecutionError)
	}

	if err := schema.Validate(result, t.OutputSchema()); err != nil {
		e.record(name, dur, false)
		return nil, &ToolError{
			Tool:    name,
			Message: fmt.Sprintf("result violates output schema: %v", err),
			Code:    CodeOutputMismatch,
			Details: err,
		}
	}

	e.record(name, dur, true)
	e.logger.Debug("tool executed", "tool", name, "duration_ms", dur.Milliseconds())
	return result, nil
}

// invoke runs the tool call in its own goroutine so a timeout can be
// observed even when the tool ignores ctx, and recovers panics.
func (e *Executor) invoke(ctx context.Context, t Tool, args map[string]any) (map[string]any, error) {
	type outcome struct {
		result map[string]any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		result, err := t.Call(ctx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.result, out.err
	}
}

func (e *Executor) record(name string, dur time.Duration, success bool) {
	if e.recorder != nil {
		e.recorder.RecordToolCall(name, dur, success)
	}
}
