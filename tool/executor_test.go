package tool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	name    string
	success bool
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordToolCall(name string, _ time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{name: name, success: success})
}

func (r *fakeRecorder) last(t *testing.T) recordedCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.calls)
	return r.calls[len(r.calls)-1]
}

func newExecutorWith(t *testing.T, tools ...Tool) (*Executor, *fakeRecorder) {
	t.Helper()
	r, err := NewRegistry(tools...)
	require.NoError(t, err)
	rec := &fakeRecorder{}
	return NewExecutor(r, func(o *ExecutorOptions) {
		o.Recorder = rec
		o.Timeout = 200 * time.Millisecond
	}), rec
}

func TestExecute(t *testing.T) {
	exec, rec := newExecutorWith(t, newEchoTool("echo"))

	result, err := exec.Execute(context.Background(), "echo", map[string]any{"text": "salve"})
	require.NoError(t, err)
	assert.Equal(t, "salve", result["text"])
	assert.Equal(t, recordedCall{name: "echo", success: true}, rec.last(t))
}

func TestExecuteUnknownTool(t *testing.T) {
	exec, rec := newExecutorWith(t, newEchoTool("echo"))

	_, err := exec.Execute(context.Background(), "missing", nil)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidationError, toolErr.Code)
	assert.Equal(t, recordedCall{name: "missing", success: false}, rec.last(t))
}

func TestExecuteArgumentValidation(t *testing.T) {
	exec, _ := newExecutorWith(t, newEchoTool("echo"))

	t.Run("missing required", func(t *testing.T) {
		_, err := exec.Execute(context.Background(), "echo", map[string]any{})
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, CodeValidationError, toolErr.Code)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := exec.Execute(context.Background(), "echo", map[string]any{"text": 7})
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, CodeValidationError, toolErr.Code)
	})
}

func TestExecuteTimeout(t *testing.T) {
	slow := NewFunctionTool("slow", "sleeps", echoSchema(), echoOutputSchema(),
		func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			select {
			case <-time.After(5 * time.Second):
				return map[string]any{"text": "late"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	exec, rec := newExecutorWith(t, slow)

	start := time.Now()
	_, err := exec.Execute(context.Background(), "slow", map[string]any{"text": "x"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeTimeout, toolErr.Code)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, rec.last(t).success)
}

func TestExecutePanicRecovery(t *testing.T) {
	panics := NewFunctionTool("panics", "explodes", echoSchema(), echoOutputSchema(),
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			panic("boom")
		})

	exec, _ := newExecutorWith(t, panics)

	_, err := exec.Execute(context.Background(), "panics", map[string]any{"text": "x"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecutionError, toolErr.Code)
	assert.Contains(t, toolErr.Message, "panic")
}

func TestExecuteOutputMismatch(t *testing.T) {
	lying := NewFunctionTool("lying", "returns the wrong shape", echoSchema(), echoOutputSchema(),
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"unexpected": true}, nil
		})

	exec, _ := newExecutorWith(t, lying)

	_, err := exec.Execute(context.Background(), "lying", map[string]any{"text": "x"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeOutputMismatch, toolErr.Code)
}

func TestExecutePassesThroughToolError(t *testing.T) {
	failing := NewFunctionTool("failing", "fails on purpose", echoSchema(), echoOutputSchema(),
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, NewToolError("failing", "no data", CodeExecutionError)
		})

	exec, _ := newExecutorWith(t, failing)

	_, err := exec.Execute(context.Background(), "failing", map[string]any{"text": "x"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "no data", toolErr.Message)
}

func TestExecuteWrapsPlainError(t *testing.T) {
	failing := NewFunctionTool("failing", "fails plainly", echoSchema(), echoOutputSchema(),
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("plain failure")
		})

	exec, _ := newExecutorWith(t, failing)

	_, err := exec.Execute(context.Background(), "failing", map[string]any{"text": "x"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecutionError, toolErr.Code)
	assert.Contains(t, toolErr.Message, "plain failure")
}

func TestExecuteConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	blocking := NewFunctionTool("blocking", "waits", echoSchema(), echoOutputSchema(),
		func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			select {
			case <-release:
				return map[string]any{"text": "done"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	r, err := NewRegistry(blocking)
	require.NoError(t, err)
	exec := NewExecutor(r, func(o *ExecutorOptions) {
		o.MaxConcurrent = 1
		o.Timeout = 0
	})

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = exec.Execute(context.Background(), "blocking", map[string]any{"text": "a"})
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	// Second call cannot get the slot; its context expires waiting.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = exec.Execute(ctx, "blocking", map[string]any{"text": "b"})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Contains(t, toolErr.Message, "execution slot")

	close(release)
}
