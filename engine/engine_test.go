package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicler-ai/chronicler/completion"
	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/stream"
	"github.com/chronicler-ai/chronicler/tool"
	"github.com/chronicler-ai/chronicler/tools/calculator"
)

func newTestEngine(t *testing.T, client completion.Client, optFns ...func(o *Options)) *Engine {
	t.Helper()
	registry, err := tool.NewRegistry(calculator.New())
	require.NoError(t, err)
	executor := tool.NewExecutor(registry)
	optFns = append(optFns, func(o *Options) {
		o.RetryBaseDelay = time.Millisecond
	})
	return New(client, registry, executor, optFns...)
}

func discardStream() *stream.Stream {
	st := stream.New()
	st.Cancel()
	return st
}

func TestRunCalculatorQuery(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: I need to compute 25% of 1847.\n" +
		"Action: calculator\n" +
		"Action Input: {\"expression\": \"0.25 * 1847\"}")
	script.Push("Thought: The calculation returned 461.75.\n" +
		"Final Answer: 25% of 1847 is 461.75.")

	eng := newTestEngine(t, script)
	sess := core.NewSession("", "What is 25% of 1847?")

	st := stream.New()
	done := make(chan *core.QueryResult, 1)
	go func() { done <- eng.Run(context.Background(), sess, st) }()
	events := stream.Drain(st)
	result := <-done

	assert.True(t, result.Success)
	require.NotNil(t, result.Answer)
	assert.Contains(t, *result.Answer, "461.75")
	assert.Equal(t, 2, result.ReasoningSteps)
	assert.Equal(t, 1, result.ToolCalls)
	assert.Equal(t, core.StatusSucceeded, sess.Status())

	// The observation fed back to the model carries the tool result.
	secondPrompt := script.Calls()[1].Prompt
	assert.Contains(t, secondPrompt, "461.75")

	// Stream contract: session_start first, one terminal event last,
	// sequences gap-free from 1.
	require.NotEmpty(t, events)
	assert.Equal(t, core.EventSessionStart, events[0].Type)
	assert.Equal(t, core.EventSessionComplete, events[len(events)-1].Type)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Sequence)
		if i < len(events)-1 {
			assert.False(t, ev.IsTerminal())
		}
	}
}

func TestRunMaxIterations(t *testing.T) {
	script := completion.NewScript()
	// Two iterations of tool use, never a final answer.
	for i := 0; i < 2; i++ {
		script.Push("Thought: still working.\n" +
			"Action: calculator\n" +
			"Action Input: {\"expression\": \"1 + 1\"}")
	}
	script.Push("Based on the calculations so far, the value is 2.")

	eng := newTestEngine(t, script, func(o *Options) {
		o.MaxIterations = 2
	})
	sess := core.NewSession("", "loop forever")

	result := eng.Run(context.Background(), sess, discardStream())

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, core.CodeMaxIterations, result.Error.Code)
	assert.Equal(t, 2, result.ReasoningSteps)
	assert.Equal(t, core.StatusMaxIterations, sess.Status())

	// The synthesis attempt still yields a partial answer.
	require.NotNil(t, result.Answer)
	assert.Contains(t, *result.Answer, "2")
	assert.Len(t, script.Calls(), 3)
}

func TestRunToolFailureIsRecoverable(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: try a bad expression.\n" +
		"Action: calculator\n" +
		"Action Input: {\"expression\": \"1 / 0\"}")
	script.Push("Thought: that failed, answer directly.\n" +
		"Final Answer: cannot divide by zero.")

	eng := newTestEngine(t, script)
	sess := core.NewSession("", "divide by zero")

	result := eng.Run(context.Background(), sess, discardStream())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ReasoningSteps)
	// The failure surfaced to the model as an error observation.
	assert.Contains(t, result.DetailedReasoning[0].Observation, "Error")
	assert.Contains(t, script.Calls()[1].Prompt, "division by zero")
}

func TestRunConsecutiveToolFailuresAbort(t *testing.T) {
	script := completion.NewScript()
	for i := 0; i < 3; i++ {
		script.Push("Thought: try again.\n" +
			"Action: calculator\n" +
			"Action Input: {\"expression\": \"1 / 0\"}")
	}

	eng := newTestEngine(t, script, func(o *Options) {
		o.ToolFailureLimit = 2
	})
	sess := core.NewSession("", "stubborn")

	st := stream.New()
	done := make(chan *core.QueryResult, 1)
	go func() { done <- eng.Run(context.Background(), sess, st) }()
	events := stream.Drain(st)
	result := <-done

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, core.CodeToolFailureExceeded, result.Error.Code)
	assert.Equal(t, core.StatusFailed, sess.Status())
	assert.Equal(t, core.EventSessionError, events[len(events)-1].Type)
}

func TestRunUnknownToolObservation(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: use a tool that does not exist.\n" +
		"Action: time_machine\n" +
		"Action Input: {\"year\": 216}")
	script.Push("Thought: no such tool, answer directly.\n" +
		"Final Answer: done.")

	eng := newTestEngine(t, script)
	result := eng.Run(context.Background(), core.NewSession("", "q"), discardStream())

	assert.True(t, result.Success)
	assert.Contains(t, result.DetailedReasoning[0].Observation, "unknown tool")
}

func TestRunCorrectiveReprompt(t *testing.T) {
	t.Run("recovers after one re-prompt", func(t *testing.T) {
		script := completion.NewScript()
		script.Push("I forgot the format entirely.")
		script.Push("Thought: now properly formatted.\n" +
			"Final Answer: fixed.")

		eng := newTestEngine(t, script)
		result := eng.Run(context.Background(), core.NewSession("", "q"), discardStream())

		assert.True(t, result.Success)
		assert.Equal(t, 1, result.ReasoningSteps)
		calls := script.Calls()
		require.Len(t, calls, 2)
		assert.Contains(t, calls[1].Prompt, "rejected")
	})

	t.Run("second malformed response consumes the iteration", func(t *testing.T) {
		script := completion.NewScript()
		script.Push("garbage one")
		script.Push("garbage two")
		script.Push("Thought: recovered on the next iteration.\n" +
			"Final Answer: fixed after rejection.")

		eng := newTestEngine(t, script)
		sess := core.NewSession("", "q")
		result := eng.Run(context.Background(), sess, discardStream())

		// The session survives: step 1 records the rejection, step 2
		// answers.
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.ReasoningSteps)
		assert.Contains(t, result.DetailedReasoning[0].Observation, "rejected")

		// The rejection observation feeds the next iteration's prompt.
		calls := script.Calls()
		require.Len(t, calls, 3)
		assert.Contains(t, calls[2].Prompt, "rejected")
	})

	t.Run("persistent malformed output exhausts iterations", func(t *testing.T) {
		script := completion.NewScript()
		for i := 0; i < 4; i++ {
			script.Push("never the right format")
		}
		script.Push("Nothing could be determined.")

		eng := newTestEngine(t, script, func(o *Options) {
			o.MaxIterations = 2
		})
		sess := core.NewSession("", "q")
		result := eng.Run(context.Background(), sess, discardStream())

		assert.False(t, result.Success)
		require.NotNil(t, result.Error)
		assert.Equal(t, core.CodeMaxIterations, result.Error.Code)
		assert.Equal(t, 2, result.ReasoningSteps)
		assert.Equal(t, core.StatusMaxIterations, sess.Status())
	})
}

func TestRunCompletionRetry(t *testing.T) {
	t.Run("retries rate limits", func(t *testing.T) {
		script := completion.NewScript()
		script.PushError(completion.NewError(completion.KindRateLimited, "script", "slow down"))
		script.Push("Thought: recovered.\nFinal Answer: ok.")

		eng := newTestEngine(t, script)
		result := eng.Run(context.Background(), core.NewSession("", "q"), discardStream())

		assert.True(t, result.Success)
		assert.Len(t, script.Calls(), 2)
	})

	t.Run("exhausted retries map to rate_limited", func(t *testing.T) {
		script := completion.NewScript()
		for i := 0; i < 3; i++ {
			script.PushError(completion.NewError(completion.KindRateLimited, "script", "slow down"))
		}

		eng := newTestEngine(t, script)
		result := eng.Run(context.Background(), core.NewSession("", "q"), discardStream())

		assert.False(t, result.Success)
		require.NotNil(t, result.Error)
		assert.Equal(t, core.CodeRateLimited, result.Error.Code)
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		script := completion.NewScript()
		script.PushError(completion.NewError(completion.KindPermanent, "script", "bad auth"))

		eng := newTestEngine(t, script)
		result := eng.Run(context.Background(), core.NewSession("", "q"), discardStream())

		assert.False(t, result.Success)
		require.NotNil(t, result.Error)
		assert.Equal(t, core.CodeCompletionFailed, result.Error.Code)
		assert.Len(t, script.Calls(), 1)
	})
}

func TestRunCancelRequested(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: never reached.\nFinal Answer: nope.")

	eng := newTestEngine(t, script)
	sess := core.NewSession("", "q")
	sess.RequestCancel()

	result := eng.Run(context.Background(), sess, discardStream())

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, core.CodeCancelled, result.Error.Code)
	assert.Empty(t, script.Calls())
}

func TestPromptContainsToolCatalog(t *testing.T) {
	registry, err := tool.NewRegistry(calculator.New())
	require.NoError(t, err)

	prompts := NewPromptBuilder(registry.Descriptors())
	prompt := prompts.Step("what is 2+2?", nil)

	assert.Contains(t, prompt, "calculator")
	assert.Contains(t, prompt, "expression")
	assert.Contains(t, prompt, "what is 2+2?")
	assert.Contains(t, prompt, "Final Answer:")
}

func TestPromptHistoryRendering(t *testing.T) {
	prompts := NewPromptBuilder(nil)
	steps := []core.Step{
		{
			Number:      1,
			Thought:     "compute it",
			Action:      "calculator",
			ActionInput: map[string]any{"expression": "1 + 1"},
			Observation: "{\"result\":2}",
		},
	}

	prompt := prompts.Step("q", steps)

	assert.Contains(t, prompt, "Thought: compute it")
	assert.Contains(t, prompt, "Action: calculator")
	assert.Contains(t, prompt, "Observation: {\"result\":2}")
}
