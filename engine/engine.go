// Package engine implements the reason-act-observe loop: prompt the
// completion model, parse its decision under a strict grammar, execute
// the chosen tool, fold the observation back into the next prompt, and
// repeat until a final answer or the iteration budget runs out.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chronicler-ai/chronicler/completion"
	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/logging"
	"github.com/chronicler-ai/chronicler/stream"
	"github.com/chronicler-ai/chronicler/tool"
)

// Options configure the reasoning loop.
type Options struct {
	// MaxIterations bounds reasoning steps per run.
	MaxIterations int

	// Temperature passed to every completion call.
	Temperature float64

	// ToolFailureLimit is the runaway guard: this many consecutive
	// failures of the same tool abort the run.
	ToolFailureLimit int

	// CompletionAttempts bounds calls per completion, retrying only
	// rate-limit and timeout failures.
	CompletionAttempts int

	// RetryBaseDelay is the first backoff delay; it doubles per retry.
	RetryBaseDelay time.Duration

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Engine drives reasoning runs. It is stateless across runs; all
// per-run state lives in the Session, so one Engine serves every
// session concurrently.
type Engine struct {
	client   completion.Client
	registry *tool.Registry
	executor *tool.Executor
	prompts  *PromptBuilder
	opts     Options
}

// New constructs an Engine over a completion client and a tool set.
func New(client completion.Client, registry *tool.Registry, executor *tool.Executor, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxIterations:      5,
		Temperature:        0.3,
		ToolFailureLimit:   3,
		CompletionAttempts: 3,
		RetryBaseDelay:     500 * time.Millisecond,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}
	if opts.CompletionAttempts < 1 {
		opts.CompletionAttempts = 1
	}
	return &Engine{
		client:   client,
		registry: registry,
		executor: executor,
		prompts:  NewPromptBuilder(registry.Descriptors()),
		opts:     opts,
	}
}

// Run executes one reasoning run over the session, publishing events to
// pub as it goes. The caller holds the session's run exclusivity. The
// returned result mirrors the terminal session_complete/session_error
// payload.
func (e *Engine) Run(ctx context.Context, sess *core.Session, pub stream.Publisher) *core.QueryResult {
	started := time.Now().UTC()
	sessionID := sess.ID()
	query := sess.Query()
	log := e.opts.Logger

	pub.Publish(core.NewEvent(core.EventSessionStart, sessionID, map[string]any{
		"query":          query,
		"max_iterations": e.opts.MaxIterations,
	}))
	log.Info("session run started", "session_id", sessionID, "query", query)

	var failingTool string
	var consecutiveFailures int

	for i := 0; i < e.opts.MaxIterations; i++ {
		if err := e.checkCancel(ctx, sess); err != nil {
			return e.fail(sess, pub, started, err)
		}

		stepNumber := sess.NextStepNumber()
		stepStarted := time.Now().UTC()
		pub.Publish(core.NewEvent(core.EventStepStart, sessionID, map[string]any{
			"step": stepNumber,
		}))

		decision, perr, err := e.decide(ctx, query, sess.Steps())
		if err != nil {
			return e.fail(sess, pub, started, err)
		}
		if perr != nil {
			// Still malformed after the corrective re-prompt: the
			// iteration is charged, the failure becomes the step's
			// observation, and the loop continues.
			observation := fmt.Sprintf("Error: response rejected: %s", perr.Reason)
			step := core.Step{
				Number:      stepNumber,
				Observation: observation,
				ToolsUsed:   []string{},
				Duration:    time.Since(stepStarted),
				Timestamp:   stepStarted,
			}
			if err := sess.AppendStep(step); err != nil {
				return e.fail(sess, pub, started, err)
			}
			pub.Publish(core.NewEvent(core.EventObservation, sessionID, map[string]any{
				"step":        stepNumber,
				"observation": observation,
				"success":     false,
			}))
			pub.Publish(core.NewEvent(core.EventStepComplete, sessionID, map[string]any{
				"step":   stepNumber,
				"action": "",
			}))
			log.Warn("iteration consumed by malformed response", "session_id", sessionID, "step", stepNumber, "reason", perr.Reason)
			continue
		}

		pub.Publish(core.NewEvent(core.EventThinking, sessionID, map[string]any{
			"step":    stepNumber,
			"thought": decision.Thought,
		}))

		if decision.IsFinal {
			step := core.Step{
				Number:      stepNumber,
				Thought:     decision.Thought,
				Action:      core.FinalAnswerAction,
				Observation: "final answer provided",
				ToolsUsed:   []string{},
				Duration:    time.Since(stepStarted),
				Timestamp:   stepStarted,
			}
			if err := sess.AppendStep(step); err != nil {
				return e.fail(sess, pub, started, err)
			}
			pub.Publish(core.NewEvent(core.EventStepComplete, sessionID, map[string]any{
				"step":   stepNumber,
				"action": core.FinalAnswerAction,
			}))
			sess.Finish(core.StatusSucceeded, decision.FinalAnswer, nil)
			return e.complete(sess, pub, started)
		}

		pub.Publish(core.NewEvent(core.EventExecutingTools, sessionID, map[string]any{
			"step":  stepNumber,
			"tool":  decision.Action,
			"input": decision.ActionInput,
		}))

		observation, toolErr := e.observe(ctx, decision.Action, decision.ActionInput)
		if toolErr != nil {
			if decision.Action == failingTool {
				consecutiveFailures++
			} else {
				failingTool = decision.Action
				consecutiveFailures = 1
			}
			if consecutiveFailures >= e.opts.ToolFailureLimit {
				return e.fail(sess, pub, started, core.NewAgentError(core.CodeToolFailureExceeded,
					"tool %s failed %d consecutive times, aborting", decision.Action, consecutiveFailures))
			}
		} else {
			failingTool = ""
			consecutiveFailures = 0
		}

		pub.Publish(core.NewEvent(core.EventObservation, sessionID, map[string]any{
			"step":        stepNumber,
			"tool":        decision.Action,
			"observation": observation,
			"success":     toolErr == nil,
		}))

		step := core.Step{
			Number:      stepNumber,
			Thought:     decision.Thought,
			Action:      decision.Action,
			ActionInput: decision.ActionInput,
			Observation: observation,
			ToolsUsed:   []string{decision.Action},
			Duration:    time.Since(stepStarted),
			Timestamp:   stepStarted,
		}
		if err := sess.AppendStep(step); err != nil {
			return e.fail(sess, pub, started, err)
		}
		pub.Publish(core.NewEvent(core.EventStepComplete, sessionID, map[string]any{
			"step":   stepNumber,
			"action": decision.Action,
		}))
	}

	// Budget exhausted: one best-effort synthesis from the gathered
	// observations, then a non-success terminal result.
	answer := e.synthesize(ctx, query, sess.Steps())
	sess.Finish(core.StatusMaxIterations, answer, &core.ErrorInfo{
		Code:    core.CodeMaxIterations,
		Message: fmt.Sprintf("no final answer after %d iterations", e.opts.MaxIterations),
	})
	log.Warn("iteration budget exhausted", "session_id", sessionID, "max_iterations", e.opts.MaxIterations)
	return e.complete(sess, pub, started)
}

// decide runs one completion, parses it, and re-prompts exactly once on
// a grammar violation. A ParseError surviving the re-prompt is returned
// to the loop, which charges the iteration and keeps running; only
// completion failures are returned as errors.
func (e *Engine) decide(ctx context.Context, query string, steps []core.Step) (*Decision, *ParseError, error) {
	prompt := e.prompts.Step(query, steps)
	response, err := e.completeWithRetry(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}

	decision, perr := parseDecision(response)
	if perr == nil {
		return decision, nil, nil
	}

	e.opts.Logger.Warn("model response rejected, issuing corrective re-prompt", "reason", perr.Reason)
	response, err = e.completeWithRetry(ctx, e.prompts.Corrective(prompt, response, perr))
	if err != nil {
		return nil, nil, err
	}
	decision, perr = parseDecision(response)
	if perr != nil {
		return nil, perr, nil
	}
	return decision, nil, nil
}

func parseDecision(response string) (*Decision, *ParseError) {
	decision, err := Parse(response)
	if err != nil {
		var perr *ParseError
		errors.As(err, &perr)
		return nil, perr
	}
	return decision, nil
}

// completeWithRetry calls the completion client, retrying rate-limit
// and timeout failures with doubling backoff. Permanent failures and
// exhausted retries map into the session error taxonomy.
func (e *Engine) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := e.opts.RetryBaseDelay

	for attempt := 1; attempt <= e.opts.CompletionAttempts; attempt++ {
		start := time.Now()
		response, err := e.client.Complete(ctx, prompt, e.opts.Temperature)
		if err == nil {
			e.opts.Logger.Debug("completion succeeded",
				"provider", e.client.Provider(), "attempt", attempt, "duration_ms", time.Since(start).Milliseconds())
			return response, nil
		}
		lastErr = err
		if !completion.IsRetryable(err) || attempt == e.opts.CompletionAttempts {
			break
		}
		e.opts.Logger.Warn("retrying completion",
			"provider", e.client.Provider(), "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", core.NewAgentError(core.CodeCancelled, "run cancelled while waiting to retry completion")
		}
		delay *= 2
	}

	switch completion.KindOf(lastErr) {
	case completion.KindRateLimited:
		return "", core.NewAgentError(core.CodeRateLimited, "completion rate limited after %d attempts", e.opts.CompletionAttempts)
	case completion.KindTimeout:
		return "", core.NewAgentError(core.CodeTimeout, "completion timed out after %d attempts", e.opts.CompletionAttempts)
	default:
		return "", core.NewAgentError(core.CodeCompletionFailed, "completion failed: %v", lastErr)
	}
}

// observe executes the chosen tool and renders its outcome as the
// observation text fed back to the model. Tool failures are not fatal
// here; the model sees them and may try a different approach.
func (e *Engine) observe(ctx context.Context, name string, input map[string]any) (string, error) {
	result, err := e.executor.Execute(ctx, name, input)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), err
	}
	rendered, jerr := json.Marshal(result)
	if jerr != nil {
		return fmt.Sprintf("Error: tool result not serializable: %v", jerr), jerr
	}
	return string(rendered), nil
}

// synthesize attempts one best-effort answer from partial work. Its
// failure never fails the run; the terminal status is already decided.
func (e *Engine) synthesize(ctx context.Context, query string, steps []core.Step) string {
	answer, err := e.completeWithRetry(ctx, e.prompts.Synthesis(query, steps))
	if err != nil {
		e.opts.Logger.Warn("synthesis completion failed", "error", err)
		return ""
	}
	return answer
}

func (e *Engine) checkCancel(ctx context.Context, sess *core.Session) error {
	if sess.CancelRequested() {
		return core.NewAgentError(core.CodeCancelled, "cancellation requested")
	}
	if err := ctx.Err(); err != nil {
		return core.NewAgentError(core.CodeCancelled, "context cancelled: %v", err)
	}
	return nil
}

// complete publishes the terminal session_complete event and returns
// the run result. Used for succeeded and max-iterations outcomes.
func (e *Engine) complete(sess *core.Session, pub stream.Publisher, started time.Time) *core.QueryResult {
	snap := sess.Snapshot()
	result := core.ResultFromSession(snap, started)
	pub.Publish(core.NewEvent(core.EventSessionComplete, snap.ID, map[string]any{
		"result": result,
	}))
	e.opts.Logger.Info("session run finished",
		"session_id", snap.ID, "status", string(snap.Status),
		"steps", len(snap.Steps), "duration_s", result.SessionDuration)
	return result
}

// fail finishes the session with a taxonomy-coded error and publishes
// the terminal session_error event.
func (e *Engine) fail(sess *core.Session, pub stream.Publisher, started time.Time, err error) *core.QueryResult {
	info := core.InfoFromError(err)
	sess.Finish(core.StatusFailed, "", info)
	snap := sess.Snapshot()
	result := core.ResultFromSession(snap, started)
	pub.Publish(core.NewEvent(core.EventSessionError, snap.ID, map[string]any{
		"error":  info,
		"result": result,
	}))
	e.opts.Logger.Error("session run failed",
		"session_id", snap.ID, "code", string(info.Code), "error", info.Message)
	return result
}
