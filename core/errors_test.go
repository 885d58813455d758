package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		assert.Equal(t, CodeSessionNotFound, CodeOf(ErrSessionNotFound("abc")))
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("handling request: %w", ErrAlreadyInProgress("abc"))
		assert.Equal(t, CodeAlreadyInProgress, CodeOf(err))
	})

	t.Run("unclassified", func(t *testing.T) {
		assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
	})
}

func TestInfoFromError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, InfoFromError(nil))
	})

	t.Run("taxonomy error keeps code and message", func(t *testing.T) {
		info := InfoFromError(NewAgentError(CodeRateLimited, "slow down"))
		require.NotNil(t, info)
		assert.Equal(t, CodeRateLimited, info.Code)
		assert.Equal(t, "slow down", info.Message)
	})

	t.Run("unclassified defaults to completion_failed", func(t *testing.T) {
		info := InfoFromError(errors.New("mystery"))
		require.NotNil(t, info)
		assert.Equal(t, CodeCompletionFailed, info.Code)
	})
}

func TestEventTerminal(t *testing.T) {
	assert.True(t, NewEvent(EventSessionComplete, "s", nil).IsTerminal())
	assert.True(t, NewEvent(EventSessionError, "s", nil).IsTerminal())
	assert.False(t, NewEvent(EventStepStart, "s", nil).IsTerminal())
	assert.False(t, NewEvent(EventSessionStart, "s", nil).IsTerminal())
}

func TestResultFromSession(t *testing.T) {
	sess := NewSession("sess-1", "q")
	require.NoError(t, sess.AppendStep(Step{
		Number: 1, Thought: "look it up", Action: "search_documents",
		Observation: "found it", ToolsUsed: []string{"search_documents"},
	}))
	sess.Finish(StatusSucceeded, "the answer", nil)

	result := ResultFromSession(sess.Snapshot(), sess.CreatedAt())

	assert.Equal(t, "sess-1", result.SessionID)
	assert.True(t, result.Success)
	require.NotNil(t, result.Answer)
	assert.Equal(t, "the answer", *result.Answer)
	assert.Equal(t, 1, result.ReasoningSteps)
	assert.Equal(t, 1, result.ToolCalls)
	require.Len(t, result.DetailedReasoning, 1)
	assert.Equal(t, "search_documents", result.DetailedReasoning[0].Action)
}
