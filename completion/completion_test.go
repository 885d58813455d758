package completion

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRetryable(t *testing.T) {
	assert.True(t, NewError(KindRateLimited, "openai", "429").Retryable())
	assert.True(t, NewError(KindTimeout, "openai", "slow").Retryable())
	assert.False(t, NewError(KindPermanent, "openai", "401").Retryable())
	assert.False(t, NewError(KindInvalidResponse, "openai", "empty").Retryable())
}

func TestIsRetryable(t *testing.T) {
	wrapped := fmt.Errorf("calling model: %w", NewError(KindRateLimited, "openai", "429"))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(NewError(KindTimeout, "p", "m")))
	assert.Equal(t, KindPermanent, KindOf(errors.New("anything")))
}

func TestScript(t *testing.T) {
	t.Run("fifo order", func(t *testing.T) {
		s := NewScript()
		s.Push("first")
		s.Push("second")

		got, err := s.Complete(context.Background(), "p1", 0.3)
		require.NoError(t, err)
		assert.Equal(t, "first", got)

		got, err = s.Complete(context.Background(), "p2", 0.5)
		require.NoError(t, err)
		assert.Equal(t, "second", got)

		calls := s.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, "p1", calls[0].Prompt)
		assert.InDelta(t, 0.5, calls[1].Temperature, 1e-9)
	})

	t.Run("scripted errors", func(t *testing.T) {
		s := NewScript()
		s.PushError(NewError(KindRateLimited, "script", "429"))

		_, err := s.Complete(context.Background(), "p", 0)
		assert.True(t, IsRetryable(err))
	})

	t.Run("fallback after queue drained", func(t *testing.T) {
		s := NewScript()
		s.SetFallback(func(prompt string) (string, error) {
			return "fallback for " + prompt, nil
		})

		got, err := s.Complete(context.Background(), "p", 0)
		require.NoError(t, err)
		assert.Equal(t, "fallback for p", got)
	})

	t.Run("exhausted without fallback", func(t *testing.T) {
		s := NewScript()
		_, err := s.Complete(context.Background(), "p", 0)
		assert.Equal(t, KindInvalidResponse, KindOf(err))
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		s := NewScript()
		s.Push("never delivered")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Complete(ctx, "p", 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
