package reasoning

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReliableClient_RetriesThrottle(t *testing.T) {
	mock := NewMockClient("m",
		MockReply{Err: &ThrottleError{RetryAfter: time.Millisecond, Cause: errors.New("429")}},
		MockReply{Text: `{"ok": true}`},
	)
	rc := NewReliableClient(mock, ReliabilityConfig{MaxAttempts: 3, RateLimit: 1000, RateBurst: 10})

	text, err := rc.Generate(context.Background(), "key", Request{})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
	assert.Len(t, mock.Calls(), 2)
	assert.Equal(t, "m", rc.Model())
}

func TestReliableClient_BreakerOpens(t *testing.T) {
	var transitions []gobreaker.State
	mock := NewMockClient("m", MockReply{Err: errors.New("boom")})
	rc := NewReliableClient(mock, ReliabilityConfig{
		MaxAttempts: 1,
		RateLimit:   1000,
		RateBurst:   10,
		CBFailures:  2,
		CBTimeout:   time.Minute,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	assert.True(t, rc.Available())
	for i := 0; i < 2; i++ {
		_, err := rc.Generate(context.Background(), "key", Request{})
		require.Error(t, err)
	}

	assert.False(t, rc.Available())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
	assert.Equal(t, StrategyHeuristic, SelectStrategy("key", rc))

	_, err := rc.Generate(context.Background(), "key", Request{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, mock.Calls(), 2, "open breaker must not reach provider")
}

func TestReliableClient_CancelledContext(t *testing.T) {
	rc := NewReliableClient(NewMockClient("m", MockReply{Text: "{}"}), ReliabilityConfig{RateLimit: 1, RateBurst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.Generate(ctx, "key", Request{})
	assert.Error(t, err)
}

func TestReliableClient_RejectedCredentialNotRetriedNorTripped(t *testing.T) {
	var transitions []gobreaker.State
	rejected := fmt.Errorf("gemini generate: %w: %w", ErrCredentialRejected, errors.New("Error 401"))
	mock := NewMockClient("m", MockReply{Err: rejected})
	rc := NewReliableClient(mock, ReliabilityConfig{
		MaxAttempts: 3,
		RateLimit:   1000,
		RateBurst:   10,
		CBFailures:  2,
		CBTimeout:   time.Minute,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	for i := 0; i < 4; i++ {
		_, err := rc.Generate(context.Background(), "bad-key", Request{})
		require.ErrorIs(t, err, ErrCredentialRejected)
	}

	assert.Len(t, mock.Calls(), 4, "one call per Generate, no retries")
	assert.True(t, rc.Available())
	assert.Empty(t, transitions)
}

func TestReliableClient_EmptyCredentialNotTripped(t *testing.T) {
	mock := NewMockClient("m", MockReply{Text: "{}"})
	rc := NewReliableClient(mock, ReliabilityConfig{MaxAttempts: 3, RateLimit: 1000, RateBurst: 10, CBFailures: 1})

	for i := 0; i < 3; i++ {
		_, err := rc.Generate(context.Background(), "", Request{})
		require.ErrorIs(t, err, ErrNoCredential)
	}
	assert.Len(t, mock.Calls(), 3)
	assert.True(t, rc.Available())

	text, err := rc.Generate(context.Background(), "key", Request{})
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
}
