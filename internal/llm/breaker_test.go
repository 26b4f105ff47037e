package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	calls atomic.Int32
	text  string
	err   error
}

func (s *stubBackend) Generate(context.Context, Attempt) (string, error) {
	s.calls.Add(1)
	return s.text, s.err
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	stub := &stubBackend{err: &HTTPError{Status: 500, Body: "down"}}
	var transitions []gobreaker.State
	b := NewBreaker("primary", stub, BreakerConfig{
		MaxFailures: 2,
		OpenTimeout: time.Hour,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	}, nil)

	for range 2 {
		_, err := b.Generate(context.Background(), Attempt{})
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	_, err := b.Generate(context.Background(), Attempt{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.EqualValues(t, 2, stub.calls.Load(), "open circuit must not reach the backend")
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	t.Parallel()

	stub := &stubBackend{text: "roasted"}
	b := NewBreaker("primary", stub, BreakerConfig{MaxFailures: 1}, nil)

	text, err := b.Generate(context.Background(), Attempt{})
	require.NoError(t, err)
	assert.Equal(t, "roasted", text)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	stub := &stubBackend{err: context.Canceled}
	b := NewBreaker("primary", stub, BreakerConfig{MaxFailures: 1}, nil)

	for range 3 {
		_, err := b.Generate(context.Background(), Attempt{})
		assert.True(t, errors.Is(err, context.Canceled))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
