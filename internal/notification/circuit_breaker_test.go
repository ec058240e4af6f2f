package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProvider = errors.New("provider down")

func failing(context.Context) error { return errProvider }
func succeeding(context.Context) error { return nil }

func TestCircuitBreakerLifecycle(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxRequests: 1}, "test")
	cb.now = func() time.Time { return now }
	ctx := t.Context()

	require.ErrorIs(t, cb.Call(ctx, failing), errProvider)
	assert.Equal(t, StateClosed, cb.State())
	require.ErrorIs(t, cb.Call(ctx, failing), errProvider)
	assert.Equal(t, StateOpen, cb.State())

	require.ErrorIs(t, cb.Call(ctx, succeeding), ErrCircuitOpen)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Call(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second}, "test")
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Call(t.Context(), failing))
	now = now.Add(time.Second)
	require.ErrorIs(t, cb.Call(t.Context(), failing), errProvider)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute}, "test")

	err := cb.Call(t.Context(), func(context.Context) error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}
