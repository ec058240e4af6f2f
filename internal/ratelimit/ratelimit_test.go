package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/phishguard/internal/errors"
)

func TestWaitSpacesRequests(t *testing.T) {
	t.Parallel()

	l := New(50 * time.Millisecond)
	ctx := t.Context()

	start := time.Now()
	for range 3 {
		require.NoError(t, l.Wait(ctx))
	}
	// first token is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestWaitHonoursCancellation(t *testing.T) {
	t.Parallel()

	l := New(time.Hour)
	require.NoError(t, l.Wait(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestWaitDeadlineShorterThanInterval(t *testing.T) {
	t.Parallel()

	l := New(time.Hour)
	require.NoError(t, l.Wait(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	// rate.Limiter refuses immediately when the deadline cannot be met
	start := time.Now()
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
}

func TestDefaultsAndUnlimited(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultInterval, New(0).Interval())

	u := Unlimited()
	for range 100 {
		require.NoError(t, u.Wait(t.Context()))
	}

	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Wait(t.Context()))
}
