// Package ratelimit spaces outbound threat-intel requests process wide.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/phishguard/internal/errors"
)

// DefaultInterval is the minimum spacing between two outbound requests.
const DefaultInterval = time.Second

// Limiter admits one request per interval. A single Limiter is shared by every
// intel client so the spacing holds across providers.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// New returns a Limiter with burst 1. A non-positive interval falls back to
// DefaultInterval.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Unlimited returns a Limiter that never blocks, for tests and offline tooling.
func Unlimited() *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Interval reports the configured spacing, zero for an unlimited limiter.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the next request may go out or ctx is done. The returned
// error is categorized as cancellation or timeout so callers can map it to a
// lookup status.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		category := errors.CategoryTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			category = errors.CategoryCancellation
		}
		return errors.New(err).
			Component("ratelimit").
			Category(category).
			Context("operation", "rate_limiter_wait").
			Context("interval", l.interval.String()).
			Build()
	}
	return nil
}
