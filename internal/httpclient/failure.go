package httpclient

import (
	"context"
	"net"

	"github.com/tphakala/phishguard/internal/errors"
)

// Failure kinds reported by ClassifyFailure.
const (
	FailureCancelled  = "cancelled"
	FailureTimeout    = "timeout"
	FailureConnection = "connection_error"
)

// ClassifyFailure maps a transport or rate limiter error onto a failure kind.
// ctx is the context the request ran under.
func ClassifyFailure(ctx context.Context, err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled),
		errors.IsCategory(err, errors.CategoryCancellation):
		return FailureCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.IsCategory(err, errors.CategoryTimeout),
		errors.As(err, &netErr) && netErr.Timeout():
		return FailureTimeout
	default:
		return FailureConnection
	}
}
