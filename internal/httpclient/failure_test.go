package httpclient

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/phishguard/internal/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyFailure(t *testing.T) {
	t.Parallel()

	cancelled, cancel := context.WithCancel(t.Context())
	cancel()

	wrap := func(err error) error { return &url.Error{Op: "Post", URL: "https://x.test", Err: err} }

	assert.Equal(t, FailureCancelled, ClassifyFailure(t.Context(), wrap(context.Canceled)))
	assert.Equal(t, FailureCancelled, ClassifyFailure(cancelled, errors.NewStd("read: connection reset")))
	assert.Equal(t, FailureTimeout, ClassifyFailure(t.Context(), wrap(context.DeadlineExceeded)))
	assert.Equal(t, FailureTimeout, ClassifyFailure(t.Context(), wrap(timeoutErr{})))
	assert.Equal(t, FailureTimeout, ClassifyFailure(t.Context(),
		errors.Newf("would exceed deadline").Category(errors.CategoryTimeout).Build()))
	assert.Equal(t, FailureConnection, ClassifyFailure(t.Context(), wrap(errors.NewStd("connection refused"))))
}
