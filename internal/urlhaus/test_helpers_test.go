package urlhaus

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/tphakala/phishguard/internal/httpclient"
	"github.com/tphakala/phishguard/internal/ratelimit"
)

const testBase = "https://urlhaus.test/v1"

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestClient returns a configured client whose transport is the returned
// httpmock transport.
func setupTestClient(t *testing.T, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(hc.Close)

	base := []Option{
		WithHTTPClient(hc),
		WithLimiter(ratelimit.Unlimited()),
		WithClock(func() time.Time { return fixedNow }),
	}
	client := New(Config{AuthKey: "test-key", BaseURL: testBase, Timeout: 2 * time.Second}, append(base, opts...)...)
	return client, transport
}

// jsonResponder answers with body and checks the Auth-Key header.
func jsonResponder(t *testing.T, status int, body string) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Auth-Key") != "test-key" {
			return httpmock.NewStringResponse(http.StatusUnauthorized, `{"query_status":"unknown_auth_key"}`), nil
		}
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	}
}

type recordedStatus struct {
	name, status string
	ok           bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedStatus
}

func (f *fakeRecorder) RecordAPIStatus(_ context.Context, name, status string, _ time.Duration, ok bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedStatus{name: name, status: status, ok: ok})
	return nil
}

func (f *fakeRecorder) snapshot() []recordedStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedStatus(nil), f.records...)
}
