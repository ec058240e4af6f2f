package phishtank

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/tphakala/phishguard/internal/httpclient"
	"github.com/tphakala/phishguard/internal/ratelimit"
)

const testURL = "https://checkurl.phishtank.test/checkurl/"

func newTestClient(t *testing.T, cfg Config) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	hc := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(hc.Close)

	cfg.URL = testURL
	return New(cfg, WithHTTPClient(hc), WithLimiter(ratelimit.Unlimited())), transport
}

func TestCheckDetected(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{Enabled: true, AppKey: "app", Timeout: time.Second})
	transport.RegisterResponder(http.MethodPost, testURL, func(req *http.Request) (*http.Response, error) {
		assert.NoError(t, req.ParseForm())
		assert.Equal(t, "https://paypa1-login.example/", req.PostForm.Get("url"))
		assert.Equal(t, "json", req.PostForm.Get("format"))
		assert.Equal(t, "app", req.PostForm.Get("app_key"))
		return httpmock.NewStringResponse(http.StatusOK,
			`{"meta":{"status":"success"},"results":{"url":"https://paypa1-login.example/","in_database":true,"phish_id":8123456,"verified":true}}`), nil
	})

	r := client.Check(t.Context(), "https://paypa1-login.example/")
	assert.True(t, r.IsPhishing)
	assert.Equal(t, "8123456", r.PhishID)
	assert.True(t, r.Verified)
	assert.Equal(t, StatusDetected, r.Status)
	assert.Equal(t, "phish #8123456", r.Detail)
}

func TestCheckResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		want      Result
	}{
		{"not in database",
			httpmock.NewStringResponder(http.StatusOK, `{"results":{"in_database":false}}`),
			Result{Status: StatusClean}},
		{"top level keys",
			httpmock.NewStringResponder(http.StatusOK, `{"in_database":true,"phish_id":"77","verified":"y"}`),
			Result{IsPhishing: true, PhishID: "77", Verified: true, Status: StatusDetected, Detail: "phish #77"}},
		{"throttled",
			httpmock.NewStringResponder(http.StatusTooManyRequests, ""),
			Result{Status: StatusRateLimited, Detail: "Rate limit exceeded"}},
		{"server error",
			httpmock.NewStringResponder(http.StatusServiceUnavailable, ""),
			Result{Status: StatusHTTPError, Detail: "HTTP error 503"}},
		{"not json",
			httpmock.NewStringResponder(http.StatusOK, "<html/>"),
			Result{Status: StatusMalformed, Detail: "malformed response"}},
		{"missing flag",
			httpmock.NewStringResponder(http.StatusOK, `{"results":{}}`),
			Result{Status: StatusMalformed, Detail: "response has no in_database field"}},
		{"timeout",
			httpmock.NewErrorResponder(context.DeadlineExceeded),
			Result{Status: StatusTimeout, Detail: "API unavailable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, transport := newTestClient(t, Config{Enabled: true})
			transport.RegisterResponder(http.MethodPost, testURL, tt.responder)

			assert.Equal(t, tt.want, client.Check(t.Context(), "https://x.example/"))
		})
	}
}

func TestCheckDisabled(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{Enabled: false})
	r := client.Check(t.Context(), "https://x.example/")

	assert.Equal(t, StatusDisabled, r.Status)
	assert.False(t, r.IsPhishing)
	assert.False(t, client.Enabled())
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestCheckCancelled(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, Config{Enabled: true})
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r := client.Check(ctx, "https://x.example/")
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Zero(t, transport.GetTotalCallCount())
}
