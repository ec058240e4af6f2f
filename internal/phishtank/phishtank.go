// Package phishtank checks URLs against the PhishTank community database.
package phishtank

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/phishguard/internal/httpclient"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"github.com/tphakala/phishguard/internal/ratelimit"
)

// ProviderName labels metrics, logs and api_status rows.
const ProviderName = "phishtank"

const maxResponseBytes = 1 << 20

// Status values reported on Result.
const (
	StatusDisabled        = "disabled"
	StatusDetected        = "detected"
	StatusClean           = "clean"
	StatusRateLimited     = "rate_limited"
	StatusHTTPError       = "http_error"
	StatusMalformed       = "malformed"
	StatusTimeout         = httpclient.FailureTimeout
	StatusCancelled       = httpclient.FailureCancelled
	StatusConnectionError = httpclient.FailureConnection
)

// Result is the outcome of a PhishTank check. Failures leave IsPhishing false.
type Result struct {
	IsPhishing bool   `json:"is_phishing"`
	PhishID    string `json:"phish_id,omitempty"`
	Verified   bool   `json:"verified"`
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
}

// Config configures the checker.
type Config struct {
	Enabled bool
	URL     string
	AppKey  string
	Timeout time.Duration
}

// DefaultConfig returns the public checkurl endpoint with a 10s timeout.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		URL:     "https://checkurl.phishtank.com/checkurl/",
		Timeout: 10 * time.Second,
	}
}

// StatusRecorder persists provider health after each call.
type StatusRecorder interface {
	RecordAPIStatus(ctx context.Context, name, status string, responseTime time.Duration, ok bool) error
}

// Option customizes a Client.
type Option func(*Client)

// WithLimiter shares the process wide limiter.
func WithLimiter(l *ratelimit.Limiter) Option { return func(c *Client) { c.limiter = l } }

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *httpclient.Client) Option { return func(c *Client) { c.http = h } }

// WithStatusRecorder records every call outcome.
func WithStatusRecorder(r StatusRecorder) Option { return func(c *Client) { c.recorder = r } }

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.IntelMetrics) Option { return func(c *Client) { c.metrics = m } }

// Client queries PhishTank. It is safe for concurrent use.
type Client struct {
	config   Config
	http     *httpclient.Client
	limiter  *ratelimit.Limiter
	recorder StatusRecorder
	metrics  *metrics.IntelMetrics
}

// New creates a PhishTank client.
func New(cfg Config, opts ...Option) *Client {
	d := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = d.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	c := &Client{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(&httpclient.Config{DefaultTimeout: cfg.Timeout})
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.DefaultInterval)
	}
	return c
}

func getLogger() logger.Logger {
	return logger.Global().Module(ProviderName)
}

// Enabled reports whether checks go out at all.
func (c *Client) Enabled() bool {
	return c.config.Enabled
}

// Check asks PhishTank whether u is a known phish. It never fails.
func (c *Client) Check(ctx context.Context, u string) Result {
	if !c.config.Enabled {
		return Result{Status: StatusDisabled, Detail: "PhishTank disabled"}
	}

	start := time.Now()
	r := c.check(ctx, u)
	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordRequest(ProviderName, "checkurl", r.Status, elapsed.Seconds())
	}
	if c.recorder != nil {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
		defer cancel()
		ok := r.Status == StatusDetected || r.Status == StatusClean
		if err := c.recorder.RecordAPIStatus(recCtx, ProviderName, r.Status, elapsed, ok); err != nil {
			getLogger().Debug("failed to record API status", logger.Error(err))
		}
	}
	return r
}

func (c *Client) check(ctx context.Context, u string) Result {
	if err := c.limiter.Wait(ctx); err != nil {
		status := httpclient.ClassifyFailure(ctx, err)
		return Result{Status: status, Detail: "rate limiter wait aborted"}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	form := url.Values{"url": {u}, "format": {"json"}}
	if c.config.AppKey != "" {
		form.Set("app_key", c.config.AppKey)
	}

	resp, err := c.http.PostForm(reqCtx, c.config.URL, form, nil)
	if err != nil {
		status := httpclient.ClassifyFailure(reqCtx, err)
		getLogger().Warn("PhishTank request failed", logger.String("status", status), logger.Error(err))
		return Result{Status: status, Detail: "API unavailable"}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			getLogger().Debug("failed to close response body", logger.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{Status: StatusRateLimited, Detail: "Rate limit exceeded"}
	case resp.StatusCode != http.StatusOK:
		return Result{Status: StatusHTTPError, Detail: fmt.Sprintf("HTTP error %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{Status: httpclient.ClassifyFailure(reqCtx, err), Detail: "reading response failed"}
	}
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		contentType := resp.Header.Get("Content-Type")
		getLogger().Warn("PhishTank returned a non-JSON body",
			logger.String("content_type", contentType),
			logger.String("response_preview", httpclient.BodyPreview(body, contentType, httpclient.DefaultPreviewLength)))
		return Result{Status: StatusMalformed, Detail: "malformed response"}
	}
	return parseResult(obj)
}

// parseResult reads the "results" object, falling back to top level keys.
func parseResult(obj *jason.Object) Result {
	results := obj
	if inner, err := obj.GetObject("results"); err == nil {
		results = inner
	}

	inDB, err := results.GetBoolean("in_database")
	if err != nil {
		return Result{Status: StatusMalformed, Detail: "response has no in_database field"}
	}
	if !inDB {
		return Result{Status: StatusClean}
	}

	r := Result{IsPhishing: true, Status: StatusDetected}
	if v, err := results.GetValue("phish_id"); err == nil {
		if s, err := v.String(); err == nil {
			r.PhishID = s
		} else if n, err := v.Int64(); err == nil {
			r.PhishID = strconv.FormatInt(n, 10)
		}
	}
	r.Verified = boolish(results, "verified")
	if r.PhishID == "" {
		r.Detail = "phish #unknown"
	} else {
		r.Detail = "phish #" + r.PhishID
	}
	return r
}

// boolish accepts JSON booleans and the "y"/"true" strings older responses use.
func boolish(o *jason.Object, key string) bool {
	if b, err := o.GetBoolean(key); err == nil {
		return b
	}
	s, err := o.GetString(key)
	if err != nil {
		return false
	}
	b, _ := strconv.ParseBool(s)
	return b || s == "y" || s == "yes"
}
