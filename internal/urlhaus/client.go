package urlhaus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/httpclient"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"github.com/tphakala/phishguard/internal/ratelimit"
)

const (
	// ProviderName labels metrics, logs and api_status rows.
	ProviderName = "urlhaus"

	endpointURL      = "url"
	endpointHost     = "host"
	endpointTag      = "tag"
	endpointRecent   = "urls_recent"
	endpointPayloads = "payloads_recent"

	maxResponseBytes = 10 << 20
	maxRecentLimit   = 1000
	defaultRecent    = 10
)

// ErrNotConfigured is returned by the listing calls when no auth key is set.
var ErrNotConfigured = errors.NewStd("urlhaus auth key not configured")

// StatusRecorder persists per provider health after each outbound call.
type StatusRecorder interface {
	RecordAPIStatus(ctx context.Context, name, status string, responseTime time.Duration, ok bool) error
}

// Option customizes a Client.
type Option func(*Client)

// WithLimiter shares a process wide limiter with the client.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *httpclient.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithStatusRecorder records every call outcome, typically into the datastore.
func WithStatusRecorder(r StatusRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.IntelMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the time source used for date based confidence.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client talks to the URLhaus API. It is safe for concurrent use.
type Client struct {
	config    Config
	http      *httpclient.Client
	limiter   *ratelimit.Limiter
	hostCache *cache.Cache
	hostGroup singleflight.Group
	recorder  StatusRecorder
	metrics   *metrics.IntelMetrics
	now       func() time.Time
}

// New creates a URLhaus client. Zero config values take DefaultConfig values.
// An empty auth key is valid: lookups then report StatusNotConfigured.
func New(cfg Config, opts ...Option) *Client {
	d := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.HostCacheTTL <= 0 {
		cfg.HostCacheTTL = d.HostCacheTTL
	}

	c := &Client{
		config:    cfg,
		hostCache: cache.New(cfg.HostCacheTTL, cfg.HostCacheTTL*2),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(&httpclient.Config{DefaultTimeout: cfg.Timeout})
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.DefaultInterval)
	}

	GetLogger().Info("URLhaus client initialized",
		logger.String("base_url", cfg.BaseURL),
		logger.Duration("timeout", cfg.Timeout),
		logger.Duration("host_cache_ttl", cfg.HostCacheTTL),
		logger.Bool("auth_key_configured", c.Configured()))

	return c
}

// GetLogger returns the urlhaus module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(ProviderName)
}

// Configured reports whether an auth key is set.
func (c *Client) Configured() bool {
	return c.config.AuthKey != ""
}

// QueryURL looks up one URL. It never fails: problems are reported in Status.
func (c *Client) QueryURL(ctx context.Context, u string) URLResult {
	if !c.Configured() {
		return URLResult{Status: StatusNotConfigured, Detail: "URLhaus not configured"}
	}

	start := time.Now()
	obj, status, detail := c.call(ctx, http.MethodPost, c.config.BaseURL+"/url/", url.Values{"url": {u}})
	var r URLResult
	if obj == nil {
		r = URLResult{Status: status, Detail: detail}
	} else {
		r = parseURLResponse(obj, c.now())
	}
	c.observe(ctx, endpointURL, r.Status, time.Since(start))

	if r.IsMalicious {
		GetLogger().Info("URLhaus reports malicious URL",
			logger.String("threat", r.ThreatType),
			logger.String("url_status", r.URLStatus),
			logger.Float64("confidence", r.Confidence))
	}
	return r
}

// QueryHost looks up a host. Definitive answers are cached per host and
// concurrent lookups of the same host share one request.
func (c *Client) QueryHost(ctx context.Context, host string) HostResult {
	host = strings.ToLower(strings.TrimSpace(host))
	if !c.Configured() {
		return HostResult{Host: host, Status: StatusNotConfigured, Detail: "URLhaus not configured"}
	}
	if host == "" {
		return HostResult{Status: StatusMalformed, Detail: "empty host"}
	}

	if cached, found := c.hostCache.Get(host); found {
		if r, ok := cached.(HostResult); ok {
			if c.metrics != nil {
				c.metrics.RecordCacheHit(ProviderName)
			}
			GetLogger().Debug("URLhaus host cache hit", logger.String("host", host))
			return r
		}
	}
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(ProviderName)
	}

	// The shared request must outlive any single caller, so it runs detached
	// and each caller stops waiting when its own context ends.
	ch := c.hostGroup.DoChan(host, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
		defer cancel()
		return c.lookupHost(shared, host), nil
	})

	select {
	case res := <-ch:
		return res.Val.(HostResult)
	case <-ctx.Done():
		status := classifyError(ctx, ctx.Err())
		return HostResult{Host: host, Status: status, Detail: "request failed: " + string(status)}
	}
}

// lookupHost performs one host query and caches definitive answers.
func (c *Client) lookupHost(ctx context.Context, host string) HostResult {
	start := time.Now()
	obj, status, detail := c.call(ctx, http.MethodPost, c.config.BaseURL+"/host/", url.Values{"host": {host}})
	var r HostResult
	if obj == nil {
		r = HostResult{Host: host, Status: status, Detail: detail}
	} else {
		r = parseHostResponse(obj, host)
	}
	c.observe(ctx, endpointHost, r.Status, time.Since(start))

	if r.Status.Cacheable() {
		c.hostCache.Set(host, r, cache.DefaultExpiration)
	}
	return r
}

// SearchTag lists URLs carrying tag.
func (c *Client) SearchTag(ctx context.Context, tag string) (*TagResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, errors.ValidationError("tag must not be empty")
	}

	obj, err := c.list(ctx, endpointTag, http.MethodPost, c.config.BaseURL+"/tag/", url.Values{"tag": {tag}})
	if err != nil {
		return nil, err
	}
	result := &TagResult{Tag: tag}
	if str(obj, "query_status") == queryStatusNoResults {
		return result, nil
	}
	result.Found = true
	result.URLs = parseURLEntries(objects(obj, "urls"))
	result.URLCount = int(integer(obj, "url_count"))
	if result.URLCount == 0 {
		result.URLCount = len(result.URLs)
	}
	result.FirstSeen = parseTime(str(obj, "firstseen"))
	result.LastSeen = parseTime(str(obj, "lastseen"))
	return result, nil
}

// recentPath picks the limited endpoint when the API supports the limit.
func recentPath(base, kind string, limit int) string {
	if limit <= maxRecentLimit {
		return fmt.Sprintf("%s/%s/recent/limit/%d/", base, kind, limit)
	}
	return fmt.Sprintf("%s/%s/recent/", base, kind)
}

// RecentURLs returns the most recently added malware URLs. A non-positive limit
// asks for ten.
func (c *Client) RecentURLs(ctx context.Context, limit int) ([]URLEntry, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = defaultRecent
	}
	obj, err := c.list(ctx, endpointRecent, http.MethodGet, recentPath(c.config.BaseURL, "urls", limit), nil)
	if err != nil {
		return nil, err
	}
	return parseURLEntries(objects(obj, "urls")), nil
}

// RecentPayloads returns the most recently seen malware payloads.
func (c *Client) RecentPayloads(ctx context.Context, limit int) ([]Payload, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = defaultRecent
	}
	obj, err := c.list(ctx, endpointPayloads, http.MethodGet, recentPath(c.config.BaseURL, "payloads", limit), nil)
	if err != nil {
		return nil, err
	}
	return parsePayloads(objects(obj, "payloads")), nil
}

// list performs a listing call and converts any non definitive outcome into an error.
func (c *Client) list(ctx context.Context, endpoint, method, rawURL string, form url.Values) (*jason.Object, error) {
	start := time.Now()
	obj, status, detail := c.call(ctx, method, rawURL, form)
	if obj != nil {
		switch qs := str(obj, "query_status"); qs {
		case queryStatusOK:
			status = StatusDetected
		case queryStatusNoResults:
			status = StatusClean
		default:
			status, detail = StatusAPIError, "API error: "+qs
		}
	}
	c.observe(ctx, endpoint, status, time.Since(start))

	if !status.Cacheable() {
		return nil, errors.Newf("urlhaus %s request failed: %s", endpoint, detail).
			Component(ProviderName).
			Category(statusCategory(status)).
			Context("endpoint", endpoint).
			Context("status", string(status)).
			Build()
	}
	return obj, nil
}

func statusCategory(s Status) errors.ErrorCategory {
	switch s {
	case StatusTimeout:
		return errors.CategoryTimeout
	case StatusCancelled:
		return errors.CategoryCancellation
	case StatusConnectionError:
		return errors.CategoryNetwork
	case StatusMalformed:
		return errors.CategoryParsing
	case StatusRateLimited:
		return errors.CategoryLimit
	case StatusAuthError:
		return errors.CategoryConfiguration
	default:
		return errors.CategoryIntel
	}
}

// call waits for the limiter, performs one request and parses the JSON body.
// On failure obj is nil and status/detail describe the problem.
func (c *Client) call(ctx context.Context, method, rawURL string, form url.Values) (obj *jason.Object, status Status, detail string) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		status = classifyError(ctx, err)
		return nil, status, "rate limiter wait aborted: " + string(status)
	}
	if c.metrics != nil {
		c.metrics.ObserveRateLimitWait(ProviderName, time.Since(waitStart).Seconds())
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Auth-Key", c.config.AuthKey)
	header.Set("Accept", "application/json")

	var resp *http.Response
	var err error
	if method == http.MethodPost {
		resp, err = c.http.PostForm(reqCtx, rawURL, form, header)
	} else {
		resp, err = c.http.Get(reqCtx, rawURL, header)
	}
	if err != nil {
		status = classifyError(reqCtx, err)
		GetLogger().Warn("URLhaus request failed",
			logger.String("url", logger.RedactURL(rawURL)),
			logger.String("status", string(status)),
			logger.Error(err))
		return nil, status, "request failed: " + string(status)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			GetLogger().Debug("failed to close response body", logger.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		GetLogger().Error("URLhaus rejected the auth key", logger.Int("status_code", resp.StatusCode))
		return nil, StatusAuthError, "Invalid auth key - check configuration"
	case resp.StatusCode == http.StatusTooManyRequests:
		GetLogger().Warn("URLhaus rate limit exceeded")
		return nil, StatusRateLimited, "Rate limit exceeded"
	case resp.StatusCode != http.StatusOK:
		GetLogger().Warn("URLhaus HTTP error", logger.Int("status_code", resp.StatusCode))
		return nil, StatusHTTPError, fmt.Sprintf("HTTP error %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		status = classifyError(reqCtx, err)
		return nil, status, "reading response failed: " + string(status)
	}

	obj, err = jason.NewObjectFromBytes(body)
	if err != nil {
		contentType := resp.Header.Get("Content-Type")
		GetLogger().Warn("URLhaus returned a non-JSON body",
			logger.String("content_type", contentType),
			logger.String("response_preview", httpclient.BodyPreview(body, contentType, httpclient.DefaultPreviewLength)))
		return nil, StatusMalformed, "malformed response"
	}
	return obj, "", ""
}

// classifyError maps transport and limiter failures onto lookup statuses.
func classifyError(ctx context.Context, err error) Status {
	return Status(httpclient.ClassifyFailure(ctx, err))
}

// observe records metrics and provider health for one call.
func (c *Client) observe(ctx context.Context, endpoint string, status Status, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordRequest(ProviderName, endpoint, string(status), elapsed.Seconds())
	}
	if c.recorder == nil || status == StatusNotConfigured {
		return
	}
	// health is recorded even when the caller has gone away
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
	defer cancel()
	if err := c.recorder.RecordAPIStatus(recCtx, ProviderName, string(status), elapsed, status.Cacheable()); err != nil {
		GetLogger().Debug("failed to record API status", logger.Error(err))
	}
}
