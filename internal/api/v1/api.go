// Package api implements the /api/v1 JSON endpoints.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/phishguard/internal/api/middleware"
	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

// Route prefix and list bounds.
const (
	Prefix = "/api/v1"

	defaultListLimit = 50
	maxListLimit     = 500
	maxURLLength     = 2048

	defaultRetentionDays = 30
)

// Analyzer is the detection service behind the API.
type Analyzer interface {
	Analyze(ctx context.Context, raw string) *detector.Verdict
	Report(ctx context.Context, rawURL, description, userID string) detector.ReportResult
	Stats(ctx context.Context) (*datastore.Stats, error)
	SearchByDomain(ctx context.Context, domain string, limit int) ([]datastore.ThreatRecord, error)
	DetectionStatus() map[string]detector.MethodStatus
}

// Store is the slice of the threat store the API reads directly.
type Store interface {
	Ping(ctx context.Context) error
	PendingReports(ctx context.Context, limit int) ([]datastore.UserReport, error)
	APIStatuses(ctx context.Context) ([]datastore.APIStatus, error)
	PruneDetections(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Intel serves the threat-intelligence browsing endpoints.
type Intel interface {
	Configured() bool
	QueryHost(ctx context.Context, host string) urlhaus.HostResult
	SearchTag(ctx context.Context, tag string) (*urlhaus.TagResult, error)
	RecentURLs(ctx context.Context, limit int) ([]urlhaus.URLEntry, error)
	RecentPayloads(ctx context.Context, limit int) ([]urlhaus.Payload, error)
	IntelligenceSummary(ctx context.Context) (*urlhaus.Summary, error)
}

// Controller handles the v1 API routes.
type Controller struct {
	Group *echo.Group

	analyzer Analyzer
	store    Store
	intel    Intel
	metrics  *metrics.HTTPMetrics
	apiToken string

	retentionDays int
	memoryStats func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithMetrics enables auth metrics on the admin guard.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithAPIToken guards the admin routes with a bearer token.
func WithAPIToken(token string) Option {
	return func(c *Controller) { c.apiToken = token }
}

// WithRetentionDays sets the prune age used when ?days= is absent.
func WithRetentionDays(days int) Option {
	return func(c *Controller) {
		if days > 0 {
			c.retentionDays = days
		}
	}
}

// WithMemoryStats overrides the host memory source used by the health check.
func WithMemoryStats(fn func(ctx context.Context) (*mem.VirtualMemoryStat, error)) Option {
	return func(c *Controller) { c.memoryStats = fn }
}

// GetLogger returns the v1 API logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// New registers the v1 routes on e. intel may be nil, in which case the
// intelligence endpoints answer 503.
func New(e *echo.Echo, analyzer Analyzer, store Store, intel Intel, opts ...Option) *Controller {
	c := &Controller{
		Group:       e.Group(Prefix),
		analyzer:    analyzer,
		store:       store,
		intel:       intel,
		memoryStats: mem.VirtualMemoryWithContext,

		retentionDays: defaultRetentionDays,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.Health)

	c.Group.POST("/analyze", c.Analyze)
	c.Group.POST("/report", c.Report)
	c.Group.GET("/tips", c.Tips)
	c.Group.GET("/stats", c.Stats)
	c.Group.GET("/reports", c.PendingReports)
	c.Group.GET("/detection-status", c.DetectionStatus)

	db := c.Group.Group("/database")
	db.GET("/stats", c.Stats)
	db.GET("/search", c.SearchDatabase)

	intel := c.Group.Group("/intelligence")
	intel.GET("/summary", c.IntelligenceSummary)
	intel.GET("/recent-urls", c.RecentURLs)
	intel.GET("/recent-payloads", c.RecentPayloads)
	intel.GET("/tag/:tag", c.SearchTag)
	intel.GET("/host/:host", c.QueryHost)

	admin := c.Group.Group("/admin", middleware.NewTokenAuth(c.apiToken, c.metrics, c.unauthorized))
	admin.POST("/prune", c.Prune)
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // the request's X-Request-ID
}

// HandleError logs err and writes an ErrorResponse with the given status code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{
		Error:         message,
		Message:       message,
		Code:          code,
		CorrelationID: middleware.RequestID(ctx),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	log := GetLogger().WithContext(ctx.Request().Context())
	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Path()),
		logger.Int("code", code),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			fields = append(fields, logger.String("category", ee.GetCategory()))
		}
	}
	if code >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Debug(message, fields...)
	}

	return ctx.JSON(code, resp)
}

// handleServiceError maps an error from the detector, store or intel client to
// a status code by its category.
func (c *Controller) handleServiceError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, urlhaus.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryLimit):
		return http.StatusTooManyRequests
	case errors.IsCategory(err, errors.CategoryTimeout):
		return http.StatusGatewayTimeout
	case errors.IsCategory(err, errors.CategoryIntel),
		errors.IsCategory(err, errors.CategoryNetwork),
		errors.IsCategory(err, errors.CategoryParsing):
		return http.StatusBadGateway
	case errors.IsCategory(err, errors.CategoryConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorHandler renders errors escaping handlers and middleware, such as
// unknown routes or oversized bodies, in the ErrorResponse shape.
func (c *Controller) HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}
	if herr := c.HandleError(ctx, err, message, code); herr != nil {
		GetLogger().Warn("failed to write error response", logger.Error(herr))
	}
}

func (c *Controller) unauthorized(ctx echo.Context, err error) error {
	return c.HandleError(ctx, err, "invalid or missing API token", http.StatusUnauthorized)
}

// queryLimit parses ?limit=, defaulting to defaultListLimit and capping at maxListLimit.
func queryLimit(ctx echo.Context) (int, error) {
	raw := ctx.QueryParam("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.Newf("limit must be a positive integer").
			Component("api").
			Category(errors.CategoryValidation).
			Context("limit", raw).
			Build()
	}
	return min(limit, maxListLimit), nil
}

func (c *Controller) intelReady() error {
	if c.intel == nil || !c.intel.Configured() {
		return urlhaus.ErrNotConfigured
	}
	return nil
}
