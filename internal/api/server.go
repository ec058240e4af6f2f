package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/phishguard/internal/api/middleware"
	v1 "github.com/tphakala/phishguard/internal/api/v1"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability"
	"github.com/tphakala/phishguard/internal/observability/metrics"
)

// Server is the PhishGuard HTTP server.
type Server struct {
	echo          *echo.Echo
	config        *Config
	metrics       *observability.Metrics
	apiController *v1.Controller

	retentionDays int

	wg sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics exposes /metrics and records per-route HTTP metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithRetentionDays sets the default age used by the prune endpoint.
func WithRetentionDays(days int) ServerOption {
	return func(s *Server) { s.retentionDays = days }
}

// New creates a Server with middleware and routes installed.
func New(config *Config, analyzer v1.Analyzer, store v1.Store, intel v1.Intel, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{config: config}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	var httpMetrics *metrics.HTTPMetrics
	if s.metrics != nil {
		httpMetrics = s.metrics.HTTP
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	s.apiController = v1.New(s.echo, analyzer, store, intel,
		v1.WithAPIToken(config.APIToken),
		v1.WithMetrics(httpMetrics),
		v1.WithRetentionDays(s.retentionDays))
	s.echo.HTTPErrorHandler = s.apiController.HTTPErrorHandler

	GetLogger().Info("HTTP server initialized",
		logger.String("listen", config.Listen),
		logger.Bool("admin_token", config.APIToken != ""),
		logger.Bool("debug", config.Debug))

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(GetLogger(), func(c echo.Context) bool {
		return c.Path() == "/metrics"
	}))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}
	s.echo.Use(mw.NewCORS(s.config.AllowedOrigins))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders())
}

// Start begins serving in the background. Listen errors other than a normal
// shutdown are sent to the returned channel, which is closed when serving stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(errCh)
		GetLogger().Info("HTTP server listening", logger.String("listen", s.config.Listen))
		if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.New(err).
				Component("api").
				Category(errors.CategoryNetwork).
				Context("listen", s.config.Listen).
				Build()
		}
	}()
	return errCh
}

// Run serves until ctx is cancelled or the listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := s.Start()
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		GetLogger().Info("shutdown requested, stopping HTTP server")
		return s.Shutdown(context.WithoutCancel(ctx))
	}
}

// Shutdown gracefully stops the server within the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		GetLogger().Error("error during server shutdown", logger.Error(err))
		return errors.New(err).
			Component("api").
			Category(errors.CategoryTimeout).
			Context("operation", "shutdown").
			Build()
	}
	s.wg.Wait()

	GetLogger().Info("HTTP server shutdown complete")
	return nil
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
