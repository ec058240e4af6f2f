// Package api provides the HTTP server. The JSON endpoints live in the v1
// subpackage.
package api

import (
	"net"
	"time"

	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultListen          = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen   string // host:port to bind
	APIToken string // bearer token for /api/v1/admin; empty leaves admin routes open

	AllowedOrigins []string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string // e.g. "1M"
	Debug     bool
}

// DefaultConfig returns a Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	cfg.APIToken = settings.WebServer.APIToken
	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("listen", c.Listen).
			Build()
	}
	if c.ShutdownTimeout <= 0 {
		return errors.Newf("shutdown timeout must be positive").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}
