// Package conf provides configuration management for PhishGuard.
package conf

import "github.com/tphakala/phishguard/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// Fetched on each call because the central logger is installed after settings load.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
