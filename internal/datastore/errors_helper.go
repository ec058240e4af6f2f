// Package datastore provides error handling helpers for database operations
package datastore

import (
	"fmt"
	"strings"

	"github.com/tphakala/phishguard/internal/errors"
)

// ErrThreatNotFound is returned when no active threat record matches a URL.
var ErrThreatNotFound = errors.NewStd("threat record not found")

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// validationError creates a validation error
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// criticalError creates a critical error for failures that leave the store unusable
func criticalError(err error, operation, reason string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(errors.PriorityCritical).
		Context("operation", operation).
		Context("critical_reason", reason)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// categorizeError maps a database error to a short label for metrics
func categorizeError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "locked"), strings.Contains(errStr, "busy"):
		return "locked"
	case strings.Contains(errStr, "constraint"), strings.Contains(errStr, "duplicate"):
		return "constraint"
	case strings.Contains(errStr, "deadline exceeded"), strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "canceled"):
		return "cancelled"
	case strings.Contains(errStr, "no such table"), strings.Contains(errStr, "doesn't exist"):
		return "schema"
	case strings.Contains(errStr, "connection"), strings.Contains(errStr, "closed"):
		return "connection"
	default:
		return "other"
	}
}
