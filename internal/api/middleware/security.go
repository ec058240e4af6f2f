package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/phishguard/internal/observability/metrics"
)

// HSTSMaxAge is the max-age of the HSTS header (one year).
const HSTSMaxAge = 31536000

// NewCORS allows the configured origins to call the JSON API.
func NewCORS(allowedOrigins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestID,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	})
}

// NewSecureHeaders sets the standard security headers.
func NewSecureHeaders() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         HSTSMaxAge,
	})
}

// NewBodyLimit caps request bodies, e.g. "1M".
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}

// NewTokenAuth guards a route group with a static bearer token. onError renders
// rejections. An empty token disables the guard.
func NewTokenAuth(token string, m *metrics.HTTPMetrics, onError func(c echo.Context, err error) error) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper:    func(echo.Context) bool { return token == "" },
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			ok := subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1
			if m != nil {
				status := metrics.StatusSuccess
				if !ok {
					status = metrics.StatusError
				}
				m.RecordAuthOperation(status)
			}
			return ok, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return onError(c, err)
		},
	})
}

// NewGzip compresses responses for clients that accept it.
func NewGzip() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     5,
		MinLength: 1024,
	})
}
