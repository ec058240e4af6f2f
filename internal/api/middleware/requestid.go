package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/phishguard/internal/logger"
)

// requestIDKey stores the request id in the echo context.
const requestIDKey = "request_id"

// maxRequestIDLength bounds client supplied ids.
const maxRequestIDLength = 128

// NewRequestID assigns every request an X-Request-ID, keeping a sane client
// supplied one, and puts it on the request context as the logger trace id.
func NewRequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: echo.HeaderXRequestID,
		RequestIDHandler: func(c echo.Context, id string) {
			if len(id) > maxRequestIDLength {
				id = uuid.NewString()
				c.Response().Header().Set(echo.HeaderXRequestID, id)
			}
			c.Set(requestIDKey, id)
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
		},
	})
}

// RequestID returns the id assigned by NewRequestID, or "".
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}
