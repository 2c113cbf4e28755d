package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextRequestID is the context key holding the request ID.
const ContextRequestID = "request_id"

// requestIDMaxLen caps client supplied IDs so they cannot flood the logs.
const requestIDMaxLen = 64

// RequestID reuses the X-Request-ID header or generates a UUID, stores it
// in the context and echoes it back in the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" || len(rid) > requestIDMaxLen {
				rid = uuid.NewString()
			}
			c.Set(ContextRequestID, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

func requestIDOf(c echo.Context) string {
	s, _ := c.Get(ContextRequestID).(string)
	return s
}
