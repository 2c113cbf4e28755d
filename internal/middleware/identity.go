package middleware

import "github.com/labstack/echo/v4"

// currentUserID returns the subject stored by JWTAuth, or "anon" when the
// request is unauthenticated.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
