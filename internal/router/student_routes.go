package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seating/internal/middleware"
)

// RegisterStudent registers the endpoints students act through.  They
// require a valid JWT with the STUDENT role and share the faculty
// limiter.
func RegisterStudent(e *echo.Echo, h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleStudent),
	}
	if limiter != nil {
		mws = append(mws, limiter)
	}
	g := e.Group("/v1", mws...)

	g.POST("/events/:id/registrations", h.Registrations.Register)
}
