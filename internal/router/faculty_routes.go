package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seating/internal/middleware"
)

// RegisterFaculty registers the write endpoints.  They require a valid
// JWT with the FACULTY role and pass through limiter, usually the Redis
// token bucket.
func RegisterFaculty(e *echo.Echo, h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleFaculty),
	}
	if limiter != nil {
		mws = append(mws, limiter)
	}
	g := e.Group("/v1", mws...)

	// ---- Events ----
	g.POST("/events", h.Events.CreateEvent)

	// ---- Seat assignments ----
	g.POST("/events/:id/seat-assignments", h.Assignments.CreateAssignment)
	g.POST("/events/:id/seat-conflicts", h.Assignments.PreviewConflicts)
	g.PUT("/seat-assignments/:id", h.Assignments.UpdateAssignment)
	g.PATCH("/seat-assignments/:id", h.Assignments.UpdateAssignment)
	g.DELETE("/seat-assignments/:id", h.Assignments.DeleteAssignment)

	// ---- Registrations ----
	g.GET("/events/:id/registrations", h.Registrations.ListRegistrations)
	g.PUT("/events/:id/attendance/:student_id", h.Registrations.MarkAttendance)
}
