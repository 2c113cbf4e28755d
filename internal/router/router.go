// Package router registers the HTTP routes of the seating API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seating/internal/handler"
	"github.com/iliyamo/event-seating/internal/middleware"
)

// Handlers bundles the handlers the routes dispatch to.
type Handlers struct {
	Venues        *handler.VenueHandler
	Events        *handler.EventHandler
	Assignments   *handler.SeatAssignmentHandler
	Registrations *handler.RegistrationHandler
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/venues", h.Venues.ListVenues)
}

// RegisterReader registers read-only endpoints available to any
// authenticated faculty member or student.
func RegisterReader(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleFaculty, middleware.RoleStudent),
	)

	g.GET("/events", h.Events.ListEvents)
	g.GET("/events/:id", h.Events.GetEvent)
	g.GET("/events/:id/seat-assignments", h.Assignments.ListAssignments)
	g.GET("/events/:id/seat-map", h.Assignments.SeatMap)
	g.GET("/student/events", h.Events.ListStudentEvents)
}
