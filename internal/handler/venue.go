package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seating/internal/venue"
)

// VenueHandler serves the venue catalog.
type VenueHandler struct {
	Catalog *venue.Catalog
}

// NewVenueHandler returns a VenueHandler for catalog.
func NewVenueHandler(catalog *venue.Catalog) *VenueHandler {
	if catalog == nil {
		panic("nil catalog passed to NewVenueHandler")
	}
	return &VenueHandler{Catalog: catalog}
}

// ListVenues handles GET /v1/venues.
func (h *VenueHandler) ListVenues(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Catalog.All()})
}
