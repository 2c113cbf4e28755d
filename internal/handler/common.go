// Package handler exposes the HTTP handlers of the seating API.  Handlers
// bind and validate requests, call the services and translate service
// errors into JSON responses of the form {"error": "..."}.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/middleware"
	"github.com/iliyamo/event-seating/internal/service"
)

// getUserID extracts the authenticated subject set by the JWT middleware.
func getUserID(c echo.Context) (string, error) {
	if id, ok := c.Get(middleware.ContextUserID).(string); ok && id != "" {
		return id, nil
	}
	return "", errors.New("invalid user_id in context")
}

// respondError maps a service error to its HTTP status.  Store failures
// are logged with the full cause and reported as the failed operation
// only.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var conflict *service.SeatConflictError
	var storeErr *service.StoreError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": conflict.Error(), "conflicts": conflict.Seats})
	case errors.Is(err, service.ErrAuthenticationRequired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrRegistrationClosed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidSeatNumber),
		errors.Is(err, service.ErrUnknownVenue),
		errors.Is(err, service.ErrVenueMismatch),
		errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &storeErr):
		logger.Error("store failure", zap.String("op", storeErr.Op), zap.Error(storeErr.Err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to " + storeErr.Op})
	}
	logger.Error("unhandled error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// queryLimit reads ?limit=, defaulting to def and capping at max.
func queryLimit(c echo.Context, def, max int) int {
	n, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
