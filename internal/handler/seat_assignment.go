package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/service"
)

// SeatAssignmentHandler serves seat assignments and seat maps.  Write
// routes are expected behind JWTAuth and RequireRole(FACULTY).
type SeatAssignmentHandler struct {
	Seating service.SeatingService
	Logger  *zap.Logger
}

// NewSeatAssignmentHandler returns a SeatAssignmentHandler.
func NewSeatAssignmentHandler(seating service.SeatingService, logger *zap.Logger) *SeatAssignmentHandler {
	if seating == nil {
		panic("nil service passed to NewSeatAssignmentHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatAssignmentHandler{Seating: seating, Logger: logger}
}

type createAssignmentRequest struct {
	VenueType   string `json:"venue_type" validate:"max=32"`
	Department  string `json:"department" validate:"required,max=128"`
	Year        string `json:"year" validate:"required,max=32"`
	Gender      string `json:"gender" validate:"max=16"`
	SeatNumbers []int  `json:"seat_numbers"`
}

type seatsRequest struct {
	SeatNumbers []int `json:"seat_numbers"`
}

type conflictsRequest struct {
	SeatNumbers         []int  `json:"seat_numbers" validate:"required,min=1"`
	ExcludeAssignmentID string `json:"exclude_assignment_id"`
}

// CreateAssignment handles POST /v1/events/:id/seat-assignments.  A seat
// conflict is answered with 409 and the conflicting seats.
func (h *SeatAssignmentHandler) CreateAssignment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createAssignmentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.Seating.Create(c.Request().Context(), service.CreateAssignmentInput{
		EventID:      c.Param("id"),
		VenueType:    req.VenueType,
		Department:   req.Department,
		Year:         req.Year,
		Gender:       req.Gender,
		SeatNumbers:  req.SeatNumbers,
		ActingUserID: userID,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// PreviewConflicts handles POST /v1/events/:id/seat-conflicts.
func (h *SeatAssignmentHandler) PreviewConflicts(c echo.Context) error {
	var req conflictsRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	conflicts, err := h.Seating.FindConflicts(c.Request().Context(), c.Param("id"), req.SeatNumbers, req.ExcludeAssignmentID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conflicts": conflicts})
}

// UpdateAssignment handles PUT and PATCH /v1/seat-assignments/:id.
func (h *SeatAssignmentHandler) UpdateAssignment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req seatsRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.Seating.Update(c.Request().Context(), c.Param("id"), req.SeatNumbers, userID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, a)
}

// DeleteAssignment handles DELETE /v1/seat-assignments/:id.  It answers
// 204 whether or not the assignment existed.
func (h *SeatAssignmentHandler) DeleteAssignment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Seating.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAssignments handles GET /v1/events/:id/seat-assignments.
func (h *SeatAssignmentHandler) ListAssignments(c echo.Context) error {
	list, err := h.Seating.ListByEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// SeatMap handles GET /v1/events/:id/seat-map.  department and year
// (plus optional gender) switch on the student view.
func (h *SeatAssignmentHandler) SeatMap(c echo.Context) error {
	var filter *service.StudentFilter
	if d, y := c.QueryParam("department"), c.QueryParam("year"); d != "" && y != "" {
		filter = &service.StudentFilter{Department: d, Year: y, Gender: c.QueryParam("gender")}
	}
	m, err := h.Seating.SeatMap(c.Request().Context(), c.Param("id"), filter)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, m)
}
