package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/service"
)

// RegistrationHandler serves event registration and attendance.
// Register is a STUDENT route; the listing and attendance routes are
// FACULTY routes.
type RegistrationHandler struct {
	Registrations service.RegistrationService
	Logger        *zap.Logger
}

// NewRegistrationHandler returns a RegistrationHandler.
func NewRegistrationHandler(registrations service.RegistrationService, logger *zap.Logger) *RegistrationHandler {
	if registrations == nil {
		panic("nil service passed to NewRegistrationHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationHandler{Registrations: registrations, Logger: logger}
}

type registerRequest struct {
	Name       string `json:"student_name" validate:"required,max=255"`
	Email      string `json:"student_email" validate:"required,email,max=255"`
	Department string `json:"student_department" validate:"required,max=128"`
	Year       string `json:"student_year" validate:"required,max=32"`
	Phone      string `json:"student_phone" validate:"max=32"`
}

type attendanceRequest struct {
	Status string `json:"attendance_status" validate:"required,oneof=present absent late"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// Register handles POST /v1/events/:id/registrations.  The registering
// student is the token subject.
func (h *RegistrationHandler) Register(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req registerRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	reg, err := h.Registrations.Register(c.Request().Context(), service.RegisterInput{
		EventID:    c.Param("id"),
		StudentID:  userID,
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Year:       req.Year,
		Phone:      req.Phone,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, reg)
}

// ListRegistrations handles GET /v1/events/:id/registrations.
func (h *RegistrationHandler) ListRegistrations(c echo.Context) error {
	list, err := h.Registrations.ListByEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// MarkAttendance handles PUT /v1/events/:id/attendance/:student_id.
func (h *RegistrationHandler) MarkAttendance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req attendanceRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.Registrations.MarkAttendance(c.Request().Context(), service.MarkAttendanceInput{
		EventID:      c.Param("id"),
		StudentID:    c.Param("student_id"),
		Status:       req.Status,
		Notes:        req.Notes,
		ActingUserID: userID,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, a)
}
