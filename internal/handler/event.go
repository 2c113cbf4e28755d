package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/service"
)

// EventHandler serves the events seat assignments belong to.
type EventHandler struct {
	Events service.EventService
	Logger *zap.Logger
}

// NewEventHandler returns an EventHandler.
func NewEventHandler(events service.EventService, logger *zap.Logger) *EventHandler {
	if events == nil {
		panic("nil service passed to NewEventHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{Events: events, Logger: logger}
}

type createEventRequest struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description"`
	EventType   string    `json:"event_type" validate:"max=64"`
	Venue       string    `json:"venue" validate:"max=255"`
	VenueType   string    `json:"venue_type" validate:"max=32"`
	EventDate   time.Time `json:"event_date" validate:"required"`

	TargetDepartments []string   `json:"target_departments" validate:"omitempty,dive,max=64"`
	TargetYears       []string   `json:"target_years" validate:"omitempty,dive,max=32"`
	MaxParticipants   *int       `json:"max_participants" validate:"omitempty,gte=0"`
	AllowRegistration *bool      `json:"allow_registration"`
	RegistrationEnd   *time.Time `json:"registration_end"`
}

// CreateEvent handles POST /v1/events.
func (h *EventHandler) CreateEvent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	e, err := h.Events.Create(c.Request().Context(), service.CreateEventInput{
		Title:        req.Title,
		Description:  req.Description,
		EventType:    req.EventType,
		Venue:        req.Venue,
		VenueType:    req.VenueType,
		EventDate:    req.EventDate,
		ActingUserID: userID,

		TargetDepartments: req.TargetDepartments,
		TargetYears:       req.TargetYears,
		MaxParticipants:   req.MaxParticipants,
		AllowRegistration: req.AllowRegistration,
		RegistrationEnd:   req.RegistrationEnd,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// GetEvent handles GET /v1/events/:id.
func (h *EventHandler) GetEvent(c echo.Context) error {
	e, err := h.Events.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, e)
}

// ListEvents handles GET /v1/events?limit=.
func (h *EventHandler) ListEvents(c echo.Context) error {
	list, err := h.Events.ListActive(c.Request().Context(), queryLimit(c, 50, 200))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// ListStudentEvents handles GET /v1/student/events?department=&year=.
func (h *EventHandler) ListStudentEvents(c echo.Context) error {
	list, err := h.Events.ListForStudent(c.Request().Context(), c.QueryParam("department"), c.QueryParam("year"))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}
