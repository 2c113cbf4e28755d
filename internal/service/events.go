package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/model"
	"github.com/iliyamo/event-seating/internal/repository"
	"github.com/iliyamo/event-seating/internal/venue"
)

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	ListActive(ctx context.Context, limit int) ([]model.Event, error)
	ListForStudent(ctx context.Context, department, year string, from time.Time) ([]model.Event, error)
}

// CreateEventInput carries a new event.  VenueType is optional; when set
// it must name a catalog venue.  Empty target lists open the event to
// every department or year.
type CreateEventInput struct {
	Title             string
	Description       string
	EventType         string
	Venue             string
	VenueType         string
	EventDate         time.Time
	TargetDepartments []string
	TargetYears       []string
	MaxParticipants   *int
	// AllowRegistration defaults to true when nil.
	AllowRegistration *bool
	RegistrationEnd   *time.Time
	ActingUserID      string
}

// EventService manages the events seat assignments hang off.
type EventService interface {
	Create(ctx context.Context, in CreateEventInput) (*model.Event, error)
	Get(ctx context.Context, id string) (*model.Event, error)
	ListActive(ctx context.Context, limit int) ([]model.Event, error)
	// ListForStudent returns the upcoming active events open to the
	// given department and year.
	ListForStudent(ctx context.Context, department, year string) ([]model.Event, error)
}

type eventService struct {
	catalog *venue.Catalog
	store   EventStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewEventService creates an EventService.
func NewEventService(catalog *venue.Catalog, store EventStore, logger *zap.Logger) EventService {
	if catalog == nil {
		catalog = venue.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &eventService{
		catalog: catalog,
		store:   store,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *eventService) Create(ctx context.Context, in CreateEventInput) (*model.Event, error) {
	actor := strings.TrimSpace(in.ActingUserID)
	if actor == "" {
		return nil, ErrAuthenticationRequired
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.EventDate.IsZero() {
		return nil, fmt.Errorf("%w: event_date is required", ErrInvalidInput)
	}
	if in.MaxParticipants != nil && *in.MaxParticipants < 0 {
		return nil, fmt.Errorf("%w: max_participants must not be negative", ErrInvalidInput)
	}

	now := s.now()
	e := &model.Event{
		ID:        uuid.NewString(),
		Title:     title,
		EventType: strings.TrimSpace(in.EventType),
		Venue:     strings.TrimSpace(in.Venue),
		EventDate: in.EventDate.UTC(),
		CreatedBy: actor,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,

		TargetDepartments: trimList(in.TargetDepartments),
		TargetYears:       trimList(in.TargetYears),
		MaxParticipants:   in.MaxParticipants,
		AllowRegistration: in.AllowRegistration == nil || *in.AllowRegistration,
	}
	if in.RegistrationEnd != nil {
		end := in.RegistrationEnd.UTC()
		e.RegistrationEnd = &end
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		e.Description = &d
	}
	if vt := strings.TrimSpace(in.VenueType); vt != "" {
		cfg, err := s.catalog.Get(venue.Type(vt))
		if err != nil {
			return nil, err
		}
		t := string(cfg.Type)
		e.VenueType = &t
		if e.Venue == "" {
			e.Venue = cfg.Name
		}
	}

	if err := s.store.Create(ctx, e); err != nil {
		s.logger.Error("create event failed", zap.Error(err))
		return nil, storeErr("create event", err)
	}
	s.logger.Info("event created", zap.String("event_id", e.ID), zap.String("created_by", actor))
	return e, nil
}

func (s *eventService) Get(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		s.logger.Error("load event failed", zap.String("event_id", id), zap.Error(err))
		return nil, storeErr("fetch event", err)
	}
	return e, nil
}

func (s *eventService) ListActive(ctx context.Context, limit int) ([]model.Event, error) {
	list, err := s.store.ListActive(ctx, limit)
	if err != nil {
		s.logger.Error("list events failed", zap.Error(err))
		return nil, storeErr("fetch events", err)
	}
	return list, nil
}

func (s *eventService) ListForStudent(ctx context.Context, department, year string) ([]model.Event, error) {
	department, year = strings.TrimSpace(department), strings.TrimSpace(year)
	if department == "" || year == "" {
		return nil, fmt.Errorf("%w: department and year are required", ErrInvalidInput)
	}
	list, err := s.store.ListForStudent(ctx, department, year, s.now())
	if err != nil {
		s.logger.Error("list student events failed",
			zap.String("department", department), zap.String("year", year), zap.Error(err))
		return nil, storeErr("fetch events", err)
	}
	return list, nil
}

// trimList drops blank entries and surrounding space.
func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
