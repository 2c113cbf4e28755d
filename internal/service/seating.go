// Package service holds the seat assignment business logic: seat
// validation against the venue catalog, conflict detection, and the
// create/update/delete orchestration around the repository, the seat map
// cache and the change feed.
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
	"github.com/iliyamo/event-seating/internal/queue"
	"github.com/iliyamo/event-seating/internal/repository"
	"github.com/iliyamo/event-seating/internal/venue"
)

// AssignmentStore is the persistence contract the seating service needs.
// Create and UpdateSeats must run the guard and the write under one lock
// on the event, and must reject a seat already held in the event with
// repository.ErrSeatTaken.
type AssignmentStore interface {
	EventVenue(ctx context.Context, eventID string) (*string, error)
	ClaimedSeats(ctx context.Context, eventID, excludeID string) ([]int, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.SeatAssignment, error)
	GetByID(ctx context.Context, id string) (*model.SeatAssignment, error)
	Create(ctx context.Context, a *model.SeatAssignment, guard repository.SeatGuard) error
	UpdateSeats(ctx context.Context, a *model.SeatAssignment, guard repository.SeatGuard) error
	Delete(ctx context.Context, id string) (bool, error)
}

// SeatMapStore caches rendered seat maps per event.  Every Invalidate
// bumps the event's version; Set stores only when the version is still
// the one the caller read before rendering.
type SeatMapStore interface {
	Get(ctx context.Context, eventID string) ([]byte, bool, error)
	Version(ctx context.Context, eventID string) (int64, error)
	Set(ctx context.Context, eventID string, payload []byte, version int64) (bool, error)
	Invalidate(ctx context.Context, eventID string) error
}

// ChangePublisher announces committed assignment changes.
type ChangePublisher interface {
	PublishSeatAssignmentChanged(ctx context.Context, ev queue.SeatAssignmentChangedEvent) error
}

// CreateAssignmentInput carries a new assignment request.  VenueType may
// be empty, in which case the event's venue is used.
type CreateAssignmentInput struct {
	EventID      string
	VenueType    string
	Department   string
	Year         string
	Gender       string
	SeatNumbers  []int
	ActingUserID string
}

// SeatingService creates, updates, deletes and lists seat assignments.
type SeatingService interface {
	FindConflicts(ctx context.Context, eventID string, seats []int, excludeID string) ([]int, error)
	Create(ctx context.Context, in CreateAssignmentInput) (*model.SeatAssignment, error)
	Update(ctx context.Context, id string, seats []int, actingUserID string) (*model.SeatAssignment, error)
	Delete(ctx context.Context, id string, actingUserID string) error
	ListByEvent(ctx context.Context, eventID string) ([]model.SeatAssignment, error)
	SeatMap(ctx context.Context, eventID string, filter *StudentFilter) (*SeatMap, error)
}

// SeatingDeps bundles the collaborators of the seating service.  Cache
// and Publisher are optional.
type SeatingDeps struct {
	Catalog   *venue.Catalog
	Store     AssignmentStore
	Cache     SeatMapStore
	Publisher ChangePublisher
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

type seatingService struct {
	catalog   *venue.Catalog
	store     AssignmentStore
	cache     SeatMapStore
	publisher ChangePublisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// publishTimeout bounds the broker round trip made after a write.
const publishTimeout = 3 * time.Second

// NewSeatingService creates a SeatingService.
func NewSeatingService(d SeatingDeps) SeatingService {
	s := &seatingService{
		catalog:   d.Catalog,
		store:     d.Store,
		cache:     d.Cache,
		publisher: d.Publisher,
		logger:    d.Logger,
		now:       d.Now,
		newID:     d.NewID,
	}
	if s.catalog == nil {
		s.catalog = venue.Default()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// ────────────────────── FindConflicts ──────────────────────

// FindConflicts returns the candidate seats already owned by another
// assignment of the event, in candidate order.  excludeID names an
// assignment whose own seats do not count.
func (s *seatingService) FindConflicts(ctx context.Context, eventID string, seats []int, excludeID string) ([]int, error) {
	claimed, err := s.store.ClaimedSeats(ctx, eventID, excludeID)
	if err != nil {
		s.logger.Error("load claimed seats failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, storeErr("check seat conflicts", err)
	}
	return intersect(seats, claimed), nil
}

// ────────────────────── Create ──────────────────────

func (s *seatingService) Create(ctx context.Context, in CreateAssignmentInput) (*model.SeatAssignment, error) {
	actor := strings.TrimSpace(in.ActingUserID)
	if actor == "" {
		return nil, ErrAuthenticationRequired
	}
	dept := strings.TrimSpace(in.Department)
	year := strings.TrimSpace(in.Year)
	if dept == "" {
		return nil, fmt.Errorf("%w: department is required", ErrInvalidInput)
	}
	if year == "" {
		return nil, fmt.Errorf("%w: year is required", ErrInvalidInput)
	}
	seats := dedupe(in.SeatNumbers)

	eventVenue, err := s.store.EventVenue(ctx, in.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fmt.Errorf("event %s: %w", in.EventID, ErrNotFound)
		}
		s.logger.Error("load event venue failed", zap.String("event_id", in.EventID), zap.Error(err))
		return nil, storeErr("load event", err)
	}

	requested := strings.TrimSpace(in.VenueType)
	switch {
	case eventVenue != nil && requested == "":
		requested = *eventVenue
	case eventVenue != nil && requested != *eventVenue:
		return nil, fmt.Errorf("%w: event is held in %s", ErrVenueMismatch, *eventVenue)
	case requested == "":
		return nil, fmt.Errorf("%w: venue_type is required for an event without a venue", ErrInvalidInput)
	}
	cfg, err := s.catalog.Get(venue.Type(requested))
	if err != nil {
		return nil, err
	}
	if err := validateSeats(cfg, seats); err != nil {
		return nil, err
	}

	now := s.now()
	a := &model.SeatAssignment{
		ID:          s.newID(),
		EventID:     in.EventID,
		VenueType:   string(cfg.Type),
		Department:  dept,
		Year:        year,
		Gender:      normalizeGender(in.Gender),
		SeatNumbers: seats,
		RowNumbers:  cfg.RowsFor(seats),
		AssignedBy:  actor,
		AssignedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, a, conflictGuard(seats)); err != nil {
		return nil, s.writeErr(ctx, "create seat assignment", a.EventID, "", seats, err)
	}

	s.logger.Info("seat assignment created",
		zap.String("assignment_id", a.ID),
		zap.String("event_id", a.EventID),
		zap.String("group", a.Group()),
		zap.Ints("seats", a.SeatNumbers),
	)
	s.afterWrite(ctx, queue.ActionCreated, a, actor)
	return a, nil
}

// ────────────────────── Update ──────────────────────

// Update replaces the seats of an assignment.  Rows are recomputed with
// the assignment's own venue geometry.
func (s *seatingService) Update(ctx context.Context, id string, seats []int, actingUserID string) (*model.SeatAssignment, error) {
	actor := strings.TrimSpace(actingUserID)
	if actor == "" {
		return nil, ErrAuthenticationRequired
	}
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return nil, fmt.Errorf("seat assignment %s: %w", id, ErrNotFound)
		}
		s.logger.Error("load seat assignment failed", zap.String("assignment_id", id), zap.Error(err))
		return nil, storeErr("load seat assignment", err)
	}
	cfg, err := s.catalog.Get(venue.Type(a.VenueType))
	if err != nil {
		return nil, err
	}
	seats = dedupe(seats)
	if err := validateSeats(cfg, seats); err != nil {
		return nil, err
	}

	a.SeatNumbers = seats
	a.RowNumbers = cfg.RowsFor(seats)
	a.UpdatedAt = s.now()

	if err := s.store.UpdateSeats(ctx, a, conflictGuard(seats)); err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return nil, fmt.Errorf("seat assignment %s: %w", id, ErrNotFound)
		}
		return nil, s.writeErr(ctx, "update seat assignment", a.EventID, a.ID, seats, err)
	}

	s.logger.Info("seat assignment updated",
		zap.String("assignment_id", a.ID),
		zap.String("event_id", a.EventID),
		zap.Ints("seats", a.SeatNumbers),
	)
	s.afterWrite(ctx, queue.ActionUpdated, a, actor)
	return a, nil
}

// ────────────────────── Delete ──────────────────────

// Delete removes an assignment.  Deleting an assignment that does not
// exist succeeds.
func (s *seatingService) Delete(ctx context.Context, id string, actingUserID string) error {
	actor := strings.TrimSpace(actingUserID)
	if actor == "" {
		return ErrAuthenticationRequired
	}
	a, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAssignmentNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("load seat assignment failed", zap.String("assignment_id", id), zap.Error(err))
		return storeErr("delete seat assignment", err)
	}

	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		s.logger.Error("delete seat assignment failed", zap.String("assignment_id", id), zap.Error(err))
		return storeErr("delete seat assignment", err)
	}
	if !removed {
		return nil
	}

	s.logger.Info("seat assignment deleted", zap.String("assignment_id", id), zap.String("event_id", a.EventID))
	s.afterWrite(ctx, queue.ActionDeleted, a, actor)
	return nil
}

// ────────────────────── ListByEvent ──────────────────────

// ListByEvent returns an event's assignments ordered by creation.
func (s *seatingService) ListByEvent(ctx context.Context, eventID string) ([]model.SeatAssignment, error) {
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("list seat assignments failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, storeErr("fetch seat assignments", err)
	}
	return list, nil
}

// writeErr maps a failed Create or UpdateSeats to a service error.  A
// duplicate key from the junction table means a concurrent writer won
// the seats; the conflicting seats are read back so the caller can name
// them.
func (s *seatingService) writeErr(ctx context.Context, op, eventID, excludeID string, seats []int, err error) error {
	var conflict *SeatConflictError
	switch {
	case errors.As(err, &conflict):
		return conflict
	case errors.Is(err, repository.ErrSeatTaken):
		taken, ferr := s.FindConflicts(ctx, eventID, seats, excludeID)
		if ferr != nil || len(taken) == 0 {
			taken = seats
		}
		return &SeatConflictError{Seats: taken}
	case errors.Is(err, repository.ErrVenueMismatch):
		return ErrVenueMismatch
	case errors.Is(err, repository.ErrEventNotFound):
		return fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	s.logger.Error(op+" failed", zap.String("event_id", eventID), zap.Error(err))
	return storeErr(op, err)
}

// afterWrite drops the cached seat map and announces the change.  Neither
// failure is reported to the caller; the write has already committed.
func (s *seatingService) afterWrite(ctx context.Context, action string, a *model.SeatAssignment, actor string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, a.EventID); err != nil {
			s.logger.Warn("seat map cache invalidation failed", zap.String("event_id", a.EventID), zap.Error(err))
		}
	}
	if s.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := queue.SeatAssignmentChangedEvent{
		Action:       action,
		AssignmentID: a.ID,
		EventID:      a.EventID,
		VenueType:    a.VenueType,
		Department:   a.Department,
		Year:         a.Year,
		Gender:       a.Gender,
		SeatNumbers:  a.SeatNumbers,
		RowNumbers:   a.RowNumbers,
		ChangedBy:    actor,
		ChangedAt:    s.now(),
	}
	if err := s.publisher.PublishSeatAssignmentChanged(pctx, ev); err != nil {
		s.logger.Warn("publish seat assignment change failed",
			zap.String("assignment_id", a.ID), zap.String("action", action), zap.Error(err))
	}
}

func conflictGuard(seats []int) repository.SeatGuard {
	return func(claimed []int) error {
		if c := intersect(seats, claimed); len(c) > 0 {
			return &SeatConflictError{Seats: c}
		}
		return nil
	}
}

func validateSeats(cfg venue.Config, seats []int) error {
	if len(seats) == 0 {
		return fmt.Errorf("%w: at least one seat is required", ErrInvalidSeatNumber)
	}
	for _, seat := range seats {
		if !cfg.Contains(seat) {
			return fmt.Errorf("%w: seat %d is outside 1..%d of %s", ErrInvalidSeatNumber, seat, cfg.TotalSeats, cfg.Name)
		}
	}
	return nil
}

// intersect returns the members of candidates found in claimed, keeping
// candidate order.
func intersect(candidates, claimed []int) []int {
	taken := make(map[int]struct{}, len(claimed))
	for _, s := range claimed {
		taken[s] = struct{}{}
	}
	out := []int{}
	for _, s := range candidates {
		if _, ok := taken[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// dedupe drops repeated seats, keeping the first occurrence.
func dedupe(seats []int) []int {
	seen := make(map[int]struct{}, len(seats))
	out := make([]int, 0, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func normalizeGender(g string) *string {
	g = strings.ToLower(strings.TrimSpace(g))
	if g == "" || g == "all" {
		return nil
	}
	return &g
}
