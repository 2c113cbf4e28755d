package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/repository"
	"github.com/iliyamo/event-seating/internal/venue"
)

// StudentFilter describes the student viewing a seat map.  Seats are
// accessible to the student when they belong to an assignment for the
// student's department and year whose gender is unset or equal.
type StudentFilter struct {
	Department string
	Year       string
	Gender     string
}

func (f *StudentFilter) matches(s Seat) bool {
	if s.AssignmentID == "" {
		return false
	}
	if s.Department != f.Department || s.Year != f.Year {
		return false
	}
	return s.Gender == "" || s.Gender == f.Gender
}

// Seat is one cell of a seat map.
type Seat struct {
	Number       int    `json:"number"`
	Row          int    `json:"row"`
	AssignmentID string `json:"assignment_id,omitempty"`
	Department   string `json:"department,omitempty"`
	Year         string `json:"year,omitempty"`
	Gender       string `json:"gender,omitempty"`
	Accessible   *bool  `json:"accessible,omitempty"`
}

// DepartmentStat counts the seats given to one department.
type DepartmentStat struct {
	Department string `json:"department"`
	Assigned   int    `json:"assigned"`
}

// SeatMap is the full seating picture of an event.
type SeatMap struct {
	EventID     string           `json:"event_id"`
	Venue       *venue.Config    `json:"venue"`
	Seats       []Seat           `json:"seats"`
	Assigned    int              `json:"assigned"`
	Available   int              `json:"available"`
	Departments []DepartmentStat `json:"departments"`
}

// SeatMap renders every seat of the event's venue with its owning group.
// The unfiltered map is cached; a filter is applied on top of it.
func (s *seatingService) SeatMap(ctx context.Context, eventID string, filter *StudentFilter) (*SeatMap, error) {
	m, err := s.cachedSeatMap(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return m, nil
	}
	f := StudentFilter{
		Department: strings.TrimSpace(filter.Department),
		Year:       strings.TrimSpace(filter.Year),
	}
	if g := normalizeGender(filter.Gender); g != nil {
		f.Gender = *g
	}
	if f.Department == "" || f.Year == "" {
		return m, nil
	}
	for i := range m.Seats {
		ok := f.matches(m.Seats[i])
		m.Seats[i].Accessible = &ok
	}
	return m, nil
}

// cachedSeatMap serves the unfiltered map from the cache.  On a miss the
// event's cache version is read before rendering and the result is only
// stored if no write bumped the version in between, so a map rendered
// from pre-write rows cannot outlive the write's invalidation.
func (s *seatingService) cachedSeatMap(ctx context.Context, eventID string) (*SeatMap, error) {
	if s.cache == nil {
		return s.buildSeatMap(ctx, eventID)
	}

	payload, ok, err := s.cache.Get(ctx, eventID)
	if err != nil {
		s.logger.Warn("seat map cache read failed", zap.String("event_id", eventID), zap.Error(err))
	}
	if ok {
		var m SeatMap
		if err := json.Unmarshal(payload, &m); err == nil {
			return &m, nil
		}
		s.logger.Warn("discarding undecodable seat map", zap.String("event_id", eventID))
	}

	version, verr := s.cache.Version(ctx, eventID)
	m, err := s.buildSeatMap(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		s.logger.Warn("seat map cache version read failed", zap.String("event_id", eventID), zap.Error(verr))
		return m, nil
	}

	payload, err = json.Marshal(m)
	if err != nil {
		return m, nil
	}
	stored, err := s.cache.Set(ctx, eventID, payload, version)
	switch {
	case err != nil:
		s.logger.Warn("seat map cache write failed", zap.String("event_id", eventID), zap.Error(err))
	case !stored:
		s.logger.Debug("seat map changed while rendering, not cached", zap.String("event_id", eventID))
	}
	return m, nil
}

func (s *seatingService) buildSeatMap(ctx context.Context, eventID string) (*SeatMap, error) {
	eventVenue, err := s.store.EventVenue(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
		}
		s.logger.Error("load event venue failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, storeErr("load event", err)
	}
	list, err := s.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var vt string
	switch {
	case eventVenue != nil:
		vt = *eventVenue
	case len(list) > 0:
		vt = list[0].VenueType
	default:
		// no venue chosen yet: nothing to lay out
		return &SeatMap{EventID: eventID, Seats: []Seat{}, Departments: []DepartmentStat{}}, nil
	}
	cfg, err := s.catalog.Get(venue.Type(vt))
	if err != nil {
		return nil, err
	}

	m := &SeatMap{EventID: eventID, Venue: &cfg, Seats: make([]Seat, cfg.TotalSeats)}
	for i := range m.Seats {
		n := i + 1
		m.Seats[i] = Seat{Number: n, Row: cfg.Row(n)}
	}

	perDept := map[string]int{}
	for _, a := range list {
		gender := ""
		if a.Gender != nil {
			gender = *a.Gender
		}
		for _, n := range a.SeatNumbers {
			if !cfg.Contains(n) {
				continue
			}
			seat := &m.Seats[n-1]
			seat.AssignmentID = a.ID
			seat.Department = a.Department
			seat.Year = a.Year
			seat.Gender = gender
			m.Assigned++
			perDept[a.Department]++
		}
	}
	m.Available = cfg.TotalSeats - m.Assigned

	m.Departments = make([]DepartmentStat, 0, len(perDept))
	for d, n := range perDept {
		m.Departments = append(m.Departments, DepartmentStat{Department: d, Assigned: n})
	}
	sort.Slice(m.Departments, func(i, j int) bool { return m.Departments[i].Department < m.Departments[j].Department })
	return m, nil
}
