package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/event-seating/internal/model"
)

// EventRepo manages persistence for events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, description, event_type, venue, venue_type, event_date, created_by, ` +
	`target_departments, target_years, max_participants, allow_registration, registration_end, ` +
	`is_active, created_at, updated_at`

// Create inserts a new event.  The caller supplies the ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	depts, err := jsonList(e.TargetDepartments)
	if err != nil {
		return err
	}
	years, err := jsonList(e.TargetYears)
	if err != nil {
		return err
	}
	const q = `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		e.ID, e.Title, e.Description, e.EventType, e.Venue, e.VenueType, e.EventDate, e.CreatedBy,
		depts, years, e.MaxParticipants, e.AllowRegistration, e.RegistrationEnd,
		e.IsActive, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// GetByID returns the event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListActive returns published events, newest first.  A non-positive
// limit returns every active event.
func (r *EventRepo) ListActive(ctx context.Context, limit int) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE is_active = 1 ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, q, args...)
}

// ListForStudent returns active events starting at or after from that are
// open to the department and year, soonest first.  A NULL target list
// opens the event to everyone.
func (r *EventRepo) ListForStudent(ctx context.Context, department, year string, from time.Time) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events
	           WHERE is_active = 1 AND event_date >= ?
	             AND (target_departments IS NULL OR JSON_CONTAINS(target_departments, JSON_QUOTE(?)))
	             AND (target_years IS NULL OR JSON_CONTAINS(target_years, JSON_QUOTE(?)))
	           ORDER BY event_date, id`
	return r.list(ctx, q, from, department, year)
}

func (r *EventRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s rowScanner) (*model.Event, error) {
	var (
		e           model.Event
		description sql.NullString
		venueType   sql.NullString
		depts       []byte
		years       []byte
		maxPart     sql.NullInt64
		regEnd      sql.NullTime
	)
	err := s.Scan(
		&e.ID, &e.Title, &description, &e.EventType, &e.Venue, &venueType, &e.EventDate, &e.CreatedBy,
		&depts, &years, &maxPart, &e.AllowRegistration, &regEnd,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if e.TargetDepartments, err = parseList(depts); err != nil {
		return nil, err
	}
	if e.TargetYears, err = parseList(years); err != nil {
		return nil, err
	}
	if maxPart.Valid {
		n := int(maxPart.Int64)
		e.MaxParticipants = &n
	}
	if regEnd.Valid {
		t := regEnd.Time
		e.RegistrationEnd = &t
	}
	if description.Valid {
		d := description.String
		e.Description = &d
	}
	if venueType.Valid && venueType.String != "" {
		v := venueType.String
		e.VenueType = &v
	}
	return &e, nil
}

// jsonList encodes a target list for a JSON column; an empty list is
// stored as NULL.
func jsonList(v []string) (interface{}, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func parseList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
