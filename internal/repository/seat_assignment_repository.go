package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/event-seating/internal/model"
)

// SeatGuard inspects the seats already claimed in an event while the
// event row is locked.  Returning an error aborts the write and the
// error is passed back to the caller unchanged.
type SeatGuard func(claimed []int) error

// SeatAssignmentRepo persists seat assignments.  Every assignment is
// stored twice: once as a row in seat_assignments carrying the seat and
// row lists as JSON, and once per seat in seat_assignment_seats whose
// primary key (event_id, seat_number) forbids double booking.
type SeatAssignmentRepo struct {
	db *sql.DB
}

// NewSeatAssignmentRepo returns a new SeatAssignmentRepo bound to the given database.
func NewSeatAssignmentRepo(db *sql.DB) *SeatAssignmentRepo { return &SeatAssignmentRepo{db: db} }

const assignmentColumns = `id, event_id, venue_type, department, year, gender, seat_numbers, row_numbers, assigned_by, assigned_at, created_at, updated_at`

// EventVenue returns the venue type of an event, nil when the event has
// none yet, or ErrEventNotFound.
func (r *SeatAssignmentRepo) EventVenue(ctx context.Context, eventID string) (*string, error) {
	const q = `SELECT venue_type FROM events WHERE id = ?`
	var vt sql.NullString
	err := r.db.QueryRowContext(ctx, q, eventID).Scan(&vt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if !vt.Valid || vt.String == "" {
		return nil, nil
	}
	v := vt.String
	return &v, nil
}

// ClaimedSeats lists the seats held in an event, optionally ignoring the
// seats of one assignment.  Seats are returned in ascending order.
func (r *SeatAssignmentRepo) ClaimedSeats(ctx context.Context, eventID, excludeID string) ([]int, error) {
	return claimedSeats(ctx, r.db, eventID, excludeID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func claimedSeats(ctx context.Context, q querier, eventID, excludeID string) ([]int, error) {
	query := `SELECT seat_number FROM seat_assignment_seats WHERE event_id = ?`
	args := []interface{}{eventID}
	if excludeID != "" {
		query += ` AND assignment_id <> ?`
		args = append(args, excludeID)
	}
	query += ` ORDER BY seat_number`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := []int{}
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// ListByEvent returns an event's assignments in creation order.
func (r *SeatAssignmentRepo) ListByEvent(ctx context.Context, eventID string) ([]model.SeatAssignment, error) {
	const q = `SELECT ` + assignmentColumns + ` FROM seat_assignments WHERE event_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.SeatAssignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// GetByID returns the assignment or ErrAssignmentNotFound.
func (r *SeatAssignmentRepo) GetByID(ctx context.Context, id string) (*model.SeatAssignment, error) {
	const q = `SELECT ` + assignmentColumns + ` FROM seat_assignments WHERE id = ?`
	a, err := scanAssignment(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create stores a new assignment.  The event row is locked for the
// duration of the transaction so that the guard sees every seat claimed
// before it and no other writer can claim seats until commit.  An event
// without a venue adopts the assignment's venue.
func (r *SeatAssignmentRepo) Create(ctx context.Context, a *model.SeatAssignment, guard SeatGuard) error {
	seatsJSON, rowsJSON, err := encodeSeats(a)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	venue, err := lockEvent(ctx, tx, a.EventID)
	if err != nil {
		return err
	}
	switch {
	case venue == nil:
		const upd = `UPDATE events SET venue_type = ? WHERE id = ?`
		if _, err := tx.ExecContext(ctx, upd, a.VenueType, a.EventID); err != nil {
			return err
		}
	case *venue != a.VenueType:
		return ErrVenueMismatch
	}

	if err := runGuard(ctx, tx, a.EventID, "", guard); err != nil {
		return err
	}

	const ins = `INSERT INTO seat_assignments (` + assignmentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		a.ID, a.EventID, a.VenueType, a.Department, a.Year, a.Gender,
		seatsJSON, rowsJSON, a.AssignedBy, a.AssignedAt, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return err
	}
	if err := insertSeatsTx(ctx, tx, a.EventID, a.ID, a.SeatNumbers); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateSeats replaces the seats of an existing assignment.  Only
// SeatNumbers, RowNumbers and UpdatedAt are written; the guard is given
// the event's claimed seats minus the assignment's own.
func (r *SeatAssignmentRepo) UpdateSeats(ctx context.Context, a *model.SeatAssignment, guard SeatGuard) error {
	seatsJSON, rowsJSON, err := encodeSeats(a)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const owner = `SELECT event_id FROM seat_assignments WHERE id = ?`
	var eventID string
	if err := tx.QueryRowContext(ctx, owner, a.ID).Scan(&eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAssignmentNotFound
		}
		return err
	}
	if _, err := lockEvent(ctx, tx, eventID); err != nil {
		return err
	}

	if err := runGuard(ctx, tx, eventID, a.ID, guard); err != nil {
		return err
	}

	const del = `DELETE FROM seat_assignment_seats WHERE assignment_id = ?`
	if _, err := tx.ExecContext(ctx, del, a.ID); err != nil {
		return err
	}
	if err := insertSeatsTx(ctx, tx, eventID, a.ID, a.SeatNumbers); err != nil {
		return err
	}
	const upd = `UPDATE seat_assignments SET seat_numbers = ?, row_numbers = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, seatsJSON, rowsJSON, a.UpdatedAt, a.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	a.EventID = eventID
	return nil
}

// Delete removes an assignment and, through the foreign key cascade, its
// seats.  It reports whether a row was removed.
func (r *SeatAssignmentRepo) Delete(ctx context.Context, id string) (bool, error) {
	const q = `DELETE FROM seat_assignments WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// lockEvent takes a row lock on the event and returns its venue type.
func lockEvent(ctx context.Context, tx *sql.Tx, eventID string) (*string, error) {
	const q = `SELECT venue_type FROM events WHERE id = ? FOR UPDATE`
	var vt sql.NullString
	if err := tx.QueryRowContext(ctx, q, eventID).Scan(&vt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !vt.Valid || vt.String == "" {
		return nil, nil
	}
	v := vt.String
	return &v, nil
}

func runGuard(ctx context.Context, tx *sql.Tx, eventID, excludeID string, guard SeatGuard) error {
	if guard == nil {
		return nil
	}
	claimed, err := claimedSeats(ctx, tx, eventID, excludeID)
	if err != nil {
		return err
	}
	return guard(claimed)
}

// insertSeatsTx claims seats in a single multi-row INSERT.  A duplicate
// key is reported as ErrSeatTaken.
func insertSeatsTx(ctx context.Context, tx *sql.Tx, eventID, assignmentID string, seats []int) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_assignment_seats (event_id, seat_number, assignment_id) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, eventID, s, assignmentID)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateEntry(err) {
			return ErrSeatTaken
		}
		return err
	}
	return nil
}

func encodeSeats(a *model.SeatAssignment) ([]byte, []byte, error) {
	seats, err := json.Marshal(a.SeatNumbers)
	if err != nil {
		return nil, nil, fmt.Errorf("encode seat numbers: %w", err)
	}
	rows, err := json.Marshal(a.RowNumbers)
	if err != nil {
		return nil, nil, fmt.Errorf("encode row numbers: %w", err)
	}
	return seats, rows, nil
}

func scanAssignment(s rowScanner) (*model.SeatAssignment, error) {
	var (
		a         model.SeatAssignment
		gender    sql.NullString
		seatsJSON []byte
		rowsJSON  []byte
	)
	err := s.Scan(
		&a.ID, &a.EventID, &a.VenueType, &a.Department, &a.Year, &gender,
		&seatsJSON, &rowsJSON, &a.AssignedBy, &a.AssignedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gender.Valid && gender.String != "" {
		g := gender.String
		a.Gender = &g
	}
	if err := json.Unmarshal(seatsJSON, &a.SeatNumbers); err != nil {
		return nil, fmt.Errorf("decode seat numbers of %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(rowsJSON, &a.RowNumbers); err != nil {
		return nil, fmt.Errorf("decode row numbers of %s: %w", a.ID, err)
	}
	return &a, nil
}
