package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-seating/internal/model"
)

// RegistrationPolicy is the part of an event that decides whether a
// student may still register.
type RegistrationPolicy struct {
	AllowRegistration bool
	RegistrationEnd   *time.Time
	EventDate         time.Time
	MaxParticipants   *int
}

// RegistrationGuard is called inside the registration transaction with
// the locked event's policy and its current number of active
// registrations.  A non-nil error aborts the registration.
type RegistrationGuard func(p RegistrationPolicy, registered int) error

// RegistrationRepo manages event registrations and attendance.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given database.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, event_id, student_id, student_name, student_email, student_department, ` +
	`student_year, student_phone, status, registration_date`

// Register stores a registration.  The event row is locked so that the
// capacity seen by the guard holds until commit.  A second registration
// by the same student is reported as ErrAlreadyRegistered.
func (r *RegistrationRepo) Register(ctx context.Context, reg *model.Registration, guard RegistrationGuard) error {
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

	const lock = `SELECT allow_registration, registration_end, event_date, max_participants
	              FROM events WHERE id = ? AND is_active = 1 FOR UPDATE`
	var (
		p       RegistrationPolicy
		regEnd  sql.NullTime
		maxPart sql.NullInt64
	)
	if err := tx.QueryRowContext(ctx, lock, reg.EventID).Scan(&p.AllowRegistration, &regEnd, &p.EventDate, &maxPart); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	if regEnd.Valid {
		t := regEnd.Time
		p.RegistrationEnd = &t
	}
	if maxPart.Valid {
		n := int(maxPart.Int64)
		p.MaxParticipants = &n
	}

	if guard != nil {
		const count = `SELECT COUNT(*) FROM event_registrations WHERE event_id = ? AND status IN (?, ?)`
		var registered int
		if err := tx.QueryRowContext(ctx, count, reg.EventID,
			model.RegistrationRegistered, model.RegistrationAttended).Scan(&registered); err != nil {
			return err
		}
		if err := guard(p, registered); err != nil {
			return err
		}
	}

	const ins = `INSERT INTO event_registrations (` + registrationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		reg.ID, reg.EventID, reg.StudentID, reg.StudentName, reg.StudentEmail, reg.StudentDepartment,
		reg.StudentYear, reg.StudentPhone, reg.Status, reg.RegistrationDate,
	); err != nil {
		if isDuplicateEntry(err) {
			return ErrAlreadyRegistered
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByEvent returns an event's registrations in sign-up order.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM event_registrations
	           WHERE event_id = ? ORDER BY registration_date, id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Registration{}
	for rows.Next() {
		var (
			reg   model.Registration
			phone sql.NullString
		)
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.StudentID, &reg.StudentName, &reg.StudentEmail,
			&reg.StudentDepartment, &reg.StudentYear, &phone, &reg.Status, &reg.RegistrationDate); err != nil {
			return nil, err
		}
		if phone.Valid {
			p := phone.String
			reg.StudentPhone = &p
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// MarkAttendance records (or re-records) a student's attendance and sets
// the registration status to match.  It returns ErrRegistrationNotFound
// when the student never registered.  On success a.ID and
// a.RegistrationID hold the stored row's keys.
func (r *RegistrationRepo) MarkAttendance(ctx context.Context, a *model.Attendance, status string) error {
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

	const find = `SELECT id FROM event_registrations WHERE event_id = ? AND student_id = ? FOR UPDATE`
	if err := tx.QueryRowContext(ctx, find, a.EventID, a.StudentID).Scan(&a.RegistrationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return err
	}

	const upsert = `INSERT INTO event_attendance
	                  (id, event_id, student_id, registration_id, attendance_status, marked_by, notes, marked_at)
	                VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	                ON DUPLICATE KEY UPDATE
	                  attendance_status = VALUES(attendance_status),
	                  marked_by = VALUES(marked_by),
	                  notes = VALUES(notes),
	                  marked_at = VALUES(marked_at)`
	if _, err := tx.ExecContext(ctx, upsert,
		a.ID, a.EventID, a.StudentID, a.RegistrationID, a.Status, a.MarkedBy, a.Notes, a.MarkedAt,
	); err != nil {
		return err
	}
	// a re-mark keeps the row created by the first one
	const id = `SELECT id FROM event_attendance WHERE event_id = ? AND student_id = ?`
	if err := tx.QueryRowContext(ctx, id, a.EventID, a.StudentID).Scan(&a.ID); err != nil {
		return err
	}

	const upd = `UPDATE event_registrations SET status = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, status, a.RegistrationID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
