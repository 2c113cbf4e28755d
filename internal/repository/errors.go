// Package repository defines error types that are reused across the
// repositories.  These sentinel values allow higher layers such as the
// seating service to distinguish between failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEventNotFound indicates that an event was not located in the DB.
var ErrEventNotFound = errors.New("event not found")

// ErrAssignmentNotFound indicates that a seat assignment was not located
// in the DB.
var ErrAssignmentNotFound = errors.New("seat assignment not found")

// ErrSeatTaken is returned when the seat_assignment_seats primary key
// rejects a seat that another assignment already holds.
var ErrSeatTaken = errors.New("seat already taken")

// ErrVenueMismatch is returned when an assignment names a venue that
// differs from the one its event is held in.
var ErrVenueMismatch = errors.New("venue does not match event")

// ErrAlreadyRegistered is returned when the (event_id, student_id) key of
// event_registrations rejects a second registration.
var ErrAlreadyRegistered = errors.New("student already registered")

// ErrRegistrationNotFound indicates that the student has no registration
// for the event.
var ErrRegistrationNotFound = errors.New("registration not found")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicateEntry reports whether err is a MySQL duplicate key error.
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
