package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/event-seating/internal/venue"
)

// ── seating errors ──

var (
	// ErrUnknownVenue is returned when a venue type is not in the catalog.
	ErrUnknownVenue = venue.ErrUnknownVenue
	// ErrInvalidSeatNumber is returned for an empty seat list or a seat
	// outside 1..TotalSeats.
	ErrInvalidSeatNumber = errors.New("invalid seat number")
	// ErrSeatConflict is matched by every *SeatConflictError.
	ErrSeatConflict = errors.New("seat conflict")
	// ErrNotFound is returned when an event or assignment does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuthenticationRequired is returned when no acting user is known.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrVenueMismatch is returned when an assignment names a venue other
	// than its event's.
	ErrVenueMismatch = errors.New("venue does not match the event")
	// ErrInvalidInput covers missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreFailure is matched by every *StoreError.
	ErrStoreFailure = errors.New("store failure")
)

// ── registration errors ──

var (
	// ErrAlreadyRegistered is returned for a second registration of the
	// same student to an event.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrEventFull is returned once max_participants registrations exist.
	ErrEventFull = errors.New("event is full")
	// ErrRegistrationClosed is returned when registration is disabled or
	// its deadline has passed.
	ErrRegistrationClosed = errors.New("registration is closed")
)

// SeatConflictError names the requested seats that another assignment of
// the event already owns.
type SeatConflictError struct {
	Seats []int
}

func (e *SeatConflictError) Error() string {
	parts := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		parts[i] = strconv.Itoa(s)
	}
	if len(parts) == 1 {
		return "seat " + parts[0] + " is already assigned"
	}
	return "seats " + strings.Join(parts, ", ") + " are already assigned"
}

// Is lets errors.Is(err, ErrSeatConflict) match.
func (e *SeatConflictError) Is(target error) bool { return target == ErrSeatConflict }

// StoreError wraps a persistence failure together with the operation that
// was attempted.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("failed to %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreFailure) match.
func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

func storeErr(op string, err error) error { return &StoreError{Op: op, Err: err} }
