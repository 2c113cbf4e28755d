package model

import "time"

// SeatAssignment gives a group of students, identified by department,
// year and optionally gender, a set of seats for one event.  Within an
// event no seat may belong to more than one assignment; the database
// enforces this through the seat_assignment_seats junction table.
//
// Fields:
//  ID          – primary key (UUID).
//  EventID     – owning event.
//  VenueType   – catalog venue; always the event's venue.
//  Department  – department of the group.
//  Year        – year of study of the group.
//  Gender      – optional gender of the group.
//  SeatNumbers – seats owned by the group, in the order they were chosen.
//  RowNumbers  – row of each seat, parallel to SeatNumbers.
//  AssignedBy  – identity of the faculty member who made the assignment.
//  AssignedAt  – when the assignment was made.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type SeatAssignment struct {
	ID          string    `json:"id"`           // seat_assignments.id
	EventID     string    `json:"event_id"`     // seat_assignments.event_id
	VenueType   string    `json:"venue_type"`   // seat_assignments.venue_type
	Department  string    `json:"department"`   // seat_assignments.department
	Year        string    `json:"year"`         // seat_assignments.year
	Gender      *string   `json:"gender"`       // seat_assignments.gender (nullable)
	SeatNumbers []int     `json:"seat_numbers"` // seat_assignments.seat_numbers (JSON)
	RowNumbers  []int     `json:"row_numbers"`  // seat_assignments.row_numbers (JSON)
	AssignedBy  string    `json:"assigned_by"`  // seat_assignments.assigned_by
	AssignedAt  time.Time `json:"assigned_at"`  // seat_assignments.assigned_at
	CreatedAt   time.Time `json:"created_at"`   // seat_assignments.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // seat_assignments.updated_at
}

// Group returns a short label such as "CSE 2 (female)".
func (a SeatAssignment) Group() string {
	label := a.Department + " " + a.Year
	if a.Gender != nil && *a.Gender != "" {
		label += " (" + *a.Gender + ")"
	}
	return label
}
