// Package queue defines the messages exchanged over RabbitMQ together with
// the publisher and the background consumer that act on them.
package queue

import "time"

// SeatAssignmentChangedQueue is the durable queue every seat assignment
// change is published to.
const SeatAssignmentChangedQueue = "seat_assignment.changed"

// Change actions carried by SeatAssignmentChangedEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// SeatAssignmentChangedEvent is published after a seat assignment is
// created, updated or deleted.  It carries enough of the assignment for
// consumers to address the affected student group without querying the
// primary database.  For deletions only AssignmentID and Action are
// guaranteed to be set.
type SeatAssignmentChangedEvent struct {
	Action       string    `json:"action"`
	AssignmentID string    `json:"assignment_id"`
	EventID      string    `json:"event_id"`
	VenueType    string    `json:"venue_type"`
	Department   string    `json:"department"`
	Year         string    `json:"year"`
	Gender       *string   `json:"gender,omitempty"`
	SeatNumbers  []int     `json:"seat_numbers"`
	RowNumbers   []int     `json:"row_numbers"`
	ChangedBy    string    `json:"changed_by"`
	ChangedAt    time.Time `json:"changed_at"`
}
