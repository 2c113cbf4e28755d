package model

import "time"

// Event is a scheduled campus event that may be held in one of the
// catalog venues.  Besides seating it carries the targeting and
// registration policy students sign up against.
//
// Fields:
//  ID          – primary key (UUID).
//  Title       – display title.
//  Description – optional long description.
//  EventType   – free-form category (seminar, workshop, ...).
//  Venue       – human readable location label.
//  VenueType   – catalog venue the seats are allocated in (nullable).
//  EventDate   – when the event starts (UTC).
//  CreatedBy   – identity of the faculty member who created it.
//  TargetDepartments – departments the event is open to; empty means all.
//  TargetYears       – years of study the event is open to; empty means all.
//  MaxParticipants   – registration cap (nullable: no cap).
//  AllowRegistration – whether students may register.
//  RegistrationEnd   – registration deadline (nullable: until the event).
//  IsActive    – whether the event is published.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          string    `json:"id"`          // events.id
	Title       string    `json:"title"`       // events.title
	Description *string   `json:"description"` // events.description (nullable)
	EventType   string    `json:"event_type"`  // events.event_type
	Venue       string    `json:"venue"`       // events.venue
	VenueType   *string   `json:"venue_type"`  // events.venue_type (nullable)
	EventDate   time.Time `json:"event_date"`  // events.event_date
	CreatedBy   string    `json:"created_by"`  // events.created_by

	TargetDepartments []string   `json:"target_departments"` // events.target_departments (JSON)
	TargetYears       []string   `json:"target_years"`       // events.target_years (JSON)
	MaxParticipants   *int       `json:"max_participants"`   // events.max_participants (nullable)
	AllowRegistration bool       `json:"allow_registration"` // events.allow_registration
	RegistrationEnd   *time.Time `json:"registration_end"`   // events.registration_end (nullable)

	IsActive    bool      `json:"is_active"`   // events.is_active
	CreatedAt   time.Time `json:"created_at"`  // events.created_at
	UpdatedAt   time.Time `json:"updated_at"`  // events.updated_at
}
