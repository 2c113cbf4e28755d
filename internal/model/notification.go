package model

import "time"

// Notification is a message addressed to a group of students.  Rows are
// written by this service and read by whichever client delivers them.
type Notification struct {
	ID         string    // notifications.id
	EventID    *string   // notifications.event_id (nullable)
	Type       string    // notifications.type
	Title      string    // notifications.title
	Message    string    // notifications.message
	Department string    // notifications.department
	Year       string    // notifications.year
	Gender     *string   // notifications.gender (nullable)
	IsRead     bool      // notifications.is_read
	CreatedAt  time.Time // notifications.created_at
}
