package model

import "time"

// Registration statuses.
const (
	RegistrationRegistered = "registered"
	RegistrationAttended   = "attended"
)

// Attendance statuses a faculty member can record.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// Registration is a student's sign-up for an event.  A student registers
// at most once per event.
type Registration struct {
	ID                string    `json:"id"`                 // event_registrations.id
	EventID           string    `json:"event_id"`           // event_registrations.event_id
	StudentID         string    `json:"student_id"`         // event_registrations.student_id
	StudentName       string    `json:"student_name"`       // event_registrations.student_name
	StudentEmail      string    `json:"student_email"`      // event_registrations.student_email
	StudentDepartment string    `json:"student_department"` // event_registrations.student_department
	StudentYear       string    `json:"student_year"`       // event_registrations.student_year
	StudentPhone      *string   `json:"student_phone"`      // event_registrations.student_phone (nullable)
	Status            string    `json:"status"`             // event_registrations.status
	RegistrationDate  time.Time `json:"registration_date"`  // event_registrations.registration_date
}

// Attendance records whether a registered student turned up.
type Attendance struct {
	ID             string    `json:"id"`                // event_attendance.id
	EventID        string    `json:"event_id"`          // event_attendance.event_id
	StudentID      string    `json:"student_id"`        // event_attendance.student_id
	RegistrationID string    `json:"registration_id"`   // event_attendance.registration_id
	Status         string    `json:"attendance_status"` // event_attendance.attendance_status
	MarkedBy       string    `json:"marked_by"`         // event_attendance.marked_by
	Notes          *string   `json:"notes"`             // event_attendance.notes (nullable)
	MarkedAt       time.Time `json:"marked_at"`         // event_attendance.marked_at
}
