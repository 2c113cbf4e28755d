package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/model"
	"github.com/iliyamo/event-seating/internal/repository"
)

// RegistrationStore persists registrations and attendance.  Register must
// run the guard and the insert under one lock on the event.
type RegistrationStore interface {
	Register(ctx context.Context, reg *model.Registration, guard repository.RegistrationGuard) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	MarkAttendance(ctx context.Context, a *model.Attendance, status string) error
}

// RegisterInput is a student's sign-up.  StudentID is the authenticated
// student.
type RegisterInput struct {
	EventID    string
	StudentID  string
	Name       string
	Email      string
	Department string
	Year       string
	Phone      string
}

// MarkAttendanceInput records one student's attendance at an event.
type MarkAttendanceInput struct {
	EventID      string
	StudentID    string
	Status       string
	Notes        string
	ActingUserID string
}

// RegistrationService handles student registration and attendance.
type RegistrationService interface {
	Register(ctx context.Context, in RegisterInput) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	MarkAttendance(ctx context.Context, in MarkAttendanceInput) (*model.Attendance, error)
}

type registrationService struct {
	store  RegistrationStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(store RegistrationStore, logger *zap.Logger) RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registrationService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *registrationService) Register(ctx context.Context, in RegisterInput) (*model.Registration, error) {
	student := strings.TrimSpace(in.StudentID)
	if student == "" {
		return nil, ErrAuthenticationRequired
	}
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		return nil, fmt.Errorf("%w: event_id is required", ErrInvalidInput)
	}
	reg := &model.Registration{
		ID:                uuid.NewString(),
		EventID:           eventID,
		StudentID:         student,
		StudentName:       strings.TrimSpace(in.Name),
		StudentEmail:      strings.TrimSpace(in.Email),
		StudentDepartment: strings.TrimSpace(in.Department),
		StudentYear:       strings.TrimSpace(in.Year),
		Status:            model.RegistrationRegistered,
		RegistrationDate:  s.now(),
	}
	switch {
	case reg.StudentName == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !strings.Contains(reg.StudentEmail, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	case reg.StudentDepartment == "" || reg.StudentYear == "":
		return nil, fmt.Errorf("%w: department and year are required", ErrInvalidInput)
	}
	if p := strings.TrimSpace(in.Phone); p != "" {
		reg.StudentPhone = &p
	}

	if err := s.store.Register(ctx, reg, openGuard(reg.RegistrationDate)); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
		case errors.Is(err, repository.ErrAlreadyRegistered):
			return nil, ErrAlreadyRegistered
		case errors.Is(err, ErrEventFull), errors.Is(err, ErrRegistrationClosed):
			return nil, err
		}
		s.logger.Error("register failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, storeErr("register for event", err)
	}
	s.logger.Info("student registered",
		zap.String("event_id", eventID), zap.String("student_id", student), zap.String("registration_id", reg.ID))
	return reg, nil
}

// openGuard rejects a registration made after the deadline (the event
// start when none is set) or once the event is full.
func openGuard(now time.Time) repository.RegistrationGuard {
	return func(p repository.RegistrationPolicy, registered int) error {
		if !p.AllowRegistration {
			return ErrRegistrationClosed
		}
		deadline := p.EventDate
		if p.RegistrationEnd != nil {
			deadline = *p.RegistrationEnd
		}
		if now.After(deadline) {
			return ErrRegistrationClosed
		}
		if p.MaxParticipants != nil && registered >= *p.MaxParticipants {
			return ErrEventFull
		}
		return nil
	}
}

func (s *registrationService) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("list registrations failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, storeErr("fetch registrations", err)
	}
	return list, nil
}

func (s *registrationService) MarkAttendance(ctx context.Context, in MarkAttendanceInput) (*model.Attendance, error) {
	actor := strings.TrimSpace(in.ActingUserID)
	if actor == "" {
		return nil, ErrAuthenticationRequired
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	switch status {
	case model.AttendancePresent, model.AttendanceAbsent, model.AttendanceLate:
	default:
		return nil, fmt.Errorf("%w: attendance status must be present, absent or late", ErrInvalidInput)
	}
	a := &model.Attendance{
		ID:        uuid.NewString(),
		EventID:   strings.TrimSpace(in.EventID),
		StudentID: strings.TrimSpace(in.StudentID),
		Status:    status,
		MarkedBy:  actor,
		MarkedAt:  s.now(),
	}
	if a.EventID == "" || a.StudentID == "" {
		return nil, fmt.Errorf("%w: event_id and student_id are required", ErrInvalidInput)
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		a.Notes = &n
	}

	regStatus := model.RegistrationRegistered
	if status == model.AttendancePresent {
		regStatus = model.RegistrationAttended
	}
	if err := s.store.MarkAttendance(ctx, a, regStatus); err != nil {
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return nil, fmt.Errorf("registration of %s for event %s: %w", a.StudentID, a.EventID, ErrNotFound)
		}
		s.logger.Error("mark attendance failed", zap.String("event_id", a.EventID), zap.Error(err))
		return nil, storeErr("mark attendance", err)
	}
	s.logger.Info("attendance marked",
		zap.String("event_id", a.EventID), zap.String("student_id", a.StudentID),
		zap.String("status", status), zap.String("marked_by", actor))
	return a, nil
}
