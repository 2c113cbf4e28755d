package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seating/internal/model"
)

func newRegistrationMock(t *testing.T) (*RegistrationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRegistrationRepo(db), mock
}

func sampleRegistration() *model.Registration {
	return &model.Registration{
		ID:                "r-1",
		EventID:           "ev-1",
		StudentID:         "s-1",
		StudentName:       "Asha",
		StudentEmail:      "asha@example.edu",
		StudentDepartment: "CSE",
		StudentYear:       "2nd Year",
		Status:            model.RegistrationRegistered,
		RegistrationDate:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

var (
	policySQL  = regexp.QuoteMeta(`SELECT allow_registration, registration_end, event_date, max_participants`)
	countSQL   = regexp.QuoteMeta(`SELECT COUNT(*) FROM event_registrations WHERE event_id = ? AND status IN (?, ?)`)
	policyCols = []string{"allow_registration", "registration_end", "event_date", "max_participants"}
)

func TestRegisterPassesPolicyToGuard(t *testing.T) {
	repo, mock := newRegistrationMock(t)
	reg := sampleRegistration()
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	date := end.Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(policySQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(policyCols).AddRow(true, end, date, 30))
	mock.ExpectQuery(countSQL).WithArgs("ev-1", "registered", "attended").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO event_registrations`)).
		WithArgs("r-1", "ev-1", "s-1", "Asha", "asha@example.edu", "CSE", "2nd Year", nil, "registered", reg.RegistrationDate).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen RegistrationPolicy
	var seenCount int
	err := repo.Register(context.Background(), reg, func(p RegistrationPolicy, registered int) error {
		seen, seenCount = p, registered
		return nil
	})
	require.NoError(t, err)
	assert.True(t, seen.AllowRegistration)
	require.NotNil(t, seen.RegistrationEnd)
	assert.True(t, end.Equal(*seen.RegistrationEnd))
	require.NotNil(t, seen.MaxParticipants)
	assert.Equal(t, 30, *seen.MaxParticipants)
	assert.Equal(t, 12, seenCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterGuardRejectionRollsBack(t *testing.T) {
	repo, mock := newRegistrationMock(t)
	full := errors.New("full")

	mock.ExpectBegin()
	mock.ExpectQuery(policySQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(policyCols).AddRow(true, nil, time.Now(), 1))
	mock.ExpectQuery(countSQL).WithArgs("ev-1", "registered", "attended").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Register(context.Background(), sampleRegistration(), func(RegistrationPolicy, int) error { return full })
	assert.ErrorIs(t, err, full)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateAndMissingEvent(t *testing.T) {
	repo, mock := newRegistrationMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(policySQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(policyCols).AddRow(true, nil, time.Now(), nil))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO event_registrations`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ev-1-s-1'"})
	mock.ExpectRollback()
	err := repo.Register(context.Background(), sampleRegistration(), nil)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	mock.ExpectBegin()
	mock.ExpectQuery(policySQL).WithArgs("ev-1").WillReturnRows(sqlmock.NewRows(policyCols))
	mock.ExpectRollback()
	err = repo.Register(context.Background(), sampleRegistration(), nil)
	assert.ErrorIs(t, err, ErrEventNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationListByEvent(t *testing.T) {
	repo, mock := newRegistrationMock(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cols := []string{"id", "event_id", "student_id", "student_name", "student_email", "student_department",
		"student_year", "student_phone", "status", "registration_date"}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM event_registrations`)).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r-1", "ev-1", "s-1", "Asha", "a@x.edu", "CSE", "2", "98450", "attended", at).
			AddRow("r-2", "ev-1", "s-2", "Ravi", "r@x.edu", "EEE", "3", nil, "registered", at))

	list, err := repo.ListByEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "98450", *list[0].StudentPhone)
	assert.Nil(t, list[1].StudentPhone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAttendanceUpsertsAndUpdatesStatus(t *testing.T) {
	repo, mock := newRegistrationMock(t)
	at := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	a := &model.Attendance{ID: "att-new", EventID: "ev-1", StudentID: "s-1", Status: model.AttendancePresent,
		MarkedBy: "f-1", MarkedAt: at}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM event_registrations WHERE event_id = ? AND student_id = ? FOR UPDATE`)).
		WithArgs("ev-1", "s-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r-1"))
	mock.ExpectExec(regexp.QuoteMeta(`ON DUPLICATE KEY UPDATE`)).
		WithArgs("att-new", "ev-1", "s-1", "r-1", "present", "f-1", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM event_attendance`)).
		WithArgs("ev-1", "s-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("att-old"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE event_registrations SET status = ? WHERE id = ?`)).
		WithArgs("attended", "r-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkAttendance(context.Background(), a, model.RegistrationAttended))
	assert.Equal(t, "r-1", a.RegistrationID)
	assert.Equal(t, "att-old", a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAttendanceWithoutRegistration(t *testing.T) {
	repo, mock := newRegistrationMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM event_registrations`)).
		WithArgs("ev-1", "s-9").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.MarkAttendance(context.Background(),
		&model.Attendance{EventID: "ev-1", StudentID: "s-9", Status: model.AttendanceAbsent}, model.RegistrationRegistered)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
