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

func newMock(t *testing.T) (*SeatAssignmentRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSeatAssignmentRepo(db), mock
}

func sampleAssignment() *model.SeatAssignment {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &model.SeatAssignment{
		ID:          "a-1",
		EventID:     "ev-1",
		VenueType:   "seminar-hall",
		Department:  "CSE",
		Year:        "2",
		SeatNumbers: []int{1, 2},
		RowNumbers:  []int{1, 1},
		AssignedBy:  "faculty-1",
		AssignedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

var (
	lockSQL    = regexp.QuoteMeta(`SELECT venue_type FROM events WHERE id = ? FOR UPDATE`)
	claimedSQL = regexp.QuoteMeta(`SELECT seat_number FROM seat_assignment_seats WHERE event_id = ?`)
)

func TestCreateStoresAssignmentAndSeats(t *testing.T) {
	repo, mock := newMock(t)
	a := sampleAssignment()

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow("seminar-hall"))
	mock.ExpectQuery(claimedSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(5).AddRow(6))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_assignments`)).
		WithArgs("a-1", "ev-1", "seminar-hall", "CSE", "2", nil, []byte("[1,2]"), []byte("[1,1]"),
			"faculty-1", a.AssignedAt, a.CreatedAt, a.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_assignment_seats`)).
		WithArgs("ev-1", 1, "a-1", "ev-1", 2, "a-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	var seen []int
	err := repo.Create(context.Background(), a, func(claimed []int) error {
		seen = claimed
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAdoptsVenueForEventWithoutOne(t *testing.T) {
	repo, mock := newMock(t)
	a := sampleAssignment()

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow(nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET venue_type = ? WHERE id = ?`)).
		WithArgs("seminar-hall", "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(claimedSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_assignments`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_assignment_seats`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), a, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsOtherVenue(t *testing.T) {
	repo, mock := newMock(t)
	a := sampleAssignment()

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow("solar-shade"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), a, nil)
	assert.ErrorIs(t, err, ErrVenueMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMissingEvent(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_type"}))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleAssignment(), nil)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGuardErrorRollsBack(t *testing.T) {
	repo, mock := newMock(t)
	conflict := errors.New("seat 2 taken")

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow("seminar-hall"))
	mock.ExpectQuery(claimedSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleAssignment(), func([]int) error { return conflict })
	assert.Same(t, conflict, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateSeatMapsToSeatTaken(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow("seminar-hall"))
	mock.ExpectQuery(claimedSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_assignments`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_assignment_seats`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ev-1-2' for key 'PRIMARY'"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleAssignment(), func([]int) error { return nil })
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSeatsExcludesOwnSeats(t *testing.T) {
	repo, mock := newMock(t)
	a := &model.SeatAssignment{ID: "a-1", SeatNumbers: []int{2, 3}, RowNumbers: []int{1, 1}, UpdatedAt: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT event_id FROM seat_assignments WHERE id = ?`)).WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("ev-1"))
	mock.ExpectQuery(lockSQL).WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow("seminar-hall"))
	mock.ExpectQuery(claimedSQL+`.*assignment_id <> \?`).WithArgs("ev-1", "a-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_assignment_seats WHERE assignment_id = ?`)).WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_assignment_seats`)).
		WithArgs("ev-1", 2, "a-1", "ev-1", 3, "a-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seat_assignments SET seat_numbers = ?, row_numbers = ?, updated_at = ? WHERE id = ?`)).
		WithArgs([]byte("[2,3]"), []byte("[1,1]"), a.UpdatedAt, "a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen []int
	err := repo.UpdateSeats(context.Background(), a, func(claimed []int) error {
		seen = claimed
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{9}, seen)
	assert.Equal(t, "ev-1", a.EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSeatsMissingAssignment(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT event_id FROM seat_assignments WHERE id = ?`)).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))
	mock.ExpectRollback()

	err := repo.UpdateSeats(context.Background(), &model.SeatAssignment{ID: "nope", SeatNumbers: []int{1}}, nil)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReportsRemoval(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_assignments WHERE id = ?`)).WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_assignments WHERE id = ?`)).WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "a-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), "a-1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByEventDecodesJSONColumns(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cols := []string{"id", "event_id", "venue_type", "department", "year", "gender",
		"seat_numbers", "row_numbers", "assigned_by", "assigned_at", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM seat_assignments WHERE event_id = ? ORDER BY created_at`)).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a-1", "ev-1", "solar-shade", "CSE", "2", "female", []byte("[17,18]"), []byte("[1,2]"), "f-1", at, at, at).
			AddRow("a-2", "ev-1", "solar-shade", "EEE", "3", nil, []byte("[40]"), []byte("[3]"), "f-1", at, at, at))

	list, err := repo.ListByEvent(context.Background(), "ev-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []int{17, 18}, list[0].SeatNumbers)
	assert.Equal(t, []int{1, 2}, list[0].RowNumbers)
	require.NotNil(t, list[0].Gender)
	assert.Equal(t, "female", *list[0].Gender)
	assert.Nil(t, list[1].Gender)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM seat_assignments WHERE id = ?`)).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "x")
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestEventVenue(t *testing.T) {
	repo, mock := newMock(t)
	q := regexp.QuoteMeta(`SELECT venue_type FROM events WHERE id = ?`)
	mock.ExpectQuery(q).WithArgs("ev-1").WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow("solar-shade"))
	mock.ExpectQuery(q).WithArgs("ev-2").WillReturnRows(sqlmock.NewRows([]string{"venue_type"}).AddRow(nil))
	mock.ExpectQuery(q).WithArgs("ev-3").WillReturnRows(sqlmock.NewRows([]string{"venue_type"}))

	v, err := repo.EventVenue(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "solar-shade", *v)

	v, err = repo.EventVenue(context.Background(), "ev-2")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = repo.EventVenue(context.Background(), "ev-3")
	assert.ErrorIs(t, err, ErrEventNotFound)
}
