package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opstrack/room-booking/internal/model"
	"github.com/opstrack/room-booking/internal/timeslot"
)

var bookingCols = []string{
	"id", "room_name", "booked_by", "purpose",
	"start_time", "end_time", "status", "approver_id",
	"created_at", "updated_at",
}

func at(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, time.UTC)
}

func newMock(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func bookingRow(id uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(
		id, "Boardroom", "u-12", "Sprint sync",
		at(10, 0), at(11, 0), status, nil,
		at(9, 0), at(9, 0),
	)
}

func TestListAppliesComposableFilters(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`FROM conference_room_bookings WHERE room_name = \? AND status = \? AND DATE\(start_time\) = \? ORDER BY start_time DESC`).
		WithArgs("Boardroom", "Pending", "2025-03-10").
		WillReturnRows(bookingRow(4, "Pending"))

	got, err := repo.List(context.Background(), Filter{Room: "Boardroom", Status: "Pending", Date: "2025-03-10"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(4), got[0].ID)
	assert.Equal(t, model.StatusPending, got[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithoutFiltersHasNoWhereClause(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`FROM conference_room_bookings ORDER BY start_time DESC`).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	got, err := repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`FROM conference_room_bookings WHERE id = \?`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRejectsBeforeStorage(t *testing.T) {
	repo, mock := newMock(t)

	// missing room name
	_, err := repo.Insert(context.Background(), BookingDraft{
		BookedBy: "u-12", StartTime: at(10, 0), EndTime: at(11, 0),
	})
	assert.ErrorIs(t, err, ErrMissingFields)

	// inverted window
	_, err = repo.Insert(context.Background(), BookingDraft{
		RoomName: "Boardroom", BookedBy: "u-12", StartTime: at(11, 0), EndTime: at(10, 0),
	})
	assert.ErrorIs(t, err, timeslot.ErrInvalidWindow)

	// neither request may have touched the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPersistsPendingBooking(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM conference_rooms WHERE name = \?`).
		WithArgs("Boardroom").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`status IN \('Pending','Approved'\) FOR UPDATE`).
		WithArgs("Boardroom").
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "end_time"}).
			AddRow(2, at(8, 0), at(9, 0))) // back-to-back with the request, no conflict
	mock.ExpectExec(`INSERT INTO conference_room_bookings`).
		WithArgs("Boardroom", "u-12", "Sprint sync", at(9, 0), at(10, 0)).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(`FROM conference_room_bookings WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			7, "Boardroom", "u-12", "Sprint sync",
			at(9, 0), at(10, 0), "Pending", nil,
			at(8, 30), at(8, 30),
		))
	mock.ExpectCommit()

	purpose := "Sprint sync"
	got, err := repo.Insert(context.Background(), BookingDraft{
		RoomName: "Boardroom", BookedBy: "u-12", Purpose: &purpose,
		StartTime: at(9, 0), EndTime: at(10, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "u-12", got.BookedBy)
	assert.Nil(t, got.ApproverID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReportsConflictingBookings(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM conference_rooms WHERE name = \?`).
		WithArgs("Boardroom").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`status IN \('Pending','Approved'\) FOR UPDATE`).
		WithArgs("Boardroom").
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "end_time"}).
			AddRow(3, at(10, 0), at(11, 0)))
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), BookingDraft{
		RoomName: "Boardroom", BookedBy: "u-12",
		StartTime: at(10, 30), EndTime: at(10, 45),
	})
	require.ErrorIs(t, err, ErrConflict)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []uint64{3}, conflict.BookingIDs)
	assert.Equal(t, "Boardroom", conflict.RoomName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// expectInsertAttempt wires the expectations for one run of the
// check-then-insert transaction up to and including the locking read.
func expectInsertAttempt(mock sqlmock.Sqlmock, active *sqlmock.Rows) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM conference_rooms WHERE name = \?`).
		WithArgs("Boardroom").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`status IN \('Pending','Approved'\) FOR UPDATE`).
		WithArgs("Boardroom").
		WillReturnRows(active)
}

func deadlockErr() error {
	return &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"}
}

func TestInsertDeadlockLoserReportsWinnerConflict(t *testing.T) {
	repo, mock := newMock(t)

	// first attempt: the room has no active rows, so the overlap check
	// passes and the INSERT loses the locking race
	expectInsertAttempt(mock, sqlmock.NewRows([]string{"id", "start_time", "end_time"}))
	mock.ExpectExec(`INSERT INTO conference_room_bookings`).
		WithArgs("Boardroom", "u-12", nil, at(10, 0), at(11, 0)).
		WillReturnError(deadlockErr())
	mock.ExpectRollback()

	// rerun: the winner's row is committed and visible to the locking read
	expectInsertAttempt(mock, sqlmock.NewRows([]string{"id", "start_time", "end_time"}).
		AddRow(21, at(10, 0), at(11, 0)))
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), BookingDraft{
		RoomName: "Boardroom", BookedBy: "u-12",
		StartTime: at(10, 0), EndTime: at(11, 0),
	})
	require.ErrorIs(t, err, ErrConflict)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []uint64{21}, conflict.BookingIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDeadlockLoserSucceedsWhenWinnerDoesNotOverlap(t *testing.T) {
	repo, mock := newMock(t)

	expectInsertAttempt(mock, sqlmock.NewRows([]string{"id", "start_time", "end_time"}))
	mock.ExpectExec(`INSERT INTO conference_room_bookings`).
		WithArgs("Boardroom", "u-12", nil, at(10, 0), at(11, 0)).
		WillReturnError(deadlockErr())
	mock.ExpectRollback()

	// the racing winner booked the slot right before; back-to-back is fine
	expectInsertAttempt(mock, sqlmock.NewRows([]string{"id", "start_time", "end_time"}).
		AddRow(21, at(9, 0), at(10, 0)))
	mock.ExpectExec(`INSERT INTO conference_room_bookings`).
		WithArgs("Boardroom", "u-12", nil, at(10, 0), at(11, 0)).
		WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectQuery(`FROM conference_room_bookings WHERE id = \?`).
		WithArgs(uint64(22)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			22, "Boardroom", "u-12", nil,
			at(10, 0), at(11, 0), "Pending", nil,
			at(9, 30), at(9, 30),
		))
	mock.ExpectCommit()

	got, err := repo.Insert(context.Background(), BookingDraft{
		RoomName: "Boardroom", BookedBy: "u-12",
		StartTime: at(10, 0), EndTime: at(11, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(22), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDoesNotRetryOrdinaryStorageErrors(t *testing.T) {
	repo, mock := newMock(t)

	expectInsertAttempt(mock, sqlmock.NewRows([]string{"id", "start_time", "end_time"}))
	mock.ExpectExec(`INSERT INTO conference_room_bookings`).
		WithArgs("Boardroom", "u-12", nil, at(10, 0), at(11, 0)).
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'booking.conference_room_bookings' doesn't exist"})
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), BookingDraft{
		RoomName: "Boardroom", BookedBy: "u-12",
		StartTime: at(10, 0), EndTime: at(11, 0),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet()) // exactly one attempt
}

func TestInsertUnknownRoom(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM conference_rooms WHERE name = \?`).
		WithArgs("Atlantis").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), BookingDraft{
		RoomName: "Atlantis", BookedBy: "u-12",
		StartTime: at(10, 0), EndTime: at(11, 0),
	})
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusRecordsApprover(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM conference_room_bookings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Pending"))
	mock.ExpectExec(`UPDATE conference_room_bookings SET status = \?, approver_id = \?, updated_at = UTC_TIMESTAMP\(\) WHERE id = \?`).
		WithArgs("Approved", "appr-1", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM conference_room_bookings WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			7, "Boardroom", "u-12", "Sprint sync",
			at(10, 0), at(11, 0), "Approved", "appr-1",
			at(9, 0), at(9, 30),
		))
	mock.ExpectCommit()

	got, err := repo.SetStatus(context.Background(), 7, model.StatusApproved, "appr-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
	require.NotNil(t, got.ApproverID)
	assert.Equal(t, "appr-1", *got.ApproverID)
	// approving never rewrites who created the booking
	assert.Equal(t, "u-12", got.BookedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	cases := []struct {
		name    string
		current string
		next    model.BookingStatus
	}{
		{"rejected_to_cancelled", "Rejected", model.StatusCancelled},
		{"cancelled_to_approved", "Cancelled", model.StatusApproved},
		{"approved_to_rejected", "Approved", model.StatusRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMock(t)

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT status FROM conference_room_bookings WHERE id = \? FOR UPDATE`).
				WithArgs(uint64(7)).
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(tc.current))
			mock.ExpectRollback()

			_, err := repo.SetStatus(context.Background(), 7, tc.next, "appr-1")
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCancelDoesNotTouchApprover(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM conference_room_bookings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("Approved"))
	mock.ExpectExec(`UPDATE conference_room_bookings SET status = \?, updated_at = UTC_TIMESTAMP\(\) WHERE id = \?`).
		WithArgs("Cancelled", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM conference_room_bookings WHERE id = \?`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			7, "Boardroom", "u-12", "Sprint sync",
			at(10, 0), at(11, 0), "Cancelled", "appr-1",
			at(9, 0), at(9, 45),
		))
	mock.ExpectCommit()

	got, err := repo.Cancel(context.Background(), 7, "u-12")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	require.NotNil(t, got.ApproverID) // audit trail keeps the approver
	assert.Equal(t, "appr-1", *got.ApproverID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelUnknownBooking(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM conference_room_bookings WHERE id = \? FOR UPDATE`).
		WithArgs(uint64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Cancel(context.Background(), 404, "u-12")
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
