package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/opstrack/room-booking/internal/model"
	"github.com/opstrack/room-booking/internal/timeslot"
)

// writeTimeout caps the booking write transactions so a stalled storage
// round trip surfaces as an error instead of hanging the request.
const writeTimeout = 5 * time.Second

// bookingColumns is the canonical column list for scanning a full booking
// row.  Keep in sync with scanBooking.
const bookingColumns = `id, room_name, booked_by, purpose, start_time, end_time, status, approver_id, created_at, updated_at`

// BookingRepo provides durable storage for conference-room bookings.  It is
// the only component that mutates the conference_room_bookings table.  The
// write paths (Insert, SetStatus) run inside transactions so the conflict
// and transition checks are evaluated against a read that is consistent
// with the write.  All timestamps are stored and compared in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingDraft carries the caller-supplied fields of a new booking.
// BookedBy is the authenticated actor's identity, never taken from the
// request body.  Purpose is optional.
type BookingDraft struct {
	RoomName  string
	BookedBy  string
	Purpose   *string
	StartTime time.Time
	EndTime   time.Time
}

// Filter narrows List results.  Zero values impose no constraint; when
// several fields are set they combine with AND semantics.  Date matches
// the UTC calendar day of start_time and must be formatted YYYY-MM-DD.
type Filter struct {
	Room   string
	Status string
	Date   string
}

// List returns bookings matching the filter, most recent start_time first.
// An empty result is a valid outcome and yields an empty slice, not an
// error.
func (r *BookingRepo) List(ctx context.Context, f Filter) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM conference_room_bookings`
	var where []string
	var args []interface{}
	if f.Room != "" {
		where = append(where, "room_name = ?")
		args = append(args, f.Room)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Date != "" {
		where = append(where, "DATE(start_time) = ?")
		args = append(args, f.Date)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_time DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByID returns a single booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM conference_room_bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Insert validates the draft, checks the requested window against the
// room's active bookings and persists a new Pending row, all within one
// transaction.
//
// The conflict check reads the room's Pending/Approved rows with
// SELECT ... FOR UPDATE.  Under InnoDB the locking read takes next-key
// locks on the scanned (room_name, status) index range, so a concurrent
// insert for the same room blocks until this transaction commits and then
// observes the winner's row.  Exactly one of two racing overlapping
// requests succeeds; the loser gets a ConflictError.  Rooms other than the
// requested one are unaffected.
//
// When the room has no active rows both racing transactions scan an empty
// range, and empty-range gap locks are compatible: both pass the overlap
// check and their INSERTs deadlock on each other's gap lock.  InnoDB rolls
// one back (error 1213), so a lock-contention loser reruns the transaction
// once; the rerun reads the winner's committed row and reports the overlap
// as a ConflictError instead of a storage failure.
func (r *BookingRepo) Insert(ctx context.Context, d BookingDraft) (*model.Booking, error) {
	if d.RoomName == "" || d.BookedBy == "" || d.StartTime.IsZero() || d.EndTime.IsZero() {
		return nil, ErrMissingFields
	}
	candidate := timeslot.Window{Start: d.StartTime.UTC(), End: d.EndTime.UTC()}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	b, err := r.insertTx(ctx, d, candidate)
	if isLockContention(err) {
		b, err = r.insertTx(ctx, d, candidate)
	}
	return b, err
}

// insertTx runs one attempt of the check-then-insert transaction.
func (r *BookingRepo) insertTx(ctx context.Context, d BookingDraft, candidate timeslot.Window) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// The room must exist before range locks are taken on its bookings.
	var roomID uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM conference_rooms WHERE name = ?`, d.RoomName).Scan(&roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	active, err := activeSlotsForUpdateTx(ctx, tx, d.RoomName)
	if err != nil {
		return nil, err
	}
	conflicts, err := timeslot.Conflicts(candidate, active)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{RoomName: d.RoomName, BookingIDs: conflicts}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO conference_room_bookings (room_name, booked_by, purpose, start_time, end_time, status)
         VALUES (?, ?, ?, ?, ?, 'Pending')`,
		d.RoomName, d.BookedBy, d.Purpose, candidate.Start, candidate.End)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	b, err := getByIDTx(ctx, tx, uint64(id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// SetStatus moves a booking to next after validating the transition
// against the current status.  The row is locked for the duration of the
// transaction so a concurrent transition cannot slip between the read and
// the update.  approver_id is recorded only for approval decisions
// (Approved/Rejected); cancelling preserves whoever approved the booking.
func (r *BookingRepo) SetStatus(ctx context.Context, id uint64, next model.BookingStatus, actorID string) (*model.Booking, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, string(next))
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var cur string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM conference_room_bookings WHERE id = ? FOR UPDATE`, id).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	current := model.BookingStatus(cur)
	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	if next.RequiresApprover() {
		_, err = tx.ExecContext(ctx,
			`UPDATE conference_room_bookings SET status = ?, approver_id = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
			next.String(), actorID, id)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE conference_room_bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
			next.String(), id)
	}
	if err != nil {
		return nil, err
	}

	b, err := getByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return b, nil
}

// isLockContention reports InnoDB deadlock (1213) and lock-wait timeout
// (1205) errors, the two ways a transaction loses a locking race.
func isLockContention(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1213 || me.Number == 1205)
}

// Cancel moves a booking to Cancelled.  It is legal from any non-terminal
// state (Pending or Approved) and does not record an approver.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, actorID string) (*model.Booking, error) {
	return r.SetStatus(ctx, id, model.StatusCancelled, actorID)
}

// activeSlotsForUpdateTx reads the Pending/Approved bookings of a room as
// conflict-check slots, locking the rows (and the index range) until the
// surrounding transaction ends.  Rejected and Cancelled bookings free the
// room and are excluded.
func activeSlotsForUpdateTx(ctx context.Context, tx *sql.Tx, roomName string) ([]timeslot.Slot, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, start_time, end_time FROM conference_room_bookings
         WHERE room_name = ? AND status IN ('Pending','Approved') FOR UPDATE`, roomName)
	if err != nil {
		return nil, err
	}
	var slots []timeslot.Slot
	for rows.Next() {
		var s timeslot.Slot
		if scanErr := rows.Scan(&s.BookingID, &s.Window.Start, &s.Window.End); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		slots = append(slots, s)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	return slots, rows.Err()
}

// getByIDTx reads a booking back inside the transaction so the returned
// record reflects database-assigned defaults and timestamps.
func getByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM conference_room_bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var b model.Booking
	var purpose, approver sql.NullString
	var status string
	err := row.Scan(
		&b.ID, &b.RoomName, &b.BookedBy, &purpose,
		&b.StartTime, &b.EndTime, &status, &approver,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	if purpose.Valid {
		p := purpose.String
		b.Purpose = &p
	}
	if approver.Valid {
		a := approver.String
		b.ApproverID = &a
	}
	return b, nil
}
