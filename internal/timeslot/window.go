// Package timeslot contains the pure time-window logic used to decide
// whether a requested reservation collides with existing ones.  Windows are
// half-open intervals [Start, End): a booking that ends at 11:00 does not
// collide with one that starts at 11:00.  Nothing in this package touches
// the database; repositories feed it the active bookings for a room and act
// on the result.
package timeslot

import (
	"errors"
	"time"
)

// ErrInvalidWindow is returned when a window is degenerate or inverted
// (start at or after end).  Callers must reject such input before it
// reaches storage.
var ErrInvalidWindow = errors.New("invalid window: start_time must be before end_time")

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate reports whether the window is well formed.  A window whose
// start is equal to or after its end yields ErrInvalidWindow.
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Overlaps reports whether two half-open windows intersect.  The predicate
// is s1 < e2 && s2 < e1, which covers partial overlap, containment and
// exact equality while allowing back-to-back windows (e1 == s2).
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Slot pairs a window with the id of the booking occupying it, so conflict
// results can name the bookings that block a request.
type Slot struct {
	BookingID uint64
	Window    Window
}

// Conflicts returns the ids of every slot whose window intersects the
// candidate.  A nil result means the candidate is free.  The candidate is
// validated first; callers passing an inverted window get ErrInvalidWindow
// and no conflict scan is performed.
func Conflicts(candidate Window, existing []Slot) ([]uint64, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	var ids []uint64
	for _, s := range existing {
		if candidate.Overlaps(s.Window) {
			ids = append(ids, s.BookingID)
		}
	}
	return ids, nil
}
