// Package repository defines error values that are shared across the data
// access layer.  Handlers use these sentinels to map storage outcomes onto
// HTTP responses: ErrBookingNotFound becomes 404, ErrInvalidTransition and
// ErrConflict become 409, ErrMissingFields and ErrRoomNotFound become 400.
// Anything else is a storage failure and surfaces as a generic 500.
package repository

import (
	"errors"
	"fmt"
)

// ErrBookingNotFound is returned when no booking exists for the given id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrRoomNotFound is returned when a booking references a room name that
// is not present in conference_rooms.
var ErrRoomNotFound = errors.New("room not found")

// ErrMissingFields is returned when a booking draft lacks a required field.
// It is detected before any storage round trip.
var ErrMissingFields = errors.New("missing required fields")

// ErrConflict signals that the requested window overlaps an active booking
// for the same room.  Use errors.As with *ConflictError to recover the ids
// of the blocking bookings.
var ErrConflict = errors.New("booking conflict")

// ErrInvalidTransition is returned when the booking's current status does
// not allow the requested status change.
var ErrInvalidTransition = errors.New("invalid status transition")

// ConflictError reports which existing bookings block a requested window,
// so callers can tell the user exactly what is in the way.
type ConflictError struct {
	RoomName   string
	BookingIDs []uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("room %q is already booked for this time (blocked by bookings %v)", e.RoomName, e.BookingIDs)
}

// Unwrap makes errors.Is(err, ErrConflict) hold for ConflictError values.
func (e *ConflictError) Unwrap() error { return ErrConflict }
