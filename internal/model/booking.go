package model

import "time"

// Booking mirrors a row of the conference_room_bookings table.  The time
// window is immutable after creation; only the status (and, for approval
// decisions, approver_id) changes afterwards.  All timestamps are UTC.
//
// Fields:
//
//	ID         – primary key identifier, assigned by the database.
//	RoomName   – name of the reserved room (references conference_rooms).
//	BookedBy   – actor who created the booking; always the authenticated
//	             caller, never client-supplied.
//	Purpose    – optional free-text description.
//	StartTime  – start of the reservation window (inclusive).
//	EndTime    – end of the reservation window (exclusive).
//	Status     – lifecycle state (Pending, Approved, Rejected, Cancelled).
//	ApproverID – actor who approved or rejected the booking; nil until then.
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – refreshed on every state transition.
type Booking struct {
	ID         uint64        `json:"id"`
	RoomName   string        `json:"room_name"`
	BookedBy   string        `json:"booked_by"`
	Purpose    *string       `json:"purpose,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Status     BookingStatus `json:"status"`
	ApproverID *string       `json:"approver_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
