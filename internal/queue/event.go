// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on the booking.lifecycle queue.
const (
	EventBookingCreated   = "booking.created"
	EventBookingApproved  = "booking.approved"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
)

// BookingLifecycleEvent is published whenever a booking is created or moves
// through its lifecycle.  It carries enough information for downstream
// consumers to log, notify, or feed analytics without querying the primary
// database.  Timestamps are RFC3339 in UTC.
type BookingLifecycleEvent struct {
	Type       string `json:"type"`
	BookingID  uint64 `json:"booking_id"`
	RoomName   string `json:"room_name"`
	BookedBy   string `json:"booked_by"`
	ActorID    string `json:"actor_id"` // who triggered this transition
	Status     string `json:"status"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	OccurredAt string `json:"occurred_at"`
}
