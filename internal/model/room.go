package model

import "time"

// Room is a bookable resource.  Rooms are administered outside this
// service and referenced by bookings through their unique name; this
// subsystem only ever reads them.
type Room struct {
	ID        uint64    `json:"id"`                 // conference_rooms.id
	Name      string    `json:"name"`               // conference_rooms.name (unique)
	Location  *string   `json:"location,omitempty"` // conference_rooms.location (nullable)
	Capacity  uint32    `json:"capacity"`           // conference_rooms.capacity
	CreatedAt time.Time `json:"created_at"`
}
