package repository

import (
	"context"
	"database/sql"

	"github.com/opstrack/room-booking/internal/model"
)

// RoomRepo provides read access to the conference_rooms table.  Rooms are
// administered by the wider admin tool; this subsystem never writes them.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// List returns all rooms ordered alphabetically by name.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, location, capacity, created_at FROM conference_rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Room, 0)
	for rows.Next() {
		var rm model.Room
		var loc sql.NullString
		if err := rows.Scan(&rm.ID, &rm.Name, &loc, &rm.Capacity, &rm.CreatedAt); err != nil {
			return nil, err
		}
		if loc.Valid {
			l := loc.String
			rm.Location = &l
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}
