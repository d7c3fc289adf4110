package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema on startup.  The DDL uses
// CREATE TABLE IF NOT EXISTS throughout, so running it against an already
// provisioned database is a no-op.  The (room_name, status) index on
// bookings matters beyond lookup speed: the insert path takes a locking
// read over that index to serialize concurrent bookings for the same room.
func Migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
