package handler // handler defines http handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// actorID extracts the authenticated actor's identity from the context,
// where the JWT middleware stored the token's subject.  Numeric subjects
// (tokens minted by older issuers) are normalized to their decimal string
// form so the rest of the service only deals with string ids.
func actorID(c echo.Context) (string, error) {
	switch t := c.Get("user_id").(type) {
	case string:
		if t != "" {
			return t, nil
		}
	case float64:
		return fmt.Sprintf("%.0f", t), nil
	case int64:
		return fmt.Sprintf("%d", t), nil
	case uint64:
		return fmt.Sprintf("%d", t), nil
	}
	return "", errors.New("invalid user_id in context")
}

// actorRole returns the role claim stored by the JWT middleware, or the
// empty string when absent.
func actorRole(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

// timestampLayouts lists the accepted request time formats: RFC3339 (API
// clients), the datetime-local format the admin SPA submits, and the plain
// SQL format.  Parsed values are normalized to UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
