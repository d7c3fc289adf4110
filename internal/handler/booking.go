package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opstrack/room-booking/internal/model"
	"github.com/opstrack/room-booking/internal/queue"
	"github.com/opstrack/room-booking/internal/repository"
	queue_publisher "github.com/opstrack/room-booking/internal/service"
	"github.com/opstrack/room-booking/internal/timeslot"
)

// BookingHandler exposes the booking lifecycle over HTTP.  All methods
// assume JWT authentication ran first, so the actor's identity and role
// are available in the context; methods return 401 when the identity
// cannot be extracted.  Conflict and transition checks happen inside the
// repository's transactions; the handler's own job is input validation,
// role/ownership enforcement and error translation.
type BookingHandler struct {
	BookingRepo *repository.BookingRepo

	// publish dispatches a lifecycle event without blocking the request.
	// Tests replace it; the default publishes to RabbitMQ best effort.
	publish func(queue.BookingLifecycleEvent)
}

// NewBookingHandler constructs a BookingHandler with the default
// fire-and-forget event publisher.
func NewBookingHandler(repo *repository.BookingRepo) *BookingHandler {
	if repo == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{
		BookingRepo: repo,
		publish: func(ev queue.BookingLifecycleEvent) {
			// Detached from the request context: the response must not wait
			// on the broker, and a cancelled request must not lose the event.
			go func() { _ = queue_publisher.PublishLifecycle(context.Background(), ev) }()
		},
	}
}

// GetBookings handles GET /v1/bookings.  The optional room, status and
// date query parameters combine with AND semantics; an empty result is a
// 200 with an empty array.
func (h *BookingHandler) GetBookings(c echo.Context) error {
	f := repository.Filter{
		Room:   c.QueryParam("room"),
		Status: c.QueryParam("status"),
		Date:   c.QueryParam("date"),
	}
	bookings, err := h.BookingRepo.List(c.Request().Context(), f)
	if err != nil {
		log.Printf("bookings: list failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, bookings)
}

// GetBooking handles GET /v1/bookings/:id.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.BookingRepo.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if err != nil {
		log.Printf("bookings: get %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, b)
}

// CreateBooking handles POST /v1/bookings.  The booking is created in
// Pending state for the authenticated caller; booked_by in the body, if
// any, is ignored.  A window that overlaps an active booking for the same
// room yields 409 along with the ids of the blocking bookings.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		RoomName  string  `json:"room_name"`
		StartTime string  `json:"start_time"`
		EndTime   string  `json:"end_time"`
		Purpose   *string `json:"purpose"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.RoomName == "" || body.StartTime == "" || body.EndTime == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	}
	start, err := parseTimestamp(body.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}
	end, err := parseTimestamp(body.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time"})
	}

	b, err := h.BookingRepo.Insert(c.Request().Context(), repository.BookingDraft{
		RoomName:  body.RoomName,
		BookedBy:  actor,
		Purpose:   body.Purpose,
		StartTime: start,
		EndTime:   end,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrMissingFields):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	case errors.Is(err, timeslot.ErrInvalidWindow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be before end_time"})
	case errors.Is(err, repository.ErrRoomNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown room"})
	case errors.Is(err, repository.ErrConflict):
		var conflict *repository.ConflictError
		resp := echo.Map{"error": "room is already booked for this time"}
		if errors.As(err, &conflict) {
			resp["conflicting_ids"] = conflict.BookingIDs
		}
		return c.JSON(http.StatusConflict, resp)
	default:
		log.Printf("bookings: insert failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	h.publish(lifecycleEvent(queue.EventBookingCreated, b, actor))
	return c.JSON(http.StatusCreated, echo.Map{"message": "Booking request submitted", "id": b.ID})
}

// UpdateStatus handles PUT /v1/bookings/:id/status.  Only Approved and
// Rejected are accepted in the body; the route is registered behind the
// approver/admin role gate.  The acting approver is recorded on the row.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	next := model.BookingStatus(body.Status)
	if next != model.StatusApproved && next != model.StatusRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	b, err := h.BookingRepo.SetStatus(c.Request().Context(), id, next, actor)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Printf("bookings: set status %d -> %s failed: %v", id, next, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	evType := queue.EventBookingApproved
	if next == model.StatusRejected {
		evType = queue.EventBookingRejected
	}
	h.publish(lifecycleEvent(evType, b, actor))
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking " + strings.ToLower(string(next))})
}

// CancelBooking handles PUT /v1/bookings/:id/cancel.  Cancelling is open
// to the original booker and to admins, from any non-terminal state; the
// approver recorded on an approved booking is preserved for audit.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	existing, err := h.BookingRepo.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if err != nil {
		log.Printf("bookings: get %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if actorRole(c) != "admin" && existing.BookedBy != actor {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	b, err := h.BookingRepo.Cancel(c.Request().Context(), id, actor)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Printf("bookings: cancel %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	h.publish(lifecycleEvent(queue.EventBookingCancelled, b, actor))
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled"})
}

func lifecycleEvent(evType string, b *model.Booking, actor string) queue.BookingLifecycleEvent {
	return queue.BookingLifecycleEvent{
		Type:       evType,
		BookingID:  b.ID,
		RoomName:   b.RoomName,
		BookedBy:   b.BookedBy,
		ActorID:    actor,
		Status:     string(b.Status),
		StartTime:  b.StartTime.UTC().Format(time.RFC3339),
		EndTime:    b.EndTime.UTC().Format(time.RFC3339),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
