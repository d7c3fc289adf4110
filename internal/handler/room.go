package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opstrack/room-booking/internal/repository"
)

// RoomHandler exposes the read-only room catalogue.
type RoomHandler struct {
	RoomRepo *repository.RoomRepo
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(repo *repository.RoomRepo) *RoomHandler {
	if repo == nil {
		panic("nil repository passed to NewRoomHandler")
	}
	return &RoomHandler{RoomRepo: repo}
}

// GetRooms handles GET /v1/rooms, returning all rooms ordered by name.
func (h *RoomHandler) GetRooms(c echo.Context) error {
	rooms, err := h.RoomRepo.List(c.Request().Context())
	if err != nil {
		log.Printf("rooms: list failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, rooms)
}
