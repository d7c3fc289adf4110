package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/opstrack/room-booking/internal/handler"
	"github.com/opstrack/room-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check
// for load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the booking and room endpoints under /v1.  Every
// route requires a valid bearer token; JWTAuth stores the actor's id and
// role in the context before the handlers run.  The optional rateLimit
// middleware (nil to disable) is applied after authentication so buckets
// can be keyed by actor.
//
// Role model: any authenticated role may list, view, create and cancel
// (cancel additionally enforces booker-or-admin inside the handler);
// approving or rejecting is reserved for approvers and admins.
func RegisterAPI(e *echo.Echo, b *handler.BookingHandler, r *handler.RoomHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	api := e.Group("/v1")
	api.Use(middleware.JWTAuth(jwtSecret))
	api.Use(middleware.RequireRole("employee", "approver", "admin"))
	if rateLimit != nil {
		api.Use(rateLimit)
	}

	api.GET("/bookings", b.GetBookings)
	api.POST("/bookings", b.CreateBooking)
	api.GET("/bookings/:id", b.GetBooking)
	api.PUT("/bookings/:id/status", b.UpdateStatus, middleware.RequireRole("approver", "admin"))
	api.PUT("/bookings/:id/cancel", b.CancelBooking)

	api.GET("/rooms", r.GetRooms)
}
