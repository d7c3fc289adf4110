package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/opstrack/room-booking/internal/config"
	"github.com/opstrack/room-booking/internal/database"
	"github.com/opstrack/room-booking/internal/handler"
	"github.com/opstrack/room-booking/internal/middleware"
	"github.com/opstrack/room-booking/internal/queue"
	"github.com/opstrack/room-booking/internal/repository"
	"github.com/opstrack/room-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("database: %v", err)
	}

	bookingRepo := repository.NewBookingRepo(db)
	roomRepo := repository.NewRoomRepo(db)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)

	// Redis is optional: a nil client disables rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterAPI(e, handler.NewBookingHandler(bookingRepo), handler.NewRoomHandler(roomRepo), cfg.JWTSecret, rateLimit)

	// Audit consumer runs for the lifetime of the server and reconnects on
	// broker failures by itself.
	go func() {
		if err := queue.StartLifecycleConsumer(); err != nil {
			log.Printf("booking-consumer: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
