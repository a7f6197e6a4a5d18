package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smilee3998/partyroom-server/internal/handlers"
	"github.com/smilee3998/partyroom-server/internal/middleware"
	"github.com/smilee3998/partyroom-server/internal/services"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

// Handlers bundles everything SetupRoutes wires into the app.
type Handlers struct {
	Account    *handlers.AccountHandler
	Favourites *handlers.FavouritesHandler
	OTP        *handlers.OTPHandler
	Booking    *handlers.BookingHandler
	Room       *handlers.RoomHandler
	Review     *handlers.ReviewHandler
	Health     *handlers.HealthHandler
}

// NewHandlers builds the handler set from the store and services.
func NewHandlers(store storage.Store, otpSvc *services.OTPService, bookingSvc *services.BookingService, reviewSvc *services.ReviewService, version string) *Handlers {
	return &Handlers{
		Account:    handlers.NewAccountHandler(store),
		Favourites: handlers.NewFavouritesHandler(store),
		OTP:        handlers.NewOTPHandler(otpSvc),
		Booking:    handlers.NewBookingHandler(bookingSvc),
		Room:       handlers.NewRoomHandler(store),
		Review:     handlers.NewReviewHandler(reviewSvc),
		Health:     handlers.NewHealthHandler(version),
	}
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, h *Handlers) {

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Partyroom Server!",
			"version": h.Health.Version,
			"endpoints": fiber.Map{
				"health":   "/health",
				"accounts": "/api/accounts",
				"otp":      "/api/otp",
				"rooms":    "/api/rooms",
				"bookings": "/api/bookings",
				"reviews":  "/api/reviews",
			},
		})
	})

	app.Get("/health", h.Health.Check)

	auth := middleware.RequireAuth(store)
	verified := middleware.RequireVerified()

	api := app.Group("/api")

	// Account routes
	accounts := api.Group("/accounts")
	accounts.Post("/register", h.Account.Register)
	accounts.Post("/login", h.Account.Login)
	accounts.Get("/me", auth, h.Account.Detail)
	accounts.Patch("/me", auth, h.Account.Update)
	accounts.Delete("/me", auth, h.Account.Delete)
	accounts.Put("/change_password", auth, verified, h.Account.ChangePassword)
	accounts.Get("/favourites", auth, verified, h.Favourites.List)
	accounts.Put("/favourites", auth, verified, h.Favourites.Add)
	accounts.Delete("/favourites", auth, verified, h.Favourites.Remove)

	// OTP routes. Callers identify themselves by email and otp uid, not by
	// session, so these stay unauthenticated.
	otp := api.Group("/otp")
	otp.Post("/requests", h.OTP.Request)
	otp.Post("/resend", h.OTP.Resend)
	otp.Post("/verify", h.OTP.Verify)
	otp.Post("/forgot_password", h.OTP.ForgotPassword)

	// Room routes. Browsing is public; creation needs a verified roomer.
	rooms := api.Group("/rooms")
	rooms.Get("/", h.Room.List)
	rooms.Get("/:uid", h.Room.Detail)
	rooms.Post("/", auth, verified, middleware.RequireRoomer(), h.Room.Create)

	// Booking routes
	bookings := api.Group("/bookings")
	bookings.Get("/check_time", h.Booking.CheckTime)
	bookings.Post("/reserve", auth, verified, h.Booking.Reserve)
	bookings.Get("/my_bookings", auth, verified, h.Booking.MyBookings)
	bookings.Get("/my_booking/:uid", auth, verified, h.Booking.Detail)
	bookings.Delete("/my_booking/:uid", auth, verified, h.Booking.Cancel)

	// Review routes
	reviews := api.Group("/reviews")
	reviews.Get("/:room_uid", h.Review.ListByRoom)
	reviews.Post("/", auth, verified, h.Review.Create)
}
