package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/smilee3998/partyroom-server/database"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/routes"
	"github.com/smilee3998/partyroom-server/internal/services"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	setupLogging()

	// Initialize storage
	var store storage.Store

	// Check if we should use memory store (for testing)
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Warn().Msg("Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		database.Connect()

		err := database.DB.AutoMigrate(
			&models.User{},
			&models.PartyRoom{},
			&models.Booking{},
			&models.OTP{},
			&models.Review{},
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		log.Info().Msg("Database migrations completed")

		store = storage.NewDatabaseStore(database.DB)
	}
	storage.SetStore(store)

	// Initialize services
	notifier := buildNotifier()
	otpService := services.NewOTPService(store, notifier, log.Logger)
	bookingService := services.NewBookingService(store, log.Logger)
	reviewService := services.NewReviewService(store, log.Logger)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Partyroom Server v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	h := routes.NewHandlers(store, otpService, bookingService, reviewService, version)
	routes.SetupRoutes(app, store, h)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info().Msg("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	log.Info().
		Str("port", port).
		Str("storage", storageType()).
		Msg("Partyroom server starting")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("ENVIRONMENT") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
}

// buildNotifier picks OTP delivery channels from the environment. SMTP is
// the primary channel; Twilio SMS is attached as a secondary when
// configured. Without SMTP config, codes only go to the log.
func buildNotifier() services.Notifier {
	mailer, err := services.NewSMTPMailer(log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("SMTP not configured, OTP codes will only be logged")
		return services.NewLogNotifier(log.Logger)
	}

	sms, err := services.NewTwilioSMS(log.Logger)
	if err != nil {
		log.Info().Msg("Twilio not configured, delivering OTP codes by email only")
		return mailer
	}
	return services.NewMultiNotifier(mailer, log.Logger, sms)
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
