package main

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/flexora/internal/config"
	"github.com/example/flexora/internal/database"
	"github.com/example/flexora/internal/routes"
	"github.com/example/flexora/internal/services"
	"github.com/example/flexora/pkg/events"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	var publisher *events.Publisher
	if cfg.EventsAMQPURL != "" {
		p, err := events.NewPublisher(cfg.EventsAMQPURL)
		if err != nil {
			log.Printf("Event publisher unavailable, continuing without it: %v", err)
		} else {
			publisher = p
			defer publisher.Close()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "Flexora Backend",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	gateway := services.NewRazorpayService(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	routes.Register(app, db, cfg, gateway, publisher)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}

// errorHandler renders every error as {"error": message}. Unexpected errors
// are logged and reported as a generic 500 so internals never leak.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}
