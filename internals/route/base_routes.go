package routes

import (
	"os"
	"time"

	"hozur_backend/internals/configs"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func BaseRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Hozur attendance service is running 🚀")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		dbStatus := "Connected"
		serverStatus := "OK"
		httpStatus := fiber.StatusOK

		if err != nil || sqlDB.PingContext(c.Context()) != nil {
			dbStatus = "Database connection error"
			serverStatus = "DOWN"
			httpStatus = fiber.StatusServiceUnavailable
		}

		uptime := time.Since(startTime).Seconds()

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"dialect":        db.Dialector.Name(),
			"server_time":    time.Now().Format(time.RFC3339),
			"uptime_seconds": int(uptime),
			"environment":    os.Getenv("HOSTED_ENVIRONMENT"),
		})
	})

	// Local photo storage is served from disk; OSS photos have absolute URLs.
	if configs.PhotoStorage == "local" && configs.PhotoDir != "" {
		app.Static(configs.PhotoPublicURL, configs.PhotoDir, fiber.Static{
			MaxAge:   86400,
			Compress: false,
		})
	}
}
