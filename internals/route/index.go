// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"hozur_backend/internals/features/attendance/realtime"
	"hozur_backend/internals/helpers/photo"
	adminMiddleware "hozur_backend/internals/middlewares/features"
	routeDetails "hozur_backend/internals/route/details"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var startTime time.Time

// SetupRoutes mounts every route. events receives mutations; hub feeds /api/events.
// photos may be nil when uploads are disabled.
func SetupRoutes(app *fiber.App, db *gorm.DB, hub *realtime.Hub, events realtime.Publisher, photos *photo.Service) {
	startTime = time.Now()

	BaseRoutes(app, db)

	// ===================== PUBLIC API =====================
	log.Println("[INFO] Setting up API group...")
	api := app.Group("/api")

	// ===================== ADMIN =====================
	log.Println("[INFO] Setting up ADMIN group (X-Admin-Key)...")
	admin := api.Group("/admin", adminMiddleware.IsAdmin())

	// ===================== MOUNT ROUTES =====================
	log.Println("[INFO] Mounting Attendance routes...")
	routeDetails.AttendanceRoutes(api, db, events, photos)
	routeDetails.AttendanceAdminRoutes(admin, db, events, photos)

	log.Println("[INFO] Mounting Realtime routes...")
	routeDetails.RealtimeRoutes(api, hub)
}
