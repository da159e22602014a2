package route

import (
	"hozur_backend/internals/features/attendance/realtime"
	sessionctrl "hozur_backend/internals/features/attendance/sessions/controller"
	"hozur_backend/internals/helpers/photo"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SessionRoutes mounts /attendance/sessions.
func SessionRoutes(r fiber.Router, db *gorm.DB, events realtime.Publisher, photos *photo.Service) {
	h := sessionctrl.NewSessionController(db, events, photos)

	sessions := r.Group("/attendance/sessions")
	sessions.Get("/", h.List)
	sessions.Post("/", h.Create)
	sessions.Get("/:id", h.Get)
	sessions.Post("/:id/records/init", h.InitializeRecords)
	sessions.Put("/:id/records", h.BatchUpdate)
	sessions.Delete("/:id", h.Archive)
	sessions.Post("/:id/restore", h.Restore)
}

func SessionAdminRoutes(admin fiber.Router, db *gorm.DB, events realtime.Publisher) {
	h := sessionctrl.NewSessionController(db, events, nil)
	admin.Delete("/attendance/sessions/:id", h.Purge)
}
