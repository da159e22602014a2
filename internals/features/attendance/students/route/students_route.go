package route

import (
	"hozur_backend/internals/features/attendance/realtime"
	studentctrl "hozur_backend/internals/features/attendance/students/controller"
	"hozur_backend/internals/helpers/photo"
	"hozur_backend/internals/middlewares"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StudentRoutes mounts /students on the public API group.
func StudentRoutes(r fiber.Router, db *gorm.DB, events realtime.Publisher, photos *photo.Service) {
	h := studentctrl.NewStudentController(db, events, photos)

	students := r.Group("/students")
	students.Get("/", h.List)
	students.Get("/:id", h.Get)
	students.Post("/", middlewares.UploadRateLimiter(), h.Create)
	students.Put("/:id", middlewares.UploadRateLimiter(), h.Update)
	students.Delete("/:id", h.Deactivate)
	students.Post("/:id/restore", h.Restore)
}

// StudentAdminRoutes mounts the hard-delete endpoint on the admin group.
func StudentAdminRoutes(admin fiber.Router, db *gorm.DB, events realtime.Publisher, photos *photo.Service) {
	h := studentctrl.NewStudentController(db, events, photos)
	admin.Delete("/students/:id", h.Purge)
}
