package details

import (
	classRoutes "hozur_backend/internals/features/attendance/classes/route"
	"hozur_backend/internals/features/attendance/realtime"
	reportRoutes "hozur_backend/internals/features/attendance/reports/route"
	sessionRoutes "hozur_backend/internals/features/attendance/sessions/route"
	studentRoutes "hozur_backend/internals/features/attendance/students/route"
	"hozur_backend/internals/helpers/photo"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AttendanceRoutes mounts the school-facing API.
func AttendanceRoutes(api fiber.Router, db *gorm.DB, events realtime.Publisher, photos *photo.Service) {
	classRoutes.ClassRoutes(api, db)
	studentRoutes.StudentRoutes(api, db, events, photos)
	sessionRoutes.SessionRoutes(api, db, events, photos)
	reportRoutes.ReportRoutes(api, db, photos)
}

// AttendanceAdminRoutes mounts the hard-delete endpoints.
func AttendanceAdminRoutes(admin fiber.Router, db *gorm.DB, events realtime.Publisher, photos *photo.Service) {
	studentRoutes.StudentAdminRoutes(admin, db, events, photos)
	sessionRoutes.SessionAdminRoutes(admin, db, events)
}

// RealtimeRoutes exposes the server-sent event stream.
func RealtimeRoutes(api fiber.Router, hub *realtime.Hub) {
	api.Get("/events", realtime.EventsHandler(hub))
}
