package route

import (
	reportctrl "hozur_backend/internals/features/attendance/reports/controller"
	"hozur_backend/internals/helpers/photo"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func ReportRoutes(r fiber.Router, db *gorm.DB, photos *photo.Service) {
	h := reportctrl.NewReportController(db, photos)
	r.Get("/attendance/report", h.ByDateRange)
}
