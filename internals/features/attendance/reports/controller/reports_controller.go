package controller

import (
	"strings"

	"hozur_backend/internals/features/attendance/reports/service"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/dbtime"
	"hozur_backend/internals/helpers/photo"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ReportController struct {
	Svc    *service.Service
	Photos *photo.Service
}

func NewReportController(db *gorm.DB, photos *photo.Service) *ReportController {
	return &ReportController{Svc: service.New(db), Photos: photos}
}

// GET /attendance/report?from=YYYY-MM-DD&to=YYYY-MM-DD
// Responds with a bare JSON array; from/to also accept Shamsi Y/M/D.
func (ctrl *ReportController) ByDateRange(c *fiber.Ctx) error {
	loc := dbtime.GetSchoolLocation(c)

	fromRaw, toRaw := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	if fromRaw == "" || toRaw == "" {
		return helper.FromServiceError(c, helper.Validation("from and to are required"))
	}
	from, err := dbtime.ParseDay(fromRaw, loc)
	if err != nil {
		return helper.FromServiceError(c, helper.ValidationField("from", err.Error()))
	}
	to, err := dbtime.ParseDay(toRaw, loc)
	if err != nil {
		return helper.FromServiceError(c, helper.ValidationField("to", err.Error()))
	}

	var urls func(string) string
	if ctrl.Photos != nil {
		urls = ctrl.Photos.URL
	}
	items, err := ctrl.Svc.ReportByDateRange(c.UserContext(), from, to, urls)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(items)
}
