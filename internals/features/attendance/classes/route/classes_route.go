package route

import (
	classctrl "hozur_backend/internals/features/attendance/classes/controller"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func ClassRoutes(r fiber.Router, db *gorm.DB) {
	h := classctrl.NewClassController(db)

	teachers := r.Group("/teachers")
	teachers.Get("/", h.ListTeachers)
	teachers.Post("/", h.CreateTeacher)

	classes := r.Group("/classes")
	classes.Get("/", h.ListClasses)
	classes.Get("/:id", h.GetClass)
	classes.Post("/", h.CreateClass)
}
