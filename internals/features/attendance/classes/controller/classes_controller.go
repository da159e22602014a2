package controller

import (
	"strings"

	"hozur_backend/internals/features/attendance/classes/dto"
	"hozur_backend/internals/features/attendance/classes/service"
	helper "hozur_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClassController struct {
	Svc *service.Service
}

func NewClassController(db *gorm.DB) *ClassController {
	return &ClassController{Svc: service.New(db)}
}

// POST /teachers
func (ctrl *ClassController) CreateTeacher(c *fiber.Ctx) error {
	var req dto.CreateTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	m, err := ctrl.Svc.CreateTeacher(c.UserContext(), req)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "teacher created", dto.FromTeacher(*m))
}

// GET /teachers
func (ctrl *ClassController) ListTeachers(c *fiber.Ctx) error {
	rows, err := ctrl.Svc.ListTeachers(c.UserContext())
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	out := make([]dto.TeacherResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FromTeacher(r))
	}
	return helper.JsonList(c, "ok", out, nil)
}

// POST /classes
func (ctrl *ClassController) CreateClass(c *fiber.Ctx) error {
	var req dto.CreateClassRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	m, err := ctrl.Svc.CreateClass(c.UserContext(), req)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "class created", dto.FromClass(*m, nil, 0))
}

// GET /classes
func (ctrl *ClassController) ListClasses(c *fiber.Ctx) error {
	rows, err := ctrl.Svc.ListClasses(c.UserContext())
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	out := make([]dto.ClassResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.FromClass(r.ClassModel, r.TeacherName(), r.Students))
	}
	return helper.JsonList(c, "ok", out, nil)
}

// GET /classes/:id
func (ctrl *ClassController) GetClass(c *fiber.Ctx) error {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid class id")
	}
	r, err := ctrl.Svc.GetClass(c.UserContext(), id)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FromClass(r.ClassModel, r.TeacherName(), r.Students))
}
