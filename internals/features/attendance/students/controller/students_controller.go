package controller

import (
	"mime/multipart"
	"strings"

	"hozur_backend/internals/constants"
	"hozur_backend/internals/features/attendance/realtime"
	"hozur_backend/internals/features/attendance/students/dto"
	"hozur_backend/internals/features/attendance/students/service"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/photo"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentController struct {
	Svc    *service.Service
	Photos *photo.Service
}

func NewStudentController(db *gorm.DB, events realtime.Publisher, photos *photo.Service) *StudentController {
	return &StudentController{Svc: service.New(db, events, photos), Photos: photos}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid student id")
	}
	return id, nil
}

// photoFile returns the optional "photo" part of a multipart request.
func photoFile(c *fiber.Ctx) *multipart.FileHeader {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return nil
	}
	return fh
}

func (ctrl *StudentController) urls() func(string) string {
	if ctrl.Photos == nil {
		return nil
	}
	return ctrl.Photos.URL
}

// POST /students (JSON or multipart with optional "photo")
func (ctrl *StudentController) Create(c *fiber.Ctx) error {
	var req dto.StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	m, err := ctrl.Svc.Create(c.UserContext(), req, photoFile(c))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "student created", dto.FromModel(*m, nil, ctrl.urls()))
}

// GET /students?q=&class_id=&archived=true&page=&per_page=
func (ctrl *StudentController) List(c *fiber.Ctx) error {
	p := helper.ResolvePaging(c, constants.DefaultPerPage, constants.MaxPerPage)
	q := service.ListQuery{
		Search:   c.Query("q"),
		Archived: c.QueryBool("archived", false),
		Offset:   p.Offset,
		Limit:    p.Limit,
	}
	if s := strings.TrimSpace(c.Query("class_id")); s != "" {
		cid, err := uuid.Parse(s)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid class_id")
		}
		q.ClassID = &cid
	}

	rows, total, err := ctrl.Svc.List(c.UserContext(), q)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	pg := helper.BuildPaginationFromOffset(total, p.Offset, p.Limit)
	return helper.JsonList(c, "ok", dto.FromModels(rows, ctrl.urls()), &pg)
}

// GET /students/:id?include_archived=true
func (ctrl *StudentController) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	d, err := ctrl.Svc.Get(c.UserContext(), id, c.QueryBool("include_archived", false))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FromModel(d.Student, d.ClassName, ctrl.urls()))
}

// PUT /students/:id (full entity + student_row_version)
func (ctrl *StudentController) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.UpdateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	m, err := ctrl.Svc.Update(c.UserContext(), id, req, photoFile(c))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonUpdated(c, "student updated", dto.FromModel(*m, nil, ctrl.urls()))
}

// DELETE /students/:id deactivates; the row and its history are kept.
func (ctrl *StudentController) Deactivate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.DeactivateStudentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}
	if err := ctrl.Svc.Deactivate(c.UserContext(), id, req.Reason); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonDeleted(c, "student deactivated", fiber.Map{"student_id": id})
}

// POST /students/:id/restore
func (ctrl *StudentController) Restore(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	m, err := ctrl.Svc.Restore(c.UserContext(), id)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonUpdated(c, "student restored", dto.FromModel(*m, nil, ctrl.urls()))
}

// DELETE /admin/students/:id
func (ctrl *StudentController) Purge(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if err := ctrl.Svc.Purge(c.UserContext(), id); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonDeleted(c, "student purged", fiber.Map{"student_id": id})
}
