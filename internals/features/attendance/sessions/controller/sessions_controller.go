package controller

import (
	"strings"

	"hozur_backend/internals/constants"
	"hozur_backend/internals/features/attendance/realtime"
	"hozur_backend/internals/features/attendance/sessions/dto"
	"hozur_backend/internals/features/attendance/sessions/service"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/dbtime"
	"hozur_backend/internals/helpers/photo"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionController struct {
	Svc    *service.Service
	Photos *photo.Service
}

func NewSessionController(db *gorm.DB, events realtime.Publisher, photos *photo.Service) *SessionController {
	return &SessionController{Svc: service.New(db, events), Photos: photos}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	return id, nil
}

// POST /attendance/sessions
func (ctrl *SessionController) Create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.ValidateStruct(&req); err != nil {
		return helper.FromServiceError(c, err)
	}
	in, err := req.ToInput(dbtime.GetSchoolLocation(c))
	if err != nil {
		return helper.FromServiceError(c, helper.ValidationField(dto.FieldOf(err), err.Error()))
	}
	m, err := ctrl.Svc.CreateSession(c.UserContext(), in)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "attendance session created", dto.FromSession(*m))
}

// GET /attendance/sessions?archived=true&from=&to=&class_id=&page=&per_page=
func (ctrl *SessionController) List(c *fiber.Ctx) error {
	p := helper.ResolvePaging(c, constants.DefaultPerPage, constants.MaxPerPage)
	loc := dbtime.GetSchoolLocation(c)
	q := service.ListSessionsQuery{
		Archived: c.QueryBool("archived", false),
		Offset:   p.Offset,
		Limit:    p.Limit,
	}
	if s := strings.TrimSpace(c.Query("from")); s != "" {
		d, err := dbtime.ParseDay(s, loc)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid from: "+err.Error())
		}
		q.From = &d
	}
	if s := strings.TrimSpace(c.Query("to")); s != "" {
		d, err := dbtime.ParseDay(s, loc)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid to: "+err.Error())
		}
		q.To = &d
	}
	if s := strings.TrimSpace(c.Query("class_id")); s != "" {
		cid, err := uuid.Parse(s)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid class_id")
		}
		q.ClassID = &cid
	}

	rows, counts, total, err := ctrl.Svc.ListSessions(c.UserContext(), q)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	items := make([]dto.SessionResponse, 0, len(rows))
	for _, r := range rows {
		it := dto.FromSession(r)
		n := counts[r.AttendanceSessionID]
		it.SessionRecords = &n
		items = append(items, it)
	}
	pg := helper.BuildPaginationFromOffset(total, p.Offset, p.Limit)
	return helper.JsonList(c, "ok", items, &pg)
}

// GET /attendance/sessions/:id?include_archived=true
func (ctrl *SessionController) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	d, err := ctrl.Svc.GetSession(c.UserContext(), id, c.QueryBool("include_archived", false))
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var urls func(string) string
	if ctrl.Photos != nil {
		urls = ctrl.Photos.URL
	}
	return helper.JsonOK(c, "ok", dto.FromDetail(*d, urls))
}

// POST /attendance/sessions/:id/records/init
func (ctrl *SessionController) InitializeRecords(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.InitializeRecordsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	n, err := ctrl.Svc.InitializeRecords(c.UserContext(), id, req.StudentIDs)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonCreated(c, "attendance records initialized", fiber.Map{"session_id": id, "records": n})
}

// PUT /attendance/sessions/:id/records
func (ctrl *SessionController) BatchUpdate(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	var req dto.BatchUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	res, err := ctrl.Svc.BatchUpdate(c.UserContext(), id, req.ToItems())
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	msg := "attendance records updated"
	if res.Failed > 0 {
		msg = "attendance records partially updated"
	}
	return helper.JsonUpdated(c, msg, res)
}

// DELETE /attendance/sessions/:id archives the session.
func (ctrl *SessionController) Archive(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if err := ctrl.Svc.ArchiveSession(c.UserContext(), id); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonDeleted(c, "attendance session archived", fiber.Map{"session_id": id})
}

// POST /attendance/sessions/:id/restore
func (ctrl *SessionController) Restore(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	m, err := ctrl.Svc.RestoreSession(c.UserContext(), id)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonUpdated(c, "attendance session restored", dto.FromSession(*m))
}

// DELETE /admin/attendance/sessions/:id
func (ctrl *SessionController) Purge(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromServiceError(c, err)
	}
	if err := ctrl.Svc.PurgeSession(c.UserContext(), id); err != nil {
		return helper.FromServiceError(c, err)
	}
	return helper.JsonDeleted(c, "attendance session purged", fiber.Map{"session_id": id})
}
