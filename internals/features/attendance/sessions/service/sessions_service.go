package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"hozur_backend/internals/constants"
	classModel "hozur_backend/internals/features/attendance/classes/model"
	"hozur_backend/internals/features/attendance/realtime"
	"hozur_backend/internals/features/attendance/sessions/model"
	studentModel "hozur_backend/internals/features/attendance/students/model"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/dbtime"
	"hozur_backend/internals/helpers/softdelete"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const (
	msgSessionNotFound = "attendance session not found"
	msgDuplicateRecord = "student already has an attendance record for this session or date"

	maxBatchItems = 500
)

type Service struct {
	DB     *gorm.DB
	Events realtime.Publisher
}

func New(db *gorm.DB, events realtime.Publisher) *Service {
	return &Service{DB: db, Events: events}
}

/* =========================
   Inputs / outputs
========================= */

type CreateSessionInput struct {
	Title      string
	Date       time.Time
	StartsAt   *time.Time
	EndsAt     *time.Time
	Location   *string
	Notes      *string
	ClassID    *uuid.UUID
	TeacherID  *uuid.UUID
	StudentIDs []uuid.UUID
}

// BatchItem is one client entry. RecordID == uuid.Nil addresses the record of
// StudentID in the session. CheckIn/CheckOut are "HH:MM" on the session day or RFC3339.
type BatchItem struct {
	RecordID    uuid.UUID
	StudentID   uuid.UUID
	Status      model.AttendanceStatus
	CheckIn     *string
	CheckOut    *string
	LateMinutes *int
	Notes       *string
}

type ItemResult struct {
	Index     int       `json:"index"`
	RecordID  uuid.UUID `json:"record_id"`
	StudentID uuid.UUID `json:"student_id"`
	Applied   bool      `json:"applied"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`

	Err error `json:"-"`
}

type BatchResult struct {
	SessionID uuid.UUID          `json:"session_id"`
	State     model.SessionState `json:"state"`
	Applied   int                `json:"applied"`
	Failed    int                `json:"failed"`
	Items     []ItemResult       `json:"items"`
}

// RecordRow is a record joined with the display fields of its student.
type RecordRow struct {
	model.AttendanceRecordModel
	StudentFirstName string
	StudentLastName  string
	StudentPhotoPath *string
	StudentIsActive  bool
}

type SessionDetail struct {
	Session model.AttendanceSessionModel
	Records []RecordRow
}

type ListSessionsQuery struct {
	Archived bool
	From     *time.Time
	To       *time.Time
	ClassID  *uuid.UUID
	Offset   int
	Limit    int
}

/* =========================
   Create / initialize
========================= */

func (s *Service) validateRefs(tx *gorm.DB, in CreateSessionInput) error {
	if in.ClassID != nil {
		var n int64
		if err := tx.Model(&classModel.ClassModel{}).Where("class_id = ?", *in.ClassID).Count(&n).Error; err != nil {
			return helper.Storage(err)
		}
		if n == 0 {
			return helper.ValidationField("class_id", "class does not exist")
		}
	}
	if in.TeacherID != nil {
		var n int64
		if err := tx.Model(&classModel.TeacherModel{}).Where("teacher_id = ?", *in.TeacherID).Count(&n).Error; err != nil {
			return helper.Storage(err)
		}
		if n == 0 {
			return helper.ValidationField("teacher_id", "teacher does not exist")
		}
	}
	return nil
}

// CreateSession stores the session and, when students are selected, its roster in
// the same transaction.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*model.AttendanceSessionModel, error) {
	switch {
	case in.Title == "":
		return nil, helper.ValidationField("title", "title is required")
	case len(in.Title) > 160:
		return nil, helper.ValidationField("title", "title is too long")
	case in.Date.IsZero():
		return nil, helper.ValidationField("date", "date is required")
	case in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt):
		return nil, helper.ValidationField("ends_at", "ends_at is before starts_at")
	}

	m := model.AttendanceSessionModel{
		AttendanceSessionTitle:     in.Title,
		AttendanceSessionDate:      dbtime.Day(in.Date, time.UTC),
		AttendanceSessionStartsAt:  utcPtr(in.StartsAt),
		AttendanceSessionEndsAt:    utcPtr(in.EndsAt),
		AttendanceSessionLocation:  in.Location,
		AttendanceSessionNotes:     in.Notes,
		AttendanceSessionClassID:   in.ClassID,
		AttendanceSessionTeacherID: in.TeacherID,
		AttendanceSessionState:     model.SessionDraft,
		AttendanceSessionIsActive:  softdelete.Active,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validateRefs(tx, in); err != nil {
			return err
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if len(in.StudentIDs) == 0 {
			return nil
		}
		return s.initialize(tx, &m, in.StudentIDs)
	})
	if err != nil {
		return nil, helper.MapDBError(err, msgSessionNotFound, msgDuplicateRecord)
	}

	realtime.Emit(ctx, s.Events, constants.EventSessionChanged, m.AttendanceSessionID.String())
	if m.AttendanceSessionState == model.SessionInitialized {
		realtime.Emit(ctx, s.Events, constants.EventRecordsChanged, m.AttendanceSessionID.String())
	}
	return &m, nil
}

// InitializeRecords creates the roster of a draft session. With no ids the active
// students of the session's class are used.
func (s *Service) InitializeRecords(ctx context.Context, sessionID uuid.UUID, studentIDs []uuid.UUID) (int, error) {
	var created int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.AttendanceSessionModel
		if err := tx.Where("attendance_session_id = ?", sessionID).Take(&sess).Error; err != nil {
			return err
		}
		if sess.AttendanceSessionState != model.SessionDraft {
			return helper.Conflict("session records are already initialized")
		}
		ids := studentIDs
		if len(ids) == 0 && sess.AttendanceSessionClassID != nil {
			if err := tx.Model(&studentModel.StudentModel{}).
				Where("student_class_id = ?", *sess.AttendanceSessionClassID).
				Pluck("student_id", &ids).Error; err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			return helper.ValidationField("student_ids", "no students selected")
		}
		if err := s.initialize(tx, &sess, ids); err != nil {
			return err
		}
		created = len(dedupe(ids))
		return nil
	})
	if err != nil {
		return 0, helper.MapDBError(err, msgSessionNotFound, msgDuplicateRecord)
	}
	realtime.Emit(ctx, s.Events, constants.EventRecordsChanged, sessionID.String())
	return created, nil
}

// initialize inserts one empty record per distinct student and moves the session
// to initialized. The unique (session, student) index rejects a racing duplicate.
func (s *Service) initialize(tx *gorm.DB, sess *model.AttendanceSessionModel, studentIDs []uuid.UUID) error {
	ids := dedupe(studentIDs)
	if len(ids) == 0 {
		return helper.ValidationField("student_ids", "no students selected")
	}

	var found []uuid.UUID
	if err := tx.Model(&studentModel.StudentModel{}).
		Where("student_id IN ?", ids).
		Pluck("student_id", &found).Error; err != nil {
		return err
	}
	if len(found) != len(ids) {
		known := make(map[uuid.UUID]struct{}, len(found))
		for _, id := range found {
			known[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return helper.NotFound(fmt.Sprintf("student %s not found", id))
			}
		}
	}

	records := make([]model.AttendanceRecordModel, 0, len(ids))
	for _, id := range ids {
		records = append(records, model.AttendanceRecordModel{
			AttendanceRecordSessionID: sess.AttendanceSessionID,
			AttendanceRecordStudentID: id,
			AttendanceRecordDate:      sess.AttendanceSessionDate,
			AttendanceRecordStatus:    model.StatusUnknown,
		})
	}
	if err := tx.CreateInBatches(&records, 100).Error; err != nil {
		return err
	}

	sess.AttendanceSessionState = model.SessionInitialized
	return tx.Model(&model.AttendanceSessionModel{}).
		Where("attendance_session_id = ?", sess.AttendanceSessionID).
		Update("attendance_session_state", model.SessionInitialized).Error
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

/* =========================
   Batch update
========================= */

// BatchUpdate applies each item independently inside one transaction; a failing
// item is rolled back to its savepoint and reported, the others still commit.
func (s *Service) BatchUpdate(ctx context.Context, sessionID uuid.UUID, items []BatchItem) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, helper.ValidationField("records", "records is empty")
	}
	if len(items) > maxBatchItems {
		return nil, helper.ValidationField("records", fmt.Sprintf("at most %d records per batch", maxBatchItems))
	}

	out := &BatchResult{SessionID: sessionID, Items: make([]ItemResult, len(items))}
	loc := dbtime.SchoolLocation()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.AttendanceSessionModel
		if err := tx.Where("attendance_session_id = ?", sessionID).Take(&sess).Error; err != nil {
			return err
		}

		for i, it := range items {
			res := ItemResult{Index: i, RecordID: it.RecordID, StudentID: it.StudentID}
			sp := fmt.Sprintf("batch_item_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			rec, err := s.applyItem(tx, &sess, it, loc)
			if err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				err = helper.MapDBError(err, "attendance record not found", msgDuplicateRecord)
				if errors.Is(err, helper.ErrStorage) {
					return err
				}
				res.Err = err
				res.Code = kindCode(err)
				res.Error = err.Error()
				out.Failed++
			} else {
				res.Applied = true
				res.RecordID = rec.AttendanceRecordID
				res.StudentID = rec.AttendanceRecordStudentID
				out.Applied++
			}
			out.Items[i] = res
		}

		out.State = sess.AttendanceSessionState
		if out.Applied > 0 && sess.AttendanceSessionState != model.SessionFinalized {
			if err := tx.Model(&model.AttendanceSessionModel{}).
				Where("attendance_session_id = ?", sessionID).
				Update("attendance_session_state", model.SessionFinalized).Error; err != nil {
				return err
			}
			out.State = model.SessionFinalized
		}
		return nil
	})
	if err != nil {
		return nil, helper.MapDBError(err, msgSessionNotFound, msgDuplicateRecord)
	}

	if out.Applied > 0 {
		realtime.Emit(ctx, s.Events, constants.EventRecordsChanged, sessionID.String())
	}
	return out, nil
}

func kindCode(err error) string {
	switch helper.KindOf(err) {
	case helper.ErrValidation:
		return "VALIDATION_ERROR"
	case helper.ErrNotFound:
		return "NOT_FOUND"
	case helper.ErrConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}

func (s *Service) applyItem(tx *gorm.DB, sess *model.AttendanceSessionModel, it BatchItem, loc *time.Location) (*model.AttendanceRecordModel, error) {
	if !it.Status.Valid() {
		return nil, helper.ValidationField("status", fmt.Sprintf("status %d is not one of 0..4", it.Status))
	}
	if it.LateMinutes != nil && *it.LateMinutes < 0 {
		return nil, helper.ValidationField("late_minutes", "late_minutes must be >= 0")
	}

	var rec model.AttendanceRecordModel
	if it.RecordID == uuid.Nil {
		if it.StudentID == uuid.Nil {
			return nil, helper.ValidationField("student_id", "student_id is required when record_id is 0")
		}
		err := tx.Where("attendance_record_session_id = ? AND attendance_record_student_id = ?",
			sess.AttendanceSessionID, it.StudentID).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, helper.NotFound("student has no initialized record in this session")
		}
		if err != nil {
			return nil, err
		}
	} else {
		err := tx.Where("attendance_record_id = ? AND attendance_record_session_id = ?",
			it.RecordID, sess.AttendanceSessionID).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, helper.NotFound("attendance record not found in this session")
		}
		if err != nil {
			return nil, err
		}
		if it.StudentID != uuid.Nil && it.StudentID != rec.AttendanceRecordStudentID {
			return nil, helper.ValidationField("student_id", "student_id does not match the record")
		}
	}

	checkIn, err := moment(it.CheckIn, sess.AttendanceSessionDate, loc, "check_in")
	if err != nil {
		return nil, err
	}
	checkOut, err := moment(it.CheckOut, sess.AttendanceSessionDate, loc, "check_out")
	if err != nil {
		return nil, err
	}
	if checkIn != nil && checkOut != nil && checkOut.Before(*checkIn) {
		return nil, helper.ValidationField("check_out", "check_out is before check_in")
	}

	late := lateMinutes(it, checkIn, sess.AttendanceSessionStartsAt)

	if err := tx.Model(&model.AttendanceRecordModel{}).
		Where("attendance_record_id = ?", rec.AttendanceRecordID).
		Updates(map[string]any{
			"attendance_record_status":       it.Status,
			"attendance_record_check_in":     checkIn,
			"attendance_record_check_out":    checkOut,
			"attendance_record_late_minutes": late,
			"attendance_record_notes":        it.Notes,
		}).Error; err != nil {
		return nil, err
	}
	rec.AttendanceRecordStatus = it.Status
	rec.AttendanceRecordCheckIn = checkIn
	rec.AttendanceRecordCheckOut = checkOut
	rec.AttendanceRecordLateMinutes = late
	rec.AttendanceRecordNotes = it.Notes
	return &rec, nil
}

func moment(s *string, day time.Time, loc *time.Location, field string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := dbtime.ParseMoment(*s, day, loc)
	if err != nil {
		return nil, helper.ValidationField(field, err.Error())
	}
	return &t, nil
}

// lateMinutes is kept only for Late: the explicit value, else check-in minus
// session start (never negative).
func lateMinutes(it BatchItem, checkIn, startsAt *time.Time) *int {
	if it.Status != model.StatusLate {
		return nil
	}
	if it.LateMinutes != nil {
		v := *it.LateMinutes
		return &v
	}
	if checkIn == nil || startsAt == nil {
		return nil
	}
	v := int(checkIn.Sub(*startsAt) / time.Minute)
	if v < 0 {
		v = 0
	}
	return &v
}

/* =========================
   Reads
========================= */

// GetSession returns the session with its records ordered by surname, given name
// (Persian collation), then student id.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID, includeArchived bool) (*SessionDetail, error) {
	db := s.DB.WithContext(ctx)

	var sess model.AttendanceSessionModel
	if err := db.Scopes(softdelete.WithArchived(includeArchived)).
		Where("attendance_session_id = ?", id).
		Take(&sess).Error; err != nil {
		return nil, helper.MapDBError(err, msgSessionNotFound, "")
	}

	var rows []RecordRow
	if err := db.Table("attendance_records AS r").
		Select(`r.*,
			st.student_first_name AS student_first_name,
			st.student_last_name AS student_last_name,
			st.student_photo_path AS student_photo_path,
			st.student_is_active AS student_is_active`).
		Joins("JOIN students st ON st.student_id = r.attendance_record_student_id").
		Where("r.attendance_record_session_id = ?", id).
		Scan(&rows).Error; err != nil {
		return nil, helper.Storage(err)
	}
	SortRecords(rows)

	return &SessionDetail{Session: sess, Records: rows}, nil
}

// SortRecords orders rows by surname, given name, student id.
func SortRecords(rows []RecordRow) {
	col := collate.New(language.Persian, collate.IgnoreCase)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := col.CompareString(a.StudentLastName, b.StudentLastName); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.StudentFirstName, b.StudentFirstName); c != 0 {
			return c < 0
		}
		return a.AttendanceRecordStudentID.String() < b.AttendanceRecordStudentID.String()
	})
}

// ListSessions pages sessions newest first. Archived=true lists archived sessions only.
func (s *Service) ListSessions(ctx context.Context, q ListSessionsQuery) ([]model.AttendanceSessionModel, map[uuid.UUID]int64, int64, error) {
	tx := s.DB.WithContext(ctx).Model(&model.AttendanceSessionModel{})
	if q.Archived {
		tx = tx.Scopes(softdelete.OnlyArchived(model.ColSessionIsActive))
	}
	if q.From != nil {
		tx = tx.Where("attendance_session_date >= ?", dbtime.Day(*q.From, time.UTC))
	}
	if q.To != nil {
		tx = tx.Where("attendance_session_date <= ?", dbtime.Day(*q.To, time.UTC))
	}
	if q.ClassID != nil {
		tx = tx.Where("attendance_session_class_id = ?", *q.ClassID)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, 0, helper.Storage(err)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	var rows []model.AttendanceSessionModel
	if err := tx.Order("attendance_session_date DESC, attendance_session_created_at DESC, attendance_session_id ASC").
		Find(&rows).Error; err != nil {
		return nil, nil, 0, helper.Storage(err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	if len(rows) > 0 {
		ids := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.AttendanceSessionID)
		}
		var agg []struct {
			SessionID uuid.UUID
			N         int64
		}
		if err := s.DB.WithContext(ctx).Model(&model.AttendanceRecordModel{}).
			Select("attendance_record_session_id AS session_id, COUNT(*) AS n").
			Where("attendance_record_session_id IN ?", ids).
			Group("attendance_record_session_id").
			Scan(&agg).Error; err != nil {
			return nil, nil, 0, helper.Storage(err)
		}
		for _, a := range agg {
			counts[a.SessionID] = a.N
		}
	}
	return rows, counts, total, nil
}

/* =========================
   Archive / restore / purge
========================= */

func (s *Service) ArchiveSession(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&model.AttendanceSessionModel{}).
		Where("attendance_session_id = ?", id).
		Updates(map[string]any{
			model.ColSessionIsActive:        softdelete.Archived,
			"attendance_session_deleted_at": now,
		})
	if res.Error != nil {
		return helper.Storage(res.Error)
	}
	if res.RowsAffected == 0 {
		return helper.NotFound(msgSessionNotFound)
	}
	realtime.Emit(ctx, s.Events, constants.EventSessionChanged, id.String())
	return nil
}

func (s *Service) RestoreSession(ctx context.Context, id uuid.UUID) (*model.AttendanceSessionModel, error) {
	var out model.AttendanceSessionModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Model(&model.AttendanceSessionModel{}).
			Where("attendance_session_id = ? AND "+model.ColSessionIsActive+" = ?", id, false).
			Updates(map[string]any{
				model.ColSessionIsActive:        softdelete.Active,
				"attendance_session_deleted_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return helper.NotFound("archived attendance session not found")
		}
		return tx.Where("attendance_session_id = ?", id).Take(&out).Error
	})
	if err != nil {
		return nil, helper.MapDBError(err, msgSessionNotFound, "")
	}
	realtime.Emit(ctx, s.Events, constants.EventSessionChanged, id.String())
	return &out, nil
}

// PurgeSession hard-deletes an archived session and its records.
func (s *Service) PurgeSession(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.AttendanceSessionModel
		if err := tx.Unscoped().Where("attendance_session_id = ?", id).Take(&sess).Error; err != nil {
			return err
		}
		if sess.IsActive() {
			return helper.Conflict("archive the session before purging")
		}
		if err := tx.Where("attendance_record_session_id = ?", id).Delete(&model.AttendanceRecordModel{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("attendance_session_id = ?", id).Delete(&model.AttendanceSessionModel{}).Error
	})
	if err != nil {
		return helper.MapDBError(err, msgSessionNotFound, "")
	}
	realtime.Emit(ctx, s.Events, constants.EventSessionChanged, id.String())
	return nil
}
