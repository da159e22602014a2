package dto

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"hozur_backend/internals/features/attendance/sessions/model"
	"hozur_backend/internals/features/attendance/sessions/service"
	"hozur_backend/internals/helpers/dbtime"
	"hozur_backend/internals/helpers/jalali"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

/* =========================================================
   RecordRef: record_id on the batch payload.
   0, null, "" and "0" mean "the record of this student in this session".
========================================================= */

type RecordRef uuid.UUID

func (r *RecordRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "null", "0", `""`, `"0"`:
		*r = RecordRef(uuid.Nil)
		return nil
	}
	var s string
	if err := sonic.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("record_id: want a UUID string or 0")
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("record_id: %w", err)
	}
	*r = RecordRef(id)
	return nil
}

func (r RecordRef) MarshalJSON() ([]byte, error) {
	id := uuid.UUID(r)
	if id == uuid.Nil {
		return []byte("0"), nil
	}
	return []byte(`"` + id.String() + `"`), nil
}

func (r RecordRef) UUID() uuid.UUID { return uuid.UUID(r) }

/* =========================================================
   REQUESTS
========================================================= */

type CreateSessionRequest struct {
	Title string `json:"title" validate:"required,max=160"`
	// YYYY-MM-DD or Shamsi Y/M/D
	Date       string      `json:"date" validate:"required"`
	StartsAt   *string     `json:"starts_at"`
	EndsAt     *string     `json:"ends_at"`
	Location   *string     `json:"location" validate:"omitempty,max=160"`
	Notes      *string     `json:"notes"`
	ClassID    *uuid.UUID  `json:"class_id"`
	TeacherID  *uuid.UUID  `json:"teacher_id"`
	StudentIDs []uuid.UUID `json:"student_ids"`
}

// ToInput resolves dates in loc; errors name the offending field.
func (r CreateSessionRequest) ToInput(loc *time.Location) (service.CreateSessionInput, error) {
	in := service.CreateSessionInput{
		Title:      strings.TrimSpace(r.Title),
		Location:   trimPtr(r.Location),
		Notes:      trimPtr(r.Notes),
		ClassID:    r.ClassID,
		TeacherID:  r.TeacherID,
		StudentIDs: r.StudentIDs,
	}
	day, err := dbtime.ParseDay(r.Date, loc)
	if err != nil {
		return in, fieldErr{"date", err}
	}
	in.Date = day
	if v := trimPtr(r.StartsAt); v != nil {
		t, err := dbtime.ParseMoment(*v, day, loc)
		if err != nil {
			return in, fieldErr{"starts_at", err}
		}
		in.StartsAt = &t
	}
	if v := trimPtr(r.EndsAt); v != nil {
		t, err := dbtime.ParseMoment(*v, day, loc)
		if err != nil {
			return in, fieldErr{"ends_at", err}
		}
		in.EndsAt = &t
	}
	return in, nil
}

type fieldErr struct {
	Field string
	Err   error
}

func (e fieldErr) Error() string { return e.Field + ": " + e.Err.Error() }

// FieldOf returns the request field a ToInput error refers to.
func FieldOf(err error) string {
	if fe, ok := err.(fieldErr); ok {
		return fe.Field
	}
	return ""
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

type InitializeRecordsRequest struct {
	StudentIDs []uuid.UUID `json:"student_ids"`
}

type BatchItemRequest struct {
	RecordID    RecordRef              `json:"record_id"`
	StudentID   uuid.UUID              `json:"student_id"`
	Status      model.AttendanceStatus `json:"status"`
	CheckIn     *string                `json:"check_in"`
	CheckOut    *string                `json:"check_out"`
	LateMinutes *int                   `json:"late_minutes"`
	Notes       *string                `json:"notes"`
}

type BatchUpdateRequest struct {
	Records []BatchItemRequest `json:"records"`
}

func (r BatchUpdateRequest) ToItems() []service.BatchItem {
	out := make([]service.BatchItem, 0, len(r.Records))
	for _, it := range r.Records {
		out = append(out, service.BatchItem{
			RecordID:    it.RecordID.UUID(),
			StudentID:   it.StudentID,
			Status:      it.Status,
			CheckIn:     trimPtr(it.CheckIn),
			CheckOut:    trimPtr(it.CheckOut),
			LateMinutes: it.LateMinutes,
			Notes:       trimPtr(it.Notes),
		})
	}
	return out
}

/* =========================================================
   RESPONSES
========================================================= */

type SessionResponse struct {
	SessionID         uuid.UUID          `json:"session_id"`
	SessionTitle      string             `json:"session_title"`
	SessionDate       time.Time          `json:"session_date"`
	SessionDateShamsi string             `json:"session_date_shamsi"`
	SessionStartsAt   *time.Time         `json:"session_starts_at,omitempty"`
	SessionEndsAt     *time.Time         `json:"session_ends_at,omitempty"`
	SessionLocation   *string            `json:"session_location,omitempty"`
	SessionNotes      *string            `json:"session_notes,omitempty"`
	SessionClassID    *uuid.UUID         `json:"session_class_id,omitempty"`
	SessionTeacherID  *uuid.UUID         `json:"session_teacher_id,omitempty"`
	SessionState      model.SessionState `json:"session_state"`
	SessionIsActive   bool               `json:"session_is_active"`
	SessionDeletedAt  *time.Time         `json:"session_deleted_at,omitempty"`
	SessionRecords    *int64             `json:"session_records,omitempty"`
	SessionCreatedAt  time.Time          `json:"session_created_at"`
}

func FromSession(m model.AttendanceSessionModel) SessionResponse {
	return SessionResponse{
		SessionID:         m.AttendanceSessionID,
		SessionTitle:      m.AttendanceSessionTitle,
		SessionDate:       m.AttendanceSessionDate,
		SessionDateShamsi: dbtime.Shamsi(m.AttendanceSessionDate),
		SessionStartsAt:   m.AttendanceSessionStartsAt,
		SessionEndsAt:     m.AttendanceSessionEndsAt,
		SessionLocation:   m.AttendanceSessionLocation,
		SessionNotes:      m.AttendanceSessionNotes,
		SessionClassID:    m.AttendanceSessionClassID,
		SessionTeacherID:  m.AttendanceSessionTeacherID,
		SessionState:      m.AttendanceSessionState,
		SessionIsActive:   m.IsActive(),
		SessionDeletedAt:  m.AttendanceSessionDeletedAt,
		SessionCreatedAt:  m.AttendanceSessionCreatedAt,
	}
}

type RecordResponse struct {
	RecordID         uuid.UUID              `json:"record_id"`
	StudentID        uuid.UUID              `json:"student_id"`
	StudentFirstName string                 `json:"student_first_name"`
	StudentLastName  string                 `json:"student_last_name"`
	StudentPhotoURL  *string                `json:"student_photo_url,omitempty"`
	StudentIsActive  bool                   `json:"student_is_active"`
	Status           model.AttendanceStatus `json:"status"`
	StatusName       string                 `json:"status_name"`
	CheckIn          *time.Time             `json:"check_in,omitempty"`
	CheckInShamsi    *string                `json:"check_in_shamsi,omitempty"`
	CheckOut         *time.Time             `json:"check_out,omitempty"`
	LateMinutes      *int                   `json:"late_minutes,omitempty"`
	Notes            *string                `json:"notes,omitempty"`
	RecordUpdatedAt  time.Time              `json:"record_updated_at"`
}

type SessionDetailResponse struct {
	SessionResponse
	Records []RecordResponse `json:"records"`
}

func FromDetail(d service.SessionDetail, photoURL func(string) string) SessionDetailResponse {
	out := SessionDetailResponse{
		SessionResponse: FromSession(d.Session),
		Records:         make([]RecordResponse, 0, len(d.Records)),
	}
	n := int64(len(d.Records))
	out.SessionRecords = &n
	for _, r := range d.Records {
		rr := RecordResponse{
			RecordID:         r.AttendanceRecordID,
			StudentID:        r.AttendanceRecordStudentID,
			StudentFirstName: r.StudentFirstName,
			StudentLastName:  r.StudentLastName,
			StudentIsActive:  r.StudentIsActive,
			Status:           r.AttendanceRecordStatus,
			StatusName:       r.AttendanceRecordStatus.String(),
			CheckIn:          r.AttendanceRecordCheckIn,
			CheckOut:         r.AttendanceRecordCheckOut,
			LateMinutes:      r.AttendanceRecordLateMinutes,
			Notes:            r.AttendanceRecordNotes,
			RecordUpdatedAt:  r.AttendanceRecordUpdatedAt,
		}
		if r.AttendanceRecordCheckIn != nil {
			s := jalali.ToShamsi(r.AttendanceRecordCheckIn.In(dbtime.SchoolLocation()))
			rr.CheckInShamsi = &s
		}
		if r.StudentPhotoPath != nil && photoURL != nil {
			u := photoURL(*r.StudentPhotoPath)
			rr.StudentPhotoURL = &u
		}
		out.Records = append(out.Records, rr)
	}
	return out
}
