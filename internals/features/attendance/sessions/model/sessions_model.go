package model

import (
	"strings"
	"time"

	"hozur_backend/internals/helpers/softdelete"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* =========================
   Enums
========================= */

type SessionState string

const (
	SessionDraft       SessionState = "draft"
	SessionInitialized SessionState = "initialized"
	SessionFinalized   SessionState = "finalized"
)

// AttendanceStatus is stored as smallint; 1..4 are the wire codes of the report API.
type AttendanceStatus int16

const (
	StatusUnknown        AttendanceStatus = 0
	StatusPresent        AttendanceStatus = 1
	StatusAbsent         AttendanceStatus = 2
	StatusLate           AttendanceStatus = 3
	StatusExcusedAbsence AttendanceStatus = 4
)

func (s AttendanceStatus) Valid() bool { return s >= StatusUnknown && s <= StatusExcusedAbsence }

func (s AttendanceStatus) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusAbsent:
		return "absent"
	case StatusLate:
		return "late"
	case StatusExcusedAbsence:
		return "excused_absence"
	default:
		return "unknown"
	}
}

/* =========================================
   Model: attendance_sessions
========================================= */

const ColSessionIsActive = "attendance_session_is_active"

type AttendanceSessionModel struct {
	AttendanceSessionID uuid.UUID `gorm:"type:uuid;primaryKey;column:attendance_session_id" json:"attendance_session_id"`

	AttendanceSessionTitle    string     `gorm:"type:varchar(160);not null;column:attendance_session_title" json:"attendance_session_title"`
	AttendanceSessionDate     time.Time  `gorm:"type:date;not null;index;column:attendance_session_date" json:"attendance_session_date"`
	AttendanceSessionStartsAt *time.Time `gorm:"column:attendance_session_starts_at" json:"attendance_session_starts_at,omitempty"`
	AttendanceSessionEndsAt   *time.Time `gorm:"column:attendance_session_ends_at" json:"attendance_session_ends_at,omitempty"`
	AttendanceSessionLocation *string    `gorm:"type:varchar(160);column:attendance_session_location" json:"attendance_session_location,omitempty"`
	AttendanceSessionNotes    *string    `gorm:"type:text;column:attendance_session_notes" json:"attendance_session_notes,omitempty"`

	AttendanceSessionClassID   *uuid.UUID `gorm:"type:uuid;index;column:attendance_session_class_id" json:"attendance_session_class_id,omitempty"`
	AttendanceSessionTeacherID *uuid.UUID `gorm:"type:uuid;index;column:attendance_session_teacher_id" json:"attendance_session_teacher_id,omitempty"`

	AttendanceSessionState     SessionState          `gorm:"type:varchar(16);not null;column:attendance_session_state" json:"attendance_session_state"`
	AttendanceSessionIsActive  softdelete.ActiveFlag `gorm:"type:boolean;not null;column:attendance_session_is_active" json:"attendance_session_is_active"`
	AttendanceSessionDeletedAt *time.Time            `gorm:"column:attendance_session_deleted_at" json:"attendance_session_deleted_at,omitempty"`

	AttendanceSessionCreatedAt time.Time `gorm:"column:attendance_session_created_at;autoCreateTime" json:"attendance_session_created_at"`
	AttendanceSessionUpdatedAt time.Time `gorm:"column:attendance_session_updated_at;autoUpdateTime" json:"attendance_session_updated_at"`
}

func (AttendanceSessionModel) TableName() string { return "attendance_sessions" }

func (s AttendanceSessionModel) IsActive() bool { return bool(s.AttendanceSessionIsActive) }

func (s *AttendanceSessionModel) BeforeCreate(tx *gorm.DB) error {
	if s.AttendanceSessionID == uuid.Nil {
		s.AttendanceSessionID = uuid.New()
	}
	if s.AttendanceSessionState == "" {
		s.AttendanceSessionState = SessionDraft
	}
	s.AttendanceSessionTitle = strings.TrimSpace(s.AttendanceSessionTitle)
	return nil
}

/* =========================================
   Model: attendance_records
   unique (session, student) and (student, date)
========================================= */

type AttendanceRecordModel struct {
	AttendanceRecordID        uuid.UUID `gorm:"type:uuid;primaryKey;column:attendance_record_id" json:"attendance_record_id"`
	AttendanceRecordSessionID uuid.UUID `gorm:"type:uuid;not null;index;column:attendance_record_session_id" json:"attendance_record_session_id"`
	AttendanceRecordStudentID uuid.UUID `gorm:"type:uuid;not null;index;column:attendance_record_student_id" json:"attendance_record_student_id"`

	// Copy of the session date; carries the one-row-per-student-per-day rule.
	AttendanceRecordDate time.Time `gorm:"type:date;not null;index;column:attendance_record_date" json:"attendance_record_date"`

	AttendanceRecordStatus      AttendanceStatus `gorm:"type:smallint;not null;column:attendance_record_status" json:"attendance_record_status"`
	AttendanceRecordCheckIn     *time.Time       `gorm:"column:attendance_record_check_in" json:"attendance_record_check_in,omitempty"`
	AttendanceRecordCheckOut    *time.Time       `gorm:"column:attendance_record_check_out" json:"attendance_record_check_out,omitempty"`
	AttendanceRecordLateMinutes *int             `gorm:"column:attendance_record_late_minutes" json:"attendance_record_late_minutes,omitempty"`
	AttendanceRecordNotes       *string          `gorm:"type:text;column:attendance_record_notes" json:"attendance_record_notes,omitempty"`

	AttendanceRecordCreatedAt time.Time `gorm:"column:attendance_record_created_at;autoCreateTime" json:"attendance_record_created_at"`
	AttendanceRecordUpdatedAt time.Time `gorm:"column:attendance_record_updated_at;autoUpdateTime" json:"attendance_record_updated_at"`
}

func (AttendanceRecordModel) TableName() string { return "attendance_records" }

func (r *AttendanceRecordModel) BeforeCreate(tx *gorm.DB) error {
	if r.AttendanceRecordID == uuid.Nil {
		r.AttendanceRecordID = uuid.New()
	}
	return nil
}
