package model

import (
	"strings"
	"time"

	"hozur_backend/internals/helpers/softdelete"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* =========================
   Enums
========================= */

type FormStatus int16

const (
	FormIncomplete    FormStatus = 0
	FormComplete      FormStatus = 1
	FormPendingReview FormStatus = 2
)

func (f FormStatus) Valid() bool { return f >= FormIncomplete && f <= FormPendingReview }

type PaymentStatus int16

const (
	PaymentUnpaid  PaymentStatus = 0
	PaymentPartial PaymentStatus = 1
	PaymentPaid    PaymentStatus = 2
	PaymentExempt  PaymentStatus = 3
)

func (p PaymentStatus) Valid() bool { return p >= PaymentUnpaid && p <= PaymentExempt }

/* =========================================
   Model: students
========================================= */

const (
	ColStudentIsActive   = "student_is_active"
	ColStudentRowVersion = "student_row_version"
)

type StudentModel struct {
	StudentID uuid.UUID `gorm:"type:uuid;primaryKey;column:student_id" json:"student_id"`

	// Identity
	StudentFirstName    string  `gorm:"type:varchar(80);not null;column:student_first_name" json:"student_first_name"`
	StudentLastName     string  `gorm:"type:varchar(80);not null;column:student_last_name" json:"student_last_name"`
	StudentNationalCode *string `gorm:"type:varchar(20);column:student_national_code" json:"student_national_code,omitempty"`
	StudentGuardianName *string `gorm:"type:varchar(120);column:student_guardian_name" json:"student_guardian_name,omitempty"`

	// Enrollment
	StudentClassID   *uuid.UUID `gorm:"type:uuid;index;column:student_class_id" json:"student_class_id,omitempty"`
	StudentSchool    *string    `gorm:"type:varchar(120);column:student_school" json:"student_school,omitempty"`
	StudentGrade     *string    `gorm:"type:varchar(40);column:student_grade" json:"student_grade,omitempty"`
	StudentWorkgroup *string    `gorm:"type:varchar(80);column:student_workgroup" json:"student_workgroup,omitempty"`
	StudentCoach     *string    `gorm:"type:varchar(120);column:student_coach" json:"student_coach,omitempty"`

	StudentFormStatuses  datatypes.JSONSlice[FormStatus] `gorm:"column:student_form_statuses" json:"student_form_statuses"`
	StudentPaymentStatus PaymentStatus                   `gorm:"type:smallint;not null;column:student_payment_status" json:"student_payment_status"`

	StudentBirthDate *time.Time `gorm:"type:date;column:student_birth_date" json:"student_birth_date,omitempty"`
	StudentEntryDate *time.Time `gorm:"type:date;column:student_entry_date" json:"student_entry_date,omitempty"`
	StudentPhotoPath *string    `gorm:"type:varchar(255);column:student_photo_path" json:"student_photo_path,omitempty"`

	// Lifecycle
	StudentIsActive       softdelete.ActiveFlag `gorm:"type:boolean;not null;column:student_is_active" json:"student_is_active"`
	StudentInactiveReason *string               `gorm:"type:varchar(255);column:student_inactive_reason" json:"student_inactive_reason,omitempty"`
	StudentDeactivatedAt  *time.Time            `gorm:"column:student_deactivated_at" json:"student_deactivated_at,omitempty"`

	// Optimistic concurrency token, bumped on every write.
	StudentRowVersion int64 `gorm:"not null;column:student_row_version" json:"student_row_version"`

	StudentCreatedAt time.Time `gorm:"column:student_created_at;autoCreateTime" json:"student_created_at"`
	StudentUpdatedAt time.Time `gorm:"column:student_updated_at;autoUpdateTime" json:"student_updated_at"`
}

func (StudentModel) TableName() string { return "students" }

func (s StudentModel) IsActive() bool { return bool(s.StudentIsActive) }

func (s StudentModel) FullName() string {
	return strings.TrimSpace(s.StudentFirstName + " " + s.StudentLastName)
}

func (s *StudentModel) normalize() {
	s.StudentFirstName = strings.TrimSpace(s.StudentFirstName)
	s.StudentLastName = strings.TrimSpace(s.StudentLastName)
	if s.StudentNationalCode != nil {
		v := strings.TrimSpace(*s.StudentNationalCode)
		if v == "" {
			s.StudentNationalCode = nil
		} else {
			s.StudentNationalCode = &v
		}
	}
	if s.StudentFormStatuses == nil {
		s.StudentFormStatuses = datatypes.JSONSlice[FormStatus]{}
	}
}

func (s *StudentModel) BeforeCreate(tx *gorm.DB) error {
	if s.StudentID == uuid.Nil {
		s.StudentID = uuid.New()
	}
	if s.StudentRowVersion == 0 {
		s.StudentRowVersion = 1
	}
	s.normalize()
	return nil
}
