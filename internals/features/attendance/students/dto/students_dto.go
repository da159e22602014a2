package dto

import (
	"strings"
	"time"

	"hozur_backend/internals/features/attendance/students/model"
	"hozur_backend/internals/helpers/dbtime"
	"hozur_backend/internals/helpers/jalali"
	"hozur_backend/internals/helpers/photo"

	"github.com/google/uuid"
)

/* =========================================================
   REQUESTS
   Full entity on create and update; dates accept YYYY-MM-DD or Shamsi Y/M/D.
========================================================= */

type StudentRequest struct {
	StudentFirstName    string             `json:"student_first_name" form:"student_first_name" validate:"required,max=80"`
	StudentLastName     string             `json:"student_last_name" form:"student_last_name" validate:"required,max=80"`
	StudentNationalCode *string            `json:"student_national_code" form:"student_national_code" validate:"omitempty,ir_national_code"`
	StudentGuardianName *string            `json:"student_guardian_name" form:"student_guardian_name" validate:"omitempty,max=120"`
	StudentClassID      *string            `json:"student_class_id" form:"student_class_id" validate:"omitempty,uuid"`
	StudentSchool       *string            `json:"student_school" form:"student_school" validate:"omitempty,max=120"`
	StudentGrade        *string            `json:"student_grade" form:"student_grade" validate:"omitempty,max=40"`
	StudentWorkgroup    *string            `json:"student_workgroup" form:"student_workgroup" validate:"omitempty,max=80"`
	StudentCoach        *string            `json:"student_coach" form:"student_coach" validate:"omitempty,max=120"`
	StudentFormStatuses []model.FormStatus `json:"student_form_statuses" form:"student_form_statuses" validate:"omitempty,dive,min=0,max=2"`

	StudentPaymentStatus model.PaymentStatus `json:"student_payment_status" form:"student_payment_status" validate:"min=0,max=3"`

	StudentBirthDate *string `json:"student_birth_date" form:"student_birth_date"`
	StudentEntryDate *string `json:"student_entry_date" form:"student_entry_date"`
}

type UpdateStudentRequest struct {
	StudentRequest
	StudentRowVersion int64 `json:"student_row_version" form:"student_row_version" validate:"required,min=1"`
}

type DeactivateStudentRequest struct {
	Reason string `json:"reason" form:"reason" validate:"max=255"`
}

// Normalize trims strings, folds Persian digits in the national code and drops
// empty optionals so they are stored as NULL.
func (r *StudentRequest) Normalize() {
	r.StudentFirstName = strings.TrimSpace(r.StudentFirstName)
	r.StudentLastName = strings.TrimSpace(r.StudentLastName)
	if r.StudentNationalCode != nil {
		v := jalali.NormalizeDigits(*r.StudentNationalCode)
		r.StudentNationalCode = &v
	}
	for _, p := range []**string{
		&r.StudentNationalCode, &r.StudentGuardianName, &r.StudentClassID, &r.StudentSchool,
		&r.StudentGrade, &r.StudentWorkgroup, &r.StudentCoach, &r.StudentBirthDate, &r.StudentEntryDate,
	} {
		if *p == nil {
			continue
		}
		v := strings.TrimSpace(**p)
		if v == "" {
			*p = nil
		} else {
			*p = &v
		}
	}
}

func (r StudentRequest) ClassUUID() *uuid.UUID {
	if r.StudentClassID == nil {
		return nil
	}
	id, err := uuid.Parse(*r.StudentClassID)
	if err != nil {
		return nil
	}
	return &id
}

/* =========================================================
   RESPONSE
========================================================= */

type StudentResponse struct {
	StudentID           uuid.UUID          `json:"student_id"`
	StudentFirstName    string             `json:"student_first_name"`
	StudentLastName     string             `json:"student_last_name"`
	StudentFullName     string             `json:"student_full_name"`
	StudentNationalCode *string            `json:"student_national_code,omitempty"`
	StudentGuardianName *string            `json:"student_guardian_name,omitempty"`
	StudentClassID      *uuid.UUID         `json:"student_class_id,omitempty"`
	StudentClassName    *string            `json:"student_class_name,omitempty"`
	StudentSchool       *string            `json:"student_school,omitempty"`
	StudentGrade        *string            `json:"student_grade,omitempty"`
	StudentWorkgroup    *string            `json:"student_workgroup,omitempty"`
	StudentCoach        *string            `json:"student_coach,omitempty"`
	StudentFormStatuses []model.FormStatus `json:"student_form_statuses"`

	StudentPaymentStatus model.PaymentStatus `json:"student_payment_status"`

	StudentBirthDate       *time.Time `json:"student_birth_date,omitempty"`
	StudentBirthDateShamsi *string    `json:"student_birth_date_shamsi,omitempty"`
	StudentEntryDate       *time.Time `json:"student_entry_date,omitempty"`
	StudentEntryDateShamsi *string    `json:"student_entry_date_shamsi,omitempty"`

	StudentPhotoURL      *string `json:"student_photo_url,omitempty"`
	StudentPhotoThumbURL *string `json:"student_photo_thumb_url,omitempty"`

	StudentIsActive       bool       `json:"student_is_active"`
	StudentInactiveReason *string    `json:"student_inactive_reason,omitempty"`
	StudentDeactivatedAt  *time.Time `json:"student_deactivated_at,omitempty"`
	StudentRowVersion     int64      `json:"student_row_version"`

	StudentCreatedAt       time.Time `json:"student_created_at"`
	StudentCreatedAtShamsi string    `json:"student_created_at_shamsi"`
	StudentUpdatedAt       time.Time `json:"student_updated_at"`
}

func shamsiPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := dbtime.Shamsi(*t)
	return &s
}

// FromModel maps a row; photoURL turns a stored photo key into a public URL.
func FromModel(m model.StudentModel, className *string, photoURL func(key string) string) StudentResponse {
	out := StudentResponse{
		StudentID:              m.StudentID,
		StudentFirstName:       m.StudentFirstName,
		StudentLastName:        m.StudentLastName,
		StudentFullName:        m.FullName(),
		StudentNationalCode:    m.StudentNationalCode,
		StudentGuardianName:    m.StudentGuardianName,
		StudentClassID:         m.StudentClassID,
		StudentClassName:       className,
		StudentSchool:          m.StudentSchool,
		StudentGrade:           m.StudentGrade,
		StudentWorkgroup:       m.StudentWorkgroup,
		StudentCoach:           m.StudentCoach,
		StudentFormStatuses:    []model.FormStatus(m.StudentFormStatuses),
		StudentPaymentStatus:   m.StudentPaymentStatus,
		StudentBirthDate:       m.StudentBirthDate,
		StudentBirthDateShamsi: shamsiPtr(m.StudentBirthDate),
		StudentEntryDate:       m.StudentEntryDate,
		StudentEntryDateShamsi: shamsiPtr(m.StudentEntryDate),
		StudentIsActive:        m.IsActive(),
		StudentInactiveReason:  m.StudentInactiveReason,
		StudentDeactivatedAt:   m.StudentDeactivatedAt,
		StudentRowVersion:      m.StudentRowVersion,
		StudentCreatedAt:       m.StudentCreatedAt,
		StudentCreatedAtShamsi: jalali.ToShamsi(m.StudentCreatedAt.In(dbtime.SchoolLocation())),
		StudentUpdatedAt:       m.StudentUpdatedAt,
	}
	if out.StudentFormStatuses == nil {
		out.StudentFormStatuses = []model.FormStatus{}
	}
	if m.StudentPhotoPath != nil && photoURL != nil {
		u := photoURL(*m.StudentPhotoPath)
		t := photoURL(photo.ThumbKey(*m.StudentPhotoPath))
		out.StudentPhotoURL, out.StudentPhotoThumbURL = &u, &t
	}
	return out
}

func FromModels(rows []model.StudentModel, photoURL func(string) string) []StudentResponse {
	out := make([]StudentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromModel(r, nil, photoURL))
	}
	return out
}
