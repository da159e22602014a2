package dto

import (
	"strings"
	"time"

	"hozur_backend/internals/features/attendance/classes/model"

	"github.com/google/uuid"
)

/* ===================== Teachers ===================== */

type CreateTeacherRequest struct {
	TeacherFirstName string  `json:"teacher_first_name" validate:"required,max=80"`
	TeacherLastName  string  `json:"teacher_last_name" validate:"required,max=80"`
	TeacherPhone     *string `json:"teacher_phone" validate:"omitempty,max=20"`
}

func (r *CreateTeacherRequest) Normalize() {
	r.TeacherFirstName = strings.TrimSpace(r.TeacherFirstName)
	r.TeacherLastName = strings.TrimSpace(r.TeacherLastName)
	if r.TeacherPhone != nil {
		v := strings.TrimSpace(*r.TeacherPhone)
		if v == "" {
			r.TeacherPhone = nil
		} else {
			r.TeacherPhone = &v
		}
	}
}

func (r CreateTeacherRequest) ToModel() model.TeacherModel {
	return model.TeacherModel{
		TeacherFirstName: r.TeacherFirstName,
		TeacherLastName:  r.TeacherLastName,
		TeacherPhone:     r.TeacherPhone,
	}
}

type TeacherResponse struct {
	TeacherID        uuid.UUID `json:"teacher_id"`
	TeacherFirstName string    `json:"teacher_first_name"`
	TeacherLastName  string    `json:"teacher_last_name"`
	TeacherFullName  string    `json:"teacher_full_name"`
	TeacherPhone     *string   `json:"teacher_phone,omitempty"`
	TeacherCreatedAt time.Time `json:"teacher_created_at"`
}

func FromTeacher(m model.TeacherModel) TeacherResponse {
	return TeacherResponse{
		TeacherID:        m.TeacherID,
		TeacherFirstName: m.TeacherFirstName,
		TeacherLastName:  m.TeacherLastName,
		TeacherFullName:  m.FullName(),
		TeacherPhone:     m.TeacherPhone,
		TeacherCreatedAt: m.TeacherCreatedAt,
	}
}

/* ===================== Classes ===================== */

type CreateClassRequest struct {
	ClassName      string     `json:"class_name" validate:"required,max=120"`
	ClassGrade     *string    `json:"class_grade" validate:"omitempty,max=40"`
	ClassTeacherID *uuid.UUID `json:"class_teacher_id"`
}

func (r *CreateClassRequest) Normalize() {
	r.ClassName = strings.TrimSpace(r.ClassName)
	if r.ClassGrade != nil {
		v := strings.TrimSpace(*r.ClassGrade)
		if v == "" {
			r.ClassGrade = nil
		} else {
			r.ClassGrade = &v
		}
	}
	if r.ClassTeacherID != nil && *r.ClassTeacherID == uuid.Nil {
		r.ClassTeacherID = nil
	}
}

func (r CreateClassRequest) ToModel() model.ClassModel {
	return model.ClassModel{
		ClassName:      r.ClassName,
		ClassGrade:     r.ClassGrade,
		ClassTeacherID: r.ClassTeacherID,
	}
}

type ClassResponse struct {
	ClassID          uuid.UUID  `json:"class_id"`
	ClassName        string     `json:"class_name"`
	ClassGrade       *string    `json:"class_grade,omitempty"`
	ClassTeacherID   *uuid.UUID `json:"class_teacher_id,omitempty"`
	ClassTeacherName *string    `json:"class_teacher_name,omitempty"`
	ClassStudents    int64      `json:"class_students"`
	ClassCreatedAt   time.Time  `json:"class_created_at"`
}

func FromClass(m model.ClassModel, teacherName *string, students int64) ClassResponse {
	return ClassResponse{
		ClassID:          m.ClassID,
		ClassName:        m.ClassName,
		ClassGrade:       m.ClassGrade,
		ClassTeacherID:   m.ClassTeacherID,
		ClassTeacherName: teacherName,
		ClassStudents:    students,
		ClassCreatedAt:   m.ClassCreatedAt,
	}
}
