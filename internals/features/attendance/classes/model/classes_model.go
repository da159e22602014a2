package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* =========================================
   Model: teachers
========================================= */

type TeacherModel struct {
	TeacherID        uuid.UUID `gorm:"type:uuid;primaryKey;column:teacher_id" json:"teacher_id"`
	TeacherFirstName string    `gorm:"type:varchar(80);not null;column:teacher_first_name" json:"teacher_first_name"`
	TeacherLastName  string    `gorm:"type:varchar(80);not null;column:teacher_last_name" json:"teacher_last_name"`
	TeacherPhone     *string   `gorm:"type:varchar(20);column:teacher_phone" json:"teacher_phone,omitempty"`

	TeacherCreatedAt time.Time `gorm:"column:teacher_created_at;autoCreateTime" json:"teacher_created_at"`
	TeacherUpdatedAt time.Time `gorm:"column:teacher_updated_at;autoUpdateTime" json:"teacher_updated_at"`
}

func (TeacherModel) TableName() string { return "teachers" }

func (t *TeacherModel) BeforeCreate(tx *gorm.DB) error {
	if t.TeacherID == uuid.Nil {
		t.TeacherID = uuid.New()
	}
	t.TeacherFirstName = strings.TrimSpace(t.TeacherFirstName)
	t.TeacherLastName = strings.TrimSpace(t.TeacherLastName)
	return nil
}

func (t TeacherModel) FullName() string {
	return strings.TrimSpace(t.TeacherFirstName + " " + t.TeacherLastName)
}

/* =========================================
   Model: classes
========================================= */

type ClassModel struct {
	ClassID        uuid.UUID  `gorm:"type:uuid;primaryKey;column:class_id" json:"class_id"`
	ClassName      string     `gorm:"type:varchar(120);not null;column:class_name" json:"class_name"`
	ClassGrade     *string    `gorm:"type:varchar(40);column:class_grade" json:"class_grade,omitempty"`
	ClassTeacherID *uuid.UUID `gorm:"type:uuid;index;column:class_teacher_id" json:"class_teacher_id,omitempty"`

	ClassCreatedAt time.Time `gorm:"column:class_created_at;autoCreateTime" json:"class_created_at"`
	ClassUpdatedAt time.Time `gorm:"column:class_updated_at;autoUpdateTime" json:"class_updated_at"`
}

func (ClassModel) TableName() string { return "classes" }

func (c *ClassModel) BeforeCreate(tx *gorm.DB) error {
	if c.ClassID == uuid.Nil {
		c.ClassID = uuid.New()
	}
	c.ClassName = strings.TrimSpace(c.ClassName)
	return nil
}
