package service

import (
	"context"
	"strings"

	"hozur_backend/internals/features/attendance/classes/dto"
	"hozur_backend/internals/features/attendance/classes/model"
	helper "hozur_backend/internals/helpers"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

/* ===================== Teachers ===================== */

func (s *Service) CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*model.TeacherModel, error) {
	req.Normalize()
	if err := helper.ValidateStruct(&req); err != nil {
		return nil, err
	}
	m := req.ToModel()
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, helper.MapDBError(err, "", "teacher already exists")
	}
	return &m, nil
}

func (s *Service) ListTeachers(ctx context.Context) ([]model.TeacherModel, error) {
	var rows []model.TeacherModel
	if err := s.DB.WithContext(ctx).
		Order("teacher_last_name ASC, teacher_first_name ASC, teacher_id ASC").
		Find(&rows).Error; err != nil {
		return nil, helper.Storage(err)
	}
	return rows, nil
}

func (s *Service) teacherExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&model.TeacherModel{}).Where("teacher_id = ?", id).Count(&n).Error
	return n > 0, err
}

/* ===================== Classes ===================== */

// ClassRow is a class with its teacher's name and active student count.
type ClassRow struct {
	model.ClassModel
	TeacherFirstName *string
	TeacherLastName  *string
	Students         int64
}

func (r ClassRow) TeacherName() *string {
	if r.TeacherFirstName == nil && r.TeacherLastName == nil {
		return nil
	}
	var parts []string
	for _, p := range []*string{r.TeacherFirstName, r.TeacherLastName} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	name := strings.Join(parts, " ")
	return &name
}

func (s *Service) CreateClass(ctx context.Context, req dto.CreateClassRequest) (*model.ClassModel, error) {
	req.Normalize()
	if err := helper.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if req.ClassTeacherID != nil {
		ok, err := s.teacherExists(ctx, *req.ClassTeacherID)
		if err != nil {
			return nil, helper.Storage(err)
		}
		if !ok {
			return nil, helper.ValidationField("class_teacher_id", "teacher does not exist")
		}
	}
	m := req.ToModel()
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, helper.MapDBError(err, "", "class already exists")
	}
	return &m, nil
}

func (s *Service) classQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Table("classes").
		Select(`classes.*,
			teachers.teacher_first_name AS teacher_first_name,
			teachers.teacher_last_name AS teacher_last_name,
			(SELECT COUNT(*) FROM students st
			   WHERE st.student_class_id = classes.class_id AND st.student_is_active = TRUE) AS students`).
		Joins("LEFT JOIN teachers ON teachers.teacher_id = classes.class_teacher_id")
}

func (s *Service) ListClasses(ctx context.Context) ([]ClassRow, error) {
	var rows []ClassRow
	if err := s.classQuery(ctx).Order("classes.class_name ASC, classes.class_id ASC").Scan(&rows).Error; err != nil {
		return nil, helper.Storage(err)
	}
	return rows, nil
}

func (s *Service) GetClass(ctx context.Context, id uuid.UUID) (*ClassRow, error) {
	var rows []ClassRow
	if err := s.classQuery(ctx).Where("classes.class_id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, helper.Storage(err)
	}
	if len(rows) == 0 {
		return nil, helper.NotFound("class not found")
	}
	return &rows[0], nil
}
