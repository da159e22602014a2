package service

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"hozur_backend/internals/constants"
	classModel "hozur_backend/internals/features/attendance/classes/model"
	"hozur_backend/internals/features/attendance/realtime"
	sessionModel "hozur_backend/internals/features/attendance/sessions/model"
	"hozur_backend/internals/features/attendance/students/dto"
	"hozur_backend/internals/features/attendance/students/model"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/dbtime"
	"hozur_backend/internals/helpers/photo"
	"hozur_backend/internals/helpers/softdelete"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	msgNotFound     = "student not found"
	msgCodeTaken    = "national code is already used by an active student"
	msgStaleVersion = "student was modified by someone else; reload and retry"
)

type Service struct {
	DB     *gorm.DB
	Events realtime.Publisher
	Photos *photo.Service
}

func New(db *gorm.DB, events realtime.Publisher, photos *photo.Service) *Service {
	return &Service{DB: db, Events: events, Photos: photos}
}

type Detail struct {
	Student   model.StudentModel
	ClassName *string
}

type ListQuery struct {
	Search   string
	ClassID  *uuid.UUID
	Archived bool
	Offset   int
	Limit    int
}

/* =========================
   Reads
========================= */

func (s *Service) Get(ctx context.Context, id uuid.UUID, includeArchived bool) (*Detail, error) {
	var m model.StudentModel
	err := s.DB.WithContext(ctx).
		Scopes(softdelete.WithArchived(includeArchived)).
		Where("student_id = ?", id).
		Take(&m).Error
	if err != nil {
		return nil, helper.MapDBError(err, msgNotFound, "")
	}

	out := &Detail{Student: m}
	if m.StudentClassID != nil {
		var cls classModel.ClassModel
		err := s.DB.WithContext(ctx).Select("class_name").Where("class_id = ?", *m.StudentClassID).Take(&cls).Error
		switch {
		case err == nil:
			out.ClassName = &cls.ClassName
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, helper.Storage(err)
		}
	}
	return out, nil
}

// List is ordered by surname, given name, id. Archived=true lists inactive students only.
func (s *Service) List(ctx context.Context, q ListQuery) ([]model.StudentModel, int64, error) {
	tx := s.DB.WithContext(ctx).Model(&model.StudentModel{})
	if q.Archived {
		tx = tx.Scopes(softdelete.OnlyArchived(model.ColStudentIsActive))
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		tx = tx.Where(
			"LOWER(student_first_name) LIKE ? OR LOWER(student_last_name) LIKE ? OR student_national_code LIKE ?",
			like, like, like,
		)
	}
	if q.ClassID != nil {
		tx = tx.Where("student_class_id = ?", *q.ClassID)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, helper.Storage(err)
	}

	var rows []model.StudentModel
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	if err := tx.Order("student_last_name ASC, student_first_name ASC, student_id ASC").Find(&rows).Error; err != nil {
		return nil, 0, helper.Storage(err)
	}
	return rows, total, nil
}

/* =========================
   Writes
========================= */

func (s *Service) prepare(ctx context.Context, req *dto.StudentRequest) (birth, entry *time.Time, err error) {
	req.Normalize()
	if err := helper.ValidateStruct(req); err != nil {
		return nil, nil, err
	}
	loc := dbtime.SchoolLocation()
	if req.StudentBirthDate != nil {
		d, err := dbtime.ParseDay(*req.StudentBirthDate, loc)
		if err != nil {
			return nil, nil, helper.ValidationField("student_birth_date", err.Error())
		}
		birth = &d
	}
	if req.StudentEntryDate != nil {
		d, err := dbtime.ParseDay(*req.StudentEntryDate, loc)
		if err != nil {
			return nil, nil, helper.ValidationField("student_entry_date", err.Error())
		}
		entry = &d
	}
	if cid := req.ClassUUID(); cid != nil {
		var n int64
		if err := s.DB.WithContext(ctx).Model(&classModel.ClassModel{}).Where("class_id = ?", *cid).Count(&n).Error; err != nil {
			return nil, nil, helper.Storage(err)
		}
		if n == 0 {
			return nil, nil, helper.ValidationField("student_class_id", "class does not exist")
		}
	}
	return birth, entry, nil
}

// savePhoto writes the file before any row is touched; the returned key is
// persisted only if the entity write succeeds.
func (s *Service) savePhoto(ctx context.Context, fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}
	if s.Photos == nil {
		return nil, helper.ValidationField("photo", "photo uploads are disabled")
	}
	key, err := s.Photos.SaveUpload(ctx, fh)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Service) dropPhoto(ctx context.Context, key *string) {
	if key == nil || s.Photos == nil {
		return
	}
	if err := s.Photos.Delete(ctx, *key); err != nil {
		log.Printf("[STUDENT] cleanup photo %s failed: %v", *key, err)
	}
}

func (s *Service) Create(ctx context.Context, req dto.StudentRequest, fh *multipart.FileHeader) (*model.StudentModel, error) {
	birth, entry, err := s.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}
	photoKey, err := s.savePhoto(ctx, fh)
	if err != nil {
		return nil, err
	}

	m := model.StudentModel{
		StudentFirstName:     req.StudentFirstName,
		StudentLastName:      req.StudentLastName,
		StudentNationalCode:  req.StudentNationalCode,
		StudentGuardianName:  req.StudentGuardianName,
		StudentClassID:       req.ClassUUID(),
		StudentSchool:        req.StudentSchool,
		StudentGrade:         req.StudentGrade,
		StudentWorkgroup:     req.StudentWorkgroup,
		StudentCoach:         req.StudentCoach,
		StudentFormStatuses:  datatypes.JSONSlice[model.FormStatus](req.StudentFormStatuses),
		StudentPaymentStatus: req.StudentPaymentStatus,
		StudentBirthDate:     birth,
		StudentEntryDate:     entry,
		StudentPhotoPath:     photoKey,
		StudentIsActive:      softdelete.Active,
		StudentRowVersion:    1,
	}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		s.dropPhoto(ctx, photoKey)
		return nil, helper.MapDBError(err, msgNotFound, msgCodeTaken)
	}

	realtime.Emit(ctx, s.Events, constants.EventStudentChanged, m.StudentID.String())
	return &m, nil
}

// Update replaces the full entity if req.StudentRowVersion is still current.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req dto.UpdateStudentRequest, fh *multipart.FileHeader) (*model.StudentModel, error) {
	if err := helper.ValidateStruct(struct {
		V int64 `json:"student_row_version" validate:"required,min=1"`
	}{req.StudentRowVersion}); err != nil {
		return nil, err
	}
	birth, entry, err := s.prepare(ctx, &req.StudentRequest)
	if err != nil {
		return nil, err
	}

	var current model.StudentModel
	if err := s.DB.WithContext(ctx).Where("student_id = ?", id).Take(&current).Error; err != nil {
		return nil, helper.MapDBError(err, msgNotFound, "")
	}

	newPhoto, err := s.savePhoto(ctx, fh)
	if err != nil {
		return nil, err
	}
	photoKey := current.StudentPhotoPath
	if newPhoto != nil {
		photoKey = newPhoto
	}

	updates := map[string]any{
		"student_first_name":      req.StudentFirstName,
		"student_last_name":       req.StudentLastName,
		"student_national_code":   req.StudentNationalCode,
		"student_guardian_name":   req.StudentGuardianName,
		"student_class_id":        req.ClassUUID(),
		"student_school":          req.StudentSchool,
		"student_grade":           req.StudentGrade,
		"student_workgroup":       req.StudentWorkgroup,
		"student_coach":           req.StudentCoach,
		"student_form_statuses":   formStatuses(req.StudentFormStatuses),
		"student_payment_status":  req.StudentPaymentStatus,
		"student_birth_date":      birth,
		"student_entry_date":      entry,
		"student_photo_path":      photoKey,
		model.ColStudentRowVersion: gorm.Expr(model.ColStudentRowVersion + " + 1"),
		"student_updated_at":      time.Now().UTC(),
	}

	var out model.StudentModel
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.StudentModel{}).
			Where("student_id = ? AND "+model.ColStudentRowVersion+" = ?", id, req.StudentRowVersion).
			Updates(updates)
		if res.Error != nil {
			return helper.MapDBError(res.Error, msgNotFound, msgCodeTaken)
		}
		if res.RowsAffected == 0 {
			return s.missOrStale(tx, id)
		}
		return tx.Where("student_id = ?", id).Take(&out).Error
	})
	if err != nil {
		s.dropPhoto(ctx, newPhoto)
		return nil, helper.MapDBError(err, msgNotFound, msgCodeTaken)
	}

	if newPhoto != nil && current.StudentPhotoPath != nil && *current.StudentPhotoPath != *newPhoto {
		s.dropPhoto(ctx, current.StudentPhotoPath)
	}
	realtime.Emit(ctx, s.Events, constants.EventStudentChanged, id.String())
	return &out, nil
}

// missOrStale explains a conditional update that touched no row.
func (s *Service) missOrStale(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&model.StudentModel{}).Where("student_id = ?", id).Count(&n).Error; err != nil {
		return helper.Storage(err)
	}
	if n == 0 {
		return helper.NotFound(msgNotFound)
	}
	return helper.Conflict(msgStaleVersion)
}

func formStatuses(in []model.FormStatus) datatypes.JSONSlice[model.FormStatus] {
	if in == nil {
		return datatypes.JSONSlice[model.FormStatus]{}
	}
	return datatypes.JSONSlice[model.FormStatus](in)
}

// Deactivate is the user-facing delete: the row stays, hidden from default reads.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if len(reason) > 255 {
		return helper.ValidationField("reason", "reason is too long")
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	now := time.Now().UTC()

	res := s.DB.WithContext(ctx).Model(&model.StudentModel{}).
		Where("student_id = ?", id).
		Updates(map[string]any{
			model.ColStudentIsActive:   softdelete.Archived,
			"student_inactive_reason":  reasonPtr,
			"student_deactivated_at":   now,
			model.ColStudentRowVersion: gorm.Expr(model.ColStudentRowVersion + " + 1"),
			"student_updated_at":       now,
		})
	if res.Error != nil {
		return helper.MapDBError(res.Error, msgNotFound, "")
	}
	if res.RowsAffected == 0 {
		return helper.NotFound(msgNotFound)
	}
	realtime.Emit(ctx, s.Events, constants.EventStudentChanged, id.String())
	return nil
}

// Restore reactivates an archived student; fails with a conflict when the
// national code has been taken by another active student meanwhile.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*model.StudentModel, error) {
	var out model.StudentModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Model(&model.StudentModel{}).
			Where("student_id = ? AND "+model.ColStudentIsActive+" = ?", id, false).
			Updates(map[string]any{
				model.ColStudentIsActive:   softdelete.Active,
				"student_inactive_reason":  nil,
				"student_deactivated_at":   nil,
				model.ColStudentRowVersion: gorm.Expr(model.ColStudentRowVersion + " + 1"),
				"student_updated_at":       time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return helper.NotFound("archived student not found")
		}
		return tx.Where("student_id = ?", id).Take(&out).Error
	})
	if err != nil {
		return nil, helper.MapDBError(err, msgNotFound, msgCodeTaken)
	}
	realtime.Emit(ctx, s.Events, constants.EventStudentChanged, id.String())
	return &out, nil
}

// Purge is the administrative hard delete. Only archived students qualify; their
// attendance history goes with them.
func (s *Service) Purge(ctx context.Context, id uuid.UUID) error {
	var m model.StudentModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("student_id = ?", id).Take(&m).Error; err != nil {
			return err
		}
		if m.IsActive() {
			return helper.Conflict("deactivate the student before purging")
		}
		if err := tx.Where("attendance_record_student_id = ?", id).Delete(&sessionModel.AttendanceRecordModel{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("student_id = ?", id).Delete(&model.StudentModel{}).Error
	})
	if err != nil {
		return helper.MapDBError(err, msgNotFound, "")
	}
	s.dropPhoto(ctx, m.StudentPhotoPath)
	realtime.Emit(ctx, s.Events, constants.EventStudentChanged, id.String())
	return nil
}

// ReferencedPhotoKeys feeds the photo reaper; archived students keep their photos.
func (s *Service) ReferencedPhotoKeys(ctx context.Context) (map[string]struct{}, error) {
	var keys []string
	if err := s.DB.WithContext(ctx).Unscoped().Model(&model.StudentModel{}).
		Where("student_photo_path IS NOT NULL").
		Pluck("student_photo_path", &keys).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out, nil
}
