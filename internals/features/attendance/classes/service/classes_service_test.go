package service

import (
	"context"
	"testing"

	"hozur_backend/internals/databases/dbtest"
	"hozur_backend/internals/features/attendance/classes/dto"
	studentModel "hozur_backend/internals/features/attendance/students/model"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/softdelete"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateClassWithTeacherAndCountActiveStudents(t *testing.T) {
	db := dbtest.New(t)
	svc := New(db)
	ctx := context.Background()

	teacher, err := svc.CreateTeacher(ctx, dto.CreateTeacherRequest{TeacherFirstName: " Maryam", TeacherLastName: "Rostami "})
	require.NoError(t, err)
	assert.Equal(t, "Maryam Rostami", teacher.FullName())

	cls, err := svc.CreateClass(ctx, dto.CreateClassRequest{ClassName: "7-A", ClassTeacherID: &teacher.TeacherID})
	require.NoError(t, err)

	for i, active := range []softdelete.ActiveFlag{softdelete.Active, softdelete.Active, softdelete.Archived} {
		st := studentModel.StudentModel{
			StudentFirstName: "S",
			StudentLastName:  string(rune('A' + i)),
			StudentClassID:   &cls.ClassID,
			StudentIsActive:  active,
		}
		require.NoError(t, db.Create(&st).Error)
	}

	got, err := svc.GetClass(ctx, cls.ClassID)
	require.NoError(t, err)
	assert.Equal(t, "7-A", got.ClassName)
	require.NotNil(t, got.TeacherName())
	assert.Equal(t, "Maryam Rostami", *got.TeacherName())
	assert.EqualValues(t, 2, got.Students)

	list, err := svc.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cls.ClassID, list[0].ClassID)
}

func TestCreateClassRejectsUnknownTeacher(t *testing.T) {
	svc := New(dbtest.New(t))
	ctx := context.Background()

	missing := uuid.New()
	_, err := svc.CreateClass(ctx, dto.CreateClassRequest{ClassName: "8-B", ClassTeacherID: &missing})
	assert.ErrorIs(t, err, helper.ErrValidation)

	_, err = svc.CreateClass(ctx, dto.CreateClassRequest{ClassName: "  "})
	assert.ErrorIs(t, err, helper.ErrValidation)

	_, err = svc.GetClass(ctx, uuid.New())
	assert.ErrorIs(t, err, helper.ErrNotFound)
}
