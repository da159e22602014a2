package service

import (
	"context"
	"testing"

	"hozur_backend/internals/constants"
	"hozur_backend/internals/databases/dbtest"
	"hozur_backend/internals/features/attendance/realtime"
	"hozur_backend/internals/features/attendance/students/dto"
	helper "hozur_backend/internals/helpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func newService(t *testing.T) (*Service, *realtime.Hub) {
	t.Helper()
	hub := realtime.NewHub(32)
	return New(dbtest.New(t), hub, nil), hub
}

func req(first, last string, code *string) dto.StudentRequest {
	return dto.StudentRequest{StudentFirstName: first, StudentLastName: last, StudentNationalCode: code}
}

func TestCreateStudentNormalizesAndEmits(t *testing.T) {
	svc, hub := newService(t)
	events, cancel := hub.Subscribe()
	defer cancel()

	in := req("  Sara ", " Ahmadi ", strp("۰۴۹۹۳۷۰۸۹۹"))
	in.StudentBirthDate = strp("1385/02/10")
	m, err := svc.Create(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, "Sara", m.StudentFirstName)
	assert.Equal(t, "0499370899", *m.StudentNationalCode)
	assert.EqualValues(t, 1, m.StudentRowVersion)
	assert.True(t, m.IsActive())
	require.NotNil(t, m.StudentBirthDate)
	assert.Equal(t, "2006-04-30", m.StudentBirthDate.Format("2006-01-02"))

	ev := <-events
	assert.Equal(t, constants.EventStudentChanged, ev.Type)
	assert.Equal(t, m.StudentID.String(), ev.ID)
}

func TestCreateStudentValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, req("", "Ahmadi", nil), nil)
	assert.ErrorIs(t, err, helper.ErrValidation)

	_, err = svc.Create(ctx, req("Sara", "Ahmadi", strp("1234567890")), nil)
	assert.ErrorIs(t, err, helper.ErrValidation)

	bad := req("Sara", "Ahmadi", nil)
	bad.StudentBirthDate = strp("1385/13/40")
	_, err = svc.Create(ctx, bad, nil)
	assert.ErrorIs(t, err, helper.ErrValidation)

	unknownClass := req("Sara", "Ahmadi", nil)
	unknownClass.StudentClassID = strp(uuid.NewString())
	_, err = svc.Create(ctx, unknownClass, nil)
	assert.ErrorIs(t, err, helper.ErrValidation)
}

func TestNationalCodeUniqueAmongActiveStudents(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	code := "0012345679"

	first, err := svc.Create(ctx, req("Ali", "Karimi", strp(code)), nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, req("Reza", "Karimi", strp(code)), nil)
	require.ErrorIs(t, err, helper.ErrConflict)

	require.NoError(t, svc.Deactivate(ctx, first.StudentID, "moved away"))

	second, err := svc.Create(ctx, req("Reza", "Karimi", strp(code)), nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.StudentID, second.StudentID)

	_, err = svc.Restore(ctx, first.StudentID)
	assert.ErrorIs(t, err, helper.ErrConflict)
}

func TestUpdateRequiresCurrentRowVersion(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, req("Ali", "Karimi", nil), nil)
	require.NoError(t, err)

	up := dto.UpdateStudentRequest{StudentRequest: req("Ali", "Rahimi", nil), StudentRowVersion: m.StudentRowVersion}
	out, err := svc.Update(ctx, m.StudentID, up, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rahimi", out.StudentLastName)
	assert.EqualValues(t, 2, out.StudentRowVersion)

	stale := dto.UpdateStudentRequest{StudentRequest: req("Ali", "Stale", nil), StudentRowVersion: 1}
	_, err = svc.Update(ctx, m.StudentID, stale, nil)
	require.ErrorIs(t, err, helper.ErrConflict)

	got, err := svc.Get(ctx, m.StudentID, false)
	require.NoError(t, err)
	assert.Equal(t, "Rahimi", got.Student.StudentLastName)

	_, err = svc.Update(ctx, uuid.New(), up, nil)
	assert.ErrorIs(t, err, helper.ErrNotFound)
}

func TestDeactivateHidesAndRestoreReturns(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, req("Ali", "Karimi", nil), nil)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, m.StudentID, "left"))

	_, err = svc.Get(ctx, m.StudentID, false)
	assert.ErrorIs(t, err, helper.ErrNotFound)

	archived, err := svc.Get(ctx, m.StudentID, true)
	require.NoError(t, err)
	assert.False(t, archived.Student.IsActive())
	assert.Equal(t, "left", *archived.Student.StudentInactiveReason)
	assert.NotNil(t, archived.Student.StudentDeactivatedAt)

	rows, total, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)

	rows, total, err = svc.List(ctx, ListQuery{Archived: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)

	restored, err := svc.Restore(ctx, m.StudentID)
	require.NoError(t, err)
	assert.True(t, restored.IsActive())
	assert.Nil(t, restored.StudentInactiveReason)

	_, err = svc.Restore(ctx, m.StudentID)
	assert.ErrorIs(t, err, helper.ErrNotFound)
}

func TestListOrderingSearchAndPaging(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, n := range [][2]string{{"Zahra", "Bahrami"}, {"Ali", "Bahrami"}, {"Mina", "Akbari"}, {"Hadi", "Tavakoli"}} {
		_, err := svc.Create(ctx, req(n[0], n[1], nil), nil)
		require.NoError(t, err)
	}

	rows, total, err := svc.List(ctx, ListQuery{Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, rows, 3)
	assert.Equal(t, "Akbari", rows[0].StudentLastName)
	assert.Equal(t, "Ali", rows[1].StudentFirstName)
	assert.Equal(t, "Zahra", rows[2].StudentFirstName)

	rows, total, err = svc.List(ctx, ListQuery{Search: "bahr"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)
}

func TestPurgeOnlyArchivedStudents(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, req("Ali", "Karimi", nil), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Purge(ctx, m.StudentID), helper.ErrConflict)

	require.NoError(t, svc.Deactivate(ctx, m.StudentID, ""))
	require.NoError(t, svc.Purge(ctx, m.StudentID))

	_, err = svc.Get(ctx, m.StudentID, true)
	assert.ErrorIs(t, err, helper.ErrNotFound)
	assert.ErrorIs(t, svc.Purge(ctx, m.StudentID), helper.ErrNotFound)
}
