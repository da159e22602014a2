package route

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"hozur_backend/internals/databases/dbtest"
	sessionModel "hozur_backend/internals/features/attendance/sessions/model"
	studentModel "hozur_backend/internals/features/attendance/students/model"
	"hozur_backend/internals/helpers/softdelete"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newApp(db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	ReportRoutes(app.Group("/api"), db, nil)
	return app
}

func get(t *testing.T, app *fiber.App, url string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", url, nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestReportEndpointReturnsBareArray(t *testing.T) {
	db := dbtest.New(t)
	app := newApp(db)

	st := studentModel.StudentModel{StudentFirstName: "Ali", StudentLastName: "Karimi", StudentIsActive: softdelete.Active}
	require.NoError(t, db.Create(&st).Error)
	day := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	sess := sessionModel.AttendanceSessionModel{
		AttendanceSessionTitle:    "Morning",
		AttendanceSessionDate:     day,
		AttendanceSessionIsActive: softdelete.Active,
	}
	require.NoError(t, db.Create(&sess).Error)
	late := 5
	require.NoError(t, db.Create(&sessionModel.AttendanceRecordModel{
		AttendanceRecordSessionID:   sess.AttendanceSessionID,
		AttendanceRecordStudentID:   st.StudentID,
		AttendanceRecordDate:        day,
		AttendanceRecordStatus:      sessionModel.StatusLate,
		AttendanceRecordLateMinutes: &late,
	}).Error)

	code, body := get(t, app, "/api/attendance/report?from=2024-03-20&to=1403/01/01")
	require.Equal(t, fiber.StatusOK, code, string(body))

	var items []map[string]any
	require.NoError(t, sonic.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Ali Karimi", items[0]["studentName"])
	assert.EqualValues(t, 3, items[0]["status"])
	assert.EqualValues(t, 5, items[0]["lateMinutes"])
	assert.Equal(t, "1403/01/01", items[0]["dateShamsi"])
	assert.Contains(t, items[0], "photo")

	code, body = get(t, app, "/api/attendance/report?from=2023-01-01&to=2023-01-31")
	require.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, "[]", string(body))
}

func TestReportEndpointValidation(t *testing.T) {
	app := newApp(dbtest.New(t))

	for _, url := range []string{
		"/api/attendance/report",
		"/api/attendance/report?from=2024-02-01&to=2024-01-01",
		"/api/attendance/report?from=abc/01/01&to=2024-01-01",
		"/api/attendance/report?from=2024/13/01&to=2024-01-01",
	} {
		code, body := get(t, app, url)
		assert.Equal(t, fiber.StatusBadRequest, code, url)

		var e map[string]any
		require.NoError(t, sonic.Unmarshal(body, &e))
		assert.Equal(t, "VALIDATION_ERROR", e["error_code"], url)
	}
}
