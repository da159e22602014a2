package route

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"hozur_backend/internals/databases/dbtest"
	"hozur_backend/internals/features/attendance/realtime"
	sessionModel "hozur_backend/internals/features/attendance/sessions/model"
	studentModel "hozur_backend/internals/features/attendance/students/model"
	"hozur_backend/internals/helpers/softdelete"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	ErrorCode string         `json:"error_code"`
	Data      map[string]any `json:"data"`
}

func call(t *testing.T, app *fiber.App, method, url, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, sonic.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	db := dbtest.New(t)
	hub := realtime.NewHub(64)
	app := fiber.New(fiber.Config{JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	api := app.Group("/api")
	SessionRoutes(api, db, hub, nil)
	SessionAdminRoutes(api.Group("/admin"), db, hub)

	st := studentModel.StudentModel{StudentFirstName: "Ali", StudentLastName: "Karimi", StudentIsActive: softdelete.Active}
	require.NoError(t, db.Create(&st).Error)

	code, env := call(t, app, "POST", "/api/attendance/sessions", `{
		"title": "Morning",
		"date": "1403/01/05",
		"starts_at": "08:00",
		"student_ids": ["`+st.StudentID.String()+`"]
	}`)
	require.Equal(t, fiber.StatusCreated, code, env.Message)
	id := env.Data["session_id"].(string)
	assert.Equal(t, "1403/01/05", env.Data["session_date_shamsi"])
	assert.Equal(t, "initialized", env.Data["session_state"])

	batch := `{"records":[{"record_id":0,"student_id":"` + st.StudentID.String() + `","status":3,"check_in":"08:20","notes":"traffic"}]}`
	code, env = call(t, app, "PUT", "/api/attendance/sessions/"+id+"/records", batch)
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.EqualValues(t, 1, env.Data["applied"])
	assert.Equal(t, "finalized", env.Data["state"])

	code, env = call(t, app, "PUT", "/api/attendance/sessions/"+id+"/records", batch)
	require.Equal(t, fiber.StatusOK, code)
	var n int64
	require.NoError(t, db.Model(&sessionModel.AttendanceRecordModel{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	code, env = call(t, app, "GET", "/api/attendance/sessions/"+id, "")
	require.Equal(t, fiber.StatusOK, code)
	records := env.Data["records"].([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.EqualValues(t, 3, rec["status"])
	assert.EqualValues(t, 20, rec["late_minutes"])
	assert.Equal(t, "traffic", rec["notes"])

	code, _ = call(t, app, "DELETE", "/api/attendance/sessions/"+id, "")
	require.Equal(t, fiber.StatusOK, code)
	code, env = call(t, app, "GET", "/api/attendance/sessions/"+id, "")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.ErrorCode)
	code, env = call(t, app, "GET", "/api/attendance/sessions/"+id+"?include_archived=true", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.NotNil(t, env.Data["session_deleted_at"])

	code, _ = call(t, app, "DELETE", "/api/admin/attendance/sessions/"+id, "")
	assert.Equal(t, fiber.StatusOK, code)
}

func TestBatchForMissingRosterEntryReportsPerItem(t *testing.T) {
	db := dbtest.New(t)
	app := fiber.New(fiber.Config{JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	SessionRoutes(app.Group("/api"), db, nil, nil)

	code, env := call(t, app, "POST", "/api/attendance/sessions", `{"title":"Empty","date":"2024-05-01"}`)
	require.Equal(t, fiber.StatusCreated, code, env.Message)
	id := env.Data["session_id"].(string)

	code, env = call(t, app, "PUT", "/api/attendance/sessions/"+id+"/records",
		`{"records":[{"record_id":null,"student_id":"6f1c2b8e-2d1a-4d2e-9a57-3c1f8e0b9a11","status":1}]}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.EqualValues(t, 0, env.Data["applied"])
	items := env.Data["items"].([]any)
	assert.Equal(t, "NOT_FOUND", items[0].(map[string]any)["code"])

	code, env = call(t, app, "PUT", "/api/attendance/sessions/"+id+"/records", `{"records":[{"record_id":"nope","status":1}]}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, env = call(t, app, "POST", "/api/attendance/sessions", `{"title":"Bad","date":"1403/13/01"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.ErrorCode)
}
