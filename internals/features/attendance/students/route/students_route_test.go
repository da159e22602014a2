package route

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"hozur_backend/internals/databases/dbtest"
	"hozur_backend/internals/helpers/photo"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Message   string              `json:"message"`
	ErrorCode string              `json:"error_code"`
	Errors    map[string][]string `json:"errors"`
	Data      map[string]any      `json:"data"`
}

func setup(t *testing.T) (*fiber.App, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := photo.NewLocalStore(dir, "/uploads/students/")
	require.NoError(t, err)
	photos := photo.New(store, photo.DefaultOptions(2048))

	app := fiber.New(fiber.Config{JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	StudentRoutes(app.Group("/api"), dbtest.New(t), nil, photos)
	return app, dir
}

func do(t *testing.T, app *fiber.App, method, url, contentType string, body io.Reader) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, url, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, sonic.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func multipartStudent(t *testing.T, fields map[string]string, withPhoto bool) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withPhoto {
		img := image.NewRGBA(image.Rect(0, 0, 40, 40))
		for x := 0; x < 40; x++ {
			img.Set(x, x, color.RGBA{R: 200, A: 255})
		}
		fw, err := w.CreateFormFile("photo", "face.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(fw, img))
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &buf
}

func files(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestCreateStudentWithPhotoAndDuplicateCode(t *testing.T) {
	app, dir := setup(t)

	ct, body := multipartStudent(t, map[string]string{
		"student_first_name":    "Sara",
		"student_last_name":     "Ahmadi",
		"student_national_code": "0499370899",
	}, true)
	code, env := do(t, app, "POST", "/api/students", ct, body)
	require.Equal(t, fiber.StatusCreated, code, env.Message)
	url, _ := env.Data["student_photo_url"].(string)
	assert.True(t, strings.HasPrefix(url, "/uploads/students/"))
	assert.True(t, strings.HasSuffix(env.Data["student_photo_thumb_url"].(string), "_thumb.webp"))
	assert.Equal(t, 2, files(t, dir))

	ct, body = multipartStudent(t, map[string]string{
		"student_first_name":    "Other",
		"student_last_name":     "Person",
		"student_national_code": "0499370899",
	}, true)
	code, env = do(t, app, "POST", "/api/students", ct, body)
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.ErrorCode)
	assert.Equal(t, 2, files(t, dir), "photo of the rejected student is cleaned up")
}

func TestUpdateWithStaleVersionOverHTTP(t *testing.T) {
	app, _ := setup(t)

	code, env := do(t, app, "POST", "/api/students", fiber.MIMEApplicationJSON,
		strings.NewReader(`{"student_first_name":"Ali","student_last_name":"Karimi"}`))
	require.Equal(t, fiber.StatusCreated, code, env.Message)
	id := env.Data["student_id"].(string)

	update := func(version int) (int, envelope) {
		return do(t, app, "PUT", "/api/students/"+id, fiber.MIMEApplicationJSON,
			strings.NewReader(`{"student_first_name":"Ali","student_last_name":"Rahimi","student_row_version":`+strconv.Itoa(version)+`}`))
	}

	code, env = update(1)
	require.Equal(t, fiber.StatusOK, code, env.Message)
	assert.EqualValues(t, 2, env.Data["student_row_version"])

	code, env = update(1)
	assert.Equal(t, fiber.StatusConflict, code)

	code, env = do(t, app, "PUT", "/api/students/"+id, fiber.MIMEApplicationJSON,
		strings.NewReader(`{"student_first_name":"Ali","student_last_name":"Rahimi"}`))
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "student_row_version")
}

func TestDeleteDeactivatesStudent(t *testing.T) {
	app, _ := setup(t)

	code, env := do(t, app, "POST", "/api/students", fiber.MIMEApplicationJSON,
		strings.NewReader(`{"student_first_name":"Ali","student_last_name":"Karimi"}`))
	require.Equal(t, fiber.StatusCreated, code)
	id := env.Data["student_id"].(string)

	code, _ = do(t, app, "DELETE", "/api/students/"+id+"?reason=graduated", "", nil)
	require.Equal(t, fiber.StatusOK, code)

	code, _ = do(t, app, "GET", "/api/students/"+id, "", nil)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, env = do(t, app, "GET", "/api/students/"+id+"?include_archived=true", "", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, false, env.Data["student_is_active"])
	assert.Equal(t, "graduated", env.Data["student_inactive_reason"])

	code, env = do(t, app, "POST", "/api/students/"+id+"/restore", "", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, env.Data["student_is_active"])
}
