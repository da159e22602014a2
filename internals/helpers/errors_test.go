package helper

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: students.student_national_code")))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(nil))
}

func TestMapDBError(t *testing.T) {
	assert.Nil(t, MapDBError(nil, "x", "y"))

	err := MapDBError(gorm.ErrRecordNotFound, "student not found", "dup")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "student not found", err.Error())

	err = MapDBError(gorm.ErrDuplicatedKey, "nf", "national code already in use")
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, "national code already in use", err.Error())

	err = MapDBError(&pgconn.PgError{Code: "23503"}, "nf", "dup")
	assert.ErrorIs(t, err, ErrValidation)

	raw := errors.New("connection reset")
	err = MapDBError(raw, "nf", "dup")
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, raw)

	already := Conflict("stale row version")
	assert.Same(t, already, MapDBError(already, "nf", "dup"))
}

func TestKindOfAndStatus(t *testing.T) {
	assert.Equal(t, ErrValidation, KindOf(Validation("bad")))
	assert.Equal(t, ErrNotFound, KindOf(fmt.Errorf("wrap: %w", NotFound("gone"))))
	assert.Equal(t, ErrStorage, KindOf(errors.New("boom")))

	assert.Equal(t, fiber.StatusBadRequest, StatusOf(ValidationField("from", "bad date")))
	assert.Equal(t, fiber.StatusNotFound, StatusOf(NotFound("x")))
	assert.Equal(t, fiber.StatusConflict, StatusOf(Conflict("x")))
	assert.Equal(t, fiber.StatusInternalServerError, StatusOf(Storage(errors.New("x"))))
	assert.Equal(t, fiber.StatusTeapot, StatusOf(fiber.NewError(fiber.StatusTeapot, "tea")))
}

func TestFromServiceErrorRendersStandardShape(t *testing.T) {
	app := fiber.New()
	app.Get("/conflict", func(c *fiber.Ctx) error { return FromServiceError(c, Conflict("stale row version")) })
	app.Get("/field", func(c *fiber.Ctx) error { return FromServiceError(c, ValidationField("from", "invalid date")) })
	app.Get("/storage", func(c *fiber.Ctx) error { return FromServiceError(c, Storage(errors.New("disk on fire"))) })

	cases := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/conflict", 409, "CONFLICT", "stale row version"},
		{"/field", 400, "VALIDATION_ERROR", "invalid date"},
		{"/storage", 500, "INTERNAL_ERROR", "internal server error"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)

		body, _ := io.ReadAll(resp.Body)
		var got ErrorResponse
		require.NoError(t, sonic.Unmarshal(body, &got))
		assert.False(t, got.Success)
		assert.Equal(t, tc.code, got.ErrorCode, tc.path)
		assert.Equal(t, tc.message, got.Message, tc.path)
		if tc.path == "/field" {
			assert.Equal(t, []string{"invalid date"}, got.Errors["from"])
		}
	}
}
