package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminApp(key string) *fiber.App {
	app := fiber.New()
	app.Delete("/admin/thing", IsAdminWithKey(key), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func call(t *testing.T, app *fiber.App, key string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodDelete, "/admin/thing", nil)
	if key != "" {
		req.Header.Set(adminKeyHeader, key)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	return res.StatusCode
}

func TestIsAdminWithKey(t *testing.T) {
	app := adminApp("s3cret")

	assert.Equal(t, fiber.StatusForbidden, call(t, app, ""))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "wrong"))
	assert.Equal(t, fiber.StatusNoContent, call(t, app, "s3cret"))
}

func TestIsAdminWithoutConfiguredKeyRefusesEverything(t *testing.T) {
	app := adminApp("  ")

	assert.Equal(t, fiber.StatusForbidden, call(t, app, ""))
	assert.Equal(t, fiber.StatusForbidden, call(t, app, "anything"))
}
