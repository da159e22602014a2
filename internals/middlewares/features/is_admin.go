package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"hozur_backend/internals/configs"
	helper "hozur_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

const adminKeyHeader = "X-Admin-Key"

// IsAdmin guards the administrative routes (hard purge) with ADMIN_API_KEY.
// Without a configured key every admin call is refused.
func IsAdmin() fiber.Handler {
	return IsAdminWithKey(configs.GetEnv("ADMIN_API_KEY"))
}

func IsAdminWithKey(key string) fiber.Handler {
	key = strings.TrimSpace(key)
	if key == "" {
		log.Println("⚠️ [ADMIN] ADMIN_API_KEY not set, admin routes are disabled")
	}
	return keyauth.New(keyauth.Config{
		KeyLookup: "header:" + adminKeyHeader,
		Validator: func(c *fiber.Ctx, got string) (bool, error) {
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return false, keyauth.ErrMissingOrMalformedAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return helper.JsonError(c, fiber.StatusForbidden, "admin key required")
		},
	})
}
