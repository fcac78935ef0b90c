package exts

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

// OperatorOnly requires the configured operator token as a bearer token.
// Without a configured token every request passes.
func OperatorOnly(c *fiber.Ctx) error {
	token := viper.GetString("security.operator_token")
	if len(token) == 0 {
		return c.Next()
	}

	given := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
		return fiber.NewError(fiber.StatusUnauthorized, "operator token required")
	}
	return c.Next()
}
