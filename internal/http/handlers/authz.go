package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"litledger/internal/domain"
	applog "litledger/internal/log"
	"litledger/internal/services"
	"litledger/internal/validate"
)

const (
	HeaderToken = "X-Webhook-Token"
	HeaderActor = "X-Actor-ID"
)

// RequireToken checks the shared transport token against its bcrypt hash.
// With no hash configured every request is refused, unless open is set.
func RequireToken(hash string, open bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			if open {
				return c.Next()
			}
			applog.Security(c, "auth.token.unconfigured", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		tok := c.Get(HeaderToken)
		if tok == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(tok)) != nil {
			applog.Security(c, "auth.token.invalid", map[string]any{"present": tok != ""})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		return c.Next()
	}
}

// RequireRole resolves the acting user from X-Actor-ID and enforces min.
func RequireRole(access *services.AccessService, min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := validate.ID(c.Get(HeaderActor))
		if !ok {
			applog.Security(c, "access.denied.no_actor", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing actor"})
		}
		role, err := access.Require(c.UserContext(), id, min)
		if err != nil {
			return apiError(c, err)
		}
		c.Locals("actor", id)
		c.Locals("role", role)
		return c.Next()
	}
}
