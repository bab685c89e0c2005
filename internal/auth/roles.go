package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/registry"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// RequireCapability rejects callers lacking capability before the handler
// runs. Operations still check the gate themselves.
func RequireCapability(gate registry.Gate, capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !gate.Can(c.UserContext(), principal.Identity, capability) {
			return apperrors.ErrUnauthorized
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}
