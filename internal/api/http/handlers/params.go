package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-marketplace/internal/auth"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

func callerIdentity(c *fiber.Ctx) (domain.Identity, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Identity.IsZero() {
		return "", apperrors.NewUnauthenticated("identity required")
	}
	return principal.Identity, nil
}

func idParam(c *fiber.Ctx, name string) (domain.ID, error) {
	id, err := domain.ParseID(c.Params(name))
	if err != nil {
		return domain.ID{}, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}
