package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-marketplace/internal/api/dto"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/service"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// UsersHandler exposes identity registration and per-user reads.
type UsersHandler struct {
	market *service.MarketplaceService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(market *service.MarketplaceService) *UsersHandler {
	return &UsersHandler{market: market}
}

// Register handles POST /users.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.market.RegisterUser(c.UserContext(), identity, req.DisplayName)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	userID, err := h.market.UserID(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user_id": userID, "identity": identity}})
}

// Transactions handles GET /users/:id/transactions.
func (h *UsersHandler) Transactions(c *fiber.Ctx) error {
	userID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	records, err := h.market.TransactionHistory(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransactionResponses(records)})
}

// Holdings handles GET /users/:id/assets.
func (h *UsersHandler) Holdings(c *fiber.Ctx) error {
	userID, err := idParam(c, "id")
	if err != nil {
		return err
	}
	assets, err := h.market.Holdings(c.UserContext(), userID)
	if err != nil {
		return err
	}
	items := make([]dto.AssetResponse, 0, len(assets))
	for _, asset := range assets {
		items = append(items, dto.NewAssetResponse(asset))
	}
	return c.JSON(fiber.Map{"data": items})
}

// HolderCount handles GET /stats/holders.
func (h *UsersHandler) HolderCount(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"holders": h.market.HolderCount(c.UserContext())}})
}

// HoldingCount handles GET /identities/:identity/holdings.
func (h *UsersHandler) HoldingCount(c *fiber.Ctx) error {
	identity := domain.NormalizeIdentity(c.Params("identity"))
	return c.JSON(fiber.Map{"data": fiber.Map{
		"identity": identity,
		"count":    h.market.HoldingCount(c.UserContext(), identity),
	}})
}

// Balance handles GET /identities/:identity/balance.
func (h *UsersHandler) Balance(c *fiber.Ctx) error {
	identity := domain.NormalizeIdentity(c.Params("identity"))
	balance, err := h.market.Balance(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"identity": identity, "balance": balance}})
}
