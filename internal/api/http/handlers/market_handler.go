package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-marketplace/internal/api/dto"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/service"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// MarketHandler exposes purchase and value endpoints.
type MarketHandler struct {
	market *service.MarketplaceService
}

// NewMarketHandler constructs handler.
func NewMarketHandler(market *service.MarketplaceService) *MarketHandler {
	return &MarketHandler{market: market}
}

// Purchase POST /assets/:id/purchase.
func (h *MarketHandler) Purchase(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.BuyerUserID.IsZero() || req.SellerUserID.IsZero() || req.SellerIdentity == "" {
		return apperrors.NewValidationError("buyer_user_id, seller_user_id, seller_identity required", nil)
	}

	err = h.market.BuyAsset(c.UserContext(), caller, service.PurchaseInput{
		AssetID:        id,
		BuyerUserID:    req.BuyerUserID,
		Description:    req.Description,
		SellerUserID:   req.SellerUserID,
		SellerIdentity: domain.NormalizeIdentity(req.SellerIdentity),
		Payment:        req.Payment,
	})
	if err != nil {
		return err
	}
	asset, err := h.market.FindAsset(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssetResponse(asset)})
}

// Deposit POST /deposits accepts unsolicited value.
func (h *MarketHandler) Deposit(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.market.AcceptValue(c.UserContext(), caller, req.Amount); err != nil {
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}
