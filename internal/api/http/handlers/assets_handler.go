package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-marketplace/internal/api/dto"
	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/service"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// AssetsHandler manages minting, lookup and listing endpoints.
type AssetsHandler struct {
	market *service.MarketplaceService
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(market *service.MarketplaceService) *AssetsHandler {
	return &AssetsHandler{market: market}
}

// Mint POST /assets.
func (h *AssetsHandler) Mint(c *fiber.Ctx) error {
	minter, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.MintAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Holder) == "" || req.Description == "" || req.HistoryUserID.IsZero() {
		return apperrors.NewValidationError("holder, history_user_id, description required", nil)
	}
	class, err := domain.ParseAssetClass(strings.ToUpper(req.Class))
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	asset, err := h.market.Mint(c.UserContext(), minter, service.MintInput{
		Holder:        domain.NormalizeIdentity(req.Holder),
		HistoryUserID: req.HistoryUserID,
		Description:   req.Description,
		Price:         req.Price,
		Class:         class,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAssetResponse(asset)})
}

// Get GET /assets/:id.
func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	asset, err := h.market.FindAsset(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssetResponse(asset)})
}

// Lookup GET /assets/lookup?description=.
func (h *AssetsHandler) Lookup(c *fiber.Ctx) error {
	description := c.Query("description")
	if description == "" {
		return apperrors.NewValidationError("description required", nil)
	}
	id, err := h.market.AssetIDByDescription(c.UserContext(), description)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"asset_id": id}})
}

// Remove DELETE /assets/:id.
func (h *AssetsHandler) Remove(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.market.RemoveAsset(c.UserContext(), caller, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CreateListing POST /assets/:id/listing.
func (h *AssetsHandler) CreateListing(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID.IsZero() || req.Description == "" {
		return apperrors.NewValidationError("user_id, description required", nil)
	}

	err = h.market.CreateListing(c.UserContext(), caller, service.ListingInput{
		AssetID:      id,
		ListerUserID: req.UserID,
		Description:  req.Description,
		Price:        req.Price,
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

// RemoveListing DELETE /assets/:id/listing?user_id=.
func (h *AssetsHandler) RemoveListing(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	userID, err := domain.ParseID(c.Query("user_id"))
	if err != nil {
		return apperrors.NewValidationError("invalid user_id", nil)
	}
	if err := h.market.RemoveListing(c.UserContext(), caller, id, userID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Bid POST /assets/:id/bids. Auctions are not supported.
func (h *AssetsHandler) Bid(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.market.PlaceBid(c.UserContext(), caller, id, req.Amount)
}
