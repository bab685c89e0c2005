package dto

import (
	"time"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

// MintAssetRequest payload for minting.
type MintAssetRequest struct {
	Holder        string    `json:"holder"`
	HistoryUserID domain.ID `json:"history_user_id"`
	Description   string    `json:"description"`
	Price         uint64    `json:"price"`
	Class         string    `json:"class"`
}

// CreateListingRequest payload for listing an asset.
type CreateListingRequest struct {
	UserID      domain.ID `json:"user_id"`
	Description string    `json:"description"`
	Price       uint64    `json:"price"`
}

// PurchaseRequest payload for buying an asset.
type PurchaseRequest struct {
	BuyerUserID    domain.ID `json:"buyer_user_id"`
	Description    string    `json:"description"`
	SellerUserID   domain.ID `json:"seller_user_id"`
	SellerIdentity string    `json:"seller_identity"`
	Payment        uint64    `json:"payment"`
}

// AmountRequest payload for bids and deposits.
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

// AssetResponse describes an asset.
type AssetResponse struct {
	AssetID     domain.ID         `json:"asset_id"`
	Holder      domain.Identity   `json:"holder"`
	Description string            `json:"description"`
	Price       uint64            `json:"price"`
	Class       domain.AssetClass `json:"class"`
	Listed      bool              `json:"listed"`
	MintedAt    time.Time         `json:"minted_at"`
}

// NewAssetResponse maps a domain asset.
func NewAssetResponse(asset domain.Asset) AssetResponse {
	return AssetResponse{
		AssetID:     asset.ID,
		Holder:      asset.Holder,
		Description: asset.Description,
		Price:       asset.Price,
		Class:       asset.Class,
		Listed:      asset.Listed,
		MintedAt:    asset.MintedAt,
	}
}
