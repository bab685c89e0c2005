package events

import (
	"time"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventAssetMinted    EventType = "asset_minted"
	EventAssetListed    EventType = "asset_listed"
	EventAssetUnlisted  EventType = "asset_unlisted"
	EventAssetPurchased EventType = "asset_purchased"
	EventValueReceived  EventType = "value_received"
)

// Event represents a notification emitted after an operation commits.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	AssetID   *domain.ID      `json:"asset_id,omitempty"`
	Actor     domain.Identity `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID      domain.ID `json:"user_id"`
	DisplayName string    `json:"display_name"`
}

// AssetMintedPayload payload.
type AssetMintedPayload struct {
	Holder        domain.Identity   `json:"holder"`
	HistoryUserID domain.ID         `json:"history_user_id"`
	Class         domain.AssetClass `json:"class"`
	Price         uint64            `json:"price"`
}

// AssetListedPayload payload.
type AssetListedPayload struct {
	UserID      domain.ID `json:"user_id"`
	Description string    `json:"description"`
	Price       uint64    `json:"price"`
}

// AssetUnlistedPayload payload.
type AssetUnlistedPayload struct {
	UserID domain.ID `json:"user_id"`
}

// AssetPurchasedPayload payload.
type AssetPurchasedPayload struct {
	BuyerUserID    domain.ID       `json:"buyer_user_id"`
	SellerUserID   domain.ID       `json:"seller_user_id"`
	SellerIdentity domain.Identity `json:"seller_identity"`
	Price          uint64          `json:"price"`
}

// ValueReceivedPayload payload.
type ValueReceivedPayload struct {
	Amount uint64 `json:"amount"`
}
