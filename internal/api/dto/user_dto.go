package dto

import (
	"time"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

// RegisterUserRequest payload for new users. The identity comes from the token.
type RegisterUserRequest struct {
	DisplayName string `json:"display_name"`
}

// UserResponse describes a registered user.
type UserResponse struct {
	UserID       domain.ID       `json:"user_id"`
	DisplayName  string          `json:"display_name"`
	Identity     domain.Identity `json:"identity"`
	RegisteredAt time.Time       `json:"registered_at"`
}

// TransactionResponse is one history entry.
type TransactionResponse struct {
	Kind    domain.TransactionKind `json:"kind"`
	AssetID domain.ID              `json:"asset_id"`
	At      time.Time              `json:"at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user domain.User) UserResponse {
	return UserResponse{
		UserID:       user.ID,
		DisplayName:  user.DisplayName,
		Identity:     user.Identity,
		RegisteredAt: user.RegisteredAt,
	}
}

// NewTransactionResponses maps history records.
func NewTransactionResponses(records []domain.TransactionRecord) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, TransactionResponse{Kind: rec.Kind, AssetID: rec.AssetID, At: rec.At})
	}
	return out
}
