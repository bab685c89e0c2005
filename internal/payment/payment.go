// Package payment provides the value-transfer primitive the marketplace
// forwards purchase payments through.
package payment

import (
	"context"
	"errors"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRecipientRejected   = errors.New("recipient rejected transfer")
	ErrAmountTooLarge      = errors.New("amount exceeds ledger range")
)

// Transferer moves value between identities. Transfer is all-or-nothing.
type Transferer interface {
	Transfer(ctx context.Context, from, to domain.Identity, amount uint64) error
	Balance(ctx context.Context, identity domain.Identity) (uint64, error)
}
