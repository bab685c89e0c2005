package registry

import (
	"fmt"

	"github.com/spec-kit/asset-marketplace/internal/domain"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// ListingBook tracks which assets are offered for sale and resolves
// descriptions to asset ids. The listed flag lives on the canonical record.
type ListingBook struct {
	ledger       *AssetLedger
	descriptions map[string]domain.ID
}

// NewListingBook builds a listing book over ledger.
func NewListingBook(ledger *AssetLedger) *ListingBook {
	return &ListingBook{ledger: ledger, descriptions: make(map[string]domain.ID)}
}

// IndexDescription points description at assetID, replacing any previous
// asset with the same description.
func (b *ListingBook) IndexDescription(tx *Tx, description string, assetID domain.ID) {
	before, existed := b.descriptions[description]
	b.descriptions[description] = assetID
	tx.onRollback(func() {
		if existed {
			b.descriptions[description] = before
		} else {
			delete(b.descriptions, description)
		}
	})
	tx.touchDescription(description)
}

func (b *ListingBook) dropDescription(tx *Tx, description string, assetID domain.ID) {
	if current, ok := b.descriptions[description]; !ok || current != assetID {
		return
	}
	delete(b.descriptions, description)
	tx.onRollback(func() { b.descriptions[description] = assetID })
	tx.touchDescription(description)
}

// Resolve returns the asset id indexed under description.
func (b *ListingBook) Resolve(description string) (domain.ID, error) {
	id, ok := b.descriptions[description]
	if !ok {
		return domain.ID{}, fmt.Errorf("description %q: %w", description, apperrors.ErrCannotFindAsset)
	}
	return id, nil
}

// List sets description and price and marks the asset listed, all together.
func (b *ListingBook) List(tx *Tx, assetID domain.ID, description string, price uint64) error {
	asset, err := b.ledger.Find(assetID)
	if err != nil {
		return err
	}
	if err := b.ledger.update(tx, assetID, func(a *domain.Asset) {
		a.Description = description
		a.Price = price
		a.Listed = true
	}); err != nil {
		return err
	}
	if asset.Description != description {
		b.dropDescription(tx, asset.Description, assetID)
	}
	b.IndexDescription(tx, description, assetID)
	return nil
}

// Unlist clears the listed flag.
func (b *ListingBook) Unlist(tx *Tx, assetID domain.ID) error {
	return b.ledger.update(tx, assetID, func(a *domain.Asset) { a.Listed = false })
}

// IsListed reports the listed flag of an asset.
func (b *ListingBook) IsListed(assetID domain.ID) (bool, error) {
	asset, err := b.ledger.Find(assetID)
	if err != nil {
		return false, err
	}
	return asset.Listed, nil
}
