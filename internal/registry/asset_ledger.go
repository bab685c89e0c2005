package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/asset-marketplace/internal/domain"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// DefaultMaxAssetsPerHolder bounds holding counts when no cap is configured.
const DefaultMaxAssetsPerHolder = 15

// Gate answers whether an identity holds a capability.
type Gate interface {
	Can(ctx context.Context, identity domain.Identity, capability domain.Capability) bool
}

// MintParams describes a new asset.
type MintParams struct {
	Holder       domain.Identity
	HolderUserID domain.ID
	Description  string
	Price        uint64
	Class        domain.AssetClass
	At           time.Time
}

// AssetLedger owns the canonical asset arena, the per-user collections and the
// per-holder counts.
type AssetLedger struct {
	gate         Gate
	maxPerHolder int

	assets []domain.Asset
	index  map[domain.ID]int

	// holdings[userID] lists asset ids; holdingPos[userID][assetID] is the
	// position inside that list. Removal swaps the last element in.
	holdings   map[domain.ID][]domain.ID
	holdingPos map[domain.ID]map[domain.ID]int

	counts map[domain.Identity]int
}

// NewAssetLedger builds an empty ledger. maxPerHolder <= 0 selects the default cap.
func NewAssetLedger(gate Gate, maxPerHolder int) *AssetLedger {
	if maxPerHolder <= 0 {
		maxPerHolder = DefaultMaxAssetsPerHolder
	}
	return &AssetLedger{
		gate:         gate,
		maxPerHolder: maxPerHolder,
		index:        make(map[domain.ID]int),
		holdings:     make(map[domain.ID][]domain.ID),
		holdingPos:   make(map[domain.ID]map[domain.ID]int),
		counts:       make(map[domain.Identity]int),
	}
}

// MaxPerHolder returns the configured holding cap.
func (l *AssetLedger) MaxPerHolder() int {
	return l.maxPerHolder
}

// Mint appends a new asset for params.Holder. The minter must hold
// CapabilityMinter and the holder must be strictly below the cap.
func (l *AssetLedger) Mint(ctx context.Context, tx *Tx, minter domain.Identity, params MintParams) (domain.Asset, error) {
	if err := l.Authorize(ctx, minter); err != nil {
		return domain.Asset{}, err
	}
	if l.counts[params.Holder] >= l.maxPerHolder {
		return domain.Asset{}, fmt.Errorf("mint to %s (%d held): %w", params.Holder, l.counts[params.Holder], apperrors.ErrMaxAssetsReached)
	}

	id := l.deriveID(params)
	asset := domain.Asset{
		ID:          id,
		Holder:      params.Holder,
		Description: params.Description,
		Price:       params.Price,
		Class:       params.Class,
		MintedAt:    params.At,
	}

	l.index[id] = len(l.assets)
	l.assets = append(l.assets, asset)
	tx.onRollback(func() {
		delete(l.index, id)
		l.assets = l.assets[:len(l.assets)-1]
	})
	tx.touchAsset(id)

	l.AddHolding(tx, params.HolderUserID, id)
	l.AdjustCount(tx, params.Holder, 1)
	return asset, nil
}

// Authorize fails with ErrUnauthorized unless minter holds CapabilityMinter.
func (l *AssetLedger) Authorize(ctx context.Context, minter domain.Identity) error {
	if l.gate == nil || !l.gate.Can(ctx, minter, domain.CapabilityMinter) {
		return fmt.Errorf("mint by %s: %w", minter, apperrors.ErrUnauthorized)
	}
	return nil
}

// deriveID hashes holder, class and price with the mint sequence number, so
// two otherwise identical assets still get distinct ids.
func (l *AssetLedger) deriveID(params MintParams) domain.ID {
	seq := uint64(len(l.assets))
	for {
		id := domain.Keccak256ID(
			[]byte(params.Holder),
			[]byte(params.Class),
			domain.Uint64Bytes(params.Price),
			domain.Uint64Bytes(seq),
		)
		if _, taken := l.index[id]; !taken {
			return id
		}
		seq++
	}
}

// Find returns a copy of the asset with id.
func (l *AssetLedger) Find(id domain.ID) (domain.Asset, error) {
	pos, ok := l.index[id]
	if !ok {
		return domain.Asset{}, fmt.Errorf("asset %s: %w", id, apperrors.ErrCannotFindAsset)
	}
	return l.assets[pos], nil
}

// update applies fn to the canonical record and registers the inverse.
func (l *AssetLedger) update(tx *Tx, id domain.ID, fn func(*domain.Asset)) error {
	pos, ok := l.index[id]
	if !ok {
		return fmt.Errorf("asset %s: %w", id, apperrors.ErrCannotFindAsset)
	}
	before := l.assets[pos]
	fn(&l.assets[pos])
	tx.onRollback(func() { l.assets[pos] = before })
	tx.touchAsset(id)
	return nil
}

// SetHolder reassigns the canonical holder of an asset.
func (l *AssetLedger) SetHolder(tx *Tx, id domain.ID, holder domain.Identity) error {
	return l.update(tx, id, func(a *domain.Asset) { a.Holder = holder })
}

// Holds reports whether assetID is in the collection of userID.
func (l *AssetLedger) Holds(userID, assetID domain.ID) bool {
	_, ok := l.holdingPos[userID][assetID]
	return ok
}

// Holdings returns a copy of the collection of userID in insertion order,
// modulo swap removals.
func (l *AssetLedger) Holdings(userID domain.ID) []domain.ID {
	return append([]domain.ID(nil), l.holdings[userID]...)
}

// AddHolding appends assetID to the collection of userID.
func (l *AssetLedger) AddHolding(tx *Tx, userID, assetID domain.ID) {
	if l.Holds(userID, assetID) {
		return
	}
	l.pushHolding(userID, assetID)
	tx.onRollback(func() { l.popHolding(userID, assetID) })
	tx.touchHoldings(userID)
}

// RemoveHolding vacates assetID from the collection of userID. It reports
// false when the asset was not there.
func (l *AssetLedger) RemoveHolding(tx *Tx, userID, assetID domain.ID) bool {
	pos, ok := l.holdingPos[userID][assetID]
	if !ok {
		return false
	}
	before := append([]domain.ID(nil), l.holdings[userID]...)

	list := l.holdings[userID]
	last := len(list) - 1
	if pos != last {
		list[pos] = list[last]
		l.holdingPos[userID][list[pos]] = pos
	}
	l.holdings[userID] = list[:last]
	delete(l.holdingPos[userID], assetID)

	tx.onRollback(func() { l.setHoldings(userID, before) })
	tx.touchHoldings(userID)
	return true
}

func (l *AssetLedger) pushHolding(userID, assetID domain.ID) {
	if l.holdingPos[userID] == nil {
		l.holdingPos[userID] = make(map[domain.ID]int)
	}
	l.holdingPos[userID][assetID] = len(l.holdings[userID])
	l.holdings[userID] = append(l.holdings[userID], assetID)
}

func (l *AssetLedger) popHolding(userID, assetID domain.ID) {
	list := l.holdings[userID]
	l.holdings[userID] = list[:len(list)-1]
	delete(l.holdingPos[userID], assetID)
}

func (l *AssetLedger) setHoldings(userID domain.ID, ids []domain.ID) {
	pos := make(map[domain.ID]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	l.holdings[userID] = ids
	l.holdingPos[userID] = pos
}

// AdjustCount adds delta to the holding count of identity. Counts never go
// below zero.
func (l *AssetLedger) AdjustCount(tx *Tx, identity domain.Identity, delta int) {
	before, existed := l.counts[identity]
	next := before + delta
	if next < 0 {
		next = 0
	}
	l.counts[identity] = next
	tx.onRollback(func() {
		if existed {
			l.counts[identity] = before
		} else {
			delete(l.counts, identity)
		}
	})
	tx.touchCount(identity)
}

// HoldingCount returns the number of assets attributed to identity.
func (l *AssetLedger) HoldingCount(identity domain.Identity) int {
	return l.counts[identity]
}

// Total returns the number of minted assets.
func (l *AssetLedger) Total() int {
	return len(l.assets)
}
