package registry

import (
	"fmt"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

// State groups the registry components over one shared asset ledger.
type State struct {
	Identities *IdentityRegistry
	Assets     *AssetLedger
	Listings   *ListingBook
	Log        *TransactionLog
}

// Options configures NewState.
type Options struct {
	Gate               Gate
	MaxAssetsPerHolder int
	UserIDs            IDGenerator
}

// NewState builds empty components.
func NewState(opts Options) *State {
	ledger := NewAssetLedger(opts.Gate, opts.MaxAssetsPerHolder)
	return &State{
		Identities: NewIdentityRegistry(opts.UserIDs),
		Assets:     ledger,
		Listings:   NewListingBook(ledger),
		Log:        NewTransactionLog(),
	}
}

// Mutation is the materialized change set of a committed Tx: the current value
// of every key the transaction touched.
type Mutation struct {
	Users    []domain.User
	Assets   []domain.Asset
	Holdings map[domain.ID][]domain.ID
	Counts   map[domain.Identity]int
	Records  []domain.TransactionRecord
	// Descriptions maps each touched description to its asset id, or nil when
	// the description no longer resolves.
	Descriptions map[string]*domain.ID
}

// Mutation reads the touched keys of tx from the current state. Call it
// before Commit.
func (s *State) Mutation(tx *Tx) Mutation {
	m := Mutation{
		Holdings:     make(map[domain.ID][]domain.ID, len(tx.changes.holdings)),
		Counts:       make(map[domain.Identity]int, len(tx.changes.counts)),
		Records:      append([]domain.TransactionRecord(nil), tx.changes.records...),
		Descriptions: make(map[string]*domain.ID, len(tx.changes.descriptions)),
	}
	for _, id := range tx.changes.users {
		if user, err := s.Identities.User(id); err == nil {
			m.Users = append(m.Users, user)
		}
	}
	for id := range tx.changes.assets {
		if asset, err := s.Assets.Find(id); err == nil {
			m.Assets = append(m.Assets, asset)
		}
	}
	for userID := range tx.changes.holdings {
		m.Holdings[userID] = s.Assets.Holdings(userID)
	}
	for identity := range tx.changes.counts {
		m.Counts[identity] = s.Assets.HoldingCount(identity)
	}
	for description := range tx.changes.descriptions {
		if id, err := s.Listings.Resolve(description); err == nil {
			resolved := id
			m.Descriptions[description] = &resolved
		} else {
			m.Descriptions[description] = nil
		}
	}
	return m
}

// Snapshot is the complete registry content, used to reload persisted state.
type Snapshot struct {
	Users        []domain.User
	Assets       []domain.Asset
	Holdings     map[domain.ID][]domain.ID
	Counts       map[domain.Identity]int
	Records      []domain.TransactionRecord
	Descriptions map[string]domain.ID
}

// Restore loads snap into an empty state. Users and assets must be in
// registration and mint order; records in append order.
func (s *State) Restore(snap Snapshot) error {
	if s.Identities.Count() != 0 || s.Assets.Total() != 0 {
		return fmt.Errorf("restore: state is not empty")
	}
	for _, user := range snap.Users {
		if _, dup := s.Identities.users[user.ID]; dup {
			return fmt.Errorf("restore: duplicate user %s", user.ID)
		}
		if _, dup := s.Identities.byIdentity[user.Identity]; dup {
			return fmt.Errorf("restore: identity %s registered twice", user.Identity)
		}
		s.Identities.insert(user)
	}
	for _, asset := range snap.Assets {
		if _, dup := s.Assets.index[asset.ID]; dup {
			return fmt.Errorf("restore: duplicate asset %s", asset.ID)
		}
		s.Assets.index[asset.ID] = len(s.Assets.assets)
		s.Assets.assets = append(s.Assets.assets, asset)
	}
	for userID, ids := range snap.Holdings {
		for _, id := range ids {
			if _, ok := s.Assets.index[id]; !ok {
				return fmt.Errorf("restore: holding of unknown asset %s", id)
			}
		}
		s.Assets.setHoldings(userID, append([]domain.ID(nil), ids...))
	}
	for identity, n := range snap.Counts {
		s.Assets.counts[identity] = n
	}
	for _, rec := range snap.Records {
		s.Log.history[rec.UserID] = append(s.Log.history[rec.UserID], rec)
	}
	for description, id := range snap.Descriptions {
		s.Listings.descriptions[description] = id
	}
	return nil
}
