// Package registry holds the in-memory marketplace state: identities, the
// canonical asset arena, listings and per-user transaction history.
//
// Components are not safe for concurrent use. Every mutation takes a *Tx that
// records how to undo it and which keys it touched, so the caller can roll a
// failed operation back completely or persist exactly what changed.
package registry

import "github.com/spec-kit/asset-marketplace/internal/domain"

// Tx is the undo log and change set of a single operation.
type Tx struct {
	undo    []func()
	changes changeSet
	done    bool
}

type changeSet struct {
	users        []domain.ID
	assets       map[domain.ID]struct{}
	holdings     map[domain.ID]struct{}
	counts       map[domain.Identity]struct{}
	records      []domain.TransactionRecord
	descriptions map[string]struct{}
}

// NewTx starts an empty transaction.
func NewTx() *Tx {
	return &Tx{
		changes: changeSet{
			assets:       make(map[domain.ID]struct{}),
			holdings:     make(map[domain.ID]struct{}),
			counts:       make(map[domain.Identity]struct{}),
			descriptions: make(map[string]struct{}),
		},
	}
}

func (tx *Tx) onRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

// Empty reports whether the transaction recorded no mutation.
func (tx *Tx) Empty() bool {
	return len(tx.undo) == 0
}

// Rollback reverts every recorded mutation in reverse order. It is a no-op
// after Commit or a previous Rollback.
func (tx *Tx) Rollback() {
	if tx.done {
		return
	}
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.done = true
}

// Commit discards the undo log.
func (tx *Tx) Commit() {
	tx.undo = nil
	tx.done = true
}

func (tx *Tx) touchUser(id domain.ID) {
	tx.changes.users = append(tx.changes.users, id)
}

func (tx *Tx) touchAsset(id domain.ID) {
	tx.changes.assets[id] = struct{}{}
}

func (tx *Tx) touchHoldings(userID domain.ID) {
	tx.changes.holdings[userID] = struct{}{}
}

func (tx *Tx) touchCount(identity domain.Identity) {
	tx.changes.counts[identity] = struct{}{}
}

func (tx *Tx) touchRecord(rec domain.TransactionRecord) {
	tx.changes.records = append(tx.changes.records, rec)
}

func (tx *Tx) touchDescription(description string) {
	tx.changes.descriptions[description] = struct{}{}
}
