package payment

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

// MemoryLedger keeps balances in process memory. It backs local runs and tests.
type MemoryLedger struct {
	mu        sync.Mutex
	balances  map[domain.Identity]uint64
	rejecting map[domain.Identity]struct{}
}

// NewMemoryLedger seeds a ledger with the given balances.
func NewMemoryLedger(initial map[domain.Identity]uint64) *MemoryLedger {
	balances := make(map[domain.Identity]uint64, len(initial))
	for id, amount := range initial {
		balances[id] = amount
	}
	return &MemoryLedger{balances: balances, rejecting: make(map[domain.Identity]struct{})}
}

// Transfer debits from and credits to.
func (m *MemoryLedger) Transfer(_ context.Context, from, to domain.Identity, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rejecting[to]; ok {
		return fmt.Errorf("transfer to %s: %w", to, ErrRecipientRejected)
	}
	if m.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s (balance %d): %w", amount, from, m.balances[from], ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}
	if m.balances[to] > math.MaxUint64-amount {
		return fmt.Errorf("transfer to %s: %w", to, ErrAmountTooLarge)
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

// Balance returns the balance of identity.
func (m *MemoryLedger) Balance(_ context.Context, identity domain.Identity) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[identity], nil
}

// Credit adds amount to identity out of thin air, for seeding.
func (m *MemoryLedger) Credit(identity domain.Identity, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[identity] += amount
}

// RejectTransfersTo makes every transfer to identity fail, emulating a
// recipient that refuses value.
func (m *MemoryLedger) RejectTransfersTo(identity domain.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejecting[identity] = struct{}{}
}
