package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

// StaticGate grants capabilities from a fixed table, typically loaded from config.
type StaticGate struct {
	mu     sync.RWMutex
	grants map[domain.Capability]map[domain.Identity]struct{}
}

// NewStaticGate builds a gate from capability → identities.
func NewStaticGate(grants map[domain.Capability][]domain.Identity) *StaticGate {
	g := &StaticGate{grants: make(map[domain.Capability]map[domain.Identity]struct{})}
	for capability, identities := range grants {
		for _, identity := range identities {
			g.Grant(capability, identity)
		}
	}
	return g
}

// Grant adds a capability to identity.
func (g *StaticGate) Grant(capability domain.Capability, identity domain.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.grants[capability]
	if !ok {
		set = make(map[domain.Identity]struct{})
		g.grants[capability] = set
	}
	set[identity] = struct{}{}
}

// Revoke removes a capability from identity.
func (g *StaticGate) Revoke(capability domain.Capability, identity domain.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.grants[capability], identity)
}

// Can reports whether identity holds capability.
func (g *StaticGate) Can(_ context.Context, identity domain.Identity, capability domain.Capability) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.grants[capability][identity]
	return ok
}

// GrantLookup reports persisted capability grants.
type GrantLookup interface {
	HasCapability(ctx context.Context, identity domain.Identity, capability domain.Capability) (bool, error)
}

// RepositoryGate consults persisted grants and falls back to a static gate.
// Lookup errors deny.
type RepositoryGate struct {
	grants   GrantLookup
	fallback *StaticGate
	logger   *zap.Logger
}

// NewRepositoryGate builds a gate over grants.
func NewRepositoryGate(grants GrantLookup, fallback *StaticGate, logger *zap.Logger) *RepositoryGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepositoryGate{grants: grants, fallback: fallback, logger: logger}
}

// Can reports whether identity holds capability.
func (g *RepositoryGate) Can(ctx context.Context, identity domain.Identity, capability domain.Capability) bool {
	if g.fallback != nil && g.fallback.Can(ctx, identity, capability) {
		return true
	}
	if g.grants == nil {
		return false
	}
	ok, err := g.grants.HasCapability(ctx, identity, capability)
	if err != nil {
		g.logger.Warn("capability lookup failed",
			zap.String("identity", identity.String()),
			zap.String("capability", string(capability)),
			zap.Error(err))
		return false
	}
	return ok
}
