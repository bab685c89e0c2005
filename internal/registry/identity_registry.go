package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/asset-marketplace/internal/domain"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// IDGenerator derives a user id at registration time.
type IDGenerator func(displayName string, identity domain.Identity) domain.ID

// RandomUserID hashes 128 bits of uuid entropy together with the name and
// identity.
func RandomUserID(displayName string, identity domain.Identity) domain.ID {
	nonce := uuid.New()
	return domain.Keccak256ID(nonce[:], []byte(displayName), []byte(identity))
}

// IdentityRegistry maps identities to user records and enforces one-time
// registration.
type IdentityRegistry struct {
	users      map[domain.ID]domain.User
	byIdentity map[domain.Identity]domain.ID
	order      []domain.ID
	newID      IDGenerator
}

// NewIdentityRegistry builds an empty registry. A nil generator selects RandomUserID.
func NewIdentityRegistry(gen IDGenerator) *IdentityRegistry {
	if gen == nil {
		gen = RandomUserID
	}
	return &IdentityRegistry{
		users:      make(map[domain.ID]domain.User),
		byIdentity: make(map[domain.Identity]domain.ID),
		newID:      gen,
	}
}

// Register creates the user record for identity.
func (r *IdentityRegistry) Register(tx *Tx, displayName string, identity domain.Identity, now time.Time) (domain.User, error) {
	if _, ok := r.byIdentity[identity]; ok {
		return domain.User{}, fmt.Errorf("register %s: %w", identity, apperrors.ErrAlreadyRegistered)
	}

	id := r.newID(displayName, identity)
	for attempt := 0; ; attempt++ {
		if _, taken := r.users[id]; !taken && !id.IsZero() {
			break
		}
		if attempt >= 8 {
			return domain.User{}, fmt.Errorf("register %s: user id generator keeps colliding", identity)
		}
		id = domain.Keccak256ID(id[:], domain.Uint64Bytes(uint64(attempt)))
	}

	user := domain.User{ID: id, DisplayName: displayName, Identity: identity, RegisteredAt: now}
	r.insert(user)
	tx.onRollback(func() {
		delete(r.users, id)
		delete(r.byIdentity, identity)
		r.order = r.order[:len(r.order)-1]
	})
	tx.touchUser(id)
	return user, nil
}

func (r *IdentityRegistry) insert(user domain.User) {
	r.users[user.ID] = user
	r.byIdentity[user.Identity] = user.ID
	r.order = append(r.order, user.ID)
}

// RequireRegistered returns the user of identity or ErrNotRegistered.
func (r *IdentityRegistry) RequireRegistered(identity domain.Identity) (domain.User, error) {
	id, ok := r.byIdentity[identity]
	if !ok {
		return domain.User{}, fmt.Errorf("identity %s: %w", identity, apperrors.ErrNotRegistered)
	}
	return r.users[id], nil
}

// User looks a user up by id.
func (r *IdentityRegistry) User(id domain.ID) (domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", id, apperrors.ErrNotRegistered)
	}
	return user, nil
}

// IsRegistered reports whether identity has a user record.
func (r *IdentityRegistry) IsRegistered(identity domain.Identity) bool {
	_, ok := r.byIdentity[identity]
	return ok
}

// Count returns the number of registered users.
func (r *IdentityRegistry) Count() int {
	return len(r.order)
}
