package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/asset-marketplace/internal/domain"
)

// CapabilityRepository stores capability grants consulted by the authorization gate.
type CapabilityRepository interface {
	Grant(ctx context.Context, identity domain.Identity, capability domain.Capability) error
	Revoke(ctx context.Context, identity domain.Identity, capability domain.Capability) error
	HasCapability(ctx context.Context, identity domain.Identity, capability domain.Capability) (bool, error)
}

type capabilityRepository struct {
	pool *pgxpool.Pool
}

// NewCapabilityRepository builds repository.
func NewCapabilityRepository(pool *pgxpool.Pool) CapabilityRepository {
	return &capabilityRepository{pool: pool}
}

func (r *capabilityRepository) Grant(ctx context.Context, identity domain.Identity, capability domain.Capability) error {
	const query = `
        INSERT INTO capability_grants (identity, capability)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, string(identity), string(capability))
	return err
}

func (r *capabilityRepository) Revoke(ctx context.Context, identity domain.Identity, capability domain.Capability) error {
	const query = `DELETE FROM capability_grants WHERE identity=$1 AND capability=$2`
	_, err := r.pool.Exec(ctx, query, string(identity), string(capability))
	return err
}

func (r *capabilityRepository) HasCapability(ctx context.Context, identity domain.Identity, capability domain.Capability) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM capability_grants WHERE identity=$1 AND capability=$2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, string(identity), string(capability)).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
