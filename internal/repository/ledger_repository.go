package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/registry"
)

// LedgerRepository persists registry state in Postgres.
type LedgerRepository interface {
	Apply(ctx context.Context, m registry.Mutation) error
	Load(ctx context.Context) (registry.Snapshot, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a Postgres-backed implementation.
func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

// Apply writes one operation's change set in a single database transaction.
func (r *ledgerRepository) Apply(ctx context.Context, m registry.Mutation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		for _, user := range m.Users {
			batch.Queue(`
        INSERT INTO users (user_id, identity, display_name, registered_at)
        VALUES ($1, $2, $3, $4)`,
				user.ID[:], string(user.Identity), user.DisplayName, user.RegisteredAt)
		}

		for _, asset := range m.Assets {
			batch.Queue(`
        INSERT INTO assets (asset_id, holder_identity, description, price, class_type, listed, minted_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
        ON CONFLICT (asset_id) DO UPDATE SET
            holder_identity = EXCLUDED.holder_identity,
            description = EXCLUDED.description,
            price = EXCLUDED.price,
            listed = EXCLUDED.listed`,
				asset.ID[:], string(asset.Holder), asset.Description,
				strconv.FormatUint(asset.Price, 10), string(asset.Class), asset.Listed, asset.MintedAt)
		}

		for userID, assetIDs := range m.Holdings {
			uid := userID
			batch.Queue(`DELETE FROM user_assets WHERE user_id = $1`, uid[:])
			for pos, assetID := range assetIDs {
				aid := assetID
				batch.Queue(`INSERT INTO user_assets (user_id, asset_id, position) VALUES ($1, $2, $3)`,
					uid[:], aid[:], pos)
			}
		}

		for identity, count := range m.Counts {
			batch.Queue(`
        INSERT INTO holding_counts (identity, count) VALUES ($1, $2)
        ON CONFLICT (identity) DO UPDATE SET count = EXCLUDED.count`,
				string(identity), count)
		}

		for _, rec := range m.Records {
			batch.Queue(`
        INSERT INTO transactions (user_id, kind, asset_id, created_at)
        VALUES ($1, $2, $3, $4)`,
				rec.UserID[:], string(rec.Kind), rec.AssetID[:], rec.At)
		}

		for description, assetID := range m.Descriptions {
			if assetID == nil {
				batch.Queue(`DELETE FROM asset_descriptions WHERE description = $1`, description)
				continue
			}
			batch.Queue(`
        INSERT INTO asset_descriptions (description, asset_id) VALUES ($1, $2)
        ON CONFLICT (description) DO UPDATE SET asset_id = EXCLUDED.asset_id`,
				description, assetID[:])
		}

		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// Load reads the full registry content in registration and mint order.
func (r *ledgerRepository) Load(ctx context.Context) (registry.Snapshot, error) {
	snap := registry.Snapshot{
		Holdings:     make(map[domain.ID][]domain.ID),
		Counts:       make(map[domain.Identity]int),
		Descriptions: make(map[string]domain.ID),
	}

	users, err := r.loadUsers(ctx)
	if err != nil {
		return snap, err
	}
	snap.Users = users

	assets, err := r.loadAssets(ctx)
	if err != nil {
		return snap, err
	}
	snap.Assets = assets

	if err := r.loadHoldings(ctx, snap.Holdings); err != nil {
		return snap, err
	}
	if err := r.loadCounts(ctx, snap.Counts); err != nil {
		return snap, err
	}

	records, err := r.loadRecords(ctx)
	if err != nil {
		return snap, err
	}
	snap.Records = records

	if err := r.loadDescriptions(ctx, snap.Descriptions); err != nil {
		return snap, err
	}
	return snap, nil
}

func (r *ledgerRepository) loadUsers(ctx context.Context) ([]domain.User, error) {
	const query = `
        SELECT user_id, identity, display_name, registered_at
        FROM users ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var (
			user     domain.User
			rawID    []byte
			identity string
		)
		if err := rows.Scan(&rawID, &identity, &user.DisplayName, &user.RegisteredAt); err != nil {
			return nil, err
		}
		if user.ID, err = idFromBytes(rawID); err != nil {
			return nil, err
		}
		user.Identity = domain.Identity(identity)
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *ledgerRepository) loadAssets(ctx context.Context) ([]domain.Asset, error) {
	const query = `
        SELECT asset_id, holder_identity, description, price::text, class_type, listed, minted_at
        FROM assets ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Asset
	for rows.Next() {
		var (
			asset    domain.Asset
			rawID    []byte
			holder   string
			price    string
			class    string
			mintedAt time.Time
		)
		if err := rows.Scan(&rawID, &holder, &asset.Description, &price, &class, &asset.Listed, &mintedAt); err != nil {
			return nil, err
		}
		if asset.ID, err = idFromBytes(rawID); err != nil {
			return nil, err
		}
		if asset.Price, err = strconv.ParseUint(price, 10, 64); err != nil {
			return nil, fmt.Errorf("asset %s price: %w", asset.ID, err)
		}
		asset.Holder = domain.Identity(holder)
		asset.Class = domain.AssetClass(class)
		asset.MintedAt = mintedAt
		result = append(result, asset)
	}
	return result, rows.Err()
}

func (r *ledgerRepository) loadHoldings(ctx context.Context, into map[domain.ID][]domain.ID) error {
	const query = `SELECT user_id, asset_id FROM user_assets ORDER BY user_id, position ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rawUser, rawAsset []byte
		if err := rows.Scan(&rawUser, &rawAsset); err != nil {
			return err
		}
		userID, err := idFromBytes(rawUser)
		if err != nil {
			return err
		}
		assetID, err := idFromBytes(rawAsset)
		if err != nil {
			return err
		}
		into[userID] = append(into[userID], assetID)
	}
	return rows.Err()
}

func (r *ledgerRepository) loadCounts(ctx context.Context, into map[domain.Identity]int) error {
	rows, err := r.pool.Query(ctx, `SELECT identity, count FROM holding_counts`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			identity string
			count    int
		)
		if err := rows.Scan(&identity, &count); err != nil {
			return err
		}
		into[domain.Identity(identity)] = count
	}
	return rows.Err()
}

func (r *ledgerRepository) loadRecords(ctx context.Context) ([]domain.TransactionRecord, error) {
	const query = `
        SELECT user_id, kind, asset_id, created_at
        FROM transactions ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TransactionRecord
	for rows.Next() {
		var (
			rec               domain.TransactionRecord
			rawUser, rawAsset []byte
			kind              string
		)
		if err := rows.Scan(&rawUser, &kind, &rawAsset, &rec.At); err != nil {
			return nil, err
		}
		if rec.UserID, err = idFromBytes(rawUser); err != nil {
			return nil, err
		}
		if rec.AssetID, err = idFromBytes(rawAsset); err != nil {
			return nil, err
		}
		rec.Kind = domain.TransactionKind(kind)
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *ledgerRepository) loadDescriptions(ctx context.Context, into map[string]domain.ID) error {
	rows, err := r.pool.Query(ctx, `SELECT description, asset_id FROM asset_descriptions`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			description string
			rawAsset    []byte
		)
		if err := rows.Scan(&description, &rawAsset); err != nil {
			return err
		}
		id, err := idFromBytes(rawAsset)
		if err != nil {
			return err
		}
		into[description] = id
	}
	return rows.Err()
}

func idFromBytes(raw []byte) (domain.ID, error) {
	var id domain.ID
	if len(raw) != len(id) {
		return id, fmt.Errorf("stored id has %d bytes", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
