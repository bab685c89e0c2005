package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-marketplace/internal/domain"
	"github.com/spec-kit/asset-marketplace/internal/events"
	"github.com/spec-kit/asset-marketplace/internal/payment"
	"github.com/spec-kit/asset-marketplace/internal/registry"
	apperrors "github.com/spec-kit/asset-marketplace/pkg/util/errorutil"
)

// Persister stores the change set of a committed operation.
type Persister interface {
	Apply(ctx context.Context, m registry.Mutation) error
}

// OperationRecorder counts operation outcomes.
type OperationRecorder interface {
	RecordOperation(name string, err error)
}

// MarketplaceService is the single owner of registry state. Every operation
// runs under one lock, so operations are totally ordered, and any failure
// undoes all of its mutations.
type MarketplaceService struct {
	mu         sync.RWMutex
	state      *registry.State
	gate       registry.Gate
	payments   payment.Transferer
	store      Persister
	dispatcher events.Dispatcher
	recorder   OperationRecorder
	logger     *zap.Logger
	treasury   domain.Identity
	now        func() time.Time
}

// MarketplaceDependencies bundles collaborators for the marketplace service.
type MarketplaceDependencies struct {
	Gate               registry.Gate
	Payments           payment.Transferer
	Store              Persister
	Dispatcher         events.Dispatcher
	Recorder           OperationRecorder
	Logger             *zap.Logger
	MaxAssetsPerHolder int
	Treasury           domain.Identity
	Snapshot           *registry.Snapshot
	UserIDs            registry.IDGenerator
	Clock              func() time.Time
}

// MintInput describes a mint request. HistoryUserID receives the Mint record
// and need not be the holder's own user.
type MintInput struct {
	Holder        domain.Identity
	HistoryUserID domain.ID
	Description   string
	Price         uint64
	Class         domain.AssetClass
}

// ListingInput describes a create-listing request.
type ListingInput struct {
	AssetID      domain.ID
	ListerUserID domain.ID
	Description  string
	Price        uint64
}

// PurchaseInput describes a buy request.
type PurchaseInput struct {
	AssetID        domain.ID
	BuyerUserID    domain.ID
	Description    string
	SellerUserID   domain.ID
	SellerIdentity domain.Identity
	Payment        uint64
}

// NewMarketplaceService builds the service, restoring deps.Snapshot when given.
func NewMarketplaceService(deps MarketplaceDependencies) (*MarketplaceService, error) {
	if deps.Gate == nil {
		return nil, errors.New("marketplace: authorization gate required")
	}
	if deps.Payments == nil {
		return nil, errors.New("marketplace: payment transferer required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	state := registry.NewState(registry.Options{
		Gate:               deps.Gate,
		MaxAssetsPerHolder: deps.MaxAssetsPerHolder,
		UserIDs:            deps.UserIDs,
	})
	if deps.Snapshot != nil {
		if err := state.Restore(*deps.Snapshot); err != nil {
			return nil, err
		}
		logger.Info("marketplace state restored",
			zap.Int("users", state.Identities.Count()),
			zap.Int("assets", state.Assets.Total()))
	}
	return &MarketplaceService{
		state:      state,
		gate:       deps.Gate,
		payments:   deps.Payments,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		recorder:   deps.Recorder,
		logger:     logger,
		treasury:   deps.Treasury,
		now:        clock,
	}, nil
}

// operation collects what a committed mutation must do afterwards.
type operation struct {
	events     []events.Event
	compensate func(context.Context) error
}

func (o *operation) emit(ev events.Event) {
	o.events = append(o.events, ev)
}

// execute runs fn under the write lock. When fn fails, or the change set
// cannot be persisted, every mutation made through tx is undone.
func (s *MarketplaceService) execute(ctx context.Context, name string, fn func(tx *registry.Tx, op *operation) error) (err error) {
	if s.recorder != nil {
		defer func() { s.recorder.RecordOperation(name, err) }()
	}

	s.mu.Lock()
	tx := registry.NewTx()
	var op operation

	if err := fn(tx, &op); err != nil {
		tx.Rollback()
		s.mu.Unlock()
		s.logFailure(name, err)
		return err
	}

	if s.store != nil && !tx.Empty() {
		if err := s.store.Apply(ctx, s.state.Mutation(tx)); err != nil {
			if op.compensate != nil {
				if cerr := op.compensate(ctx); cerr != nil {
					s.logger.Error("compensation failed", zap.String("op", name), zap.Error(cerr))
				}
			}
			tx.Rollback()
			s.mu.Unlock()
			s.logger.Error("persist failed; operation rolled back", zap.String("op", name), zap.Error(err))
			return apperrors.NewInternalError(fmt.Errorf("%s: persist: %w", name, err))
		}
	}
	tx.Commit()
	s.mu.Unlock()

	for _, ev := range op.events {
		s.publish(ctx, ev)
	}
	return nil
}

func (s *MarketplaceService) logFailure(name string, err error) {
	if errors.Is(err, apperrors.ErrPaymentTransferFailed) {
		s.logger.Warn("operation rolled back", zap.String("op", name), zap.Error(err))
		return
	}
	s.logger.Debug("operation rejected", zap.String("op", name), zap.Error(err))
}

func (s *MarketplaceService) publish(ctx context.Context, ev events.Event) {
	if s.dispatcher == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, ev); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

// RegisterUser creates the user record of identity.
func (s *MarketplaceService) RegisterUser(ctx context.Context, identity domain.Identity, displayName string) (domain.User, error) {
	if identity.IsZero() {
		return domain.User{}, apperrors.NewValidationError("identity required", nil)
	}
	displayName = strings.TrimSpace(displayName)

	var user domain.User
	err := s.execute(ctx, "register_user", func(tx *registry.Tx, op *operation) error {
		var err error
		user, err = s.state.Identities.Register(tx, displayName, identity, s.now())
		if err != nil {
			return err
		}
		op.emit(events.Event{
			Type:  events.EventUserRegistered,
			Actor: identity,
			Payload: events.UserRegisteredPayload{
				UserID:      user.ID,
				DisplayName: user.DisplayName,
			},
		})
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info("user registered", zap.String("identity", identity.String()), zap.Stringer("user_id", user.ID))
	return user, nil
}

// RequireRegistered fails with ErrNotRegistered unless identity is registered.
func (s *MarketplaceService) RequireRegistered(_ context.Context, identity domain.Identity) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.state.Identities.RequireRegistered(identity)
	return err
}

// Mint creates an asset for input.Holder on behalf of minter.
func (s *MarketplaceService) Mint(ctx context.Context, minter domain.Identity, input MintInput) (domain.Asset, error) {
	if _, err := domain.ParseAssetClass(string(input.Class)); err != nil {
		return domain.Asset{}, apperrors.NewValidationError(err.Error(), nil)
	}

	var asset domain.Asset
	err := s.execute(ctx, "mint", func(tx *registry.Tx, op *operation) error {
		if err := s.state.Assets.Authorize(ctx, minter); err != nil {
			return err
		}
		holder, err := s.state.Identities.RequireRegistered(input.Holder)
		if err != nil {
			return err
		}
		if _, err := s.state.Identities.User(input.HistoryUserID); err != nil {
			return err
		}

		now := s.now()
		asset, err = s.state.Assets.Mint(ctx, tx, minter, registry.MintParams{
			Holder:       input.Holder,
			HolderUserID: holder.ID,
			Description:  input.Description,
			Price:        input.Price,
			Class:        input.Class,
			At:           now,
		})
		if err != nil {
			return err
		}
		s.state.Listings.IndexDescription(tx, input.Description, asset.ID)
		s.state.Log.Append(tx, domain.TransactionRecord{
			UserID:  input.HistoryUserID,
			Kind:    domain.TransactionMint,
			AssetID: asset.ID,
			At:      now,
		})

		assetID := asset.ID
		op.emit(events.Event{
			Type:    events.EventAssetMinted,
			AssetID: &assetID,
			Actor:   minter,
			Payload: events.AssetMintedPayload{
				Holder:        input.Holder,
				HistoryUserID: input.HistoryUserID,
				Class:         input.Class,
				Price:         input.Price,
			},
		})
		return nil
	})
	if err != nil {
		return domain.Asset{}, err
	}
	s.logger.Info("asset minted",
		zap.Stringer("asset_id", asset.ID),
		zap.String("holder", input.Holder.String()),
		zap.String("class", string(input.Class)))
	return asset, nil
}

// FindAsset returns the canonical record of id.
func (s *MarketplaceService) FindAsset(_ context.Context, id domain.ID) (domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Assets.Find(id)
}

// CreateListing offers an asset the caller holds for sale, updating its
// description and price together.
func (s *MarketplaceService) CreateListing(ctx context.Context, caller domain.Identity, input ListingInput) error {
	return s.execute(ctx, "create_listing", func(tx *registry.Tx, op *operation) error {
		if _, err := s.state.Identities.RequireRegistered(caller); err != nil {
			return err
		}
		asset, err := s.state.Assets.Find(input.AssetID)
		if err != nil {
			return err
		}
		if asset.Holder != caller {
			return fmt.Errorf("list %s by %s: %w", input.AssetID, caller, apperrors.ErrNotOwner)
		}
		if _, err := s.state.Identities.User(input.ListerUserID); err != nil {
			return err
		}
		if err := s.state.Listings.List(tx, input.AssetID, input.Description, input.Price); err != nil {
			return err
		}
		s.state.Log.Append(tx, domain.TransactionRecord{
			UserID:  input.ListerUserID,
			Kind:    domain.TransactionSale,
			AssetID: input.AssetID,
			At:      s.now(),
		})

		assetID := input.AssetID
		op.emit(events.Event{
			Type:    events.EventAssetListed,
			AssetID: &assetID,
			Actor:   caller,
			Payload: events.AssetListedPayload{
				UserID:      input.ListerUserID,
				Description: input.Description,
				Price:       input.Price,
			},
		})
		return nil
	})
}

// RemoveListing withdraws a listed asset held in the collection of userID.
func (s *MarketplaceService) RemoveListing(ctx context.Context, caller domain.Identity, assetID, userID domain.ID) error {
	return s.execute(ctx, "remove_listing", func(tx *registry.Tx, op *operation) error {
		if _, err := s.state.Identities.RequireRegistered(caller); err != nil {
			return err
		}
		listed, err := s.state.Listings.IsListed(assetID)
		if err != nil {
			return err
		}
		if !listed {
			return fmt.Errorf("unlist %s: %w", assetID, apperrors.ErrAlreadyUnlisted)
		}
		if !s.state.Assets.Holds(userID, assetID) {
			return fmt.Errorf("unlist %s for user %s: %w", assetID, userID, apperrors.ErrNotOwner)
		}
		if err := s.state.Listings.Unlist(tx, assetID); err != nil {
			return err
		}

		id := assetID
		op.emit(events.Event{
			Type:    events.EventAssetUnlisted,
			AssetID: &id,
			Actor:   caller,
			Payload: events.AssetUnlistedPayload{UserID: userID},
		})
		return nil
	})
}

// RemoveAsset is the administrative removal hook. Listed assets cannot be
// removed; unlisted ones are left in place because removal has no defined
// effect yet.
func (s *MarketplaceService) RemoveAsset(ctx context.Context, caller domain.Identity, assetID domain.ID) error {
	return s.execute(ctx, "remove_asset", func(_ *registry.Tx, _ *operation) error {
		if !s.gate.Can(ctx, caller, domain.CapabilityAdmin) {
			return fmt.Errorf("remove %s by %s: %w", assetID, caller, apperrors.ErrUnauthorized)
		}
		listed, err := s.state.Listings.IsListed(assetID)
		if err != nil {
			return err
		}
		if listed {
			return fmt.Errorf("remove %s: %w", assetID, apperrors.ErrCannotRemove)
		}
		s.logger.Debug("asset removal requested; no-op", zap.Stringer("asset_id", assetID))
		return nil
	})
}

// BuyAsset atomically moves a listed asset from seller to caller and forwards
// the payment to the seller. Either both move or neither does.
func (s *MarketplaceService) BuyAsset(ctx context.Context, caller domain.Identity, input PurchaseInput) error {
	err := s.execute(ctx, "buy_asset", func(tx *registry.Tx, op *operation) error {
		if _, err := s.state.Identities.RequireRegistered(caller); err != nil {
			return err
		}
		listed, err := s.state.Listings.IsListed(input.AssetID)
		if err != nil {
			return err
		}
		if !listed {
			return fmt.Errorf("buy %s: %w", input.AssetID, apperrors.ErrNotListed)
		}
		resolved, err := s.state.Listings.Resolve(input.Description)
		if err != nil || resolved != input.AssetID {
			return fmt.Errorf("buy %s with description %q: %w", input.AssetID, input.Description, apperrors.ErrDescriptionMismatch)
		}

		buyer, err := s.state.Identities.User(input.BuyerUserID)
		if err != nil {
			return err
		}
		if buyer.Identity != caller {
			return fmt.Errorf("buy as user %s: %w", input.BuyerUserID, apperrors.ErrNotOwner)
		}
		seller, err := s.state.Identities.User(input.SellerUserID)
		if err != nil {
			return err
		}
		asset, err := s.state.Assets.Find(input.AssetID)
		if err != nil {
			return err
		}
		if seller.Identity != input.SellerIdentity || asset.Holder != input.SellerIdentity {
			return fmt.Errorf("buy %s from %s: %w", input.AssetID, input.SellerIdentity, apperrors.ErrNotOwner)
		}

		if !s.state.Assets.Holds(input.SellerUserID, input.AssetID) {
			return fmt.Errorf("buy %s from user %s: %w", input.AssetID, input.SellerUserID, apperrors.ErrTransferFailed)
		}
		if input.Payment != asset.Price {
			return fmt.Errorf("buy %s: paid %d, price %d: %w", input.AssetID, input.Payment, asset.Price, apperrors.ErrInsufficientFunds)
		}
		if caller != input.SellerIdentity && s.state.Assets.HoldingCount(caller) >= s.state.Assets.MaxPerHolder() {
			return fmt.Errorf("buy %s: buyer %s holds %d: %w", input.AssetID, caller, s.state.Assets.HoldingCount(caller), apperrors.ErrMaxAssetsReached)
		}

		s.state.Assets.RemoveHolding(tx, input.SellerUserID, input.AssetID)
		s.state.Assets.AddHolding(tx, input.BuyerUserID, input.AssetID)
		if err := s.state.Assets.SetHolder(tx, input.AssetID, caller); err != nil {
			return err
		}
		if err := s.state.Listings.Unlist(tx, input.AssetID); err != nil {
			return err
		}
		s.state.Assets.AdjustCount(tx, caller, 1)
		s.state.Assets.AdjustCount(tx, input.SellerIdentity, -1)

		now := s.now()
		s.state.Log.Append(tx, domain.TransactionRecord{
			UserID: input.BuyerUserID, Kind: domain.TransactionPurchase, AssetID: input.AssetID, At: now,
		})
		s.state.Log.Append(tx, domain.TransactionRecord{
			UserID: input.SellerUserID, Kind: domain.TransactionTransfer, AssetID: input.AssetID, At: now,
		})

		if err := s.payments.Transfer(ctx, caller, input.SellerIdentity, input.Payment); err != nil {
			return fmt.Errorf("buy %s: %w: %w", input.AssetID, apperrors.ErrPaymentTransferFailed, err)
		}
		op.compensate = func(ctx context.Context) error {
			return s.payments.Transfer(ctx, input.SellerIdentity, caller, input.Payment)
		}

		assetID := input.AssetID
		op.emit(events.Event{
			Type:    events.EventAssetPurchased,
			AssetID: &assetID,
			Actor:   caller,
			Payload: events.AssetPurchasedPayload{
				BuyerUserID:    input.BuyerUserID,
				SellerUserID:   input.SellerUserID,
				SellerIdentity: input.SellerIdentity,
				Price:          input.Payment,
			},
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("asset purchased",
		zap.Stringer("asset_id", input.AssetID),
		zap.String("buyer", caller.String()),
		zap.String("seller", input.SellerIdentity.String()),
		zap.Uint64("price", input.Payment))
	return nil
}

// PlaceBid is reserved for auctions, which the marketplace does not support.
func (s *MarketplaceService) PlaceBid(_ context.Context, _ domain.Identity, assetID domain.ID, _ uint64) error {
	return fmt.Errorf("bid on %s: %w", assetID, apperrors.ErrNotImplemented)
}

// AcceptValue takes an unsolicited payment from caller into the treasury.
// No registry state changes.
func (s *MarketplaceService) AcceptValue(ctx context.Context, caller domain.Identity, amount uint64) error {
	if amount == 0 {
		return apperrors.NewValidationError("amount must be positive", nil)
	}
	if s.treasury.IsZero() {
		return apperrors.NewValidationError("no treasury configured", nil)
	}
	return s.execute(ctx, "accept_value", func(_ *registry.Tx, op *operation) error {
		if err := s.payments.Transfer(ctx, caller, s.treasury, amount); err != nil {
			return fmt.Errorf("accept %d from %s: %w: %w", amount, caller, apperrors.ErrPaymentTransferFailed, err)
		}
		op.emit(events.Event{
			Type:    events.EventValueReceived,
			Actor:   caller,
			Payload: events.ValueReceivedPayload{Amount: amount},
		})
		return nil
	})
}

// TransactionHistory returns the records of userID, oldest first.
func (s *MarketplaceService) TransactionHistory(_ context.Context, userID domain.ID) ([]domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.state.Identities.User(userID); err != nil {
		return nil, err
	}
	return s.state.Log.History(userID), nil
}

// Holdings returns the assets in the collection of userID.
func (s *MarketplaceService) Holdings(_ context.Context, userID domain.ID) ([]domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.state.Identities.User(userID); err != nil {
		return nil, err
	}
	ids := s.state.Assets.Holdings(userID)
	assets := make([]domain.Asset, 0, len(ids))
	for _, id := range ids {
		asset, err := s.state.Assets.Find(id)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// AssetIDByDescription resolves the asset most recently indexed under description.
func (s *MarketplaceService) AssetIDByDescription(_ context.Context, description string) (domain.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Listings.Resolve(description)
}

// UserID returns the user id registered for identity.
func (s *MarketplaceService) UserID(_ context.Context, identity domain.Identity) (domain.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, err := s.state.Identities.RequireRegistered(identity)
	if err != nil {
		return domain.ID{}, err
	}
	return user.ID, nil
}

// HolderCount returns the number of registered users.
func (s *MarketplaceService) HolderCount(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Identities.Count()
}

// HoldingCount returns the number of assets attributed to identity.
func (s *MarketplaceService) HoldingCount(_ context.Context, identity domain.Identity) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Assets.HoldingCount(identity)
}

// IsListed reports whether an asset is offered for sale.
func (s *MarketplaceService) IsListed(_ context.Context, assetID domain.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Listings.IsListed(assetID)
}

// Balance reports the payment balance of identity.
func (s *MarketplaceService) Balance(ctx context.Context, identity domain.Identity) (uint64, error) {
	return s.payments.Balance(ctx, identity)
}
