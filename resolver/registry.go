// Package resolver keeps resolver registrations, their reputation and their
// bids on orders. Nothing is ever deleted.
package resolver

import (
	"context"
	"math/big"
	"sync"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Registry of resolvers
type Registry struct {
	cfg          Config
	minimumStake *big.Int
	storage      storageInterface
	timeProvider utils.TimeProvider
	mu           sync.Mutex
}

// NewRegistry creates a registry
func NewRegistry(cfg Config, storage storageInterface, timeProvider utils.TimeProvider) (*Registry, error) {
	if cfg.MinimumStake.IsNegative() {
		return nil, errors.Wrap(gerror.ErrInvalidConfig, "negative minimum stake")
	}
	if timeProvider == nil {
		timeProvider = utils.NewTimeProviderSystemLocalTime()
	}
	return &Registry{
		cfg:          cfg,
		minimumStake: cfg.MinimumStake.Floor().BigInt(),
		storage:      storage,
		timeProvider: timeProvider,
	}, nil
}

// Register adds a resolver, or reactivates an inactive one with a new stake
func (r *Registry) Register(ctx context.Context, addr common.Address, stake *big.Int) (*ValidatorInfo, error) {
	if stake == nil || stake.Sign() <= 0 || stake.Cmp(r.minimumStake) < 0 {
		return nil, errors.Wrapf(gerror.ErrInvalidAmount, "stake %v below minimum %s", stake, r.minimumStake)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.storage.GetResolver(ctx, addr, nil)
	switch {
	case err == nil && existing.IsActive:
		return nil, errors.Wrapf(gerror.ErrAlreadyExists, "resolver %s", addr.Hex())
	case err == nil:
		existing.IsActive = true
		existing.StakedAmount = new(big.Int).Set(stake)
		if err := r.storage.UpdateResolver(ctx, existing, nil); err != nil {
			return nil, err
		}
		log.Infof("resolver %s reactivated", addr.Hex())
		return existing, nil
	case !errors.Is(err, gerror.ErrStorageNotFound):
		return nil, err
	}

	v := &ValidatorInfo{
		Address:      addr,
		StakedAmount: new(big.Int).Set(stake),
		Reputation:   r.cfg.InitialReputation,
		IsActive:     true,
		RegisteredAt: r.timeProvider.Now(),
	}
	if err := r.storage.AddResolver(ctx, v, nil); err != nil {
		return nil, err
	}
	log.Infof("resolver %s registered with stake %s", addr.Hex(), stake)
	return v, nil
}

// Deactivate stops a resolver from bidding
func (r *Registry) Deactivate(ctx context.Context, addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.storage.GetResolver(ctx, addr, nil)
	if err != nil {
		return err
	}
	v.IsActive = false
	return r.storage.UpdateResolver(ctx, v, nil)
}

// Get returns a resolver
func (r *Registry) Get(ctx context.Context, addr common.Address) (*ValidatorInfo, error) {
	return r.storage.GetResolver(ctx, addr, nil)
}

// Active returns the active resolvers
func (r *Registry) Active(ctx context.Context) ([]*ValidatorInfo, error) {
	return r.storage.GetResolvers(ctx, true, nil)
}

// EnsureActive fails unless addr is a registered, active and staked resolver
func (r *Registry) EnsureActive(ctx context.Context, addr common.Address) error {
	v, err := r.storage.GetResolver(ctx, addr, nil)
	if errors.Is(err, gerror.ErrStorageNotFound) {
		return errors.Wrapf(gerror.ErrResolverInactive, "resolver %s is not registered", addr.Hex())
	} else if err != nil {
		return err
	}
	if !v.IsActive || v.StakedAmount.Sign() <= 0 {
		return errors.Wrapf(gerror.ErrResolverInactive, "resolver %s", addr.Hex())
	}
	return nil
}

// SubmitBid records a bid of addr on orderID
func (r *Registry) SubmitBid(ctx context.Context, orderID string, addr common.Address, amount *big.Int) (*ExecutionBid, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, gerror.ErrInvalidAmount
	}
	if err := r.EnsureActive(ctx, addr); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bid := &ExecutionBid{
		OrderID:   orderID,
		Resolver:  addr,
		BidAmount: new(big.Int).Set(amount),
		Timestamp: r.timeProvider.Now(),
	}
	if err := r.storage.AddBid(ctx, bid, nil); err != nil {
		return nil, err
	}
	return bid, nil
}

// BestBid returns the highest bid on orderID, the earliest one on ties
func (r *Registry) BestBid(ctx context.Context, orderID string) (*ExecutionBid, error) {
	bids, err := r.storage.GetBids(ctx, orderID, nil)
	if err != nil {
		return nil, err
	}
	var best *ExecutionBid
	for _, b := range bids {
		if best == nil || b.BidAmount.Cmp(best.BidAmount) > 0 ||
			(b.BidAmount.Cmp(best.BidAmount) == 0 && b.Timestamp.Before(best.Timestamp)) {
			best = b
		}
	}
	if best == nil {
		return nil, errors.Wrapf(gerror.ErrStorageNotFound, "no bids on order %s", orderID)
	}
	return best, nil
}

// RecordExecution updates the reputation of addr after an order settled
func (r *Registry) RecordExecution(ctx context.Context, addr common.Address, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.storage.GetResolver(ctx, addr, nil)
	if err != nil {
		return err
	}
	if success {
		v.ExecutedOrders++
		v.Reputation += r.cfg.ReputationReward
	} else {
		v.FailedOrders++
		v.Reputation -= r.cfg.ReputationPenalty
	}
	return r.storage.UpdateResolver(ctx, v, nil)
}
