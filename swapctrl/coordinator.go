// Package swapctrl binds a source and a destination vault into one cross
// chain order and drives it from creation to completion or refund.
package swapctrl

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/auction"
	"github.com/0xPolygonHermez/zkevm-swap-service/commitment"
	"github.com/0xPolygonHermez/zkevm-swap-service/events"
	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/merklesecret"
	"github.com/0xPolygonHermez/zkevm-swap-service/metrics"
	"github.com/0xPolygonHermez/zkevm-swap-service/safetydeposit"
	"github.com/0xPolygonHermez/zkevm-swap-service/security"
	"github.com/0xPolygonHermez/zkevm-swap-service/temporal"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultOrderDuration   = 2 * time.Hour
	defaultTimelockMargin  = 30 * time.Minute
	defaultMonitorInterval = 5 * time.Second
)

// Chain is one side a coordinator can trade on
type Chain struct {
	Ledger    ledgerInterface
	Submitter vault.Submitter
	Reader    finality.ChainReader
}

// Coordinator drives orders
type Coordinator struct {
	cfg          Config
	chains       map[uint64]*Chain
	storage      storageInterface
	guard        guardInterface
	registry     resolverRegistry
	deposits     *safetydeposit.Manager
	finality     finalityInterface
	merkle       *merklesecret.Manager
	publisher    events.Publisher
	timeProvider utils.TimeProvider
	rates        rateSource

	// serializes order mutations
	mu sync.Mutex

	secretsMu sync.RWMutex
	secrets   map[string]*merklesecret.TreeSecrets

	monitorsMu sync.Mutex
	monitors   map[string]map[uint64]context.CancelFunc
	monitorSeq uint64
}

// NewCoordinator creates a coordinator. registry and publisher may be nil
func NewCoordinator(cfg Config, chains []*Chain, storage storageInterface, guard guardInterface, registry resolverRegistry,
	deposits *safetydeposit.Manager, fin finalityInterface, publisher events.Publisher, timeProvider utils.TimeProvider) (*Coordinator, error) {
	if cfg.OrderDuration.Duration == 0 {
		cfg.OrderDuration.Duration = defaultOrderDuration
	}
	if cfg.TimelockMargin.Duration == 0 {
		cfg.TimelockMargin.Duration = defaultTimelockMargin
	}
	if cfg.MonitorInterval.Duration == 0 {
		cfg.MonitorInterval.Duration = defaultMonitorInterval
	}
	if err := cfg.Auction.Validate(); err != nil {
		return nil, errors.Wrap(err, "default auction")
	}
	if cfg.MerkleSegments > merklesecret.MaxSegments {
		return nil, errors.Wrapf(gerror.ErrInvalidSegments, "%d segments", cfg.MerkleSegments)
	}
	if longest := fin.LongestWait(); cfg.TimelockMargin.Duration < longest {
		return nil, errors.Wrapf(gerror.ErrInvalidTimelocks, "timelock margin %s shorter than finality wait %s", cfg.TimelockMargin, longest)
	}
	if cfg.OrderDuration.Duration-cfg.TimelockMargin.Duration < temporal.MinDuration {
		return nil, errors.Wrapf(gerror.ErrInvalidTimelocks, "order duration %s leaves no destination window", cfg.OrderDuration)
	}
	byID := make(map[uint64]*Chain, len(chains))
	for _, c := range chains {
		byID[c.Ledger.ChainID()] = c
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if timeProvider == nil {
		timeProvider = utils.NewTimeProviderSystemLocalTime()
	}
	return &Coordinator{
		cfg:          cfg,
		chains:       byID,
		storage:      storage,
		guard:        guard,
		registry:     registry,
		deposits:     deposits,
		finality:     fin,
		merkle:       merklesecret.NewManager(),
		publisher:    publisher,
		timeProvider: timeProvider,
		secrets:      make(map[string]*merklesecret.TreeSecrets),
		monitors:     make(map[string]map[uint64]context.CancelFunc),
	}, nil
}

// WithRateSource sets the feed used when a maker leaves the market rate out
func (c *Coordinator) WithRateSource(rates rateSource) *Coordinator {
	c.rates = rates
	return c
}

// CreateTrade registers an order and locks the maker's funds in the source vault
func (c *Coordinator) CreateTrade(ctx context.Context, req CreateTradeRequest) (*Order, error) {
	if err := c.guard.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	if req.SourceAmount == nil || req.SourceAmount.Sign() <= 0 || req.DestinationAmount == nil || req.DestinationAmount.Sign() <= 0 {
		return nil, gerror.ErrInvalidAmount
	}
	src, err := c.chain(req.SourceChain)
	if err != nil {
		return nil, err
	}
	if _, err := c.chain(req.DestinationChain); err != nil {
		return nil, err
	}
	auctionCfg := c.cfg.Auction
	if req.Auction != nil {
		auctionCfg = *req.Auction
	}
	if err := auctionCfg.Validate(); err != nil {
		return nil, err
	}
	if req.MarketRate.IsZero() && c.rates != nil {
		req.MarketRate, err = c.rates.MarketRate(ctx, req.SourceChain, req.DestinationChain)
		if err != nil {
			return nil, err
		}
	}
	if !req.MarketRate.IsPositive() {
		return nil, errors.Wrap(gerror.ErrInvalidAmount, "market rate must be positive")
	}

	now := c.timeProvider.Now()
	expiration := req.Expiration
	if expiration.IsZero() {
		expiration = now.Add(c.cfg.OrderDuration.Duration)
	}
	if !temporal.IsReasonable(expiration, now) {
		return nil, errors.Wrapf(gerror.ErrInvalidExpiration, "expiration %s", expiration)
	}
	if temporal.Remaining(expiration.Add(-c.cfg.TimelockMargin.Duration), now) < temporal.MinDuration {
		return nil, errors.Wrapf(gerror.ErrInvalidTimelocks, "expiration %s leaves no destination window", expiration)
	}

	o := &Order{
		ID:                uuid.New().String(),
		Maker:             req.Maker,
		SourceChain:       req.SourceChain,
		DestinationChain:  req.DestinationChain,
		SourceAmount:      new(big.Int).Set(req.SourceAmount),
		DestinationAmount: new(big.Int).Set(req.DestinationAmount),
		Auction:           auctionCfg,
		MarketRate:        req.MarketRate,
		Commitment:        req.Commitment,
		Status:            StatusPending,
		Outcome:           OutcomeNone,
		CreatedAt:         now,
		Expiration:        expiration,
		DestinationRef:    req.DestinationRef,
	}
	var tree *merklesecret.TreeSecrets
	if o.Commitment == (common.Hash{}) {
		if tree, err = c.generateSecrets(o); err != nil {
			return nil, err
		}
	}
	if c.pricer(o).Status(o.CreatedAt, now) == auction.StatusActive {
		o.Status = StatusAuction
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.storage.AddOrder(ctx, o, nil); err != nil {
		return nil, err
	}

	vaultID, err := src.Ledger.Establish(ctx, vault.EstablishRequest{
		Initiator:   o.Maker,
		Amount:      o.SourceAmount,
		Expiration:  o.Expiration,
		Commitment:  o.Commitment,
		ExternalRef: o.ID,
	})
	if err != nil {
		o.Status = StatusExpired
		if updErr := c.storage.UpdateOrder(ctx, o, nil); updErr != nil {
			log.Errorf("order %s: error expiring order after failed source vault: %v", o.ID, updErr)
		}
		metrics.RecordOrder(string(StatusExpired))
		return nil, errors.Wrap(err, "establish source vault")
	}
	o.SourceVaultID = vaultID
	o.SourceBlock = c.blockNumber(ctx, src)
	if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
		return nil, err
	}
	if tree != nil {
		c.secretsMu.Lock()
		c.secrets[o.ID] = tree
		c.secretsMu.Unlock()
	}

	log.WithFields("order", o.ID, "maker", o.Maker.Hex(), "sourceVault", vaultID.Hex()).Info("order created")
	metrics.RecordOrder(string(o.Status))
	c.publish(ctx, events.Event{
		Type:        events.OrderCreated,
		ChainID:     o.SourceChain,
		OrderID:     o.ID,
		VaultID:     vaultID.Hex(),
		Actor:       o.Maker.Hex(),
		Amount:      events.FormatAmount(o.SourceAmount),
		ExternalRef: o.DestinationRef,
	})
	return o.Copy(), nil
}

// Fill lets a resolver take an open order: it posts the safety deposit and opens the destination vault
func (c *Coordinator) Fill(ctx context.Context, req FillRequest) (*Order, error) {
	if err := c.guard.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	allowed, err := c.guard.CheckAccess(ctx, req.Resolver, security.ActionResolver)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.RecordGuardRejection("resolver")
		return nil, errors.Wrapf(gerror.ErrUnauthorizedResolver, "resolver %s", req.Resolver.Hex())
	}
	if c.registry != nil {
		if err := c.registry.EnsureActive(ctx, req.Resolver); err != nil {
			return nil, err
		}
	}
	filled := false
	defer func() {
		// after the reentrancy mark is released, monitors share ctx with fills
		if filled {
			c.stopMonitors(req.OrderID)
		}
	}()
	key := "fill:" + req.OrderID
	ok, err := c.guard.CheckReentrancy(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.RecordGuardRejection("reentrancy")
		return nil, errors.Wrapf(gerror.ErrReentrantCall, "order %s", req.OrderID)
	}
	defer func() {
		if err := c.guard.ReleaseReentrancy(ctx, key); err != nil {
			log.Warnf("order %s: error releasing reentrancy mark: %v", req.OrderID, err)
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.loadOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusExpired && o.Outcome == OutcomeNone {
		return nil, errors.Wrapf(gerror.ErrOrderExpired, "order %s", o.ID)
	}
	if !o.IsOpen() {
		return nil, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s is %s", o.ID, o.Status)
	}
	now := c.timeProvider.Now()
	destExpiration := o.DestinationExpiration(c.cfg.TimelockMargin.Duration)
	if !temporal.IsActive(destExpiration, now) {
		return nil, errors.Wrapf(gerror.ErrOrderExpired, "order %s can no longer be filled", o.ID)
	}
	pricer := c.pricer(o)
	rate := pricer.CurrentRate(o.CreatedAt, o.MarketRate, now)
	if !auction.IsProfitable(rate, req.Cost) {
		return nil, errors.Wrapf(gerror.ErrNotProfitable, "rate %s below cost %s", rate, req.Cost)
	}
	destAmount := auction.DestinationAmount(rate, o.SourceAmount)
	if destAmount.Cmp(o.DestinationAmount) < 0 {
		destAmount = new(big.Int).Set(o.DestinationAmount)
	}

	dst := c.chains[o.DestinationChain]
	escrow, err := c.deposits.CreateEscrowWithDeposit(o.DestinationChain, destAmount, req.Resolver)
	if err != nil {
		return nil, err
	}
	if _, err := dst.Submitter.SubmitTransfer(ctx, req.Resolver, dst.Ledger.Custody(), escrow.Deposit); err != nil {
		return nil, errors.Wrap(err, "post safety deposit")
	}
	ref := o.DestinationRef
	if ref == "" {
		ref = o.ID
	}
	vaultID, err := dst.Ledger.Establish(ctx, vault.EstablishRequest{
		Initiator:    req.Resolver,
		Counterparty: o.Maker,
		Amount:       escrow.Principal,
		Expiration:   destExpiration,
		Commitment:   o.Commitment,
		ExternalRef:  ref,
	})
	if err != nil {
		if _, refundErr := dst.Submitter.SubmitTransfer(ctx, dst.Ledger.Custody(), req.Resolver, escrow.Deposit); refundErr != nil {
			log.Errorf("order %s: error returning deposit after failed fill: %v", o.ID, refundErr)
		}
		return nil, errors.Wrap(err, "establish destination vault")
	}

	o.Status = StatusFilled
	o.Resolver = req.Resolver
	o.DestinationAmount = destAmount
	o.DestinationVaultID = vaultID
	o.DestinationBlock = c.blockNumber(ctx, dst)
	o.SafetyDeposit = safetydeposit.Post(o.ID, escrow, now)
	o.FillRate = rate
	o.FilledAt = &now
	if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
		return nil, err
	}
	filled = true

	log.WithFields("order", o.ID, "resolver", req.Resolver.Hex(), "rate", rate.String(), "destVault", vaultID.Hex()).Info("order filled")
	metrics.RecordOrder(string(StatusFilled))
	metrics.RecordOrderFillWait(o.SourceChain, now.Sub(o.CreatedAt))
	c.publish(ctx, events.Event{
		Type:        events.OrderFilled,
		ChainID:     o.DestinationChain,
		OrderID:     o.ID,
		VaultID:     vaultID.Hex(),
		Actor:       req.Resolver.Hex(),
		Amount:      events.FormatAmount(destAmount),
		ExternalRef: ref,
	})
	return o.Copy(), nil
}

// Fulfill pays the maker on the destination chain with the revealed secret
func (c *Coordinator) Fulfill(ctx context.Context, orderID string, secret []byte) (*Order, error) {
	if err := c.guard.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusFilled || o.FulfilledAt != nil {
		return nil, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s is %s", o.ID, o.Status)
	}
	dst := c.chains[o.DestinationChain]
	paid, err := dst.Ledger.Claim(ctx, o.Maker, o.DestinationVaultID, secret, nil)
	if err != nil {
		return nil, err
	}
	now := c.timeProvider.Now()
	o.FulfilledAt = &now
	if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
		return nil, err
	}

	log.WithFields("order", o.ID, "amount", paid.String()).Info("order fulfilled")
	c.publish(ctx, events.Event{
		Type:    events.OrderFulfilled,
		ChainID: o.DestinationChain,
		OrderID: o.ID,
		VaultID: o.DestinationVaultID.Hex(),
		Actor:   o.Maker.Hex(),
		Amount:  events.FormatAmount(paid),
		Secret:  events.FormatSecret(secret),
	})
	return o.Copy(), nil
}

// Finish pays the resolver on the source chain and returns its safety deposit.
// The claim is recorded before the deposit moves, so a failed return is retried by calling Finish again
func (c *Coordinator) Finish(ctx context.Context, orderID string, secret []byte) (*Order, error) {
	if err := c.guard.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusFilled || o.FulfilledAt == nil || o.Outcome != OutcomeNone {
		return nil, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s is %s/%s", o.ID, o.Status, o.Outcome)
	}
	now := c.timeProvider.Now()
	if err := c.syncFinished(ctx, o, now); err != nil {
		return nil, err
	}
	paid := new(big.Int).Set(o.SourceAmount)
	if o.FinishedAt == nil {
		src := c.chains[o.SourceChain]
		if paid, err = src.Ledger.Claim(ctx, o.Resolver, o.SourceVaultID, secret, nil); err != nil {
			return nil, err
		}
		o.FinishedAt = &now
		if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
			return nil, err
		}
	}

	if err := c.settleDeposit(ctx, o, o.Resolver, now); err != nil {
		log.Warnf("order %s: source claimed, deposit return pending: %v", o.ID, err)
		return nil, err
	}
	o.Outcome = OutcomeCompleted
	o.SettledAt = &now
	if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
		return nil, err
	}
	c.recordExecution(ctx, o.Resolver, true)
	c.forgetSecrets(o.ID)

	log.WithFields("order", o.ID, "resolver", o.Resolver.Hex(), "amount", paid.String()).Info("order completed")
	metrics.RecordOrder(string(OutcomeCompleted))
	c.publish(ctx, events.Event{
		Type:    events.OrderCompleted,
		ChainID: o.SourceChain,
		OrderID: o.ID,
		VaultID: o.SourceVaultID.Hex(),
		Actor:   o.Resolver.Hex(),
		Amount:  events.FormatAmount(paid),
		Secret:  events.FormatSecret(secret),
	})
	return o.Copy(), nil
}

// Cancel withdraws an unfilled order. The source vault is recovered by Refund once expired
func (c *Coordinator) Cancel(ctx context.Context, caller common.Address, orderID string) (*Order, error) {
	if err := c.guard.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if caller != o.Maker {
		return nil, errors.Wrapf(gerror.ErrUnauthorized, "%s is not the maker", caller.Hex())
	}
	if !o.IsOpen() && !(o.Status == StatusExpired && o.Outcome == OutcomeNone && o.Resolver == (common.Address{})) {
		return nil, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s is %s", o.ID, o.Status)
	}
	now := c.timeProvider.Now()
	o.Status = StatusExpired
	o.Outcome = OutcomeCancelled
	o.SettledAt = &now
	if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
		return nil, err
	}
	c.stopMonitors(o.ID)
	c.forgetSecrets(o.ID)

	log.WithFields("order", o.ID).Info("order cancelled")
	metrics.RecordOrder(string(OutcomeCancelled))
	c.publish(ctx, events.Event{Type: events.OrderCancelled, ChainID: o.SourceChain, OrderID: o.ID, Actor: caller.Hex()})
	return o.Copy(), nil
}

// Refund recovers both vaults of an expired order and settles a posted deposit. The deposit is
// forfeited to the maker only when the maker was paid on the destination chain and the resolver
// left the source vault unclaimed, otherwise it goes back to the resolver
func (c *Coordinator) Refund(ctx context.Context, orderID string) (*Order, error) {
	if err := c.guard.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	o, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Outcome == OutcomeCompleted || o.Outcome == OutcomeRefunded {
		return nil, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s is %s", o.ID, o.Outcome)
	}
	now := c.timeProvider.Now()
	if !temporal.IsExpired(o.Expiration, now) {
		return nil, errors.Wrapf(gerror.ErrVaultNotExpired, "order %s expires at %s", o.ID, o.Expiration)
	}
	if err := c.syncFinished(ctx, o, now); err != nil {
		return nil, err
	}
	if o.FinishedAt != nil {
		return nil, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s was finished by its resolver, its deposit is settled by Finish", o.ID)
	}
	makerPaid := o.FulfilledAt != nil
	if !makerPaid && o.DestinationVaultID != (common.Hash{}) {
		if makerPaid, err = c.vaultClaimed(ctx, c.chains[o.DestinationChain], o.DestinationVaultID); err != nil {
			return nil, err
		}
	}

	var recovered *big.Int
	if o.SourceVaultID != (common.Hash{}) {
		recovered, err = c.recover(ctx, c.chains[o.SourceChain], o.Maker, o.SourceVaultID)
		if err != nil {
			return nil, err
		}
	}
	if o.DestinationVaultID != (common.Hash{}) {
		if _, err := c.recover(ctx, c.chains[o.DestinationChain], o.Resolver, o.DestinationVaultID); err != nil {
			return nil, err
		}
	}
	if o.SafetyDeposit != nil && o.SafetyDeposit.Status == safetydeposit.StatusPosted {
		beneficiary := o.Resolver
		if makerPaid {
			beneficiary = o.Maker
		}
		if err := c.settleDeposit(ctx, o, beneficiary, now); err != nil {
			return nil, err
		}
		if makerPaid {
			c.recordExecution(ctx, o.Resolver, false)
		}
	}
	o.Status = StatusExpired
	o.Outcome = OutcomeRefunded
	o.SettledAt = &now
	if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
		return nil, err
	}
	c.stopMonitors(o.ID)
	c.forgetSecrets(o.ID)

	log.WithFields("order", o.ID, "recovered", events.FormatAmount(recovered)).Info("order refunded")
	metrics.RecordOrder(string(OutcomeRefunded))
	c.publish(ctx, events.Event{
		Type:    events.OrderRefunded,
		ChainID: o.SourceChain,
		OrderID: o.ID,
		VaultID: o.SourceVaultID.Hex(),
		Actor:   o.Maker.Hex(),
		Amount:  events.FormatAmount(recovered),
	})
	return o.Copy(), nil
}

// ReleaseSecret hands the order secret to its resolver once both vaults are final
// and the order is old enough. Only orders whose secrets were generated here qualify.
// Orders are filled whole by one resolver, so the secret is always the full-fill leaf
func (c *Coordinator) ReleaseSecret(ctx context.Context, orderID string, resolver common.Address, progress finality.ProgressFunc) (*ReleasedSecret, error) {
	o, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusFilled || o.Outcome != OutcomeNone {
		return nil, errors.Wrapf(gerror.ErrInvalidOrderStatus, "order %s is %s", o.ID, o.Status)
	}
	if resolver != o.Resolver {
		return nil, errors.Wrapf(gerror.ErrUnauthorizedResolver, "%s did not fill order %s", resolver.Hex(), o.ID)
	}
	c.secretsMu.RLock()
	tree, ok := c.secrets[o.ID]
	c.secretsMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(gerror.ErrStorageNotFound, "no secret held for order %s", o.ID)
	}

	targets := []finality.Target{
		{ChainID: o.SourceChain, BlockNumber: o.SourceBlock},
		{ChainID: o.DestinationChain, BlockNumber: o.DestinationBlock},
	}
	if err := c.finality.WaitForAll(ctx, targets, func(p finality.Progress) {
		metrics.SetLatestBlockNum(p.ChainID, p.CurrentBlock)
		if progress != nil {
			progress(p)
		}
	}); err != nil {
		return nil, err
	}
	index, err := merklesecret.IndexForFillPercentage(uint64(len(tree.Secrets)), 100) //nolint:gomnd
	if err != nil {
		return nil, err
	}
	secret := tree.Secrets[index]
	proof, err := tree.Proof(index)
	if err != nil {
		return nil, err
	}
	if err := merklesecret.VerifySecret(o.MerkleRoot, secret, index, proof); err != nil {
		return nil, errors.Wrapf(err, "secret of order %s does not match its merkle root", o.ID)
	}
	if !commitment.Verify(secret, o.Commitment) {
		return nil, errors.Wrapf(gerror.ErrInvalidSecret, "secret of order %s does not match its commitment", o.ID)
	}
	shared, err := c.finality.ShareSecretConditionally(ctx, o.ID, o.CreatedAt, secret, resolver)
	if err != nil {
		return nil, err
	}
	metrics.RecordSecretReleased(o.DestinationChain)
	c.publish(ctx, events.Event{Type: events.SecretReleased, ChainID: o.DestinationChain, OrderID: o.ID, Actor: resolver.Hex()})
	return &ReleasedSecret{ReleasedSecret: *shared, Index: index, Proof: proof, MerkleRoot: o.MerkleRoot}, nil
}

// GetOrder returns an order, expiring it first when its auction window has passed unfilled
func (c *Coordinator) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadOrder(ctx, orderID)
}

// ListOrders pages through orders in status, all when status is empty
func (c *Coordinator) ListOrders(ctx context.Context, status Status, limit, offset uint) ([]*Order, error) {
	return c.storage.GetOrders(ctx, status, limit, offset, nil)
}

// CurrentRate returns the auction rate of an order now
func (c *Coordinator) CurrentRate(ctx context.Context, orderID string) (decimal.Decimal, auction.Status, error) {
	o, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, "", err
	}
	now := c.timeProvider.Now()
	p := c.pricer(o)
	return p.CurrentRate(o.CreatedAt, o.MarketRate, now), p.Status(o.CreatedAt, now), nil
}

// loadOrder reads an order and moves it along the auction windows. Callers hold c.mu
func (c *Coordinator) loadOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := c.storage.GetOrder(ctx, orderID, nil)
	if err != nil {
		return nil, err
	}
	if !o.IsOpen() {
		return o, nil
	}
	now := c.timeProvider.Now()
	status := o.Status
	switch c.pricer(o).Status(o.CreatedAt, now) {
	case auction.StatusActive:
		status = StatusAuction
	case auction.StatusExpired:
		status = StatusExpired
	}
	if !temporal.IsActive(o.DestinationExpiration(c.cfg.TimelockMargin.Duration), now) {
		status = StatusExpired
	}
	if status != o.Status {
		o.Status = status
		if err := c.storage.UpdateOrder(ctx, o, nil); err != nil {
			return nil, err
		}
		if status == StatusExpired {
			c.stopMonitors(o.ID)
			metrics.RecordOrder(string(StatusExpired))
		}
	}
	return o, nil
}

func (c *Coordinator) pricer(o *Order) *auction.Pricer {
	p, err := auction.NewPricer(o.Auction)
	if err != nil {
		// orders are validated on creation
		log.Errorf("order %s: invalid auction config: %v", o.ID, err)
		p, _ = auction.NewPricer(c.cfg.Auction)
	}
	return p
}

func (c *Coordinator) chain(chainID uint64) (*Chain, error) {
	ch, ok := c.chains[chainID]
	if !ok {
		return nil, errors.Wrapf(gerror.ErrUnknownChain, "chain %d", chainID)
	}
	return ch, nil
}

func (c *Coordinator) blockNumber(ctx context.Context, ch *Chain) uint64 {
	if ch.Reader == nil {
		return 0
	}
	n, err := ch.Reader.BlockNumber(ctx)
	if err != nil {
		log.Warnf("chain %d: error reading block number: %v", ch.Ledger.ChainID(), err)
		return 0
	}
	return n
}

func (c *Coordinator) generateSecrets(o *Order) (*merklesecret.TreeSecrets, error) {
	segments := c.cfg.MerkleSegments
	if segments == 0 {
		segments = 1
	}
	tree, err := c.merkle.Generate(o.SourceAmount, segments)
	if err != nil {
		return nil, err
	}
	// single-fill orders commit to the full-fill leaf
	secret, err := merklesecret.SecretForFillPercentage(tree.Secrets, 100) //nolint:gomnd
	if err != nil {
		return nil, err
	}
	o.Commitment, err = commitment.Commit(secret)
	if err != nil {
		return nil, err
	}
	o.MerkleRoot = tree.Root
	return tree, nil
}

func (c *Coordinator) forgetSecrets(orderID string) {
	c.secretsMu.Lock()
	delete(c.secrets, orderID)
	c.secretsMu.Unlock()
}

// recover returns an expired vault to its initiator, skipping vaults already settled
func (c *Coordinator) recover(ctx context.Context, ch *Chain, initiator common.Address, vaultID common.Hash) (*big.Int, error) {
	v, err := ch.Ledger.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	if v.State.IsSettled() {
		return new(big.Int), nil
	}
	return ch.Ledger.RecoverExpired(ctx, initiator, vaultID)
}

// settleDeposit pays the posted deposit to beneficiary: a return when it is the resolver, a forfeit otherwise
func (c *Coordinator) settleDeposit(ctx context.Context, o *Order, beneficiary common.Address, now time.Time) error {
	d := o.SafetyDeposit
	if d == nil {
		return nil
	}
	if d.Status != safetydeposit.StatusPosted {
		return errors.Wrapf(gerror.ErrDepositSettled, "order %s", o.ID)
	}
	dst := c.chains[d.ChainID]
	if _, err := dst.Submitter.SubmitTransfer(ctx, dst.Ledger.Custody(), beneficiary, d.Amount); err != nil {
		return errors.Wrap(err, "settle safety deposit")
	}
	if beneficiary == o.Resolver {
		return d.Return(now)
	}
	return d.Forfeit(beneficiary, now)
}

// syncFinished records a source claim the order missed, e.g. when storing it failed after the claim
func (c *Coordinator) syncFinished(ctx context.Context, o *Order, now time.Time) error {
	if o.FinishedAt != nil || o.Resolver == (common.Address{}) || o.SourceVaultID == (common.Hash{}) {
		return nil
	}
	claimed, err := c.vaultClaimed(ctx, c.chains[o.SourceChain], o.SourceVaultID)
	if err != nil || !claimed {
		return err
	}
	o.FinishedAt = &now
	return c.storage.UpdateOrder(ctx, o, nil)
}

func (c *Coordinator) vaultClaimed(ctx context.Context, ch *Chain, vaultID common.Hash) (bool, error) {
	v, err := ch.Ledger.GetVault(ctx, vaultID)
	if err != nil {
		return false, err
	}
	return v.State == vault.StateClaimed, nil
}

func (c *Coordinator) recordExecution(ctx context.Context, resolver common.Address, success bool) {
	if c.registry == nil {
		return
	}
	if err := c.registry.RecordExecution(ctx, resolver, success); err != nil && !errors.Is(err, gerror.ErrStorageNotFound) {
		log.Warnf("error recording execution of resolver %s: %v", resolver.Hex(), err)
	}
}

func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	e.Timestamp = c.timeProvider.Now()
	if err := c.publisher.Publish(ctx, e); err != nil {
		log.Warnf("error publishing %s event: %v", e.Type, err)
	}
}
