// Package finality gates secret release on confirmation depth and order age.
package finality

import (
	"context"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const defaultPollInterval = 2 * time.Second

// Progress is reported on every poll while waiting for finality
type Progress struct {
	ChainID       uint64
	TargetBlock   uint64
	CurrentBlock  uint64
	Confirmations uint64
	// Remaining is the number of blocks still missing
	Remaining uint64
}

// ProgressFunc receives progress updates. It may be nil
type ProgressFunc func(Progress)

// Target is a block that must become final
type Target struct {
	ChainID     uint64
	BlockNumber uint64
}

// ReleasedSecret is the outcome of a successful conditional share
type ReleasedSecret struct {
	OrderID    string
	Secret     []byte
	Resolver   common.Address
	ReleasedAt time.Time
}

// Manager waits for finality
type Manager struct {
	chains       map[uint64]ChainConfirmations
	readers      map[uint64]ChainReader
	pollInterval time.Duration
	sharingDelay time.Duration
	whitelist    resolverWhitelist
	clock        utils.TimeProvider
}

// NewManager creates a finality manager. Every configured chain needs a reader
func NewManager(cfg Config, readers map[uint64]ChainReader, whitelist resolverWhitelist, clock utils.TimeProvider) (*Manager, error) {
	chains := make(map[uint64]ChainConfirmations, len(cfg.Chains))
	for _, c := range cfg.Chains {
		if _, ok := readers[c.ChainID]; !ok {
			return nil, errors.Wrapf(gerror.ErrInvalidConfig, "no chain reader for chain %d", c.ChainID)
		}
		chains[c.ChainID] = c
	}
	poll := cfg.PollInterval.Duration
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if clock == nil {
		clock = utils.NewTimeProviderSystemLocalTime()
	}
	return &Manager{
		chains:       chains,
		readers:      readers,
		pollInterval: poll,
		sharingDelay: cfg.SecretSharingDelay.Duration,
		whitelist:    whitelist,
		clock:        clock,
	}, nil
}

// Confirmations returns the depth required on chainID
func (m *Manager) Confirmations(chainID uint64) (uint64, error) {
	c, ok := m.chains[chainID]
	if !ok {
		return 0, errors.Wrapf(gerror.ErrUnknownChain, "chain %d", chainID)
	}
	return c.Confirmations, nil
}

// EstimatedWait is confirmations times the block time of chainID
func (m *Manager) EstimatedWait(chainID uint64) time.Duration {
	c := m.chains[chainID]
	return time.Duration(c.Confirmations) * c.BlockTime.Duration
}

// LongestWait is the largest EstimatedWait over all chains
func (m *Manager) LongestWait() time.Duration {
	var longest time.Duration
	for id := range m.chains {
		if w := m.EstimatedWait(id); w > longest {
			longest = w
		}
	}
	return longest
}

// WaitForFinality blocks until blockNumber on chainID is buried under the configured confirmations
func (m *Manager) WaitForFinality(ctx context.Context, chainID, blockNumber uint64, progress ProgressFunc) error {
	c, ok := m.chains[chainID]
	if !ok {
		return errors.Wrapf(gerror.ErrUnknownChain, "chain %d", chainID)
	}
	reader := m.readers[chainID]
	target := blockNumber + c.Confirmations

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		current, err := reader.BlockNumber(ctx)
		if err != nil {
			log.Warnf("error reading block number of chain %d: %v", chainID, err)
		} else {
			p := Progress{ChainID: chainID, TargetBlock: blockNumber, CurrentBlock: current, Confirmations: c.Confirmations}
			if current < target {
				p.Remaining = target - current
			}
			if progress != nil {
				progress(p)
			}
			if p.Remaining == 0 {
				log.Debugf("block %d of chain %d is final at height %d", blockNumber, chainID, current)
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForAll waits for every target concurrently. The first failure cancels the others
func (m *Manager) WaitForAll(ctx context.Context, targets []Target, progress ProgressFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			return m.WaitForFinality(gctx, t.ChainID, t.BlockNumber, progress)
		})
	}
	return g.Wait()
}

// ShareSecretConditionally releases secret to resolver once the order is SecretSharingDelay old.
// A non empty whitelist must contain resolver.
func (m *Manager) ShareSecretConditionally(ctx context.Context, orderID string, createdAt time.Time, secret []byte, resolver common.Address) (*ReleasedSecret, error) {
	if len(secret) == 0 {
		return nil, gerror.ErrEmptySecret
	}
	if m.whitelist != nil {
		ok, err := m.whitelist.IsWhitelisted(ctx, resolver)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(gerror.ErrUnauthorizedResolver, "resolver %s", resolver.Hex())
		}
	}
	releaseAt := createdAt.Add(m.sharingDelay)
	if wait := releaseAt.Sub(m.clock.Now()); wait > 0 {
		log.Debugf("order %s: holding secret for %s", orderID, wait)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	released := &ReleasedSecret{
		OrderID:    orderID,
		Secret:     append([]byte(nil), secret...),
		Resolver:   resolver,
		ReleasedAt: m.clock.Now(),
	}
	log.WithFields("order", orderID, "resolver", resolver.Hex()).Info("secret released")
	return released, nil
}
