// Package vault implements the hash time locked escrow state machine. One
// Ledger runs per chain with its own storage; the two sides of a swap share
// only the commitment.
package vault

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/0xPolygonHermez/zkevm-swap-service/commitment"
	"github.com/0xPolygonHermez/zkevm-swap-service/events"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/metrics"
	"github.com/0xPolygonHermez/zkevm-swap-service/temporal"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
)

const vaultIDNonceLen = 16

// Ledger is the vault state machine of one chain
type Ledger struct {
	chainID      uint64
	custody      common.Address
	storage      storageInterface
	submitter    Submitter
	guard        pauseChecker
	publisher    events.Publisher
	timeProvider utils.TimeProvider

	// serializes every mutation, like the chain orders its transactions
	mu sync.Mutex
}

// NewLedger creates the ledger of chainID. Locked funds are held by custody.
// guard and publisher may be nil
func NewLedger(chainID uint64, custody common.Address, storage storageInterface, submitter Submitter, guard pauseChecker, publisher events.Publisher, timeProvider utils.TimeProvider) *Ledger {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if timeProvider == nil {
		timeProvider = utils.NewTimeProviderSystemLocalTime()
	}
	return &Ledger{
		chainID:      chainID,
		custody:      custody,
		storage:      storage,
		submitter:    submitter,
		guard:        guard,
		publisher:    publisher,
		timeProvider: timeProvider,
	}
}

// ChainID of the ledger
func (l *Ledger) ChainID() uint64 {
	return l.chainID
}

// Custody is the account holding the funds of every vault of the ledger
func (l *Ledger) Custody() common.Address {
	return l.custody
}

// Establish locks req.Amount from the initiator and returns the new vault id
func (l *Ledger) Establish(ctx context.Context, req EstablishRequest) (common.Hash, error) {
	if err := l.ensureNotPaused(ctx); err != nil {
		return common.Hash{}, err
	}
	now := l.timeProvider.Now()
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return common.Hash{}, gerror.ErrInvalidAmount
	}
	if !temporal.IsReasonable(req.Expiration, now) {
		return common.Hash{}, errors.Wrapf(gerror.ErrInvalidExpiration, "expiration %s", req.Expiration)
	}
	if req.Commitment == (common.Hash{}) {
		return common.Hash{}, gerror.ErrInvalidCommitment
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.newVaultID(req)
	if err != nil {
		return common.Hash{}, err
	}
	v := &Vault{
		ID:              id,
		ChainID:         l.chainID,
		Initiator:       req.Initiator,
		Counterparty:    req.Counterparty,
		TotalAmount:     new(big.Int).Set(req.Amount),
		RemainingAmount: new(big.Int).Set(req.Amount),
		Commitment:      req.Commitment,
		Expiration:      req.Expiration,
		State:           StateSecured,
		ExternalRef:     req.ExternalRef,
		CreatedAt:       now,
	}

	var txHash common.Hash
	err = l.atomic(ctx, func(dbTx pgx.Tx) error {
		if err := l.storage.AddVault(ctx, v, dbTx); err != nil {
			return err
		}
		txHash, err = l.submitter.SubmitTransfer(ctx, v.Initiator, l.custody, v.TotalAmount)
		return errors.Wrap(err, "lock vault funds")
	})
	if err != nil {
		return common.Hash{}, err
	}

	log.WithFields("chain", l.chainID, "vault", id.Hex(), "amount", v.TotalAmount.String()).Info("vault established")
	metrics.RecordVaultEvent(l.chainID, string(events.VaultEstablished))
	metrics.RecordVaultLocked(l.chainID, v.TotalAmount)
	l.publish(ctx, events.Event{
		Type:        events.VaultEstablished,
		VaultID:     id.Hex(),
		Actor:       v.Initiator.Hex(),
		Amount:      events.FormatAmount(v.TotalAmount),
		Remaining:   events.FormatAmount(v.RemainingAmount),
		TxHash:      txHash.Hex(),
		ExternalRef: v.ExternalRef,
	})
	return id, nil
}

// Claim pays amount to caller when secret opens the vault. A nil amount claims the whole remainder.
func (l *Ledger) Claim(ctx context.Context, caller common.Address, vaultID common.Hash, secret []byte, amount *big.Int) (*big.Int, error) {
	if err := l.ensureNotPaused(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeProvider.Now()
	var (
		v      *Vault
		paid   *big.Int
		txHash common.Hash
	)
	err := l.atomic(ctx, func(dbTx pgx.Tx) error {
		var err error
		v, err = l.storage.GetVault(ctx, l.chainID, vaultID, dbTx)
		if err != nil {
			return err
		}
		if v.State.IsSettled() {
			return errors.Wrapf(gerror.ErrVaultSettled, "vault %s is %s", vaultID.Hex(), v.State)
		}
		if temporal.IsExpired(v.Expiration, now) {
			return errors.Wrapf(gerror.ErrVaultExpired, "vault %s expired at %s", vaultID.Hex(), v.Expiration)
		}
		if !v.IsOpen() && caller != v.Counterparty {
			return errors.Wrapf(gerror.ErrUnauthorized, "%s is not the counterparty", caller.Hex())
		}

		secretHash := commitment.Hash(secret)
		consumed, err := l.storage.GetConsumedSecret(ctx, l.chainID, secretHash, dbTx)
		if err != nil && !errors.Is(err, gerror.ErrStorageNotFound) {
			return err
		}
		if consumed != nil && consumed.VaultID != v.ID {
			return errors.Wrapf(gerror.ErrSecretConsumed, "secret already opened vault %s", consumed.VaultID.Hex())
		}
		if !commitment.Verify(secret, v.Commitment) {
			return gerror.ErrInvalidSecret
		}
		if len(v.RevealedSecret) > 0 && !commitment.SecretsEqual(v.RevealedSecret, secret) {
			return gerror.ErrSecretMismatch
		}

		paid = amount
		if paid == nil {
			paid = new(big.Int).Set(v.RemainingAmount)
		}
		if paid.Sign() <= 0 {
			return gerror.ErrInvalidWithdrawalAmount
		}
		if paid.Cmp(v.RemainingAmount) > 0 {
			return errors.Wrapf(gerror.ErrInsufficientBalance, "requested %s, remaining %s", paid, v.RemainingAmount)
		}

		if consumed == nil {
			if err := l.storage.AddConsumedSecret(ctx, &ConsumedSecret{
				ChainID:    l.chainID,
				SecretHash: secretHash,
				VaultID:    v.ID,
				ConsumedAt: now,
			}, dbTx); err != nil {
				return err
			}
		}
		if len(v.RevealedSecret) == 0 {
			v.RevealedSecret = append([]byte(nil), secret...)
		}
		v.RemainingAmount = new(big.Int).Sub(v.RemainingAmount, paid)
		if v.RemainingAmount.Sign() == 0 {
			v.State = StateClaimed
			v.SettledAt = &now
		}
		if err := l.storage.UpdateVault(ctx, v, dbTx); err != nil {
			return err
		}
		txHash, err = l.submitter.SubmitTransfer(ctx, l.custody, caller, paid)
		return errors.Wrap(err, "pay claim")
	})
	if err != nil {
		return nil, err
	}

	log.WithFields("chain", l.chainID, "vault", vaultID.Hex(), "amount", paid.String(), "remaining", v.RemainingAmount.String()).Info("vault claimed")
	metrics.RecordVaultEvent(l.chainID, string(events.VaultClaimed))
	metrics.RecordVaultClaimed(l.chainID, paid)
	l.publish(ctx, events.Event{
		Type:        events.VaultClaimed,
		VaultID:     vaultID.Hex(),
		Actor:       caller.Hex(),
		Amount:      events.FormatAmount(paid),
		Remaining:   events.FormatAmount(v.RemainingAmount),
		Secret:      events.FormatSecret(secret),
		TxHash:      txHash.Hex(),
		ExternalRef: v.ExternalRef,
	})
	return new(big.Int).Set(paid), nil
}

// TerminateExpired marks an expired vault without moving funds. Anyone may call it
func (l *Ledger) TerminateExpired(ctx context.Context, vaultID common.Hash) error {
	if err := l.ensureNotPaused(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeProvider.Now()
	var changed bool
	var v *Vault
	err := l.atomic(ctx, func(dbTx pgx.Tx) error {
		var err error
		v, err = l.storage.GetVault(ctx, l.chainID, vaultID, dbTx)
		if err != nil {
			return err
		}
		if v.State.IsSettled() {
			return errors.Wrapf(gerror.ErrVaultSettled, "vault %s is %s", vaultID.Hex(), v.State)
		}
		if !temporal.IsExpired(v.Expiration, now) {
			return errors.Wrapf(gerror.ErrVaultNotExpired, "vault %s expires at %s", vaultID.Hex(), v.Expiration)
		}
		if v.State == StateExpired {
			return nil
		}
		v.State = StateExpired
		changed = true
		return l.storage.UpdateVault(ctx, v, dbTx)
	})
	if err != nil || !changed {
		return err
	}

	log.WithFields("chain", l.chainID, "vault", vaultID.Hex()).Info("vault expired")
	metrics.RecordVaultEvent(l.chainID, string(events.VaultExpired))
	l.publish(ctx, events.Event{
		Type:        events.VaultExpired,
		VaultID:     vaultID.Hex(),
		Remaining:   events.FormatAmount(v.RemainingAmount),
		ExternalRef: v.ExternalRef,
	})
	return nil
}

// RecoverExpired returns the remainder of an expired vault to its initiator
func (l *Ledger) RecoverExpired(ctx context.Context, caller common.Address, vaultID common.Hash) (*big.Int, error) {
	if err := l.ensureNotPaused(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.timeProvider.Now()
	var (
		v      *Vault
		txHash common.Hash
	)
	err := l.atomic(ctx, func(dbTx pgx.Tx) error {
		var err error
		v, err = l.storage.GetVault(ctx, l.chainID, vaultID, dbTx)
		if err != nil {
			return err
		}
		if v.State.IsSettled() {
			return errors.Wrapf(gerror.ErrVaultSettled, "vault %s is %s", vaultID.Hex(), v.State)
		}
		if !temporal.IsExpired(v.Expiration, now) {
			return errors.Wrapf(gerror.ErrVaultNotExpired, "vault %s expires at %s", vaultID.Hex(), v.Expiration)
		}
		if caller != v.Initiator {
			return errors.Wrapf(gerror.ErrUnauthorized, "%s is not the initiator", caller.Hex())
		}
		// RemainingAmount keeps the recovered value for audit
		v.State = StateTerminated
		v.SettledAt = &now
		if err := l.storage.UpdateVault(ctx, v, dbTx); err != nil {
			return err
		}
		txHash, err = l.submitter.SubmitTransfer(ctx, l.custody, v.Initiator, v.RemainingAmount)
		return errors.Wrap(err, "return vault funds")
	})
	if err != nil {
		return nil, err
	}

	log.WithFields("chain", l.chainID, "vault", vaultID.Hex(), "amount", v.RemainingAmount.String()).Info("vault recovered")
	metrics.RecordVaultEvent(l.chainID, string(events.VaultRecovered))
	metrics.RecordVaultRecovered(l.chainID, v.RemainingAmount)
	l.publish(ctx, events.Event{
		Type:        events.VaultRecovered,
		VaultID:     vaultID.Hex(),
		Actor:       caller.Hex(),
		Amount:      events.FormatAmount(v.RemainingAmount),
		TxHash:      txHash.Hex(),
		ExternalRef: v.ExternalRef,
	})
	return new(big.Int).Set(v.RemainingAmount), nil
}

// GetVault returns a vault by id
func (l *Ledger) GetVault(ctx context.Context, vaultID common.Hash) (*Vault, error) {
	return l.storage.GetVault(ctx, l.chainID, vaultID, nil)
}

// ListVaults returns vaults in state, all states when state is empty, oldest first
func (l *Ledger) ListVaults(ctx context.Context, state State, limit, offset uint) ([]*Vault, error) {
	return l.storage.GetVaults(ctx, l.chainID, state, limit, offset, nil)
}

// IsSecretConsumed reports whether secret already opened a vault on this chain
func (l *Ledger) IsSecretConsumed(ctx context.Context, secret []byte) (bool, error) {
	_, err := l.storage.GetConsumedSecret(ctx, l.chainID, commitment.Hash(secret), nil)
	if errors.Is(err, gerror.ErrStorageNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (l *Ledger) ensureNotPaused(ctx context.Context) error {
	if l.guard == nil {
		return nil
	}
	if err := l.guard.EnsureNotPaused(ctx); err != nil {
		metrics.RecordGuardRejection("paused")
		return err
	}
	return nil
}

// atomic runs fn inside a storage transaction, rolled back when fn fails
func (l *Ledger) atomic(ctx context.Context, fn func(dbTx pgx.Tx) error) error {
	dbTx, err := l.storage.BeginDBTransaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(dbTx); err != nil {
		if rollbackErr := l.storage.Rollback(ctx, dbTx); rollbackErr != nil {
			log.Errorf("chain %d: error rolling back state. RollbackErr: %v, err: %v", l.chainID, rollbackErr, err)
		}
		return err
	}
	return l.storage.Commit(ctx, dbTx)
}

func (l *Ledger) newVaultID(req EstablishRequest) (common.Hash, error) {
	nonce, err := utils.RandomBytes(vaultIDNonceLen)
	if err != nil {
		return common.Hash{}, err
	}
	chain := make([]byte, 8)
	binary.BigEndian.PutUint64(chain, l.chainID)
	exp := make([]byte, 8)
	binary.BigEndian.PutUint64(exp, uint64(req.Expiration.Unix()))
	return commitment.Hash(chain, req.Initiator.Bytes(), req.Counterparty.Bytes(), req.Commitment.Bytes(),
		req.Amount.Bytes(), exp, []byte(req.ExternalRef), nonce), nil
}

func (l *Ledger) publish(ctx context.Context, e events.Event) {
	e.ChainID = l.chainID
	e.Timestamp = l.timeProvider.Now()
	if err := l.publisher.Publish(ctx, e); err != nil {
		log.Warnf("chain %d: error publishing %s event: %v", l.chainID, e.Type, err)
	}
}
