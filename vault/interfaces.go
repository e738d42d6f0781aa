package vault

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
)

type storageInterface interface {
	AddVault(ctx context.Context, v *Vault, dbTx pgx.Tx) error
	UpdateVault(ctx context.Context, v *Vault, dbTx pgx.Tx) error
	GetVault(ctx context.Context, chainID uint64, id common.Hash, dbTx pgx.Tx) (*Vault, error)
	GetVaults(ctx context.Context, chainID uint64, state State, limit, offset uint, dbTx pgx.Tx) ([]*Vault, error)
	AddConsumedSecret(ctx context.Context, s *ConsumedSecret, dbTx pgx.Tx) error
	GetConsumedSecret(ctx context.Context, chainID uint64, secretHash common.Hash, dbTx pgx.Tx) (*ConsumedSecret, error)
	// atomic
	Rollback(ctx context.Context, dbTx pgx.Tx) error
	BeginDBTransaction(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, dbTx pgx.Tx) error
}

// Submitter moves value on one chain and returns the transaction hash
type Submitter interface {
	SubmitTransfer(ctx context.Context, from, to common.Address, amount *big.Int) (common.Hash, error)
}

type pauseChecker interface {
	EnsureNotPaused(ctx context.Context) error
}
