package swapctrl

import (
	"context"
	"math/big"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/security"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
)

type storageInterface interface {
	AddOrder(ctx context.Context, o *Order, dbTx pgx.Tx) error
	UpdateOrder(ctx context.Context, o *Order, dbTx pgx.Tx) error
	GetOrder(ctx context.Context, id string, dbTx pgx.Tx) (*Order, error)
	GetOrders(ctx context.Context, status Status, limit, offset uint, dbTx pgx.Tx) ([]*Order, error)
}

type ledgerInterface interface {
	ChainID() uint64
	Custody() common.Address
	Establish(ctx context.Context, req vault.EstablishRequest) (common.Hash, error)
	Claim(ctx context.Context, caller common.Address, vaultID common.Hash, secret []byte, amount *big.Int) (*big.Int, error)
	RecoverExpired(ctx context.Context, caller common.Address, vaultID common.Hash) (*big.Int, error)
	GetVault(ctx context.Context, vaultID common.Hash) (*vault.Vault, error)
}

type guardInterface interface {
	EnsureNotPaused(ctx context.Context) error
	CheckAccess(ctx context.Context, user common.Address, action security.Action) (bool, error)
	CheckReentrancy(ctx context.Context, txHash string) (bool, error)
	ReleaseReentrancy(ctx context.Context, txHash string) error
}

type resolverRegistry interface {
	EnsureActive(ctx context.Context, addr common.Address) error
	RecordExecution(ctx context.Context, addr common.Address, success bool) error
}

type finalityInterface interface {
	WaitForAll(ctx context.Context, targets []finality.Target, progress finality.ProgressFunc) error
	ShareSecretConditionally(ctx context.Context, orderID string, createdAt time.Time, secret []byte, resolver common.Address) (*finality.ReleasedSecret, error)
	LongestWait() time.Duration
}

type rateSource interface {
	MarketRate(ctx context.Context, sourceChain, destinationChain uint64) (decimal.Decimal, error)
}
