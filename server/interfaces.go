package server

import (
	"context"
	"math/big"

	"github.com/0xPolygonHermez/zkevm-swap-service/auction"
	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type coordinator interface {
	CreateTrade(ctx context.Context, req swapctrl.CreateTradeRequest) (*swapctrl.Order, error)
	Fill(ctx context.Context, req swapctrl.FillRequest) (*swapctrl.Order, error)
	Fulfill(ctx context.Context, orderID string, secret []byte) (*swapctrl.Order, error)
	Finish(ctx context.Context, orderID string, secret []byte) (*swapctrl.Order, error)
	Cancel(ctx context.Context, caller common.Address, orderID string) (*swapctrl.Order, error)
	Refund(ctx context.Context, orderID string) (*swapctrl.Order, error)
	ReleaseSecret(ctx context.Context, orderID string, resolver common.Address, progress finality.ProgressFunc) (*swapctrl.ReleasedSecret, error)
	GetOrder(ctx context.Context, orderID string) (*swapctrl.Order, error)
	ListOrders(ctx context.Context, status swapctrl.Status, limit, offset uint) ([]*swapctrl.Order, error)
	CurrentRate(ctx context.Context, orderID string) (decimal.Decimal, auction.Status, error)
}

// VaultReader serves the vaults of one chain
type VaultReader interface {
	ChainID() uint64
	GetVault(ctx context.Context, vaultID common.Hash) (*vault.Vault, error)
	ListVaults(ctx context.Context, state vault.State, limit, offset uint) ([]*vault.Vault, error)
}

type guardInterface interface {
	EmergencyPause(ctx context.Context, caller common.Address) error
	EmergencyResume(ctx context.Context, caller common.Address) error
	IsPaused(ctx context.Context) (bool, error)
	AddResolver(ctx context.Context, caller, resolver common.Address) error
	RemoveResolver(ctx context.Context, caller, resolver common.Address) error
}

type registryInterface interface {
	Register(ctx context.Context, addr common.Address, stake *big.Int) (*resolver.ValidatorInfo, error)
	Get(ctx context.Context, addr common.Address) (*resolver.ValidatorInfo, error)
	Active(ctx context.Context) ([]*resolver.ValidatorInfo, error)
	SubmitBid(ctx context.Context, orderID string, addr common.Address, amount *big.Int) (*resolver.ExecutionBid, error)
	BestBid(ctx context.Context, orderID string) (*resolver.ExecutionBid, error)
}
