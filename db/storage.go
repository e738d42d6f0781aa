package db

import (
	"context"

	"github.com/0xPolygonHermez/zkevm-swap-service/db/pgstorage"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/vault"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
)

const (
	// Postgres keeps everything in a postgres database
	Postgres = "postgres"
	// Memory keeps everything in process
	Memory = "memory"
)

// Storage interface
type Storage interface {
	// vaults
	AddVault(ctx context.Context, v *vault.Vault, dbTx pgx.Tx) error
	UpdateVault(ctx context.Context, v *vault.Vault, dbTx pgx.Tx) error
	GetVault(ctx context.Context, chainID uint64, id common.Hash, dbTx pgx.Tx) (*vault.Vault, error)
	GetVaults(ctx context.Context, chainID uint64, state vault.State, limit, offset uint, dbTx pgx.Tx) ([]*vault.Vault, error)
	AddConsumedSecret(ctx context.Context, s *vault.ConsumedSecret, dbTx pgx.Tx) error
	GetConsumedSecret(ctx context.Context, chainID uint64, secretHash common.Hash, dbTx pgx.Tx) (*vault.ConsumedSecret, error)

	// orders
	AddOrder(ctx context.Context, o *swapctrl.Order, dbTx pgx.Tx) error
	UpdateOrder(ctx context.Context, o *swapctrl.Order, dbTx pgx.Tx) error
	GetOrder(ctx context.Context, id string, dbTx pgx.Tx) (*swapctrl.Order, error)
	GetOrders(ctx context.Context, status swapctrl.Status, limit, offset uint, dbTx pgx.Tx) ([]*swapctrl.Order, error)

	// resolvers
	AddResolver(ctx context.Context, v *resolver.ValidatorInfo, dbTx pgx.Tx) error
	UpdateResolver(ctx context.Context, v *resolver.ValidatorInfo, dbTx pgx.Tx) error
	GetResolver(ctx context.Context, addr common.Address, dbTx pgx.Tx) (*resolver.ValidatorInfo, error)
	GetResolvers(ctx context.Context, activeOnly bool, dbTx pgx.Tx) ([]*resolver.ValidatorInfo, error)
	AddBid(ctx context.Context, bid *resolver.ExecutionBid, dbTx pgx.Tx) error
	GetBids(ctx context.Context, orderID string, dbTx pgx.Tx) ([]*resolver.ExecutionBid, error)

	Rollback(ctx context.Context, dbTx pgx.Tx) error
	BeginDBTransaction(ctx context.Context) (pgx.Tx, error)
	Commit(ctx context.Context, dbTx pgx.Tx) error
}

type (
	vaultStore    = vault.MemoryStorage
	orderStore    = swapctrl.MemoryStorage
	resolverStore = resolver.MemoryStorage
)

// MemoryStorage serves Storage from process memory
type MemoryStorage struct {
	*vaultStore
	*orderStore
	*resolverStore
}

// NewMemoryStorage returns an empty in process storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{vault.NewMemoryStorage(), swapctrl.NewMemoryStorage(), resolver.NewMemoryStorage()}
}

// NewStorage creates a new Storage
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Database {
	case Postgres:
		pg, err := pgstorage.NewPostgresStorage(toPgConfig(cfg))
		if err != nil {
			return nil, err
		}
		return pg, nil
	case Memory:
		return NewMemoryStorage(), nil
	}
	return nil, gerror.ErrStorageNotRegister
}

// RunMigrations will execute pending migrations if needed to keep
// the database updated with the latest changes
func RunMigrations(cfg Config) error {
	if cfg.Database != Postgres {
		return nil
	}
	return pgstorage.RunMigrations(toPgConfig(cfg))
}

func toPgConfig(cfg Config) pgstorage.Config {
	return pgstorage.Config{
		Name:     cfg.Name,
		User:     cfg.User,
		Password: cfg.Password,
		Host:     cfg.Host,
		Port:     cfg.Port,
		MaxConns: cfg.MaxConns,
	}
}
