package resolver

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v4"
)

type storageInterface interface {
	AddResolver(ctx context.Context, v *ValidatorInfo, dbTx pgx.Tx) error
	UpdateResolver(ctx context.Context, v *ValidatorInfo, dbTx pgx.Tx) error
	GetResolver(ctx context.Context, addr common.Address, dbTx pgx.Tx) (*ValidatorInfo, error)
	GetResolvers(ctx context.Context, activeOnly bool, dbTx pgx.Tx) ([]*ValidatorInfo, error)
	AddBid(ctx context.Context, bid *ExecutionBid, dbTx pgx.Tx) error
	GetBids(ctx context.Context, orderID string, dbTx pgx.Tx) ([]*ExecutionBid, error)
}
