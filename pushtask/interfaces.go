package pushtask

import (
	"context"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
)

type locker interface {
	MarkInFlight(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ClearInFlight(ctx context.Context, key string) error
}

// ChainReader reads the latest block of a chain
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type orderSweeper interface {
	ListOrders(ctx context.Context, status swapctrl.Status, limit, offset uint) ([]*swapctrl.Order, error)
	Refund(ctx context.Context, orderID string) (*swapctrl.Order, error)
}
