package security

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Store keeps the guard's shared state. Reads may run concurrently, writes are serialized.
type Store interface {
	// MarkInFlight marks key for ttl. It returns false when key is already marked
	MarkInFlight(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ClearInFlight(ctx context.Context, key string) error
	SetPaused(ctx context.Context, paused bool) error
	IsPaused(ctx context.Context) (bool, error)
	AddResolver(ctx context.Context, resolver common.Address) error
	RemoveResolver(ctx context.Context, resolver common.Address) error
	Resolvers(ctx context.Context) ([]common.Address, error)
}
