package finality

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader reads the committed height of a chain
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

type resolverWhitelist interface {
	IsWhitelisted(ctx context.Context, resolver common.Address) (bool, error)
}
