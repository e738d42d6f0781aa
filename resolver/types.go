package resolver

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ValidatorInfo is the registration of a resolver
type ValidatorInfo struct {
	Address        common.Address
	StakedAmount   *big.Int
	Reputation     int64
	IsActive       bool
	ExecutedOrders uint64
	FailedOrders   uint64
	RegisteredAt   time.Time
}

// ExecutionBid is an offer of a resolver to execute an order
type ExecutionBid struct {
	OrderID   string
	Resolver  common.Address
	BidAmount *big.Int
	Timestamp time.Time
}

func (v *ValidatorInfo) copy() *ValidatorInfo {
	c := *v
	c.StakedAmount = new(big.Int).Set(v.StakedAmount)
	return &c
}
