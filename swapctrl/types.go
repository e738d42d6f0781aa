package swapctrl

import (
	"math/big"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/auction"
	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/safetydeposit"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Status of an order
type Status string

const (
	// StatusPending is an order whose auction has not started
	StatusPending Status = "pending"
	// StatusAuction is an order in its decaying window
	StatusAuction Status = "auction"
	// StatusFilled is an order a resolver took
	StatusFilled Status = "filled"
	// StatusExpired is an order that can no longer be filled
	StatusExpired Status = "expired"
)

// Outcome of an order
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeRefunded  Outcome = "refunded"
)

// Order is a cross chain trade
type Order struct {
	ID                string
	Maker             common.Address
	SourceChain       uint64
	DestinationChain  uint64
	SourceAmount      *big.Int
	DestinationAmount *big.Int
	Auction           auction.Config
	MarketRate        decimal.Decimal
	Commitment        common.Hash
	MerkleRoot        common.Hash
	SafetyDeposit     *safetydeposit.Deposit
	Status            Status
	Outcome           Outcome
	CreatedAt         time.Time
	Expiration        time.Time
	DestinationRef    string

	SourceVaultID      common.Hash
	SourceBlock        uint64
	DestinationVaultID common.Hash
	DestinationBlock   uint64
	Resolver           common.Address
	FillRate           decimal.Decimal
	FilledAt           *time.Time
	FulfilledAt        *time.Time
	// FinishedAt is set once the resolver claimed the source vault, before its deposit is returned
	FinishedAt         *time.Time
	SettledAt          *time.Time
}

// IsOpen reports whether the order can still be filled
func (o *Order) IsOpen() bool {
	return o.Status == StatusPending || o.Status == StatusAuction
}

// DestinationExpiration is the expiration of the destination vault
func (o *Order) DestinationExpiration(margin time.Duration) time.Time {
	return o.Expiration.Add(-margin)
}

// Copy returns a deep copy
func (o *Order) Copy() *Order {
	c := *o
	c.SourceAmount = new(big.Int).Set(o.SourceAmount)
	c.DestinationAmount = new(big.Int).Set(o.DestinationAmount)
	if o.SafetyDeposit != nil {
		d := *o.SafetyDeposit
		d.Amount = new(big.Int).Set(o.SafetyDeposit.Amount)
		c.SafetyDeposit = &d
	}
	c.FilledAt = copyTime(o.FilledAt)
	c.FulfilledAt = copyTime(o.FulfilledAt)
	c.FinishedAt = copyTime(o.FinishedAt)
	c.SettledAt = copyTime(o.SettledAt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// CreateTradeRequest are the maker's parameters of a new order
type CreateTradeRequest struct {
	Maker             common.Address
	SourceChain       uint64
	DestinationChain  uint64
	SourceAmount      *big.Int
	DestinationAmount *big.Int
	MarketRate        decimal.Decimal
	// Auction overrides the default curve when set
	Auction *auction.Config
	// Commitment of a secret kept by the maker. When empty secrets are generated here
	Commitment common.Hash
	// Expiration of the source vault. Zero means now+OrderDuration
	Expiration     time.Time
	DestinationRef string
}

// ReleasedSecret is an order secret shared with its resolver, with the proof
// that it is the full-fill leaf under the order's merkle root
type ReleasedSecret struct {
	finality.ReleasedSecret
	Index      uint64
	Proof      []common.Hash
	MerkleRoot common.Hash
}

// FillRequest is a resolver taking an order
type FillRequest struct {
	OrderID  string
	Resolver common.Address
	// Cost is the lowest rate the resolver can execute at
	Cost decimal.Decimal
}
