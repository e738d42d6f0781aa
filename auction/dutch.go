// Package auction prices orders with a deterministic Dutch auction: any
// resolver can compute the exact rate at any instant without an auctioneer.
package auction

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Status of the auction window
type Status string

const (
	// StatusWaiting is the premium period before the decay starts
	StatusWaiting Status = "waiting"
	// StatusActive is the decaying window
	StatusActive Status = "active"
	// StatusExpired means the decaying window is over
	StatusExpired Status = "expired"
)

var minute = decimal.NewFromInt(60) //nolint:gomnd

// Pricer computes rates for a Config
type Pricer struct {
	cfg Config
}

// NewPricer validates cfg and returns a Pricer
func NewPricer(cfg Config) (*Pricer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pricer{cfg: cfg}, nil
}

// Config returns the curve parameters
func (p *Pricer) Config() Config {
	return p.cfg
}

// CurrentRate returns the rate at now for an order created at orderTime.
// The rate is pinned at marketRate*StartMultiplier until StartDelay, then
// decreases linearly by DecreaseRatePerMinute*marketRate per minute and never
// goes below marketRate*MinimumReturnRate.
func (p *Pricer) CurrentRate(orderTime time.Time, marketRate decimal.Decimal, now time.Time) decimal.Decimal {
	start := orderTime.Add(p.cfg.StartDelay.Duration)
	multiplier := p.cfg.StartMultiplier
	if now.After(start) {
		minutes := decimal.NewFromInt(int64(now.Sub(start) / time.Second)).Div(minute)
		multiplier = multiplier.Sub(p.cfg.DecreaseRatePerMinute.Mul(minutes))
	}
	if multiplier.LessThan(p.cfg.MinimumReturnRate) {
		multiplier = p.cfg.MinimumReturnRate
	}
	return marketRate.Mul(multiplier)
}

// FloorRate is the lowest rate the curve can reach
func (p *Pricer) FloorRate(marketRate decimal.Decimal) decimal.Decimal {
	return marketRate.Mul(p.cfg.MinimumReturnRate)
}

// IsProfitable reports whether executing at currentRate covers resolverCost
func IsProfitable(currentRate, resolverCost decimal.Decimal) bool {
	return currentRate.GreaterThanOrEqual(resolverCost)
}

// Status returns where now falls in the auction windows of an order created at orderTime
func (p *Pricer) Status(orderTime, now time.Time) Status {
	start := orderTime.Add(p.cfg.StartDelay.Duration)
	if now.Before(start) {
		return StatusWaiting
	}
	if now.Before(start.Add(p.cfg.Duration.Duration)) {
		return StatusActive
	}
	return StatusExpired
}

// EndTime returns when the decaying window of an order created at orderTime closes
func (p *Pricer) EndTime(orderTime time.Time) time.Time {
	return orderTime.Add(p.cfg.StartDelay.Duration).Add(p.cfg.Duration.Duration)
}

// DestinationAmount converts sourceAmount at rate, rounding down
func DestinationAmount(rate decimal.Decimal, sourceAmount *big.Int) *big.Int {
	return decimal.NewFromBigInt(sourceAmount, 0).Mul(rate).Floor().BigInt()
}
