package auction

import (
	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Config are the parameters of the rate curve of one order
type Config struct {
	// StartDelay is the time the rate stays pinned at the premium after the order is created
	StartDelay types.Duration `mapstructure:"StartDelay"`
	// Duration is the length of the decaying window that follows StartDelay
	Duration types.Duration `mapstructure:"Duration"`
	// StartMultiplier is applied to the market rate while the auction has not started
	StartMultiplier decimal.Decimal `mapstructure:"StartMultiplier"`
	// DecreaseRatePerMinute is the fraction of the market rate removed every minute
	DecreaseRatePerMinute decimal.Decimal `mapstructure:"DecreaseRatePerMinute"`
	// MinimumReturnRate is the floor, as a fraction of the market rate
	MinimumReturnRate decimal.Decimal `mapstructure:"MinimumReturnRate"`
}

// Validate checks the curve is well formed
func (c Config) Validate() error {
	if c.Duration.Duration <= 0 {
		return errors.Wrap(gerror.ErrInvalidConfig, "auction duration must be positive")
	}
	if c.StartDelay.Duration < 0 {
		return errors.Wrap(gerror.ErrInvalidConfig, "auction start delay must not be negative")
	}
	if !c.MinimumReturnRate.IsPositive() {
		return errors.Wrap(gerror.ErrInvalidConfig, "minimum return rate must be positive")
	}
	if c.StartMultiplier.LessThan(c.MinimumReturnRate) {
		return errors.Wrap(gerror.ErrInvalidConfig, "start multiplier below minimum return rate")
	}
	if c.DecreaseRatePerMinute.IsNegative() {
		return errors.Wrap(gerror.ErrInvalidConfig, "decrease rate must not be negative")
	}
	return nil
}
