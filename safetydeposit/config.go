package safetydeposit

import (
	"github.com/shopspring/decimal"
)

// Config for the safety deposit calculation
type Config struct {
	// Rate is the fraction of the escrowed amount a resolver must post as collateral
	Rate decimal.Decimal `mapstructure:"Rate"`
	// Minimums are per chain floors for the deposit
	Minimums []ChainMinimum `mapstructure:"Minimums"`
}

// ChainMinimum is the deposit floor on one chain
type ChainMinimum struct {
	ChainID uint64          `mapstructure:"ChainID"`
	Amount  decimal.Decimal `mapstructure:"Amount"`
}
