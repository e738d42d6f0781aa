package finality

import (
	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
)

// Config for the finality lock
type Config struct {
	// Chains lists the confirmation depth required on each chain
	Chains []ChainConfirmations `mapstructure:"Chains"`
	// PollInterval is how often block heights are read while waiting
	PollInterval types.Duration `mapstructure:"PollInterval"`
	// SecretSharingDelay is the minimum age of an order before its secret is released
	SecretSharingDelay types.Duration `mapstructure:"SecretSharingDelay"`
}

// ChainConfirmations is the confirmation depth of one chain
type ChainConfirmations struct {
	ChainID       uint64 `mapstructure:"ChainID"`
	Confirmations uint64 `mapstructure:"Confirmations"`
	// BlockTime is the expected block interval, used to estimate the wait
	BlockTime types.Duration `mapstructure:"BlockTime"`
}
