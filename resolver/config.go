package resolver

import (
	"github.com/shopspring/decimal"
)

// Config for the resolver registry
type Config struct {
	// MinimumStake a resolver must lock to register
	MinimumStake decimal.Decimal `mapstructure:"MinimumStake"`
	// InitialReputation of a new resolver
	InitialReputation int64 `mapstructure:"InitialReputation"`
	// ReputationReward is added for each completed order
	ReputationReward int64 `mapstructure:"ReputationReward"`
	// ReputationPenalty is subtracted for each failed order
	ReputationPenalty int64 `mapstructure:"ReputationPenalty"`
}
