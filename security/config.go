package security

import (
	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
	"github.com/ethereum/go-ethereum/common"
)

// Config for the security guard
type Config struct {
	// Admins may manage the resolver whitelist and toggle the pause flag
	Admins []common.Address `mapstructure:"Admins"`
	// PauseGuardian may toggle the pause flag without being an admin
	PauseGuardian common.Address `mapstructure:"PauseGuardian"`
	// Resolvers is the initial resolver whitelist. Empty means any resolver is accepted
	Resolvers []common.Address `mapstructure:"Resolvers"`
	// ReentrancyTimeout is how long a transaction stays marked in flight
	ReentrancyTimeout types.Duration `mapstructure:"ReentrancyTimeout"`
}
