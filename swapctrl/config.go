package swapctrl

import (
	"github.com/0xPolygonHermez/zkevm-swap-service/auction"
	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
)

// Config for the order coordinator
type Config struct {
	// OrderDuration is the source timelock when the maker gives no expiration
	OrderDuration types.Duration `mapstructure:"OrderDuration"`
	// TimelockMargin is how much earlier the destination vault expires than the source one.
	// It must cover the longest finality wait.
	TimelockMargin types.Duration `mapstructure:"TimelockMargin"`
	// MerkleSegments is the number of fill slices of orders whose secrets are generated here
	MerkleSegments uint `mapstructure:"MerkleSegments"`
	// MonitorInterval is the default polling interval of auction monitors
	MonitorInterval types.Duration `mapstructure:"MonitorInterval"`
	// Auction is the curve used when an order does not bring its own
	Auction auction.Config `mapstructure:"Auction"`
}
