package etherman

import "github.com/ethereum/go-ethereum/common"

// Config represents the configuration of the etherman
type Config struct {
	Chains []ChainConfig `mapstructure:"Chains"`
}

// ChainConfig describes one network the service trades on
type ChainConfig struct {
	ChainID uint64 `mapstructure:"ChainID"`
	URL     string `mapstructure:"URL"`
	// Custody is the account holding vault funds and safety deposits
	Custody common.Address `mapstructure:"Custody"`
	// KeystoreDir holds the keys of custody and of every account the service signs for
	KeystoreDir      string `mapstructure:"KeystoreDir"`
	KeystorePassword string `mapstructure:"KeystorePassword"`
	GasLimit         uint64 `mapstructure:"GasLimit"`
	// Simulated replaces the node with an in-process chain
	Simulated bool `mapstructure:"Simulated"`
	// SimulatedFunds are the initial balances of the simulated chain
	SimulatedFunds []Funding `mapstructure:"SimulatedFunds"`
}

// Funding is an initial balance of the simulated chain
type Funding struct {
	Address common.Address `mapstructure:"Address"`
	Amount  string         `mapstructure:"Amount"`
}
