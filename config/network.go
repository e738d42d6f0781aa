package config

import (
	"fmt"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
	"github.com/0xPolygonHermez/zkevm-swap-service/etherman"
	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/ethereum/go-ethereum/common"
)

//NetworkConfig is the configuration struct for the different environments
type NetworkConfig struct {
	Chains        []etherman.ChainConfig         `mapstructure:"Chains"`
	Confirmations []finality.ChainConfirmations `mapstructure:"Confirmations"`
}

const (
	mainnet = "mainnet"
	testnet = "testnet"
	local   = "local"
)

//nolint:gomnd
var (
	mainnetConfig = NetworkConfig{
		Chains: []etherman.ChainConfig{
			{ChainID: 1, URL: "https://ethereum-rpc.publicnode.com", GasLimit: 21000},
			{ChainID: 1101, URL: "https://zkevm-rpc.com", GasLimit: 21000},
		},
		Confirmations: []finality.ChainConfirmations{
			{ChainID: 1, Confirmations: 64, BlockTime: types.NewDuration(12 * time.Second)},
			{ChainID: 1101, Confirmations: 1, BlockTime: types.NewDuration(3 * time.Second)},
		},
	}
	testnetConfig = NetworkConfig{
		Chains: []etherman.ChainConfig{
			{ChainID: 11155111, URL: "https://ethereum-sepolia-rpc.publicnode.com", GasLimit: 21000},
			{ChainID: 2442, URL: "https://rpc.cardona.zkevm-rpc.com", GasLimit: 21000},
		},
		Confirmations: []finality.ChainConfirmations{
			{ChainID: 11155111, Confirmations: 12, BlockTime: types.NewDuration(12 * time.Second)},
			{ChainID: 2442, Confirmations: 1, BlockTime: types.NewDuration(3 * time.Second)},
		},
	}
	localConfig = NetworkConfig{
		Chains: []etherman.ChainConfig{
			{
				ChainID:   1337,
				Simulated: true,
				SimulatedFunds: []etherman.Funding{
					{Address: common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), Amount: "1000000000000000000000"},
				},
			},
			{
				ChainID:   1001,
				Simulated: true,
				SimulatedFunds: []etherman.Funding{
					{Address: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), Amount: "1000000000000000000000"},
				},
			},
		},
		Confirmations: []finality.ChainConfirmations{
			{ChainID: 1337, Confirmations: 1, BlockTime: types.NewDuration(time.Second)},
			{ChainID: 1001, Confirmations: 1, BlockTime: types.NewDuration(time.Second)},
		},
	}
)

func (cfg *Config) loadNetworkConfig(network string) error {
	var preset NetworkConfig
	switch network {
	case mainnet:
		log.Debug("Mainnet network selected")
		preset = mainnetConfig
	case testnet:
		log.Debug("Testnet network selected")
		preset = testnetConfig
	case local:
		log.Debug("Local network selected")
		preset = localConfig
	default:
		return fmt.Errorf("unknown network %q", network)
	}
	chains := make([]etherman.ChainConfig, len(preset.Chains))
	copy(chains, preset.Chains)
	for i := range chains {
		chains[i].Custody = cfg.Custody.Address
		chains[i].KeystoreDir = cfg.Custody.KeystoreDir
		chains[i].KeystorePassword = cfg.Custody.KeystorePassword
	}
	cfg.NetworkConfig = NetworkConfig{Chains: chains, Confirmations: preset.Confirmations}
	return nil
}
