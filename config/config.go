package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/0xPolygonHermez/zkevm-swap-service/coinmiddleware"
	"github.com/0xPolygonHermez/zkevm-swap-service/db"
	"github.com/0xPolygonHermez/zkevm-swap-service/etherman"
	"github.com/0xPolygonHermez/zkevm-swap-service/finality"
	"github.com/0xPolygonHermez/zkevm-swap-service/log"
	"github.com/0xPolygonHermez/zkevm-swap-service/messagepush"
	"github.com/0xPolygonHermez/zkevm-swap-service/metrics"
	"github.com/0xPolygonHermez/zkevm-swap-service/redisstorage"
	"github.com/0xPolygonHermez/zkevm-swap-service/resolver"
	"github.com/0xPolygonHermez/zkevm-swap-service/safetydeposit"
	"github.com/0xPolygonHermez/zkevm-swap-service/security"
	"github.com/0xPolygonHermez/zkevm-swap-service/server"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const envPrefix = "ZKEVM_SWAP"

// Config struct
type Config struct {
	Log               log.Config
	Database          db.Config
	Redis             redisstorage.Config
	MessagePush       messagepush.Config
	CoinKafkaConsumer coinmiddleware.Config
	Metrics           metrics.Config
	Custody           CustodyConfig
	Finality          finality.Config
	Security          security.Config
	Resolver          resolver.Config
	SafetyDeposit     safetydeposit.Config
	Coordinator       swapctrl.Config
	SwapServer        server.Config
	NetworkConfig
}

// CustodyConfig is the account holding vault funds on every chain of a network preset
type CustodyConfig struct {
	Address          common.Address `mapstructure:"Address"`
	KeystoreDir      string         `mapstructure:"KeystoreDir"`
	KeystorePassword string         `mapstructure:"KeystorePassword"`
}

// Etherman returns the chain clients configuration
func (cfg *Config) Etherman() etherman.Config {
	return etherman.Config{Chains: cfg.NetworkConfig.Chains}
}

// Load loads the configuration
func Load(configFilePath string, network string) (*Config, error) {
	var cfg Config
	v := viper.New()
	v.SetConfigType("toml")

	err := v.ReadConfig(bytes.NewBuffer([]byte(DefaultValues)))
	if err != nil {
		return nil, err
	}
	err = v.Unmarshal(&cfg, decodeHooks())
	if err != nil {
		return nil, err
	}
	if configFilePath != "" {
		dirName, fileName := filepath.Split(configFilePath)

		fileExtension := strings.TrimPrefix(filepath.Ext(fileName), ".")
		fileNameWithoutExtension := strings.TrimSuffix(fileName, "."+fileExtension)

		v.AddConfigPath(dirName)
		v.SetConfigName(fileNameWithoutExtension)
		v.SetConfigType(fileExtension)
	}
	v.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.SetEnvPrefix(envPrefix)
	if configFilePath != "" {
		err = v.ReadInConfig()
		if err != nil {
			_, ok := err.(viper.ConfigFileNotFoundError)
			if ok {
				log.Infof("config file not found")
			} else {
				log.Infof("error reading config file: %v", err)
				return nil, err
			}
		}
	}

	err = v.Unmarshal(&cfg, decodeHooks())
	if err != nil {
		return nil, err
	}

	if v.IsSet("NetworkConfig") && network != "" {
		return nil, errors.New("Network details are provided in the config file (the [NetworkConfig] section) and as a flag (the --network or -n). Configure it only once and try again please.")
	}
	if !v.IsSet("NetworkConfig") && network == "" {
		return nil, errors.New("Network details are not provided. Please configure the [NetworkConfig] section in your config file, or provide a --network flag.")
	}
	if !v.IsSet("NetworkConfig") && network != "" {
		if err := cfg.loadNetworkConfig(network); err != nil {
			return nil, err
		}
	}
	if len(cfg.Finality.Chains) == 0 {
		cfg.Finality.Chains = cfg.NetworkConfig.Confirmations
	}

	return &cfg, nil
}

func decodeHooks() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// decimalHookFunc lets TOML numbers fill decimal fields. Strings go through UnmarshalText
func decimalHookFunc() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(decimal.Decimal{})
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		switch n := data.(type) {
		case float64:
			return decimal.NewFromFloat(n), nil
		case int64:
			return decimal.NewFromInt(n), nil
		case int:
			return decimal.NewFromInt(int64(n)), nil
		}
		return data, nil
	}
}
