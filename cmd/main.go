package main

import (
	"fmt"
	"os"

	zkevmswapservice "github.com/0xPolygonHermez/zkevm-swap-service"
	"github.com/urfave/cli/v2"
)

const (
	flagCfg     = "cfg"
	flagNetwork = "network"
)

const (
	// App name
	appName = "zkevm-swap"
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Version = zkevmswapservice.Version
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     flagCfg,
			Aliases:  []string{"c"},
			Usage:    "Configuration `FILE`",
			Required: false,
		},
		&cli.StringFlag{
			Name:     flagNetwork,
			Aliases:  []string{"n"},
			Usage:    "Network: mainnet, testnet, local. Leave empty when the config file has a [NetworkConfig] section",
			Required: false,
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Application version and build",
			Action:  versionCmd,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the swap API and background tasks",
			Action:  runAll,
			Flags:   flags,
		},
		{
			Name:    "api",
			Aliases: []string{},
			Usage:   "Run the swap API only",
			Action:  runAPI,
			Flags:   flags,
		},
		{
			Name:    "task",
			Aliases: []string{},
			Usage:   "Run the background tasks only",
			Action:  runTask,
			Flags:   flags,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}
}
