package main

import (
	"os"

	zkevmswapservice "github.com/0xPolygonHermez/zkevm-swap-service"
	"github.com/urfave/cli/v2"
)

func versionCmd(*cli.Context) error {
	zkevmswapservice.PrintVersion(os.Stdout)
	return nil
}
