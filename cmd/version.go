package cmd

import (
	"os"

	bridgelock "github.com/bridgelock/listener"
	"github.com/urfave/cli/v2"
)

func VersionCmd(*cli.Context) error {
	bridgelock.PrintVersion(os.Stdout)
	return nil
}
