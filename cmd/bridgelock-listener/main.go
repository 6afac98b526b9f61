package main

import (
	"log"
	"os"

	bridgelock "github.com/bridgelock/listener"
	"github.com/bridgelock/listener/cmd"
	"github.com/bridgelock/listener/config"
	"github.com/urfave/cli/v2"
)

const appName = "bridgelock-listener"

var (
	configFileFlag = cli.StringFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration `FILE`",
		Required: false,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Version = bridgelock.Version

	app.Commands = []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Application version and build",
			Action:  cmd.VersionCmd,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the lock event listener",
			Action:  cmd.RunCmd,
			Flags:   []cli.Flag{&configFileFlag},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
