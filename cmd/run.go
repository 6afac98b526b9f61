package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/0xPolygon/zkevm-ethtx-manager/ethtxmanager"
	bridgelock "github.com/bridgelock/listener"
	"github.com/bridgelock/listener/config"
	"github.com/bridgelock/listener/listener"
	"github.com/bridgelock/listener/log"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
)

func RunCmd(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}

	log.Init(c.Log)

	if c.Log.Environment == log.EnvironmentDevelopment {
		bridgelock.PrintVersion(os.Stdout)
		log.Info("Starting application")
	} else if c.Log.Environment == log.EnvironmentProduction {
		logVersion()
	}

	ctx, cancel := context.WithCancel(cliCtx.Context)
	defer cancel()

	sourceClient, err := ethclient.Dial(c.URLRPCSource)
	if err != nil {
		log.Fatalf("failed to create source chain client for %s: %v", c.URLRPCSource, err)
	}

	ethTxManager, err := ethtxmanager.New(c.MintSender.EthTxManager)
	if err != nil {
		log.Fatal(err)
	}
	go ethTxManager.Start()

	sender, err := listener.NewEVMMintSender(c.MintSender, ethTxManager)
	if err != nil {
		log.Fatal(err)
	}

	l, err := listener.New(ctx, c.Scanner, c.MintQueue, sourceClient, sender)
	if err != nil {
		log.Fatal(err)
	}
	go func() {
		if err := l.Start(ctx); err != nil {
			log.Fatal("listener stopped: ", err)
		}
	}()

	waitSignal([]context.CancelFunc{cancel})

	return nil
}

func logVersion() {
	log.Infof("Starting application, gitRevision: %s, gitBranch: %s, goVersion: %s, built: %s, os/arch: %s",
		bridgelock.GitRev,
		bridgelock.GitBranch,
		runtime.Version(),
		bridgelock.BuildDate,
		fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	)
}

func waitSignal(cancelFuncs []context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	for sig := range signals {
		switch sig {
		case os.Interrupt, os.Kill:
			log.Info("terminating application gracefully...")

			exitStatus := 0
			for _, cancel := range cancelFuncs {
				cancel()
			}
			os.Exit(exitStatus)
		}
	}
}
