// Package listener wires the scanner, the checkpoint store, the mint queue
// and its workers into a single runnable unit.
package listener

import (
	"context"
	"fmt"

	"github.com/bridgelock/listener/checkpoint"
	"github.com/bridgelock/listener/log"
	"github.com/bridgelock/listener/mintqueue"
	"github.com/bridgelock/listener/mintsender"
	"github.com/bridgelock/listener/scanner"
	"golang.org/x/sync/errgroup"
)

type Listener struct {
	logger  *log.Logger
	scanner *scanner.Scanner
	queue   *mintqueue.Queue
	workers []*mintqueue.Worker
}

// New builds the full pipeline. The previous run's in-flight actions are
// recovered here, before any worker starts.
func New(
	ctx context.Context,
	scannerCfg scanner.Config,
	queueCfg mintqueue.Config,
	sourceClient scanner.EthClienter,
	sender mintqueue.TxSender,
) (*Listener, error) {
	logger := log.WithFields("module", "listener")

	checkpoints, err := checkpoint.NewStore(logger, scannerCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error creating checkpoint store: %w", err)
	}

	queue, err := mintqueue.NewQueue(logger, queueCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error creating mint queue: %w", err)
	}
	if err := queue.RecoverInFlight(ctx); err != nil {
		return nil, fmt.Errorf("error recovering in-flight actions: %w", err)
	}

	workerCount := queueCfg.Workers
	if workerCount <= 0 {
		workerCount = 1
	}
	workers := make([]*mintqueue.Worker, 0, workerCount)
	for i := 0; i < workerCount; i++ {
		workerLogger := log.WithFields("module", "mintworker", "worker", i)
		workers = append(workers, mintqueue.NewWorker(workerLogger, queue, sender, queueCfg, nil))
	}

	return &Listener{
		logger:  logger,
		scanner: scanner.NewScanner(scannerCfg, sourceClient, checkpoints, queue),
		queue:   queue,
		workers: workers,
	}, nil
}

// Queue exposes the mint queue for status inspection.
func (l *Listener) Queue() *mintqueue.Queue {
	return l.queue
}

// Start runs the scanner and the mint workers until ctx is cancelled or the
// scanner halts on a checkpoint failure.
func (l *Listener) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.scanner.Start(ctx)
	})
	for _, w := range l.workers {
		w := w
		g.Go(func() error {
			w.Start(ctx)
			return nil
		})
	}
	return g.Wait()
}

// NewEVMMintSender is a convenience constructor for the usual destination
// chain setup.
func NewEVMMintSender(cfg mintsender.EVMConfig, ethTxMan mintsender.EthTxManager) (*mintsender.EVMMintSender, error) {
	return mintsender.NewEVMMintSender(
		log.WithFields("module", "mintsender"),
		cfg.BridgeAddr,
		ethTxMan,
		cfg.GasOffset,
		cfg.WaitPeriodMonitorTx.Duration,
	)
}
