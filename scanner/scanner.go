// Package scanner walks the source chain in confirmation depth, decodes lock
// events from the bridge contract and hands them to the mint queue. Progress
// is checkpointed so a restart resumes where the previous run left off.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/bridgelock/listener/db"
	"github.com/bridgelock/listener/lockevent"
	"github.com/bridgelock/listener/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type EthClienter interface {
	ethereum.LogFilterer
	ethereum.BlockNumberReader
}

// CheckpointStorer persists the highest fully processed block number.
type CheckpointStorer interface {
	Load(ctx context.Context) (uint64, error)
	Save(ctx context.Context, blockNum uint64) error
}

// ActionQueue admits decoded lock events to the mint pipeline.
type ActionQueue interface {
	Enqueue(ctx context.Context, event lockevent.LockEvent) error
}

type Scanner struct {
	logger             *log.Logger
	client             EthClienter
	checkpoints        CheckpointStorer
	queue              ActionQueue
	decoder            *lockevent.Decoder
	contractAddr       common.Address
	initialBlock       uint64
	confirmationBlocks uint64
	pollInterval       time.Duration
	syncBlockChunkSize uint64
	rh                 *RetryHandler
}

func NewScanner(
	cfg Config,
	client EthClienter,
	checkpoints CheckpointStorer,
	queue ActionQueue,
) *Scanner {
	return &Scanner{
		logger:             log.WithFields("module", "scanner"),
		client:             client,
		checkpoints:        checkpoints,
		queue:              queue,
		decoder:            lockevent.NewDecoder(cfg.ContractAddress, cfg.SourceChainID),
		contractAddr:       cfg.ContractAddress,
		initialBlock:       cfg.InitialBlock,
		confirmationBlocks: cfg.ConfirmationBlocks,
		pollInterval:       cfg.PollInterval.Duration,
		syncBlockChunkSize: cfg.SyncBlockChunkSize,
		rh: &RetryHandler{
			RetryAfterErrorPeriod:      cfg.RetryAfterErrorPeriod.Duration,
			MaxRetryAttemptsAfterError: cfg.MaxRetryAttemptsAfterError,
		},
	}
}

// Start runs the scan loop until ctx is cancelled. It returns an error only
// when the checkpoint cannot be persisted: at that point continuing would
// risk re-processing ranges without any record of progress, so the scanner
// halts and lets the caller decide.
func (s *Scanner) Start(ctx context.Context) error {
	nextBlock, err := s.resumeBlock(ctx)
	if err != nil {
		return err
	}
	s.logger.Infof("starting scan at block %d", nextBlock)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner shutting down")
			return nil
		default:
		}

		safeHead, canceled := s.waitForSafeHead(ctx, nextBlock)
		if canceled {
			continue
		}

		for fromBlock := nextBlock; fromBlock <= safeHead; {
			toBlock := fromBlock + s.syncBlockChunkSize - 1
			if toBlock > safeHead {
				toBlock = safeHead
			}

			logs, canceled := s.getLogs(ctx, fromBlock, toBlock)
			if canceled {
				break
			}
			if err := s.handOff(ctx, logs, fromBlock, toBlock); err != nil {
				return err
			}
			fromBlock = toBlock + 1
			nextBlock = fromBlock
		}
	}
}

func (s *Scanner) resumeBlock(ctx context.Context) (uint64, error) {
	lastProcessed, err := s.checkpoints.Load(ctx)
	if errors.Is(err, db.ErrNotFound) {
		return s.initialBlock, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error loading checkpoint: %w", err)
	}
	return lastProcessed + 1, nil
}

// waitForSafeHead blocks until the settled portion of the chain reaches
// nextBlock, then returns the highest settled block.
func (s *Scanner) waitForSafeHead(ctx context.Context, nextBlock uint64) (uint64, bool) {
	attempts := 0
	for {
		lastBlock, err := s.client.BlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, true
			}
			attempts++
			s.logger.Error("error getting last block num from eth client: ", err)
			s.rh.Handle("waitForSafeHead", attempts)
			continue
		}
		attempts = 0

		if lastBlock >= s.confirmationBlocks {
			safeHead := lastBlock - s.confirmationBlocks
			if safeHead >= nextBlock {
				return safeHead, false
			}
		}
		s.logger.Debugf("waiting for new settled blocks, next block to process: %d, last block seen: %d",
			nextBlock, lastBlock)
		if canceled := s.sleep(ctx, s.pollInterval); canceled {
			return 0, true
		}
	}
}

func (s *Scanner) getLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, bool) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{s.contractAddr},
		Topics:    [][]common.Hash{{lockevent.Signature}},
	}
	attempts := 0
	for {
		logs, err := s.client.FilterLogs(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil, true
			}
			attempts++
			s.logger.Errorf("error calling FilterLogs to eth client: from %d to %d err: %v",
				fromBlock, toBlock, err)
			s.rh.Handle("getLogs", attempts)
			continue
		}
		return logs, false
	}
}

// handOff decodes the logs of a fully fetched block range, admits the
// resulting events to the queue and, only once every event has been handed
// off, persists toBlock as the new checkpoint.
func (s *Scanner) handOff(ctx context.Context, logs []types.Log, fromBlock, toBlock uint64) error {
	decoded := 0
	for _, l := range logs {
		event, err := s.decoder.Decode(l)
		if err != nil {
			// a single bad log must not stall the pipeline
			s.logger.Warnf("skipping log %d of tx %s at block %d: %v",
				l.Index, l.TxHash, l.BlockNumber, err)
			continue
		}
		if err := s.queue.Enqueue(ctx, event); err != nil {
			return fmt.Errorf("error enqueueing event with nonce %d: %w", event.Nonce, err)
		}
		decoded++
	}

	if err := s.checkpoints.Save(ctx, toBlock); err != nil {
		return fmt.Errorf("error persisting checkpoint at block %d: %w", toBlock, err)
	}
	s.logger.Infof("scanned blocks [%d, %d]: %d events queued, %d logs skipped",
		fromBlock, toBlock, decoded, len(logs)-decoded)
	return nil
}

func (s *Scanner) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
