package mintqueue

import (
	"context"
	"errors"
	"time"

	"github.com/bridgelock/listener/db"
	"github.com/bridgelock/listener/log"
	"github.com/ethereum/go-ethereum/common"
)

// TxSender submits mint transactions on the destination chain and waits for
// them to settle.
type TxSender interface {
	// SubmitMint broadcasts the mint for the given action and returns the
	// id of the monitored tx
	SubmitMint(ctx context.Context, action *PendingAction) (common.Hash, error)
	// WaitMined blocks until the monitored tx is mined, fails, or ctx is
	// cancelled
	WaitMined(ctx context.Context, id common.Hash) error
}

// Worker drains the queue and drives every claimed action through the status
// state machine. Several workers may run against the same queue: nonces are
// independent, so no cross-action ordering is needed.
type Worker struct {
	logger           *log.Logger
	queue            *Queue
	sender           TxSender
	maxAttempts      int
	retryBackoff     time.Duration
	waitOnEmptyQueue time.Duration
	// onTerminal, when set, observes every action reaching confirmed or
	// failed. Used for logging/metrics, never for control flow.
	onTerminal func(PendingAction)
}

func NewWorker(
	logger *log.Logger,
	queue *Queue,
	sender TxSender,
	cfg Config,
	onTerminal func(PendingAction),
) *Worker {
	return &Worker{
		logger:           logger,
		queue:            queue,
		sender:           sender,
		maxAttempts:      cfg.MaxAttempts,
		retryBackoff:     cfg.RetryBackoff.Duration,
		waitOnEmptyQueue: cfg.WaitOnEmptyQueue.Duration,
		onTerminal:       onTerminal,
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("mint worker shutting down")
			return
		default:
		}

		action, err := w.queue.claimNext(ctx)
		if errors.Is(err, db.ErrNotFound) {
			w.sleep(ctx, w.waitOnEmptyQueue)
			continue
		}
		if err != nil {
			w.logger.Errorf("error claiming next action: %v", err)
			w.sleep(ctx, w.waitOnEmptyQueue)
			continue
		}
		w.process(ctx, action)
	}
}

func (w *Worker) process(ctx context.Context, action *PendingAction) {
	if action.MintTxID == (common.Hash{}) {
		id, err := w.sender.SubmitMint(ctx, action)
		if err != nil {
			if ctx.Err() != nil {
				// shutting down before anything was broadcast, the
				// action is still queued on the next run
				return
			}
			w.logger.Errorf("error submitting mint for nonce %d: %v", action.Nonce, err)
			w.handleRetryable(ctx, action, err)
			return
		}
		action.MintTxID = id
	}
	if err := w.queue.markAwaitingConfirmation(action); err != nil {
		w.logger.Errorf("error updating action for nonce %d: %v", action.Nonce, err)
		return
	}
	w.logger.Infof("mint for nonce %d submitted, tx id %s", action.Nonce, action.MintTxID)

	if err := w.sender.WaitMined(ctx, action.MintTxID); err != nil {
		if ctx.Err() != nil {
			// shutdown while awaiting confirmation: the action is
			// recovered (with its tx id) on the next run
			return
		}
		w.logger.Errorf("error waiting for mint of nonce %d: %v", action.Nonce, err)
		// the monitored tx failed for good, a retry needs a fresh one
		action.MintTxID = common.Hash{}
		w.handleRetryable(ctx, action, err)
		return
	}

	if err := w.queue.markConfirmed(action); err != nil {
		w.logger.Errorf("error updating action for nonce %d: %v", action.Nonce, err)
		return
	}
	w.logger.Infof("mint CONFIRMED for nonce %d, tx id %s", action.Nonce, action.MintTxID)
	w.emitTerminal(action)
}

func (w *Worker) handleRetryable(ctx context.Context, action *PendingAction, cause error) {
	action.Attempts++
	if action.Attempts >= w.maxAttempts {
		if err := w.queue.markFailed(action, cause); err != nil {
			w.logger.Errorf("error marking action for nonce %d as failed: %v", action.Nonce, err)
			return
		}
		w.logger.Errorf(
			"mint for nonce %d FAILED after %d attempts, manual remediation required: %v",
			action.Nonce, action.Attempts, cause,
		)
		w.emitTerminal(action)
		return
	}

	backoff := w.retryBackoff << (action.Attempts - 1)
	if err := w.queue.requeue(action, cause, time.Now().Add(backoff)); err != nil {
		w.logger.Errorf("error requeueing action for nonce %d: %v", action.Nonce, err)
		return
	}
	w.logger.Warnf("mint for nonce %d requeued, attempt %d/%d, next try in %s",
		action.Nonce, action.Attempts, w.maxAttempts, backoff)
}

func (w *Worker) emitTerminal(action *PendingAction) {
	if w.onTerminal != nil {
		w.onTerminal(*action)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
