package mintqueue

import (
	"math/big"

	"github.com/bridgelock/listener/lockevent"
	"github.com/ethereum/go-ethereum/common"
)

// Status of a pending mint action.
//
// Transitions: queued -> submitting -> awaiting_confirmation -> confirmed.
// Retryable failures move the action back to queued until the attempt budget
// is spent, then it lands on failed. confirmed and failed are terminal.
type Status string

const (
	StatusQueued               = Status("queued")
	StatusSubmitting           = Status("submitting")
	StatusAwaitingConfirmation = Status("awaiting_confirmation")
	StatusConfirmed            = Status("confirmed")
	StatusFailed               = Status("failed")
)

// IsTerminal reports whether no further transitions leave this status.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// PendingAction is a lock event admitted to the mint pipeline, together with
// its delivery state. Owned exclusively by the queue and its workers.
type PendingAction struct {
	Nonce              uint64         `meddler:"nonce"`
	DestinationChainID uint64         `meddler:"destination_chain_id"`
	Recipient          common.Address `meddler:"recipient,address"`
	Token              common.Address `meddler:"token,address"`
	Amount             *big.Int       `meddler:"amount,bigint"`
	BlockNumber        uint64         `meddler:"block_num"`
	SourceTxHash       common.Hash    `meddler:"source_tx_hash,hash"`

	Status    Status `meddler:"status"`
	Attempts  int    `meddler:"attempts"`
	LastError string `meddler:"last_error"`
	// MintTxID is the id of the monitored destination chain tx, once one
	// has been created. Kept across restarts so a resumed action does not
	// broadcast a second mint for the same nonce.
	MintTxID common.Hash `meddler:"mint_tx_id,hash"`
	// NextAttemptAfter is a unix timestamp gating retries (backoff).
	NextAttemptAfter int64 `meddler:"next_attempt_after"`
}

func newPendingAction(event lockevent.LockEvent) *PendingAction {
	return &PendingAction{
		Nonce:              event.Nonce,
		DestinationChainID: event.DestinationChainID,
		Recipient:          event.Recipient,
		Token:              event.Token,
		Amount:             event.Amount,
		BlockNumber:        event.BlockNumber,
		SourceTxHash:       event.TxHash,
		Status:             StatusQueued,
	}
}
