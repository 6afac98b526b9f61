// Package mintqueue buffers decoded lock events as pending mint actions and
// drives each one to a terminal state on the destination chain.
//
// Actions are persisted in SQLite keyed by nonce, so duplicate suppression
// survives restarts: a lock event that is re-delivered after a crash (the
// scanner re-scans any range whose checkpoint was not persisted) hits the
// primary key and is dropped.
package mintqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bridgelock/listener/db"
	"github.com/bridgelock/listener/lockevent"
	"github.com/bridgelock/listener/log"
	"github.com/bridgelock/listener/mintqueue/migrations"
	"github.com/russross/meddler"
)

var (
	// ErrAlreadyAdded is returned by the storage layer when an action with
	// the same nonce exists. Enqueue swallows it: duplicates are a no-op.
	ErrAlreadyAdded = errors.New("action already added")
)

// Queue is the admission and storage side of the mint pipeline. Enqueue is
// safe to call concurrently with worker draining.
type Queue struct {
	logger *log.Logger
	db     *sql.DB

	mu   sync.Mutex
	seen map[uint64]struct{}
}

func NewQueue(logger *log.Logger, dbPath string) (*Queue, error) {
	if err := migrations.RunMigrations(dbPath); err != nil {
		return nil, err
	}
	database, err := db.NewSQLiteDB(dbPath)
	if err != nil {
		return nil, err
	}
	q := &Queue{
		logger: logger,
		db:     database,
		seen:   make(map[uint64]struct{}),
	}
	if err := q.loadSeenNonces(); err != nil {
		return nil, err
	}
	return q, nil
}

// loadSeenNonces rebuilds the in-memory dedup index from the persisted
// actions. The table is the source of truth, the map is a fast path.
func (q *Queue) loadSeenNonces() error {
	rows, err := q.db.Query(`SELECT nonce FROM pending_action;`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var nonce uint64
		if err := rows.Scan(&nonce); err != nil {
			return err
		}
		q.seen[nonce] = struct{}{}
	}
	return rows.Err()
}

// Enqueue admits a lock event to the pipeline. Events whose nonce has been
// admitted before (in this run or any previous one) are silently dropped.
func (q *Queue) Enqueue(ctx context.Context, event lockevent.LockEvent) error {
	q.mu.Lock()
	_, dup := q.seen[event.Nonce]
	q.mu.Unlock()
	if dup {
		q.logger.Warnf("duplicate nonce detected: %d. Skipping mint", event.Nonce)
		return nil
	}

	err := q.insertAction(newPendingAction(event))
	if errors.Is(err, ErrAlreadyAdded) {
		q.logger.Warnf("duplicate nonce detected: %d. Skipping mint", event.Nonce)
		return nil
	}
	if err != nil {
		return err
	}

	q.mu.Lock()
	q.seen[event.Nonce] = struct{}{}
	q.mu.Unlock()

	q.logger.Infof(
		"queued mint for nonce %d: recipient %s amount %s on chain %d",
		event.Nonce, event.Recipient, event.Amount.String(), event.DestinationChainID,
	)
	return nil
}

func (q *Queue) insertAction(action *PendingAction) error {
	err := meddler.Insert(q.db, "pending_action", action)
	if err != nil && db.IsUniqueConstraintViolation(err) {
		return ErrAlreadyAdded
	}
	return err
}

// RecoverInFlight returns any non-terminal action to the queued state. Called
// once at startup: actions interrupted mid-flight on the previous run keep
// their monitored tx id, so resuming them cannot double-submit.
func (q *Queue) RecoverInFlight(ctx context.Context) error {
	res, err := q.db.Exec(`
		UPDATE pending_action SET status = $1
		WHERE status IN ($2, $3);
	`, StatusQueued, StatusSubmitting, StatusAwaitingConfirmation)
	if err != nil {
		return err
	}
	if recovered, err := res.RowsAffected(); err == nil && recovered > 0 {
		q.logger.Infof("recovered %d in-flight actions from previous run", recovered)
	}
	return nil
}

// claimNext atomically takes the oldest due queued action and moves it to
// submitting, so concurrent workers never pick the same one.
func (q *Queue) claimNext(ctx context.Context) (*PendingAction, error) {
	tx, err := db.NewTx(ctx, q.db)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if errRllbck := tx.Rollback(); errRllbck != nil {
				q.logger.Errorf("error while rolling back tx: %v", errRllbck)
			}
		}
	}()

	action := &PendingAction{}
	err = meddler.QueryRow(tx, action, `
		SELECT * FROM pending_action
		WHERE status = $1 AND next_attempt_after <= $2
		ORDER BY rowid ASC LIMIT 1;
	`, StatusQueued, time.Now().Unix())
	if err != nil {
		return nil, db.ReturnErrNotFound(err)
	}

	action.Status = StatusSubmitting
	if _, err = tx.Exec(`UPDATE pending_action SET status = $1 WHERE nonce = $2;`,
		StatusSubmitting, action.Nonce); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return action, nil
}

func (q *Queue) markAwaitingConfirmation(action *PendingAction) error {
	action.Status = StatusAwaitingConfirmation
	_, err := q.db.Exec(`UPDATE pending_action SET status = $1, mint_tx_id = $2 WHERE nonce = $3;`,
		StatusAwaitingConfirmation, action.MintTxID.Hex(), action.Nonce)
	return err
}

func (q *Queue) markConfirmed(action *PendingAction) error {
	action.Status = StatusConfirmed
	_, err := q.db.Exec(`UPDATE pending_action SET status = $1, last_error = '' WHERE nonce = $2;`,
		StatusConfirmed, action.Nonce)
	return err
}

func (q *Queue) markFailed(action *PendingAction, cause error) error {
	action.Status = StatusFailed
	action.LastError = cause.Error()
	_, err := q.db.Exec(`UPDATE pending_action SET status = $1, attempts = $2, last_error = $3 WHERE nonce = $4;`,
		StatusFailed, action.Attempts, action.LastError, action.Nonce)
	return err
}

// requeue puts a retryable action back on the queue with its attempt counter
// bumped and the next attempt gated by notBefore.
func (q *Queue) requeue(action *PendingAction, cause error, notBefore time.Time) error {
	action.Status = StatusQueued
	action.LastError = cause.Error()
	action.NextAttemptAfter = notBefore.Unix()
	_, err := q.db.Exec(`
		UPDATE pending_action
		SET status = $1, attempts = $2, last_error = $3, mint_tx_id = $4, next_attempt_after = $5
		WHERE nonce = $6;
	`, StatusQueued, action.Attempts, action.LastError, action.MintTxID.Hex(), action.NextAttemptAfter, action.Nonce)
	return err
}

// GetAction returns the action admitted for the given nonce, or
// db.ErrNotFound.
func (q *Queue) GetAction(ctx context.Context, nonce uint64) (*PendingAction, error) {
	action := &PendingAction{}
	err := meddler.QueryRow(q.db, action, `SELECT * FROM pending_action WHERE nonce = $1;`, nonce)
	if err != nil {
		return nil, db.ReturnErrNotFound(err)
	}
	return action, nil
}

// GetActionsByStatus returns actions in any of the given statuses, oldest
// first. With no statuses it returns everything.
func (q *Queue) GetActionsByStatus(ctx context.Context, statuses ...Status) ([]*PendingAction, error) {
	query := "SELECT * FROM pending_action"
	args := make([]interface{}, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i := range statuses {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = statuses[i]
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY rowid ASC;"

	var actions []*PendingAction
	if err := meddler.QueryAll(q.db, &actions, query, args...); err != nil {
		return nil, err
	}
	return actions, nil
}
