package mintqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bridgelock/listener/config/types"
	"github.com/bridgelock/listener/db"
	"github.com/bridgelock/listener/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type senderStub struct {
	mu          sync.Mutex
	submitCalls int
	waitCalls   int
	submitErr   error
	// waitErrs is consumed one per WaitMined call, nil once exhausted
	waitErrs []error
}

func (s *senderStub) SubmitMint(ctx context.Context, action *PendingAction) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	if s.submitErr != nil {
		return common.Hash{}, s.submitErr
	}
	return common.BigToHash(action.Amount), nil
}

func (s *senderStub) WaitMined(ctx context.Context, id common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitCalls++
	if len(s.waitErrs) == 0 {
		return nil
	}
	err := s.waitErrs[0]
	s.waitErrs = s.waitErrs[1:]
	return err
}

func (s *senderStub) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitCalls, s.waitCalls
}

func testWorkerConfig() Config {
	return Config{
		MaxAttempts:      3,
		RetryBackoff:     types.NewDuration(time.Millisecond),
		WaitOnEmptyQueue: types.NewDuration(10 * time.Millisecond),
		Workers:          1,
	}
}

func runWorker(t *testing.T, q *Queue, sender TxSender, onTerminal func(PendingAction)) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(log.WithFields("test", t.Name()), q, sender, testWorkerConfig(), onTerminal)
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWorkerHappyPath(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	sender := &senderStub{}

	var mu sync.Mutex
	var terminal []PendingAction
	runWorker(t, q, sender, func(a PendingAction) {
		mu.Lock()
		terminal = append(terminal, a)
		mu.Unlock()
	})

	require.NoError(t, q.Enqueue(ctx, testEvent(42)))

	require.Eventually(t, func() bool {
		action, err := q.GetAction(ctx, 42)
		return err == nil && action.Status == StatusConfirmed
	}, 5*time.Second, 10*time.Millisecond)

	action, err := q.GetAction(ctx, 42)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, action.MintTxID)
	require.Equal(t, 0, action.Attempts)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, terminal, 1)
	require.Equal(t, StatusConfirmed, terminal[0].Status)
}

func TestWorkerRetryBound(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	sender := &senderStub{submitErr: errors.New("rpc down")}

	runWorker(t, q, sender, nil)

	require.NoError(t, q.Enqueue(ctx, testEvent(42)))

	require.Eventually(t, func() bool {
		action, err := q.GetAction(ctx, 42)
		return err == nil && action.Status == StatusFailed
	}, 5*time.Second, 10*time.Millisecond)

	action, err := q.GetAction(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, 3, action.Attempts)
	require.Equal(t, "rpc down", action.LastError)

	// failed is terminal, nothing claims it again
	time.Sleep(50 * time.Millisecond)
	submits, _ := sender.calls()
	require.Equal(t, 3, submits)
	_, err = q.claimNext(ctx)
	require.True(t, errors.Is(err, db.ErrNotFound))
}

func TestWorkerRetriesConfirmationWithFreshTx(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	sender := &senderStub{waitErrs: []error{errors.New("tx reverted")}}

	runWorker(t, q, sender, nil)

	require.NoError(t, q.Enqueue(ctx, testEvent(42)))

	require.Eventually(t, func() bool {
		action, err := q.GetAction(ctx, 42)
		return err == nil && action.Status == StatusConfirmed
	}, 5*time.Second, 10*time.Millisecond)

	// the failed monitored tx was discarded and a new one created
	submits, waits := sender.calls()
	require.Equal(t, 2, submits)
	require.Equal(t, 2, waits)
}

func TestWorkerResumesWithoutResubmitting(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	// seed an action that was awaiting confirmation when the previous run
	// stopped, then recover it
	require.NoError(t, q.Enqueue(ctx, testEvent(42)))
	action, err := q.claimNext(ctx)
	require.NoError(t, err)
	action.MintTxID = common.HexToHash("cafe")
	require.NoError(t, q.markAwaitingConfirmation(action))
	require.NoError(t, q.RecoverInFlight(ctx))

	sender := &senderStub{}
	runWorker(t, q, sender, nil)

	require.Eventually(t, func() bool {
		stored, err := q.GetAction(ctx, 42)
		return err == nil && stored.Status == StatusConfirmed
	}, 5*time.Second, 10*time.Millisecond)

	submits, waits := sender.calls()
	require.Equal(t, 0, submits)
	require.Equal(t, 1, waits)
}
