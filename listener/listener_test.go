package listener

import (
	"context"
	"math/big"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/bridgelock/listener/config/types"
	"github.com/bridgelock/listener/lockevent"
	"github.com/bridgelock/listener/mintqueue"
	"github.com/bridgelock/listener/scanner"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	recipient    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	tokenAddr    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

type clientStub struct {
	latest uint64
	logs   []ethtypes.Log
}

func (c *clientStub) BlockNumber(ctx context.Context) (uint64, error) {
	return c.latest, nil
}

func (c *clientStub) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	from := q.FromBlock.Uint64()
	to := q.ToBlock.Uint64()
	var res []ethtypes.Log
	for _, l := range c.logs {
		if l.BlockNumber >= from && l.BlockNumber <= to {
			res = append(res, l)
		}
	}
	return res, nil
}

func (c *clientStub) SubscribeFilterLogs(
	ctx context.Context, q ethereum.FilterQuery, ch chan<- ethtypes.Log,
) (ethereum.Subscription, error) {
	panic("not implemented")
}

type senderStub struct {
	mu      sync.Mutex
	submits int
}

func (s *senderStub) SubmitMint(ctx context.Context, action *mintqueue.PendingAction) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	return common.BigToHash(new(big.Int).SetUint64(action.Nonce)), nil
}

func (s *senderStub) WaitMined(ctx context.Context, id common.Hash) error {
	return nil
}

func (s *senderStub) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

func lockLog(blockNum, nonce uint64) ethtypes.Log {
	data := make([]byte, 0, 160)
	data = append(data, common.LeftPadBytes(tokenAddr.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(new(big.Int).SetUint64(80001).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(recipient.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(100).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(new(big.Int).SetUint64(nonce).Bytes(), 32)...)
	return ethtypes.Log{
		Address:     contractAddr,
		Topics:      []common.Hash{lockevent.Signature},
		Data:        data,
		BlockNumber: blockNum,
		TxHash:      common.HexToHash("beef"),
	}
}

func TestListenerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	scannerCfg := scanner.Config{
		DBPath:                     path.Join(dir, "checkpoint.sqlite"),
		ContractAddress:            contractAddr,
		SourceChainID:              5,
		InitialBlock:               1051,
		ConfirmationBlocks:         3,
		PollInterval:               types.NewDuration(10 * time.Millisecond),
		SyncBlockChunkSize:         100,
		RetryAfterErrorPeriod:      types.NewDuration(time.Millisecond),
		MaxRetryAttemptsAfterError: 5,
	}
	queueCfg := mintqueue.Config{
		DBPath:           path.Join(dir, "mintqueue.sqlite"),
		MaxAttempts:      3,
		RetryBackoff:     types.NewDuration(time.Millisecond),
		WaitOnEmptyQueue: types.NewDuration(10 * time.Millisecond),
		Workers:          2,
	}

	// the same nonce is emitted twice, the second occurrence must be dropped
	client := &clientStub{
		latest: 1055,
		logs:   []ethtypes.Log{lockLog(1051, 42), lockLog(1052, 42), lockLog(1054, 43)},
	}
	sender := &senderStub{}

	l, err := New(ctx, scannerCfg, queueCfg, client, sender)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Start(ctx)
	}()
	defer func() {
		cancel()
		require.NoError(t, <-errCh)
	}()

	require.Eventually(t, func() bool {
		action, err := l.Queue().GetAction(ctx, 42)
		return err == nil && action.Status == mintqueue.StatusConfirmed
	}, 5*time.Second, 10*time.Millisecond)

	// block 1054 is above the settled head, nonce 43 must not be minted
	actions, err := l.Queue().GetActionsByStatus(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, 1, sender.submitCount())
}
