package mintsender

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	ethtxtypes "github.com/0xPolygon/zkevm-ethtx-manager/types"
	"github.com/bridgelock/listener/log"
	"github.com/bridgelock/listener/mintqueue"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type EthTxManagerMock struct {
	mock.Mock
}

func (m *EthTxManagerMock) Result(ctx context.Context, id common.Hash) (ethtxtypes.MonitoredTxResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(ethtxtypes.MonitoredTxResult), args.Error(1)
}

func (m *EthTxManagerMock) Add(ctx context.Context,
	to *common.Address,
	value *big.Int,
	data []byte,
	gasOffset uint64,
	sidecar *types.BlobTxSidecar,
) (common.Hash, error) {
	args := m.Called(ctx, to, value, data, gasOffset, sidecar)
	return args.Get(0).(common.Hash), args.Error(1)
}

func TestEVMMintSender_SubmitAndWait(t *testing.T) {
	bridgeAddr := common.HexToAddress("0x123")
	gasOffset := uint64(1000)
	txID := common.HexToHash("0x789")

	action := &mintqueue.PendingAction{
		Nonce:              42,
		DestinationChainID: 80001,
		Recipient:          common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		Token:              common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Amount:             big.NewInt(100),
	}

	tests := []struct {
		name            string
		addReturnTxID   common.Hash
		addReturnErr    error
		resultReturn    ethtxtypes.MonitoredTxResult
		resultReturnErr error
		expectedErr     string
	}{
		{
			name:          "successful mint",
			addReturnTxID: txID,
			resultReturn:  ethtxtypes.MonitoredTxResult{Status: ethtxtypes.MonitoredTxStatusMined, MinedAtBlockNumber: big.NewInt(123)},
		},
		{
			name:          "mint fails due to transaction failure",
			addReturnTxID: txID,
			resultReturn:  ethtxtypes.MonitoredTxResult{Status: ethtxtypes.MonitoredTxStatusFailed},
			expectedErr:   "failed",
		},
		{
			name:         "mint fails due to Add method error",
			addReturnErr: errors.New("add error"),
			expectedErr:  "add error",
		},
		{
			name:            "mint fails due to Result method error",
			addReturnTxID:   txID,
			resultReturnErr: errors.New("result error"),
			expectedErr:     "result error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancelFn := context.WithTimeout(context.Background(), time.Millisecond*500)
			defer cancelFn()

			ethTxMan := new(EthTxManagerMock)
			ethTxMan.On("Add", ctx, &bridgeAddr, common.Big0, mock.Anything, gasOffset, mock.Anything).
				Return(tt.addReturnTxID, tt.addReturnErr)
			ethTxMan.On("Result", ctx, tt.addReturnTxID).
				Return(tt.resultReturn, tt.resultReturnErr)

			sender, err := NewEVMMintSender(
				log.WithFields("test", t.Name()), bridgeAddr, ethTxMan, gasOffset, time.Millisecond*10)
			require.NoError(t, err)

			id, err := sender.SubmitMint(ctx, action)
			if tt.addReturnErr != nil {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, txID, id)

			err = sender.WaitMined(ctx, id)
			if tt.expectedErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.expectedErr)
			}
		})
	}
}
