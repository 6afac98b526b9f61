// Package mintsender turns pending mint actions into destination chain
// transactions, delegating nonce management, gas bumping and broadcasting to
// the ethtxmanager.
package mintsender

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethtxtypes "github.com/0xPolygon/zkevm-ethtx-manager/types"
	"github.com/bridgelock/listener/log"
	"github.com/bridgelock/listener/mintqueue"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const mintFuncABI = `[{
	"inputs": [
		{"internalType": "address", "name": "token", "type": "address"},
		{"internalType": "address", "name": "recipient", "type": "address"},
		{"internalType": "uint256", "name": "amount", "type": "uint256"},
		{"internalType": "uint256", "name": "nonce", "type": "uint256"}
	],
	"name": "mint",
	"outputs": [],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

type EthTxManager interface {
	Result(ctx context.Context, id common.Hash) (ethtxtypes.MonitoredTxResult, error)
	Add(ctx context.Context,
		to *common.Address,
		value *big.Int,
		data []byte,
		gasOffset uint64,
		sidecar *types.BlobTxSidecar,
	) (common.Hash, error)
}

// EVMMintSender implements the mintqueue.TxSender interface against an EVM
// destination chain.
type EVMMintSender struct {
	logger              *log.Logger
	bridgeAddr          common.Address
	bridgeAbi           *abi.ABI
	ethTxMan            EthTxManager
	gasOffset           uint64
	waitPeriodMonitorTx time.Duration
}

func NewEVMMintSender(
	logger *log.Logger,
	bridgeAddr common.Address,
	ethTxMan EthTxManager,
	gasOffset uint64,
	waitPeriodMonitorTx time.Duration,
) (*EVMMintSender, error) {
	bridgeAbi, err := abi.JSON(strings.NewReader(mintFuncABI))
	if err != nil {
		return nil, err
	}

	return &EVMMintSender{
		logger:              logger,
		bridgeAddr:          bridgeAddr,
		bridgeAbi:           &bridgeAbi,
		ethTxMan:            ethTxMan,
		gasOffset:           gasOffset,
		waitPeriodMonitorTx: waitPeriodMonitorTx,
	}, nil
}

// SubmitMint hands the mint tx for the given action to the tx manager and
// returns the id of the monitored tx.
func (s *EVMMintSender) SubmitMint(ctx context.Context, action *mintqueue.PendingAction) (common.Hash, error) {
	data, err := s.bridgeAbi.Pack("mint",
		action.Token, action.Recipient, action.Amount, new(big.Int).SetUint64(action.Nonce))
	if err != nil {
		return common.Hash{}, err
	}

	id, err := s.ethTxMan.Add(ctx, &s.bridgeAddr, common.Big0, data, s.gasOffset, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error adding mint tx to ethtxmanager: %w", err)
	}
	return id, nil
}

// WaitMined polls the tx manager until the monitored tx reaches a final
// status or ctx is cancelled.
func (s *EVMMintSender) WaitMined(ctx context.Context, id common.Hash) error {
	ticker := time.NewTicker(s.waitPeriodMonitorTx)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s.logger.Debugf("waiting for tx %s to be mined", id.Hex())
		res, err := s.ethTxMan.Result(ctx, id)
		if err != nil {
			return fmt.Errorf("error calling ethTxMan.Result: %w", err)
		}
		switch res.Status {
		case ethtxtypes.MonitoredTxStatusCreated,
			ethtxtypes.MonitoredTxStatusSent:
			continue
		case ethtxtypes.MonitoredTxStatusFailed:
			return fmt.Errorf("mint tx %s failed", res.ID)
		case ethtxtypes.MonitoredTxStatusMined,
			ethtxtypes.MonitoredTxStatusSafe,
			ethtxtypes.MonitoredTxStatusFinalized:
			return nil
		default:
			s.logger.Error("unexpected tx status: ", res.Status)
		}
	}
}
