package mintsender

import (
	"github.com/0xPolygon/zkevm-ethtx-manager/ethtxmanager"
	"github.com/bridgelock/listener/config/types"
	"github.com/ethereum/go-ethereum/common"
)

type EVMConfig struct {
	// BridgeAddr address of the wrapped token bridge contract that exposes
	// the mint function on the destination chain
	BridgeAddr common.Address `mapstructure:"BridgeAddr"`
	// URLRPC url of the destination chain RPC node
	URLRPC string `mapstructure:"URLRPC"`
	// ChainID of the destination chain
	ChainID uint64 `mapstructure:"ChainID"`
	// GasOffset added on top of the estimated gas of every mint tx
	GasOffset uint64 `mapstructure:"GasOffset"`
	// WaitPeriodMonitorTx time between status checks of a monitored tx
	WaitPeriodMonitorTx types.Duration `mapstructure:"WaitPeriodMonitorTx"`
	// EthTxManager configuration of the tx manager that signs, broadcasts
	// and bumps the mint txs
	EthTxManager ethtxmanager.Config `mapstructure:"EthTxManager"`
}
