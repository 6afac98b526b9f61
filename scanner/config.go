package scanner

import (
	"github.com/bridgelock/listener/config/types"
	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	// DBPath path of the checkpoint DB
	DBPath string `mapstructure:"DBPath"`
	// ContractAddress address of the lock contract on the source chain
	ContractAddress common.Address `mapstructure:"ContractAddress"`
	// SourceChainID chain id of the source chain, stamped on decoded events
	SourceChainID uint64 `mapstructure:"SourceChainID"`
	// InitialBlock first block to scan when no checkpoint exists yet
	InitialBlock uint64 `mapstructure:"InitialBlock"`
	// ConfirmationBlocks number of blocks behind the chain head that are
	// considered settled. Blocks above latest - ConfirmationBlocks are not
	// scanned
	ConfirmationBlocks uint64 `mapstructure:"ConfirmationBlocks"`
	// PollInterval time between chain head checks when there is nothing
	// new to scan
	PollInterval types.Duration `mapstructure:"PollInterval"`
	// SyncBlockChunkSize max amount of blocks queried in a single log filter
	SyncBlockChunkSize uint64 `mapstructure:"SyncBlockChunkSize"`
	// RetryAfterErrorPeriod wait before retrying a failed RPC call
	RetryAfterErrorPeriod types.Duration `mapstructure:"RetryAfterErrorPeriod"`
	// MaxRetryAttemptsAfterError amount of consecutive RPC failures
	// tolerated before giving up. Any value smaller than zero retries forever
	MaxRetryAttemptsAfterError int `mapstructure:"MaxRetryAttemptsAfterError"`
}
