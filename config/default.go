package config

// DefaultValues is the default configuration, overridable field by field from
// the config file and the environment.
const DefaultValues = `
# URLRPCSource is the RPC url of the source chain node
URLRPCSource = "http://localhost:8545"

[Log]
Environment = "development" # "production" or "development"
Level = "info"
Outputs = ["stderr"]

[Scanner]
  DBPath = "/tmp/bridgelock/checkpoint.sqlite"
  # ContractAddress is the address of the lock contract on the source chain
  ContractAddress = "0x0000000000000000000000000000000000000000"
  SourceChainID = 1
  InitialBlock = 0
  # ConfirmationBlocks blocks behind the head considered settled
  ConfirmationBlocks = 12
  PollInterval = "5s"
  SyncBlockChunkSize = 100
  RetryAfterErrorPeriod = "1s"
  MaxRetryAttemptsAfterError = 10

[MintQueue]
  DBPath = "/tmp/bridgelock/mintqueue.sqlite"
  MaxAttempts = 5
  RetryBackoff = "10s"
  WaitOnEmptyQueue = "2s"
  Workers = 2

[MintSender]
  # BridgeAddr is the address of the wrapped token bridge on the destination chain
  BridgeAddr = "0x0000000000000000000000000000000000000000"
  URLRPC = "http://localhost:8123"
  ChainID = 0
  GasOffset = 0
  WaitPeriodMonitorTx = "5s"
  [MintSender.EthTxManager]
    FrequencyToMonitorTxs = "1s"
    WaitTxToBeMined = "2m"
    GetReceiptMaxTime = "250ms"
    GetReceiptWaitInterval = "1s"
    PrivateKeys = [
      {Path = "/app/keystore/mintsender.keystore", Password = "testonly"},
    ]
    ForcedGas = 0
    GasPriceMarginFactor = 1
    MaxGasPriceLimit = 0
    StoragePath = "/tmp/bridgelock/ethtxmanager.sqlite"
    ReadPendingL1Txs = false
    SafeStatusL1NumberOfBlocks = 0
    FinalizedStatusL1NumberOfBlocks = 0
    [MintSender.EthTxManager.Etherman]
      URL = "http://localhost:8123"
      L1ChainID = 0
      HTTPHeaders = []
`
