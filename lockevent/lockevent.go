package lockevent

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature is the topic emitted by the bridge contract for every lock:
// Lock(token, destinationChainId, recipient, amount, nonce)
var Signature = crypto.Keccak256Hash([]byte("Lock(address,uint256,address,uint256,uint256)"))

// LockEvent represents funds locked on the source chain, waiting to be
// minted on the destination chain. Immutable once decoded.
type LockEvent struct {
	SourceChainID      uint64
	DestinationChainID uint64
	// Nonce uniquely identifies the lock across the whole life of the
	// bridge. It is the dedup key of the mint pipeline.
	Nonce     uint64
	Recipient common.Address
	Token     common.Address
	// Amount in minor units
	Amount      *big.Int
	BlockNumber uint64
	TxHash      common.Hash
}
