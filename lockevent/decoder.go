package lockevent

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DecodeErrorReason classifies why a raw log could not be decoded.
type DecodeErrorReason string

const (
	ReasonWrongContract  = DecodeErrorReason("wrong contract")
	ReasonWrongSignature = DecodeErrorReason("wrong signature")
	ReasonMalformedField = DecodeErrorReason("malformed field")
)

// DecodeError is returned when a raw log cannot be turned into a LockEvent.
// Field is set only for ReasonMalformedField.
type DecodeError struct {
	Reason DecodeErrorReason
	Field  string
}

func (e *DecodeError) Error() string {
	if e.Reason == ReasonMalformedField {
		return fmt.Sprintf("decode error: %s (%s)", e.Reason, e.Field)
	}
	return fmt.Sprintf("decode error: %s", e.Reason)
}

func malformedField(name string) *DecodeError {
	return &DecodeError{Reason: ReasonMalformedField, Field: name}
}

var lockEventArguments = abi.Arguments{
	{Name: "token", Type: mustNewType("address")},
	{Name: "destinationChainId", Type: mustNewType("uint256")},
	{Name: "recipient", Type: mustNewType("address")},
	{Name: "amount", Type: mustNewType("uint256")},
	{Name: "nonce", Type: mustNewType("uint256")},
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// Decoder turns raw logs emitted by the configured bridge contract into
// LockEvents. Decode is a pure function: no side effects, safe to call
// redundantly for the same log.
type Decoder struct {
	contractAddr  common.Address
	sourceChainID uint64
}

func NewDecoder(contractAddr common.Address, sourceChainID uint64) *Decoder {
	return &Decoder{
		contractAddr:  contractAddr,
		sourceChainID: sourceChainID,
	}
}

// Decode validates and parses a single raw log. It returns a *DecodeError
// when the log does not originate from the configured contract, does not
// match the Lock signature, or carries malformed data.
func (d *Decoder) Decode(l types.Log) (LockEvent, error) {
	if l.Address != d.contractAddr {
		return LockEvent{}, &DecodeError{Reason: ReasonWrongContract}
	}
	if len(l.Topics) == 0 || l.Topics[0] != Signature {
		return LockEvent{}, &DecodeError{Reason: ReasonWrongSignature}
	}
	if len(l.Data) != 32*len(lockEventArguments) {
		return LockEvent{}, malformedField("data")
	}

	values, err := lockEventArguments.Unpack(l.Data)
	if err != nil {
		return LockEvent{}, malformedField("data")
	}

	token, ok := values[0].(common.Address)
	if !ok {
		return LockEvent{}, malformedField("token")
	}
	destChainID, ok := values[1].(*big.Int)
	if !ok || !destChainID.IsUint64() {
		return LockEvent{}, malformedField("destinationChainId")
	}
	recipient, ok := values[2].(common.Address)
	if !ok || recipient == (common.Address{}) {
		return LockEvent{}, malformedField("recipient")
	}
	amount, ok := values[3].(*big.Int)
	if !ok {
		return LockEvent{}, malformedField("amount")
	}
	nonce, ok := values[4].(*big.Int)
	if !ok || !nonce.IsUint64() {
		return LockEvent{}, malformedField("nonce")
	}

	return LockEvent{
		SourceChainID:      d.sourceChainID,
		DestinationChainID: destChainID.Uint64(),
		Nonce:              nonce.Uint64(),
		Recipient:          recipient,
		Token:              token,
		Amount:             amount,
		BlockNumber:        l.BlockNumber,
		TxHash:             l.TxHash,
	}, nil
}
