package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransferCall describes a value transfer for gas estimation. Token is nil
// for the native asset.
type TransferCall struct {
	From   common.Address
	To     common.Address
	Token  *common.Address
	Amount *big.Int
}

// IsNative reports whether the call moves the chain's native asset.
func (c TransferCall) IsNative() bool {
	return c.Token == nil
}

// TxDetails is what the node reports for a submitted transaction.
// BlockNumber is nil while the transaction is pending.
type TxDetails struct {
	Hash           common.Hash
	Type           uint8
	GasLimit       uint64
	GasPrice       *big.Int
	MaxPriorityFee *big.Int
	MaxFee         *big.Int
	BlockNumber    *uint64
}

// Included reports whether the transaction is in a block.
func (t TxDetails) Included() bool {
	return t.BlockNumber != nil
}

// ReceiptStatus is the execution outcome of an included transaction.
type ReceiptStatus uint8

const (
	ReceiptReverted ReceiptStatus = 0
	ReceiptSuccess  ReceiptStatus = 1
)

func (s ReceiptStatus) String() string {
	if s == ReceiptSuccess {
		return "success"
	}
	return "reverted"
}

// Receipt is the subset of a transaction receipt the dashboard shows.
type Receipt struct {
	Hash              common.Hash
	Status            ReceiptStatus
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// Succeeded reports whether execution succeeded.
func (r Receipt) Succeeded() bool {
	return r.Status == ReceiptSuccess
}

// Fee returns gasUsed * effectiveGasPrice, or nil when the price is unknown.
func (r Receipt) Fee() *big.Int {
	if r.EffectiveGasPrice == nil {
		return nil
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}
