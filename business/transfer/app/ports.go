// Package app contains application services and port definitions for the transfer context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	gasApp "github.com/fd1az/transfer-dashboard/business/gas/app"
	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
)

// Submitter signs and broadcasts transfers.
type Submitter interface {
	// SendTransfer returns the transaction hash once the node accepted it.
	SendTransfer(ctx context.Context, call blockchainDomain.TransferCall) (common.Hash, error)

	// Account is the sending address.
	Account() common.Address
}

// TxLookup reads a transaction's details. Before the node has seen the hash
// it fails with TRANSACTION_NOT_FOUND.
type TxLookup interface {
	LookupTransaction(ctx context.Context, chainID uint64, hash common.Hash) (*blockchainDomain.TxDetails, error)
}

// ReceiptWaiter blocks until hash is mined at the given confirmation depth.
type ReceiptWaiter interface {
	WaitForReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*blockchainDomain.Receipt, error)
}

// FeeSource returns the latest fee suggestions for a chain.
type FeeSource interface {
	Latest(chainID uint64) (gasDomain.FeeTierSnapshot, bool)
}

// RequirementChecker computes the gas reserve for a pending input.
type RequirementChecker interface {
	Check(ctx context.Context, in gasApp.RequirementInput) (gasApp.RequirementResult, error)
}

// Reporter defines the interface for presenting transfer progress.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report receives every lifecycle snapshot.
	Report(snap domain.Snapshot)

	// Notify receives user-facing outcomes.
	Notify(n domain.Notification)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
