// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
)

// HeadTracker follows the chain head.
type HeadTracker interface {
	// Subscribe starts following new heads and returns a channel of blocks.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent head.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState
}

// GasOracle prices and sizes transfers.
type GasOracle interface {
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateTransferGas(ctx context.Context, call domain.TransferCall) (uint64, error)
}

// TxReader reads transactions, receipts and balances from the node.
type TxReader interface {
	// TransactionByHash fails with CodeTransactionNotFound when the node
	// does not know the hash.
	TransactionByHash(ctx context.Context, hash common.Hash) (*domain.TxDetails, error)

	// TransactionReceipt fails with CodeTransactionNotFound until the
	// transaction is included.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)

	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}
