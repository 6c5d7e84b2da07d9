// Package app contains the gas requirement service, the fee suggestion feed
// and their ports.
package app

import (
	"context"
	"math/big"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/business/gas/domain"
)

// FeeSuggestionProvider returns a fee tier quote for a chain.
type FeeSuggestionProvider interface {
	Suggest(ctx context.Context, chainID uint64) (*domain.FeeTierSnapshot, error)
}

// TransferCall describes a transfer for gas estimation.
type TransferCall = blockchainDomain.TransferCall

// GasOracle prices and sizes transfers on the active chain.
type GasOracle interface {
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateTransferGas(ctx context.Context, call TransferCall) (uint64, error)
}
