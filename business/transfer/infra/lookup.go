// Package infra contains infrastructure adapters for the transfer context.
package infra

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// TxSource is the single-chain transaction reader behind ChainLookup.
type TxSource interface {
	LookupTransaction(ctx context.Context, hash common.Hash) (*blockchainDomain.TxDetails, error)
}

// ChainLookup routes lookups for its chain to a node and refuses others.
type ChainLookup struct {
	chainID uint64
	source  TxSource
}

// NewChainLookup binds source to chainID.
func NewChainLookup(chainID uint64, source TxSource) *ChainLookup {
	return &ChainLookup{chainID: chainID, source: source}
}

// LookupTransaction implements app.TxLookup.
func (l *ChainLookup) LookupTransaction(ctx context.Context, chainID uint64, hash common.Hash) (*blockchainDomain.TxDetails, error) {
	if chainID != l.chainID {
		return nil, apperror.Validation(apperror.CodeUnsupportedChain,
			fmt.Sprintf("lookup for chain %d on a chain %d node", chainID, l.chainID))
	}
	return l.source.LookupTransaction(ctx, hash)
}
