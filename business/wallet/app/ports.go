// Package app contains the wallet portfolio service, the session tracker
// and their ports.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/transfer-dashboard/business/wallet/domain"
)

// TokenLister lists the tokens an account holds on a chain, with prices.
type TokenLister interface {
	ListTokens(ctx context.Context, chainID uint64, account common.Address) ([]domain.Token, error)
}

// BalanceReader reads the native balance from the node.
type BalanceReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
}

// PriceSource quotes a token symbol in USD.
type PriceSource interface {
	UsdPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
