// Package domain contains the core domain types for the wallet context.
package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/transfer-dashboard/internal/asset"
)

// Token is a held asset with its balance at fetch time.
type Token struct {
	Asset   *asset.Asset
	Balance *big.Int
	// UsdPrice is nil when the price service has no quote.
	UsdPrice     *decimal.Decimal
	Logo         string
	PossibleSpam bool
}

// IsNative reports whether the token is the chain's native coin.
func (t Token) IsNative() bool {
	return t.Asset != nil && t.Asset.IsNative()
}

// Symbol returns the asset symbol.
func (t Token) Symbol() string {
	if t.Asset == nil {
		return ""
	}
	return t.Asset.Symbol()
}

// BalanceAmount returns the balance as an Amount of the token's asset.
func (t Token) BalanceAmount() asset.Amount {
	if t.Asset == nil {
		return asset.Amount{}
	}
	return asset.MustAmount(t.Asset, t.Balance)
}

// UsdValue prices amount at the token's unit price, zero without a quote.
func (t Token) UsdValue(amount asset.Amount) decimal.Decimal {
	if t.UsdPrice == nil {
		return decimal.Zero
	}
	return amount.FiatValue(*t.UsdPrice).Round(2)
}

// Portfolio is the token list for one account on one chain.
type Portfolio struct {
	Account common.Address
	ChainID uint64
	Tokens  []Token
}

// Native returns the native coin entry, if present.
func (p Portfolio) Native() (Token, bool) {
	for _, t := range p.Tokens {
		if t.IsNative() {
			return t, true
		}
	}
	return Token{}, false
}

// Find looks a token up by contract address or, failing that, by symbol
// ignoring case. "native" selects the native coin.
func (p Portfolio) Find(ref string) (Token, bool) {
	ref = strings.TrimSpace(ref)
	if strings.EqualFold(ref, "native") {
		return p.Native()
	}
	if common.IsHexAddress(ref) {
		addr := common.HexToAddress(ref)
		for _, t := range p.Tokens {
			if !t.IsNative() && t.Asset.Address() == addr {
				return t, true
			}
		}
		return Token{}, false
	}
	for _, t := range p.Tokens {
		if strings.EqualFold(t.Symbol(), ref) {
			return t, true
		}
	}
	return Token{}, false
}
