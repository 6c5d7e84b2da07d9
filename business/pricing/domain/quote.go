// Package domain contains the core domain types for the pricing context.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source names where a quote came from.
type Source string

const (
	SourceBinance Source = "binance"
	SourcePeg     Source = "peg"
)

// Quote is the USD price of one unit of a token.
type Quote struct {
	Symbol    string
	Pair      string
	Price     decimal.Decimal
	Source    Source
	FetchedAt time.Time
}

// Age returns how old the quote is at now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// usdPairs maps token symbols onto the exchange pair quoting them in USD.
var usdPairs = map[string]string{
	"ETH":  "ETHUSDT",
	"WETH": "ETHUSDT",
	"BTC":  "BTCUSDT",
	"WBTC": "BTCUSDT",
	"POL":  "POLUSDT",
	"LINK": "LINKUSDT",
	"UNI":  "UNIUSDT",
}

// pegged tokens are valued at one dollar without a lookup.
var pegged = map[string]bool{
	"USDC": true,
	"USDT": true,
	"DAI":  true,
	"XDAI": true,
}

// PairFor returns the USD pair for symbol.
func PairFor(symbol string) (string, bool) {
	pair, ok := usdPairs[strings.ToUpper(strings.TrimSpace(symbol))]
	return pair, ok
}

// IsPegged reports whether symbol is a dollar stablecoin.
func IsPegged(symbol string) bool {
	return pegged[strings.ToUpper(strings.TrimSpace(symbol))]
}
