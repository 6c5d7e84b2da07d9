// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/shopspring/decimal"
)

// TickerProvider returns the last traded price of an exchange pair.
type TickerProvider interface {
	Ticker(ctx context.Context, pair string) (decimal.Decimal, error)
}
