// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/transfer-dashboard/business/pricing/app"
	"github.com/fd1az/transfer-dashboard/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	TickerProvider = di.NewToken[app.TickerProvider]("pricing:tickerProvider")
)

func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetTickerProvider(c di.ServiceRegistry) app.TickerProvider {
	return di.GetToken(c, TickerProvider)
}
