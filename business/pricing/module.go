// Package pricing quotes wallet tokens in USD when the token list carries
// no price of its own.
package pricing

import (
	"context"

	"github.com/fd1az/transfer-dashboard/business/pricing/app"
	pricingDI "github.com/fd1az/transfer-dashboard/business/pricing/di"
	"github.com/fd1az/transfer-dashboard/business/pricing/infra/binance"
	"github.com/fd1az/transfer-dashboard/internal/config"
	"github.com/fd1az/transfer-dashboard/internal/di"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register TickerProvider (private - nil when pricing is disabled)
	di.RegisterToken(c, pricingDI.TickerProvider, func(sr di.ServiceRegistry) app.TickerProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if !cfg.Pricing.Enabled {
			return nil
		}

		client, err := binance.NewClient(binance.Config{
			BaseURL: cfg.Pricing.BaseURL,
			Timeout: cfg.Pricing.RequestTimeout,
		}, log)
		if err != nil {
			panic("failed to create binance client: " + err.Error())
		}
		return client
	})

	// Register PricingService (public)
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewPricingService(
			pricingDI.GetTickerProvider(sr),
			app.ServiceConfig{CacheTTL: cfg.Pricing.CacheTTL},
			log,
		)
	})

	return nil
}

// Startup resolves the pricing service so construction errors surface early.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	_ = pricingDI.GetPricingService(mono.Services())

	log.Info(ctx, "pricing module started", "enabled", cfg.Pricing.Enabled)
	return nil
}
