// Package gas implements the gas bounded context: fee tier suggestions,
// tier classification and the reserve a transfer must leave for gas.
package gas

import (
	"context"

	blockchainDI "github.com/fd1az/transfer-dashboard/business/blockchain/di"
	"github.com/fd1az/transfer-dashboard/business/gas/app"
	gasDI "github.com/fd1az/transfer-dashboard/business/gas/di"
	"github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/business/gas/infra/infura"
	walletDI "github.com/fd1az/transfer-dashboard/business/wallet/di"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/config"
	"github.com/fd1az/transfer-dashboard/internal/di"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/monolith"
)

// Module implements the gas bounded context.
type Module struct{}

// RegisterServices registers all gas services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, gasDI.FeeProvider, func(sr di.ServiceRegistry) app.FeeSuggestionProvider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := infura.NewClient(infura.Config{
			APIKey:         cfg.Fees.InfuraKey,
			BaseURL:        cfg.Fees.BaseURL,
			Timeout:        cfg.Fees.RequestTimeout,
			RequestsPerMin: cfg.Fees.RequestsPerMin,
		}, log)
		if err != nil {
			panic("failed to create infura client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, gasDI.FeeFeed, func(sr di.ServiceRegistry) *app.FeeFeed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewFeeFeed(gasDI.GetFeeProvider(sr), cfg.Fees.RefreshInterval, log)
	})

	di.RegisterToken(c, gasDI.RequirementService, func(sr di.ServiceRegistry) *app.RequirementService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		reqCfg, err := RequirementConfig(cfg.Gas)
		if err != nil {
			panic("invalid gas config: " + err.Error())
		}
		return app.NewRequirementService(blockchainDI.GetBlockchainService(sr), reqCfg, log)
	})

	return nil
}

// RequirementConfig maps the gas section onto the requirement service.
func RequirementConfig(g config.GasConfig) (app.RequirementConfig, error) {
	minimum, err := g.MinimumBuffer()
	if err != nil {
		return app.RequirementConfig{}, err
	}
	fallback, err := g.FallbackReserveWei()
	if err != nil {
		return app.RequirementConfig{}, err
	}

	out := app.DefaultRequirementConfig()
	out.Policy = domain.NewBufferPolicy(g.BufferDivisor, minimum)
	out.FallbackReserve = fallback
	if g.NativeTransferGas > 0 {
		out.NativeTransferGas = g.NativeTransferGas
	}
	if g.TokenTransferGas > 0 {
		out.TokenTransferGas = g.TokenTransferGas
	}
	if g.FailingAmountTTL > 0 {
		out.FailingAmountTTL = g.FailingAmountTTL
	}
	return out, nil
}

// Startup begins refreshing fee suggestions for the configured chain and
// follows the session onto other chains.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	chainID := mono.Config().Ethereum.ChainID

	feed := gasDI.GetFeeFeed(mono.Services())
	feed.SetChain(ctx, chainID)

	reqs := gasDI.GetRequirementService(mono.Services())
	walletDI.GetSessionTracker(mono.Services()).OnChange(followSession(ctx, feed, reqs, log))

	log.Info(ctx, "gas module started", "chain_id", chainID)
	return nil
}

// followSession drops cached gas errors when the session is invalidated and
// moves the fee feed onto the session's chain. The feed loop is bound to ctx,
// not the listener's context.
func followSession(ctx context.Context, feed *app.FeeFeed, reqs *app.RequirementService, log logger.LoggerInterface) func(context.Context, walletDomain.SessionChange) {
	return func(_ context.Context, change walletDomain.SessionChange) {
		if change.Invalidates() {
			reqs.Forget()
		}

		next := change.Current.ChainID
		if next == 0 || next == change.Previous.ChainID {
			return
		}
		if next != feed.ActiveChain() {
			log.Info(ctx, "fee feed switching chain", "chain_id", next)
			feed.SetChain(ctx, next)
		}
	}
}
