// Package wallet implements the wallet bounded context: the acting session
// and the tokens it holds.
package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	blockchainDI "github.com/fd1az/transfer-dashboard/business/blockchain/di"
	pricingDI "github.com/fd1az/transfer-dashboard/business/pricing/di"
	"github.com/fd1az/transfer-dashboard/business/wallet/app"
	walletDI "github.com/fd1az/transfer-dashboard/business/wallet/di"
	"github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/business/wallet/infra/moralis"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/config"
	"github.com/fd1az/transfer-dashboard/internal/di"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/monolith"
)

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register TokenLister (private - nil without an API key)
	di.RegisterToken(c, walletDI.TokenLister, func(sr di.ServiceRegistry) app.TokenLister {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Wallet.MoralisKey == "" {
			log.Warn(context.Background(), "no token api key, listing the native coin only")
			return nil
		}

		client, err := moralis.NewClient(moralis.Config{
			APIKey:             cfg.Wallet.MoralisKey,
			BaseURL:            cfg.Wallet.BaseURL,
			Timeout:            cfg.Wallet.RequestTimeout,
			MaxTokenInactivity: cfg.Wallet.MaxTokenInactivity,
		}, log)
		if err != nil {
			panic("failed to create moralis client: " + err.Error())
		}
		return client
	})

	// Register WalletService (public)
	di.RegisterToken(c, walletDI.WalletService, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewService(
			walletDI.GetTokenLister(sr),
			blockchainDI.GetBlockchainService(sr),
			app.ServiceConfig{
				CacheTTL: cfg.Wallet.CacheTTL,
				Registry: sr.Get("assetRegistry").(*asset.Registry),
				Prices:   pricingDI.GetPricingService(sr),
			},
			log,
		)
	})

	// Register SessionTracker (public)
	di.RegisterToken(c, walletDI.SessionTracker, func(sr di.ServiceRegistry) *app.SessionTracker {
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewSessionTracker(log)
	})

	return nil
}

// Startup opens the session for the signing account on the configured chain.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	svc := walletDI.GetWalletService(sr)
	tracker := walletDI.GetSessionTracker(sr)
	tracker.OnChange(svc.HandleSessionChange)

	sess := domain.Session{ChainID: cfg.Ethereum.ChainID}
	if sub := blockchainDI.GetSubmitter(sr); sub != nil {
		sess.Account = sub.Account()
		sess.Connected = sess.Account != (common.Address{})
	}
	tracker.Update(ctx, sess)

	log.Info(ctx, "wallet module started",
		"connected", sess.Connected,
		"token_api", walletDI.GetTokenLister(sr) != nil)
	return nil
}
