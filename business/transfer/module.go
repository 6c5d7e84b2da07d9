// Package transfer implements the transfer bounded context: submission,
// estimation, status tracking and the lifecycle shown to the user.
package transfer

import (
	"context"
	"math/big"

	blockchainDI "github.com/fd1az/transfer-dashboard/business/blockchain/di"
	gasDI "github.com/fd1az/transfer-dashboard/business/gas/di"
	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/business/transfer/app"
	transferDI "github.com/fd1az/transfer-dashboard/business/transfer/di"
	"github.com/fd1az/transfer-dashboard/business/transfer/infra"
	walletApp "github.com/fd1az/transfer-dashboard/business/wallet/app"
	walletDI "github.com/fd1az/transfer-dashboard/business/wallet/di"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/config"
	"github.com/fd1az/transfer-dashboard/internal/di"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/monolith"
	"github.com/fd1az/transfer-dashboard/internal/retry"
	"github.com/fd1az/transfer-dashboard/internal/wsconn"
)

// Module implements the transfer bounded context.
type Module struct{}

// RegisterServices registers all transfer services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Lookup (private - bound to the configured chain's node)
	di.RegisterToken(c, transferDI.Lookup, func(sr di.ServiceRegistry) app.TxLookup {
		cfg := sr.Get("config").(*config.Config)
		return infra.NewChainLookup(cfg.Ethereum.ChainID, blockchainDI.GetBlockchainService(sr))
	})

	// Register Estimator (private - internal dependency)
	di.RegisterToken(c, transferDI.Estimator, func(sr di.ServiceRegistry) *app.Estimator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewEstimator(transferDI.GetLookup(sr), app.EstimatorConfig{
			Lookup:     retry.Policy{Attempts: cfg.Transfer.LookupAttempts, Delay: cfg.Transfer.LookupDelay},
			WaitPolicy: gasDomain.ParseWaitPolicy(cfg.Fees.WaitPolicy),
		}, log)
	})

	// Register StatusPoller (private - internal dependency)
	di.RegisterToken(c, transferDI.StatusPoller, func(sr di.ServiceRegistry) *app.StatusPoller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewStatusPoller(transferDI.GetLookup(sr), app.PollerConfig{
			Interval: cfg.Transfer.StatusPollInterval,
			Lookup:   retry.Policy{Attempts: cfg.Transfer.StatusAttempts, Delay: cfg.Transfer.LookupDelay},
		}, log)
	})

	// Register Controller (public - exposed to the UI)
	di.RegisterToken(c, transferDI.Controller, func(sr di.ServiceRegistry) *app.Controller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		// keep the interface nil when no signer is configured
		var submitter app.Submitter
		if sub := blockchainDI.GetSubmitter(sr); sub != nil {
			submitter = sub
		}

		return app.NewController(
			submitter,
			blockchainDI.GetBlockchainService(sr),
			gasDI.GetFeeFeed(sr),
			transferDI.GetEstimator(sr),
			transferDI.GetStatusPoller(sr),
			app.ControllerConfig{
				ChainID:         cfg.Ethereum.ChainID,
				Confirmations:   cfg.Transfer.Confirmations,
				DisplayDuration: cfg.Transfer.DisplayDuration,
			},
			log,
		)
	})

	// Register InputSession (public - exposed to the UI)
	di.RegisterToken(c, transferDI.InputSession, func(sr di.ServiceRegistry) *app.InputSession {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewInputSession(gasDI.GetRequirementService(sr), cfg.Gas.InputDebounce, log)
	})

	// Register StreamHub (public - nil when the stream port is 0)
	di.RegisterToken(c, transferDI.StreamHub, func(sr di.ServiceRegistry) *wsconn.Hub {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Stream.Port == 0 {
			return nil
		}
		hubCfg := wsconn.DefaultConfig()
		hubCfg.WriteTimeout = cfg.Stream.WriteTimeout
		hubCfg.ClientBuffer = cfg.Stream.ClientBuffer
		return wsconn.NewHub(hubCfg, log)
	})

	// Register StreamReporter (private - nil without a hub)
	di.RegisterToken(c, transferDI.StreamReporter, func(sr di.ServiceRegistry) *infra.StreamReporter {
		log := sr.Get("logger").(logger.LoggerInterface)

		hub := transferDI.GetStreamHub(sr)
		if hub == nil {
			return nil
		}
		return infra.NewStreamReporter(hub, log)
	})

	return nil
}

// Startup binds the form and the lifecycle to the wallet session and starts
// streaming snapshots when enabled.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()

	controller := transferDI.GetController(sr)
	inputs := transferDI.GetInputSession(sr)
	wallet := walletDI.GetWalletService(sr)
	tracker := walletDI.GetSessionTracker(sr)

	if stream := transferDI.GetStreamReporter(sr); stream != nil {
		if err := Attach(ctx, controller, stream); err != nil {
			return err
		}
	}

	// Register before reading Current so no change is missed in between.
	tracker.OnChange(func(ctx context.Context, change walletDomain.SessionChange) {
		controller.HandleSessionChange(ctx, change)
		bindSession(ctx, inputs, wallet, tracker, change.Current, log)
	})
	bindSession(ctx, inputs, wallet, tracker, tracker.Current(), log)

	log.Info(ctx, "transfer module started",
		"signer", blockchainDI.GetSubmitter(sr) != nil,
		"stream", transferDI.GetStreamHub(sr) != nil)
	return nil
}

// Attach starts r and subscribes it to the controller's snapshots and
// notifications. The current snapshot is reported immediately.
func Attach(ctx context.Context, c *app.Controller, r app.Reporter) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	c.OnSnapshot(r.Report)
	c.OnNotification(r.Notify)
	r.Report(c.Snapshot())
	return nil
}

// bindSession resets the form for sess and loads the native balance in the
// background. The balance is dropped when the session moved on meanwhile.
func bindSession(
	ctx context.Context,
	inputs *app.InputSession,
	wallet *walletApp.Service,
	tracker *walletApp.SessionTracker,
	sess walletDomain.Session,
	log logger.LoggerInterface,
) {
	inputs.SetSession(sess, nil)
	if !sess.Connected {
		return
	}

	go func() {
		p, err := wallet.Portfolio(context.WithoutCancel(ctx), sess)
		if err != nil {
			log.Warn(ctx, "failed to load portfolio", "account", sess.Account.Hex(), "error", err)
			return
		}
		if tracker.Current() != sess {
			return
		}
		balance := new(big.Int)
		if native, ok := p.Native(); ok && native.Balance != nil {
			balance = native.Balance
		}
		inputs.SetNativeBalance(balance)
	}()
}
