// Package blockchain implements the blockchain bounded context: node access,
// head tracking, gas estimation, transaction lookup and submission.
package blockchain

import (
	"context"

	"github.com/fd1az/transfer-dashboard/business/blockchain/app"
	blockchainDI "github.com/fd1az/transfer-dashboard/business/blockchain/di"
	"github.com/fd1az/transfer-dashboard/business/blockchain/infra/ethereum"
	"github.com/fd1az/transfer-dashboard/internal/config"
	"github.com/fd1az/transfer-dashboard/internal/di"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register RPC (private - shared node client from the monolith)
	di.RegisterToken(c, blockchainDI.RPC, func(sr di.ServiceRegistry) ethereum.RPC {
		return sr.Get("ethClient").(ethereum.RPC)
	})

	// Register HeadTracker (private - internal dependency)
	di.RegisterToken(c, blockchainDI.HeadTracker, func(sr di.ServiceRegistry) *ethereum.HeadTracker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		tracker, err := ethereum.NewHeadTracker(
			ethereum.DefaultHeadTrackerConfig(cfg.Ethereum.WebSocketURL),
			blockchainDI.GetRPC(sr), log)
		if err != nil {
			panic("failed to create head tracker: " + err.Error())
		}
		return tracker
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracleCfg := ethereum.DefaultGasOracleConfig()
		oracleCfg.CacheTTL = cfg.Gas.PriceCacheTTL
		oracleCfg.MarginPct = cfg.Gas.EstimateMarginPct
		if maxPrice, err := cfg.Gas.MaxGasPrice(); err == nil {
			oracleCfg.MaxGasPrice = maxPrice
		}

		oracle, err := ethereum.NewGasOracle(blockchainDI.GetRPC(sr), oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register TxReader (private - internal dependency)
	di.RegisterToken(c, blockchainDI.TxReader, func(sr di.ServiceRegistry) *ethereum.TxReader {
		log := sr.Get("logger").(logger.LoggerInterface)
		return ethereum.NewTxReader(blockchainDI.GetRPC(sr), log)
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewBlockchainService(
			blockchainDI.GetHeadTracker(sr),
			blockchainDI.GetGasOracle(sr),
			blockchainDI.GetTxReader(sr),
			app.ServiceConfig{ReceiptPollInterval: cfg.Transfer.ReceiptPollInterval},
			log,
		)
	})

	// Register Submitter (public - nil without a signing key)
	di.RegisterToken(c, blockchainDI.Submitter, func(sr di.ServiceRegistry) *ethereum.Submitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		signer, err := ethereum.LoadSigner(cfg.Signer)
		if err != nil {
			log.Warn(context.Background(), "no signer available, transfers disabled", "error", err)
			return nil
		}

		sub, err := ethereum.NewSubmitter(blockchainDI.GetRPC(sr), signer, cfg.Ethereum.ChainID, log)
		if err != nil {
			panic("failed to create submitter: " + err.Error())
		}
		return sub
	})

	return nil
}

// Startup verifies the node serves the configured chain.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	rpc := blockchainDI.GetRPC(mono.Services())
	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		log.Error(ctx, "failed to read chain id", "error", err)
		// Don't fail - the health check reports the node
	} else if chainID.Uint64() != cfg.Ethereum.ChainID {
		log.Warn(ctx, "node chain id differs from configuration",
			"node", chainID.Uint64(), "configured", cfg.Ethereum.ChainID)
	}

	if sub := blockchainDI.GetSubmitter(mono.Services()); sub != nil {
		log.Info(ctx, "signer ready", "account", sub.Account().Hex())
	}

	log.Info(ctx, "blockchain module started", "chain_id", cfg.Ethereum.ChainID)
	return nil
}
