// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/transfer-dashboard/business/blockchain/app"
	"github.com/fd1az/transfer-dashboard/business/blockchain/infra/ethereum"
	"github.com/fd1az/transfer-dashboard/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
	// Submitter is nil when no signing key is configured.
	Submitter = di.NewToken[*ethereum.Submitter]("blockchain.Submitter")
)

// Private dependency tokens - internal to blockchain module
var (
	RPC         = di.NewToken[ethereum.RPC]("blockchain:rpc")
	HeadTracker = di.NewToken[*ethereum.HeadTracker]("blockchain:headTracker")
	GasOracle   = di.NewToken[*ethereum.GasOracle]("blockchain:gasOracle")
	TxReader    = di.NewToken[*ethereum.TxReader]("blockchain:txReader")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetSubmitter(c di.ServiceRegistry) *ethereum.Submitter {
	return di.GetToken(c, Submitter)
}

func GetRPC(c di.ServiceRegistry) ethereum.RPC {
	return di.GetToken(c, RPC)
}

func GetHeadTracker(c di.ServiceRegistry) *ethereum.HeadTracker {
	return di.GetToken(c, HeadTracker)
}

func GetGasOracle(c di.ServiceRegistry) *ethereum.GasOracle {
	return di.GetToken(c, GasOracle)
}

func GetTxReader(c di.ServiceRegistry) *ethereum.TxReader {
	return di.GetToken(c, TxReader)
}
