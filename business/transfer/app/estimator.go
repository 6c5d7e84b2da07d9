package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/retry"
)

// EstimatorConfig holds configuration for the transaction estimator.
type EstimatorConfig struct {
	Lookup     retry.Policy
	WaitPolicy gasDomain.WaitPolicy
}

// DefaultEstimatorConfig retries lookups 5 times a second apart and averages
// wait bounds scaled by congestion.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Lookup:     retry.LookupPolicy(),
		WaitPolicy: gasDomain.WaitCongestionAverage,
	}
}

// Estimator turns a submitted transaction's fee fields into a tier, wait and
// cost against a fee snapshot.
type Estimator struct {
	lookup TxLookup
	cfg    EstimatorConfig
	logger logger.LoggerInterface
}

// NewEstimator creates a new Estimator.
func NewEstimator(lookup TxLookup, cfg EstimatorConfig, log logger.LoggerInterface) *Estimator {
	if cfg.Lookup.Attempts == 0 {
		cfg.Lookup = retry.LookupPolicy()
	}
	if cfg.WaitPolicy == "" {
		cfg.WaitPolicy = gasDomain.WaitCongestionAverage
	}
	return &Estimator{lookup: lookup, cfg: cfg, logger: log}
}

// Estimate returns nil when the transaction cannot be found within the retry
// policy or the context ends first. Callers proceed without an estimate.
func (e *Estimator) Estimate(ctx context.Context, chainID uint64, hash common.Hash, snap gasDomain.FeeTierSnapshot) *gasDomain.TransactionEstimate {
	tx, err := retry.Do(ctx, e.cfg.Lookup, func(ctx context.Context) (*blockchainDomain.TxDetails, error) {
		return e.lookup.LookupTransaction(ctx, chainID, hash)
	}, retry.WithNotify(func(attempt uint, err error, next time.Duration) {
		e.logger.Debug(ctx, "transaction not visible yet", "hash", hash.Hex(), "attempt", attempt, "retry_in", next, "error", err)
	}))
	if err != nil || tx == nil {
		e.logger.Warn(ctx, "transaction not found after retries, estimate unavailable", "hash", hash.Hex(), "error", err)
		return nil
	}

	est := gasDomain.Estimate(FeeFigures(tx), snap, e.cfg.WaitPolicy)
	e.logger.Info(ctx, "transaction estimated",
		"hash", hash.Hex(),
		"tier", est.Tier,
		"wait", est.Wait,
		"gas_limit", est.GasUnits,
		"cost_wei", est.Cost.String(),
		"congestion", snap.Congestion)
	return &est
}

// FeeFigures extracts the fee fields the classifier needs.
func FeeFigures(tx *blockchainDomain.TxDetails) gasDomain.FeeFigures {
	return gasDomain.FeeFigures{
		GasLimit:       tx.GasLimit,
		MaxPriorityFee: tx.MaxPriorityFee,
		MaxFee:         tx.MaxFee,
		GasPrice:       tx.GasPrice,
	}
}
