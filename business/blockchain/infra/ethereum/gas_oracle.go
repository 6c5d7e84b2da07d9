package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/business/blockchain/app"
	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/cache"
	"github.com/fd1az/transfer-dashboard/internal/circuitbreaker"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

var _ app.GasOracle = (*GasOracle)(nil)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // how long to reuse a gas price
	MaxGasPrice *big.Int      // nil = uncapped
	MarginPct   int64         // added on top of node gas estimates
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL: 6 * time.Second, // half a block
	}
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	estimateGas     metric.Int64Counter
	estimateErrors  metric.Int64Counter
	cacheHits       metric.Int64Counter
}

// GasOracle prices and sizes transfers through the node.
type GasOracle struct {
	rpc    RPC
	config GasOracleConfig
	logger logger.LoggerInterface

	priceCache *cache.Cache[string, *big.Int]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(rpc RPC, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		rpc:        rpc,
		config:     cfg,
		logger:     log,
		priceCache: cache.New[string, *big.Int](time.Minute),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("gas-oracle")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	g.cb = circuitbreaker.New[*big.Int](cbCfg)

	return g, nil
}

// initMetrics initializes OTEL metric instruments.
func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateErrors, err = meter.Int64Counter(
		"gas_estimate_errors_total",
		metric.WithDescription("Gas estimations rejected by the node"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	return err
}

// GasPrice returns the node's gas price suggestion, cached briefly and
// capped at MaxGasPrice.
func (g *GasOracle) GasPrice(ctx context.Context) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return new(big.Int).Set(price), nil
	}

	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.rpc.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max", "wei", wei.String(), "max", g.config.MaxGasPrice.String())
		wei = new(big.Int).Set(g.config.MaxGasPrice)
	}

	if g.config.CacheTTL > 0 {
		g.priceCache.Set(ctx, "current", wei, g.config.CacheTTL)
	}

	gwei := asset.ToDecimal(wei, asset.GweiDecimals).InexactFloat64()
	g.metrics.gasPriceGwei.Record(ctx, gwei)
	span.SetAttributes(attribute.Float64("gwei", gwei))
	span.SetStatus(codes.Ok, "fetched")

	return new(big.Int).Set(wei), nil
}

// EstimateTransferGas asks the node how much gas the transfer would use.
func (g *GasOracle) EstimateTransferGas(ctx context.Context, call domain.TransferCall) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate_transfer",
		trace.WithAttributes(
			attribute.String("from", call.From.Hex()),
			attribute.String("to", call.To.Hex()),
			attribute.Bool("native", call.IsNative()),
		),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	msg, err := transferMsg(call)
	if err != nil {
		span.RecordError(err)
		return 0, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("build transfer call"))
	}

	gas, err := g.rpc.EstimateGas(ctx, msg)
	if err != nil {
		g.metrics.estimateErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("estimate transfer to %s", call.To.Hex())))
	}

	if g.config.MarginPct > 0 {
		gas += gas * uint64(g.config.MarginPct) / 100
	}

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")

	return gas, nil
}

// Close releases the price cache.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
