// Package infura fetches tiered EIP-1559 fee suggestions from the Infura gas API.
package infura

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/circuitbreaker"
	"github.com/fd1az/transfer-dashboard/internal/httpclient"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/transfer-dashboard/business/gas/infra/infura"
	meterName  = "github.com/fd1az/transfer-dashboard/business/gas/infra/infura"

	// BaseAPIURL is the public gas API host.
	BaseAPIURL = "https://gas.api.infura.io"

	httpTimeout           = 10 * time.Second
	defaultRequestsPerMin = 60
)

// Config holds configuration for the Infura client.
type Config struct {
	APIKey         string
	BaseURL        string        // empty = BaseAPIURL
	Timeout        time.Duration // request timeout
	RequestsPerMin int
}

// SuggestedFees mirrors the suggestedGasFees response.
type SuggestedFees struct {
	Low               TierFees `json:"low"`
	Medium            TierFees `json:"medium"`
	High              TierFees `json:"high"`
	EstimatedBaseFee  string   `json:"estimatedBaseFee"`
	NetworkCongestion float64  `json:"networkCongestion"`
}

// TierFees holds one tier. Fees are gwei decimal strings, waits milliseconds.
type TierFees struct {
	SuggestedMaxPriorityFeePerGas string  `json:"suggestedMaxPriorityFeePerGas"`
	SuggestedMaxFeePerGas         string  `json:"suggestedMaxFeePerGas"`
	MinWaitTimeEstimate           float64 `json:"minWaitTimeEstimate"`
	MaxWaitTimeEstimate           float64 `json:"maxWaitTimeEstimate"`
}

type clientMetrics struct {
	fetches    metric.Int64Counter
	failures   metric.Int64Counter
	congestion metric.Float64Gauge
}

// Client implements gas/app.FeeSuggestionProvider.
type Client struct {
	client  *httpclient.Client
	config  Config
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*SuggestedFees]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *clientMetrics
	now     func() time.Time
}

// NewClient creates a new Infura gas API client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("infura api key is required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = defaultRequestsPerMin
	}

	tracer := otel.Tracer(tracerName)

	// The key is part of the request path.
	client, err := httpclient.New(
		httpclient.WithProvider("infura"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer, httpclient.TraceResponse),
		httpclient.WithHeader("Accept", "application/json"),
		httpclient.WithSecret(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		client:  client,
		config:  cfg,
		limiter: ratelimit.New(cfg.RequestsPerMin, ratelimit.WithMaxWait(cfg.Timeout)),
		logger:  log,
		tracer:  tracer,
		now:     time.Now,
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("infura-gas")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[*SuggestedFees](cbCfg)

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.fetches, err = meter.Int64Counter(
		"fee_suggestion_fetches_total",
		metric.WithDescription("Total fee suggestion fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	c.metrics.failures, err = meter.Int64Counter(
		"fee_suggestion_failures_total",
		metric.WithDescription("Fee suggestion fetches that failed or were rejected"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	c.metrics.congestion, err = meter.Float64Gauge(
		"network_congestion",
		metric.WithDescription("Network congestion reported by the gas API"),
	)
	return err
}

// Suggest fetches and converts the fee tiers for chainID.
func (c *Client) Suggest(ctx context.Context, chainID uint64) (*domain.FeeTierSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "infura.suggested_gas_fees",
		trace.WithAttributes(attribute.Int64("chain_id", int64(chainID))),
	)
	defer span.End()

	chainAttr := metric.WithAttributes(attribute.Int64("chain_id", int64(chainID)))
	c.metrics.fetches.Add(ctx, 1, chainAttr)

	fees, err := c.cb.Execute(func() (*SuggestedFees, error) {
		return c.fetch(ctx, chainID)
	})
	if err != nil {
		c.metrics.failures.Add(ctx, 1, chainAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	snap, err := fees.ToSnapshot(chainID, c.now())
	if err == nil {
		err = snap.Validate()
	}
	if err != nil {
		c.metrics.failures.Add(ctx, 1, chainAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.metrics.congestion.Record(ctx, snap.Congestion, chainAttr)
	span.SetAttributes(
		attribute.Float64("congestion", snap.Congestion),
		attribute.String("base_fee_gwei", asset.FormatGwei(snap.BaseFee, 3)),
	)

	c.logger.Debug(ctx, "fetched fee suggestions",
		"chain_id", chainID,
		"congestion", snap.Congestion,
		"medium_max_fee_gwei", asset.FormatGwei(snap.Medium.MaxFee, 3))

	return snap, nil
}

func (c *Client) fetch(ctx context.Context, chainID uint64) (*SuggestedFees, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result SuggestedFees
	path := fmt.Sprintf("/v3/%s/networks/%s/suggestedGasFees", c.config.APIKey, strconv.FormatUint(chainID, 10))

	resp, err := c.client.Get(ctx, path,
		httpclient.Endpoint("suggestedGasFees"),
		httpclient.Label("chain_id", strconv.FormatUint(chainID, 10)),
		httpclient.Into(&result),
		httpclient.DecodeErrors(infuraErrorHandler),
	)

	if err != nil {
		return nil, apperror.New(apperror.CodeInfuraAPIError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch suggested gas fees"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeInfuraAPIError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	return &result, nil
}

// ToSnapshot converts gwei strings to wei exactly.
func (f *SuggestedFees) ToSnapshot(chainID uint64, fetchedAt time.Time) (*domain.FeeTierSnapshot, error) {
	low, err := f.Low.toSuggestion(domain.TierLow)
	if err != nil {
		return nil, err
	}
	medium, err := f.Medium.toSuggestion(domain.TierMedium)
	if err != nil {
		return nil, err
	}
	high, err := f.High.toSuggestion(domain.TierHigh)
	if err != nil {
		return nil, err
	}

	var baseFee *big.Int
	if f.EstimatedBaseFee != "" {
		baseFee, err = asset.ParseGwei(f.EstimatedBaseFee)
		if err != nil {
			return nil, apperror.New(apperror.CodeInvalidFeeSnapshot,
				apperror.WithCause(err),
				apperror.WithContext("estimatedBaseFee"))
		}
	}

	return &domain.FeeTierSnapshot{
		ChainID:    chainID,
		Low:        low,
		Medium:     medium,
		High:       high,
		BaseFee:    baseFee,
		Congestion: f.NetworkCongestion,
		FetchedAt:  fetchedAt,
	}, nil
}

func (t TierFees) toSuggestion(tier domain.Tier) (domain.TierSuggestion, error) {
	priority, err := asset.ParseGwei(t.SuggestedMaxPriorityFeePerGas)
	if err != nil {
		return domain.TierSuggestion{}, apperror.New(apperror.CodeInvalidFeeSnapshot,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s suggestedMaxPriorityFeePerGas", tier)))
	}
	maxFee, err := asset.ParseGwei(t.SuggestedMaxFeePerGas)
	if err != nil {
		return domain.TierSuggestion{}, apperror.New(apperror.CodeInvalidFeeSnapshot,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s suggestedMaxFeePerGas", tier)))
	}
	return domain.TierSuggestion{
		MaxPriorityFee: priority,
		MaxFee:         maxFee,
		MinWait:        millis(t.MinWaitTimeEstimate),
		MaxWait:        millis(t.MaxWaitTimeEstimate),
	}, nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// APIError is the error body returned by the gas API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("infura API error %d: %s", e.Status, e.Message)
}

// infuraErrorHandler parses gas API error responses.
func infuraErrorHandler(statusCode int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.Status = statusCode
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}
