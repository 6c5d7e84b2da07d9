// Package binance reads spot tickers from the Binance REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/httpclient"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

const (
	tracerName = "github.com/fd1az/transfer-dashboard/business/pricing/infra/binance"

	// Binance REST API endpoints
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	tickerEndpoint = "/api/v3/ticker/price"

	httpTimeout = 10 * time.Second
)

// Config holds configuration for the Binance client.
type Config struct {
	BaseURL string        // API base URL (empty = default)
	Timeout time.Duration // Request timeout
}

// TickerResponse mirrors /api/v3/ticker/price.
type TickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Client implements pricing/app.TickerProvider.
type Client struct {
	client *httpclient.Client
	config Config
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewClient creates a new Binance client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.New(
		httpclient.WithProvider("binance"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer, httpclient.TraceResponse),
		httpclient.WithHeader("Accept", "application/json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
		logger: log,
		tracer: tracer,
	}, nil
}

// Ticker returns the last price of pair, e.g. ETHUSDT.
func (c *Client) Ticker(ctx context.Context, pair string) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "binance.ticker_price",
		trace.WithAttributes(attribute.String("symbol", pair)),
	)
	defer span.End()

	var result TickerResponse
	resp, err := c.client.Get(ctx, tickerEndpoint,
		httpclient.Endpoint("ticker_price"),
		httpclient.Label("symbol", pair),
		httpclient.Query("symbol", pair),
		httpclient.Into(&result),
		httpclient.DecodeErrors(binanceErrorHandler),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return decimal.Zero, apperror.New(apperror.CodeBinanceAPIError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch ticker"))
	}
	if resp.IsError() {
		return decimal.Zero, apperror.New(apperror.CodeBinanceAPIError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, apperror.New(apperror.CodeBinanceAPIError,
			apperror.WithCause(err),
			apperror.WithContext("malformed ticker price "+result.Price))
	}

	span.SetAttributes(attribute.String("price", price.String()))
	c.logger.Debug(ctx, "fetched ticker", "symbol", pair, "price", price.String())
	return price, nil
}

// APIError represents an error response from Binance API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}
