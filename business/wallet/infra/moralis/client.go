// Package moralis lists wallet token balances and prices from the Moralis
// wallet API.
package moralis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/circuitbreaker"
	"github.com/fd1az/transfer-dashboard/internal/httpclient"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

const (
	tracerName = "github.com/fd1az/transfer-dashboard/business/wallet/infra/moralis"

	// BaseAPIURL is the deep index host.
	BaseAPIURL = "https://deep-index.moralis.io"

	httpTimeout               = 10 * time.Second
	defaultMaxTokenInactivity = 60
)

// nativePlaceholder is the token_address Moralis reports for native coins.
var nativePlaceholder = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")

// Config holds configuration for the Moralis client.
type Config struct {
	APIKey  string
	BaseURL string // empty = BaseAPIURL
	Timeout time.Duration
	// MaxTokenInactivity hides tokens without activity for that many days.
	MaxTokenInactivity int
}

// TokensResponse mirrors /api/v2.2/wallets/{address}/tokens.
type TokensResponse struct {
	Cursor string        `json:"cursor"`
	Result []WalletToken `json:"result"`
}

// WalletToken is one entry of the token list.
type WalletToken struct {
	TokenAddress     string              `json:"token_address"`
	Symbol           string              `json:"symbol"`
	Name             string              `json:"name"`
	Logo             string              `json:"logo"`
	Decimals         flexUint8           `json:"decimals"`
	Balance          string              `json:"balance"`
	BalanceFormatted string              `json:"balance_formatted"`
	UsdPrice         decimal.NullDecimal `json:"usd_price"`
	PossibleSpam     bool                `json:"possible_spam"`
	NativeToken      bool                `json:"native_token"`
}

// Client implements wallet/app.TokenLister.
type Client struct {
	client *httpclient.Client
	config Config
	cb     *circuitbreaker.CircuitBreaker[*TokensResponse]
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewClient creates a new Moralis client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("moralis api key is required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}
	if cfg.MaxTokenInactivity <= 0 {
		cfg.MaxTokenInactivity = defaultMaxTokenInactivity
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.New(
		httpclient.WithProvider("moralis"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer, httpclient.TraceHeaders, httpclient.TraceResponse),
		httpclient.WithHeader("Accept", "application/json"),
		httpclient.WithHeader("X-API-Key", cfg.APIKey),
		httpclient.WithSecret(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("moralis-tokens")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Client{
		client: client,
		config: cfg,
		cb:     circuitbreaker.New[*TokensResponse](cbCfg),
		logger: log,
		tracer: tracer,
	}, nil
}

// ListTokens fetches the account's tokens on chainID.
func (c *Client) ListTokens(ctx context.Context, chainID uint64, account common.Address) ([]domain.Token, error) {
	ctx, span := c.tracer.Start(ctx, "moralis.wallet_tokens",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(chainID)),
			attribute.String("account", account.Hex()),
		),
	)
	defer span.End()

	chain, err := asset.MustChain(chainID)
	if err != nil {
		return nil, err
	}
	if chain.MoralisSlug == "" {
		return nil, apperror.Validation(apperror.CodeUnsupportedChain,
			fmt.Sprintf("no token api slug for chain id %d", chainID))
	}

	resp, err := c.cb.Execute(func() (*TokensResponse, error) {
		return c.fetch(ctx, chain.MoralisSlug, account)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tokens := make([]domain.Token, 0, len(resp.Result))
	for _, wt := range resp.Result {
		tok, err := wt.ToToken(chainID)
		if err != nil {
			c.logger.Debug(ctx, "skipping malformed token entry",
				"symbol", wt.Symbol, "address", wt.TokenAddress, "error", err)
			continue
		}
		tokens = append(tokens, tok)
	}

	span.SetAttributes(attribute.Int("tokens", len(tokens)))
	return tokens, nil
}

func (c *Client) fetch(ctx context.Context, chain string, account common.Address) (*TokensResponse, error) {
	var result TokensResponse
	path := fmt.Sprintf("/api/v2.2/wallets/%s/tokens", account.Hex())

	resp, err := c.client.Get(ctx, path,
		httpclient.Endpoint("wallet_tokens"),
		httpclient.Label("chain", chain),
		httpclient.Query("chain", chain),
		httpclient.Query("max_token_inactivity", strconv.Itoa(c.config.MaxTokenInactivity)),
		httpclient.Into(&result),
		httpclient.DecodeErrors(moralisErrorHandler),
	)

	if err != nil {
		return nil, apperror.New(apperror.CodeMoralisAPIError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch wallet tokens"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeMoralisAPIError,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	return &result, nil
}

// ToToken converts an entry, mapping the native placeholder to the chain's
// native asset id.
func (w WalletToken) ToToken(chainID uint64) (domain.Token, error) {
	balance, ok := new(big.Int).SetString(strings.TrimSpace(w.Balance), 10)
	if !ok || balance.Sign() < 0 {
		return domain.Token{}, apperror.Validation(apperror.CodeInvalidAmount, "balance: "+w.Balance)
	}

	id := asset.NativeID(chainID)
	if !w.NativeToken {
		if !common.IsHexAddress(w.TokenAddress) {
			return domain.Token{}, apperror.Validation(apperror.CodeInvalidInput, "token_address: "+w.TokenAddress)
		}
		addr := common.HexToAddress(w.TokenAddress)
		if addr != nativePlaceholder {
			id = asset.TokenID(chainID, addr)
		}
	}

	a, err := asset.NewAsset(id, w.Symbol, w.Name, uint8(w.Decimals))
	if err != nil {
		return domain.Token{}, err
	}

	tok := domain.Token{
		Asset:        a,
		Balance:      balance,
		Logo:         w.Logo,
		PossibleSpam: w.PossibleSpam,
	}
	if w.UsdPrice.Valid {
		price := w.UsdPrice.Decimal
		tok.UsdPrice = &price
	}
	return tok, nil
}

// flexUint8 accepts decimals as a JSON number or a quoted number.
type flexUint8 uint8

func (f *flexUint8) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(string(b), 10, 8)
	if err != nil {
		return fmt.Errorf("decimals: %w", err)
	}
	*f = flexUint8(n)
	return nil
}

// APIError is the error body returned by the wallet API.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moralis API error %d: %s", e.Status, e.Message)
}

func moralisErrorHandler(statusCode int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.Status = statusCode
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}
