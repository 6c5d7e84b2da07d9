// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fd1az/transfer-dashboard/internal/asset"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Gas       GasConfig       `mapstructure:"gas"`
	Fees      FeesConfig      `mapstructure:"fees"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Signer    SignerConfig    `mapstructure:"signer"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
	Stream    StreamConfig    `mapstructure:"stream"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// EthereumConfig selects the node. HTTPURL wins over an Alchemy key.
type EthereumConfig struct {
	HTTPURL      string `mapstructure:"http_url"`
	WebSocketURL string `mapstructure:"websocket_url"`
	AlchemyKey   string `mapstructure:"alchemy_key"`
	ChainID      uint64 `mapstructure:"chain_id"`
}

// RPCURL resolves the HTTP endpoint for the configured chain.
func (c EthereumConfig) RPCURL() (string, error) {
	if c.HTTPURL != "" {
		return c.HTTPURL, nil
	}
	chain, err := asset.MustChain(c.ChainID)
	if err != nil {
		return "", err
	}
	return chain.RPCURL(c.AlchemyKey)
}

// GasConfig holds the reserve policy. Wei values are decimal strings so they
// survive YAML and env without float rounding.
type GasConfig struct {
	BufferDivisor     int64         `mapstructure:"buffer_divisor"`
	MinimumBufferWei  string        `mapstructure:"minimum_buffer_wei"`
	FallbackReserve   string        `mapstructure:"fallback_reserve"`
	NativeTransferGas uint64        `mapstructure:"native_transfer_gas"`
	TokenTransferGas  uint64        `mapstructure:"token_transfer_gas"`
	InputDebounce     time.Duration `mapstructure:"input_debounce"`
	PriceCacheTTL     time.Duration `mapstructure:"price_cache_ttl"`
	FailingAmountTTL  time.Duration `mapstructure:"failing_amount_ttl"`
	MaxGasPriceGwei   string        `mapstructure:"max_gas_price_gwei"`
	EstimateMarginPct int64         `mapstructure:"estimate_margin_pct"`
}

// MinimumBuffer parses MinimumBufferWei.
func (c GasConfig) MinimumBuffer() (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(c.MinimumBufferWei), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("gas.minimum_buffer_wei: invalid value %q", c.MinimumBufferWei)
	}
	return v, nil
}

// FallbackReserveWei converts FallbackReserve from native units to wei.
func (c GasConfig) FallbackReserveWei() (*big.Int, error) {
	return asset.ToMinorUnits(c.FallbackReserve, asset.NativeDecimals)
}

// MaxGasPrice converts MaxGasPriceGwei to wei; empty means no cap.
func (c GasConfig) MaxGasPrice() (*big.Int, error) {
	if strings.TrimSpace(c.MaxGasPriceGwei) == "" {
		return nil, nil
	}
	return asset.ParseGwei(c.MaxGasPriceGwei)
}

// FeesConfig configures the fee suggestion feed.
type FeesConfig struct {
	InfuraKey       string        `mapstructure:"infura_key"`
	BaseURL         string        `mapstructure:"base_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	// WaitPolicy is "congestion_average" or "max_bound".
	WaitPolicy string `mapstructure:"wait_policy"`
}

// TransferConfig configures the lifecycle controller and its polling.
type TransferConfig struct {
	Confirmations       uint64        `mapstructure:"confirmations"`
	DisplayDuration     time.Duration `mapstructure:"display_duration"`
	StatusPollInterval  time.Duration `mapstructure:"status_poll_interval"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	LookupAttempts      uint          `mapstructure:"lookup_attempts"`
	LookupDelay         time.Duration `mapstructure:"lookup_delay"`
	StatusAttempts      uint          `mapstructure:"status_attempts"`
}

// WalletConfig configures the token list provider.
type WalletConfig struct {
	MoralisKey         string        `mapstructure:"moralis_key"`
	BaseURL            string        `mapstructure:"base_url"`
	MaxTokenInactivity int           `mapstructure:"max_token_inactivity"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
}

// PricingConfig configures the USD ticker used for tokens listed without a price.
type PricingConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// SignerConfig selects where the signing key comes from.
type SignerConfig struct {
	// Source is "env" or "keyring".
	Source          string `mapstructure:"source"`
	PrivateKey      string `mapstructure:"private_key"`
	KeyringService  string `mapstructure:"keyring_service"`
	KeyringDir      string `mapstructure:"keyring_dir"`
	KeyringPassword string `mapstructure:"keyring_password"`
	KeyRef          string `mapstructure:"key_ref"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig configures the probe server.
type HealthConfig struct {
	Port          int           `mapstructure:"port"`
	FeeStaleAfter time.Duration `mapstructure:"fee_stale_after"`
}

// StreamConfig configures the websocket snapshot stream. Port 0 disables it.
type StreamConfig struct {
	Port         int           `mapstructure:"port"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ClientBuffer int           `mapstructure:"client_buffer"`
}

// Load reads configuration from an optional file and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("TRANSFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.log_level", "TRANSFER_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.environment", "TRANSFER_ENVIRONMENT", "ENVIRONMENT")

	v.BindEnv("ethereum.http_url", "TRANSFER_ETH_HTTP_URL", "ETHEREUM_RPC_URL")
	v.BindEnv("ethereum.websocket_url", "TRANSFER_ETH_WS_URL", "ETHEREUM_WS_URL")
	v.BindEnv("ethereum.alchemy_key", "TRANSFER_ALCHEMY_KEY", "ALCHEMY_API_KEY")
	v.BindEnv("ethereum.chain_id", "TRANSFER_CHAIN_ID", "CHAIN_ID")

	v.BindEnv("fees.infura_key", "TRANSFER_INFURA_KEY", "INFURA_API_KEY")
	v.BindEnv("wallet.moralis_key", "TRANSFER_MORALIS_KEY", "MORALIS_API_KEY")
	v.BindEnv("pricing.enabled", "TRANSFER_PRICING_ENABLED")

	v.BindEnv("signer.source", "TRANSFER_SIGNER_SOURCE")
	v.BindEnv("signer.private_key", "TRANSFER_PRIVATE_KEY")
	v.BindEnv("signer.key_ref", "TRANSFER_KEY_REF")
	v.BindEnv("signer.keyring_password", "TRANSFER_KEYRING_PASSWORD")

	v.BindEnv("telemetry.enabled", "TRANSFER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "TRANSFER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "TRANSFER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "transfer-dashboard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("ethereum.chain_id", asset.ChainIDSepolia)

	v.SetDefault("gas.buffer_divisor", 25)
	v.SetDefault("gas.minimum_buffer_wei", "100000000000000")
	v.SetDefault("gas.fallback_reserve", "0.001")
	v.SetDefault("gas.native_transfer_gas", 21000)
	v.SetDefault("gas.token_transfer_gas", 65000)
	v.SetDefault("gas.input_debounce", "500ms")
	v.SetDefault("gas.price_cache_ttl", "6s")
	v.SetDefault("gas.failing_amount_ttl", "1m")
	v.SetDefault("gas.max_gas_price_gwei", "")
	v.SetDefault("gas.estimate_margin_pct", 0)

	v.SetDefault("fees.base_url", "https://gas.api.infura.io")
	v.SetDefault("fees.refresh_interval", "12s")
	v.SetDefault("fees.requests_per_min", 60)
	v.SetDefault("fees.request_timeout", "10s")
	v.SetDefault("fees.wait_policy", "congestion_average")

	v.SetDefault("transfer.confirmations", 2)
	v.SetDefault("transfer.display_duration", "5s")
	v.SetDefault("transfer.status_poll_interval", "3s")
	v.SetDefault("transfer.receipt_poll_interval", "2s")
	v.SetDefault("transfer.lookup_attempts", 5)
	v.SetDefault("transfer.lookup_delay", "1s")
	v.SetDefault("transfer.status_attempts", 5)

	v.SetDefault("wallet.base_url", "https://deep-index.moralis.io")
	v.SetDefault("wallet.max_token_inactivity", 60)
	v.SetDefault("wallet.request_timeout", "10s")
	v.SetDefault("wallet.cache_ttl", "30s")

	v.SetDefault("pricing.enabled", true)
	v.SetDefault("pricing.base_url", "https://api.binance.com")
	v.SetDefault("pricing.request_timeout", "10s")
	v.SetDefault("pricing.cache_ttl", "1m")

	v.SetDefault("signer.source", "env")
	v.SetDefault("signer.keyring_service", "transfer-dashboard")
	v.SetDefault("signer.key_ref", "default")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "transfer-dashboard")
	v.SetDefault("telemetry.trace_provider", "console")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8081)
	v.SetDefault("health.fee_stale_after", "1m")

	v.SetDefault("stream.port", 0)
	v.SetDefault("stream.write_timeout", "5s")
	v.SetDefault("stream.client_buffer", 16)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" && c.Ethereum.AlchemyKey == "" {
		return fmt.Errorf("ethereum.http_url or ethereum.alchemy_key is required")
	}
	if _, err := c.Ethereum.RPCURL(); err != nil {
		return fmt.Errorf("ethereum: %w", err)
	}
	if c.Gas.BufferDivisor <= 0 {
		return fmt.Errorf("gas.buffer_divisor must be positive, got %d", c.Gas.BufferDivisor)
	}
	if _, err := c.Gas.MinimumBuffer(); err != nil {
		return err
	}
	if _, err := c.Gas.FallbackReserveWei(); err != nil {
		return fmt.Errorf("gas.fallback_reserve: %w", err)
	}
	if _, err := c.Gas.MaxGasPrice(); err != nil {
		return fmt.Errorf("gas.max_gas_price_gwei: %w", err)
	}
	if c.Gas.NativeTransferGas == 0 || c.Gas.TokenTransferGas == 0 {
		return fmt.Errorf("gas fallback units must be positive")
	}
	if c.Fees.InfuraKey == "" {
		return fmt.Errorf("fees.infura_key is required")
	}
	if c.Fees.RefreshInterval <= 0 {
		return fmt.Errorf("fees.refresh_interval must be positive")
	}
	switch c.Fees.WaitPolicy {
	case "congestion_average", "max_bound":
	default:
		return fmt.Errorf("fees.wait_policy: unknown policy %q", c.Fees.WaitPolicy)
	}
	if c.Transfer.StatusPollInterval <= 0 || c.Transfer.LookupAttempts == 0 {
		return fmt.Errorf("transfer polling must have a positive interval and at least one attempt")
	}
	switch c.Signer.Source {
	case "env", "keyring":
	default:
		return fmt.Errorf("signer.source: unknown source %q", c.Signer.Source)
	}
	return nil
}
