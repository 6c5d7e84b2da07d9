package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/internal/cache"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// RequirementConfig tunes the requirement service.
type RequirementConfig struct {
	Policy            domain.BufferPolicy
	NativeTransferGas uint64
	TokenTransferGas  uint64
	// FallbackReserve is reported when pricing fails outright.
	FallbackReserve  *big.Int
	FailingAmountTTL time.Duration
}

// DefaultRequirementConfig mirrors the reference constants.
func DefaultRequirementConfig() RequirementConfig {
	return RequirementConfig{
		Policy:            domain.DefaultBufferPolicy(),
		NativeTransferGas: 21_000,
		TokenTransferGas:  65_000,
		FallbackReserve:   big.NewInt(1_000_000_000_000_000),
		FailingAmountTTL:  time.Minute,
	}
}

// RequirementInput is one pre-submission check.
type RequirementInput struct {
	ChainID       uint64
	Account       common.Address
	Recipient     common.Address
	Token         common.Address
	IsNative      bool
	Amount        *big.Int
	NativeBalance *big.Int
}

// RequirementResult reports the reserve needed and whether the wallet falls short.
type RequirementResult struct {
	Required    *big.Int
	Requirement domain.Requirement
	GasError    bool
	// Fallback is set when gas units or the whole reserve came from defaults.
	Fallback  bool
	FromCache bool
}

type failingEntry struct {
	amount *big.Int
	result RequirementResult
}

// RequirementService estimates the reserve a transfer needs and flags
// balances that cannot cover it.
type RequirementService struct {
	oracle  GasOracle
	cfg     RequirementConfig
	logger  logger.LoggerInterface
	failing *cache.Cache[string, failingEntry]
}

// NewRequirementService creates the service.
func NewRequirementService(oracle GasOracle, cfg RequirementConfig, log logger.LoggerInterface) *RequirementService {
	if cfg.FailingAmountTTL <= 0 {
		cfg.FailingAmountTTL = time.Minute
	}
	return &RequirementService{
		oracle:  oracle,
		cfg:     cfg,
		logger:  log,
		failing: cache.New[string, failingEntry](cfg.FailingAmountTTL),
	}
}

// Check estimates the reserve for in. Zero amounts and missing accounts need
// nothing. Estimation failures fall back to fixed gas units; a failure to price
// gas at all yields the fallback reserve with the gas error set. Check never
// returns an error for provider failures, only for a cancelled context.
func (s *RequirementService) Check(ctx context.Context, in RequirementInput) (RequirementResult, error) {
	if in.Account == (common.Address{}) || in.Amount == nil || in.Amount.Sign() == 0 {
		return RequirementResult{Required: new(big.Int)}, nil
	}

	key := s.failingKey(in)
	if entry, ok := s.failing.Get(ctx, key); ok && in.Amount.Cmp(entry.amount) >= 0 {
		res := entry.result
		res.FromCache = true
		return res, nil
	}

	price, err := s.oracle.GasPrice(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return RequirementResult{}, ctx.Err()
		}
		s.logger.Error(ctx, "unexpected error estimating gas", "error", err)
		return RequirementResult{
			Required: new(big.Int).Set(s.cfg.FallbackReserve),
			GasError: true,
			Fallback: true,
		}, nil
	}

	units, fallback := s.estimateUnits(ctx, in)
	req := s.cfg.Policy.Required(units, price)

	res := RequirementResult{
		Required:    req.Total,
		Requirement: req,
		GasError:    domain.HasGasShortfall(in.IsNative, in.NativeBalance, in.Amount, req.Total),
		Fallback:    fallback,
	}

	if res.GasError {
		s.failing.Set(ctx, key, failingEntry{amount: new(big.Int).Set(in.Amount), result: res}, s.cfg.FailingAmountTTL)
	} else {
		s.failing.Delete(ctx, key)
	}

	s.logger.Debug(ctx, "gas requirement",
		"units", units,
		"price", price.String(),
		"required", req.Total.String(),
		"gas_error", res.GasError,
		"fallback", fallback)

	return res, nil
}

func (s *RequirementService) estimateUnits(ctx context.Context, in RequirementInput) (uint64, bool) {
	call := TransferCall{
		From:   in.Account,
		To:     in.Recipient,
		Amount: new(big.Int).Set(in.Amount),
	}
	fallback := s.cfg.NativeTransferGas
	if !in.IsNative {
		token := in.Token
		call.Token = &token
		fallback = s.cfg.TokenTransferGas
	}

	units, err := s.oracle.EstimateTransferGas(ctx, call)
	if err != nil || units == 0 {
		s.logger.Warn(ctx, "gas estimate failed, using fallback units",
			"native", in.IsNative, "fallback", fallback, "error", err)
		return fallback, true
	}
	return units, false
}

// failingKey scopes cached failures to everything but the amount.
func (s *RequirementService) failingKey(in RequirementInput) string {
	balance := "0"
	if in.NativeBalance != nil {
		balance = in.NativeBalance.String()
	}
	return fmt.Sprintf("%d|%s|%s|%s|%t|%s",
		in.ChainID, in.Account.Hex(), in.Recipient.Hex(), in.Token.Hex(), in.IsNative, balance)
}

// Forget drops cached failures, e.g. after a chain or account switch.
func (s *RequirementService) Forget() {
	s.failing.Clear()
}

// Close releases background resources.
func (s *RequirementService) Close() {
	s.failing.Close()
}
