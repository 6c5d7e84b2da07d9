package asset

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// GweiDecimals is the precision of gwei relative to wei.
const GweiDecimals = 9

// ToMinorUnits converts a decimal string such as "1.5" into minor units at
// the given precision. Negative, malformed, or over-precise input fails with
// CodeInvalidAmount.
func ToMinorUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "empty amount")
	}
	// decimal accepts exponents; user amounts must be plain digits.
	if strings.ContainsAny(s, "eE") {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "exponent notation not allowed: "+s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithCause(err),
			apperror.WithContext("not a number: "+s))
	}
	return DecimalToMinorUnits(d, decimals)
}

// DecimalToMinorUnits scales d by 10^decimals, refusing fractional results.
func DecimalToMinorUnits(d decimal.Decimal, decimals uint8) (*big.Int, error) {
	if d.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "negative amount: "+d.String())
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, apperror.Validation(apperror.CodeInvalidAmount,
			fmt.Sprintf("more than %d decimal places: %s", decimals, d.String()))
	}
	return scaled.BigInt(), nil
}

// FromMinorUnits renders raw at the given precision without trailing zeros.
func FromMinorUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ToDecimal converts raw minor units to a decimal value for display math.
func ToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ParseGwei converts a gwei string (fee suggestion format) into wei.
// Sub-wei digits are truncated, matching how fee APIs over-report precision.
func ParseGwei(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithCause(err),
			apperror.WithContext("invalid gwei value: "+s))
	}
	if d.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "negative gwei value: "+s)
	}
	return d.Shift(GweiDecimals).Truncate(0).BigInt(), nil
}

// FormatGwei renders wei as gwei with at most places decimals.
func FormatGwei(wei *big.Int, places int32) string {
	return ToDecimal(wei, GweiDecimals).Round(places).String()
}

// FormatDisplay rounds raw to maxDecimals for display only.
func FormatDisplay(raw *big.Int, decimals uint8, maxDecimals int32) string {
	d := ToDecimal(raw, decimals)
	if d.IsZero() {
		return "0"
	}
	return d.Round(maxDecimals).String()
}
