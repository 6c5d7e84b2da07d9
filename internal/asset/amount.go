package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset       = errors.New("asset: nil asset")
	ErrNegativeAmount = errors.New("asset: negative amount")
	ErrAssetMismatch  = errors.New("asset: cannot operate on different assets")
)

// Amount is an immutable quantity of an asset in minor units.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount copies raw into an Amount. raw must be non-negative.
func NewAmount(a *Asset, raw *big.Int) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if raw == nil {
		raw = new(big.Int)
	}
	if raw.Sign() < 0 {
		return Amount{}, ErrNegativeAmount
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}, nil
}

// MustAmount is NewAmount for values known to be valid.
func MustAmount(a *Asset, raw *big.Int) Amount {
	amt, err := NewAmount(a, raw)
	if err != nil {
		panic(err)
	}
	return amt
}

// Zero returns the zero amount of a.
func Zero(a *Asset) Amount {
	return Amount{raw: new(big.Int), asset: a}
}

// ParseString parses a user-entered decimal string in the asset's precision.
func ParseString(a *Asset, s string) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	raw, err := ToMinorUnits(s, a.Decimals())
	if err != nil {
		return Amount{}, err
	}
	return Amount{raw: raw, asset: a}, nil
}

// Raw returns a copy of the minor-unit value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset { return a.asset }

func (a Amount) IsZero() bool { return a.raw == nil || a.raw.Sign() == 0 }

func (a Amount) IsPositive() bool { return a.raw != nil && a.raw.Sign() > 0 }

// Add sums two amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	return Amount{raw: new(big.Int).Add(a.Raw(), b.Raw()), asset: a.asset}, nil
}

// SubFloor subtracts b and clamps the result at zero.
func (a Amount) SubFloor(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	diff := new(big.Int).Sub(a.Raw(), b.Raw())
	if diff.Sign() < 0 {
		diff.SetInt64(0)
	}
	return Amount{raw: diff, asset: a.asset}, nil
}

// Percent returns floor(a * pct / 100).
func (a Amount) Percent(pct int64) Amount {
	if pct < 0 {
		pct = 0
	}
	v := new(big.Int).Mul(a.Raw(), big.NewInt(pct))
	v.Quo(v, big.NewInt(100))
	return Amount{raw: v, asset: a.asset}
}

// Cmp compares two amounts of the same asset.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameAsset(b); err != nil {
		return 0, err
	}
	return a.Raw().Cmp(b.Raw()), nil
}

// GreaterThan reports a > b; mismatched assets compare false.
func (a Amount) GreaterThan(b Amount) bool {
	c, err := a.Cmp(b)
	return err == nil && c > 0
}

// ToDecimal converts to a decimal value. Display only.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.asset == nil {
		return decimal.Zero
	}
	return ToDecimal(a.raw, a.asset.Decimals())
}

// Text returns the exact decimal representation without the symbol.
func (a Amount) Text() string {
	if a.asset == nil {
		return "0"
	}
	return FromMinorUnits(a.raw, a.asset.Decimals())
}

// FiatValue multiplies the amount by a unit price. Display only.
func (a Amount) FiatValue(unitPrice decimal.Decimal) decimal.Decimal {
	return a.ToDecimal().Mul(unitPrice)
}

// String renders "<value> <symbol>" rounded to 6 places.
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", FormatDisplay(a.raw, a.asset.Decimals(), 6), a.asset.Symbol())
}

func (a Amount) checkSameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if a.asset.ID() != b.asset.ID() {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.Symbol(), b.asset.Symbol())
	}
	return nil
}
