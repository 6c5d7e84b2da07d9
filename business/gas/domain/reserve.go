// Package domain holds the gas math: reserve requirements, max-sendable
// amounts, fee tiers and transaction estimates. Everything here is pure.
package domain

import (
	"math/big"
)

// Reference buffer policy: 4% of the cost, never less than 1e14 wei.
const (
	DefaultBufferDivisor = 25
	DefaultMinimumBuffer = 100_000_000_000_000
)

// BufferPolicy decides the safety margin added on top of a gas cost.
type BufferPolicy struct {
	Divisor *big.Int
	Minimum *big.Int
}

// DefaultBufferPolicy returns the reference policy.
func DefaultBufferPolicy() BufferPolicy {
	return BufferPolicy{
		Divisor: big.NewInt(DefaultBufferDivisor),
		Minimum: big.NewInt(DefaultMinimumBuffer),
	}
}

// NewBufferPolicy builds a policy. A non-positive divisor falls back to the default.
func NewBufferPolicy(divisor int64, minimum *big.Int) BufferPolicy {
	p := DefaultBufferPolicy()
	if divisor > 0 {
		p.Divisor = big.NewInt(divisor)
	}
	if minimum != nil && minimum.Sign() >= 0 {
		p.Minimum = new(big.Int).Set(minimum)
	}
	return p
}

// Buffer returns max(cost / Divisor, Minimum). Unset fields take the
// default policy's values.
func (p BufferPolicy) Buffer(cost *big.Int) *big.Int {
	divisor, minimum := p.Divisor, p.Minimum
	if divisor == nil || divisor.Sign() <= 0 {
		divisor = big.NewInt(DefaultBufferDivisor)
	}
	if minimum == nil {
		minimum = big.NewInt(DefaultMinimumBuffer)
	}

	candidate := new(big.Int).Quo(cost, divisor)
	if candidate.Cmp(minimum) < 0 {
		return new(big.Int).Set(minimum)
	}
	return candidate
}

// Requirement is the breakdown of a required gas reserve.
type Requirement struct {
	GasUnits uint64
	GasPrice *big.Int
	Cost     *big.Int
	Buffer   *big.Int
	Total    *big.Int
}

// Required computes units * price plus the policy buffer. Negative prices are
// treated as zero.
func (p BufferPolicy) Required(units uint64, price *big.Int) Requirement {
	gasPrice := new(big.Int)
	if price != nil && price.Sign() > 0 {
		gasPrice.Set(price)
	}

	cost := new(big.Int).Mul(new(big.Int).SetUint64(units), gasPrice)
	buffer := p.Buffer(cost)

	return Requirement{
		GasUnits: units,
		GasPrice: gasPrice,
		Cost:     cost,
		Buffer:   buffer,
		Total:    new(big.Int).Add(cost, buffer),
	}
}

// RequiredGas is Required(units, price).Total under the default policy.
func RequiredGas(units uint64, price *big.Int) *big.Int {
	return DefaultBufferPolicy().Required(units, price).Total
}

// MaxSendable returns max(balance - reserve, 0) for the native asset.
func MaxSendable(balance, reserve *big.Int) *big.Int {
	out := new(big.Int)
	if balance == nil {
		return out
	}
	out.Set(balance)
	if reserve != nil {
		out.Sub(out, reserve)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

// HasGasShortfall reports whether a transfer cannot cover its reserve.
// Native transfers pay gas from what remains after the amount; token
// transfers pay it from the whole native balance.
func HasGasShortfall(isNative bool, nativeBalance, amount, required *big.Int) bool {
	available := new(big.Int)
	if nativeBalance != nil {
		available.Set(nativeBalance)
	}
	if isNative && amount != nil {
		available.Sub(available, amount)
	}
	return available.Cmp(required) < 0
}
