package domain

import (
	"math/big"
	"time"
)

// WaitPolicy turns a tier's wait bounds into a single estimate.
type WaitPolicy string

const (
	// WaitCongestionAverage averages min and max and scales by (1 + congestion).
	WaitCongestionAverage WaitPolicy = "congestion_average"
	// WaitMaxBound uses the tier's max wait as is.
	WaitMaxBound WaitPolicy = "max_bound"
)

// ParseWaitPolicy maps config text to a policy, defaulting to congestion average.
func ParseWaitPolicy(s string) WaitPolicy {
	if WaitPolicy(s) == WaitMaxBound {
		return WaitMaxBound
	}
	return WaitCongestionAverage
}

// EstimateWait applies the policy to a tier suggestion.
func (p WaitPolicy) EstimateWait(sg TierSuggestion, congestion float64) time.Duration {
	if p == WaitMaxBound {
		return sg.MaxWait
	}
	if congestion < 0 {
		congestion = 0
	}
	if congestion > 1 {
		congestion = 1
	}
	avg := float64(sg.MinWait+sg.MaxWait) / 2
	return time.Duration(avg * (1 + congestion)).Round(time.Millisecond)
}

// EffectiveGasPrice is what a transaction pays per gas: base fee plus priority
// fee when the base fee is known, capped at the max fee. Without a base fee,
// or without a priority fee, the max fee is used.
func EffectiveGasPrice(baseFee, priorityFee, maxFee *big.Int) *big.Int {
	if baseFee == nil || baseFee.Sign() <= 0 || priorityFee == nil {
		if maxFee == nil {
			return new(big.Int)
		}
		return new(big.Int).Set(maxFee)
	}
	price := new(big.Int).Add(baseFee, priorityFee)
	if maxFee != nil && maxFee.Sign() > 0 && price.Cmp(maxFee) > 0 {
		price.Set(maxFee)
	}
	return price
}

// TransactionEstimate is the displayed outcome for a submitted transaction.
type TransactionEstimate struct {
	Tier     Tier
	Wait     time.Duration
	Cost     *big.Int
	GasUnits uint64
}

// FeeFigures are the fee fields read back from a submitted transaction.
type FeeFigures struct {
	GasLimit       uint64
	MaxPriorityFee *big.Int
	MaxFee         *big.Int
	GasPrice       *big.Int
}

// Actual returns the priority and max fee the classifier should see: the
// EIP-1559 fields when present, otherwise the legacy gas price in both slots.
// A dynamic fee transaction keeps its priority fee even when it is zero.
func (f FeeFigures) Actual() (priority, maxFee *big.Int) {
	maxFee = firstPositive(f.MaxFee, f.GasPrice)
	if f.MaxPriorityFee != nil {
		return new(big.Int).Set(f.MaxPriorityFee), maxFee
	}
	return firstPositive(f.GasPrice), maxFee
}

// Estimate classifies fees against the snapshot and derives wait and cost.
func Estimate(f FeeFigures, s FeeTierSnapshot, policy WaitPolicy) TransactionEstimate {
	priority, maxFee := f.Actual()
	tier := ClassifyTier(priority, maxFee, s)

	var baseFee *big.Int
	if f.MaxPriorityFee != nil {
		baseFee = s.BaseFee
	}
	price := EffectiveGasPrice(baseFee, priority, maxFee)

	return TransactionEstimate{
		Tier:     tier,
		Wait:     policy.EstimateWait(s.Suggestion(tier), s.Congestion),
		Cost:     new(big.Int).Mul(new(big.Int).SetUint64(f.GasLimit), price),
		GasUnits: f.GasLimit,
	}
}

func firstPositive(vals ...*big.Int) *big.Int {
	for _, v := range vals {
		if v != nil && v.Sign() > 0 {
			return new(big.Int).Set(v)
		}
	}
	return new(big.Int)
}
