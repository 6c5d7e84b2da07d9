package domain

import "math/big"

// ClassifyTier buckets a transaction by the fees it actually pays.
//
// Priority fee is compared against each tier's suggested priority fee in
// ascending order. If it exceeds all of them the max fee is compared against
// the suggested max fees the same way. Legacy transactions carry their single
// gas price in both slots, so they land through one pass or the other.
// Anything still unmatched is High.
func ClassifyTier(priorityFee, maxFee *big.Int, s FeeTierSnapshot) Tier {
	for _, t := range Tiers {
		if lessOrEqual(priorityFee, s.Suggestion(t).MaxPriorityFee) {
			return t
		}
	}
	for _, t := range Tiers {
		if lessOrEqual(maxFee, s.Suggestion(t).MaxFee) {
			return t
		}
	}
	return TierHigh
}

// lessOrEqual compares fees, reading nil as zero.
func lessOrEqual(a, b *big.Int) bool {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	return a.Cmp(b) <= 0
}
