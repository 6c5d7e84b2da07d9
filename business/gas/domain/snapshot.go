package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// Tier is a fee priority bracket.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Tiers lists tiers in ascending order.
var Tiers = []Tier{TierLow, TierMedium, TierHigh}

// Label returns the human label for the tier.
func (t Tier) Label() string {
	switch t {
	case TierLow:
		return "Low Priority"
	case TierMedium:
		return "Medium Priority"
	case TierHigh:
		return "High Priority"
	default:
		return string(t)
	}
}

// TierSuggestion is one bracket of a fee quote. Fees are wei per gas.
type TierSuggestion struct {
	MaxPriorityFee *big.Int
	MaxFee         *big.Int
	MinWait        time.Duration
	MaxWait        time.Duration
}

// FeeTierSnapshot is a point-in-time fee quote for a chain.
type FeeTierSnapshot struct {
	ChainID    uint64
	Low        TierSuggestion
	Medium     TierSuggestion
	High       TierSuggestion
	BaseFee    *big.Int
	Congestion float64
	FetchedAt  time.Time
}

// Suggestion returns the bracket for t, defaulting to High for unknown tiers.
func (s FeeTierSnapshot) Suggestion(t Tier) TierSuggestion {
	switch t {
	case TierLow:
		return s.Low
	case TierMedium:
		return s.Medium
	default:
		return s.High
	}
}

// Validate checks congestion bounds and that suggested fees do not decrease
// from low to high.
func (s FeeTierSnapshot) Validate() error {
	if s.Congestion < 0 || s.Congestion > 1 {
		return apperror.Validation(apperror.CodeInvalidFeeSnapshot,
			fmt.Sprintf("congestion %.4f outside [0,1]", s.Congestion))
	}
	for _, t := range Tiers {
		sg := s.Suggestion(t)
		if sg.MaxPriorityFee == nil || sg.MaxFee == nil {
			return apperror.Validation(apperror.CodeInvalidFeeSnapshot, fmt.Sprintf("%s tier missing fees", t))
		}
		if sg.MinWait > sg.MaxWait {
			return apperror.Validation(apperror.CodeInvalidFeeSnapshot, fmt.Sprintf("%s tier min wait above max wait", t))
		}
	}
	pairs := [][2]TierSuggestion{{s.Low, s.Medium}, {s.Medium, s.High}}
	for _, p := range pairs {
		if p[0].MaxPriorityFee.Cmp(p[1].MaxPriorityFee) > 0 || p[0].MaxFee.Cmp(p[1].MaxFee) > 0 {
			return apperror.Validation(apperror.CodeInvalidFeeSnapshot, "suggested fees decrease across tiers")
		}
	}
	return nil
}

// Age returns how long ago the snapshot was fetched.
func (s FeeTierSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// CongestionLevel buckets the congestion scalar.
type CongestionLevel string

const (
	CongestionLow    CongestionLevel = "low"
	CongestionMedium CongestionLevel = "medium"
	CongestionHigh   CongestionLevel = "high"
)

// ClassifyCongestion maps [0,1] onto three levels at 0.33 and 0.66.
func ClassifyCongestion(c float64) CongestionLevel {
	switch {
	case c < 0.33:
		return CongestionLow
	case c < 0.66:
		return CongestionMedium
	default:
		return CongestionHigh
	}
}
