package scanner

import (
	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
)

// CostModel holds the per-leg cost terms used to turn a gross quote spread
// into modeled net profit. All outputs are in base-asset (SOL) units. The
// percentages and the slippage allowance are calibration choices, not
// measurements.
type CostModel struct {
	// Flat priority-fee estimate per trade, in SOL.
	PriorityFeeSOL float64
	// Platform fee taken by the route aggregator, as a fraction per leg.
	PlatformFeePct float64
	// Average pool fee across venues, as a fraction per leg.
	PoolFeePct float64
	// Worst-case slippage allowance, as a fraction per leg.
	SlippagePct float64
}

// DefaultCostModel mirrors observed mainnet conditions.
func DefaultCostModel() CostModel {
	return CostModel{
		PriorityFeeSOL: 0.0001,
		PlatformFeePct: 0.0010, // 10 bps
		PoolFeePct:     0.0025, // 25 bps
		SlippagePct:    0.0010, // 10 bps
	}
}

// TotalCost models the full cost of a trade of tradeSizeSOL across the given
// number of legs: fixed network fee per leg, one priority-fee estimate, and
// the percentage terms applied per leg against the trade size.
func (c CostModel) TotalCost(legs int, tradeSizeSOL float64) float64 {
	networkFee := float64(legs) * float64(constants.BaseFeeLamports) / constants.LamportsPerSOL
	pctTerms := (c.PlatformFeePct + c.PoolFeePct + c.SlippagePct) * float64(legs) * tradeSizeSOL
	return networkFee + c.PriorityFeeSOL + pctTerms
}

// Confidence scoring. Two-leg trades divide the profit/cost ratio by 3 and
// cap at 0.95; three-leg trades use a stricter divisor and cap (÷4, 0.85)
// reflecting the execution risk of the extra leg.
func confidenceTwoLeg(netProfit, totalCost float64) float64 {
	return clamp(netProfit/totalCost/3, 0.05, 0.95)
}

func confidenceThreeLeg(netProfit, totalCost float64) float64 {
	return clamp(netProfit/totalCost/4, 0.05, 0.85)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / constants.LamportsPerSOL
}

func solToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(sol * constants.LamportsPerSOL)
}
