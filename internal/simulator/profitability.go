package simulator

import (
	"fmt"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
)

// Gas assumptions for the profitability estimate. A fixed compute-unit count
// at a fixed micro-lamport rate plus the base signature fee; deliberately
// conservative rather than fetched per call.
const (
	AssumedComputeUnits     = 400_000
	MicroLamportsPerUnit    = 10_000
	EstimatedGasFeeLamports = constants.BaseFeeLamports + AssumedComputeUnits*MicroLamportsPerUnit/1_000_000
)

// Profitability verdicts.
const (
	VerdictProfitable = "profitable"
	VerdictBreakEven  = "break_even"
	VerdictLoss       = "loss"
)

// ProfitabilityResult reports the fee-adjusted economics of a candidate
// trade.
type ProfitabilityResult struct {
	GrossProfitLamports int64
	GasFeeLamports      int64
	NetProfitLamports   int64
	Verdict             string
	Reason              string
}

// CheckProfitability estimates whether a trade with the given input and
// expected output still makes money after gas. Pure with respect to its
// inputs.
func CheckProfitability(inputLamports, expectedOutputLamports uint64) ProfitabilityResult {
	gross := int64(expectedOutputLamports) - int64(inputLamports)
	gas := int64(EstimatedGasFeeLamports)
	net := gross - gas

	r := ProfitabilityResult{
		GrossProfitLamports: gross,
		GasFeeLamports:      gas,
		NetProfitLamports:   net,
	}

	switch {
	case net > 0:
		r.Verdict = VerdictProfitable
		r.Reason = fmt.Sprintf("net profit %d lamports after %d lamports gas", net, gas)
	case net == 0:
		r.Verdict = VerdictBreakEven
		r.Reason = fmt.Sprintf("gross profit %d lamports exactly covers %d lamports gas", gross, gas)
	default:
		r.Verdict = VerdictLoss
		r.Reason = fmt.Sprintf("net loss %d lamports: gross %d does not cover %d lamports gas", -net, gross, gas)
	}
	return r
}
