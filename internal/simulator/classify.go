package simulator

import "strings"

// Error classifications for failed dry runs.
const (
	ClassInsufficientFunds  = "insufficient_funds"
	ClassComputeBudget      = "compute_budget_exceeded"
	ClassSlippage           = "slippage_exceeded"
	ClassCustomProgramError = "custom_program_error"
	ClassTransactionTooBig  = "transaction_too_large"
	ClassStaleBlockhash     = "stale_blockhash"
	ClassAccountNotFound    = "account_not_found"
	ClassInvalidAccountData = "invalid_account_data"
	ClassProgramFailed      = "program_execution_failure"
	ClassUnknown            = "unknown_simulation_error"
	ClassException          = "simulation_exception"
)

type errorPattern struct {
	class    string
	patterns []string
}

// classifyTable is checked in order against both the top-level error and the
// simulation log lines; first match wins. The numeric slippage codes sit
// ahead of the generic custom-program-error entry so they classify as
// slippage rather than being swallowed by the broader pattern.
var classifyTable = []errorPattern{
	{ClassInsufficientFunds, []string{"insufficient funds", "insufficient lamports", "insufficient account balance"}},
	{ClassComputeBudget, []string{"exceeded cus meter", "computational budget exceeded", "compute budget exceeded"}},
	{ClassSlippage, []string{
		"slippage tolerance exceeded",
		"0x1771", // Jupiter 6001: slippage tolerance exceeded
		"0x1786", // Jupiter 6022: exact-out amount mismatch
		"exceeds desired slippage limit",
	}},
	{ClassCustomProgramError, []string{"custom program error"}},
	{ClassTransactionTooBig, []string{"transaction too large", "encoded solana_transaction too large", "versionedtransaction too large"}},
	{ClassStaleBlockhash, []string{"blockhash not found", "blockhashnotfound"}},
	{ClassAccountNotFound, []string{"accountnotfound", "account not found", "could not find account", "attempt to debit an account but found no record"}},
	{ClassInvalidAccountData, []string{"invalid account data", "invalidaccountdata", "account data too small"}},
	{ClassProgramFailed, []string{"program failed to complete", "instructionerror", "program error"}},
}

// classify maps a simulation failure to its first matching known class. The
// error string and the log lines are both searched; no match yields the
// unknown class.
func classify(errStr string, logs []string) string {
	haystacks := make([]string, 0, len(logs)+1)
	if errStr != "" {
		haystacks = append(haystacks, strings.ToLower(errStr))
	}
	for _, l := range logs {
		haystacks = append(haystacks, strings.ToLower(l))
	}

	for _, entry := range classifyTable {
		for _, pattern := range entry.patterns {
			for _, hay := range haystacks {
				if strings.Contains(hay, pattern) {
					return entry.class
				}
			}
		}
	}
	return ClassUnknown
}
