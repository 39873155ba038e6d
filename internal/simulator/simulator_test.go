package simulator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	projectrpc "github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_FirstMatchWins(t *testing.T) {
	tests := []struct {
		name string
		err  string
		logs []string
		want string
	}{
		{"insufficient funds", "Transfer: insufficient lamports 100, need 200", nil, ClassInsufficientFunds},
		{"compute budget", "", []string{"Program consumed 1400001 units", "exceeded CUs meter at BPF instruction"}, ClassComputeBudget},
		{"slippage by message", "Slippage tolerance exceeded", nil, ClassSlippage},
		{"slippage by numeric code", "custom program error: 0x1771", nil, ClassSlippage},
		{"exact-out mismatch code", "", []string{"Program JUP6 failed: custom program error: 0x1786"}, ClassSlippage},
		{"generic custom error", "custom program error: 0x1", nil, ClassCustomProgramError},
		{"oversized", "encoded solana_transaction too large: 1680 bytes", nil, ClassTransactionTooBig},
		{"stale blockhash", "BlockhashNotFound", nil, ClassStaleBlockhash},
		{"account not found", "", []string{"Program log: could not find account"}, ClassAccountNotFound},
		{"invalid account data", "invalid account data for instruction", nil, ClassInvalidAccountData},
		{"program failure", "Program failed to complete", nil, ClassProgramFailed},
		{"unknown", "some brand new failure mode", nil, ClassUnknown},
		{"no signal at all", "", nil, ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err, tt.logs))
		})
	}
}

func TestClassify_ChecksLogsWhenErrorIsOpaque(t *testing.T) {
	// Top-level errors are often just {"InstructionError":[2,...]}; the
	// useful signal lives in the logs.
	got := classify("{InstructionError: [2 Custom:6001]}", []string{
		"Program log: Error: Slippage tolerance exceeded",
	})
	assert.Equal(t, ClassSlippage, got)
}

func simServer(t *testing.T, value map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"result": map[string]any{"value": value},
		})
	}))
}

func newSimulator(t *testing.T, url string) *Simulator {
	t.Helper()
	client := projectrpc.NewClient(projectrpc.ClientConfig{BaseURL: url, Timeout: 2 * time.Second})
	mgr, err := projectrpc.NewManager(projectrpc.ManagerConfig{Primary: client})
	require.NoError(t, err)
	s, err := NewSimulator(Config{RPC: mgr, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return s
}

func dummyTx(t *testing.T) *solana.Transaction {
	t.Helper()
	w := solana.NewWallet()
	ix := system.NewTransferInstruction(1, w.PublicKey(), solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix},
		solana.HashFromBytes(make([]byte, 32)), solana.TransactionPayer(w.PublicKey()))
	require.NoError(t, err)
	return tx
}

func TestSimulate_Success(t *testing.T) {
	srv := simServer(t, map[string]any{
		"err":           nil,
		"logs":          []string{"Program 11111111111111111111111111111111 success"},
		"unitsConsumed": 2100,
	})
	defer srv.Close()

	s := newSimulator(t, srv.URL)
	res := s.Simulate(context.Background(), dummyTx(t))

	assert.True(t, res.Success)
	assert.EqualValues(t, 2100, res.UnitsConsumed)
	assert.Empty(t, res.ErrorClass)
}

func TestSimulate_ClassifiedFailure(t *testing.T) {
	srv := simServer(t, map[string]any{
		"err":  "custom program error: 0x1771",
		"logs": []string{"Program log: slippage"},
	})
	defer srv.Close()

	s := newSimulator(t, srv.URL)
	res := s.Simulate(context.Background(), dummyTx(t))

	assert.False(t, res.Success)
	assert.Equal(t, ClassSlippage, res.ErrorClass)
	assert.NotEmpty(t, res.RawError)
}

func TestSimulate_TransportErrorBecomesException(t *testing.T) {
	s := newSimulator(t, "http://rpc.invalid")
	res := s.Simulate(context.Background(), dummyTx(t))

	assert.False(t, res.Success)
	assert.Equal(t, ClassException, res.ErrorClass)
}

func TestCheckProfitability(t *testing.T) {
	gas := int64(EstimatedGasFeeLamports)

	profitable := CheckProfitability(1_000_000, uint64(1_000_000+gas+1))
	assert.Equal(t, VerdictProfitable, profitable.Verdict)
	assert.EqualValues(t, 1, profitable.NetProfitLamports)

	breakEven := CheckProfitability(1_000_000, uint64(1_000_000+gas))
	assert.Equal(t, VerdictBreakEven, breakEven.Verdict)
	assert.Zero(t, breakEven.NetProfitLamports)

	loss := CheckProfitability(1_000_000, 1_000_000)
	assert.Equal(t, VerdictLoss, loss.Verdict)
	assert.Negative(t, loss.NetProfitLamports)
	assert.NotEmpty(t, loss.Reason)
}
