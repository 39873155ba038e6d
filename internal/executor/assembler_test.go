package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/jupiter"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/txbuilder"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedBlockhash struct{}

func (fixedBlockhash) GetLatestBlockhash(context.Context, ...string) (solana.Hash, error) {
	return solana.HashFromBytes(make([]byte, 32)), nil
}

// quoteStub serves the quote source's /quote and /swap endpoints, handing
// back a pre-signed base swap transaction and recording quoted leg amounts.
type quoteStub struct {
	swapTx    string
	outAmount map[string]string // inputMint -> quoted out amount
	amounts   []string          // requested amounts in order
}

func (s *quoteStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		in := r.URL.Query().Get("inputMint")
		amount := r.URL.Query().Get("amount")
		s.amounts = append(s.amounts, amount)
		_ = json.NewEncoder(w).Encode(jupiter.QuoteResponse{
			InputMint:  in,
			OutputMint: r.URL.Query().Get("outputMint"),
			InAmount:   amount,
			OutAmount:  s.outAmount[in],
		})
	})
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jupiter.SwapResponse{SwapTransaction: s.swapTx})
	})
	return mux
}

func newTestAssembler(t *testing.T, baseURL string) *SwapAssembler {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	mgr, err := rpc.NewManager(rpc.ManagerConfig{
		Primary: rpc.NewClient(rpc.ClientConfig{BaseURL: "http://127.0.0.1:0", Logger: logger}),
		Logger:  logger,
	})
	require.NoError(t, err)

	key := solana.NewWallet().PrivateKey
	w, err := wallet.NewWallet(wallet.WalletConfig{PrivateKey: key.String()}, mgr)
	require.NoError(t, err)

	builder, err := txbuilder.NewBuilder(txbuilder.BuilderConfig{
		Signer:    w,
		Blockhash: fixedBlockhash{},
		Logger:    logger,
	})
	require.NoError(t, err)

	a, err := NewSwapAssembler(SwapAssemblerConfig{
		Jupiter: jupiter.NewClient(jupiter.ClientConfig{BaseURL: baseURL, RPS: 1000}),
		Wallet:  w,
		Builder: builder,
	})
	require.NoError(t, err)
	return a
}

// baseSwapTx builds the signed transaction the stub hands back as the
// upstream swap payload, with the assembler's wallet as fee payer.
func baseSwapTx(t *testing.T, a *SwapAssembler) string {
	t.Helper()
	ix := system.NewTransferInstruction(1, a.wallet.PublicKey(), solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix},
		solana.HashFromBytes(make([]byte, 32)), solana.TransactionPayer(a.wallet.PublicKey()))
	require.NoError(t, err)
	require.NoError(t, a.wallet.SignTx(tx))

	encoded, err := txbuilder.Serialize(tx)
	require.NoError(t, err)
	return encoded
}

// An event-driven opportunity carries only its path; every leg must be
// quoted and assembled from scratch.
func TestAssemble_FrontrunPathWithoutQuotes(t *testing.T) {
	stub := &quoteStub{outAmount: map[string]string{
		constants.TokenMints["SOL"]: "200000000",
		constants.TokenMints["JUP"]: "501000000",
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	a := newTestAssembler(t, srv.URL)
	stub.swapTx = baseSwapTx(t, a)

	opp, err := models.NewOpportunity(models.StrategyFrontrun, []string{"SOL", "JUP", "SOL"}, time.Minute)
	require.NoError(t, err)
	opp.InAmount = 500_000_000

	txs, err := a.Assemble(context.Background(), opp)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Leg 1 is quoted at the opportunity's input; leg 2 chains off leg 1's
	// quoted output.
	require.Len(t, stub.amounts, 2)
	assert.Equal(t, "500000000", stub.amounts[0])
	assert.Equal(t, "200000000", stub.amounts[1])

	// Both legs carry the compute-budget pair; the tip transfer rides only
	// on the final leg.
	assert.Len(t, txs[0].Message.Instructions, 3)
	assert.Len(t, txs[1].Message.Instructions, 4)
}

func TestAssemble_QuotedLegsUsePinnedAmounts(t *testing.T) {
	stub := &quoteStub{outAmount: map[string]string{
		constants.TokenMints["SOL"]: "200000000",
		constants.TokenMints["JUP"]: "501000000",
	}}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	a := newTestAssembler(t, srv.URL)
	stub.swapTx = baseSwapTx(t, a)

	opp, err := models.NewOpportunity(models.StrategyCyclic, []string{"SOL", "JUP", "SOL"}, time.Minute)
	require.NoError(t, err)
	opp.InAmount = 500_000_000
	opp.Quotes = []*models.Quote{
		{InputMint: constants.TokenMints["SOL"], OutputMint: constants.TokenMints["JUP"], InAmount: 500_000_000, OutAmount: 200_000_000, SlippageBps: 50},
		{InputMint: constants.TokenMints["JUP"], OutputMint: constants.TokenMints["SOL"], InAmount: 200_000_000, OutAmount: 501_000_000, SlippageBps: 50},
	}

	txs, err := a.Assemble(context.Background(), opp)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, []string{"500000000", "200000000"}, stub.amounts)
}

func TestAssemble_RejectsEmptyOpportunity(t *testing.T) {
	srv := httptest.NewServer((&quoteStub{}).handler())
	defer srv.Close()

	a := newTestAssembler(t, srv.URL)

	opp := &models.Opportunity{ID: "bare", Strategy: models.StrategyFrontrun}
	_, err := a.Assemble(context.Background(), opp)
	require.Error(t, err)
}
