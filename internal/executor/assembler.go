package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/jupiter"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/txbuilder"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/wallet"
	"github.com/gagliardetto/solana-go"
)

// SwapAssembler turns an opportunity's legs into signed transactions: one
// swap per leg, each carrying a priority fee, with the tip appended to the
// final leg so it only pays out when the whole bundle lands. Polling
// strategies attach a quote chain; event-driven opportunities carry only a
// path and have each leg quoted here, at assembly time.
type SwapAssembler struct {
	jupiter *jupiter.Client
	wallet  *wallet.Wallet
	builder *txbuilder.Builder

	priorityFeeMicroLamports uint64
	computeUnitLimit         uint32
	tipLamports              uint64
	slippageBps              uint16
}

type SwapAssemblerConfig struct {
	Jupiter *jupiter.Client
	Wallet  *wallet.Wallet
	Builder *txbuilder.Builder

	PriorityFeeMicroLamports uint64
	ComputeUnitLimit         uint32
	TipLamports              uint64
	// Slippage applied to legs quoted at assembly time.
	SlippageBps uint16
}

func NewSwapAssembler(cfg SwapAssemblerConfig) (*SwapAssembler, error) {
	if cfg.Jupiter == nil || cfg.Wallet == nil || cfg.Builder == nil {
		return nil, fmt.Errorf("assembler: jupiter, wallet and builder are required")
	}
	if cfg.PriorityFeeMicroLamports == 0 {
		cfg.PriorityFeeMicroLamports = 10_000
	}
	if cfg.ComputeUnitLimit == 0 {
		cfg.ComputeUnitLimit = 400_000
	}
	if cfg.TipLamports == 0 {
		cfg.TipLamports = 100_000
	}
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = 50
	}
	return &SwapAssembler{
		jupiter:                  cfg.Jupiter,
		wallet:                   cfg.Wallet,
		builder:                  cfg.Builder,
		priorityFeeMicroLamports: cfg.PriorityFeeMicroLamports,
		computeUnitLimit:         cfg.ComputeUnitLimit,
		tipLamports:              cfg.TipLamports,
		slippageBps:              cfg.SlippageBps,
	}, nil
}

func (a *SwapAssembler) Assemble(ctx context.Context, opp *models.Opportunity) ([]*solana.Transaction, error) {
	var (
		txs []*solana.Transaction
		err error
	)
	if len(opp.Quotes) > 0 {
		txs, err = a.assembleQuoted(ctx, opp)
	} else {
		txs, err = a.assemblePath(ctx, opp)
	}
	if err != nil {
		return nil, err
	}

	for i, tx := range txs {
		tx, err = a.builder.AddPriorityFee(ctx, tx, a.priorityFeeMicroLamports, a.computeUnitLimit)
		if err != nil {
			return nil, fmt.Errorf("leg %d priority fee: %w", i+1, err)
		}
		if i == len(txs)-1 {
			tx, err = a.builder.AddAtomicTip(ctx, tx, a.tipLamports, txbuilder.RandomTipAccount())
			if err != nil {
				return nil, fmt.Errorf("leg %d tip: %w", i+1, err)
			}
		}
		txs[i] = tx
	}
	return txs, nil
}

func (a *SwapAssembler) assembleQuoted(ctx context.Context, opp *models.Opportunity) ([]*solana.Transaction, error) {
	txs := make([]*solana.Transaction, 0, len(opp.Quotes))
	for i, leg := range opp.Quotes {
		tx, _, err := a.buildLeg(ctx, leg.InputMint, leg.OutputMint, leg.InAmount, leg.SlippageBps)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// assemblePath builds legs from the asset path alone, quoting each leg now
// and chaining the quoted output into the next leg's input.
func (a *SwapAssembler) assemblePath(ctx context.Context, opp *models.Opportunity) ([]*solana.Transaction, error) {
	if len(opp.Path) < 2 {
		return nil, fmt.Errorf("opportunity %s carries no quotes and no usable path", opp.ID)
	}
	if opp.InAmount == 0 {
		return nil, fmt.Errorf("opportunity %s has no input amount", opp.ID)
	}

	amount := opp.InAmount
	txs := make([]*solana.Transaction, 0, len(opp.Path)-1)
	for i := 0; i+1 < len(opp.Path); i++ {
		tx, out, err := a.buildLeg(ctx, mintFor(opp.Path[i]), mintFor(opp.Path[i+1]), amount, a.slippageBps)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		amount = out
		txs = append(txs, tx)
	}
	return txs, nil
}

// buildLeg asks the quote source to assemble the base swap transaction for
// one leg and reports the quoted output amount. The leg is quoted raw
// because swap assembly consumes the upstream payload verbatim.
func (a *SwapAssembler) buildLeg(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*solana.Transaction, uint64, error) {
	raw, err := a.jupiter.RawQuote(ctx, jupiter.QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      strconv.FormatUint(amount, 10),
		SlippageBps: &slippageBps,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("raw quote: %w", err)
	}
	outAmount, err := strconv.ParseUint(raw.OutAmount, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("parse quoted out amount %q: %w", raw.OutAmount, err)
	}

	swap, err := a.jupiter.Swap(ctx, jupiter.SwapRequest{
		UserPublicKey:    a.wallet.Address(),
		QuoteResponse:    raw,
		WrapAndUnwrapSol: true,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("swap assembly: %w", err)
	}

	rawTx, err := base64.StdEncoding.DecodeString(swap.SwapTransaction)
	if err != nil {
		return nil, 0, fmt.Errorf("decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromBytes(rawTx)
	if err != nil {
		return nil, 0, fmt.Errorf("parse swap transaction: %w", err)
	}
	return tx, outAmount, nil
}

// mintFor resolves a path entry: known symbols map to their mint, anything
// else is taken as a raw mint address.
func mintFor(asset string) string {
	if mint, ok := constants.TokenMints[asset]; ok {
		return mint
	}
	return asset
}
