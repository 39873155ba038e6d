package txbuilder

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	projectrpc "github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/sirupsen/logrus"
)

// Signer signs rebuilt transactions with the fee payer's key.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTx(tx *solana.Transaction) error
}

// BlockhashSource provides a current state reference for recompiled messages.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment ...string) (solana.Hash, error)
}

// Builder rewrites otherwise-immutable transactions. A compiled message
// cannot be edited in place, so every change is decompile -> patch ->
// recompile -> re-sign, producing a new value and leaving the input untouched.
type Builder struct {
	rpc       *projectrpc.Manager
	signer    Signer
	blockhash BlockhashSource
	logger    *logrus.Logger
}

// BuilderConfig holds dependencies for the builder.
type BuilderConfig struct {
	RPC       *projectrpc.Manager
	Signer    Signer
	Blockhash BlockhashSource
	Logger    *logrus.Logger
}

func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if cfg.Signer == nil {
		return nil, fmt.Errorf("txbuilder: signer is required")
	}
	if cfg.Blockhash == nil {
		return nil, fmt.Errorf("txbuilder: blockhash source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Builder{
		rpc:       cfg.RPC,
		signer:    cfg.Signer,
		blockhash: cfg.Blockhash,
		logger:    cfg.Logger,
	}, nil
}

// AddPriorityFee returns a new signed transaction with compute-budget
// instructions prepended: a unit limit and a per-unit price in micro-lamports.
// Pre-existing compute-budget instructions are filtered out first so applying
// the fee twice never yields duplicate instruction sets.
func (b *Builder) AddPriorityFee(ctx context.Context, tx *solana.Transaction, microLamports uint64, computeLimit uint32) (*solana.Transaction, error) {
	tables, err := b.resolveLookupTables(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("resolve lookup tables: %w", err)
	}

	ixs, err := decompileMessage(&tx.Message, tables)
	if err != nil {
		return nil, fmt.Errorf("decompile message: %w", err)
	}
	ixs = filterComputeBudget(ixs)

	limitIx, err := computebudget.NewSetComputeUnitLimitInstruction(computeLimit).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build compute unit limit: %w", err)
	}
	priceIx, err := computebudget.NewSetComputeUnitPriceInstruction(microLamports).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build compute unit price: %w", err)
	}

	patched := make([]solana.Instruction, 0, len(ixs)+2)
	patched = append(patched, limitIx, priceIx)
	patched = append(patched, ixs...)

	return b.recompile(ctx, tx, patched, tables)
}

// AddAtomicTip returns a new signed transaction with a tip transfer appended
// as the final instruction, so the tip only pays out if everything before it
// succeeded.
func (b *Builder) AddAtomicTip(ctx context.Context, tx *solana.Transaction, tipLamports uint64, tipAccount solana.PublicKey) (*solana.Transaction, error) {
	if tipLamports == 0 {
		return nil, fmt.Errorf("tip amount is zero")
	}
	if tipAccount.IsZero() {
		return nil, fmt.Errorf("tip account is zero")
	}

	tables, err := b.resolveLookupTables(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("resolve lookup tables: %w", err)
	}

	ixs, err := decompileMessage(&tx.Message, tables)
	if err != nil {
		return nil, fmt.Errorf("decompile message: %w", err)
	}

	tipIx := system.NewTransferInstruction(tipLamports, b.signer.PublicKey(), tipAccount).Build()
	ixs = append(ixs, tipIx)

	return b.recompile(ctx, tx, ixs, tables)
}

// BuildStandaloneTip constructs a minimal single-instruction tip transaction
// for bundles where the tip travels as its own member.
func (b *Builder) BuildStandaloneTip(ctx context.Context, tipLamports uint64, tipAccount solana.PublicKey) (*solana.Transaction, error) {
	if tipLamports == 0 {
		return nil, fmt.Errorf("tip amount is zero")
	}
	if tipAccount.IsZero() {
		return nil, fmt.Errorf("tip account is zero")
	}

	blockhash, err := b.blockhash.GetLatestBlockhash(ctx, "confirmed")
	if err != nil {
		return nil, fmt.Errorf("get blockhash: %w", err)
	}

	tipIx := system.NewTransferInstruction(tipLamports, b.signer.PublicKey(), tipAccount).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{tipIx},
		blockhash,
		solana.TransactionPayer(b.signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("build tip transaction: %w", err)
	}

	if err := b.signer.SignTx(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// RandomTipAccount picks a tip-receiving account from the fixed pool,
// randomized to avoid concentrating load on one account.
func RandomTipAccount() solana.PublicKey {
	addr := constants.TipAccounts[rand.Intn(len(constants.TipAccounts))]
	return solana.MustPublicKeyFromBase58(addr)
}

// Serialize encodes a transaction to its wire-transportable base64 form. Pure
// transform, no side effects.
func Serialize(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// recompile rebuilds a message from explicit instructions with the same fee
// payer and a current state reference, then re-signs.
func (b *Builder) recompile(ctx context.Context, old *solana.Transaction, ixs []solana.Instruction, tables map[solana.PublicKey]solana.PublicKeySlice) (*solana.Transaction, error) {
	if len(old.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("transaction has no account keys")
	}
	payer := old.Message.AccountKeys[0]

	blockhash, err := b.blockhash.GetLatestBlockhash(ctx, "confirmed")
	if err != nil {
		return nil, fmt.Errorf("get blockhash: %w", err)
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(payer)}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}

	tx, err := solana.NewTransaction(ixs, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("recompile transaction: %w", err)
	}

	if err := b.signer.SignTx(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// filterComputeBudget drops any pre-existing compute-budget instructions to
// avoid duplicates on rebuild.
func filterComputeBudget(ixs []solana.Instruction) []solana.Instruction {
	out := make([]solana.Instruction, 0, len(ixs))
	for _, ix := range ixs {
		if ix.ProgramID().Equals(computebudget.ProgramID) {
			continue
		}
		out = append(out, ix)
	}
	return out
}
