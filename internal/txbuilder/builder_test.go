package txbuilder

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSigner struct {
	priv solana.PrivateKey
}

func (s testSigner) PublicKey() solana.PublicKey { return s.priv.PublicKey() }

func (s testSigner) SignTx(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.priv.PublicKey()) {
			return &s.priv
		}
		return nil
	})
	return err
}

type fixedBlockhash struct {
	hash solana.Hash
}

func (f fixedBlockhash) GetLatestBlockhash(_ context.Context, _ ...string) (solana.Hash, error) {
	return f.hash, nil
}

func newTestBuilder(t *testing.T) (*Builder, testSigner) {
	t.Helper()
	signer := testSigner{priv: solana.NewWallet().PrivateKey}
	b, err := NewBuilder(BuilderConfig{
		Signer:    signer,
		Blockhash: fixedBlockhash{hash: solana.HashFromBytes(make([]byte, 32))},
	})
	require.NoError(t, err)
	return b, signer
}

func baseSwapTx(t *testing.T, signer testSigner) *solana.Transaction {
	t.Helper()
	dest := solana.NewWallet().PublicKey()
	ix := system.NewTransferInstruction(1_000, signer.PublicKey(), dest).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.HashFromBytes(make([]byte, 32)),
		solana.TransactionPayer(signer.PublicKey()),
	)
	require.NoError(t, err)
	require.NoError(t, signer.SignTx(tx))
	return tx
}

func countProgramIxs(t *testing.T, tx *solana.Transaction, program solana.PublicKey) int {
	t.Helper()
	n := 0
	for _, ci := range tx.Message.Instructions {
		prog, err := tx.Message.Program(ci.ProgramIDIndex)
		require.NoError(t, err)
		if prog.Equals(program) {
			n++
		}
	}
	return n
}

func TestAddPriorityFee_PrependsBudgetInstructions(t *testing.T) {
	b, signer := newTestBuilder(t)
	base := baseSwapTx(t, signer)

	out, err := b.AddPriorityFee(context.Background(), base, 10_000, 200_000)
	require.NoError(t, err)

	require.Len(t, out.Message.Instructions, 3)
	first, err := out.Message.Program(out.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.True(t, first.Equals(computebudget.ProgramID))
	assert.Equal(t, 2, countProgramIxs(t, out, computebudget.ProgramID))

	// Fee payer carried over.
	assert.True(t, out.Message.AccountKeys[0].Equals(signer.PublicKey()))
}

func TestAddPriorityFee_TwiceFiltersDuplicates(t *testing.T) {
	b, signer := newTestBuilder(t)
	base := baseSwapTx(t, signer)

	once, err := b.AddPriorityFee(context.Background(), base, 10_000, 200_000)
	require.NoError(t, err)
	twice, err := b.AddPriorityFee(context.Background(), once, 25_000, 300_000)
	require.NoError(t, err)

	// Still exactly one compute-budget instruction set.
	assert.Equal(t, 2, countProgramIxs(t, twice, computebudget.ProgramID))
	assert.Len(t, twice.Message.Instructions, 3)
}

func TestAddPriorityFee_DoesNotMutateInput(t *testing.T) {
	b, signer := newTestBuilder(t)
	base := baseSwapTx(t, signer)
	before := len(base.Message.Instructions)

	_, err := b.AddPriorityFee(context.Background(), base, 10_000, 200_000)
	require.NoError(t, err)

	assert.Equal(t, before, len(base.Message.Instructions))
	assert.Equal(t, 0, countProgramIxs(t, base, computebudget.ProgramID))
}

func TestAddAtomicTip_AppendsTransfer(t *testing.T) {
	b, signer := newTestBuilder(t)
	base := baseSwapTx(t, signer)
	tip := RandomTipAccount()

	out, err := b.AddAtomicTip(context.Background(), base, 50_000, tip)
	require.NoError(t, err)

	require.Len(t, out.Message.Instructions, 2)
	last := out.Message.Instructions[len(out.Message.Instructions)-1]
	prog, err := out.Message.Program(last.ProgramIDIndex)
	require.NoError(t, err)
	assert.True(t, prog.Equals(solana.SystemProgramID))
}

func TestAddAtomicTip_RejectsZeroInputs(t *testing.T) {
	b, signer := newTestBuilder(t)
	base := baseSwapTx(t, signer)

	_, err := b.AddAtomicTip(context.Background(), base, 0, RandomTipAccount())
	assert.ErrorContains(t, err, "tip amount is zero")

	_, err = b.AddAtomicTip(context.Background(), base, 1_000, solana.PublicKey{})
	assert.ErrorContains(t, err, "tip account is zero")
}

func TestBuildStandaloneTip(t *testing.T) {
	b, signer := newTestBuilder(t)

	tx, err := b.BuildStandaloneTip(context.Background(), 100_000, RandomTipAccount())
	require.NoError(t, err)

	require.Len(t, tx.Message.Instructions, 1)
	assert.True(t, tx.Message.AccountKeys[0].Equals(signer.PublicKey()))
	require.Len(t, tx.Signatures, 1)
}

func TestSerialize_RoundTrips(t *testing.T) {
	b, _ := newTestBuilder(t)
	tx, err := b.BuildStandaloneTip(context.Background(), 100_000, RandomTipAccount())
	require.NoError(t, err)

	encoded, err := Serialize(tx)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	decoded, err := solana.TransactionFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, len(tx.Message.Instructions), len(decoded.Message.Instructions))
}
