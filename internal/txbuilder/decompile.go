package txbuilder

import (
	"context"
	"encoding/base64"
	"fmt"

	projectrpc "github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
)

// resolveLookupTables fetches the address lookup tables a versioned message
// references so its compact account indexes can be expanded back into full
// account metas. Legacy messages resolve to an empty map.
func (b *Builder) resolveLookupTables(ctx context.Context, tx *solana.Transaction) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	lookups := tx.Message.AddressTableLookups
	if len(lookups) == 0 {
		return nil, nil
	}
	if b.rpc == nil {
		return nil, fmt.Errorf("transaction references lookup tables but no RPC manager is configured")
	}

	tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(lookups))
	for _, lookup := range lookups {
		if _, ok := tables[lookup.AccountKey]; ok {
			continue
		}
		addrs, err := b.fetchLookupTable(ctx, lookup.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("lookup table %s: %w", lookup.AccountKey, err)
		}
		tables[lookup.AccountKey] = addrs
	}
	return tables, nil
}

func (b *Builder) fetchLookupTable(ctx context.Context, key solana.PublicKey) (solana.PublicKeySlice, error) {
	var resp struct {
		Result struct {
			Value *struct {
				Data []string `json:"data"` // [payload, encoding]
			} `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		key.String(),
		map[string]any{"encoding": "base64", "commitment": "confirmed"},
	}

	if err := b.rpc.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("getAccountInfo error: %s", resp.Error.Message)
	}
	if resp.Result.Value == nil || len(resp.Result.Value.Data) == 0 {
		return nil, fmt.Errorf("account not found")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Result.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("invalid account data: %w", err)
	}

	state, err := addresslookuptable.DecodeAddressLookupTableState(raw)
	if err != nil {
		return nil, fmt.Errorf("decode lookup table state: %w", err)
	}
	return state.Addresses, nil
}

// decompileMessage expands a compiled message back into its explicit
// instruction list, resolving program IDs, account keys, and signer/writable
// flags through the provided lookup tables.
func decompileMessage(msg *solana.Message, tables map[solana.PublicKey]solana.PublicKeySlice) ([]solana.Instruction, error) {
	if len(tables) > 0 {
		if err := msg.SetAddressTables(tables); err != nil {
			return nil, fmt.Errorf("set address tables: %w", err)
		}
	}

	out := make([]solana.Instruction, 0, len(msg.Instructions))
	for i, ci := range msg.Instructions {
		prog, err := msg.Program(ci.ProgramIDIndex)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: resolve program: %w", i, err)
		}

		metas := make([]*solana.AccountMeta, 0, len(ci.Accounts))
		for _, accIdx := range ci.Accounts {
			key, err := msg.Account(accIdx)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: resolve account %d: %w", i, accIdx, err)
			}
			writable, err := msg.IsWritable(key)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: writable flag for %s: %w", i, key, err)
			}
			metas = append(metas, &solana.AccountMeta{
				PublicKey:  key,
				IsSigner:   msg.IsSigner(key),
				IsWritable: writable,
			})
		}

		out = append(out, solana.NewInstruction(prog, metas, ci.Data))
	}
	return out, nil
}
