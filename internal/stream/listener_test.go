package stream

import (
	"encoding/json"
	"testing"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notification(signature string, pre, post []uint64, accountKeys []string) json.RawMessage {
	keys := make([]map[string]string, len(accountKeys))
	for i, k := range accountKeys {
		keys[i] = map[string]string{"pubkey": k}
	}
	payload := map[string]any{
		"params": map[string]any{
			"result": map[string]any{
				"value": map[string]any{
					"signature": signature,
					"transaction": map[string]any{
						"meta": map[string]any{
							"preBalances":  pre,
							"postBalances": post,
						},
						"transaction": map[string]any{
							"message": map[string]any{
								"accountKeys": keys,
							},
						},
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func TestParseTransfer_Buy(t *testing.T) {
	jup := constants.TokenMints["JUP"]
	raw := notification("sig-1",
		[]uint64{100 * constants.LamportsPerSOL, 0},
		[]uint64{40 * constants.LamportsPerSOL, 0},
		[]string{"payer", jup})

	transfer := parseTransfer(raw)
	require.NotNil(t, transfer)
	assert.Equal(t, "sig-1", transfer.Signature)
	assert.Equal(t, jup, transfer.Mint)
	assert.True(t, transfer.Buy)
	assert.InDelta(t, 60.0, transfer.SizeSOL, 1e-9)
}

func TestParseTransfer_Sell(t *testing.T) {
	jup := constants.TokenMints["JUP"]
	raw := notification("sig-2",
		[]uint64{40 * constants.LamportsPerSOL},
		[]uint64{100 * constants.LamportsPerSOL},
		[]string{"payer", jup})

	transfer := parseTransfer(raw)
	require.NotNil(t, transfer)
	assert.False(t, transfer.Buy)
	assert.InDelta(t, 60.0, transfer.SizeSOL, 1e-9)
}

func TestParseTransfer_Rejections(t *testing.T) {
	jup := constants.TokenMints["JUP"]

	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{"garbage", json.RawMessage(`{"jsonrpc":"2.0","result":5}`)},
		{"missing signature", notification("", []uint64{1, 0}, []uint64{0, 0}, []string{jup})},
		{"no balances", notification("sig", nil, nil, []string{jup})},
		{"mismatched balances", notification("sig", []uint64{1, 2}, []uint64{1}, []string{jup})},
		{"no balance change", notification("sig", []uint64{5}, []uint64{5}, []string{jup})},
		{"no known token", notification("sig", []uint64{10}, []uint64{5}, []string{"unknown-mint"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, parseTransfer(tt.raw))
		})
	}
}

func TestNewListener_RequiresURL(t *testing.T) {
	_, err := NewListener(ListenerConfig{})
	assert.Error(t, err)
}
