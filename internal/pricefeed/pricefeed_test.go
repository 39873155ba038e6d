package pricefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func priceServer(t *testing.T, price string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				constants.TokenMints["SOL"]: map[string]any{"price": price},
			},
		})
	}))
}

func TestService_FallbackWithoutURL(t *testing.T) {
	s := NewService(Config{})
	assert.Equal(t, constants.FallbackSOLPriceUSD, s.SOLPrice(context.Background()))
}

func TestService_FetchAndCache(t *testing.T) {
	var hits atomic.Int64
	srv := priceServer(t, "187.42", &hits)
	defer srv.Close()

	s := NewService(Config{URL: srv.URL, TTL: time.Minute})

	p := s.SOLPrice(context.Background())
	require.InDelta(t, 187.42, p, 1e-9)

	// Second read inside the TTL serves the cache.
	_ = s.SOLPrice(context.Background())
	assert.EqualValues(t, 1, hits.Load())
}

func TestService_ServesStaleOnFailure(t *testing.T) {
	s := NewService(Config{URL: "http://feed.invalid", TTL: time.Nanosecond, Timeout: time.Second})
	s.SetPrice(201.5)
	time.Sleep(time.Millisecond)

	assert.InDelta(t, 201.5, s.SOLPrice(context.Background()), 1e-9)
}

func TestService_SetPriceIgnoresNonPositive(t *testing.T) {
	s := NewService(Config{})
	s.SetPrice(-1)
	assert.Equal(t, constants.FallbackSOLPriceUSD, s.SOLPrice(context.Background()))
}
