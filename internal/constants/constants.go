package constants

import "time"

// Redis keys
const (
	RedisKeyRecentOpportunities = "arb:opps:recent"
	RedisKeyRecentTrades        = "arb:trades:recent"
	RedisKeySOLPrice            = "arb:price:sol"
)

// Redis Pub/Sub channels
const (
	PubSubChannelEvents = "arb:events"
	PubSubChannelTrades = "arb:events:trades"
)

// Limits
const (
	MaxRecentOpportunities = 100
	MaxRecentTrades        = 100
	MaxClosedPositions     = 500
)

// Base asset
const (
	LamportsPerSOL = 1_000_000_000
	// Base transaction fee on mainnet (one signature).
	BaseFeeLamports = 5_000
)

// Fallback SOL/USD price when the live feed is unavailable. Placeholder until
// a real oracle is wired in; the pricefeed caches live values over this.
const FallbackSOLPriceUSD = 150.0

// Health checks must not probe tighter than this.
const MinHealthCheckInterval = 30 * time.Second

// Token mint addresses by symbol
var TokenMints = map[string]string{
	"SOL":  "So11111111111111111111111111111111111111112",
	"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	"JUP":  "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"RAY":  "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
	"BONK": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
	"mSOL": "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",
}

// TokenSymbols is the reverse of TokenMints.
var TokenSymbols = func() map[string]string {
	m := make(map[string]string, len(TokenMints))
	for sym, mint := range TokenMints {
		m[mint] = sym
	}
	return m
}()

// TokenDecimals maps token symbols to their decimal places.
var TokenDecimals = map[string]uint8{
	"SOL":  9,
	"USDC": 6,
	"USDT": 6,
	"JUP":  6,
	"RAY":  6,
	"BONK": 5,
	"mSOL": 9,
}

// StableMints are stable-value assets; a pair of these cannot arbitrage
// against each other and is skipped by the triangular scanner.
var StableMints = map[string]bool{
	TokenMints["USDC"]: true,
	TokenMints["USDT"]: true,
}

// TipAccounts is the pool of valid tip-receiving accounts for the bundle
// relay. Selection is randomized to avoid concentrating write locks.
var TipAccounts = []string{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
	"B1mrQSpdeMU9gCvkJ6VsXVVoYjRGkNA7TtjMyqxrhecH",
}
