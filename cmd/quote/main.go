package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/config"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/jupiter"
	"github.com/joho/godotenv"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// resolveMint accepts either a known token symbol or a raw mint address.
func resolveMint(token string) string {
	if mint, ok := constants.TokenMints[token]; ok {
		return mint
	}
	return token
}

func decimalsFor(token string) uint8 {
	if d, ok := constants.TokenDecimals[token]; ok {
		return d
	}
	return 9
}

// main probes the quote source from the command line: price a single leg, or
// price the full round trip the cyclic scanner would take.
func main() {
	loadEnv()

	mode := flag.String("mode", "quote", "quote | roundtrip")
	inTok := flag.String("in", "SOL", "input token symbol or mint")
	outTok := flag.String("out", "USDC", "output token symbol or mint")
	amt := flag.Float64("amt", 0, "amount in human units (e.g. 0.1)")
	slippageBps := flag.Int("slippage-bps", 50, "slippage in bps (e.g. 50 = 0.5%)")
	flag.Parse()

	if *amt <= 0 {
		fmt.Println("missing -amt (must be > 0)")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg := config.Load()
	client := jupiter.NewClient(jupiter.ClientConfig{
		BaseURL:  cfg.JupiterBaseURL,
		APIKey:   cfg.JupiterAPIKey,
		RPS:      cfg.QuoteRPS,
		QuoteTTL: cfg.QuoteTTL,
		Timeout:  15 * time.Second,
	})

	inMint := resolveMint(*inTok)
	outMint := resolveMint(*outTok)
	inAmount := uint64(*amt * math.Pow10(int(decimalsFor(*inTok))))
	slip := uint16(*slippageBps)

	switch *mode {
	case "quote":
		q, err := client.Quote(ctx, inMint, outMint, inAmount, slip)
		if err != nil {
			fmt.Println("quote failed:", err)
			os.Exit(1)
		}
		outHuman := float64(q.OutAmount) / math.Pow10(int(decimalsFor(*outTok)))
		fmt.Printf("in=%d out=%d (%s %.6f) impact=%.4f%% hops=%d valid_until=%s\n",
			q.InAmount, q.OutAmount, *outTok, outHuman, q.PriceImpactPct, len(q.Route),
			q.ValidUntil.Format(time.RFC3339))
	case "roundtrip":
		leg1, err := client.Quote(ctx, inMint, outMint, inAmount, slip)
		if err != nil {
			fmt.Println("leg 1 failed:", err)
			os.Exit(1)
		}
		leg2, err := client.Quote(ctx, outMint, inMint, leg1.OutAmount, slip)
		if err != nil {
			fmt.Println("leg 2 failed:", err)
			os.Exit(1)
		}
		gross := float64(leg2.OutAmount) - float64(inAmount)
		fmt.Printf("leg1: %d -> %d\nleg2: %d -> %d\ngross=%.9f %s\n",
			leg1.InAmount, leg1.OutAmount, leg2.InAmount, leg2.OutAmount,
			gross/math.Pow10(int(decimalsFor(*inTok))), *inTok)
	default:
		fmt.Println("invalid -mode (use quote|roundtrip)")
		os.Exit(2)
	}
}
