package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// Frontrun impact model constants. Impact is a simplified constant-elasticity
// estimate: a transfer of size S SOL is assumed to move price by roughly
// S * PriceImpactPerSOL (as a fraction). Placeholder calibration pending a
// depth-aware model.
const (
	PriceImpactPerSOL = 0.0001
	// Fraction of the observed impact the same-direction trade captures.
	ImpactCaptureFraction = 0.5
	// Our trade is sized as this fraction of the observed transfer.
	TradeSizeFraction = 0.1
)

// FrontrunScanner is the event-driven strategy: an external listener feeds
// observed large pending transfers into Observe, and Scan drains the
// opportunities computed from them. The orchestrator polls it like any other
// scanner.
type FrontrunScanner struct {
	prices PriceSource
	logger *logrus.Logger

	costs        CostModel
	minSizeSOL   float64
	minImpactBps float64
	maxTradeSOL  float64
	tipSOL       float64
	minProfitUSD float64
	validity     time.Duration
	scanInterval time.Duration

	mu     sync.Mutex
	buffer []*models.Opportunity
}

type FrontrunConfig struct {
	Prices       PriceSource
	Logger       *logrus.Logger
	Costs        CostModel
	MinSizeSOL   float64
	MinImpactBps float64
	MaxTradeSOL  float64
	TipSOL       float64
	MinProfitUSD float64
	Validity     time.Duration
	Interval     time.Duration
}

func NewFrontrunScanner(cfg FrontrunConfig) *FrontrunScanner {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MinSizeSOL <= 0 {
		cfg.MinSizeSOL = 50
	}
	if cfg.MinImpactBps <= 0 {
		cfg.MinImpactBps = 10
	}
	if cfg.MaxTradeSOL <= 0 {
		cfg.MaxTradeSOL = 1
	}
	if cfg.Validity <= 0 {
		cfg.Validity = 5 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &FrontrunScanner{
		prices:       cfg.Prices,
		logger:       cfg.Logger,
		costs:        cfg.Costs,
		minSizeSOL:   cfg.MinSizeSOL,
		minImpactBps: cfg.MinImpactBps,
		maxTradeSOL:  cfg.MaxTradeSOL,
		tipSOL:       cfg.TipSOL,
		minProfitUSD: cfg.MinProfitUSD,
		validity:     cfg.Validity,
		scanInterval: cfg.Interval,
	}
}

func (s *FrontrunScanner) Name() string            { return models.StrategyFrontrun }
func (s *FrontrunScanner) Interval() time.Duration { return s.scanInterval }

// Observe evaluates one pending transfer seen by the stream listener and
// buffers an opportunity if it qualifies. Safe for concurrent use with Scan.
func (s *FrontrunScanner) Observe(ctx context.Context, transfer *models.PendingTransfer) {
	if transfer == nil {
		return
	}
	// Only buys push price in our favor; a sell moves it against the
	// same-direction trade.
	if !transfer.Buy {
		return
	}
	if transfer.SizeSOL < s.minSizeSOL {
		return
	}

	impact := transfer.SizeSOL * PriceImpactPerSOL
	if impact*10_000 < s.minImpactBps {
		return
	}

	tradeSize := transfer.SizeSOL * TradeSizeFraction
	if tradeSize > s.maxTradeSOL {
		tradeSize = s.maxTradeSOL
	}

	grossProfit := tradeSize * impact * ImpactCaptureFraction
	// Frontrun-specific costs: two transaction fees, the tip, and slippage
	// paid on both sides. The per-leg platform/pool percentages of the
	// polling strategies do not apply here.
	networkFees := 2 * float64(constants.BaseFeeLamports) / constants.LamportsPerSOL
	totalCost := networkFees + s.tipSOL + 2*s.costs.SlippagePct*tradeSize
	netProfit := grossProfit - totalCost
	netProfitUSD := netProfit * s.prices.SOLPrice(ctx)

	if netProfitUSD < s.minProfitUSD {
		return
	}

	symbol := symbolFor(transfer.Mint)
	opp, err := models.NewOpportunity(models.StrategyFrontrun, []string{"SOL", symbol, "SOL"}, s.validity)
	if err != nil {
		return
	}
	opp.InAmount = solToLamports(tradeSize)
	opp.ExpectedOut = solToLamports(tradeSize + netProfit + totalCost)
	opp.NetProfitSOL = netProfit
	opp.NetProfitUSD = netProfitUSD
	opp.Confidence = confidenceTwoLeg(netProfit, totalCost)

	s.logger.WithFields(logrus.Fields{
		"signature":  transfer.Signature,
		"size_sol":   transfer.SizeSOL,
		"trade_sol":  tradeSize,
		"profit_usd": netProfitUSD,
	}).Info("frontrun opportunity buffered")

	s.mu.Lock()
	s.buffer = append(s.buffer, opp)
	s.mu.Unlock()
}

// Scan drains the buffered opportunities, dropping any that expired while
// waiting to be polled.
func (s *FrontrunScanner) Scan(_ context.Context) ([]*models.Opportunity, error) {
	s.mu.Lock()
	buffered := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	now := time.Now()
	fresh := buffered[:0]
	for _, opp := range buffered {
		if !opp.Expired(now) {
			fresh = append(fresh, opp)
		}
	}
	return fresh, nil
}
