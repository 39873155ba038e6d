package scanner

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// TriangularScanner hunts three-leg round trips: base -> X -> Y -> base. The
// pair set is curated at construction: de-duplicated, stable-stable pairs
// excluded, and capped to a fixed count to respect the quote-rate budget.
type TriangularScanner struct {
	quotes QuoteSource
	prices PriceSource
	logger *logrus.Logger

	costs        CostModel
	pairs        [][2]string
	probeSOL     float64
	slippageBps  uint16
	minProfitUSD float64
	validity     time.Duration
	scanInterval time.Duration
}

type TriangularConfig struct {
	Quotes       QuoteSource
	Prices       PriceSource
	Logger       *logrus.Logger
	Costs        CostModel
	Candidates   []string
	MaxPairs     int
	ProbeSOL     float64
	SlippageBps  uint16
	MinProfitUSD float64
	Validity     time.Duration
	Interval     time.Duration
}

func NewTriangularScanner(cfg TriangularConfig) *TriangularScanner {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = defaultCandidates()
	}
	if cfg.MaxPairs <= 0 {
		cfg.MaxPairs = 10
	}
	if cfg.ProbeSOL <= 0 {
		cfg.ProbeSOL = 0.1
	}
	if cfg.Validity <= 0 {
		cfg.Validity = 15 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &TriangularScanner{
		quotes:       cfg.Quotes,
		prices:       cfg.Prices,
		logger:       cfg.Logger,
		costs:        cfg.Costs,
		pairs:        buildPairs(cfg.Candidates, cfg.MaxPairs),
		probeSOL:     cfg.ProbeSOL,
		slippageBps:  cfg.SlippageBps,
		minProfitUSD: cfg.MinProfitUSD,
		validity:     cfg.Validity,
		scanInterval: cfg.Interval,
	}
}

// buildPairs walks ordered (X, Y) combinations, skipping self-pairs and
// pairs of two stable-value assets, which cannot arbitrage against each
// other.
func buildPairs(candidates []string, maxPairs int) [][2]string {
	baseMint := constants.TokenMints["SOL"]
	seen := make(map[[2]string]bool)
	var pairs [][2]string

	for _, x := range candidates {
		for _, y := range candidates {
			if x == y || x == baseMint || y == baseMint {
				continue
			}
			if constants.StableMints[x] && constants.StableMints[y] {
				continue
			}
			key := [2]string{x, y}
			if seen[key] {
				continue
			}
			seen[key] = true
			pairs = append(pairs, key)
			if len(pairs) >= maxPairs {
				return pairs
			}
		}
	}
	return pairs
}

func (s *TriangularScanner) Name() string            { return models.StrategyTriangular }
func (s *TriangularScanner) Interval() time.Duration { return s.scanInterval }

func (s *TriangularScanner) Scan(ctx context.Context) ([]*models.Opportunity, error) {
	baseMint := constants.TokenMints["SOL"]
	probeLamports := solToLamports(s.probeSOL)
	solPrice := s.prices.SOLPrice(ctx)

	var found []*models.Opportunity
	for _, pair := range s.pairs {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		opp := s.probe(ctx, baseMint, pair[0], pair[1], probeLamports, solPrice)
		if opp != nil {
			found = append(found, opp)
		}
	}
	return found, nil
}

func (s *TriangularScanner) probe(ctx context.Context, baseMint, mintX, mintY string, probeLamports uint64, solPrice float64) *models.Opportunity {
	leg1, err := s.quotes.Quote(ctx, baseMint, mintX, probeLamports, s.slippageBps)
	if err != nil {
		return nil
	}
	leg2, err := s.quotes.Quote(ctx, mintX, mintY, leg1.OutAmount, s.slippageBps)
	if err != nil {
		return nil
	}
	leg3, err := s.quotes.Quote(ctx, mintY, baseMint, leg2.OutAmount, s.slippageBps)
	if err != nil {
		return nil
	}

	probeSOL := lamportsToSOL(probeLamports)
	outSOL := lamportsToSOL(leg3.OutAmount)
	totalCost := s.costs.TotalCost(3, probeSOL)
	netProfit := outSOL - probeSOL - totalCost
	netProfitUSD := netProfit * solPrice

	if netProfitUSD < s.minProfitUSD {
		return nil
	}

	path := []string{"SOL", symbolFor(mintX), symbolFor(mintY), "SOL"}
	opp, err := models.NewOpportunity(models.StrategyTriangular, path, s.validity)
	if err != nil {
		return nil
	}
	opp.Quotes = []*models.Quote{leg1, leg2, leg3}
	opp.InAmount = probeLamports
	opp.ExpectedOut = leg3.OutAmount
	opp.NetProfitSOL = netProfit
	opp.NetProfitUSD = netProfitUSD
	opp.Confidence = confidenceThreeLeg(netProfit, totalCost)

	s.logger.WithFields(logrus.Fields{
		"path":       path,
		"profit_sol": netProfit,
		"profit_usd": netProfitUSD,
		"confidence": opp.Confidence,
	}).Info("triangular opportunity found")

	return opp
}
