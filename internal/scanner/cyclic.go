package scanner

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// CyclicScanner hunts two-leg round trips: base -> X -> base. Each pass
// probes every candidate intermediate with a fixed amount and prices the
// return leg on the first leg's actual output.
type CyclicScanner struct {
	quotes QuoteSource
	prices PriceSource
	logger *logrus.Logger

	costs        CostModel
	candidates   []string // intermediate mints
	probeSOL     float64
	slippageBps  uint16
	minProfitUSD float64
	validity     time.Duration
	scanInterval time.Duration
}

type CyclicConfig struct {
	Quotes       QuoteSource
	Prices       PriceSource
	Logger       *logrus.Logger
	Costs        CostModel
	Candidates   []string
	ProbeSOL     float64
	SlippageBps  uint16
	MinProfitUSD float64
	Validity     time.Duration
	Interval     time.Duration
}

func NewCyclicScanner(cfg CyclicConfig) *CyclicScanner {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = defaultCandidates()
	}
	if cfg.ProbeSOL <= 0 {
		cfg.ProbeSOL = 0.1
	}
	if cfg.Validity <= 0 {
		cfg.Validity = 15 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &CyclicScanner{
		quotes:       cfg.Quotes,
		prices:       cfg.Prices,
		logger:       cfg.Logger,
		costs:        cfg.Costs,
		candidates:   cfg.Candidates,
		probeSOL:     cfg.ProbeSOL,
		slippageBps:  cfg.SlippageBps,
		minProfitUSD: cfg.MinProfitUSD,
		validity:     cfg.Validity,
		scanInterval: cfg.Interval,
	}
}

func (s *CyclicScanner) Name() string            { return models.StrategyCyclic }
func (s *CyclicScanner) Interval() time.Duration { return s.scanInterval }

func (s *CyclicScanner) Scan(ctx context.Context) ([]*models.Opportunity, error) {
	baseMint := constants.TokenMints["SOL"]
	probeLamports := solToLamports(s.probeSOL)
	solPrice := s.prices.SOLPrice(ctx)

	var found []*models.Opportunity
	for _, mint := range s.candidates {
		if mint == baseMint {
			continue
		}
		if err := ctx.Err(); err != nil {
			return found, err
		}

		opp := s.probe(ctx, baseMint, mint, probeLamports, solPrice)
		if opp != nil {
			found = append(found, opp)
		}
	}
	return found, nil
}

// probe prices one round trip. A failed quote abandons this candidate
// without aborting the pass.
func (s *CyclicScanner) probe(ctx context.Context, baseMint, mint string, probeLamports uint64, solPrice float64) *models.Opportunity {
	leg1, err := s.quotes.Quote(ctx, baseMint, mint, probeLamports, s.slippageBps)
	if err != nil {
		s.logger.WithError(err).WithField("mint", symbolFor(mint)).Debug("leg-1 quote failed")
		return nil
	}
	leg2, err := s.quotes.Quote(ctx, mint, baseMint, leg1.OutAmount, s.slippageBps)
	if err != nil {
		s.logger.WithError(err).WithField("mint", symbolFor(mint)).Debug("leg-2 quote failed")
		return nil
	}

	probeSOL := lamportsToSOL(probeLamports)
	outSOL := lamportsToSOL(leg2.OutAmount)
	totalCost := s.costs.TotalCost(2, probeSOL)
	netProfit := outSOL - probeSOL - totalCost
	netProfitUSD := netProfit * solPrice

	if netProfitUSD < s.minProfitUSD {
		return nil
	}

	symbol := symbolFor(mint)
	opp, err := models.NewOpportunity(models.StrategyCyclic, []string{"SOL", symbol, "SOL"}, s.validity)
	if err != nil {
		return nil
	}
	opp.Quotes = []*models.Quote{leg1, leg2}
	opp.InAmount = probeLamports
	opp.ExpectedOut = leg2.OutAmount
	opp.NetProfitSOL = netProfit
	opp.NetProfitUSD = netProfitUSD
	opp.Confidence = confidenceTwoLeg(netProfit, totalCost)

	s.logger.WithFields(logrus.Fields{
		"path":       symbol,
		"profit_sol": netProfit,
		"profit_usd": netProfitUSD,
		"confidence": opp.Confidence,
	}).Info("cyclic opportunity found")

	return opp
}

func defaultCandidates() []string {
	baseMint := constants.TokenMints["SOL"]
	out := make([]string, 0, len(constants.TokenMints)-1)
	for _, mint := range constants.TokenMints {
		if mint != baseMint {
			out = append(out, mint)
		}
	}
	return out
}

func symbolFor(mint string) string {
	if sym, ok := constants.TokenSymbols[mint]; ok {
		return sym
	}
	return mint
}
