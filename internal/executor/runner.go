package executor

import (
	"context"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/events"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/scanner"
	"github.com/sirupsen/logrus"
)

// OpportunitySink receives every discovered opportunity, e.g. the Redis
// recent-opportunities cache. Failures are logged and ignored.
type OpportunitySink interface {
	AddRecentOpportunity(ctx context.Context, opp *models.Opportunity) error
}

// Runner drives each scanner on its own cadence and routes discoveries into
// the executor. Scans run concurrently per strategy; execution serializes
// inside the executor.
type Runner struct {
	executor *Executor
	scanners []scanner.Scanner
	bus      *events.Bus
	sink     OpportunitySink
	logger   *logrus.Logger
}

func NewRunner(exec *Executor, scanners []scanner.Scanner, bus *events.Bus, sink OpportunitySink, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Runner{
		executor: exec,
		scanners: scanners,
		bus:      bus,
		sink:     sink,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, running one scan loop per strategy.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range r.scanners {
		wg.Add(1)
		go func(s scanner.Scanner) {
			defer wg.Done()
			r.loop(ctx, s)
		}(s)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, s scanner.Scanner) {
	log := r.logger.WithField("scanner", s.Name())
	log.WithField("interval", s.Interval().String()).Info("scan loop started")

	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scan loop stopped")
			return
		case <-ticker.C:
			opps, err := s.Scan(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WithError(err).Warn("scan pass failed")
				continue
			}
			for _, opp := range opps {
				r.handle(ctx, opp)
			}
		}
	}
}

func (r *Runner) handle(ctx context.Context, opp *models.Opportunity) {
	if r.bus != nil {
		r.bus.Publish(events.CategoryOpportunity, "info", map[string]any{
			"id":         opp.ID,
			"strategy":   opp.Strategy,
			"path":       opp.Path,
			"profit_usd": opp.NetProfitUSD,
			"confidence": opp.Confidence,
		})
	}
	if r.sink != nil {
		if err := r.sink.AddRecentOpportunity(ctx, opp); err != nil {
			r.logger.WithError(err).Debug("opportunity cache write failed")
		}
	}

	outcome := r.executor.Execute(ctx, opp)
	r.logger.WithFields(logrus.Fields{
		"opportunity": opp.ID,
		"outcome":     outcome,
	}).Debug("opportunity resolved")
}
