package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/alerts"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/events"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/positions"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// OutcomeRefused marks opportunities turned away before any capital or
// submission was attempted: breaker open, kill switch on, daily-loss halt, or
// no free execution slot. Not a ledger outcome.
const OutcomeRefused = "refused"

// Assembler turns a validated opportunity into the signed, fee-laden
// transactions of its bundle.
type Assembler interface {
	Assemble(ctx context.Context, opp *models.Opportunity) ([]*solana.Transaction, error)
}

// Preflight dry-runs an assembled transaction.
type Preflight interface {
	Simulate(ctx context.Context, tx *solana.Transaction) *models.SimulationResult
}

// BundleRelay submits bundles and reports their fate.
type BundleRelay interface {
	SubmitBundle(ctx context.Context, encodedTxs []string) (string, error)
	WaitForLanding(ctx context.Context, bundleID string, ceiling time.Duration) (string, error)
}

// PriceSource converts base-asset profit into the fiat reference unit.
type PriceSource interface {
	SOLPrice(ctx context.Context) float64
}

// ControlFlags exposes the operator kill switch and the one-shot breaker
// reset. Nil means no external controls.
type ControlFlags interface {
	IsSet(ctx context.Context, key string) (bool, error)
	Consume(ctx context.Context, key string) (bool, error)
}

// Serializer encodes a transaction for the wire.
type Serializer func(*solana.Transaction) (string, error)

// TradeSink receives every terminal trade record, e.g. the Redis
// recent-trades cache. Failures are logged and ignored.
type TradeSink interface {
	AddRecentTrade(ctx context.Context, record *models.TradeRecord) error
}

// Executor drives each opportunity through the state machine
// Discovered -> Validated -> Simulated -> Submitted -> {Landed, Failed,
// Expired}. It is the single serialization point for capital: committing
// funds and opening a position happen under one lock shared across all
// strategies.
type Executor struct {
	assembler Assembler
	preflight Preflight
	relay     BundleRelay
	prices    PriceSource
	tracker   *positions.Tracker
	ledger    ledger.TradeLedger
	bus       *events.Bus
	notifier  alerts.Notifier
	controls  ControlFlags
	tradeSink TradeSink
	breaker   *Breaker
	dailyLoss *DailyLossGate
	serialize Serializer
	logger    *logrus.Logger

	minProfitUSD   float64
	capitalCeiling float64
	maxConcurrent  int
	waitCeiling    time.Duration

	mu       sync.Mutex
	inflight map[string]bool
}

type Config struct {
	Assembler Assembler
	Preflight Preflight
	Relay     BundleRelay
	Prices    PriceSource
	Tracker   *positions.Tracker
	Ledger    ledger.TradeLedger
	Bus       *events.Bus
	Notifier  alerts.Notifier
	Controls  ControlFlags
	TradeSink TradeSink
	Serialize Serializer
	Logger    *logrus.Logger

	MinProfitUSD      float64
	CapitalCeilingSOL float64
	MaxConcurrent     int
	BreakerThreshold  int
	BreakerCooldown   time.Duration
	DailyLossLimitSOL float64
	BundleWaitCeiling time.Duration
}

func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Assembler == nil || cfg.Preflight == nil || cfg.Relay == nil {
		return nil, fmt.Errorf("executor: assembler, preflight and relay are required")
	}
	if cfg.Prices == nil {
		return nil, fmt.Errorf("executor: price source is required")
	}
	if cfg.Tracker == nil {
		cfg.Tracker = positions.NewTracker(cfg.Logger)
	}
	if cfg.Ledger == nil {
		cfg.Ledger = ledger.NewMemoryLedger()
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewBus(0, cfg.Logger)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = alerts.NewLogNotifier(cfg.Logger)
	}
	if cfg.Serialize == nil {
		return nil, fmt.Errorf("executor: serializer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.CapitalCeilingSOL <= 0 {
		cfg.CapitalCeilingSOL = 1
	}
	if cfg.BundleWaitCeiling <= 0 {
		cfg.BundleWaitCeiling = 60 * time.Second
	}

	return &Executor{
		assembler:      cfg.Assembler,
		preflight:      cfg.Preflight,
		relay:          cfg.Relay,
		prices:         cfg.Prices,
		tracker:        cfg.Tracker,
		ledger:         cfg.Ledger,
		bus:            cfg.Bus,
		notifier:       cfg.Notifier,
		controls:       cfg.Controls,
		tradeSink:      cfg.TradeSink,
		breaker:        NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		dailyLoss:      NewDailyLossGate(cfg.DailyLossLimitSOL),
		serialize:      cfg.Serialize,
		logger:         cfg.Logger,
		minProfitUSD:   cfg.MinProfitUSD,
		capitalCeiling: cfg.CapitalCeilingSOL,
		maxConcurrent:  cfg.MaxConcurrent,
		waitCeiling:    cfg.BundleWaitCeiling,
		inflight:       make(map[string]bool),
	}, nil
}

// Execute runs one opportunity to a terminal outcome. The returned string is
// one of the models outcome constants or OutcomeRefused.
func (e *Executor) Execute(ctx context.Context, opp *models.Opportunity) string {
	log := e.logger.WithFields(logrus.Fields{
		"opportunity": opp.ID,
		"strategy":    opp.Strategy,
	})

	// Discovered -> Validated: not expired, profit still clears the
	// threshold at the current reference price.
	if opp.Expired(time.Now()) {
		log.Debug("opportunity expired before validation")
		e.recordTerminal(ctx, opp, models.OutcomeExpired, "", "", "")
		return models.OutcomeExpired
	}
	profitUSD := opp.NetProfitSOL * e.prices.SOLPrice(ctx)
	if profitUSD < e.minProfitUSD {
		// Expected and frequent: dropped silently, not logged as a failure.
		return models.OutcomeRejectedEconomic
	}

	// Validated -> Simulated: operator and risk gates.
	if !e.gatesOpen(ctx, log) {
		return OutcomeRefused
	}

	txs, err := e.assembler.Assemble(ctx, opp)
	if err != nil {
		log.WithError(err).Warn("bundle assembly failed")
		e.failed(ctx, opp, "assembly_error", log)
		return models.OutcomeFailed
	}
	if len(txs) == 0 {
		e.failed(ctx, opp, "assembly_error", log)
		return models.OutcomeFailed
	}

	for _, tx := range txs {
		sim := e.preflight.Simulate(ctx, tx)
		if !sim.Success {
			log.WithFields(logrus.Fields{
				"class": sim.ErrorClass,
				"err":   sim.RawError,
			}).Warn("preflight simulation failed")
			e.failed(ctx, opp, sim.ErrorClass, log)
			return models.OutcomeFailed
		}
	}

	// Simulated -> Submitted: atomic check-and-reserve of an execution
	// slot plus capital. The position is opened inside the same critical
	// section so concurrent trades cannot both pass the ceiling check
	// before either one's exposure is visible.
	amountSOL := float64(opp.InAmount) / constants.LamportsPerSOL
	if !e.reserve(opp, amountSOL, e.prices.SOLPrice(ctx)) {
		log.Debug("no execution slot or capital available")
		return OutcomeRefused
	}
	defer e.release(opp.ID)

	e.bus.Publish(events.CategoryPosition, "info", map[string]any{
		"trade_id": opp.ID, "action": "opened", "amount_sol": amountSOL,
	})

	// The validity window is re-checked at the submission checkpoint; an
	// expired opportunity is dropped here rather than interrupted later.
	if opp.Expired(time.Now()) {
		e.tracker.Close(opp.ID, amountSOL, e.prices.SOLPrice(ctx))
		e.recordTerminal(ctx, opp, models.OutcomeExpired, "", "", "")
		return models.OutcomeExpired
	}

	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		enc, err := e.serialize(tx)
		if err != nil {
			e.tracker.Close(opp.ID, amountSOL, e.prices.SOLPrice(ctx))
			e.failed(ctx, opp, "serialize_error", log)
			return models.OutcomeFailed
		}
		encoded = append(encoded, enc)
	}

	bundleID, err := e.relay.SubmitBundle(ctx, encoded)
	if err != nil {
		log.WithError(err).Warn("bundle submission failed")
		e.tracker.Close(opp.ID, amountSOL, e.prices.SOLPrice(ctx))
		e.failed(ctx, opp, "submission_error", log)
		return models.OutcomeFailed
	}
	e.recordTerminal(ctx, opp, models.OutcomeSubmitted, "", bundleID, "")

	status, err := e.relay.WaitForLanding(ctx, bundleID, e.waitCeiling)
	if err != nil || status != "landed" {
		log.WithField("status", status).Warn("bundle did not land")
		// Atomic bundles that fail or drop leave capital untouched.
		closed := e.tracker.Close(opp.ID, amountSOL, e.prices.SOLPrice(ctx))
		e.publishClose(closed)
		e.failedWithBundle(ctx, opp, "bundle_"+status, bundleID, log)
		return models.OutcomeFailed
	}

	// Landed: close at the quoted expected output. Settled balances are not
	// read back from chain, so realized P&L here is the modeled profit and
	// the daily-loss gate only accrues real losses from failed bundles.
	// TODO: reconcile against post-trade wallet balances.
	exitSOL := float64(opp.ExpectedOut) / constants.LamportsPerSOL
	closed := e.tracker.Close(opp.ID, exitSOL, e.prices.SOLPrice(ctx))
	e.publishClose(closed)

	pnl := 0.0
	if closed != nil {
		pnl = closed.RealizedPnL
	}
	now := time.Now()
	e.dailyLoss.Record(now, pnl)
	e.breaker.RecordSuccess()

	e.settle(ctx, opp, models.OutcomeLanded, "", bundleID)
	if err := e.ledger.RecordDailyPnL(ctx, now, pnl, pnl*e.prices.SOLPrice(ctx)); err != nil {
		log.WithError(err).Warn("daily pnl record failed")
	}
	e.bus.Publish(events.CategoryTrade, "info", map[string]any{
		"trade_id": opp.ID, "outcome": models.OutcomeLanded, "profit_sol": pnl,
	})
	log.WithField("profit_sol", pnl).Info("trade landed")

	return models.OutcomeLanded
}

// gatesOpen checks kill switch, breaker and daily-loss gate. The breaker
// reset flag is consumed here so an operator can re-open the breaker without
// waiting out the cooldown.
func (e *Executor) gatesOpen(ctx context.Context, log *logrus.Entry) bool {
	if e.controls != nil {
		if halted, err := e.controls.IsSet(ctx, flags.KeyTradingHalt); err == nil && halted {
			log.Debug("trading halted by operator flag")
			return false
		}
		if fired, err := e.controls.Consume(ctx, flags.KeyBreakerReset); err == nil && fired {
			e.breaker.Reset()
			log.Info("circuit breaker reset by operator flag")
		}
	}

	now := time.Now()
	if !e.breaker.Allow(now) {
		log.Debug("circuit breaker open")
		return false
	}
	if !e.dailyLoss.Allow(now) {
		log.Debug("daily loss limit reached")
		return false
	}
	return true
}

// reserve atomically claims an execution slot and opens the position if
// concurrency and the capital ceiling allow it. The entry price is taken as
// an argument so the price source is never called under the lock.
func (e *Executor) reserve(opp *models.Opportunity, amountSOL, entryPrice float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inflight[opp.ID] {
		return false
	}
	if len(e.inflight) >= e.maxConcurrent {
		return false
	}
	if e.tracker.OpenExposure()+amountSOL > e.capitalCeiling {
		return false
	}
	e.inflight[opp.ID] = true
	e.tracker.Open(opp.ID, opp.Strategy, opp.Path[0], amountSOL, entryPrice)
	return true
}

func (e *Executor) release(tradeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, tradeID)
}

// failed records a terminal failure and feeds the circuit breaker, raising a
// single critical alert on the trip itself.
func (e *Executor) failed(ctx context.Context, opp *models.Opportunity, class string, log *logrus.Entry) {
	e.failedWithBundle(ctx, opp, class, "", log)
}

func (e *Executor) failedWithBundle(ctx context.Context, opp *models.Opportunity, class, bundleID string, log *logrus.Entry) {
	if bundleID != "" {
		// A submitted row already exists for this trade; settle it.
		e.settle(ctx, opp, models.OutcomeFailed, class, bundleID)
	} else {
		e.recordTerminal(ctx, opp, models.OutcomeFailed, class, bundleID, "")
	}

	if e.breaker.RecordFailure() {
		log.WithField("consecutive", e.breaker.ConsecutiveFailures()).Error("circuit breaker tripped")
		e.bus.Publish(events.CategoryBreaker, "critical", map[string]any{
			"consecutive_failures": e.breaker.ConsecutiveFailures(),
		})
		if err := e.notifier.Notify(ctx, alerts.SeverityCritical, "circuit breaker tripped",
			fmt.Sprintf("%d consecutive failed trades; new submissions halted", e.breaker.ConsecutiveFailures())); err != nil {
			log.WithError(err).Warn("breaker alert delivery failed")
		}
	}
}

func (e *Executor) recordTerminal(ctx context.Context, opp *models.Opportunity, outcome, failureClass, bundleID, signature string) {
	record := buildRecord(opp, outcome, failureClass, bundleID, signature)
	if err := e.ledger.RecordTrade(ctx, record); err != nil {
		e.logger.WithError(err).WithField("trade_id", opp.ID).Warn("trade record failed")
	}
	e.sinkTrade(ctx, record)
}

// settle replaces the outcome of a trade that was already recorded at
// submission time.
func (e *Executor) settle(ctx context.Context, opp *models.Opportunity, outcome, failureClass, bundleID string) {
	if err := e.ledger.UpdateTrade(ctx, opp.ID, outcome, failureClass, time.Now()); err != nil {
		e.logger.WithError(err).WithField("trade_id", opp.ID).Warn("trade settle failed")
	}
	e.sinkTrade(ctx, buildRecord(opp, outcome, failureClass, bundleID, ""))
}

func (e *Executor) sinkTrade(ctx context.Context, record *models.TradeRecord) {
	if e.tradeSink == nil {
		return
	}
	if err := e.tradeSink.AddRecentTrade(ctx, record); err != nil {
		e.logger.WithError(err).Debug("trade cache write failed")
	}
}

func buildRecord(opp *models.Opportunity, outcome, failureClass, bundleID, signature string) *models.TradeRecord {
	return &models.TradeRecord{
		TradeID:       opp.ID,
		OpportunityID: opp.ID,
		Strategy:      opp.Strategy,
		Path:          opp.Path,
		InAmountSOL:   float64(opp.InAmount) / constants.LamportsPerSOL,
		OutAmountSOL:  float64(opp.ExpectedOut) / constants.LamportsPerSOL,
		ProfitSOL:     opp.NetProfitSOL,
		ProfitUSD:     opp.NetProfitUSD,
		Outcome:       outcome,
		FailureClass:  failureClass,
		BundleID:      bundleID,
		Signature:     signature,
		SubmittedAt:   time.Now(),
		SettledAt:     time.Now(),
	}
}

func (e *Executor) publishClose(closed *models.ClosedPosition) {
	if closed == nil {
		return
	}
	e.bus.Publish(events.CategoryPosition, "info", map[string]any{
		"trade_id": closed.TradeID, "action": "closed", "pnl_sol": closed.RealizedPnL,
	})
}

// Breaker exposes the circuit breaker for the status API.
func (e *Executor) Breaker() *Breaker { return e.breaker }

// DailyLoss exposes the daily-loss gate for the status API.
func (e *Executor) DailyLoss() *DailyLossGate { return e.dailyLoss }

// InflightCount reports how many trades currently hold execution slots.
func (e *Executor) InflightCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}
