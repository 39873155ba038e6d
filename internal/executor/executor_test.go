package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/positions"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssembler struct {
	err error
}

func (f *fakeAssembler) Assemble(context.Context, *models.Opportunity) ([]*solana.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	w := solana.NewWallet()
	ix := system.NewTransferInstruction(1, w.PublicKey(), solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix},
		solana.HashFromBytes(make([]byte, 32)), solana.TransactionPayer(w.PublicKey()))
	if err != nil {
		return nil, err
	}
	return []*solana.Transaction{tx}, nil
}

type fakePreflight struct {
	result *models.SimulationResult
}

func (f *fakePreflight) Simulate(context.Context, *solana.Transaction) *models.SimulationResult {
	if f.result != nil {
		return f.result
	}
	return &models.SimulationResult{Success: true, UnitsConsumed: 2000}
}

type fakeRelay struct {
	submitErr error
	status    string
	submits   int
}

func (f *fakeRelay) SubmitBundle(context.Context, []string) (string, error) {
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "bundle-1", nil
}

func (f *fakeRelay) WaitForLanding(context.Context, string, time.Duration) (string, error) {
	if f.status == "" {
		return "landed", nil
	}
	return f.status, nil
}

type fixedPrice float64

func (p fixedPrice) SOLPrice(context.Context) float64 { return float64(p) }

type countingNotifier struct {
	mu       sync.Mutex
	critical int
}

func (n *countingNotifier) Notify(_ context.Context, severity, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if severity == "critical" {
		n.critical++
	}
	return nil
}

func (n *countingNotifier) criticalCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.critical
}

type testEnv struct {
	exec     *Executor
	tracker  *positions.Tracker
	ledger   *ledger.MemoryLedger
	relay    *fakeRelay
	notifier *countingNotifier
}

func newTestExecutor(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	env := &testEnv{
		tracker:  positions.NewTracker(logger),
		ledger:   ledger.NewMemoryLedger(),
		relay:    &fakeRelay{},
		notifier: &countingNotifier{},
	}

	cfg := Config{
		Assembler: &fakeAssembler{},
		Preflight: &fakePreflight{},
		Relay:     env.relay,
		Prices:    fixedPrice(150),
		Tracker:   env.tracker,
		Ledger:    env.ledger,
		Notifier:  env.notifier,
		Serialize: func(*solana.Transaction) (string, error) { return "dHg=", nil },
		Logger:    logger,

		MinProfitUSD:      0.10,
		CapitalCeilingSOL: 2.0,
		MaxConcurrent:     3,
		BreakerThreshold:  5,
		BreakerCooldown:   time.Minute,
		DailyLossLimitSOL: 0.5,
		BundleWaitCeiling: time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	exec, err := NewExecutor(cfg)
	require.NoError(t, err)
	env.exec = exec
	return env
}

func opportunity(t *testing.T, validity time.Duration, profitSOL float64) *models.Opportunity {
	t.Helper()
	opp, err := models.NewOpportunity(models.StrategyCyclic, []string{"SOL", "JUP", "SOL"}, validity)
	require.NoError(t, err)
	opp.InAmount = 100_000_000 // 0.1 SOL
	opp.ExpectedOut = opp.InAmount + uint64(profitSOL*1e9)
	opp.NetProfitSOL = profitSOL
	opp.NetProfitUSD = profitSOL * 150
	opp.Confidence = 0.3
	return opp
}

func TestExecute_LandedRoundTrip(t *testing.T) {
	env := newTestExecutor(t, nil)
	opp := opportunity(t, 15*time.Second, 0.0015)

	outcome := env.exec.Execute(context.Background(), opp)
	assert.Equal(t, models.OutcomeLanded, outcome)

	// Position opened and closed with the realized profit.
	assert.Zero(t, env.tracker.OpenCount())
	assert.InDelta(t, 0.0015, env.tracker.RealizedPnL(), 1e-9)

	rec := env.ledger.Trade(opp.ID)
	require.NotNil(t, rec)
	assert.Equal(t, models.OutcomeLanded, rec.Outcome)
	assert.Equal(t, "bundle-1", rec.BundleID)
	assert.Zero(t, env.exec.InflightCount())
}

func TestExecute_ExpiredBeforeValidation(t *testing.T) {
	env := newTestExecutor(t, nil)

	// Created with a short validity, attempted after it elapsed.
	opp := opportunity(t, time.Millisecond, 0.0015)
	time.Sleep(5 * time.Millisecond)

	outcome := env.exec.Execute(context.Background(), opp)
	assert.Equal(t, models.OutcomeExpired, outcome)

	// No position was ever opened and nothing was submitted.
	assert.Zero(t, env.tracker.OpenCount())
	assert.Zero(t, env.relay.submits)

	rec := env.ledger.Trade(opp.ID)
	require.NotNil(t, rec)
	assert.Equal(t, models.OutcomeExpired, rec.Outcome)
}

func TestExecute_ThresholdGating(t *testing.T) {
	// Power-of-two amounts so the USD conversion is exact and the
	// at-threshold comparison is not at the mercy of rounding.
	env := newTestExecutor(t, func(cfg *Config) {
		cfg.Prices = fixedPrice(128)
		cfg.MinProfitUSD = 0.125
	})

	// Exactly at the threshold: accepted.
	atThreshold := opportunity(t, 15*time.Second, 0.0009765625) // 1/1024 SOL = $0.125
	assert.Equal(t, models.OutcomeLanded, env.exec.Execute(context.Background(), atThreshold))

	// One basis point of profit below: rejected economically, silently.
	below := opportunity(t, 15*time.Second, (0.125-0.0001)/128)
	assert.Equal(t, models.OutcomeRejectedEconomic, env.exec.Execute(context.Background(), below))
	assert.Nil(t, env.ledger.Trade(below.ID), "economic rejections are not ledger failures")
}

func TestExecute_SimulationFailureFeedsBreaker(t *testing.T) {
	env := newTestExecutor(t, func(cfg *Config) {
		cfg.Preflight = &fakePreflight{result: &models.SimulationResult{
			Success:    false,
			ErrorClass: "slippage_exceeded",
		}}
	})
	opp := opportunity(t, 15*time.Second, 0.0015)

	outcome := env.exec.Execute(context.Background(), opp)
	assert.Equal(t, models.OutcomeFailed, outcome)
	assert.Equal(t, 1, env.exec.Breaker().ConsecutiveFailures())
	assert.Zero(t, env.relay.submits, "failed preflight must not submit")

	rec := env.ledger.Trade(opp.ID)
	require.NotNil(t, rec)
	assert.Equal(t, "slippage_exceeded", rec.FailureClass)
}

func TestExecute_BreakerTripsOnceWithSingleAlert(t *testing.T) {
	env := newTestExecutor(t, func(cfg *Config) {
		cfg.Preflight = &fakePreflight{result: &models.SimulationResult{
			Success:    false,
			ErrorClass: "program_execution_failure",
		}}
		cfg.BreakerThreshold = 5
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		outcome := env.exec.Execute(ctx, opportunity(t, 15*time.Second, 0.0015))
		assert.Equal(t, models.OutcomeFailed, outcome)
	}
	assert.True(t, env.exec.Breaker().Tripped())
	assert.Equal(t, 1, env.notifier.criticalCount(), "exactly one alert per trip")

	// The 6th opportunity is refused entry, and no further alert is raised.
	outcome := env.exec.Execute(ctx, opportunity(t, 15*time.Second, 0.0015))
	assert.Equal(t, OutcomeRefused, outcome)
	assert.Equal(t, 1, env.notifier.criticalCount())
}

func TestExecute_FailedBundleRealizesNoProfit(t *testing.T) {
	env := newTestExecutor(t, func(cfg *Config) {
		cfg.Relay = &fakeRelay{status: "failed"}
	})
	opp := opportunity(t, 15*time.Second, 0.0015)

	outcome := env.exec.Execute(context.Background(), opp)
	assert.Equal(t, models.OutcomeFailed, outcome)

	// Atomic bundle failed: position closed flat.
	assert.Zero(t, env.tracker.OpenCount())
	assert.InDelta(t, 0.0, env.tracker.RealizedPnL(), 1e-12)
	assert.Equal(t, 1, env.exec.Breaker().ConsecutiveFailures())
}

func TestExecute_CapitalCeilingRefusesOversizedTrade(t *testing.T) {
	env := newTestExecutor(t, func(cfg *Config) {
		cfg.CapitalCeilingSOL = 0.05 // below the 0.1 SOL trade size
	})
	opp := opportunity(t, 15*time.Second, 0.0015)

	outcome := env.exec.Execute(context.Background(), opp)
	assert.Equal(t, OutcomeRefused, outcome)
	assert.Zero(t, env.tracker.OpenCount())
	assert.Zero(t, env.relay.submits)
}

// blockingRelay parks every bundle in WaitForLanding until the gate is
// closed, holding its capital reserved in the meantime.
type blockingRelay struct {
	gate chan struct{}

	mu      sync.Mutex
	submits int
}

func (r *blockingRelay) SubmitBundle(context.Context, []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits++
	return fmt.Sprintf("bundle-%d", r.submits), nil
}

func (r *blockingRelay) WaitForLanding(ctx context.Context, _ string, _ time.Duration) (string, error) {
	select {
	case <-r.gate:
		return "landed", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *blockingRelay) submitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submits
}

func TestExecute_CapitalCeilingHoldsUnderConcurrency(t *testing.T) {
	relay := &blockingRelay{gate: make(chan struct{})}
	env := newTestExecutor(t, func(cfg *Config) {
		cfg.Relay = relay
		cfg.CapitalCeilingSOL = 1.0
		cfg.MaxConcurrent = 3
	})
	ctx := context.Background()

	// Two 0.6 SOL trades against a 1.0 SOL ceiling: only one may commit.
	outcomes := make(chan string, 2)
	for i := 0; i < 2; i++ {
		opp := opportunity(t, 15*time.Second, 0.0015)
		opp.InAmount = 600_000_000
		opp.ExpectedOut = opp.InAmount + uint64(0.0015*1e9)
		go func() { outcomes <- env.exec.Execute(ctx, opp) }()
	}

	// The loser is refused while the winner is still parked in the relay.
	var first string
	select {
	case first = <-outcomes:
	case <-time.After(2 * time.Second):
		t.Fatal("both trades are in flight: ceiling check admitted 1.2 SOL")
	}
	assert.Equal(t, OutcomeRefused, first)
	assert.InDelta(t, 0.6, env.tracker.OpenExposure(), 1e-9,
		"exposure while one bundle is in flight")

	close(relay.gate)
	assert.Equal(t, models.OutcomeLanded, <-outcomes)
	assert.Equal(t, 1, relay.submitCount())
	assert.Zero(t, env.tracker.OpenCount())
}

func TestExecute_AssemblyErrorIsFailure(t *testing.T) {
	env := newTestExecutor(t, func(cfg *Config) {
		cfg.Assembler = &fakeAssembler{err: fmt.Errorf("no route")}
	})
	opp := opportunity(t, 15*time.Second, 0.0015)

	outcome := env.exec.Execute(context.Background(), opp)
	assert.Equal(t, models.OutcomeFailed, outcome)

	rec := env.ledger.Trade(opp.ID)
	require.NotNil(t, rec)
	assert.Equal(t, "assembly_error", rec.FailureClass)
}

func TestBreaker_CooldownReopens(t *testing.T) {
	b := NewBreaker(2, 50*time.Millisecond)

	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure(), "second failure trips at threshold 2")
	assert.False(t, b.RecordFailure(), "already tripped: no second trip signal")
	assert.False(t, b.Allow(time.Now()))

	assert.True(t, b.Allow(time.Now().Add(100*time.Millisecond)), "cooldown elapsed")
	assert.False(t, b.Tripped())
}

func TestBreaker_SuccessResetsRun(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.False(t, b.RecordFailure(), "run was broken by a success")
	assert.Equal(t, 1, b.ConsecutiveFailures())
}

func TestDailyLossGate(t *testing.T) {
	g := NewDailyLossGate(0.5)
	now := time.Now()

	assert.True(t, g.Allow(now))
	g.Record(now, -0.3)
	assert.True(t, g.Allow(now))
	g.Record(now, -0.25)
	assert.False(t, g.Allow(now), "0.55 SOL lost crosses the 0.5 ceiling")

	// Next day the counter resets.
	tomorrow := now.Add(24 * time.Hour)
	assert.True(t, g.Allow(tomorrow))
}

func TestDailyLossGate_ProfitsOffsetLosses(t *testing.T) {
	g := NewDailyLossGate(0.5)
	now := time.Now()

	g.Record(now, -0.4)
	g.Record(now, 0.2)
	assert.True(t, g.Allow(now))
	assert.InDelta(t, 0.2, g.NetLossSOL(now), 1e-12)
}
