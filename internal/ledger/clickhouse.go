package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

// ClickHouseLedger persists trade records and daily P&L rows to ClickHouse.
type ClickHouseLedger struct {
	conn   driver.Conn
	logger *logrus.Logger
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

func NewClickHouseLedger(cfg ClickHouseConfig) (*ClickHouseLedger, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseLedger{conn: conn, logger: logger}, nil
}

func (c *ClickHouseLedger) RecordTrade(ctx context.Context, record *models.TradeRecord) error {
	query := `
		INSERT INTO trades (
			trade_id, opportunity_id, strategy, path,
			in_amount_sol, out_amount_sol, profit_sol, profit_usd,
			outcome, failure_class, bundle_id, signature,
			submitted_at, settled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		record.TradeID,
		record.OpportunityID,
		record.Strategy,
		strings.Join(record.Path, "->"),
		record.InAmountSOL,
		record.OutAmountSOL,
		record.ProfitSOL,
		record.ProfitUSD,
		record.Outcome,
		record.FailureClass,
		record.BundleID,
		record.Signature,
		record.SubmittedAt,
		record.SettledAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

// UpdateTrade writes a follow-up row for the trade; the trades table is
// ReplacingMergeTree keyed on trade_id with settled_at as the version column,
// so the latest terminal state wins at merge time.
func (c *ClickHouseLedger) UpdateTrade(ctx context.Context, tradeID string, outcome, failureClass string, settledAt time.Time) error {
	query := `
		INSERT INTO trade_outcomes (trade_id, outcome, failure_class, settled_at)
		VALUES (?, ?, ?, ?)
	`

	if err := c.conn.Exec(ctx, query, tradeID, outcome, failureClass, settledAt); err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}

	return nil
}

func (c *ClickHouseLedger) RecordDailyPnL(ctx context.Context, day time.Time, deltaSOL, deltaUSD float64) error {
	query := `
		INSERT INTO daily_pnl (day, delta_sol, delta_usd, recorded_at)
		VALUES (?, ?, ?, ?)
	`

	if err := c.conn.Exec(ctx, query, day.Format("2006-01-02"), deltaSOL, deltaUSD, time.Now()); err != nil {
		return fmt.Errorf("failed to insert daily pnl: %w", err)
	}

	return nil
}

func (c *ClickHouseLedger) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseLedger) Close() error {
	return c.conn.Close()
}
