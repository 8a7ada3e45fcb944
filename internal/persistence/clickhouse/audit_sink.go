// Package clickhouse implements the per-day audit trail on ClickHouse.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"regimerun/internal/backtest"
	"regimerun/internal/persistence"
)

// Compile-time check
var _ persistence.AuditSink = (*Sink)(nil)

// Schema is the audit trail DDL, safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS study_days (
	run_id            String,
	date              Date,
	sp500             Float64,
	vix               Float64,
	z_score           Float64,
	regime            LowCardinality(String),
	exposure          Float64,
	price_signal      Float64,
	final_signal      Float64,
	asset_return      Float64,
	price_only_return Float64,
	vol_cond_return   Float64,
	buy_hold_return   Float64,
	price_only_equity Float64,
	vol_cond_equity   Float64,
	buy_hold_equity   Float64
) ENGINE = MergeTree()
ORDER BY (run_id, date)
`

// Sink writes run audit trails to ClickHouse.
type Sink struct {
	conn driver.Conn
}

// NewSink connects to ClickHouse using a DSN and verifies connectivity.
func NewSink(dsn string) (*Sink, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse clickhouse DSN: %w", err)
	}
	opts.Compression = &clickhouse.Compression{
		Method: clickhouse.CompressionLZ4,
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &Sink{conn: conn}, nil
}

// NewSinkFromConn wraps an existing connection.
func NewSinkFromConn(conn driver.Conn) *Sink {
	return &Sink{conn: conn}
}

// Ping verifies the connection is alive.
func (s *Sink) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// EnsureSchema creates the audit table when missing.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WriteDays appends the audit trail of one run
func (s *Sink) WriteDays(ctx context.Context, runID string, days []backtest.DayRecord) error {
	if len(days) == 0 {
		return nil
	}
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO study_days (
			run_id, date, sp500, vix, z_score, regime, exposure,
			price_signal, final_signal, asset_return,
			price_only_return, vol_cond_return, buy_hold_return,
			price_only_equity, vol_cond_equity, buy_hold_equity
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, day := range days {
		err := batch.Append(
			runID, day.Date.Time(), day.SP500, day.VIX, day.ZScore,
			day.Regime.String(), day.Exposure,
			day.PriceSignal, day.FinalSignal, day.AssetReturn,
			day.PriceOnlyReturn, day.VolCondReturn, day.BuyHoldReturn,
			day.PriceOnlyEquity, day.VolCondEquity, day.BuyHoldEquity,
		)
		if err != nil {
			return fmt.Errorf("failed to append day %s: %w", day.Date, err)
		}
	}

	return batch.Send()
}

// CountDays returns the number of audit rows stored for a run.
func (s *Sink) CountDays(ctx context.Context, runID string) (uint64, error) {
	var count uint64
	query := `SELECT count() FROM study_days WHERE run_id = $1`
	row := s.conn.QueryRow(ctx, query, runID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count days: %w", err)
	}
	return count, nil
}

// Close flushes and releases the sink
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
