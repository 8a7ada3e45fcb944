// Package persistence stores run outcomes in external systems: PostgreSQL
// keeps the run ledger, ClickHouse keeps the per-day audit trail. Both are
// optional and wired only when a DSN is configured.
package persistence

import (
	"context"
	"time"

	"regimerun/internal/backtest"
	"regimerun/internal/report/perf"
)

// RunRecord is one study run in the ledger.
type RunRecord struct {
	RunID       string                   `json:"run_id" db:"run_id"`
	GeneratedAt time.Time                `json:"generated_at" db:"generated_at"`
	StartDate   string                   `json:"start_date" db:"start_date"`
	EndDate     string                   `json:"end_date" db:"end_date"`
	Warmup      int                      `json:"warmup" db:"warmup"`
	EvalDays    int                      `json:"eval_days" db:"eval_days"`
	Config      backtest.Snapshot        `json:"config" db:"config"`
	RegimeDays  map[string]int           `json:"regime_days" db:"regime_days"`
	Metrics     map[string]*perf.Metrics `json:"metrics" db:"metrics"`
	CreatedAt   time.Time                `json:"created_at" db:"created_at"`
}

// RecordFromResult flattens a run result into its ledger row.
func RecordFromResult(result *backtest.Result) RunRecord {
	metrics := make(map[string]*perf.Metrics, len(result.Portfolios))
	for _, p := range result.Portfolios {
		metrics[p.Name] = p.Metrics
	}
	return RunRecord{
		RunID:       result.RunID,
		GeneratedAt: result.GeneratedAt,
		StartDate:   result.Start.String(),
		EndDate:     result.End.String(),
		Warmup:      result.Warmup,
		EvalDays:    result.EvalDays,
		Config:      result.Config,
		RegimeDays:  result.RegimeDays,
		Metrics:     metrics,
	}
}

// RunRepo provides the run ledger.
type RunRepo interface {
	// SaveRun inserts or updates the run keyed by run ID
	SaveRun(ctx context.Context, record RunRecord) error

	// GetRun retrieves one run, nil when absent
	GetRun(ctx context.Context, runID string) (*RunRecord, error)

	// LatestRuns retrieves the most recent runs, newest first
	LatestRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// AuditSink records the evaluated days of a run for offline analysis.
type AuditSink interface {
	// WriteDays appends the audit trail of one run
	WriteDays(ctx context.Context, runID string, days []backtest.DayRecord) error

	// Close flushes and releases the sink
	Close() error
}
