package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"regimerun/internal/persistence"
)

// runRepo implements RunRepo for PostgreSQL
type runRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRunRepo creates a PostgreSQL run ledger repository
func NewRunRepo(db *sqlx.DB, timeout time.Duration) persistence.RunRepo {
	return &runRepo{
		db:      db,
		timeout: timeout,
	}
}

// SaveRun inserts or updates the run keyed by run ID
func (r *runRepo) SaveRun(ctx context.Context, record persistence.RunRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if record.RunID == "" {
		return fmt.Errorf("run id is required")
	}

	configJSON, err := json.Marshal(record.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	regimeJSON, err := json.Marshal(record.RegimeDays)
	if err != nil {
		return fmt.Errorf("failed to marshal regime days: %w", err)
	}
	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO study_runs
		(run_id, generated_at, start_date, end_date, warmup, eval_days, config, regime_days, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			warmup = EXCLUDED.warmup,
			eval_days = EXCLUDED.eval_days,
			config = EXCLUDED.config,
			regime_days = EXCLUDED.regime_days,
			metrics = EXCLUDED.metrics
		RETURNING created_at`

	err = r.db.QueryRowxContext(ctx, query,
		record.RunID, record.GeneratedAt, record.StartDate, record.EndDate,
		record.Warmup, record.EvalDays, configJSON, regimeJSON, metricsJSON).
		Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetRun retrieves one run, nil when absent
func (r *runRepo) GetRun(ctx context.Context, runID string) (*persistence.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, generated_at, start_date, end_date, warmup, eval_days,
		       config, regime_days, metrics, created_at
		FROM study_runs
		WHERE run_id = $1`

	row := r.db.QueryRowxContext(ctx, query, runID)
	record, err := scanRunRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return record, nil
}

// LatestRuns retrieves the most recent runs, newest first
func (r *runRepo) LatestRuns(ctx context.Context, limit int) ([]persistence.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, generated_at, start_date, end_date, warmup, eval_days,
		       config, regime_days, metrics, created_at
		FROM study_runs
		ORDER BY generated_at DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []persistence.RunRecord
	for rows.Next() {
		record, err := scanRunRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Helper methods

func scanRunRecord(row *sqlx.Row) (*persistence.RunRecord, error) {
	var record persistence.RunRecord
	var configJSON, regimeJSON, metricsJSON []byte

	err := row.Scan(
		&record.RunID, &record.GeneratedAt, &record.StartDate, &record.EndDate,
		&record.Warmup, &record.EvalDays, &configJSON, &regimeJSON, &metricsJSON,
		&record.CreatedAt)

	if err != nil {
		return nil, err
	}

	if err := unmarshalRunColumns(&record, configJSON, regimeJSON, metricsJSON); err != nil {
		return nil, err
	}

	return &record, nil
}

func scanRunRecordFromRows(rows *sqlx.Rows) (*persistence.RunRecord, error) {
	var record persistence.RunRecord
	var configJSON, regimeJSON, metricsJSON []byte

	err := rows.Scan(
		&record.RunID, &record.GeneratedAt, &record.StartDate, &record.EndDate,
		&record.Warmup, &record.EvalDays, &configJSON, &regimeJSON, &metricsJSON,
		&record.CreatedAt)

	if err != nil {
		return nil, err
	}

	if err := unmarshalRunColumns(&record, configJSON, regimeJSON, metricsJSON); err != nil {
		return nil, err
	}

	return &record, nil
}

func unmarshalRunColumns(record *persistence.RunRecord, configJSON, regimeJSON, metricsJSON []byte) error {
	if err := json.Unmarshal(configJSON, &record.Config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(regimeJSON) > 0 {
		if err := json.Unmarshal(regimeJSON, &record.RegimeDays); err != nil {
			return fmt.Errorf("failed to unmarshal regime days: %w", err)
		}
	} else {
		record.RegimeDays = make(map[string]int)
	}

	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &record.Metrics); err != nil {
			return fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
	}

	return nil
}
