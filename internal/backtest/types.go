package backtest

import (
	"time"

	"regimerun/internal/domain"
	"regimerun/internal/indicators"
	"regimerun/internal/regime"
	"regimerun/internal/report/perf"
)

// Portfolio names, in report order.
const (
	PortfolioPriceOnly      = "price_only"
	PortfolioVolConditioned = "vol_conditioned"
	PortfolioBuyHold        = "buy_hold"
)

// Config assembles the stage configurations for one study run.
type Config struct {
	Indicators indicators.Config
	Regime     regime.Config
	Perf       perf.Config
	RunID      string // assigned when empty
}

// DefaultConfig returns the shipped study parameterization.
func DefaultConfig() *Config {
	return &Config{
		Indicators: indicators.DefaultConfig(),
		Regime:     regime.DefaultConfig(),
		Perf:       perf.DefaultConfig(),
	}
}

// Snapshot is the serialized form of the run parameters, embedded in the
// summary artifact so a run can be re-rendered without its config file.
type Snapshot struct {
	FastMA             int                `json:"fast_ma"`
	SlowMA             int                `json:"slow_ma"`
	RSIWindow          int                `json:"rsi_window"`
	RSILower           float64            `json:"rsi_lower"`
	RSIUpper           float64            `json:"rsi_upper"`
	ZWindow            int                `json:"z_window"`
	Exposure           map[string]float64 `json:"exposure"`
	TradingDaysPerYear int                `json:"trading_days_per_year"`
	RiskFreeRate       float64            `json:"risk_free_rate"`
}

func (c *Config) snapshot() Snapshot {
	exposure := make(map[string]float64, len(c.Regime.Exposure))
	for r, w := range c.Regime.Exposure {
		exposure[r.String()] = w
	}
	return Snapshot{
		FastMA:             c.Indicators.FastMA,
		SlowMA:             c.Indicators.SlowMA,
		RSIWindow:          c.Indicators.RSIWindow,
		RSILower:           c.Indicators.RSILower,
		RSIUpper:           c.Indicators.RSIUpper,
		ZWindow:            c.Regime.ZWindow,
		Exposure:           exposure,
		TradingDaysPerYear: c.Perf.TradingDaysPerYear,
		RiskFreeRate:       c.Perf.RiskFreeRate,
	}
}

// DayRecord is one evaluated trading day in the audit trail. Signals are the
// day's own values; returns attribute the prior day's final signal to the
// day's price move.
type DayRecord struct {
	Date            domain.Date   `json:"date" csv:"date"`
	SP500           float64       `json:"sp500" csv:"sp500"`
	VIX             float64       `json:"vix" csv:"vix"`
	ZScore          float64       `json:"z_score" csv:"z_score"`
	Regime          domain.Regime `json:"regime" csv:"regime"`
	Exposure        float64       `json:"exposure" csv:"exposure"`
	PriceSignal     float64       `json:"price_signal" csv:"price_signal"`
	FinalSignal     float64       `json:"final_signal" csv:"final_signal"`
	AssetReturn     float64       `json:"asset_return" csv:"asset_return"`
	PriceOnlyReturn float64       `json:"price_only_return" csv:"price_only_return"`
	VolCondReturn   float64       `json:"vol_cond_return" csv:"vol_cond_return"`
	BuyHoldReturn   float64       `json:"buy_hold_return" csv:"buy_hold_return"`
	PriceOnlyEquity float64       `json:"price_only_equity" csv:"price_only_equity"`
	VolCondEquity   float64       `json:"vol_cond_equity" csv:"vol_cond_equity"`
	BuyHoldEquity   float64       `json:"buy_hold_equity" csv:"buy_hold_equity"`
}

// PortfolioResult bundles one portfolio's return stream with its metrics.
type PortfolioResult struct {
	Name    string        `json:"name"`
	Metrics *perf.Metrics `json:"metrics"`
	Returns []float64     `json:"-"`
	Equity  []float64     `json:"-"`
}

// Result is the complete outcome of a study run.
type Result struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Config      Snapshot           `json:"config"`
	Start       domain.Date        `json:"start"`        // first evaluated day
	End         domain.Date        `json:"end"`
	Warmup      int                `json:"warmup"`       // leading days dropped
	EvalDays    int                `json:"eval_days"`
	RegimeDays  map[string]int     `json:"regime_days"`
	Portfolios  []*PortfolioResult `json:"portfolios"`
	Days        []DayRecord        `json:"-"`            // written separately as the audit trail
}

// Portfolio returns the named portfolio result, nil when absent.
func (r *Result) Portfolio(name string) *PortfolioResult {
	for _, p := range r.Portfolios {
		if p.Name == name {
			return p
		}
	}
	return nil
}
