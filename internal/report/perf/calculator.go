// Package perf computes the per-portfolio performance metrics the study
// reports: cumulative and annualized return, annualized volatility, Sharpe
// ratio and maximum drawdown.
package perf

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"regimerun/internal/domain"
)

// Metrics is the scored result for one portfolio.
type Metrics struct {
	Portfolio        string      `json:"portfolio"`
	Start            domain.Date `json:"start"`
	End              domain.Date `json:"end"`
	Days             int         `json:"days"`              // daily returns scored
	CumulativeReturn float64     `json:"cumulative_return"` // total growth - 1
	AnnualizedReturn float64     `json:"annualized_return"`
	AnnualizedVol    float64     `json:"annualized_vol"`
	Sharpe           float64     `json:"sharpe"`
	SharpeValid      bool        `json:"sharpe_valid"`      // false when volatility is zero or undefined
	MaxDrawdown      float64     `json:"max_drawdown"`      // <= 0
	Flag             string      `json:"flag,omitempty"`    // why a metric is unavailable
}

// Config parameterizes annualization.
type Config struct {
	TradingDaysPerYear int     `yaml:"trading_days_per_year"` // Default: 252
	RiskFreeRate       float64 `yaml:"risk_free_rate"`        // Annual, default: 0
}

// DefaultConfig returns the standard annualization settings.
func DefaultConfig() Config {
	return Config{TradingDaysPerYear: 252, RiskFreeRate: 0}
}

// Calculator scores daily return streams.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator with the given annualization settings.
func NewCalculator(config Config) (*Calculator, error) {
	if config.TradingDaysPerYear <= 0 {
		return nil, domain.NewConfigError("trading_days_per_year", config.TradingDaysPerYear, "must be positive")
	}
	if config.RiskFreeRate < 0 {
		return nil, domain.NewConfigError("risk_free_rate", config.RiskFreeRate, "must not be negative")
	}
	return &Calculator{config: config}, nil
}

// Compute scores one portfolio's daily returns. dates[i] is the day return
// returns[i] was earned. A zero or undefined volatility marks the Sharpe
// ratio unavailable instead of dividing into NaN.
func (c *Calculator) Compute(portfolio string, dates []domain.Date, returns []float64) (*Metrics, error) {
	if len(returns) == 0 {
		return nil, domain.NewComputationError("perf "+portfolio, 0, "no returns to score")
	}
	if len(dates) != len(returns) {
		return nil, domain.NewDataError("perf "+portfolio, "dates (%d) and returns (%d) differ in length", len(dates), len(returns))
	}
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, domain.NewComputationError("perf "+portfolio, 0, "return on %s is not finite", dates[i])
		}
	}

	equity := EquityCurve(returns)
	growth := equity[len(equity)-1]

	m := &Metrics{
		Portfolio:        portfolio,
		Start:            dates[0],
		End:              dates[len(dates)-1],
		Days:             len(returns),
		CumulativeReturn: growth - 1,
		MaxDrawdown:      MaxDrawdown(equity),
	}
	m.AnnualizedReturn = math.Pow(growth, float64(c.config.TradingDaysPerYear)/float64(len(returns))) - 1

	if len(returns) >= 2 {
		m.AnnualizedVol = stat.StdDev(returns, nil) * math.Sqrt(float64(c.config.TradingDaysPerYear))
	}
	switch {
	case len(returns) < 2:
		m.Flag = domain.NewComputationError("perf "+portfolio, 0, "volatility undefined over %d return(s)", len(returns)).Error()
	case m.AnnualizedVol == 0:
		m.Flag = domain.NewComputationError("perf "+portfolio, 0, "zero volatility, sharpe unavailable").Error()
	default:
		m.Sharpe = (m.AnnualizedReturn - c.config.RiskFreeRate) / m.AnnualizedVol
		m.SharpeValid = true
	}
	return m, nil
}

// EquityCurve compounds daily returns into growth-of-one values,
// equity[i] covering the same day as returns[i].
func EquityCurve(returns []float64) []float64 {
	equity := make([]float64, len(returns))
	cum := 1.0
	for i, r := range returns {
		cum *= 1 + r
		equity[i] = cum
	}
	return equity
}

// MaxDrawdown returns the deepest peak-to-trough decline of an equity curve
// as a non-positive fraction. The peak tracks the curve itself, so a curve
// that only rises reports zero.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		dd := v/peak - 1
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
