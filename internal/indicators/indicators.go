// Package indicators computes the moving-average and RSI based price signal.
// The heavy lifting is delegated to talib; this package owns window
// validation and the warmup convention (leading NaN entries, where talib
// zero-fills).
package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"regimerun/internal/domain"
	"regimerun/internal/signal"
)

// Config parameterizes the price signal.
type Config struct {
	FastMA    int     `yaml:"fast_ma"`
	SlowMA    int     `yaml:"slow_ma"`
	RSIWindow int     `yaml:"rsi_window"`
	RSILower  float64 `yaml:"rsi_lower"`
	RSIUpper  float64 `yaml:"rsi_upper"`
}

// DefaultConfig returns the parameterization used by the study.
func DefaultConfig() Config {
	return Config{FastMA: 10, SlowMA: 30, RSIWindow: 14, RSILower: 30, RSIUpper: 70}
}

func (c Config) validate() error {
	if c.FastMA <= 0 {
		return domain.NewConfigError("fast_ma", c.FastMA, "window must be positive")
	}
	if c.SlowMA <= 0 {
		return domain.NewConfigError("slow_ma", c.SlowMA, "window must be positive")
	}
	if c.FastMA >= c.SlowMA {
		return domain.NewConfigError("fast_ma", c.FastMA, "fast window must be below the slow window")
	}
	if c.RSIWindow <= 0 {
		return domain.NewConfigError("rsi_window", c.RSIWindow, "window must be positive")
	}
	if c.RSILower >= c.RSIUpper {
		return domain.NewConfigError("rsi_lower", c.RSILower, "band must be below rsi_upper")
	}
	return nil
}

// Warmup returns the number of leading days the signal cannot be evaluated:
// the slow average needs SlowMA-1 prior days, Wilder RSI needs RSIWindow.
func (c Config) Warmup() int {
	warmup := c.SlowMA - 1
	if c.RSIWindow > warmup {
		warmup = c.RSIWindow
	}
	return warmup
}

// SMA computes the simple moving average, NaN over the first window-1 entries.
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, domain.NewConfigError("sma_window", window, "window must be positive")
	}
	if len(values) < window {
		return nil, domain.NewComputationError("sma", window, "need %d values, have %d", window, len(values))
	}
	out := talib.Sma(values, window)
	markWarmup(out, window-1)
	return out, nil
}

// RSI computes the Wilder relative strength index, NaN over the first
// window entries.
func RSI(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, domain.NewConfigError("rsi_window", window, "window must be positive")
	}
	if len(values) < window+1 {
		return nil, domain.NewComputationError("rsi", window, "need %d values, have %d", window+1, len(values))
	}
	out := talib.Rsi(values, window)
	markWarmup(out, window)
	return out, nil
}

// PriceSignal evaluates the binary trend filter on each day: long when the
// fast average sits above the slow one and RSI is inside the band, flat
// otherwise. Warmup days carry NaN.
func PriceSignal(series *domain.Series, cfg Config) (*signal.Series, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	closes := series.Closes()
	if len(closes) <= cfg.Warmup() {
		return nil, domain.NewComputationError("price signal", cfg.Warmup()+1,
			"need %d observations, have %d", cfg.Warmup()+1, len(closes))
	}

	fast, err := SMA(closes, cfg.FastMA)
	if err != nil {
		return nil, err
	}
	slow, err := SMA(closes, cfg.SlowMA)
	if err != nil {
		return nil, err
	}
	rsi, err := RSI(closes, cfg.RSIWindow)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(closes))
	warmup := cfg.Warmup()
	for i := range closes {
		if i < warmup {
			values[i] = math.NaN()
			continue
		}
		if fast[i] > slow[i] && rsi[i] > cfg.RSILower && rsi[i] < cfg.RSIUpper {
			values[i] = 1
		} else {
			values[i] = 0
		}
	}
	return signal.NewSeries(series.Dates(), values)
}

// markWarmup overwrites talib's zero-filled warmup region so an unset value
// can never be mistaken for a real one.
func markWarmup(values []float64, n int) {
	for i := 0; i < n && i < len(values); i++ {
		values[i] = math.NaN()
	}
}
