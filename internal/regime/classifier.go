// Package regime classifies each trading day's volatility environment from a
// rolling z-score of the VIX and maps it to an exposure weight.
package regime

import (
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"regimerun/internal/domain"
	"regimerun/internal/signal"
)

// Config parameterizes the classifier.
type Config struct {
	ZWindow  int                       // trailing days in the z-score window, current day included
	Exposure map[domain.Regime]float64 // weight per regime, each in [0, 1]
}

// DefaultConfig returns the study parameterization: a one-year window with
// full, half and zero exposure across the three regimes.
func DefaultConfig() Config {
	return Config{
		ZWindow: 252,
		Exposure: map[domain.Regime]float64{
			domain.RegimeLow:    1.0,
			domain.RegimeMedium: 0.5,
			domain.RegimeHigh:   0.0,
		},
	}
}

func (c Config) validate() error {
	if c.ZWindow <= 1 {
		return domain.NewConfigError("z_window", c.ZWindow, "window must exceed 1")
	}
	for _, r := range domain.Regimes() {
		weight, ok := c.Exposure[r]
		if !ok {
			return domain.NewConfigError("exposure", r.String(), "missing exposure for regime")
		}
		if weight < 0 || weight > 1 {
			return domain.NewConfigError("exposure."+r.String(), weight, "exposure must be within [0, 1]")
		}
	}
	return nil
}

// Classification holds the per-day regime assignment. Entries before
// Warmup() carry NaN z-scores and exposures; their Regime values are
// meaningless.
type Classification struct {
	Dates     []domain.Date
	ZScores   []float64
	Regimes   []domain.Regime
	Exposures []float64

	warmup int
}

// Warmup returns the index of the first classified day.
func (c *Classification) Warmup() int {
	return c.warmup
}

// Len returns the number of days, warmup included.
func (c *Classification) Len() int {
	return len(c.Dates)
}

// ExposureSeries returns the exposure weights as a dated series for the
// combiner, NaN over the warmup region.
func (c *Classification) ExposureSeries() (*signal.Series, error) {
	return signal.NewSeries(c.Dates, c.Exposures)
}

// CountByRegime tallies classified days per regime.
func (c *Classification) CountByRegime() map[domain.Regime]int {
	counts := make(map[domain.Regime]int, 3)
	for i := c.warmup; i < len(c.Regimes); i++ {
		counts[c.Regimes[i]]++
	}
	return counts
}

// Classify assigns a volatility regime to every day with a full trailing
// window. The z-score compares the day's VIX close against the window's mean
// and sample standard deviation; boundaries are half-open so that z=0 is
// Medium and z=1 is High. A zero-variance window aborts the classification
// rather than emitting NaN.
func Classify(series *domain.Series, cfg Config) (*Classification, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	vix := series.VIX()
	if len(vix) < cfg.ZWindow {
		return nil, domain.NewComputationError("regime classify", cfg.ZWindow,
			"need %d observations, have %d", cfg.ZWindow, len(vix))
	}

	n := len(vix)
	warmup := cfg.ZWindow - 1
	out := &Classification{
		Dates:     series.Dates(),
		ZScores:   make([]float64, n),
		Regimes:   make([]domain.Regime, n),
		Exposures: make([]float64, n),
		warmup:    warmup,
	}

	for i := 0; i < warmup; i++ {
		out.ZScores[i] = math.NaN()
		out.Exposures[i] = math.NaN()
	}
	for i := warmup; i < n; i++ {
		window := vix[i-cfg.ZWindow+1 : i+1]
		mean, std := stat.MeanStdDev(window, nil)
		if std == 0 {
			return nil, domain.NewComputationError("regime classify", cfg.ZWindow,
				"zero variance in window ending %s", series.At(i).Date)
		}
		z := (vix[i] - mean) / std
		r := classifyZ(z)
		out.ZScores[i] = z
		out.Regimes[i] = r
		out.Exposures[i] = cfg.Exposure[r]
	}

	counts := out.CountByRegime()
	log.Debug().
		Int("low", counts[domain.RegimeLow]).
		Int("medium", counts[domain.RegimeMedium]).
		Int("high", counts[domain.RegimeHigh]).
		Int("warmup", warmup).
		Msg("regimes classified")
	return out, nil
}

func classifyZ(z float64) domain.Regime {
	switch {
	case z < 0:
		return domain.RegimeLow
	case z < 1:
		return domain.RegimeMedium
	default:
		return domain.RegimeHigh
	}
}
