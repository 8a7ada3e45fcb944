// Package backtest runs the study end to end: price signal, volatility
// regime, combined exposure, then lagged return attribution and performance
// metrics for the three portfolios.
package backtest

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"regimerun/internal/domain"
	"regimerun/internal/indicators"
	"regimerun/internal/regime"
	"regimerun/internal/report/perf"
	"regimerun/internal/signal"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using real time.
type RealClock struct{}

func (r *RealClock) Now() time.Time {
	return time.Now()
}

// Engine executes study runs.
type Engine struct {
	config *Config
	clock  Clock
}

// NewEngine creates an engine for the given configuration.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config, clock: &RealClock{}}
}

// SetClock sets the clock implementation (for testing).
func (e *Engine) SetClock(clock Clock) {
	e.clock = clock
}

// Run evaluates the three portfolios over the series. Days the indicator or
// regime windows cannot cover are dropped, and the one-day signal lag shifts
// the first attributable day one further; every portfolio is scored over the
// identical remaining range.
func (e *Engine) Run(series *domain.Series) (*Result, error) {
	priceSig, err := indicators.PriceSignal(series, e.config.Indicators)
	if err != nil {
		return nil, err
	}

	classification, err := regime.Classify(series, e.config.Regime)
	if err != nil {
		return nil, err
	}
	exposure, err := classification.ExposureSeries()
	if err != nil {
		return nil, err
	}

	finalSig, err := signal.Combine(priceSig, exposure)
	if err != nil {
		return nil, err
	}

	warmup := priceSig.Warmup()
	if classification.Warmup() > warmup {
		warmup = classification.Warmup()
	}
	// lagged attribution needs a prior-day signal, so evaluation starts one
	// day after the warmup region
	evalStart := warmup + 1
	n := series.Len()
	if n-evalStart < 1 {
		return nil, domain.NewComputationError("backtest", warmup+2,
			"need %d observations for one evaluated day, have %d", warmup+2, n)
	}

	evalDays := n - evalStart
	dates := series.Dates()[evalStart:]
	assetReturns := make([]float64, evalDays)
	priceOnly := make([]float64, evalDays)
	volCond := make([]float64, evalDays)
	buyHold := make([]float64, evalDays)
	for i := 0; i < evalDays; i++ {
		t := evalStart + i
		assetRet := series.At(t).SP500/series.At(t-1).SP500 - 1
		assetReturns[i] = assetRet
		priceOnly[i] = priceSig.Values[t-1] * assetRet
		volCond[i] = finalSig.Values[t-1] * assetRet
		buyHold[i] = assetRet
	}

	calc, err := perf.NewCalculator(e.config.Perf)
	if err != nil {
		return nil, err
	}
	portfolios := make([]*PortfolioResult, 0, 3)
	for _, leg := range []struct {
		name    string
		returns []float64
	}{
		{PortfolioPriceOnly, priceOnly},
		{PortfolioVolConditioned, volCond},
		{PortfolioBuyHold, buyHold},
	} {
		metrics, err := calc.Compute(leg.name, dates, leg.returns)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, &PortfolioResult{
			Name:    leg.name,
			Metrics: metrics,
			Returns: leg.returns,
			Equity:  perf.EquityCurve(leg.returns),
		})
	}

	runID := e.config.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	regimeDays := make(map[string]int, 3)
	for r, count := range classification.CountByRegime() {
		regimeDays[r.String()] = count
	}

	result := &Result{
		RunID:       runID,
		GeneratedAt: e.clock.Now().UTC(),
		Config:      e.config.snapshot(),
		Start:       dates[0],
		End:         dates[len(dates)-1],
		Warmup:      evalStart,
		EvalDays:    evalDays,
		RegimeDays:  regimeDays,
		Portfolios:  portfolios,
	}
	result.Days = buildDayRecords(series, classification, priceSig, finalSig, portfolios, evalStart)

	log.Info().
		Str("run_id", runID).
		Int("eval_days", evalDays).
		Int("warmup", evalStart).
		Str("from", result.Start.String()).
		Str("to", result.End.String()).
		Msg("backtest complete")
	return result, nil
}

func buildDayRecords(series *domain.Series, classification *regime.Classification,
	priceSig, finalSig *signal.Series, portfolios []*PortfolioResult, evalStart int) []DayRecord {

	evalDays := series.Len() - evalStart
	records := make([]DayRecord, evalDays)
	byName := make(map[string]*PortfolioResult, len(portfolios))
	for _, p := range portfolios {
		byName[p.Name] = p
	}
	po, vc, bh := byName[PortfolioPriceOnly], byName[PortfolioVolConditioned], byName[PortfolioBuyHold]

	for i := 0; i < evalDays; i++ {
		t := evalStart + i
		obs := series.At(t)
		records[i] = DayRecord{
			Date:            obs.Date,
			SP500:           obs.SP500,
			VIX:             obs.VIX,
			ZScore:          classification.ZScores[t],
			Regime:          classification.Regimes[t],
			Exposure:        classification.Exposures[t],
			PriceSignal:     priceSig.Values[t],
			FinalSignal:     finalSig.Values[t],
			AssetReturn:     bh.Returns[i],
			PriceOnlyReturn: po.Returns[i],
			VolCondReturn:   vc.Returns[i],
			BuyHoldReturn:   bh.Returns[i],
			PriceOnlyEquity: po.Equity[i],
			VolCondEquity:   vc.Equity[i],
			BuyHoldEquity:   bh.Equity[i],
		}
	}
	return records
}
