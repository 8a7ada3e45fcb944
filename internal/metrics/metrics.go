// Package metrics exposes study instrumentation as Prometheus metrics, served
// over HTTP by the monitor and exported as a textfile artifact per run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"regimerun/internal/backtest"
)

// Registry holds all Prometheus metrics for regimerun.
type Registry struct {
	registry *prometheus.Registry

	// Data loading metrics
	RowsLoaded *prometheus.CounterVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Result metrics, overwritten by the most recent run
	RegimeDays      *prometheus.GaugeVec
	PortfolioReturn *prometheus.GaugeVec
	PortfolioSharpe *prometheus.GaugeVec
}

// NewRegistry creates a metrics registry with all regimerun metrics.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		RowsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimerun_rows_loaded_total",
				Help: "Total number of observation rows loaded by source",
			},
			[]string{"source"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimerun_runs_total",
				Help: "Total number of study runs by outcome",
			},
			[]string{"outcome"},
		),

		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "regimerun_run_duration_seconds",
				Help:    "Duration of a full study run in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		RegimeDays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimerun_regime_days",
				Help: "Number of classified days per volatility regime in the last run",
			},
			[]string{"regime"},
		),

		PortfolioReturn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimerun_portfolio_cumulative_return",
				Help: "Cumulative return per portfolio in the last run",
			},
			[]string{"portfolio"},
		),

		PortfolioSharpe: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimerun_portfolio_sharpe",
				Help: "Sharpe ratio per portfolio in the last run, omitted when undefined",
			},
			[]string{"portfolio"},
		),
	}

	r.registry.MustRegister(
		r.RowsLoaded,
		r.RunsTotal,
		r.RunDuration,
		r.RegimeDays,
		r.PortfolioReturn,
		r.PortfolioSharpe,
	)

	return r
}

// RecordRowsLoaded records how many rows a data source contributed.
func (r *Registry) RecordRowsLoaded(source string, rows int) {
	r.RowsLoaded.WithLabelValues(source).Add(float64(rows))
}

// RecordResult publishes the outcome of a completed run.
func (r *Registry) RecordResult(result *backtest.Result) {
	for regime, days := range result.RegimeDays {
		r.RegimeDays.WithLabelValues(regime).Set(float64(days))
	}
	for _, p := range result.Portfolios {
		r.PortfolioReturn.WithLabelValues(p.Name).Set(p.Metrics.CumulativeReturn)
		if p.Metrics.SharpeValid {
			r.PortfolioSharpe.WithLabelValues(p.Name).Set(p.Metrics.Sharpe)
		}
	}
}

// RunTimer tracks the execution time of one study run.
type RunTimer struct {
	registry *Registry
	start    time.Time
}

// StartRunTimer begins timing a study run.
func (r *Registry) StartRunTimer() *RunTimer {
	return &RunTimer{
		registry: r,
		start:    time.Now(),
	}
}

// Stop completes the run timing and records the outcome.
func (t *RunTimer) Stop(outcome string) {
	duration := time.Since(t.start)
	t.registry.RunDuration.Observe(duration.Seconds())
	t.registry.RunsTotal.WithLabelValues(outcome).Inc()

	log.Debug().
		Str("outcome", outcome).
		Dur("duration", duration).
		Msg("Run completed")
}

// Handler returns an HTTP handler serving the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile exports the current metric values in text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
