package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "regimerun"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Volatility regime study over the S&P 500",
		Version: version,
		Long: `regimerun compares a price-signal strategy against its VIX-regime-conditioned
variant over daily S&P 500 data.

The price signal is a moving average crossover gated by an RSI band. The regime
classifier buckets each day by rolling VIX z-score and scales exposure down as
volatility rises. Both strategies and a buy-and-hold baseline are attributed
with a one-day signal lag and scored over the identical evaluated range.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	// Add backtest command for the full study pipeline
	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the full study pipeline",
		Long:  "Load the daily series, compute signals and regimes, backtest all three portfolios and write run artifacts",
		RunE:  runBacktest,
	}

	backtestCmd.Flags().String("config", "", "Study config file (YAML), defaults apply when empty")
	backtestCmd.Flags().String("sp500", "", "S&P 500 daily close CSV (overrides config)")
	backtestCmd.Flags().String("vix", "", "VIX daily close CSV (overrides config)")
	backtestCmd.Flags().String("joined", "", "Pre-joined date,sp500,vix CSV (replaces the pair)")
	backtestCmd.Flags().String("from", "", "Start of study range (YYYY-MM-DD)")
	backtestCmd.Flags().String("to", "", "End of study range (YYYY-MM-DD)")
	backtestCmd.Flags().String("output", "", "Artifact directory (overrides config)")
	backtestCmd.Flags().Int("z-window", 0, "VIX z-score window in trading days (overrides config)")
	backtestCmd.Flags().String("run-id", "", "Run identifier, generated when empty")
	backtestCmd.Flags().String("progress", "auto", "Progress output mode (auto|plain|json)")

	// Add fetch command for downloading the input series
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the daily input series",
		Long:  "Fetches ^GSPC and ^VIX daily closes from Yahoo Finance and writes the two CSV files the backtest command reads",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("from", "2015-01-01", "First trading day to request (YYYY-MM-DD)")
	fetchCmd.Flags().String("to", "", "Last trading day to request (YYYY-MM-DD), defaults to today")
	fetchCmd.Flags().String("output", "", "Directory for sp500.csv and vix.csv (defaults to the data dir)")
	fetchCmd.Flags().String("progress", "auto", "Progress output mode (auto|plain)")

	// Add report command for re-rendering stored runs
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render the results tables of a stored run",
		Long:  "Reads a run's summary.json and regenerates the results tables without recomputing the backtest",
		RunE:  runReport,
	}

	reportCmd.Flags().String("run", "", "Run directory containing summary.json (required)")
	reportCmd.Flags().String("format", "both", "Table format to render (md|csv|both)")

	// Add monitor command for HTTP endpoints
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the monitoring HTTP server",
		Long:  "Serves /health with dependency probes and /metrics in Prometheus format",
		RunE:  runMonitor,
	}

	monitorCmd.Flags().String("addr", "", "Listen address (defaults to REGIMERUN_METRICS_ADDR)")

	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(monitorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
