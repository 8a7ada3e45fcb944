package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"regimerun/internal/backtest"
	"regimerun/internal/config"
	"regimerun/internal/data"
	"regimerun/internal/domain"
	logprogress "regimerun/internal/log"
	"regimerun/internal/metrics"
	"regimerun/internal/persistence"
	"regimerun/internal/persistence/clickhouse"
	"regimerun/internal/persistence/postgres"
	"regimerun/internal/report"
)

const persistTimeout = 10 * time.Second

var pipelineSteps = []string{"load", "backtest", "report", "persist"}

// runBacktest executes the full study pipeline end to end
func runBacktest(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	joinedPath, _ := cmd.Flags().GetString("joined")
	runID, _ := cmd.Flags().GetString("run-id")
	progressMode, _ := cmd.Flags().GetString("progress")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyRunOverrides(cmd.Flags(), cfg); err != nil {
		return err
	}

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}

	log.Info().
		Str("config", configPath).
		Str("out", cfg.Output.Dir).
		Int("z_window", cfg.Regime.ZWindow).
		Msg("Starting study run")

	registry := metrics.NewRegistry()
	timer := registry.StartRunTimer()
	stepLogger := logprogress.NewStepLogger("Study pipeline", pipelineSteps, progressConfig(progressMode))
	fail := func(err error) error {
		stepLogger.Fail(err.Error())
		timer.Stop("error")
		return err
	}

	stepLogger.StartStep("load")
	series, err := loadSeries(cfg, joinedPath, registry)
	if err != nil {
		return fail(err)
	}

	stepLogger.StartStep("backtest")
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return fail(err)
	}
	engineCfg.RunID = runID

	result, err := backtest.NewEngine(engineCfg).Run(series)
	if err != nil {
		return fail(err)
	}
	registry.RecordResult(result)

	stepLogger.StartStep("report")
	writer := report.NewWriter(cfg.Output.Dir, result.RunID)
	paths, err := writer.WriteAll(result)
	if err != nil {
		return fail(err)
	}
	if err := registry.WriteTextfile(filepath.Join(writer.OutputDir(), "metrics.prom")); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics textfile")
	}

	stepLogger.StartStep("persist")
	if err := persistRun(cmd.Context(), env, result); err != nil {
		return fail(err)
	}

	stepLogger.Finish()
	timer.Stop("success")

	printRunSummary(result, paths)

	log.Info().
		Str("run_id", result.RunID).
		Int("eval_days", result.EvalDays).
		Str("artifacts_dir", paths.OutputDir).
		Msg("Study run completed")
	return nil
}

// applyRunOverrides layers changed flags over the loaded config, then
// re-validates the result.
func applyRunOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("sp500") {
		cfg.Data.SP500CSV, _ = flags.GetString("sp500")
	}
	if flags.Changed("vix") {
		cfg.Data.VIXCSV, _ = flags.GetString("vix")
	}
	if flags.Changed("from") {
		cfg.Data.From, _ = flags.GetString("from")
	}
	if flags.Changed("to") {
		cfg.Data.To, _ = flags.GetString("to")
	}
	if flags.Changed("output") {
		cfg.Output.Dir, _ = flags.GetString("output")
	}
	if flags.Changed("z-window") {
		cfg.Regime.ZWindow, _ = flags.GetInt("z-window")
	}
	return cfg.Validate()
}

// loadSeries reads the configured inputs and bounds them to the study range.
func loadSeries(cfg *config.Config, joinedPath string, registry *metrics.Registry) (*domain.Series, error) {
	var (
		series *domain.Series
		err    error
	)
	if joinedPath != "" {
		series, err = data.LoadJoined(joinedPath)
		if err != nil {
			return nil, err
		}
		registry.RecordRowsLoaded("joined", series.Len())
	} else {
		var stats data.JoinStats
		series, stats, err = data.LoadCSV(cfg.Data.SP500CSV, cfg.Data.VIXCSV)
		if err != nil {
			return nil, err
		}
		registry.RecordRowsLoaded("sp500", stats.SP500Rows)
		registry.RecordRowsLoaded("vix", stats.VIXRows)
		registry.RecordRowsLoaded("joined", stats.Joined)
	}

	from, to, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}
	if !from.IsZero() || !to.IsZero() {
		series, err = series.Slice(from, to)
		if err != nil {
			return nil, err
		}
	}
	return series, nil
}

// persistRun writes the run to the optional backends. A configured backend
// that fails aborts the command; artifacts are already on disk at that point.
func persistRun(ctx context.Context, env *config.Env, result *backtest.Result) error {
	if env.PostgresDSN == "" && env.ClickHouseDSN == "" {
		log.Debug().Msg("no persistence backends configured")
		return nil
	}

	if env.PostgresDSN != "" {
		db, err := postgres.Open(env.PostgresDSN, persistTimeout)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer db.Close()

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("run ledger schema: %w", err)
		}
		repo := postgres.NewRunRepo(db, persistTimeout)
		if err := repo.SaveRun(ctx, persistence.RecordFromResult(result)); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		log.Info().Str("run_id", result.RunID).Msg("Run saved to ledger")
	}

	if env.ClickHouseDSN != "" {
		sink, err := clickhouse.NewSink(env.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("open audit sink: %w", err)
		}
		defer sink.Close()

		if err := sink.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("audit sink schema: %w", err)
		}
		if err := sink.WriteDays(ctx, result.RunID, result.Days); err != nil {
			return fmt.Errorf("write audit trail: %w", err)
		}
		log.Info().Str("run_id", result.RunID).Int("days", len(result.Days)).Msg("Audit trail written")
	}

	return nil
}

// printRunSummary prints the per-portfolio metrics and artifact paths
func printRunSummary(result *backtest.Result, paths *report.ArtifactPaths) {
	fmt.Printf("✅ Study run completed successfully!\n\n")
	fmt.Printf("📊 %s to %s (%d trading days evaluated, %d warmup days dropped)\n\n",
		result.Start, result.End, result.EvalDays, result.Warmup)

	printPortfolios(result)

	fmt.Printf("\n🌡️ Regime distribution:\n")
	for _, label := range []string{"low", "medium", "high"} {
		days := result.RegimeDays[label]
		fmt.Printf("   • %-6s %4d days (%.1f%%)\n", label, days,
			float64(days)/float64(result.EvalDays)*100)
	}

	fmt.Printf("\n📁 Artifacts Generated:\n")
	fmt.Printf("   • Results MD:   %s\n", paths.ResultsMD)
	fmt.Printf("   • Daily CSV:    %s\n", paths.DailyCSV)
	fmt.Printf("   • Summary JSON: %s\n", paths.SummaryJSON)
	fmt.Printf("   • Output Directory: %s\n", paths.OutputDir)
}

// printPortfolios prints one metrics line per portfolio
func printPortfolios(result *backtest.Result) {
	for _, portfolio := range result.Portfolios {
		m := portfolio.Metrics
		sharpe := "n/a"
		if m.SharpeValid {
			sharpe = fmt.Sprintf("%.2f", m.Sharpe)
		}
		fmt.Printf("   • %-12s cum %+8.2f%%  ann %+7.2f%%  vol %6.2f%%  sharpe %s  maxDD %.2f%%\n",
			report.DisplayName(portfolio.Name),
			m.CumulativeReturn*100, m.AnnualizedReturn*100, m.AnnualizedVol*100,
			sharpe, m.MaxDrawdown*100)
		if m.Flag != "" {
			fmt.Printf("     └─ %s\n", m.Flag)
		}
	}
}

// progressConfig maps the --progress flag onto an indicator configuration
func progressConfig(mode string) logprogress.ProgressConfig {
	switch mode {
	case "plain":
		return logprogress.QuietProgressConfig()
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return logprogress.QuietProgressConfig()
	default:
		return logprogress.AutoProgressConfig()
	}
}
