package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"regimerun/internal/config"
	"regimerun/internal/data/yahoo"
	"regimerun/internal/domain"
	logprogress "regimerun/internal/log"
)

// runFetch downloads both daily close series and writes the study's CSVs
func runFetch(cmd *cobra.Command, args []string) error {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	outDir, _ := cmd.Flags().GetString("output")
	progressMode, _ := cmd.Flags().GetString("progress")

	from, err := domain.ParseDate(fromStr)
	if err != nil {
		return fmt.Errorf("invalid from date %q: %w", fromStr, err)
	}
	to := domain.Today()
	if toStr != "" {
		to, err = domain.ParseDate(toStr)
		if err != nil {
			return fmt.Errorf("invalid to date %q: %w", toStr, err)
		}
	}
	if to.Before(from) {
		return fmt.Errorf("range ends before it starts: %s to %s", from, to)
	}

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = env.DataDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", outDir, err)
	}

	log.Info().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("out", outDir).
		Bool("redis_cache", env.RedisAddr != "").
		Msg("Starting fetch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	client := yahoo.NewClient(yahoo.NewCache(env.RedisAddr))

	targets := []struct {
		symbol string
		file   string
	}{
		{yahoo.SymbolSP500, "sp500.csv"},
		{yahoo.SymbolVIX, "vix.csv"},
	}

	progress := logprogress.NewProgressIndicator("Fetching daily bars", len(targets), progressConfig(progressMode))
	written := make([]string, 0, len(targets))
	for i, target := range targets {
		progress.UpdateWithMessage(i, target.symbol)

		bars, err := client.FetchDaily(ctx, target.symbol, from, to)
		if err != nil {
			progress.Fail(err.Error())
			return err
		}

		path := filepath.Join(outDir, target.file)
		if err := yahoo.WriteCSV(path, bars); err != nil {
			progress.Fail(err.Error())
			return err
		}
		written = append(written, fmt.Sprintf("%s (%d bars)", path, len(bars)))
	}
	progress.FinishWithMessage(fmt.Sprintf("%d series", len(targets)))

	fmt.Printf("✅ Fetch completed successfully!\n\n")
	fmt.Printf("📁 Files written:\n")
	for _, line := range written {
		fmt.Printf("   • %s\n", line)
	}
	fmt.Printf("\nRun the study with:\n")
	fmt.Printf("   regimerun backtest --sp500 %s --vix %s\n",
		filepath.Join(outDir, "sp500.csv"), filepath.Join(outDir, "vix.csv"))

	return nil
}
