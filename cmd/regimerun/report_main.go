package main

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"regimerun/internal/report"
)

// runReport re-renders the results tables of a stored run directory
func runReport(cmd *cobra.Command, args []string) error {
	runDir, _ := cmd.Flags().GetString("run")
	format, _ := cmd.Flags().GetString("format")

	if runDir == "" {
		return fmt.Errorf("--run is required")
	}

	summaryPath := filepath.Join(runDir, "summary.json")
	result, err := report.ReadSummary(summaryPath)
	if err != nil {
		return err
	}

	// Render into the directory the user named, even if it was moved
	// away from <base>/<run-id> since the run.
	writer := report.NewWriter(filepath.Dir(runDir), filepath.Base(runDir))
	paths, err := writer.WriteTable(result, format)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Report re-rendered from %s\n\n", summaryPath)
	printPortfolios(result)
	fmt.Printf("\n📁 Artifacts Generated:\n")
	if format == report.FormatMD || format == report.FormatBoth {
		fmt.Printf("   • Results MD:  %s\n", paths.ResultsMD)
	}
	if format == report.FormatCSV || format == report.FormatBoth {
		fmt.Printf("   • Results CSV: %s\n", paths.ResultsCSV)
	}

	log.Info().
		Str("run_id", result.RunID).
		Str("format", format).
		Msg("Report re-rendered")
	return nil
}
