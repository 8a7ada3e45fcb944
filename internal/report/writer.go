// Package report renders run artifacts: the results table as markdown and
// CSV, the daily audit trail, equity curves and a machine-readable summary.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"

	"regimerun/internal/backtest"
	"regimerun/internal/domain"
)

// DisplayName maps a portfolio key to its table label.
func DisplayName(portfolio string) string {
	switch portfolio {
	case backtest.PortfolioPriceOnly:
		return "Price Only"
	case backtest.PortfolioVolConditioned:
		return "Price + VIX"
	case backtest.PortfolioBuyHold:
		return "Buy & Hold"
	default:
		return portfolio
	}
}

// ArtifactPaths lists the files a run produced.
type ArtifactPaths struct {
	OutputDir   string `json:"output_dir"`
	ResultsMD   string `json:"results_md"`
	ResultsCSV  string `json:"results_csv"`
	DailyCSV    string `json:"daily_csv"`
	DailyJSONL  string `json:"daily_jsonl"`
	EquityCSV   string `json:"equity_csv"`
	SummaryJSON string `json:"summary_json"`
}

// Writer renders artifacts for one run under <baseDir>/<runID>/.
type Writer struct {
	outputDir string
}

// NewWriter creates a writer rooted at the run's artifact directory.
func NewWriter(baseDir, runID string) *Writer {
	return &Writer{outputDir: filepath.Join(baseDir, runID)}
}

// OutputDir returns the run's artifact directory.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// Paths returns where each artifact lives.
func (w *Writer) Paths() *ArtifactPaths {
	return &ArtifactPaths{
		OutputDir:   w.outputDir,
		ResultsMD:   filepath.Join(w.outputDir, "results.md"),
		ResultsCSV:  filepath.Join(w.outputDir, "results.csv"),
		DailyCSV:    filepath.Join(w.outputDir, "daily.csv"),
		DailyJSONL:  filepath.Join(w.outputDir, "daily.jsonl"),
		EquityCSV:   filepath.Join(w.outputDir, "equity.csv"),
		SummaryJSON: filepath.Join(w.outputDir, "summary.json"),
	}
}

// WriteAll renders every artifact for the run.
func (w *Writer) WriteAll(result *backtest.Result) (*ArtifactPaths, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := w.Paths()

	if err := w.writeResultsMD(paths.ResultsMD, result); err != nil {
		return nil, err
	}
	if err := w.writeResultsCSV(paths.ResultsCSV, result); err != nil {
		return nil, err
	}
	if err := w.writeDaily(paths.DailyCSV, paths.DailyJSONL, result); err != nil {
		return nil, err
	}
	if err := w.writeEquityCSV(paths.EquityCSV, result); err != nil {
		return nil, err
	}
	if err := w.writeSummaryJSON(paths.SummaryJSON, result, paths); err != nil {
		return nil, err
	}

	log.Info().Str("dir", w.outputDir).Msg("artifacts written")
	return paths, nil
}

// Table formats WriteTable can render.
const (
	FormatMD   = "md"
	FormatCSV  = "csv"
	FormatBoth = "both"
)

// WriteTable re-renders only the results table artifacts, used when a stored
// summary is rendered again.
func (w *Writer) WriteTable(result *backtest.Result, format string) (*ArtifactPaths, error) {
	switch format {
	case FormatMD, FormatCSV, FormatBoth:
	default:
		return nil, fmt.Errorf("unknown table format %q", format)
	}
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := w.Paths()
	if format == FormatMD || format == FormatBoth {
		if err := w.writeResultsMD(paths.ResultsMD, result); err != nil {
			return nil, err
		}
	}
	if format == FormatCSV || format == FormatBoth {
		if err := w.writeResultsCSV(paths.ResultsCSV, result); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func (w *Writer) writeResultsMD(path string, result *backtest.Result) error {
	var b strings.Builder

	b.WriteString("# Volatility Regime Study\n\n")
	b.WriteString(fmt.Sprintf("**Run**: %s\n", result.RunID))
	b.WriteString(fmt.Sprintf("**Generated**: %s\n", result.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("**Period**: %s to %s (%d trading days evaluated, %d warmup days dropped)\n",
		result.Start, result.End, result.EvalDays, result.Warmup))
	cfg := result.Config
	b.WriteString(fmt.Sprintf("**Signal**: MA %d/%d, RSI %d band (%.0f, %.0f)\n",
		cfg.FastMA, cfg.SlowMA, cfg.RSIWindow, cfg.RSILower, cfg.RSIUpper))
	b.WriteString(fmt.Sprintf("**Regime**: VIX z-score over %d days, exposure low=%.2f medium=%.2f high=%.2f\n\n",
		cfg.ZWindow, cfg.Exposure["low"], cfg.Exposure["medium"], cfg.Exposure["high"]))

	b.WriteString("## Performance\n\n")
	b.WriteString("| Portfolio | Cumulative Return | Annualized Return | Annualized Vol | Sharpe | Max Drawdown |\n")
	b.WriteString("|-----------|-------------------|-------------------|----------------|--------|--------------|\n")
	for _, p := range result.Portfolios {
		m := p.Metrics
		sharpe := "n/a"
		if m.SharpeValid {
			sharpe = fmt.Sprintf("%.4f", m.Sharpe)
		}
		b.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.4f | %s | %.4f |\n",
			DisplayName(p.Name), m.CumulativeReturn, m.AnnualizedReturn, m.AnnualizedVol, sharpe, m.MaxDrawdown))
	}

	b.WriteString("\n## Regime Distribution\n\n")
	b.WriteString("| Regime | Days |\n")
	b.WriteString("|--------|------|\n")
	for _, r := range domain.Regimes() {
		b.WriteString(fmt.Sprintf("| %s | %d |\n", r, result.RegimeDays[r.String()]))
	}

	var notes []string
	for _, p := range result.Portfolios {
		if p.Metrics.Flag != "" {
			notes = append(notes, fmt.Sprintf("- %s: %s", DisplayName(p.Name), p.Metrics.Flag))
		}
	}
	if len(notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write results markdown: %w", err)
	}
	return nil
}

// resultRow is one portfolio line of results.csv, rounded like the table.
type resultRow struct {
	Portfolio        string  `csv:"portfolio"`
	CumulativeReturn float64 `csv:"cumulative_return"`
	AnnualizedReturn float64 `csv:"annualized_return"`
	AnnualizedVol    float64 `csv:"annualized_vol"`
	Sharpe           string  `csv:"sharpe"`
	MaxDrawdown      float64 `csv:"max_drawdown"`
	Days             int     `csv:"days"`
}

func (w *Writer) writeResultsCSV(path string, result *backtest.Result) error {
	rows := make([]*resultRow, 0, len(result.Portfolios))
	for _, p := range result.Portfolios {
		m := p.Metrics
		sharpe := "n/a"
		if m.SharpeValid {
			sharpe = fmt.Sprintf("%.4f", m.Sharpe)
		}
		rows = append(rows, &resultRow{
			Portfolio:        DisplayName(p.Name),
			CumulativeReturn: round4(m.CumulativeReturn),
			AnnualizedReturn: round4(m.AnnualizedReturn),
			AnnualizedVol:    round4(m.AnnualizedVol),
			Sharpe:           sharpe,
			MaxDrawdown:      round4(m.MaxDrawdown),
			Days:             m.Days,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(&rows, f); err != nil {
		return fmt.Errorf("write results csv: %w", err)
	}
	return nil
}

func (w *Writer) writeDaily(csvPath, jsonlPath string, result *backtest.Result) error {
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create daily csv: %w", err)
	}
	defer f.Close()
	days := result.Days
	if err := gocsv.Marshal(&days, f); err != nil {
		return fmt.Errorf("write daily csv: %w", err)
	}

	jf, err := os.Create(jsonlPath)
	if err != nil {
		return fmt.Errorf("create daily jsonl: %w", err)
	}
	defer jf.Close()
	enc := json.NewEncoder(jf)
	for i := range result.Days {
		if err := enc.Encode(&result.Days[i]); err != nil {
			return fmt.Errorf("write daily jsonl: %w", err)
		}
	}
	return nil
}

// equityRow is one day of equity.csv across portfolios.
type equityRow struct {
	Date           domain.Date `csv:"date"`
	PriceOnly      float64     `csv:"price_only"`
	VolConditioned float64     `csv:"vol_conditioned"`
	BuyHold        float64     `csv:"buy_hold"`
}

func (w *Writer) writeEquityCSV(path string, result *backtest.Result) error {
	rows := make([]*equityRow, len(result.Days))
	for i, day := range result.Days {
		rows[i] = &equityRow{
			Date:           day.Date,
			PriceOnly:      day.PriceOnlyEquity,
			VolConditioned: day.VolCondEquity,
			BuyHold:        day.BuyHoldEquity,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity csv: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(&rows, f); err != nil {
		return fmt.Errorf("write equity csv: %w", err)
	}
	return nil
}

// summary wraps the run result with its artifact locations.
type summary struct {
	*backtest.Result
	Artifacts *ArtifactPaths `json:"artifacts"`
}

func (w *Writer) writeSummaryJSON(path string, result *backtest.Result, paths *ArtifactPaths) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary{Result: result, Artifacts: paths}); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// ReadSummary loads a stored run summary for re-rendering.
func ReadSummary(path string) (*backtest.Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, err)
	}
	var s summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", path, err)
	}
	if s.Result == nil || s.RunID == "" {
		return nil, domain.NewDataError("summary", "%s holds no run", path)
	}
	return s.Result, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
