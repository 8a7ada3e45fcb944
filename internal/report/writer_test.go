package report

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regimerun/internal/backtest"
	"regimerun/internal/domain"
	"regimerun/internal/report/perf"
)

func sampleResult(t *testing.T) *backtest.Result {
	t.Helper()

	d1, err := domain.ParseDate("2020-03-02")
	require.NoError(t, err)
	d2, err := domain.ParseDate("2020-03-03")
	require.NoError(t, err)

	return &backtest.Result{
		RunID:       "run-sample",
		GeneratedAt: time.Date(2020, 3, 3, 18, 0, 0, 0, time.UTC),
		Config: backtest.Snapshot{
			FastMA:             10,
			SlowMA:             30,
			RSIWindow:          14,
			RSILower:           30,
			RSIUpper:           70,
			ZWindow:            252,
			Exposure:           map[string]float64{"low": 1.0, "medium": 0.5, "high": 0.0},
			TradingDaysPerYear: 252,
			RiskFreeRate:       0,
		},
		Start:      d1,
		End:        d2,
		Warmup:     30,
		EvalDays:   2,
		RegimeDays: map[string]int{"low": 1, "medium": 1, "high": 0},
		Portfolios: []*backtest.PortfolioResult{
			{
				Name: backtest.PortfolioPriceOnly,
				Metrics: &perf.Metrics{
					Portfolio:        backtest.PortfolioPriceOnly,
					Days:             2,
					CumulativeReturn: 0.1,
					AnnualizedReturn: 0.2,
					AnnualizedVol:    0.15,
					Sharpe:           1.3333,
					SharpeValid:      true,
					MaxDrawdown:      -0.05,
				},
				Returns: []float64{0.05, 0.047619},
				Equity:  []float64{1.05, 1.1},
			},
			{
				Name: backtest.PortfolioVolConditioned,
				Metrics: &perf.Metrics{
					Portfolio:   backtest.PortfolioVolConditioned,
					Days:        2,
					SharpeValid: false,
					Flag:        "compute sharpe: zero volatility over 2 returns",
				},
				Returns: []float64{0, 0},
				Equity:  []float64{1, 1},
			},
			{
				Name: backtest.PortfolioBuyHold,
				Metrics: &perf.Metrics{
					Portfolio:        backtest.PortfolioBuyHold,
					Days:             2,
					CumulativeReturn: 0.08,
					AnnualizedReturn: 0.16,
					AnnualizedVol:    0.18,
					Sharpe:           0.8889,
					SharpeValid:      true,
					MaxDrawdown:      -0.02,
				},
				Returns: []float64{0.04, 0.0385},
				Equity:  []float64{1.04, 1.08},
			},
		},
		Days: []backtest.DayRecord{
			{
				Date: d1, SP500: 3090.23, VIX: 33.42, ZScore: -0.4, Regime: domain.RegimeLow,
				Exposure: 1.0, PriceSignal: 1, FinalSignal: 1, AssetReturn: 0.05,
				PriceOnlyReturn: 0.05, VolCondReturn: 0, BuyHoldReturn: 0.04,
				PriceOnlyEquity: 1.05, VolCondEquity: 1, BuyHoldEquity: 1.04,
			},
			{
				Date: d2, SP500: 3003.37, VIX: 36.82, ZScore: 0.3, Regime: domain.RegimeMedium,
				Exposure: 0.5, PriceSignal: 1, FinalSignal: 0.5, AssetReturn: 0.047619,
				PriceOnlyReturn: 0.047619, VolCondReturn: 0, BuyHoldReturn: 0.0385,
				PriceOnlyEquity: 1.1, VolCondEquity: 1, BuyHoldEquity: 1.08,
			},
		},
	}
}

func TestWriterWriteAllCreatesArtifacts(t *testing.T) {
	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteAll(sampleResult(t))
	require.NoError(t, err)

	for _, p := range []string{
		paths.ResultsMD, paths.ResultsCSV, paths.DailyCSV,
		paths.DailyJSONL, paths.EquityCSV, paths.SummaryJSON,
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, "expected artifact %s", p)
	}
	assert.Equal(t, w.OutputDir(), paths.OutputDir)
	assert.Equal(t, filepath.Join(w.OutputDir(), "results.md"), paths.ResultsMD)
}

func TestResultsMarkdownContent(t *testing.T) {
	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteAll(sampleResult(t))
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.ResultsMD)
	require.NoError(t, err)
	md := string(raw)

	assert.Contains(t, md, "# Volatility Regime Study")
	assert.Contains(t, md, "**Run**: run-sample")
	assert.Contains(t, md, "**Period**: 2020-03-02 to 2020-03-03 (2 trading days evaluated, 30 warmup days dropped)")
	assert.Contains(t, md, "**Signal**: MA 10/30, RSI 14 band (30, 70)")
	assert.Contains(t, md, "| Price Only | 0.1000 | 0.2000 | 0.1500 | 1.3333 | -0.0500 |")
	assert.Contains(t, md, "| Price + VIX | 0.0000 | 0.0000 | 0.0000 | n/a | 0.0000 |")
	assert.Contains(t, md, "| Buy & Hold | 0.0800 |")
	assert.Contains(t, md, "## Regime Distribution")
	assert.Contains(t, md, "| low | 1 |")
	assert.Contains(t, md, "| high | 0 |")
	assert.Contains(t, md, "## Notes")
	assert.Contains(t, md, "- Price + VIX: compute sharpe: zero volatility over 2 returns")
}

func TestResultsMarkdownNoNotesWhenClean(t *testing.T) {
	result := sampleResult(t)
	result.Portfolios = result.Portfolios[:1]

	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteAll(result)
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.ResultsMD)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "## Notes")
}

func TestResultsCSVContent(t *testing.T) {
	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteAll(sampleResult(t))
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.ResultsCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "portfolio,cumulative_return,annualized_return,annualized_vol,sharpe,max_drawdown,days", lines[0])
	assert.Contains(t, lines[1], "Price Only,0.1,0.2,0.15,1.3333,-0.05,2")
	assert.Contains(t, lines[2], "n/a")
}

func TestDailyArtifacts(t *testing.T) {
	result := sampleResult(t)
	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteAll(result)
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.DailyCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "date,sp500,vix,z_score,regime,exposure"))
	assert.True(t, strings.HasPrefix(lines[1], "2020-03-02,"))

	f, err := os.Open(paths.DailyJSONL)
	require.NoError(t, err)
	defer f.Close()

	var decoded []backtest.DayRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec backtest.DayRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		decoded = append(decoded, rec)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, decoded, 2)
	assert.Equal(t, result.Days[0].Date, decoded[0].Date)
	assert.Equal(t, domain.RegimeMedium, decoded[1].Regime)
	assert.InDelta(t, 0.5, decoded[1].FinalSignal, 1e-12)
}

func TestEquityCSVContent(t *testing.T) {
	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteAll(sampleResult(t))
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.EquityCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,price_only,vol_conditioned,buy_hold", lines[0])
	assert.Equal(t, "2020-03-03,1.1,1,1.08", lines[2])
}

func TestSummaryRoundTrip(t *testing.T) {
	result := sampleResult(t)
	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteAll(result)
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.SummaryJSON)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"artifacts"`)

	loaded, err := ReadSummary(paths.SummaryJSON)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, loaded.RunID)
	assert.Equal(t, result.EvalDays, loaded.EvalDays)
	assert.Equal(t, result.Start, loaded.Start)
	require.Len(t, loaded.Portfolios, 3)

	po := loaded.Portfolio(backtest.PortfolioPriceOnly)
	require.NotNil(t, po)
	assert.InDelta(t, 0.1, po.Metrics.CumulativeReturn, 1e-12)
	assert.True(t, po.Metrics.SharpeValid)

	vc := loaded.Portfolio(backtest.PortfolioVolConditioned)
	require.NotNil(t, vc)
	assert.False(t, vc.Metrics.SharpeValid)
	assert.NotEmpty(t, vc.Metrics.Flag)
}

func TestWriteTableRendersOnlyTables(t *testing.T) {
	w := NewWriter(t.TempDir(), "run-sample")
	paths, err := w.WriteTable(sampleResult(t), FormatBoth)
	require.NoError(t, err)

	_, err = os.Stat(paths.ResultsMD)
	assert.NoError(t, err)
	_, err = os.Stat(paths.ResultsCSV)
	assert.NoError(t, err)
	_, err = os.Stat(paths.DailyCSV)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(paths.SummaryJSON)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteTableFormats(t *testing.T) {
	result := sampleResult(t)

	w := NewWriter(t.TempDir(), "run-md")
	paths, err := w.WriteTable(result, FormatMD)
	require.NoError(t, err)
	_, err = os.Stat(paths.ResultsMD)
	assert.NoError(t, err)
	_, err = os.Stat(paths.ResultsCSV)
	assert.True(t, os.IsNotExist(err))

	w = NewWriter(t.TempDir(), "run-csv")
	paths, err = w.WriteTable(result, FormatCSV)
	require.NoError(t, err)
	_, err = os.Stat(paths.ResultsCSV)
	assert.NoError(t, err)
	_, err = os.Stat(paths.ResultsMD)
	assert.True(t, os.IsNotExist(err))

	_, err = w.WriteTable(result, "pdf")
	assert.Error(t, err)
}

func TestReadSummaryErrors(t *testing.T) {
	_, err := ReadSummary(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	dir := t.TempDir()
	corrupt := filepath.Join(dir, "summary.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0644))
	_, err = ReadSummary(corrupt)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("{}"), 0644))
	_, err = ReadSummary(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run")
}
