// Package data loads the aligned daily S&P 500 / VIX series the study runs on.
package data

import (
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"

	"regimerun/internal/domain"
)

// priceRow is one line of a Yahoo-style daily CSV. Extra columns
// (Open/High/Low/Volume) are ignored.
type priceRow struct {
	Date  domain.Date `csv:"Date"`
	Close float64     `csv:"Close"`
}

// joinedRow is one line of a pre-joined study CSV, the same layout the
// report writer emits.
type joinedRow struct {
	Date  domain.Date `csv:"date"`
	SP500 float64     `csv:"sp500"`
	VIX   float64     `csv:"vix"`
}

// JoinStats accounts for rows dropped by the inner join.
type JoinStats struct {
	SP500Rows int `json:"sp500_rows"`
	VIXRows   int `json:"vix_rows"`
	Joined    int `json:"joined"`
	SP500Only int `json:"sp500_only"`
	VIXOnly   int `json:"vix_only"`
}

// LoadCSV reads the two daily close files, inner-joins them on date and
// returns the validated ascending series. Duplicate dates in either file are
// data errors; dates present in only one file are dropped and counted.
func LoadCSV(sp500Path, vixPath string) (*domain.Series, JoinStats, error) {
	sp500, err := readCloses(sp500Path, "sp500")
	if err != nil {
		return nil, JoinStats{}, err
	}
	vix, err := readCloses(vixPath, "vix")
	if err != nil {
		return nil, JoinStats{}, err
	}

	obs := make([]domain.Observation, 0, len(sp500))
	for date, close := range sp500 {
		if vixClose, ok := vix[date]; ok {
			obs = append(obs, domain.Observation{Date: date, SP500: close, VIX: vixClose})
		}
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	stats := JoinStats{
		SP500Rows: len(sp500),
		VIXRows:   len(vix),
		Joined:    len(obs),
		SP500Only: len(sp500) - len(obs),
		VIXOnly:   len(vix) - len(obs),
	}
	if stats.SP500Only > 0 || stats.VIXOnly > 0 {
		log.Warn().
			Int("sp500_only", stats.SP500Only).
			Int("vix_only", stats.VIXOnly).
			Msg("dropped unmatched dates during join")
	}

	series, err := domain.NewSeries(obs)
	if err != nil {
		return nil, stats, fmt.Errorf("join %s with %s: %w", sp500Path, vixPath, err)
	}
	log.Info().
		Str("sp500", sp500Path).
		Str("vix", vixPath).
		Int("rows", series.Len()).
		Str("from", series.First().Date.String()).
		Str("to", series.Last().Date.String()).
		Msg("series loaded")
	return series, stats, nil
}

// LoadJoined reads a single pre-joined date/sp500/vix CSV.
func LoadJoined(path string) (*domain.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open joined csv %s: %w", path, err)
	}
	defer f.Close()

	var rows []*joinedRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, domain.NewDataError("load joined", "unmarshal %s: %v", path, err)
	}
	if len(rows) == 0 {
		return nil, domain.NewDataError("load joined", "%s has no rows", path)
	}

	obs := make([]domain.Observation, len(rows))
	for i, r := range rows {
		obs[i] = domain.Observation{Date: r.Date, SP500: r.SP500, VIX: r.VIX}
	}
	series, err := domain.NewSeries(obs)
	if err != nil {
		return nil, fmt.Errorf("load joined %s: %w", path, err)
	}
	return series, nil
}

// readCloses loads one close file into a date-keyed map, rejecting
// duplicate dates before the join can mask them.
func readCloses(path, label string) (map[domain.Date]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s csv %s: %w", label, path, err)
	}
	defer f.Close()

	var rows []*priceRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, domain.NewDataError("load "+label, "unmarshal %s: %v", path, err)
	}
	if len(rows) == 0 {
		return nil, domain.NewDataError("load "+label, "%s has no rows", path)
	}

	closes := make(map[domain.Date]float64, len(rows))
	for _, r := range rows {
		if r.Date.IsZero() {
			return nil, domain.NewDataError("load "+label, "row without a date in %s", path)
		}
		if _, dup := closes[r.Date]; dup {
			return nil, domain.NewDataErrorAt("load "+label, r.Date, "duplicate date in %s", path)
		}
		closes[r.Date] = r.Close
	}
	return closes, nil
}
