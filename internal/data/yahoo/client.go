// Package yahoo downloads daily index bars from Yahoo Finance for the study's
// fetch command. Requests are rate limited and wrapped in a circuit breaker so
// a flapping upstream fails fast instead of hammering the API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"regimerun/internal/domain"
)

// Symbols used by the study.
const (
	SymbolSP500 = "^GSPC"
	SymbolVIX   = "^VIX"
)

const cacheTTL = 24 * time.Hour

// Bar is one downloaded trading day.
type Bar struct {
	Date  domain.Date `json:"date" csv:"Date"`
	Close float64     `json:"close" csv:"Close"`
}

type fetchFunc func(ctx context.Context, symbol string, from, to domain.Date) ([]Bar, error)

// Client fetches daily close series.
type Client struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   Cache
	fetch   fetchFunc
}

// NewClient wires the limiter and breaker around the chart API. A nil cache
// falls back to the in-process one.
func NewClient(cache Cache) *Client {
	if cache == nil {
		cache = NewMemoryCache()
	}
	c := &Client{
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		cache:   cache,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker state change")
		},
	})
	c.fetch = c.download
	return c
}

// FetchDaily returns the daily closes for symbol over [from, to], newest
// last. Results are cached for a day per symbol and range.
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to domain.Date) ([]Bar, error) {
	key := fmt.Sprintf("yahoo:%s:%s:%s", symbol, from, to)
	if raw, ok := c.cache.Get(key); ok {
		var bars []Bar
		if err := json.Unmarshal(raw, &bars); err == nil {
			log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetch served from cache")
			return bars, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	bars := result.([]Bar)

	if raw, err := json.Marshal(bars); err == nil {
		c.cache.Set(key, raw, cacheTTL)
	}
	log.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("daily bars fetched")
	return bars, nil
}

func (c *Client) download(ctx context.Context, symbol string, from, to domain.Date) ([]Bar, error) {
	fromT := from.Time()
	toT := to.Time().Add(24 * time.Hour) // period2 is exclusive upstream

	params := &chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Interval: datetime.OneDay,
		Start:    datetime.New(&fromT),
		End:      datetime.New(&toT),
	}

	var bars []Bar
	seen := make(map[domain.Date]bool)
	iter := chart.Get(params)
	for iter.Next() {
		b := iter.Bar()
		if b.Close.LessThanOrEqual(decimal.Zero) {
			// Yahoo pads holidays with null bars
			continue
		}
		closePx, _ := b.Close.Float64()
		day := time.Unix(int64(b.Timestamp), 0).UTC()
		date := domain.NewDate(day.Year(), day.Month(), day.Day())
		if seen[date] {
			continue
		}
		seen[date] = true
		bars = append(bars, Bar{Date: date, Close: closePx})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("chart %s: no bars between %s and %s", symbol, from, to)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// WriteCSV writes bars in the Date,Close layout the series loader reads.
func WriteCSV(path string, bars []Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.Marshal(&bars, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
