package yahoo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"regimerun/internal/domain"
)

func readFileHead(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	return lines[0], nil
}

func testBars() []Bar {
	return []Bar{
		{Date: domain.NewDate(2020, 1, 2), Close: 3257.85},
		{Date: domain.NewDate(2020, 1, 3), Close: 3234.85},
	}
}

func TestFetchDailyCachesResult(t *testing.T) {
	calls := 0
	c := NewClient(nil)
	c.fetch = func(ctx context.Context, symbol string, from, to domain.Date) ([]Bar, error) {
		calls++
		return testBars(), nil
	}

	ctx := context.Background()
	from, to := domain.NewDate(2020, 1, 1), domain.NewDate(2020, 1, 5)

	first, err := c.FetchDaily(ctx, SymbolSP500, from, to)
	require.NoError(t, err)
	second, err := c.FetchDaily(ctx, SymbolSP500, from, to)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second fetch should come from cache")
	assert.Equal(t, first, second)
	require.Len(t, second, 2)
	assert.Equal(t, "2020-01-02", second[0].Date.String())
}

func TestFetchDailyDistinctRangesMiss(t *testing.T) {
	calls := 0
	c := NewClient(nil)
	c.fetch = func(ctx context.Context, symbol string, from, to domain.Date) ([]Bar, error) {
		calls++
		return testBars(), nil
	}

	ctx := context.Background()
	_, err := c.FetchDaily(ctx, SymbolVIX, domain.NewDate(2020, 1, 1), domain.NewDate(2020, 1, 5))
	require.NoError(t, err)
	_, err = c.FetchDaily(ctx, SymbolVIX, domain.NewDate(2020, 1, 1), domain.NewDate(2020, 2, 5))
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestFetchDailyBreakerOpens(t *testing.T) {
	calls := 0
	c := NewClient(nil)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.fetch = func(ctx context.Context, symbol string, from, to domain.Date) ([]Bar, error) {
		calls++
		return nil, errors.New("upstream down")
	}

	ctx := context.Background()
	day := domain.NewDate(2020, 1, 2)
	for i := 0; i < 5; i++ {
		// shift the range each time so the cache never answers
		_, err := c.FetchDaily(ctx, SymbolSP500, day, domain.NewDate(2020, 1, 3+i))
		require.Error(t, err)
	}
	require.Equal(t, 5, calls)

	_, err := c.FetchDaily(ctx, SymbolSP500, day, domain.NewDate(2020, 1, 20))
	require.Error(t, err)
	assert.Equal(t, 5, calls, "open breaker should not call upstream")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sp500.csv")
	require.NoError(t, WriteCSV(path, testBars()))

	// the loader in internal/data reads this layout; here we check the header
	raw, err := readFileHead(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Close", raw)
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache()
	c.Set("k", []byte("v"), time.Hour)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok = c.Get("absent")
	assert.False(t, ok)
}

func TestNewCachePicksMemoryWithoutAddr(t *testing.T) {
	c := NewCache("")
	_, isMemory := c.(*memory)
	assert.True(t, isMemory)

	r := NewCache("localhost:6379")
	_, isRedis := r.(*redisCache)
	assert.True(t, isRedis)
}
