package regime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regimerun/internal/domain"
)

func seriesFromVIX(t *testing.T, vix ...float64) *domain.Series {
	t.Helper()
	obs := make([]domain.Observation, len(vix))
	for i, v := range vix {
		obs[i] = domain.Observation{Date: domain.NewDate(2020, 1, i+1), SP500: 3000, VIX: v}
	}
	s, err := domain.NewSeries(obs)
	require.NoError(t, err)
	return s
}

func threeWindowConfig() Config {
	cfg := DefaultConfig()
	cfg.ZWindow = 3
	return cfg
}

func TestClassifyBoundaryZExactlyZeroIsMedium(t *testing.T) {
	// window [10, 20, 15]: mean 15, sample std 5, z = 0
	s := seriesFromVIX(t, 10, 20, 15)

	c, err := Classify(s, threeWindowConfig())
	require.NoError(t, err)

	assert.InDelta(t, 0, c.ZScores[2], 1e-12)
	assert.Equal(t, domain.RegimeMedium, c.Regimes[2])
	assert.Equal(t, 0.5, c.Exposures[2])
}

func TestClassifyBoundaryZExactlyOneIsHigh(t *testing.T) {
	// window [3, 1, 5]: mean 3, sample std 2, z = 1
	s := seriesFromVIX(t, 3, 1, 5)

	c, err := Classify(s, threeWindowConfig())
	require.NoError(t, err)

	assert.InDelta(t, 1, c.ZScores[2], 1e-12)
	assert.Equal(t, domain.RegimeHigh, c.Regimes[2])
	assert.Equal(t, 0.0, c.Exposures[2])
}

func TestClassifyNegativeZIsLow(t *testing.T) {
	s := seriesFromVIX(t, 20, 10, 12)

	c, err := Classify(s, threeWindowConfig())
	require.NoError(t, err)

	assert.Less(t, c.ZScores[2], 0.0)
	assert.Equal(t, domain.RegimeLow, c.Regimes[2])
	assert.Equal(t, 1.0, c.Exposures[2])
}

func TestClassifyWarmupRegion(t *testing.T) {
	s := seriesFromVIX(t, 10, 20, 15, 18, 11)

	c, err := Classify(s, threeWindowConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, c.Warmup())
	assert.Equal(t, 5, c.Len())
	for i := 0; i < c.Warmup(); i++ {
		assert.True(t, math.IsNaN(c.ZScores[i]), "index %d", i)
		assert.True(t, math.IsNaN(c.Exposures[i]), "index %d", i)
	}
	for i := c.Warmup(); i < c.Len(); i++ {
		assert.False(t, math.IsNaN(c.ZScores[i]), "index %d", i)
	}
}

func TestClassifyConstantVIXFlagsZeroVariance(t *testing.T) {
	s := seriesFromVIX(t, 15, 15, 15, 15)

	_, err := Classify(s, threeWindowConfig())
	require.Error(t, err)
	assert.True(t, domain.IsComputationError(err))
	assert.Contains(t, err.Error(), "zero variance")
}

func TestClassifyTrailingConstantRunFlagsZeroVariance(t *testing.T) {
	// variance only disappears once the window holds the constant tail
	s := seriesFromVIX(t, 3, 1, 5, 5, 5, 5)

	_, err := Classify(s, threeWindowConfig())
	require.Error(t, err)
	assert.True(t, domain.IsComputationError(err))
	assert.Contains(t, err.Error(), "2020-01-05")
}

func TestClassifyInsufficientHistory(t *testing.T) {
	s := seriesFromVIX(t, 10, 20)

	_, err := Classify(s, threeWindowConfig())
	require.Error(t, err)
	assert.True(t, domain.IsComputationError(err))
}

func TestClassifyConfigErrors(t *testing.T) {
	s := seriesFromVIX(t, 10, 20, 15)

	bad := threeWindowConfig()
	bad.ZWindow = 1
	_, err := Classify(s, bad)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))

	overweight := threeWindowConfig()
	overweight.Exposure[domain.RegimeLow] = 1.5
	_, err = Classify(s, overweight)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))

	missing := Config{ZWindow: 3, Exposure: map[domain.Regime]float64{domain.RegimeLow: 1}}
	_, err = Classify(s, missing)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestCountByRegimeAndExposureSeries(t *testing.T) {
	// index 2: [10,20,15] z=0 Medium; index 3: [20,15,30] z>0; index 4: [15,30,12] z<0 Low
	s := seriesFromVIX(t, 10, 20, 15, 30, 12)

	c, err := Classify(s, threeWindowConfig())
	require.NoError(t, err)

	counts := c.CountByRegime()
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, c.Len()-c.Warmup(), total)

	exp, err := c.ExposureSeries()
	require.NoError(t, err)
	assert.Equal(t, c.Len(), exp.Len())
	assert.Equal(t, c.Warmup(), exp.Warmup())
}

func TestClassifyZRegimeMapping(t *testing.T) {
	tests := []struct {
		z    float64
		want domain.Regime
	}{
		{-2.5, domain.RegimeLow},
		{-0.0001, domain.RegimeLow},
		{0, domain.RegimeMedium},
		{0.5, domain.RegimeMedium},
		{0.9999, domain.RegimeMedium},
		{1, domain.RegimeHigh},
		{3.7, domain.RegimeHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyZ(tt.z), "z=%v", tt.z)
	}
}
