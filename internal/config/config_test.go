package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regimerun/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Indicators.FastMA)
	assert.Equal(t, 30, cfg.Indicators.SlowMA)
	assert.Equal(t, 14, cfg.Indicators.RSIWindow)
	assert.Equal(t, 252, cfg.Regime.ZWindow)
	assert.Equal(t, 252, cfg.Backtest.TradingDaysPerYear)
	assert.Equal(t, 0.0, cfg.Backtest.RiskFreeRate)

	exposure, err := cfg.Regime.ExposureMap()
	require.NoError(t, err)
	assert.Equal(t, 1.0, exposure[domain.RegimeLow])
	assert.Equal(t, 0.5, exposure[domain.RegimeMedium])
	assert.Equal(t, 0.0, exposure[domain.RegimeHigh])
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
regime:
  z_window: 60
  exposure:
    low: 1.0
    medium: 0.25
    high: 0.0
indicators:
  fast_ma: 5
  slow_ma: 20
data:
  from: "2015-01-01"
  to: "2020-12-31"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Regime.ZWindow)
	assert.Equal(t, 5, cfg.Indicators.FastMA)
	assert.Equal(t, 20, cfg.Indicators.SlowMA)
	// untouched sections keep their defaults
	assert.Equal(t, 14, cfg.Indicators.RSIWindow)
	assert.Equal(t, "out/study", cfg.Output.Dir)

	exposure, err := cfg.Regime.ExposureMap()
	require.NoError(t, err)
	assert.Equal(t, 0.25, exposure[domain.RegimeMedium])

	from, to, err := cfg.Data.Range()
	require.NoError(t, err)
	assert.Equal(t, "2015-01-01", from.String())
	assert.Equal(t, "2020-12-31", to.String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadWindows(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero z window", "regime:\n  z_window: 0\n"},
		{"negative fast ma", "indicators:\n  fast_ma: -3\n"},
		{"fast not below slow", "indicators:\n  fast_ma: 30\n  slow_ma: 30\n"},
		{"inverted rsi band", "indicators:\n  rsi_lower: 70\n  rsi_upper: 30\n"},
		{"zero trading days", "backtest:\n  trading_days_per_year: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err), "expected config error, got %v", err)
		})
	}
}

func TestValidateRejectsBadExposure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			"exposure above one",
			"regime:\n  exposure:\n    low: 1.5\n    medium: 0.5\n    high: 0.0\n",
		},
		{
			"negative exposure",
			"regime:\n  exposure:\n    low: 1.0\n    medium: -0.1\n    high: 0.0\n",
		},
		{
			"missing regime",
			"regime:\n  exposure:\n    low: 1.0\n    medium: 0.5\n",
		},
		{
			"unknown label",
			"regime:\n  exposure:\n    low: 1.0\n    medium: 0.5\n    high: 0.0\n    extreme: 0.0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err), "expected config error, got %v", err)
		})
	}
}

func TestValidateRejectsBadRange(t *testing.T) {
	_, err := Load(writeConfig(t, "data:\n  from: \"2020-12-31\"\n  to: \"2020-01-01\"\n"))
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))

	_, err = Load(writeConfig(t, "data:\n  from: \"31-12-2020\"\n"))
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
regime:
  z_window: 60
  exposure:
    low: 1.0
    medium: 0.25
    high: 0.0
`))
	require.NoError(t, err)

	engineCfg, err := cfg.EngineConfig()
	require.NoError(t, err)

	assert.Equal(t, 10, engineCfg.Indicators.FastMA)
	assert.Equal(t, 30, engineCfg.Indicators.SlowMA)
	assert.Equal(t, 60, engineCfg.Regime.ZWindow)
	assert.Equal(t, 0.25, engineCfg.Regime.Exposure[domain.RegimeMedium])
	assert.Equal(t, 252, engineCfg.Perf.TradingDaysPerYear)
}

func TestLoadEnvPrefix(t *testing.T) {
	t.Setenv("REGIMERUN_POSTGRES_DSN", "postgres://localhost/regimerun")
	t.Setenv("REGIMERUN_METRICS_ADDR", ":9999")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/regimerun", env.PostgresDSN)
	assert.Equal(t, ":9999", env.MetricsAddr)
	assert.Empty(t, env.RedisAddr)
	assert.Equal(t, "data", env.DataDir)
}
