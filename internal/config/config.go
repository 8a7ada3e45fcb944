package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"regimerun/internal/backtest"
	"regimerun/internal/domain"
	"regimerun/internal/indicators"
	"regimerun/internal/regime"
	"regimerun/internal/report/perf"
)

var validate = validator.New()

// Config is the full study configuration. Values come from defaults tags,
// then the YAML file, then flag overrides applied by the CLI.
type Config struct {
	Data       DataConfig      `yaml:"data"`
	Indicators IndicatorConfig `yaml:"indicators"`
	Regime     RegimeConfig    `yaml:"regime"`
	Backtest   BacktestConfig  `yaml:"backtest"`
	Output     OutputConfig    `yaml:"output"`
}

// DataConfig locates the input series and bounds the study range.
type DataConfig struct {
	SP500CSV string `yaml:"sp500_csv" default:"data/sp500.csv"`
	VIXCSV   string `yaml:"vix_csv" default:"data/vix.csv"`
	From     string `yaml:"from"` // YYYY-MM-DD, empty = open
	To       string `yaml:"to"`   // YYYY-MM-DD, empty = open
}

// IndicatorConfig parameterizes the price signal.
type IndicatorConfig struct {
	FastMA    int     `yaml:"fast_ma" default:"10" validate:"gt=0"`
	SlowMA    int     `yaml:"slow_ma" default:"30" validate:"gt=0,gtfield=FastMA"`
	RSIWindow int     `yaml:"rsi_window" default:"14" validate:"gt=0"`
	RSILower  float64 `yaml:"rsi_lower" default:"30" validate:"gte=0"`
	RSIUpper  float64 `yaml:"rsi_upper" default:"70" validate:"lte=100,gtfield=RSILower"`
}

// RegimeConfig parameterizes the volatility regime classifier.
type RegimeConfig struct {
	ZWindow  int                `yaml:"z_window" default:"252" validate:"gt=1"`
	Exposure map[string]float64 `yaml:"exposure"` // regime label -> weight in [0,1]
}

// BacktestConfig parameterizes return attribution and annualization.
type BacktestConfig struct {
	TradingDaysPerYear int     `yaml:"trading_days_per_year" default:"252" validate:"gt=0"`
	RiskFreeRate       float64 `yaml:"risk_free_rate" default:"0" validate:"gte=0"`
}

// OutputConfig locates run artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir" default:"out/study"`
}

// DefaultExposure is the shipped regime weighting: fully invested in calm
// markets, half in transitional ones, flat when volatility is elevated.
func DefaultExposure() map[string]float64 {
	return map[string]float64{
		domain.RegimeLow.String():    1.0,
		domain.RegimeMedium.String(): 0.5,
		domain.RegimeHigh.String():   0.0,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	// defaults tags cannot fail on a fresh struct
	_ = defaults.Set(cfg)
	cfg.Regime.Exposure = DefaultExposure()
	return cfg
}

// Load reads a YAML config file, layering it over the defaults, and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(cfg.Regime.Exposure) == 0 {
		cfg.Regime.Exposure = DefaultExposure()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the config invariants. Violations are ConfigErrors and
// abort the run before any data is touched.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return configErrorFrom(verrs[0])
		}
		return fmt.Errorf("validate config: %w", err)
	}

	if _, err := c.Regime.ExposureMap(); err != nil {
		return err
	}
	if _, _, err := c.Data.Range(); err != nil {
		return err
	}
	return nil
}

// ExposureMap converts the label-keyed config map into regime-keyed weights.
// All three regimes must be present and every weight must sit in [0,1].
func (rc *RegimeConfig) ExposureMap() (map[domain.Regime]float64, error) {
	out := make(map[domain.Regime]float64, len(rc.Exposure))
	for label, weight := range rc.Exposure {
		regime, err := domain.ParseRegime(label)
		if err != nil {
			return nil, domain.NewConfigError("regime.exposure", label, "unknown regime label")
		}
		if weight < 0 || weight > 1 {
			return nil, domain.NewConfigError("regime.exposure."+label, weight, "exposure must be within [0, 1]")
		}
		out[regime] = weight
	}
	for _, regime := range domain.Regimes() {
		if _, ok := out[regime]; !ok {
			return nil, domain.NewConfigError("regime.exposure", regime.String(), "missing exposure for regime")
		}
	}
	return out, nil
}

// EngineConfig converts the validated file configuration into the stage
// configurations the engine runs with.
func (c *Config) EngineConfig() (*backtest.Config, error) {
	exposure, err := c.Regime.ExposureMap()
	if err != nil {
		return nil, err
	}
	return &backtest.Config{
		Indicators: indicators.Config{
			FastMA:    c.Indicators.FastMA,
			SlowMA:    c.Indicators.SlowMA,
			RSIWindow: c.Indicators.RSIWindow,
			RSILower:  c.Indicators.RSILower,
			RSIUpper:  c.Indicators.RSIUpper,
		},
		Regime: regime.Config{
			ZWindow:  c.Regime.ZWindow,
			Exposure: exposure,
		},
		Perf: perf.Config{
			TradingDaysPerYear: c.Backtest.TradingDaysPerYear,
			RiskFreeRate:       c.Backtest.RiskFreeRate,
		},
	}, nil
}

// Range parses the optional study bounds. Empty strings stay open.
func (dc *DataConfig) Range() (from, to domain.Date, err error) {
	if dc.From != "" {
		from, err = domain.ParseDate(dc.From)
		if err != nil {
			return domain.Date{}, domain.Date{}, domain.NewConfigError("data.from", dc.From, "not a YYYY-MM-DD date")
		}
	}
	if dc.To != "" {
		to, err = domain.ParseDate(dc.To)
		if err != nil {
			return domain.Date{}, domain.Date{}, domain.NewConfigError("data.to", dc.To, "not a YYYY-MM-DD date")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return domain.Date{}, domain.Date{}, domain.NewConfigError("data.to", dc.To, "ends before data.from")
	}
	return from, to, nil
}

func configErrorFrom(fe validator.FieldError) *domain.ConfigError {
	var reason string
	switch fe.Tag() {
	case "gt":
		reason = fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		reason = fmt.Sprintf("must be at least %s", fe.Param())
	case "lt":
		reason = fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		reason = fmt.Sprintf("must be at most %s", fe.Param())
	case "gtfield":
		reason = fmt.Sprintf("must be greater than %s", fe.Param())
	case "required":
		reason = "is required"
	default:
		reason = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return domain.NewConfigError(fe.Namespace(), fe.Value(), reason)
}
