package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env carries deployment knobs that do not belong in the study file:
// optional sinks, caches and the monitor listen address. All variables use
// the REGIMERUN_ prefix, e.g. REGIMERUN_POSTGRES_DSN.
type Env struct {
	DataDir       string `envconfig:"DATA_DIR" default:"data"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`     // enables the fetch cache when set
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`   // enables the run registry when set
	ClickHouseDSN string `envconfig:"CLICKHOUSE_DSN"` // enables the daily audit sink when set
	MetricsAddr   string `envconfig:"METRICS_ADDR" default:":8090"`
}

// LoadEnv reads the environment, after loading .env when present. A missing
// .env is not an error.
func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	var env Env
	if err := envconfig.Process("regimerun", &env); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &env, nil
}
