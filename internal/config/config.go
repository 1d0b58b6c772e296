package config

import (
	"fmt"
	"strings"
	"time"

	"nbp-rates/internal/domain"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	NBP     NBP
	Storage Storage
	HTTP    HTTPServer
	Sync    Sync
	Tracing Tracing

	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

type NBP struct {
	BaseURL     string        `env:"NBP_BASE_URL" env-default:"https://api.nbp.pl/api"`
	Timeout     time.Duration `env:"NBP_TIMEOUT" env-default:"10s"`
	DaysLimit   int           `env:"NBP_DAYS_LIMIT" env-default:"90"`
	Concurrency int           `env:"FETCH_CONCURRENCY" env-default:"1"`
}

type Storage struct {
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
}

type HTTPServer struct {
	Port string `env:"HTTP_PORT" env-default:"8080"`
}

type Sync struct {
	Cron       string `env:"SYNC_CRON" env-default:"0 30 12 * * 1-5"`
	Days       int    `env:"SYNC_DAYS" env-default:"30"`
	Currencies string `env:"SYNC_CURRENCIES"`
}

type Tracing struct {
	Enabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	const op = "config.Load"

	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, op)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.NBP.DaysLimit < 0 {
		return fmt.Errorf("NBP_DAYS_LIMIT must not be negative, got %d", c.NBP.DaysLimit)
	}
	if c.NBP.Concurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be at least 1, got %d", c.NBP.Concurrency)
	}
	if c.Sync.Days < 1 {
		return fmt.Errorf("SYNC_DAYS must be at least 1, got %d", c.Sync.Days)
	}
	if _, err := c.SyncCurrencies(); err != nil {
		return err
	}
	return nil
}

// SyncCurrencies resolves SYNC_CURRENCIES. Empty means every currency with an
// NBP table.
func (c *Config) SyncCurrencies() ([]domain.Currency, error) {
	raw := strings.TrimSpace(c.Sync.Currencies)
	if raw == "" {
		return domain.TabledCurrencies(), nil
	}

	var out []domain.Currency
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		currency, err := domain.LookupCurrency(part)
		if err != nil {
			return nil, errors.Wrapf(err, "SYNC_CURRENCIES %q", part)
		}
		if _, ok := seen[currency.Code]; ok {
			continue
		}
		seen[currency.Code] = struct{}{}
		out = append(out, currency)
	}
	return out, nil
}
