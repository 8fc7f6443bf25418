package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL   string `env:"DATABASE_URL,required"`
	JWTSecret     string `env:"JWT_SECRET,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET,required"`
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Port          int    `env:"PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv        string `env:"APP_ENV" envDefault:"production"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	Flutterwave FlutterwaveConfig `envPrefix:"FLW_"`
	N3Data      N3DataConfig      `envPrefix:"N3DATA_"`
	Timeouts    ProviderTimeouts  `envPrefix:"PROVIDER_TIMEOUT_"`

	// DefaultTransferFee in kobo, charged when the provider fee quote fails.
	DefaultTransferFee   int64         `env:"DEFAULT_TRANSFER_FEE" envDefault:"5000"`
	CatalogCacheTTL      time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"1h"`
	IdempotencyTTL       time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	WebhookRetryInterval time.Duration `env:"WEBHOOK_RETRY_INTERVAL" envDefault:"30s"`
	WebhookMaxAttempts   int           `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"5"`

	// PayoutStaleAfter is how long a bank transfer may stay pending before the
	// poller asks the provider for its status. Zero disables the sweep.
	PayoutStaleAfter time.Duration `env:"PAYOUT_STALE_AFTER" envDefault:"15m"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

type FlutterwaveConfig struct {
	BaseURL     string `env:"BASE_URL" envDefault:"https://api.flutterwave.com/v3"`
	SecretKey   string `env:"SECRET_KEY"`
	CallbackURL string `env:"CALLBACK_URL"`
}

type N3DataConfig struct {
	BaseURL  string `env:"BASE_URL" envDefault:"https://api.n3data.com/v1"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

// ProviderTimeouts bound the local wait per provider operation. Expiry is
// reported as an unconfirmed outcome, never as a failure.
type ProviderTimeouts struct {
	Airtime  time.Duration `env:"AIRTIME" envDefault:"20s"`
	Data     time.Duration `env:"DATA" envDefault:"20s"`
	Bill     time.Duration `env:"BILL" envDefault:"30s"`
	Transfer time.Duration `env:"TRANSFER" envDefault:"30s"`
	Lookup   time.Duration `env:"LOOKUP" envDefault:"10s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
