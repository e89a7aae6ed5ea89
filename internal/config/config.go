package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment  bool          `env:"LOG_DEVELOPMENT" envDefault:"false"`
	PricingFile     string        `env:"PRICING_FILE" envDefault:"configs/pricing.toml"`
	ReportsDir      string        `env:"REPORTS_DIR" envDefault:"reports"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// AdminAPIKey guards the /admin routes; they are not mounted when empty.
	AdminAPIKey     string        `env:"ADMIN_API_KEY"`
	SessionRate     int64         `env:"SESSION_RATE_LIMIT" envDefault:"30"`
	SessionRateSpan time.Duration `env:"SESSION_RATE_WINDOW" envDefault:"1h"`

	Database Database
	Redis    Redis
	Distance Distance
	Telegram Telegram
}

type Database struct {
	Host            string        `env:"DB_HOST,required"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER,required"`
	Password        string        `env:"DB_PASSWORD,required"`
	Name            string        `env:"DB_NAME,required"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

// DSN returns the lib/pq connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type Redis struct {
	Addr            string        `env:"REDIS_ADDR,required"`
	Password        string        `env:"REDIS_PASSWORD"`
	DB              int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"10m"`
	DistanceTTL     time.Duration `env:"DISTANCE_CACHE_TTL" envDefault:"720h"`
}

type Distance struct {
	BaseURL string        `env:"DISTANCE_API_URL,required"`
	APIKey  string        `env:"DISTANCE_API_KEY"`
	Timeout time.Duration `env:"DISTANCE_TIMEOUT" envDefault:"5s"`
	// MaxElapsed bounds the whole retry sequence of one lookup.
	MaxElapsed time.Duration `env:"DISTANCE_MAX_ELAPSED" envDefault:"10s"`
}

type Telegram struct {
	Token    string  `env:"TELEGRAM_TOKEN"`
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Telegram.Token != "" && len(cfg.Telegram.AdminIDs) == 0 {
		return nil, fmt.Errorf("at least one admin ID is required when TELEGRAM_TOKEN is set")
	}

	return &cfg, nil
}
