package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers selectable with PRAXIS_STORE.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	// APIURL is the practice API root, e.g. https://api.example.com/api
	APIURL string `env:"PRAXIS_API_URL" envDefault:"http://localhost:8000/api"`

	// Store selects the driver: memory, sqlite or redis
	Store        string `env:"PRAXIS_STORE" envDefault:"sqlite"`
	DatabaseFile string `env:"PRAXIS_DATABASE_FILE" envDefault:"praxis.db"`
	RedisURL     string `env:"PRAXIS_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix  string `env:"PRAXIS_REDIS_PREFIX" envDefault:"praxis:"`

	// SealKeyFile holds the key material for sealing the pending login. It is
	// created on first use.
	SealKeyFile string `env:"PRAXIS_SEAL_KEY_FILE" envDefault:"praxis.key"`

	RequestTimeout   time.Duration `env:"PRAXIS_REQUEST_TIMEOUT" envDefault:"15s"`
	RefreshInterval  time.Duration `env:"PRAXIS_REFRESH_INTERVAL" envDefault:"5m"`
	RefreshThreshold time.Duration `env:"PRAXIS_REFRESH_THRESHOLD" envDefault:"5m"`

	// RateLimitRPS of 0 disables outbound limiting
	RateLimitRPS   float64 `env:"PRAXIS_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"PRAXIS_RATE_LIMIT_BURST" envDefault:"20"`

	// MetricsAddr is served by the watch command
	MetricsAddr         string        `env:"PRAXIS_METRICS_ADDR" envDefault:":9464"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	Env       string `env:"ENV" envDefault:"dev"`         // dev, staging, prod
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`  // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json, text

	// Output receives logs. Default: stderr
	Output io.Writer
}

// LoadConfig reads a .env file when one exists, then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Sanitize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Sanitize normalises values and falls back to defaults where a value cannot
// work. Only an unknown store driver is an error.
func (c *Config) Sanitize() error {
	c.APIURL = strings.TrimSuffix(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return errors.New("config: PRAXIS_API_URL is required")
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case "":
		c.Store = StoreSQLite
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("config: unknown store %q (want memory, sqlite or redis)", c.Store)
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 5 * time.Minute
	}
	if c.RefreshThreshold <= 0 {
		c.RefreshThreshold = 5 * time.Minute
	}
	if c.ShutdownGracePeriod <= 0 {
		c.ShutdownGracePeriod = 10 * time.Second
	}

	if c.RateLimitRPS < 0 {
		c.RateLimitRPS = 0
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		c.RateLimitBurst = 1
	}

	if c.RedisPrefix == "" {
		c.RedisPrefix = "praxis:"
	}
	return nil
}
