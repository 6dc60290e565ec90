// Package config loads the bot's configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default values for optional configuration fields.
const (
	DefaultHTTPAddr        = ":8080"
	DefaultFootballAPIURL  = "https://api.football-data.org/v4"
	DefaultEvalInterval    = 30 * time.Minute
	DefaultCacheTTL        = 5 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds everything the bot needs to start.
type Config struct {
	// Telegram
	TelegramToken string
	WebhookURL    string // empty means long polling

	// HTTP server (health, metrics, webhook, ws feed)
	HTTPAddr string

	// Storage. DatabaseURL empty means in-memory; RedisURL adds a cache
	// in front of Postgres.
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	// Football data API. An empty key switches the predictor to
	// simulated mode.
	FootballAPIKey string
	FootballAPIURL string

	// Background cycles
	EvalInterval time.Duration

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		FootballAPIKey: os.Getenv("FOOTBALL_API_KEY"),
		FootballAPIURL: os.Getenv("FOOTBALL_API_URL"),
	}

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL"); err != nil {
		return nil, err
	}
	if cfg.EvalInterval, err = durationEnv("EVAL_INTERVAL"); err != nil {
		return nil, err
	}

	if port := os.Getenv("PORT"); port != "" && cfg.HTTPAddr == "" {
		if _, err := strconv.Atoi(port); err != nil {
			return nil, fmt.Errorf("PORT must be numeric, got %q", port)
		}
		cfg.HTTPAddr = ":" + port
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.FootballAPIURL == "" {
		c.FootballAPIURL = DefaultFootballAPIURL
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.EvalInterval == 0 {
		c.EvalInterval = DefaultEvalInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if c.RedisURL != "" && c.DatabaseURL == "" {
		return errors.New("REDIS_URL requires DATABASE_URL, the cache needs a primary store")
	}
	if c.EvalInterval < time.Minute {
		return fmt.Errorf("EVAL_INTERVAL must be at least 1m, got %s", c.EvalInterval)
	}
	return nil
}

func durationEnv(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
