package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ducminhle1904/futures-executor/internal/exchange"
)

// EnvPrefix prefixes every process variable; unprefixed names are accepted too.
const EnvPrefix = "EXECUTOR"

// Config is the process configuration read from the environment
type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogDir      string `envconfig:"LOG_DIR" default:"logs"`

	// Exchange
	Exchange          string `envconfig:"EXCHANGE" default:"bybit"`
	BybitAPIKey       string `envconfig:"BYBIT_API_KEY"`
	BybitAPISecret    string `envconfig:"BYBIT_API_SECRET"`
	BybitTestnet      bool   `envconfig:"BYBIT_TESTNET" default:"false"`
	BybitDemo         bool   `envconfig:"BYBIT_DEMO" default:"true"`
	Category          string `envconfig:"BYBIT_CATEGORY" default:"linear"`
	RequestsPerSecond int    `envconfig:"REQUESTS_PER_SECOND" default:"10"`
	BreakerFailures   int    `envconfig:"BREAKER_FAILURES" default:"5"`
	PositionMode      string `envconfig:"POSITION_MODE"` // empty means ask the exchange

	// Execution
	RiskFile         string        `envconfig:"RISK_FILE" default:"configs/risk.yaml"`
	SubmitTimeout    time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"10s"`
	LeverageTimeout  time.Duration `envconfig:"LEVERAGE_TIMEOUT" default:"5s"`
	MaxRetries       int           `envconfig:"MAX_RETRIES" default:"2"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`
	MaxSignalAge     time.Duration `envconfig:"MAX_SIGNAL_AGE" default:"0s"`
	SubscriberBuffer int           `envconfig:"SUBSCRIBER_BUFFER" default:"64"`

	// Monitoring
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	// Notifications
	TelegramToken  string `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID string `envconfig:"TELEGRAM_CHAT_ID"`

	// Reporting
	ReportDir string `envconfig:"REPORT_DIR" default:"results"`
}

// Load reads an optional .env file and then the process environment
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := exchange.ValidateConfig(c.ExchangeConfig()); err != nil {
		return err
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("submit timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 < base <= max")
	}
	switch strings.ToUpper(c.PositionMode) {
	case "", "ONE_WAY", "HEDGE":
	default:
		return fmt.Errorf("position mode must be ONE_WAY or HEDGE, got %q", c.PositionMode)
	}
	return nil
}

// ExchangeConfig builds the gateway configuration
func (c *Config) ExchangeConfig() exchange.ExchangeConfig {
	cfg := exchange.ExchangeConfig{Name: strings.ToLower(c.Exchange)}
	if cfg.Name == "bybit" {
		cfg.Bybit = &exchange.BybitConfig{
			APIKey:            c.BybitAPIKey,
			APISecret:         c.BybitAPISecret,
			Testnet:           c.BybitTestnet,
			Demo:              c.BybitDemo,
			Category:          c.Category,
			RequestsPerSecond: c.RequestsPerSecond,
			BreakerFailures:   c.BreakerFailures,
		}
	}
	return cfg
}

// TelegramEnabled reports whether Telegram alerts are configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
