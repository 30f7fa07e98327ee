package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/web3guy0/marketboard/exec"
)

// Config holds all configuration for the server
type Config struct {
	// HTTP
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Upstream APIs
	GammaURL       string  `yaml:"gamma_url"`
	KalshiURL      string  `yaml:"kalshi_url"`
	PageSize       int     `yaml:"page_size"`
	MaxPages       int     `yaml:"max_pages"`
	KalshiLimit    int     `yaml:"kalshi_limit"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console | json
	LogFile   string `yaml:"log_file"`
	LogMaxAge int    `yaml:"log_max_age_days"`

	// Telegram
	TelegramToken  string `yaml:"-"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`

	// Polymarket CLOB
	CLOBURL       string `yaml:"clob_url"`
	FunderAddress string `yaml:"funder_address"`
	SignatureType int    `yaml:"signature_type"` // 0=EOA, 1=Magic/Email, 2=Proxy

	// Credentials never come from the config file
	Credentials exec.Credentials `yaml:"-"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ListenAddr:      ":3000",
		ShutdownTimeout: 10 * time.Second,

		GammaURL:       "https://gamma-api.polymarket.com",
		KalshiURL:      "https://api.elections.kalshi.com/trade-api/v2",
		PageSize:       100,
		MaxPages:       5,
		KalshiLimit:    200,
		RateLimitRPS:   5,
		RateLimitBurst: 1,

		LogLevel:  "info",
		LogFormat: "console",
		LogMaxAge: 7,

		CLOBURL:       exec.PolymarketCLOB,
		SignatureType: exec.SignatureTypeEOA,
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	// PORT is what most hosts set
	if port := os.Getenv("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.GammaURL = getEnv("POLYMARKET_API_URL", c.GammaURL)
	c.KalshiURL = getEnv("KALSHI_API_URL", c.KalshiURL)
	c.PageSize = getEnvInt("PAGE_SIZE", c.PageSize)
	c.MaxPages = getEnvInt("MAX_PAGES", c.MaxPages)
	c.KalshiLimit = getEnvInt("KALSHI_LIMIT", c.KalshiLimit)
	c.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if getEnvBool("DEBUG", false) {
		c.LogLevel = "debug"
	}
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)

	c.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}

	c.CLOBURL = getEnv("POLYMARKET_CLOB_URL", c.CLOBURL)
	c.FunderAddress = getEnv("FUNDER_ADDRESS", c.FunderAddress)
	c.SignatureType = getEnvInt("SIGNATURE_TYPE", c.SignatureType)

	c.Credentials = exec.Credentials{
		PrivateKey: os.Getenv("PRIVATE_KEY"),
		APIKey:     os.Getenv("API_KEY"),
		APISecret:  os.Getenv("API_SECRET"),
		Passphrase: os.Getenv("PASSPHRASE"),
	}.WithPlaceholders()

	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page_size must be positive, got %d", c.PageSize))
	}
	if c.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("max_pages must be positive, got %d", c.MaxPages))
	}
	if c.KalshiLimit <= 0 {
		errs = append(errs, fmt.Errorf("kalshi_limit must be positive, got %d", c.KalshiLimit))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_rps must not be negative, got %g", c.RateLimitRPS))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format '%s'", c.LogFormat))
	}
	switch c.SignatureType {
	case exec.SignatureTypeEOA, exec.SignatureTypePolyProxy, exec.SignatureTypeGnosisSafe:
	default:
		errs = append(errs, fmt.Errorf("invalid signature_type %d", c.SignatureType))
	}
	return errors.Join(errs...)
}

// TelegramEnabled reports whether order notifications are configured
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
