// Package common provides shared utilities for Sentinel
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for Sentinel
type Config struct {
	Environment string         `toml:"environment"`
	Watchlist   []string       `toml:"watchlist"`
	Ledger      LedgerConfig   `toml:"ledger"`
	Retry       RetryConfig    `toml:"retry"`
	Analysis    AnalysisConfig `toml:"analysis"`
	Providers   ProviderSet    `toml:"providers"`
	News        NewsConfig     `toml:"news"`
	Logging     LoggingConfig  `toml:"logging"`
}

// LedgerConfig holds budget ledger configuration.
// Limits are decimal strings in USD (e.g. "10.00") to avoid float drift.
type LedgerConfig struct {
	Path           string `toml:"path"`
	MonthlyLimit   string `toml:"monthly_limit"`
	EmergencyLimit string `toml:"emergency_limit"`
	ForcedFree     bool   `toml:"forced_free"`
}

// GetMonthlyLimit parses and returns the monthly budget limit
func (c *LedgerConfig) GetMonthlyLimit() decimal.Decimal {
	d, err := decimal.NewFromString(c.MonthlyLimit)
	if err != nil {
		return decimal.NewFromInt(10)
	}
	return d
}

// GetEmergencyLimit parses and returns the emergency budget limit
func (c *LedgerConfig) GetEmergencyLimit() decimal.Decimal {
	d, err := decimal.NewFromString(c.EmergencyLimit)
	if err != nil {
		return decimal.NewFromInt(25)
	}
	return d
}

// RetryConfig holds the classified-retry parameters shared by all providers
type RetryConfig struct {
	MaxAttempts       int     `toml:"max_attempts"`
	BaseDelay         string  `toml:"base_delay"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
}

// GetBaseDelay parses and returns the base retry delay
func (c *RetryConfig) GetBaseDelay() time.Duration {
	d, err := time.ParseDuration(c.BaseDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// AnalysisConfig holds orchestrator tuning parameters
type AnalysisConfig struct {
	MaxOutputTokens int     `toml:"max_output_tokens"`
	EscalationSteps int     `toml:"escalation_steps"`
	RequestTimeout  string  `toml:"request_timeout"`
	Cooldown        string  `toml:"cooldown"`
	RateLimit       float64 `toml:"rate_limit"` // watchlist sweep requests per second
}

// GetRequestTimeout parses and returns the per-request deadline
func (c *AnalysisConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 90 * time.Second
	}
	return d
}

// GetCooldown parses and returns the provider cool-down window.
// Zero disables cool-down: a quota-failed provider gets a fresh chance
// on every request.
func (c *AnalysisConfig) GetCooldown() time.Duration {
	d, err := time.ParseDuration(c.Cooldown)
	if err != nil {
		return 0
	}
	return d
}

// ProviderSet holds per-backend provider configurations.
// Order controls the paid-chain fallback sequence.
type ProviderSet struct {
	Order     []string       `toml:"order"`
	Gemini    ProviderConfig `toml:"gemini"`
	OpenAI    ProviderConfig `toml:"openai"`
	Anthropic ProviderConfig `toml:"anthropic"`
	Offline   OfflineConfig  `toml:"offline"`
}

// ProviderConfig holds credentials and model selection for one backend
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// OfflineConfig controls the free/offline analysis provider
type OfflineConfig struct {
	Enabled bool `toml:"enabled"`
}

// NewsConfig holds the file-based news evidence source configuration
type NewsConfig struct {
	Path  string `toml:"path"`
	Limit int    `toml:"limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Ledger: LedgerConfig{
			Path:           "data/ledger.json",
			MonthlyLimit:   "10.00",
			EmergencyLimit: "25.00",
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			BaseDelay:         "2s",
			BackoffMultiplier: 2.0,
		},
		Analysis: AnalysisConfig{
			MaxOutputTokens: 2048,
			EscalationSteps: 3,
			RequestTimeout:  "90s",
			Cooldown:        "0s",
			RateLimit:       1,
		},
		Providers: ProviderSet{
			Order: []string{"gemini", "openai", "anthropic"},
			Gemini: ProviderConfig{
				Model: "gemini-2.0-flash",
			},
			OpenAI: ProviderConfig{
				Model: "gpt-4o-mini",
			},
			Anthropic: ProviderConfig{
				Model: "claude-3-5-haiku-latest",
			},
			Offline: OfflineConfig{
				Enabled: true,
			},
		},
		News: NewsConfig{
			Path:  "data/news",
			Limit: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SENTINEL_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("SENTINEL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("SENTINEL_LEDGER_PATH"); path != "" {
		config.Ledger.Path = path
	}

	if v := os.Getenv("SENTINEL_MONTHLY_LIMIT"); v != "" {
		config.Ledger.MonthlyLimit = v
	}
	if v := os.Getenv("SENTINEL_EMERGENCY_LIMIT"); v != "" {
		config.Ledger.EmergencyLimit = v
	}
	if v := os.Getenv("SENTINEL_FORCED_FREE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Ledger.ForcedFree = b
		}
	}

	if v := os.Getenv("SENTINEL_WATCHLIST"); v != "" {
		parts := strings.Split(v, ",")
		watchlist := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				watchlist = append(watchlist, p)
			}
		}
		config.Watchlist = watchlist
	}

	config.Providers.Gemini.APIKey = resolveAPIKey(config.Providers.Gemini.APIKey,
		"GEMINI_API_KEY", "SENTINEL_GEMINI_API_KEY", "GOOGLE_API_KEY")
	config.Providers.OpenAI.APIKey = resolveAPIKey(config.Providers.OpenAI.APIKey,
		"OPENAI_API_KEY", "SENTINEL_OPENAI_API_KEY")
	config.Providers.Anthropic.APIKey = resolveAPIKey(config.Providers.Anthropic.APIKey,
		"ANTHROPIC_API_KEY", "SENTINEL_ANTHROPIC_API_KEY")
}

// resolveAPIKey returns the first non-empty environment variable value,
// falling back to the config file value.
func resolveAPIKey(fallback string, envVars ...string) string {
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return fallback
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
