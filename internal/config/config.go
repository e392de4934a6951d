// Package config loads the engine's YAML configuration: factor weights and
// staleness windows, store connection settings, scheduler cadences, and the
// webhook bearer token.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/duskline/biasengine/internal/domain"
)

// StoreConfig holds KV/relational connection settings.
type StoreConfig struct {
	RedisAddr      string `yaml:"redis_addr"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	DefaultTTLSecs int    `yaml:"default_ttl_secs"`
}

// DefaultTTL returns the configured default KV TTL as a duration.
func (s StoreConfig) DefaultTTL() time.Duration {
	return time.Duration(s.DefaultTTLSecs) * time.Second
}

// SchedulerConfig holds cadence overrides for the driver set described in
// the component design; zero-value fields fall back to the fixed defaults.
type SchedulerConfig struct {
	FactorRefreshMinutes int    `yaml:"factor_refresh_minutes"`
	SwingMacroHourET     string `yaml:"swing_macro_hour_et"`
	ScannerOpenMinutes   int    `yaml:"scanner_open_minutes"`
	ScannerMidMinutes    int    `yaml:"scanner_mid_minutes"`
	CryptoScannerMinutes int    `yaml:"crypto_scanner_minutes"`
	HeartbeatMinutes     int    `yaml:"heartbeat_minutes"`
	Timezone             string `yaml:"timezone"`
}

// WebhookConfig holds the shared bearer token for authenticated intake.
type WebhookConfig struct {
	BearerToken string `yaml:"bearer_token"`
}

// ManualFactorValue is an operator-supplied score for a factor that has no
// automated ingestor (e.g. a strategist indicator read off a research note).
type ManualFactorValue struct {
	Score  float64 `yaml:"score"`
	Detail string  `yaml:"detail"`
}

// Config is the root configuration object.
type Config struct {
	LogLevel  string                       `yaml:"log_level"`
	Store     StoreConfig                  `yaml:"store"`
	Scheduler SchedulerConfig              `yaml:"scheduler"`
	Webhook   WebhookConfig                `yaml:"webhook"`
	Factors   []domain.FactorConfig        `yaml:"factors"`
	Manual    map[string]ManualFactorValue `yaml:"manual"`
}

// Load reads and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Store.DefaultTTLSecs == 0 {
		cfg.Store.DefaultTTLSecs = 86400
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = 10
	}
	if cfg.Scheduler.FactorRefreshMinutes == 0 {
		cfg.Scheduler.FactorRefreshMinutes = 5
	}
	if cfg.Scheduler.SwingMacroHourET == "" {
		cfg.Scheduler.SwingMacroHourET = "09:45"
	}
	if cfg.Scheduler.ScannerOpenMinutes == 0 {
		cfg.Scheduler.ScannerOpenMinutes = 15
	}
	if cfg.Scheduler.ScannerMidMinutes == 0 {
		cfg.Scheduler.ScannerMidMinutes = 30
	}
	if cfg.Scheduler.CryptoScannerMinutes == 0 {
		cfg.Scheduler.CryptoScannerMinutes = 30
	}
	if cfg.Scheduler.HeartbeatMinutes == 0 {
		cfg.Scheduler.HeartbeatMinutes = 5
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "America/New_York"
	}
	if len(cfg.Factors) == 0 {
		cfg.Factors = DefaultFactorConfigs()
	}
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Webhook.BearerToken == "" {
		return fmt.Errorf("webhook.bearer_token must not be empty")
	}
	if c.Store.MaxOpenConns <= 0 {
		return fmt.Errorf("store.max_open_conns must be positive, got %d", c.Store.MaxOpenConns)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone %q invalid: %w", c.Scheduler.Timezone, err)
	}

	seen := make(map[string]bool, len(c.Factors))
	var weightSum float64
	for _, fc := range c.Factors {
		if fc.FactorID == "" {
			return fmt.Errorf("factor config missing factor_id")
		}
		if seen[fc.FactorID] {
			return fmt.Errorf("duplicate factor_id %q in config", fc.FactorID)
		}
		seen[fc.FactorID] = true
		if fc.Weight < 0 {
			return fmt.Errorf("factor %s: weight must be non-negative, got %f", fc.FactorID, fc.Weight)
		}
		if fc.StalenessHours <= 0 {
			return fmt.Errorf("factor %s: staleness_hours must be positive, got %f", fc.FactorID, fc.StalenessHours)
		}
		weightSum += fc.Weight
	}
	// Weights are renormalized at load rather than required to sum exactly
	// to 1.0 - the source's own table does not (see NormalizeFactorWeights).
	if weightSum <= 0 {
		return fmt.Errorf("factor weights must sum to a positive value, got %f", weightSum)
	}

	return nil
}

// NormalizeFactorWeights rescales a set of factor weights so they sum to
// 1.0, preserving relative proportions. Called at load time rather than
// assuming the static table already sums to exactly 1.0.
func NormalizeFactorWeights(factors []domain.FactorConfig) []domain.FactorConfig {
	var sum float64
	for _, f := range factors {
		sum += f.Weight
	}
	if sum <= 0 {
		return factors
	}
	out := make([]domain.FactorConfig, len(factors))
	for i, f := range factors {
		f.Weight = f.Weight / sum
		out[i] = f
	}
	return out
}
