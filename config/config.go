// Package config loads the pipeline's configuration the way the teacher
// repo loads its own: a YAML file layered with .env values, then
// environment-variable overrides, with sane defaults for anything left
// unset.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete pipeline configuration (spec §6).
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	API      APIConfig      `yaml:"api"`
	Workers  WorkersConfig  `yaml:"workers"`
	Log      LogConfig      `yaml:"log"`
}

// PipelineConfig mirrors the configuration table in spec §6.
type PipelineConfig struct {
	UserAddresses          []string `yaml:"user_addresses"`
	ProxyWallet            string   `yaml:"proxy_wallet"`
	FetchIntervalSeconds   int      `yaml:"fetch_interval_seconds"`
	TooOldSeconds          int      `yaml:"too_old_seconds"`
	DedupCacheTTLSeconds   int      `yaml:"dedup_cache_ttl_seconds"`
	AggregationEnabled     bool     `yaml:"trade_aggregation_enabled"`
	AggregationWindowSecs  int      `yaml:"trade_aggregation_window_seconds"`
	PaperTradingEnabled    bool     `yaml:"paper_trading_enabled"`
	PaperTradingBalanceUSD float64  `yaml:"paper_trading_balance_usd"`
	RetryLimit             int      `yaml:"retry_limit"`
}

// APIConfig holds the base URLs of the external collaborators (spec §6).
type APIConfig struct {
	ActivityBase  string `yaml:"activity_base"`
	PositionsBase string `yaml:"positions_base"`
}

// WorkersConfig controls the Tier B worker pool (spec §5).
type WorkersConfig struct {
	Count      int `yaml:"count"`
	QueueDepth int `yaml:"queue_depth"`
}

// LogConfig controls slog's handler (spec SPEC_FULL §6.2).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FetchInterval returns PipelineConfig.FetchIntervalSeconds as a Duration.
func (c *Config) FetchInterval() time.Duration {
	return time.Duration(c.Pipeline.FetchIntervalSeconds) * time.Second
}

// DedupTTL returns the dedup cache TTL as a Duration, floored to 1s.
func (c *Config) DedupTTL() time.Duration {
	d := time.Duration(c.Pipeline.DedupCacheTTLSeconds) * time.Second
	if d < time.Second {
		return time.Second
	}
	return d
}

// AggregationWindow returns the aggregation window as a Duration.
func (c *Config) AggregationWindow() time.Duration {
	return time.Duration(c.Pipeline.AggregationWindowSecs) * time.Second
}

// Load reads the YAML config at path, layers .env values, applies
// environment overrides and defaults, and validates wallet addresses.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validateAddresses(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("USER_ADDRESSES"); v != "" {
		cfg.Pipeline.UserAddresses = strings.Split(v, ",")
	}
	if v := os.Getenv("PROXY_WALLET"); v != "" {
		cfg.Pipeline.ProxyWallet = v
	}
	if v := os.Getenv("FETCH_INTERVAL"); v != "" {
		cfg.Pipeline.FetchIntervalSeconds = atoiOr(v, cfg.Pipeline.FetchIntervalSeconds)
	}
	if v := os.Getenv("TOO_OLD_SECONDS"); v != "" {
		cfg.Pipeline.TooOldSeconds = atoiOr(v, cfg.Pipeline.TooOldSeconds)
	}
	if v := os.Getenv("DEDUP_CACHE_TTL_SECONDS"); v != "" {
		cfg.Pipeline.DedupCacheTTLSeconds = atoiOr(v, cfg.Pipeline.DedupCacheTTLSeconds)
	}
	if v := os.Getenv("TRADE_AGGREGATION_ENABLED"); v != "" {
		cfg.Pipeline.AggregationEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("TRADE_AGGREGATION_WINDOW_SECONDS"); v != "" {
		cfg.Pipeline.AggregationWindowSecs = atoiOr(v, cfg.Pipeline.AggregationWindowSecs)
	}
	if v := os.Getenv("PAPER_TRADING_ENABLED"); v != "" {
		cfg.Pipeline.PaperTradingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PAPER_TRADING_BALANCE_USD"); v != "" {
		cfg.Pipeline.PaperTradingBalanceUSD = atofOr(v, cfg.Pipeline.PaperTradingBalanceUSD)
	}
	if v := os.Getenv("RETRY_LIMIT"); v != "" {
		cfg.Pipeline.RetryLimit = atoiOr(v, cfg.Pipeline.RetryLimit)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Pipeline.FetchIntervalSeconds <= 0 {
		cfg.Pipeline.FetchIntervalSeconds = 5
	}
	if cfg.Pipeline.DedupCacheTTLSeconds <= 0 {
		cfg.Pipeline.DedupCacheTTLSeconds = 60
	}
	if cfg.API.ActivityBase == "" {
		cfg.API.ActivityBase = "https://data-api.polymarket.com"
	}
	if cfg.API.PositionsBase == "" {
		cfg.API.PositionsBase = "https://data-api.polymarket.com"
	}
	if cfg.Workers.Count <= 0 {
		cfg.Workers.Count = 4
	}
	if cfg.Workers.QueueDepth <= 0 {
		cfg.Workers.QueueDepth = 256
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validateAddresses checks that every configured address is a well-formed
// hex address (common.IsHexAddress). It does not verify mixed-case
// checksums and does not rewrite the addresses. Validation only — no
// signing, no RPC (spec §1's authentication/wallet-signing exclusion is
// untouched).
func validateAddresses(cfg *Config) error {
	for _, addr := range cfg.Pipeline.UserAddresses {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: invalid USER_ADDRESSES entry %q", addr)
		}
	}
	if cfg.Pipeline.ProxyWallet != "" && !common.IsHexAddress(cfg.Pipeline.ProxyWallet) {
		return fmt.Errorf("config: invalid PROXY_WALLET %q", cfg.Pipeline.ProxyWallet)
	}
	return nil
}

func atoiOr(s string, fallback int) int {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}

func atofOr(s string, fallback float64) float64 {
	var n float64
	if _, err := fmt.Sscanf(s, "%g", &n); err != nil {
		return fallback
	}
	return n
}
