// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"PortfolioSentinel/internal/model"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// ProviderConfig configures one keyed upstream.
type ProviderConfig struct {
	APIKey        string  `yaml:"api_key"`
	RatePerMinute float64 `yaml:"rate_per_minute"`
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Cache struct {
		Backend string        `yaml:"backend"` // "memory" or "redis"
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Providers struct {
		Polygon      ProviderConfig `yaml:"polygon"`
		AlphaVantage ProviderConfig `yaml:"alpha_vantage"`
		Yahoo        struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"yahoo"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"providers"`
	Broadcast struct {
		Interval     time.Duration `yaml:"interval"`
		RetryBackoff time.Duration `yaml:"retry_backoff"`
		BatchSize    int           `yaml:"batch_size"`
	} `yaml:"broadcast"`
	Risk struct {
		RiskFreeRate float64 `yaml:"risk_free_rate"`
		Benchmark    string  `yaml:"benchmark"`
		Days         int     `yaml:"days"`
		VaRMethod    string  `yaml:"var_method"` // "historical" or "parametric"
	} `yaml:"risk"`
	Portfolio struct {
		Name     string          `yaml:"name"`
		Holdings []model.Holding `yaml:"holdings"`
	} `yaml:"portfolio"`
	Report struct {
		Cron string `yaml:"cron"`
	} `yaml:"report"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"` // empty disables recording
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"POLYGON_API_KEY":       &c.Providers.Polygon.APIKey,
		"ALPHA_VANTAGE_API_KEY": &c.Providers.AlphaVantage.APIKey,
		"REDIS_ADDR":            &c.Cache.Redis.Addr,
		"TELEGRAM_BOT_TOKEN":    &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":      &c.Telegram.ChatID,
		"SQLITE_PATH":           &c.Database.SQLitePath,
		"HTTPS_PROXY":           &c.Proxy,
		"LOG_LEVEL":             &c.Log.Level,
		"SERVER_ADDR":           &c.Server.Addr,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	// A Redis address selects the Redis backend unless one is configured.
	if os.Getenv("REDIS_ADDR") != "" && c.Cache.Backend == "" {
		c.Cache.Backend = "redis"
	}

	if v := os.Getenv("YAHOO_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("YAHOO_ENABLED: %w", err)
		}
		c.Providers.Yahoo.Enabled = b
	}
	if v := os.Getenv("RISK_FREE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RISK_FREE_RATE: %w", err)
		}
		c.Risk.RiskFreeRate = rate
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 60 * time.Second
	}
	if c.Providers.Timeout == 0 {
		c.Providers.Timeout = 30 * time.Second
	}
	if c.Providers.AlphaVantage.RatePerMinute == 0 {
		c.Providers.AlphaVantage.RatePerMinute = 5 // free tier
	}
	if c.Broadcast.Interval == 0 {
		c.Broadcast.Interval = 5 * time.Second
	}
	if c.Broadcast.RetryBackoff == 0 {
		c.Broadcast.RetryBackoff = 10 * time.Second
	}
	if c.Broadcast.BatchSize == 0 {
		c.Broadcast.BatchSize = 50
	}
	if c.Risk.RiskFreeRate == 0 {
		c.Risk.RiskFreeRate = 0.045
	}
	if c.Risk.Benchmark == "" {
		c.Risk.Benchmark = "SPY"
	}
	if c.Risk.Days == 0 {
		c.Risk.Days = 252
	}
	if c.Risk.VaRMethod == "" {
		c.Risk.VaRMethod = "historical"
	}
	if c.Portfolio.Name == "" {
		c.Portfolio.Name = "default"
	}
	if c.Report.Cron == "" {
		c.Report.Cron = "0 0 22 * * 1-5"
	}
}

// CronParser accepts expressions with a leading seconds field and
// descriptors such as @every.
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks ranges and cross-field rules.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q must be memory or redis", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Providers.Timeout <= 0 {
		errs = append(errs, errors.New("providers.timeout must be positive"))
	}
	if c.Broadcast.Interval <= 0 {
		errs = append(errs, errors.New("broadcast.interval must be positive"))
	}
	if c.Broadcast.RetryBackoff < c.Broadcast.Interval {
		errs = append(errs, errors.New("broadcast.retry_backoff must not be shorter than broadcast.interval"))
	}
	if c.Broadcast.BatchSize < 1 || c.Broadcast.BatchSize > 50 {
		errs = append(errs, fmt.Errorf("broadcast.batch_size must be in [1, 50], got %d", c.Broadcast.BatchSize))
	}
	if c.Risk.Days < 1 || c.Risk.Days > 2000 {
		errs = append(errs, fmt.Errorf("risk.days must be in [1, 2000], got %d", c.Risk.Days))
	}
	if c.Risk.VaRMethod != "historical" && c.Risk.VaRMethod != "parametric" {
		errs = append(errs, fmt.Errorf("risk.var_method %q must be historical or parametric", c.Risk.VaRMethod))
	}
	if _, err := CronParser.Parse(c.Report.Cron); err != nil {
		errs = append(errs, fmt.Errorf("report.cron: %w", err))
	}
	for i, h := range c.Portfolio.Holdings {
		if h.Symbol == "" {
			errs = append(errs, fmt.Errorf("portfolio.holdings[%d].symbol is required", i))
		}
		if h.Quantity <= 0 {
			errs = append(errs, fmt.Errorf("portfolio.holdings[%d].quantity must be positive", i))
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram.bot_token and telegram.chat_id must be set together"))
	}
	return errors.Join(errs...)
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
