package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PortfolioSentinel/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 5.0, cfg.Providers.AlphaVantage.RatePerMinute)
	assert.Equal(t, 5*time.Second, cfg.Broadcast.Interval)
	assert.Equal(t, 10*time.Second, cfg.Broadcast.RetryBackoff)
	assert.Equal(t, 50, cfg.Broadcast.BatchSize)
	assert.Equal(t, 0.045, cfg.Risk.RiskFreeRate)
	assert.Equal(t, "SPY", cfg.Risk.Benchmark)
	assert.Equal(t, 252, cfg.Risk.Days)
	assert.Equal(t, "0 0 22 * * 1-5", cfg.Report.Cron)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
cache:
  ttl: 90s
providers:
  polygon:
    api_key: poly
  yahoo:
    enabled: true
broadcast:
  interval: 2s
  retry_backoff: 4s
risk:
  days: 120
  var_method: parametric
portfolio:
  name: growth
  holdings:
    - symbol: AAPL
      quantity: 10
      purchase_price: 150
    - symbol: MSFT
      quantity: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "poly", cfg.Providers.Polygon.APIKey)
	assert.True(t, cfg.Providers.Yahoo.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Broadcast.Interval)
	assert.Equal(t, 120, cfg.Risk.Days)
	assert.Equal(t, "growth", cfg.Portfolio.Name)
	require.Len(t, cfg.Portfolio.Holdings, 2)
	assert.Equal(t, 150.0, cfg.Portfolio.Holdings[0].PurchasePrice)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "providers:\n  polygon:\n    api_key: from-file\n")
	t.Setenv("POLYGON_API_KEY", "from-env")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "av")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RISK_FREE_RATE", "0.03")
	t.Setenv("YAHOO_ENABLED", "true")
	t.Setenv("SERVER_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Providers.Polygon.APIKey)
	assert.Equal(t, "av", cfg.Providers.AlphaVantage.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 0.03, cfg.Risk.RiskFreeRate)
	assert.True(t, cfg.Providers.Yahoo.Enabled)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("RISK_FREE_RATE", "lots")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "RISK_FREE_RATE")
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "cache: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"backoff shorter than interval", func(c *Config) { c.Broadcast.RetryBackoff = time.Second }, "retry_backoff"},
		{"batch too large", func(c *Config) { c.Broadcast.BatchSize = 51 }, "batch_size"},
		{"days out of range", func(c *Config) { c.Risk.Days = 2001 }, "risk.days"},
		{"bad cron", func(c *Config) { c.Report.Cron = "every day" }, "report.cron"},
		{"bad var method", func(c *Config) { c.Risk.VaRMethod = "monte-carlo" }, "var_method"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, "cache.redis.addr"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"zero quantity", func(c *Config) {
			c.Portfolio.Holdings = []model.Holding{{Symbol: "AAPL"}}
		}, "quantity must be positive"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "t" }, "telegram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
