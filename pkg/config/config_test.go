package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "bybit", c.Engine.CandleSource)
	assert.Equal(t, 30*time.Second, c.Engine.CacheTTL)
	assert.Equal(t, "file", c.Orders.Backend)
	assert.Equal(t, 70.0, c.Orders.MinConfidence)
	assert.Equal(t, 2.0, c.Orders.MinRR)
	assert.Equal(t, 12, c.Orders.ValidUntilCandles)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, "smc.candles.closed", c.Kafka.Topics.ClosedCandles)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.Equal(t, "M15", c.Feed.Timeframe)
}

func TestParse_KeepsExplicitValues(t *testing.T) {
	raw := `
server:
  port: 9090
orders:
  backend: memory
  min_confidence: 80
  valid_until_candles: 4
feed:
  timeframe: H1
`
	c, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "memory", c.Orders.Backend)
	assert.Equal(t, 80.0, c.Orders.MinConfidence)
	assert.Equal(t, 4, c.Orders.ValidUntilCandles)
	assert.Equal(t, "H1", c.Feed.Timeframe)
}

func TestParse_RejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown backend":         "orders:\n  backend: postgres\n",
		"redis backend, no redis": "orders:\n  backend: redis\n",
		"clickhouse source off":   "engine:\n  candle_source: clickhouse\n",
		"kafka without brokers":   "kafka:\n  enabled: true\n",
		"feed without symbols":    "feed:\n  enabled: true\n",
		"bad feed timeframe":      "feed:\n  timeframe: M7\n",
		"bad port":                "server:\n  port: 70000\n",
		"malformed yaml":          "server: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv_OverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: development\n"), 0o644))

	t.Setenv("SMC_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SYMBOLS", "BTCUSDT,ETHUSDT")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("SMC_ORDERS_BACKEND", "redis")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, c.Feed.Symbols)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache.internal", c.Redis.Host)
	assert.Equal(t, "redis", c.Orders.Backend)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
