package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SmcDesk/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"required"`
	Log         logger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		AnalyzeRPS      float64       `yaml:"analyze_rps" default:"2"`
		AnalyzeBurst    int           `yaml:"analyze_burst" default:"5"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine struct {
		TZ           string        `yaml:"tz" default:"UTC"`
		CandleSource string        `yaml:"candle_source" default:"bybit" validate:"oneof=bybit clickhouse"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"30s"`
	} `yaml:"engine"`
	Orders struct {
		Backend            string        `yaml:"backend" default:"file" validate:"oneof=file redis memory"`
		DataDir            string        `yaml:"data_dir" default:"data"`
		MinConfidence      float64       `yaml:"min_confidence" default:"70"`
		MinRR              float64       `yaml:"min_rr" default:"2"`
		MinConfluenceCount int           `yaml:"min_confluence_count" default:"2"`
		ValidUntilCandles  int           `yaml:"valid_until_candles" default:"12" validate:"gt=0"`
		LockTTL            time.Duration `yaml:"lock_ttl" default:"5s"`
	} `yaml:"orders"`
	SetupHistory struct {
		Backend string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite memory"`
		Path    string `yaml:"path" default:"data/setup-history.db"`
	} `yaml:"setup_history"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"smcdesk"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"smc"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Topics       struct {
			ClosedCandles string `yaml:"closed_candles" default:"smc.candles.closed"`
			OrderEvents   string `yaml:"order_events" default:"smc.order-events"`
			ErrorDigest   string `yaml:"error_digest" default:"smc.error-digest"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"smcdesk-orders"`
			Workers    int           `yaml:"workers" default:"1" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Bybit struct {
		RestBase        string        `yaml:"rest_base" default:"https://api.bybit.com"`
		WebSocketURL    string        `yaml:"websocket_url" default:"wss://stream.bybit.com/v5/public/linear"`
		Timeout         time.Duration `yaml:"timeout" default:"10s"`
		Retries         int           `yaml:"retries" default:"3"`
		RPS             float64       `yaml:"rps" default:"5"`
		BreakerFailures uint32        `yaml:"breaker_failures" default:"5"`
		BreakerCooldown time.Duration `yaml:"breaker_cooldown" default:"30s"`
	} `yaml:"bybit"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		Symbols        []string      `yaml:"symbols"`
		Timeframe      string        `yaml:"timeframe" default:"M15" validate:"oneof=M1 M3 M5 M15 M30 H1 H2 H4 H6 H12 D1 W1"`
		TickRPS        int           `yaml:"tick_rps" default:"2" validate:"gte=0"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
	} `yaml:"feed"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	c := &Config{}
	_ = defaults.Set(c)
	return c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SMC_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SMC_ORDERS_BACKEND"); v != "" {
		c.Orders.Backend = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("BYBIT_REST_BASE"); v != "" {
		c.Bybit.RestBase = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Orders.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("orders.backend=redis requires redis.enabled")
	}
	if c.Engine.CandleSource == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("engine.candle_source=clickhouse requires clickhouse.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Feed.Enabled && len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols cannot be empty when feed is enabled")
	}
	return nil
}
