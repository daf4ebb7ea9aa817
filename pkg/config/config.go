package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		RateLimit       struct {
			Enabled bool `yaml:"enabled" default:"true"`
			// Forecast requests allowed per client per minute.
			PerMinute int `yaml:"per_minute" default:"30"`
			Burst     int `yaml:"burst" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level   string `yaml:"level" default:"info"`
		Format  string `yaml:"format" default:"console"`
		Output  string `yaml:"output" default:"stdout"`
		Collect struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collect"`
	} `yaml:"logging"`
	Forecast struct {
		PMax            int           `yaml:"p_max" default:"2"`
		DMax            int           `yaml:"d_max" default:"1"`
		QMax            int           `yaml:"q_max" default:"2"`
		Workers         int           `yaml:"workers"`
		SearchTimeout   time.Duration `yaml:"search_timeout" default:"30s"`
		MinObservations int           `yaml:"min_observations" default:"252"`
		DefaultDays     int           `yaml:"default_days" default:"30"`
		MaxDays         int           `yaml:"max_days" default:"365"`
		DefaultPeriod   string        `yaml:"default_period" default:"1y"`
	} `yaml:"forecast"`
	Fitter struct {
		// local runs the in-process CSS fitter, remote calls analytics.python_service_url.
		Type          string `yaml:"type" default:"local"`
		MaxIterations int    `yaml:"max_iterations" default:"2000"`
	} `yaml:"fitter"`
	History struct {
		Source       string        `yaml:"source" default:"yahoo"`
		YahooBaseURL string        `yaml:"yahoo_base_url" default:"https://query1.finance.yahoo.com"`
		Timeout      time.Duration `yaml:"timeout" default:"10s"`
		Retries      int           `yaml:"retries" default:"2"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"15m"`
	} `yaml:"history"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ResultsTopic  string   `yaml:"results_topic" default:"pricecast.forecasts"`
		RequestsTopic string   `yaml:"requests_topic" default:"pricecast.forecast-requests"`
		LogsTopic     string   `yaml:"logs_topic" default:"pricecast.logs"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"pricecast"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		// Enabled stores daily bars for ingest; history.source clickhouse implies it.
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pricecast"`
		Table            string        `yaml:"table" default:"daily_bars"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Analytics struct {
		PythonServiceURL string        `yaml:"python_service_url"`
		Timeout          time.Duration `yaml:"timeout" default:"10s"`
		Retries          int           `yaml:"retries" default:"2"`
		Breaker          struct {
			MaxRequests      uint32        `yaml:"max_requests" default:"1"`
			Interval         time.Duration `yaml:"interval" default:"60s"`
			Timeout          time.Duration `yaml:"timeout" default:"30s"`
			FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
		} `yaml:"breaker"`
	} `yaml:"analytics"`
	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"pricecast:"`
	} `yaml:"redis"`
}

// UsesClickHouse reports whether a ClickHouse connection is needed.
func (c *Config) UsesClickHouse() bool {
	return c.ClickHouse.Enabled || c.History.Source == "clickhouse"
}

// Default returns a configuration populated only from default tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("HISTORY_SOURCE"); v != "" {
		c.History.Source = v
	}
	if v := getenv("FITTER_TYPE"); v != "" {
		c.Fitter.Type = v
	}
	if v := getenv("ANALYTICS_URL"); v != "" {
		c.Analytics.PythonServiceURL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	f := c.Forecast
	if f.PMax < 0 || f.DMax < 0 || f.QMax < 0 {
		return fmt.Errorf("forecast grid bounds must be non-negative, got p=%d d=%d q=%d", f.PMax, f.DMax, f.QMax)
	}
	if f.DMax > 2 {
		return fmt.Errorf("forecast.d_max must be at most 2, got %d", f.DMax)
	}
	if f.MinObservations < 2 {
		return fmt.Errorf("forecast.min_observations must be at least 2, got %d", f.MinObservations)
	}
	if f.MaxDays < 1 || f.DefaultDays < 1 || f.DefaultDays > f.MaxDays {
		return fmt.Errorf("forecast.default_days must be in [1, max_days=%d], got %d", f.MaxDays, f.DefaultDays)
	}
	switch c.Fitter.Type {
	case "local":
	case "remote":
		if c.Analytics.PythonServiceURL == "" {
			return fmt.Errorf("analytics.python_service_url is required for fitter.type 'remote'")
		}
	default:
		return fmt.Errorf("fitter.type must be 'local' or 'remote', got '%s'", c.Fitter.Type)
	}
	if c.History.Source != "yahoo" && c.History.Source != "clickhouse" {
		return fmt.Errorf("history.source must be 'yahoo' or 'clickhouse', got '%s'", c.History.Source)
	}
	if c.Logging.Collect.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logging.collect requires kafka to be enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
