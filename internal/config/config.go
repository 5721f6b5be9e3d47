// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RabbitMQ struct {
		URL          string `yaml:"url"`
		TriggerQueue string `yaml:"trigger_queue"`
	} `yaml:"rabbitmq"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Storage struct {
		OperationTimeout time.Duration `yaml:"operation_timeout"`
	} `yaml:"storage"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`

	Scraper ScraperConfig `yaml:"scraper"`

	Connectors ConnectorConfig `yaml:"connectors"`
}

type ScraperConfig struct {
	Interval        time.Duration `yaml:"interval"`
	TenantGroupSize int           `yaml:"tenant_group_size"`
	RecordBatchSize int           `yaml:"record_batch_size"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	RunOnStartup    bool          `yaml:"run_on_startup"`
}

type ConnectorConfig struct {
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	PageLimit         int           `yaml:"page_limit"`
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	cfg := &Config{}
	cfg.RabbitMQ.TriggerQueue = "scrape_requests"
	cfg.Storage.OperationTimeout = 10 * time.Second
	cfg.HTTP.Addr = ":8080"
	cfg.Logging.Level = "info"
	cfg.Scraper = ScraperConfig{
		Interval:        time.Minute,
		TenantGroupSize: 5,
		RecordBatchSize: 50,
		FetchTimeout:    2 * time.Minute,
	}
	cfg.Connectors = ConnectorConfig{
		HTTPTimeout:       30 * time.Second,
		MaxRetries:        3,
		RequestsPerSecond: 5,
		Burst:             1,
		PageLimit:         20,
	}
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.RabbitMQ.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCRAPE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCRAPE_INTERVAL: %w", err)
		}
		cfg.Scraper.Interval = d
	}
	if v := os.Getenv("TENANT_GROUP_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TENANT_GROUP_SIZE: %w", err)
		}
		cfg.Scraper.TenantGroupSize = n
	}
	if v := os.Getenv("RECORD_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RECORD_BATCH_SIZE: %w", err)
		}
		cfg.Scraper.RecordBatchSize = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Scraper.TenantGroupSize <= 0 {
		return errors.New("scraper.tenant_group_size must be positive")
	}
	if c.Scraper.RecordBatchSize <= 0 {
		return errors.New("scraper.record_batch_size must be positive")
	}
	if c.Scraper.Interval <= 0 {
		return errors.New("scraper.interval must be positive")
	}
	if c.Connectors.RequestsPerSecond < 0 {
		return errors.New("connectors.requests_per_second must not be negative")
	}
	return nil
}
