package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr      string        `yaml:"server_addr" env:"SERVER_ADDR"`
	BaseURL         string        `yaml:"base_url" env:"BASE_URL"`
	WebhookURL      string        `yaml:"webhook_url" env:"WEBHOOK_URL"`
	DatabaseURL     string        `yaml:"database_url" env:"DATABASE_URL"`
	StoragePath     string        `yaml:"storage_path" env:"STORAGE_PATH"`
	KafkaBroker     string        `yaml:"kafka_broker" env:"KAFKA_BROKER"`
	KafkaTopic      string        `yaml:"kafka_topic" env:"KAFKA_TOPIC"`
	AsyncProcessing bool          `yaml:"async_processing" env:"ASYNC_PROCESSING"`
	RedisAddr       string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword   string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB         int           `yaml:"redis_db" env:"REDIS_DB"`
	StatusCacheTTL  time.Duration `yaml:"status_cache_ttl" env:"STATUS_CACHE_TTL"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
	URLWorkers      int           `yaml:"url_workers" env:"URL_WORKERS"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		ServerAddr:     ":3000",
		BaseURL:        "http://localhost:3000",
		StoragePath:    "./data",
		KafkaTopic:     "image-batches",
		StatusCacheTTL: 30 * time.Second,
		FetchTimeout:   30 * time.Second,
		URLWorkers:     1,
		LogLevel:       "info",
	}
}

// LoadConfig reads the yaml file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%s: %w", op, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.URLWorkers < 1 {
		cfg.URLWorkers = 1
	}
	return cfg, nil
}

// Async reports whether batches are handed to the queue instead of being
// processed inside the upload request.
func (c *Config) Async() bool {
	return c.AsyncProcessing && c.KafkaBroker != ""
}
